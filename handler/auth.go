package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	leads "github.com/erino/leads-api"
	"github.com/erino/leads-api/auth"
)

const tokenCookie = "token"

type AuthHandler struct {
	users        leads.UserService
	log          *zap.SugaredLogger
	secret       string
	tokenTTL     time.Duration
	secureCookie bool
}

func NewAuthHandler(users leads.UserService, log *zap.SugaredLogger, secret string, tokenTTL time.Duration, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		users:        users,
		log:          log,
		secret:       secret,
		tokenTTL:     tokenTTL,
		secureCookie: secureCookie,
	}
}

type credentials struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (ah AuthHandler) Register(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var creds credentials
	if err := decode(r, &creds); err != nil {
		ah.log.Errorw("Register", "error", err.Error())
		respondErr(ctx, rw, http.StatusBadRequest, err)
		return
	}

	if creds.Email == "" || creds.Password == "" {
		respondErr(ctx, rw, http.StatusBadRequest, errors.New("missing email or password"))
		return
	}

	hash, err := auth.HashPassword(creds.Password)
	if err != nil {
		ah.log.Errorw("Register", "error", err.Error())
		respondErr(ctx, rw, http.StatusInternalServerError, err)
		return
	}

	user := leads.User{
		ID:           uuid.NewString(),
		Name:         creds.Name,
		Email:        creds.Email,
		PasswordHash: hash,
		Role:         leads.RoleUser,
		CreatedAt:    time.Now().UTC(),
	}

	if err := ah.users.Create(ctx, user); err != nil {
		ah.log.Errorw("Register", "error", err.Error())
		switch {
		case errors.Is(err, leads.ErrDuplicatedUser):
			respondErr(ctx, rw, http.StatusBadRequest, err)
		default:
			respondErr(ctx, rw, http.StatusInternalServerError, err)
		}
		return
	}

	if err := ah.issueCookie(rw, user.ID); err != nil {
		ah.log.Errorw("Register", "error", err.Error())
		respondErr(ctx, rw, http.StatusInternalServerError, err)
		return
	}

	respond(ctx, rw, http.StatusCreated, userInfo{ID: user.ID, Email: user.Email, Name: user.Name})
}

func (ah AuthHandler) Login(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var creds credentials
	if err := decode(r, &creds); err != nil {
		ah.log.Errorw("Login", "error", err.Error())
		respondErr(ctx, rw, http.StatusBadRequest, err)
		return
	}

	user, err := ah.users.GetByEmail(ctx, creds.Email)
	if err != nil {
		if !errors.Is(err, leads.ErrUserNotFound) {
			ah.log.Errorw("Login", "error", err.Error())
		}
		respondErr(ctx, rw, http.StatusUnauthorized, errors.New("invalid credentials"))
		return
	}

	if !auth.CheckPassword(user.PasswordHash, creds.Password) {
		respondErr(ctx, rw, http.StatusUnauthorized, errors.New("invalid credentials"))
		return
	}

	if err := ah.issueCookie(rw, user.ID); err != nil {
		ah.log.Errorw("Login", "error", err.Error())
		respondErr(ctx, rw, http.StatusInternalServerError, err)
		return
	}

	respond(ctx, rw, http.StatusOK, userInfo{ID: user.ID, Email: user.Email, Name: user.Name})
}

func (ah AuthHandler) Logout(rw http.ResponseWriter, r *http.Request) {
	http.SetCookie(rw, &http.Cookie{
		Name:     tokenCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   ah.secureCookie,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	respond(r.Context(), rw, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (ah AuthHandler) Me(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := CallerFromContext(ctx)
	if !ok {
		respondErr(ctx, rw, http.StatusUnauthorized, errors.New("not authenticated"))
		return
	}
	respond(ctx, rw, http.StatusOK, caller)
}

func (ah AuthHandler) issueCookie(rw http.ResponseWriter, userID string) error {
	token, err := auth.CreateToken(userID, ah.secret, ah.tokenTTL)
	if err != nil {
		return err
	}
	http.SetCookie(rw, &http.Cookie{
		Name:     tokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   ah.secureCookie,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ah.tokenTTL.Seconds()),
	})
	return nil
}
