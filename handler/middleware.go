package handler

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	leads "github.com/erino/leads-api"
	"github.com/erino/leads-api/auth"
)

type ctxKey int

const callerKey ctxKey = 1

// CallerFromContext returns the authenticated user injected by Authenticate.
func CallerFromContext(ctx context.Context) (leads.User, bool) {
	u, ok := ctx.Value(callerKey).(leads.User)
	return u, ok
}

func withCaller(ctx context.Context, u leads.User) context.Context {
	return context.WithValue(ctx, callerKey, u)
}

// Authenticate verifies the session cookie and loads the caller before any
// protected handler runs. Every failure mode is a 401.
func Authenticate(users leads.UserService, secret string, log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			cookie, err := r.Cookie(tokenCookie)
			if err != nil {
				respondErr(ctx, rw, http.StatusUnauthorized, errors.New("not authenticated"))
				return
			}

			userID, err := auth.VerifyToken(cookie.Value, secret)
			if err != nil {
				respondErr(ctx, rw, http.StatusUnauthorized, errors.New("invalid or expired token"))
				return
			}

			user, err := users.GetByID(ctx, userID)
			if err != nil {
				log.Errorw("Authenticate", "error", err.Error())
				respondErr(ctx, rw, http.StatusUnauthorized, errors.New("invalid authentication token"))
				return
			}

			next.ServeHTTP(rw, r.WithContext(withCaller(ctx, user)))
		})
	}
}
