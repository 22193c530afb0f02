package leads

import (
	"context"
	"errors"
	"time"
)

var (
	ErrDuplicatedUser = errors.New("email already in use")
	ErrUserNotFound   = errors.New("user not found")
)

// Role controls a user's visibility scope over leads.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         Role      `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// CanAccessLead reports whether u may read, update or delete the lead.
// Admins may access anything; everyone else only their own records.
func (u User) CanAccessLead(l Lead) bool {
	if u.Role == RoleAdmin {
		return true
	}
	return l.CreatedBy != "" && l.CreatedBy == u.ID
}

type UserService interface {
	Create(ctx context.Context, user User) error
	GetByID(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
}
