package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	leads "github.com/erino/leads-api"
)

type UserService struct {
	db *sqlx.DB
}

func NewUserService(db *sqlx.DB) leads.UserService {
	return &UserService{
		db: db,
	}
}

func (us UserService) Create(ctx context.Context, user leads.User) error {
	const query = `
	INSERT INTO users (
		id, name, email, password_hash, role, created_at
	) VALUES (
		:id, :name, :email, :password_hash, :role, :created_at
	)`

	if _, err := us.db.NamedExecContext(ctx, query, user); err != nil {
		if isUniqueViolation(err) {
			return leads.ErrDuplicatedUser
		}
		return err
	}
	return nil
}

func (us UserService) GetByID(ctx context.Context, id string) (leads.User, error) {
	const query = `
	SELECT id, name, email, password_hash, role, created_at
	FROM users
	WHERE id = $1`

	var user leads.User
	if err := us.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return leads.User{}, leads.ErrUserNotFound
		}
		return leads.User{}, err
	}
	return user, nil
}

func (us UserService) GetByEmail(ctx context.Context, email string) (leads.User, error) {
	const query = `
	SELECT id, name, email, password_hash, role, created_at
	FROM users
	WHERE email = $1`

	var user leads.User
	if err := us.db.GetContext(ctx, &user, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return leads.User{}, leads.ErrUserNotFound
		}
		return leads.User{}, err
	}
	return user, nil
}
