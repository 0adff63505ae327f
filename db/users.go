package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"lector/models"
)

// Users resolves feed owners for notification delivery.
type Users struct {
	db *sql.DB
}

func (u *Users) Get(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := u.db.QueryRowContext(ctx,
		"SELECT id, username, email FROM users WHERE id = ?", id,
	).Scan(&user.ID, &user.Username, &user.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", id, sql.ErrNoRows)
	}
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	return &user, nil
}

// Email returns the address notifications for this owner go to.
func (u *Users) Email(ctx context.Context, id int64) (string, error) {
	user, err := u.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return user.Email, nil
}

// Create inserts a user and returns its id. Exists for fixtures and the
// CLI; account management is owned by the external CRUD layer.
func (u *Users) Create(ctx context.Context, user *models.User) (int64, error) {
	res, err := u.db.ExecContext(ctx,
		"INSERT INTO users (username, email) VALUES (?, ?)",
		user.Username, user.Email,
	)
	if err != nil {
		return 0, fmt.Errorf("insert error: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert error: %w", err)
	}
	user.ID = id
	return id, nil
}
