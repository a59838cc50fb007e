package devserver

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"
)

func (s *Store) CreateUser(ctx context.Context, user User) (User, error) {
	result, err := s.db.ExecContext(
		ctx,
		`INSERT INTO users (username, email, full_name, dob, role, password_hash) VALUES (?, ?, ?, ?, ?, ?)`,
		strings.TrimSpace(user.Username),
		strings.ToLower(strings.TrimSpace(user.Email)),
		user.FullName,
		user.DOB,
		user.Role,
		user.PasswordHash,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrUserExists
		}
		return User{}, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return User{}, err
	}
	user.ID = int(id)
	return user, nil
}

// FindUser looks a user up by username, or by email when login contains "@".
func (s *Store) FindUser(ctx context.Context, login string) (User, error) {
	login = strings.TrimSpace(login)
	column := "username"
	if strings.Contains(login, "@") {
		column = "email"
		login = strings.ToLower(login)
	}
	return s.scanUser(s.db.QueryRowContext(
		ctx,
		`SELECT id, username, email, full_name, dob, role, password_hash FROM users WHERE `+column+` = ?`,
		login,
	))
}

func (s *Store) UserByID(ctx context.Context, id int) (User, error) {
	return s.scanUser(s.db.QueryRowContext(
		ctx,
		`SELECT id, username, email, full_name, dob, role, password_hash FROM users WHERE id = ?`,
		id,
	))
}

func (s *Store) scanUser(row *sql.Row) (User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.FullName, &user.DOB, &user.Role, &user.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	return user, nil
}

// Empty reports whether no user has been created yet.
func (s *Store) Empty(ctx context.Context) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return false, err
	}
	return count == 0, nil
}
