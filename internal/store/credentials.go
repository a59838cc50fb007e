package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var ErrNoCredentials = errors.New("not logged in")

// Credentials is the saved login for one server.
type Credentials struct {
	ServerURL string
	Token     string
	UserID    int
	Username  string
	Role      string
	ExpiresAt time.Time
	SavedAt   time.Time
}

// Expired reports whether the token has a known expiry at or before now.
func (c Credentials) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// SaveCredentials replaces any previous login.
func (s *SQLiteStore) SaveCredentials(ctx context.Context, creds Credentials) error {
	if strings.TrimSpace(creds.Token) == "" {
		return errors.New("token is required")
	}
	if creds.SavedAt.IsZero() {
		creds.SavedAt = time.Now().UTC()
	}

	var expires int64
	if !creds.ExpiresAt.IsZero() {
		expires = creds.ExpiresAt.UTC().Unix()
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO credentials (id, server_url, token, user_id, username, role, expires_at_unix, saved_at_unix)
		 VALUES (1, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			server_url = excluded.server_url,
			token = excluded.token,
			user_id = excluded.user_id,
			username = excluded.username,
			role = excluded.role,
			expires_at_unix = excluded.expires_at_unix,
			saved_at_unix = excluded.saved_at_unix`,
		creds.ServerURL,
		creds.Token,
		creds.UserID,
		creds.Username,
		creds.Role,
		expires,
		creds.SavedAt.UTC().Unix(),
	)
	return errors.Wrap(err, "save credentials")
}

// LoadCredentials returns ErrNoCredentials when nobody is logged in.
func (s *SQLiteStore) LoadCredentials(ctx context.Context) (Credentials, error) {
	var (
		creds       Credentials
		expiresUnix int64
		savedAtUnix int64
	)
	err := s.db.QueryRowContext(
		ctx,
		`SELECT server_url, token, user_id, username, role, expires_at_unix, saved_at_unix
		 FROM credentials WHERE id = 1`,
	).Scan(&creds.ServerURL, &creds.Token, &creds.UserID, &creds.Username, &creds.Role, &expiresUnix, &savedAtUnix)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Credentials{}, ErrNoCredentials
		}
		return Credentials{}, errors.Wrap(err, "load credentials")
	}

	if expiresUnix > 0 {
		creds.ExpiresAt = time.Unix(expiresUnix, 0).UTC()
	}
	creds.SavedAt = time.Unix(savedAtUnix, 0).UTC()
	return creds, nil
}

func (s *SQLiteStore) ClearCredentials(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM credentials`)
	return errors.Wrap(err, "clear credentials")
}
