package devserver

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

var (
	ErrUserExists     = errors.New("user already exists")
	ErrUserNotFound   = errors.New("user not found")
	ErrQuizNotFound   = errors.New("quiz not found")
	ErrAlreadySigned  = errors.New("already signed up for this quiz")
	ErrNotSignedUp    = errors.New("not signed up for this quiz")
	ErrAlreadyScored  = errors.New("quiz already submitted")
	ErrNoScore        = errors.New("quiz not attempted")
	ErrInvalidFixture = errors.New("invalid fixture")
)

// timeLayout is the zone-less ISO form the API uses on the wire. Times are
// always UTC.
const timeLayout = "2006-01-02T15:04:05"

type Store struct {
	db *sql.DB
}

func NewStore(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		path = ":memory:"
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "open dev db")
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "configure dev db")
	}

	store := &Store{db: db}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "init dev schema")
	}
	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			full_name TEXT NOT NULL,
			dob TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL,
			password_hash TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS quizzes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			remarks TEXT NOT NULL DEFAULT '',
			chapter_name TEXT NOT NULL DEFAULT '',
			subject_name TEXT NOT NULL DEFAULT '',
			date_of_quiz_unix INTEGER NOT NULL,
			time_duration TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS questions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			quiz_id INTEGER NOT NULL,
			position INTEGER NOT NULL,
			statement TEXT NOT NULL,
			option1 TEXT NOT NULL,
			option2 TEXT NOT NULL,
			option3 TEXT NOT NULL,
			option4 TEXT NOT NULL,
			correct_option INTEGER NOT NULL,
			points INTEGER NOT NULL DEFAULT 1,
			UNIQUE (quiz_id, position)
		);`,
		`CREATE TABLE IF NOT EXISTS signups (
			user_id INTEGER NOT NULL,
			quiz_id INTEGER NOT NULL,
			signed_up_at_unix INTEGER NOT NULL,
			PRIMARY KEY (user_id, quiz_id)
		);`,
		// One score per learner and quiz.
		`CREATE TABLE IF NOT EXISTS scores (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			quiz_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			total_score INTEGER NOT NULL,
			correct_answers INTEGER NOT NULL,
			submitted_at_unix INTEGER NOT NULL,
			UNIQUE (quiz_id, user_id)
		);`,
		`CREATE TABLE IF NOT EXISTS score_answers (
			score_id INTEGER NOT NULL,
			question_id INTEGER NOT NULL,
			selected_option INTEGER,
			PRIMARY KEY (score_id, question_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_questions_quiz ON questions(quiz_id, position);`,
		`CREATE INDEX IF NOT EXISTS idx_scores_user ON scores(user_id, submitted_at_unix DESC);`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

func unixUTC(value int64) time.Time {
	return time.Unix(value, 0).UTC()
}
