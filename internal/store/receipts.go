package store

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const defaultReceiptLimit = 20

// Receipt records one accepted submission as the server confirmed it.
type Receipt struct {
	RequestID      string
	Username       string
	QuizID         int
	QuizName       string
	TotalScore     int
	CorrectAnswers int
	SubmittedAt    time.Time
}

// RecordReceipt stores r once. Recording the same request id again keeps the
// first row.
func (s *SQLiteStore) RecordReceipt(ctx context.Context, r Receipt) error {
	if strings.TrimSpace(r.RequestID) == "" {
		return errors.New("request id is required")
	}
	if r.SubmittedAt.IsZero() {
		r.SubmittedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO receipts (request_id, username, quiz_id, quiz_name, total_score, correct_answers, submitted_at_unix)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.RequestID,
		strings.ToLower(strings.TrimSpace(r.Username)),
		r.QuizID,
		r.QuizName,
		r.TotalScore,
		r.CorrectAnswers,
		r.SubmittedAt.UTC().UnixNano(),
	)
	return errors.Wrap(err, "record receipt")
}

// ListReceipts returns the newest receipts for username first.
func (s *SQLiteStore) ListReceipts(ctx context.Context, username string, limit int) ([]Receipt, error) {
	if limit <= 0 {
		limit = defaultReceiptLimit
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT request_id, username, quiz_id, quiz_name, total_score, correct_answers, submitted_at_unix
		 FROM receipts
		 WHERE username = ?
		 ORDER BY submitted_at_unix DESC, request_id ASC
		 LIMIT ?`,
		strings.ToLower(strings.TrimSpace(username)),
		limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "list receipts")
	}
	defer rows.Close()

	receipts := make([]Receipt, 0)
	for rows.Next() {
		var (
			r           Receipt
			submittedNs int64
		)
		if err := rows.Scan(&r.RequestID, &r.Username, &r.QuizID, &r.QuizName, &r.TotalScore, &r.CorrectAnswers, &submittedNs); err != nil {
			return nil, err
		}
		r.SubmittedAt = time.Unix(0, submittedNs).UTC()
		receipts = append(receipts, r)
	}

	return receipts, rows.Err()
}
