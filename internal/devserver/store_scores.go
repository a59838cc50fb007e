package devserver

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

// RecordScore stores a graded submission with its answers. A second
// submission for the same quiz and user fails with ErrAlreadyScored.
func (s *Store) RecordScore(ctx context.Context, score ScoreRecord, answers []Answer) (ScoreRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ScoreRecord{}, err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(
		ctx,
		`INSERT INTO scores (quiz_id, user_id, total_score, correct_answers, submitted_at_unix) VALUES (?, ?, ?, ?, ?)`,
		score.QuizID,
		score.UserID,
		score.TotalScore,
		score.CorrectAnswers,
		score.SubmittedAt.UTC().Unix(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ScoreRecord{}, ErrAlreadyScored
		}
		return ScoreRecord{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return ScoreRecord{}, err
	}
	score.ID = int(id)

	for _, answer := range answers {
		var selected any
		if answer.Selected != nil {
			selected = *answer.Selected
		}
		if _, err := tx.ExecContext(
			ctx,
			`INSERT OR REPLACE INTO score_answers (score_id, question_id, selected_option) VALUES (?, ?, ?)`,
			score.ID,
			answer.QuestionID,
			selected,
		); err != nil {
			return ScoreRecord{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return ScoreRecord{}, err
	}
	score.SubmittedAt = unixUTC(score.SubmittedAt.UTC().Unix())
	return score, nil
}

func (s *Store) ScoreFor(ctx context.Context, userID, quizID int) (ScoreRecord, error) {
	var (
		score         ScoreRecord
		submittedUnix int64
	)
	err := s.db.QueryRowContext(
		ctx,
		`SELECT id, quiz_id, user_id, total_score, correct_answers, submitted_at_unix FROM scores WHERE user_id = ? AND quiz_id = ?`,
		userID,
		quizID,
	).Scan(&score.ID, &score.QuizID, &score.UserID, &score.TotalScore, &score.CorrectAnswers, &submittedUnix)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ScoreRecord{}, ErrNoScore
		}
		return ScoreRecord{}, err
	}
	score.SubmittedAt = unixUTC(submittedUnix)
	return score, nil
}

// ScoreAnswers maps question id to the stored selection for one score.
// Skipped questions map to nil.
func (s *Store) ScoreAnswers(ctx context.Context, scoreID int) (map[int]*int, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT question_id, selected_option FROM score_answers WHERE score_id = ?`,
		scoreID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int]*int)
	for rows.Next() {
		var (
			questionID int
			selected   sql.NullInt64
		)
		if err := rows.Scan(&questionID, &selected); err != nil {
			return nil, err
		}
		if selected.Valid {
			value := int(selected.Int64)
			out[questionID] = &value
		} else {
			out[questionID] = nil
		}
	}
	return out, rows.Err()
}

type HistoryRow struct {
	Score    ScoreRecord
	QuizName string
}

// History lists a user's scores, newest first.
func (s *Store) History(ctx context.Context, userID int) ([]HistoryRow, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT sc.id, sc.quiz_id, sc.user_id, sc.total_score, sc.correct_answers, sc.submitted_at_unix, q.name
		 FROM scores sc
		 JOIN quizzes q ON q.id = sc.quiz_id
		 WHERE sc.user_id = ?
		 ORDER BY sc.submitted_at_unix DESC, sc.id DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]HistoryRow, 0)
	for rows.Next() {
		var (
			row           HistoryRow
			submittedUnix int64
		)
		if err := rows.Scan(&row.Score.ID, &row.Score.QuizID, &row.Score.UserID, &row.Score.TotalScore, &row.Score.CorrectAnswers, &submittedUnix, &row.QuizName); err != nil {
			return nil, err
		}
		row.Score.SubmittedAt = unixUTC(submittedUnix)
		out = append(out, row)
	}
	return out, rows.Err()
}
