package devserver

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

// CreateQuiz stores a quiz and its questions in one transaction. Questions
// keep their slice order.
func (s *Store) CreateQuiz(ctx context.Context, q Quiz, questions []Question) (Quiz, error) {
	if q.Name == "" {
		return Quiz{}, errors.New("quiz name is required")
	}
	if _, err := q.EndTime(); err != nil {
		return Quiz{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Quiz{}, err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(
		ctx,
		`INSERT INTO quizzes (name, remarks, chapter_name, subject_name, date_of_quiz_unix, time_duration)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		q.Name,
		q.Remarks,
		q.ChapterName,
		q.SubjectName,
		q.DateOfQuiz.UTC().Unix(),
		q.TimeDuration,
	)
	if err != nil {
		return Quiz{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return Quiz{}, err
	}
	q.ID = int(id)

	for idx, question := range questions {
		points := question.Points
		if points <= 0 {
			points = 1
		}
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO questions (quiz_id, position, statement, option1, option2, option3, option4, correct_option, points)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			q.ID,
			idx,
			question.Statement,
			question.Options[0],
			question.Options[1],
			question.Options[2],
			question.Options[3],
			question.CorrectOption,
			points,
		); err != nil {
			return Quiz{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Quiz{}, err
	}
	q.DateOfQuiz = q.DateOfQuiz.UTC().Truncate(time.Second)
	return q, nil
}

func (s *Store) GetQuiz(ctx context.Context, quizID int) (Quiz, error) {
	var (
		q         Quiz
		startUnix int64
	)
	err := s.db.QueryRowContext(
		ctx,
		`SELECT id, name, remarks, chapter_name, subject_name, date_of_quiz_unix, time_duration FROM quizzes WHERE id = ?`,
		quizID,
	).Scan(&q.ID, &q.Name, &q.Remarks, &q.ChapterName, &q.SubjectName, &startUnix, &q.TimeDuration)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Quiz{}, ErrQuizNotFound
		}
		return Quiz{}, err
	}
	q.DateOfQuiz = unixUTC(startUnix)
	return q, nil
}

func (s *Store) QuizQuestions(ctx context.Context, quizID int) ([]Question, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, quiz_id, statement, option1, option2, option3, option4, correct_option, points
		 FROM questions
		 WHERE quiz_id = ?
		 ORDER BY position ASC`,
		quizID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := make([]Question, 0)
	for rows.Next() {
		var q Question
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Statement, &q.Options[0], &q.Options[1], &q.Options[2], &q.Options[3], &q.CorrectOption, &q.Points); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (s *Store) Signup(ctx context.Context, userID, quizID int, at time.Time) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO signups (user_id, quiz_id, signed_up_at_unix) VALUES (?, ?, ?)`,
		userID,
		quizID,
		at.UTC().Unix(),
	)
	if isUniqueViolation(err) {
		return ErrAlreadySigned
	}
	return err
}

func (s *Store) CancelSignup(ctx context.Context, userID, quizID int) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM signups WHERE user_id = ? AND quiz_id = ?`, userID, quizID)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotSignedUp
	}
	return nil
}

func (s *Store) IsSignedUp(ctx context.Context, userID, quizID int) (bool, error) {
	var found int
	err := s.db.QueryRowContext(
		ctx,
		`SELECT 1 FROM signups WHERE user_id = ? AND quiz_id = ? LIMIT 1`,
		userID,
		quizID,
	).Scan(&found)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ListSignups returns the user's signed-up quizzes in start order.
func (s *Store) ListSignups(ctx context.Context, userID int) ([]SignupRow, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT q.id, q.name, q.remarks, q.chapter_name, q.subject_name, q.date_of_quiz_unix, q.time_duration,
			(SELECT COUNT(*) FROM questions WHERE quiz_id = q.id),
			(SELECT COALESCE(SUM(points), 0) FROM questions WHERE quiz_id = q.id),
			sc.id, sc.total_score, sc.correct_answers, sc.submitted_at_unix
		 FROM signups su
		 JOIN quizzes q ON q.id = su.quiz_id
		 LEFT JOIN scores sc ON sc.quiz_id = q.id AND sc.user_id = su.user_id
		 WHERE su.user_id = ?
		 ORDER BY q.date_of_quiz_unix ASC, q.id ASC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]SignupRow, 0)
	for rows.Next() {
		var (
			row         SignupRow
			startUnix   int64
			scoreID     sql.NullInt64
			totalScore  sql.NullInt64
			correct     sql.NullInt64
			submittedAt sql.NullInt64
		)
		if err := rows.Scan(
			&row.Quiz.ID, &row.Quiz.Name, &row.Quiz.Remarks, &row.Quiz.ChapterName, &row.Quiz.SubjectName, &startUnix, &row.Quiz.TimeDuration,
			&row.TotalQuestions, &row.TotalPoints,
			&scoreID, &totalScore, &correct, &submittedAt,
		); err != nil {
			return nil, err
		}
		row.Quiz.DateOfQuiz = unixUTC(startUnix)
		if scoreID.Valid {
			row.Score = &ScoreRecord{
				ID:             int(scoreID.Int64),
				QuizID:         row.Quiz.ID,
				UserID:         userID,
				TotalScore:     int(totalScore.Int64),
				CorrectAnswers: int(correct.Int64),
				SubmittedAt:    unixUTC(submittedAt.Int64),
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
