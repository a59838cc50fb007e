package devserver

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/peterhellberg/duration"
	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"

	"quiz-client/internal/opentdb"
	"quiz-client/internal/quiz"
)

// Fixture is the seed document. Each quiz starts at date_of_quiz, or
// relative to load time through an ISO 8601 duration in starts_in (future)
// or started_ago (past).
type Fixture struct {
	Users   []FixtureUser `json:"users"`
	Quizzes []FixtureQuiz `json:"quizzes"`
}

type FixtureUser struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type FixtureQuiz struct {
	Name         string            `json:"name"`
	Remarks      string            `json:"remarks"`
	Chapter      string            `json:"chapter"`
	Subject      string            `json:"subject"`
	DateOfQuiz   string            `json:"date_of_quiz"`
	StartsIn     string            `json:"starts_in"`
	StartedAgo   string            `json:"started_ago"`
	TimeDuration string            `json:"time_duration"`
	Questions    []FixtureQuestion `json:"questions"`
	Trivia       *FixtureTrivia    `json:"trivia"`
	Signups      []string          `json:"signups"`
}

// FixtureTrivia asks for questions from the Open Trivia Database, appended
// after any listed questions.
type FixtureTrivia struct {
	Amount     int    `json:"amount"`
	Category   int    `json:"category"`
	Difficulty string `json:"difficulty"`
}

type FixtureQuestion struct {
	Statement     string   `json:"statement"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correct_option"`
	Points        int      `json:"points"`
}

const fixtureSchema = `{
  "type": "object",
  "properties": {
    "users": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["username", "email", "password"],
        "properties": {
          "username": {"type": "string", "minLength": 1, "pattern": "^[^@]+$"},
          "email": {"type": "string", "minLength": 3},
          "full_name": {"type": "string"},
          "password": {"type": "string", "minLength": 1},
          "role": {"enum": ["user", "admin"]}
        }
      }
    },
    "quizzes": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "time_duration"],
        "oneOf": [
          {"required": ["date_of_quiz"]},
          {"required": ["starts_in"]},
          {"required": ["started_ago"]}
        ],
        "anyOf": [
          {"required": ["questions"]},
          {"required": ["trivia"]}
        ],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "date_of_quiz": {"type": "string", "format": "date-time"},
          "starts_in": {"type": "string", "format": "duration"},
          "started_ago": {"type": "string", "format": "duration"},
          "time_duration": {"type": "string", "pattern": "^[0-9]{1,2}:[0-5][0-9]$"},
          "questions": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["statement", "options", "correct_option"],
              "properties": {
                "statement": {"type": "string", "minLength": 1},
                "options": {"type": "array", "minItems": 4, "maxItems": 4, "items": {"type": "string"}},
                "correct_option": {"type": "integer", "minimum": 1, "maximum": 4},
                "points": {"type": "integer", "minimum": 1}
              }
            }
          },
          "trivia": {
            "type": "object",
            "required": ["amount"],
            "properties": {
              "amount": {"type": "integer", "minimum": 1, "maximum": 50},
              "category": {"type": "integer", "minimum": 0},
              "difficulty": {"enum": ["easy", "medium", "hard"]}
            }
          },
          "signups": {"type": "array", "items": {"type": "string"}}
        }
      }
    }
  }
}`

type durationChecker struct{}

func (checker durationChecker) IsFormat(value any) bool {
	v, ok := value.(string)
	if !ok {
		return true
	}

	_, err := duration.Parse(v)
	return err == nil
}

var (
	fixtureSchemaOnce sync.Once
	fixtureValidator  *gojsonschema.Schema
	fixtureSchemaErr  error
)

func validateFixture(document []byte) error {
	fixtureSchemaOnce.Do(func() {
		gojsonschema.FormatCheckers.Add("duration", durationChecker{})
		fixtureValidator, fixtureSchemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(fixtureSchema))
	})
	if fixtureSchemaErr != nil {
		return errors.Wrap(fixtureSchemaErr, "compile fixture schema")
	}

	result, err := fixtureValidator.Validate(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return errors.Wrapf(ErrInvalidFixture, "%v", err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return errors.Wrap(ErrInvalidFixture, strings.Join(problems, "; "))
}

// ParseFixture validates and decodes a seed document.
func ParseFixture(document []byte) (Fixture, error) {
	if err := validateFixture(document); err != nil {
		return Fixture{}, err
	}
	var fixture Fixture
	if err := json.Unmarshal(document, &fixture); err != nil {
		return Fixture{}, errors.Wrapf(ErrInvalidFixture, "%v", err)
	}
	return fixture, nil
}

func LoadFixtureFile(path string) (Fixture, error) {
	document, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, errors.Wrap(err, "read fixture")
	}
	fixture, err := ParseFixture(document)
	if err != nil {
		return Fixture{}, errors.Wrap(err, path)
	}
	return fixture, nil
}

func (q FixtureQuiz) start(now time.Time) (time.Time, error) {
	switch {
	case q.DateOfQuiz != "":
		t, err := time.Parse(time.RFC3339, q.DateOfQuiz)
		if err != nil {
			return time.Time{}, errors.Wrapf(ErrInvalidFixture, "quiz %q: date_of_quiz: %v", q.Name, err)
		}
		return t.UTC(), nil
	case q.StartsIn != "":
		d, err := duration.Parse(q.StartsIn)
		if err != nil {
			return time.Time{}, errors.Wrapf(ErrInvalidFixture, "quiz %q: starts_in: %v", q.Name, err)
		}
		return now.Add(d), nil
	default:
		d, err := duration.Parse(q.StartedAgo)
		if err != nil {
			return time.Time{}, errors.Wrapf(ErrInvalidFixture, "quiz %q: started_ago: %v", q.Name, err)
		}
		return now.Add(-d), nil
	}
}

// TriviaSource supplies questions for fixture quizzes with a trivia block.
type TriviaSource interface {
	Questions(ctx context.Context, q opentdb.Query) ([]opentdb.Question, error)
}

// Seed loads a fixture into an empty store. A store that already has users
// is left untouched. trivia may be nil when no quiz asks for trivia.
func Seed(ctx context.Context, store *Store, fixture Fixture, now time.Time, trivia TriviaSource) error {
	empty, err := store.Empty(ctx)
	if err != nil {
		return err
	}
	if !empty {
		glog.Infof("dev db already seeded; skipping fixture")
		return nil
	}

	userIDs := make(map[string]int, len(fixture.Users))
	for _, fu := range fixture.Users {
		role := fu.Role
		if role == "" {
			role = quiz.RoleUser
		}
		hash, err := hashPassword(fu.Password)
		if err != nil {
			return err
		}
		user, err := store.CreateUser(ctx, User{
			Username:     fu.Username,
			Email:        fu.Email,
			FullName:     fu.FullName,
			Role:         role,
			PasswordHash: hash,
		})
		if err != nil {
			return errors.Wrapf(err, "seed user %s", fu.Username)
		}
		userIDs[fu.Username] = user.ID
	}

	for _, fq := range fixture.Quizzes {
		start, err := fq.start(now)
		if err != nil {
			return err
		}
		questions := make([]Question, 0, len(fq.Questions))
		for _, item := range fq.Questions {
			question := Question{
				Statement:     item.Statement,
				CorrectOption: item.CorrectOption,
				Points:        item.Points,
			}
			copy(question.Options[:], item.Options)
			questions = append(questions, question)
		}
		if fq.Trivia != nil {
			extra, err := triviaQuestions(ctx, trivia, fq)
			if err != nil {
				return err
			}
			questions = append(questions, extra...)
		}
		if len(questions) == 0 {
			return errors.Wrapf(ErrInvalidFixture, "quiz %q has no questions", fq.Name)
		}

		created, err := store.CreateQuiz(ctx, Quiz{
			Name:         fq.Name,
			Remarks:      fq.Remarks,
			ChapterName:  fq.Chapter,
			SubjectName:  fq.Subject,
			DateOfQuiz:   start,
			TimeDuration: fq.TimeDuration,
		}, questions)
		if err != nil {
			return errors.Wrapf(err, "seed quiz %q", fq.Name)
		}

		for _, username := range fq.Signups {
			userID, ok := userIDs[username]
			if !ok {
				return errors.Wrapf(ErrInvalidFixture, "quiz %q: unknown signup %q", fq.Name, username)
			}
			if err := store.Signup(ctx, userID, created.ID, now); err != nil {
				return errors.Wrapf(err, "seed signup %s", username)
			}
		}
		glog.V(2).Infof("seeded quiz %d %q starting %s", created.ID, created.Name, created.DateOfQuiz.Format(time.RFC3339))
	}

	glog.Infof("seeded %d users and %d quizzes", len(fixture.Users), len(fixture.Quizzes))
	return nil
}

func triviaQuestions(ctx context.Context, source TriviaSource, fq FixtureQuiz) ([]Question, error) {
	if source == nil {
		return nil, errors.Wrapf(ErrInvalidFixture, "quiz %q asks for trivia but no trivia source is configured", fq.Name)
	}
	fetched, err := source.Questions(ctx, opentdb.Query{
		Amount:     fq.Trivia.Amount,
		Category:   fq.Trivia.Category,
		Difficulty: fq.Trivia.Difficulty,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "trivia for quiz %q", fq.Name)
	}

	out := make([]Question, 0, len(fetched))
	for _, item := range fetched {
		out = append(out, Question{
			Statement:     item.Statement,
			Options:       item.Options,
			CorrectOption: item.Correct,
			Points:        1,
		})
	}
	return out, nil
}
