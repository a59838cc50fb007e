package quizapi

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
)

// attemptSchema describes the attempt document. Correct answers must not be
// present, so they are not listed and extra properties are tolerated.
const attemptSchema = `{
  "type": "object",
  "required": ["name", "end_time", "questions"],
  "properties": {
    "id": {"type": "integer"},
    "name": {"type": "string"},
    "total_questions": {"type": "integer", "minimum": 0},
    "date_of_quiz": {"type": ["string", "null"]},
    "end_time": {"type": "string", "minLength": 1},
    "questions": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["id", "question_statement", "option1", "option2", "option3", "option4"],
        "properties": {
          "id": {"type": "integer"},
          "question_statement": {"type": "string"},
          "option1": {"type": "string"},
          "option2": {"type": "string"},
          "option3": {"type": "string"},
          "option4": {"type": "string"},
          "points": {"type": "integer", "minimum": 0}
        }
      }
    }
  }
}`

var (
	attemptSchemaOnce sync.Once
	attemptValidator  *gojsonschema.Schema
	attemptSchemaErr  error
)

func validateAttempt(document []byte) error {
	attemptSchemaOnce.Do(func() {
		attemptValidator, attemptSchemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(attemptSchema))
	})
	if attemptSchemaErr != nil {
		return errors.Wrap(attemptSchemaErr, "compile attempt schema")
	}

	result, err := attemptValidator.Validate(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return errors.Wrapf(ErrMalformed, "attempt: %v", err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return errors.Wrapf(ErrMalformed, "attempt: %s", strings.Join(problems, "; "))
}
