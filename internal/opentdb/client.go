// Package opentdb fetches multiple-choice questions from the Open Trivia
// Database for seeding dev quizzes.
package opentdb

import (
	"context"
	"encoding/json"
	"html"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

const (
	apiURL        = "https://opentdb.com/api.php"
	defaultAmount = 10
	maxAmount     = 50
)

// RawQuestion mirrors the OpenTriviaDB question payload. Text fields are
// HTML-escaped.
type RawQuestion struct {
	Type             string   `json:"type"`
	Difficulty       string   `json:"difficulty"`
	Category         string   `json:"category"`
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
}

type apiResponse struct {
	ResponseCode int           `json:"response_code"`
	Results      []RawQuestion `json:"results"`
}

// Query selects questions. Zero values leave the choice to the API.
type Query struct {
	Amount     int
	Category   int
	Difficulty string
}

// Question is a decoded four-option question. Correct is 1-based.
type Question struct {
	Statement string
	Options   [4]string
	Correct   int
	Category  string
}

// Client is not safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	rand       *rand.Rand
}

func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    apiURL,
		httpClient: httpClient,
		rand:       rand.New(rand.NewSource(rand.Int63())),
	}
}

// FetchQuestions asks for multiple-choice questions only.
func (c *Client) FetchQuestions(ctx context.Context, q Query) ([]RawQuestion, error) {
	amount := q.Amount
	if amount <= 0 {
		amount = defaultAmount
	}
	if amount > maxAmount {
		amount = maxAmount
	}

	params := url.Values{}
	params.Set("amount", strconv.Itoa(amount))
	params.Set("type", "multiple")
	if q.Category > 0 {
		params.Set("category", strconv.Itoa(q.Category))
	}
	if q.Difficulty != "" {
		params.Set("difficulty", q.Difficulty)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "opentdb request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("opentdb returned status %d", resp.StatusCode)
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.Wrap(err, "decode opentdb response")
	}

	if payload.ResponseCode != 0 {
		return nil, errors.Errorf("opentdb response_code=%d", payload.ResponseCode)
	}

	glog.V(2).Infof("opentdb returned %d questions", len(payload.Results))
	return payload.Results, nil
}

// Questions fetches and decodes questions, placing the correct answer at a
// random position. Results that do not have exactly three wrong answers are
// dropped.
func (c *Client) Questions(ctx context.Context, q Query) ([]Question, error) {
	raw, err := c.FetchQuestions(ctx, q)
	if err != nil {
		return nil, err
	}

	out := make([]Question, 0, len(raw))
	for _, item := range raw {
		question, ok := Decode(item, c.rand.Intn(4)+1)
		if !ok {
			glog.V(2).Infof("skipping opentdb question of type %q with %d wrong answers", item.Type, len(item.IncorrectAnswers))
			continue
		}
		out = append(out, question)
	}
	return out, nil
}

// Decode unescapes a raw question and puts its correct answer at position
// correct (1-4).
func Decode(raw RawQuestion, correct int) (Question, bool) {
	if len(raw.IncorrectAnswers) != 3 || correct < 1 || correct > 4 {
		return Question{}, false
	}

	question := Question{
		Statement: html.UnescapeString(raw.Question),
		Correct:   correct,
		Category:  html.UnescapeString(raw.Category),
	}
	wrong := 0
	for i := range question.Options {
		if i == correct-1 {
			question.Options[i] = html.UnescapeString(raw.CorrectAnswer)
			continue
		}
		question.Options[i] = html.UnescapeString(raw.IncorrectAnswers[wrong])
		wrong++
	}
	return question, true
}
