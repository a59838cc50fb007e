package quizapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

const DefaultBaseURL = "http://localhost:8000"

var (
	ErrNetwork        = errors.New("quiz service unavailable")
	ErrUnauthorized   = errors.New("session expired, please login again")
	ErrNotSignedUp    = errors.New("not signed up for this quiz")
	ErrNotActive      = errors.New("quiz is not active")
	ErrServerRejected = errors.New("server rejected the request")
	ErrMalformed      = errors.New("malformed response")
)

// APIError is a non-2xx response. Kind is one of the sentinel errors above
// when the status maps to one, so callers can use errors.Is.
type APIError struct {
	StatusCode int
	Message    string
	Kind       error
}

func (e *APIError) Error() string {
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Kind
}

type HTTPClient struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Details []struct {
		Msg string `json:"msg"`
	} `json:"details"`
}

func (e errorResponse) text() string {
	if len(e.Details) > 0 {
		msgs := make([]string, 0, len(e.Details))
		for _, detail := range e.Details {
			msgs = append(msgs, detail.Msg)
		}
		return strings.Join(msgs, "\n")
	}
	if strings.TrimSpace(e.Message) != "" {
		return e.Message
	}
	return e.Error
}

func NewHTTPClient(baseURL string, httpClient *http.Client) *HTTPClient {
	baseURL = strings.TrimSpace(baseURL)
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &HTTPClient{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// SetToken sets the bearer token sent with authenticated requests. An empty
// token sends none.
func (c *HTTPClient) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = strings.TrimSpace(token)
}

func (c *HTTPClient) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path string, requestBody any, responseBody any, header http.Header) error {
	fullURL := c.baseURL + path

	var body io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return errors.Wrap(err, "encode request body")
		}
		body = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return errors.Wrapf(err, "build %s %s", method, path)
	}
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	request.Header.Set("Accept", "application/json")
	if token := c.Token(); token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	for key, values := range header {
		for _, value := range values {
			request.Header.Add(key, value)
		}
	}

	started := time.Now()
	response, err := c.httpClient.Do(request)
	if err != nil {
		glog.V(4).Infof("%s %s failed after %s: %v", method, path, time.Since(started), err)
		return errors.Wrapf(ErrNetwork, "%s %s: %v", method, path, err)
	}
	defer response.Body.Close()
	glog.V(4).Infof("%s %s -> %d (%s)", method, path, response.StatusCode, time.Since(started))

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		apiErr := APIError{StatusCode: response.StatusCode}
		var payload errorResponse
		if err := json.NewDecoder(response.Body).Decode(&payload); err == nil {
			apiErr.Message = payload.text()
		}
		if response.StatusCode == http.StatusUnauthorized {
			apiErr.Kind = ErrUnauthorized
			apiErr.Message = "Session expired. Please login again."
		}
		if strings.TrimSpace(apiErr.Message) == "" {
			apiErr.Message = response.Status
		}
		return &apiErr
	}

	if responseBody == nil {
		return nil
	}
	if err := json.NewDecoder(response.Body).Decode(responseBody); err != nil {
		return errors.Wrapf(ErrMalformed, "%s %s: %v", method, path, err)
	}
	return nil
}

// classify sets Kind on an APIError whose status has a per-endpoint meaning.
// Errors that already carry a Kind are left alone.
func classify(err error, byStatus map[int]error, fallback error) error {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Kind != nil {
		return err
	}
	if kind, ok := byStatus[apiErr.StatusCode]; ok {
		apiErr.Kind = kind
	} else if fallback != nil {
		apiErr.Kind = fallback
	}
	return apiErr
}

// parseTime accepts RFC 3339 as well as the zone-less ISO 8601 form, which is
// read as UTC.
func parseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	layouts := []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", value)
}

func parseOptionalTime(value string) time.Time {
	if strings.TrimSpace(value) == "" {
		return time.Time{}
	}
	parsed, err := parseTime(value)
	if err != nil {
		glog.Warningf("ignoring %v", err)
		return time.Time{}
	}
	return parsed
}
