package quizapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"quiz-client/internal/quiz"
)

type loginRequest struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string    `json:"access_token"`
	User        quiz.User `json:"user"`
}

// Registration is the sign-up form for a new learner account.
type Registration struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	DOB      string `json:"dob,omitempty"`
}

type LoginResult struct {
	Token string
	User  quiz.User
}

// Claims are the token fields the client relies on. They are read without
// verifying the signature; the server remains the authority.
type Claims struct {
	Subject   string
	Role      string
	ExpiresAt time.Time
}

func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// Login authenticates with a username, or with an email when identifier
// contains "@". On success the token is used for later requests.
func (c *HTTPClient) Login(ctx context.Context, identifier, password string) (LoginResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return LoginResult{}, errors.New("username and password are required")
	}

	request := loginRequest{Password: password}
	if strings.Contains(identifier, "@") {
		request.Email = identifier
	} else {
		request.Username = identifier
	}

	var payload loginResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", request, &payload, nil); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			// A 401 here means bad credentials, not an expired session.
			apiErr.Kind = nil
			apiErr.Message = "Invalid username or password"
		}
		return LoginResult{}, err
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		return LoginResult{}, errors.Wrap(ErrMalformed, "login response without access_token")
	}

	c.SetToken(payload.AccessToken)
	return LoginResult{Token: payload.AccessToken, User: payload.User}, nil
}

func (c *HTTPClient) Register(ctx context.Context, form Registration) (quiz.User, error) {
	if form.Role == "" {
		form.Role = quiz.RoleUser
	}
	var user quiz.User
	if err := c.doJSON(ctx, http.MethodPost, "/auth/register", form, &user, nil); err != nil {
		return quiz.User{}, err
	}
	return user, nil
}

// ParseClaims decodes a bearer token without checking its signature.
func ParseClaims(token string) (Claims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Claims{}, errors.Wrap(err, "parse token")
	}

	var out Claims
	if sub, err := claims.GetSubject(); err == nil {
		out.Subject = sub
	}
	if out.Subject == "" {
		// Some issuers put a numeric identity in sub.
		if raw, ok := claims["sub"].(float64); ok {
			out.Subject = strconv.FormatInt(int64(raw), 10)
		}
	}
	if role, ok := claims["role"].(string); ok {
		out.Role = role
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time.UTC()
	}
	return out, nil
}

func (c Claims) String() string {
	return fmt.Sprintf("sub=%s role=%s exp=%s", c.Subject, c.Role, c.ExpiresAt.Format(time.RFC3339))
}
