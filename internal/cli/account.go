package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/glog"

	"quiz-client/internal/quiz"
	"quiz-client/internal/quizapi"
	"quiz-client/internal/store"
)

const sessionExpiredMessage = "Session expired. Please login again."

// restoreLogin picks up a saved login for the configured server.
func (a *App) restoreLogin(ctx context.Context) {
	creds, err := a.store.LoadCredentials(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrNoCredentials) {
			glog.Warningf("load saved login: %v", err)
		}
		return
	}
	if creds.ServerURL != a.opts.ServerURL {
		glog.V(2).Infof("saved login is for %s, not %s", creds.ServerURL, a.opts.ServerURL)
		return
	}
	if creds.Expired(a.opts.Clock.Now()) {
		fmt.Fprintln(a.out, sessionExpiredMessage)
		if err := a.store.ClearCredentials(ctx); err != nil {
			glog.Warningf("clear expired login: %v", err)
		}
		return
	}

	a.setLogin(creds)
	fmt.Fprintf(a.out, "logged in as %s (%s)\n", creds.Username, creds.Role)
}

func (a *App) setLogin(creds store.Credentials) {
	a.creds = creds
	a.user = &quiz.User{ID: creds.UserID, Username: creds.Username, Role: creds.Role}
	a.api.SetToken(creds.Token)
}

func (a *App) clearLogin() {
	a.creds = store.Credentials{}
	a.user = nil
	a.api.SetToken("")
}

func (a *App) runLogin(ctx context.Context, args []string) {
	if len(args) != 2 {
		fmt.Fprintln(a.out, "usage: login <username|email>")
		return
	}
	password, ok := a.ask(ctx, "Password: ")
	if !ok {
		return
	}

	result, err := a.api.Login(ctx, args[1], password)
	if err != nil {
		fmt.Fprintf(a.out, "login failed: %v\n", describeClientError(err, a.opts.ServerURL))
		return
	}

	creds := store.Credentials{
		ServerURL: a.opts.ServerURL,
		Token:     result.Token,
		UserID:    result.User.ID,
		Username:  result.User.Username,
		Role:      result.User.Role,
		SavedAt:   a.opts.Clock.Now(),
	}
	if claims, err := quizapi.ParseClaims(result.Token); err == nil {
		creds.ExpiresAt = claims.ExpiresAt
		if creds.Role == "" {
			creds.Role = claims.Role
		}
	} else {
		glog.V(2).Infof("token claims unreadable: %v", err)
	}
	if creds.Username == "" {
		creds.Username = args[1]
	}

	a.setLogin(creds)
	if err := a.store.SaveCredentials(ctx, creds); err != nil {
		glog.Warningf("save login: %v", err)
		fmt.Fprintln(a.out, "warning: login will not be remembered")
	}
	fmt.Fprintf(a.out, "Welcome, %s!\n", creds.Username)
	if creds.Role == quiz.RoleAdmin {
		fmt.Fprintln(a.out, adminMessage)
	}
}

func (a *App) runRegister(ctx context.Context) {
	var form quizapi.Registration
	fields := []struct {
		prompt string
		target *string
	}{
		{"Username: ", &form.Username},
		{"Email: ", &form.Email},
		{"Full name: ", &form.FullName},
		{"Date of birth (YYYY-MM-DD, optional): ", &form.DOB},
		{"Password: ", &form.Password},
	}
	for _, field := range fields {
		value, ok := a.ask(ctx, field.prompt)
		if !ok {
			return
		}
		*field.target = strings.TrimSpace(value)
	}
	if form.Username == "" || form.Password == "" || form.Email == "" {
		fmt.Fprintln(a.out, "username, email and password are required")
		return
	}

	user, err := a.api.Register(ctx, form)
	if err != nil {
		fmt.Fprintf(a.out, "registration failed: %v\n", describeClientError(err, a.opts.ServerURL))
		return
	}
	name := user.Username
	if name == "" {
		name = form.Username
	}
	fmt.Fprintf(a.out, "Registered %s. You can now login.\n", name)
}

func (a *App) runLogout(ctx context.Context) {
	a.clearLogin()
	if err := a.store.ClearCredentials(ctx); err != nil {
		glog.Warningf("clear login: %v", err)
	}
	fmt.Fprintln(a.out, "Logged out.")
}

func (a *App) runWhoami() {
	if a.user == nil {
		fmt.Fprintln(a.out, "not logged in")
		return
	}
	fmt.Fprintf(a.out, "%s (%s)\n", a.user.Username, a.user.Role)
	if !a.creds.ExpiresAt.IsZero() {
		fmt.Fprintf(a.out, "session expires %s\n", humanize.RelTime(a.creds.ExpiresAt, a.opts.Clock.Now(), "ago", "from now"))
	}
}

const adminMessage = "Admin accounts manage quizzes from the web dashboard; learner commands are not available."

// requireLearner reports whether a learner is logged in, explaining why not
// otherwise.
func (a *App) requireLearner() bool {
	switch {
	case a.user == nil:
		fmt.Fprintln(a.out, "please login first")
		return false
	case a.creds.Expired(a.opts.Clock.Now()):
		a.expireSession(context.Background())
		return false
	case a.user.Role == quiz.RoleAdmin:
		fmt.Fprintln(a.out, adminMessage)
		return false
	default:
		return true
	}
}

func (a *App) expireSession(ctx context.Context) {
	a.clearLogin()
	if err := a.store.ClearCredentials(ctx); err != nil {
		glog.Warningf("clear expired login: %v", err)
	}
	fmt.Fprintln(a.out, sessionExpiredMessage)
}

func isUnauthorized(err error) bool {
	return errors.Is(err, quizapi.ErrUnauthorized)
}

// ask prints prompt and waits for one line.
func (a *App) ask(ctx context.Context, prompt string) (string, bool) {
	fmt.Fprint(a.out, prompt)
	line, ok := a.nextLine(ctx)
	if !ok {
		fmt.Fprintln(a.out)
		return "", false
	}
	return strings.TrimRight(line, "\r"), true
}

func formatWhen(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
