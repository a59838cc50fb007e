package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"
	"k8s.io/utils/clock"

	"quiz-client/internal/config"
	"quiz-client/internal/quiz"
	"quiz-client/internal/quizapi"
	"quiz-client/internal/store"
)

const (
	defaultFailureRedirect = 3 * time.Second
	defaultSuccessRedirect = 2 * time.Second
	defaultReceiptLimit    = 10
)

// API is the part of the quiz service the terminal client talks to.
type API interface {
	Login(ctx context.Context, identifier, password string) (quizapi.LoginResult, error)
	Register(ctx context.Context, form quizapi.Registration) (quiz.User, error)
	SetToken(token string)
	FetchAttempt(ctx context.Context, quizID int) (quiz.Attempt, error)
	SubmitAttempt(ctx context.Context, quizID int, answers []quiz.Submission) (quiz.SubmissionResult, error)
	GetScore(ctx context.Context, quizID int) (quiz.ScoreSummary, error)
	GetResults(ctx context.Context, quizID int) ([]quiz.QuestionResult, error)
	GetHistory(ctx context.Context) ([]quiz.HistoryEntry, error)
	Signup(ctx context.Context, quizID int) (string, error)
	CancelSignup(ctx context.Context, quizID int) (string, error)
	ListSignups(ctx context.Context) ([]quiz.SignedUpQuiz, error)
}

// Store persists the login and receipts between runs.
type Store interface {
	SaveCredentials(ctx context.Context, creds store.Credentials) error
	LoadCredentials(ctx context.Context) (store.Credentials, error)
	ClearCredentials(ctx context.Context) error
	RecordReceipt(ctx context.Context, r store.Receipt) error
	ListReceipts(ctx context.Context, username string, limit int) ([]store.Receipt, error)
}

type Options struct {
	ServerURL       string
	WarningFraction float64
	Clock           clock.WithTicker
	FailureRedirect time.Duration
	SuccessRedirect time.Duration
}

type App struct {
	api   API
	store Store
	out   io.Writer
	opts  Options

	lines <-chan string

	user  *quiz.User
	creds store.Credentials
}

// Run wires the HTTP client and the local store from cfg and runs the
// interactive loop until exit or end of input.
func Run(ctx context.Context, in io.Reader, out io.Writer, cfg config.Client) error {
	st, err := store.NewSQLiteStore(cfg.StateDB)
	if err != nil {
		return err
	}
	defer st.Close()

	api := quizapi.NewHTTPClient(cfg.ServerURL, &http.Client{Timeout: cfg.Timeout})
	app := NewApp(api, st, out, Options{
		ServerURL:       cfg.ServerURL,
		WarningFraction: cfg.WarningFraction,
		FailureRedirect: defaultFailureRedirect,
		SuccessRedirect: defaultSuccessRedirect,
	})
	return app.Run(ctx, in)
}

func NewApp(api API, st Store, out io.Writer, opts Options) *App {
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if strings.TrimSpace(opts.ServerURL) == "" {
		opts.ServerURL = config.DefaultServerURL
	}
	return &App{
		api:   api,
		store: st,
		out:   &syncWriter{w: out},
		opts:  opts,
	}
}

func (a *App) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.lines = readLines(ctx, in)

	fmt.Fprintf(a.out, "quiz-cli\nserver=%s\n", a.opts.ServerURL)
	a.restoreLogin(ctx)
	fmt.Fprintln(a.out)
	printHelp(a.out)

	for {
		fmt.Fprint(a.out, "\n> ")
		line, ok := a.nextLine(ctx)
		if !ok {
			fmt.Fprintln(a.out)
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		args := strings.Fields(line)
		command := strings.ToLower(args[0])

		switch command {
		case "help":
			printHelp(a.out)
		case "exit", "quit":
			return nil
		case "login":
			a.runLogin(ctx, args)
		case "register":
			a.runRegister(ctx)
		case "logout":
			a.runLogout(ctx)
		case "whoami":
			a.runWhoami()
		case "quizzes":
			if a.requireLearner() {
				a.report(a.runQuizzes(ctx))
			}
		case "signup", "cancel":
			if len(args) != 2 {
				fmt.Fprintf(a.out, "usage: %s <quiz_id>\n", command)
				continue
			}
			quizID, err := parseQuizID(args[1])
			if err != nil {
				fmt.Fprintf(a.out, "invalid quiz id: %v\n", err)
				continue
			}
			if a.requireLearner() {
				a.report(a.runRegistration(ctx, command, quizID))
			}
		case "take", "results":
			if len(args) != 2 {
				fmt.Fprintf(a.out, "usage: %s <quiz_id>\n", command)
				continue
			}
			quizID, err := parseQuizID(args[1])
			if err != nil {
				fmt.Fprintf(a.out, "invalid quiz id: %v\n", err)
				continue
			}
			if !a.requireLearner() {
				continue
			}
			if command == "take" {
				a.report(a.runTake(ctx, quizID))
			} else {
				a.report(a.runResults(ctx, quizID))
			}
		case "history":
			if a.requireLearner() {
				a.report(a.runHistory(ctx))
			}
		case "receipts":
			if a.requireLearner() {
				limit, err := parsePositiveLimit(args, 1, defaultReceiptLimit)
				if err != nil {
					fmt.Fprintf(a.out, "invalid receipts limit: %v\n", err)
					continue
				}
				a.report(a.runReceipts(ctx, limit))
			}
		default:
			fmt.Fprintln(a.out, "unknown command. type 'help' for usage.")
		}
	}
}

// nextLine blocks for the next input line. It reports false at end of input
// or when ctx is done.
func (a *App) nextLine(ctx context.Context) (string, bool) {
	select {
	case <-ctx.Done():
		return "", false
	case line, ok := <-a.lines:
		return line, ok
	}
}

// report prints err for the user. An expired session also logs the user out.
func (a *App) report(err error) {
	if err == nil {
		return
	}
	if isUnauthorized(err) {
		a.expireSession(context.Background())
		return
	}
	glog.V(2).Infof("command failed: %v", err)
	fmt.Fprintf(a.out, "error: %v\n", describeClientError(err, a.opts.ServerURL))
}

// readLines feeds lines from in to the returned channel so that reads can be
// raced against the quiz timer. The channel is closed at end of input.
func readLines(ctx context.Context, in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		reader := newLineScanner(in)
		for reader.Scan() {
			select {
			case lines <- reader.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
