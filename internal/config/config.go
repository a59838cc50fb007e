package config

import (
	"flag"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const (
	DefaultServerURL       = "http://localhost:8000"
	DefaultTimeout         = 10 * time.Second
	DefaultWarningFraction = 0.1
	DefaultDevAddr         = ":8000"
	DefaultDevDB           = "quiz-dev.db"
	DefaultTokenTTL        = 24 * time.Hour

	stateFileName = ".quiz-client.db"
)

type Client struct {
	ServerURL       string
	Timeout         time.Duration
	StateDB         string
	WarningFraction float64
}

type DevServer struct {
	Addr      string
	DB        string
	JWTSecret string
	TokenTTL  time.Duration
	Seed      string
}

// LoadDotEnv reads path (".env" when empty) if it exists.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "stat %s", path)
	}
	return errors.Wrapf(godotenv.Load(path), "load %s", path)
}

// ParseClient resolves the learner client settings from args and the
// environment.
func ParseClient(args []string, output io.Writer) (Client, error) {
	fs := newFlagSet("quiz-cli", output)
	server := fs.String("server", "", "quiz API base URL (env QUIZ_API_URL)")
	timeout := fs.String("timeout", "", "HTTP request timeout (env QUIZ_HTTP_TIMEOUT)")
	db := fs.String("db", "", "local state database (env QUIZ_STATE_DB)")
	warn := fs.String("warn", "", "low-time warning fraction, 0 disables (env QUIZ_WARNING_FRACTION)")

	if err := fs.Parse(args); err != nil {
		return Client{}, err
	}
	r := resolver{fs: fs}

	var (
		cfg Client
		err error
	)
	cfg.ServerURL = strings.TrimRight(r.value("server", *server, "QUIZ_API_URL", DefaultServerURL), "/")
	if err := validateURL(cfg.ServerURL); err != nil {
		return Client{}, err
	}

	if cfg.Timeout, err = r.duration("timeout", *timeout, "QUIZ_HTTP_TIMEOUT", DefaultTimeout); err != nil {
		return Client{}, err
	}

	cfg.StateDB = r.value("db", *db, "QUIZ_STATE_DB", defaultStatePath())

	fraction := r.value("warn", *warn, "QUIZ_WARNING_FRACTION", "")
	cfg.WarningFraction = DefaultWarningFraction
	if fraction != "" {
		f, err := strconv.ParseFloat(fraction, 64)
		if err != nil || f < 0 || f >= 1 {
			return Client{}, errors.Errorf("invalid warning fraction %q: want a number in [0, 1)", fraction)
		}
		cfg.WarningFraction = f
	}

	return cfg, nil
}

// ParseDevServer resolves the dev server settings from args and the
// environment.
func ParseDevServer(args []string, output io.Writer) (DevServer, error) {
	fs := newFlagSet("quiz-devserver", output)
	addr := fs.String("addr", "", "listen address (env QUIZ_DEV_ADDR)")
	db := fs.String("db", "", "sqlite database path (env QUIZ_DEV_DB)")
	secret := fs.String("secret", "", "JWT signing secret (env QUIZ_JWT_SECRET)")
	ttl := fs.String("token-ttl", "", "access token lifetime (env QUIZ_TOKEN_TTL)")
	seed := fs.String("seed", "", "JSON fixture to load at startup (env QUIZ_DEV_SEED)")

	if err := fs.Parse(args); err != nil {
		return DevServer{}, err
	}
	r := resolver{fs: fs}

	var (
		cfg DevServer
		err error
	)
	cfg.Addr = r.value("addr", *addr, "QUIZ_DEV_ADDR", DefaultDevAddr)
	cfg.DB = r.value("db", *db, "QUIZ_DEV_DB", DefaultDevDB)
	cfg.JWTSecret = r.value("secret", *secret, "QUIZ_JWT_SECRET", "")
	if cfg.JWTSecret == "" {
		return DevServer{}, errors.New("JWT secret required (use -secret or QUIZ_JWT_SECRET)")
	}
	if cfg.TokenTTL, err = r.duration("token-ttl", *ttl, "QUIZ_TOKEN_TTL", DefaultTokenTTL); err != nil {
		return DevServer{}, err
	}
	cfg.Seed = r.value("seed", *seed, "QUIZ_DEV_SEED", "")

	return cfg, nil
}

// newFlagSet also exposes the flags registered on flag.CommandLine, which is
// where glog puts -v, -logtostderr and friends.
func newFlagSet(name string, output io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	if output != nil {
		fs.SetOutput(output)
	}
	flag.CommandLine.VisitAll(func(f *flag.Flag) {
		fs.Var(f.Value, f.Name, f.Usage)
	})
	return fs
}

type resolver struct {
	fs  *flag.FlagSet
	set map[string]bool
}

func (r *resolver) value(name, flagValue, env, fallback string) string {
	if r.set == nil {
		r.set = make(map[string]bool)
		r.fs.Visit(func(f *flag.Flag) { r.set[f.Name] = true })
	}
	if r.set[name] {
		return strings.TrimSpace(flagValue)
	}
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		return v
	}
	return fallback
}

func (r *resolver) duration(name, flagValue, env string, fallback time.Duration) (time.Duration, error) {
	raw := r.value(name, flagValue, env, "")
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, errors.Errorf("invalid %s %q: want a positive duration such as 10s", name, raw)
	}
	return d, nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.Errorf("invalid server URL %q", raw)
	}
	return nil
}

func defaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return stateFileName
	}
	return filepath.Join(home, stateFileName)
}
