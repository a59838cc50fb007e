package devserver

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"k8s.io/utils/clock"

	"quiz-client/internal/config"
	"quiz-client/internal/opentdb"
)

const (
	shutdownTimeout = 5 * time.Second
	triviaTimeout   = 10 * time.Second
)

// Run serves the API until ctx is cancelled.
func Run(ctx context.Context, cfg config.DevServer) error {
	store, err := NewStore(cfg.DB)
	if err != nil {
		return err
	}
	defer store.Close()

	clk := clock.RealClock{}
	if cfg.Seed != "" {
		fixture, err := LoadFixtureFile(cfg.Seed)
		if err != nil {
			return err
		}
		trivia := opentdb.NewClient(&http.Client{Timeout: triviaTimeout})
		if err := Seed(ctx, store, fixture, clk.Now(), trivia); err != nil {
			return err
		}
	}

	api := NewAPI(store, NewTokens(cfg.JWTSecret, cfg.TokenTTL, clk), WithClock(clk))
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(api, glogWriter{}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		glog.Infof("quiz dev server listening on %s (db %s)", cfg.Addr, cfg.DB)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "serve")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// glogWriter sends access log lines to glog.
type glogWriter struct{}

func (glogWriter) Write(p []byte) (int, error) {
	glog.Info(string(bytes.TrimRight(p, "\n")))
	return len(p), nil
}
