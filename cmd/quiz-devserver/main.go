package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"

	"quiz-client/internal/config"
	"quiz-client/internal/devserver"
)

func main() {
	if err := config.LoadDotEnv(""); err != nil {
		glog.Fatal(err)
	}

	cfg, err := config.ParseDevServer(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		glog.Exitf("%v", err)
	}
	_ = flag.CommandLine.Parse(nil)
	defer glog.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := devserver.Run(ctx, cfg); err != nil {
		glog.Fatal(err)
	}
	glog.Info("quiz dev server stopped")
}
