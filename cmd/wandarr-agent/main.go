// Package main provides the wandarr agent daemon entry point: a standalone
// process that accepts jobs from a controller over the agent wire protocol
// and drives the local encoder on its behalf.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/mlsmithjr/wandarr-go/internal/agent"
	"github.com/mlsmithjr/wandarr-go/internal/logging"
)

const appName = "wandarr-agent"

func main() {
	var (
		port    int
		logDir  string
		verbose bool
		noLog   bool
	)
	flag.IntVar(&port, "port", agent.DefaultPort, "Port to listen on")
	flag.StringVar(&logDir, "log-dir", "", "Log directory (defaults to ~/.local/state/wandarr/logs)")
	flag.BoolVar(&verbose, "verbose", false, "Enable verbose output")
	flag.BoolVar(&noLog, "no-log", false, "Disable run log file creation")
	flag.Parse()

	if logDir == "" {
		logDir = logging.DefaultLogDir()
	}
	logger, err := logging.Setup(logDir, verbose, noLog, os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to setup logging: %v\n", err)
		os.Exit(1)
	}
	if logger != nil {
		defer func() { _ = logger.Close() }()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Warn().Msg("interrupt received, shutting down")
		cancel()
	}()

	addr := ":" + strconv.Itoa(port)
	srv := agent.NewServer(addr, logger.Logger)
	logger.Info().Str("addr", addr).Msg(appName + " listening")

	if err := srv.ListenAndServe(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
