// Command logwatcher tails configured log files, matches lines
// against regex patterns, and dispatches rate-limited alerts to one
// or more notification channels.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/securityopsai/logwatcher/internal/config"
	"github.com/securityopsai/logwatcher/internal/supervisor"
)

func main() {
	os.Exit(run())
}

func run() int {
	testMode := flag.Bool("test", false, "log matches without delivering notifications")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [--test] <config-path>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		return 1
	}
	configPath := flag.Arg(0)

	logger := log.New(os.Stderr, "logwatcher: ", log.LstdFlags)

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Printf("failed to load config: %v", err)
		return 1
	}

	sup, err := supervisor.New(cfg, logger, *testMode)
	if err != nil {
		logger.Printf("failed to initialize: %v", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sup.Start(ctx); err != nil {
		logger.Printf("failed to start: %v", err)
		return 1
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	logger.Printf("shutting down")

	// Stop drains the queue while ctx is still live; the deferred
	// cancel then aborts whatever is still in flight.
	if err := sup.Stop(); err != nil {
		logger.Printf("shutdown error: %v", err)
		return 1
	}
	return 0
}
