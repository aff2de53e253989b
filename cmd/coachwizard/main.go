package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/claude/coachwizard/internal/apiclient"
	"github.com/claude/coachwizard/internal/cli"
	"github.com/claude/coachwizard/internal/config"
	"github.com/claude/coachwizard/internal/lookup"
	"github.com/claude/coachwizard/internal/storage"
	"github.com/claude/coachwizard/internal/wizard"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file (defaults apply when empty)")
	version := flag.Bool("version", false, "print version and exit")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: coachwizard [-config path] <command> [flags]\n\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nRun 'coachwizard help' for the list of commands.\n")
	}
	flag.Parse()

	if *version {
		fmt.Println("coachwizard", Version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: loading config: %v\n", err)
		os.Exit(1)
	}

	// Command output goes to stdout; logs stay on stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	factory, closer, err := storage.Open(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open session store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer closer.Close()

	api := apiclient.New(cfg.Backend.BaseURL, cfg.Backend.Timeout)
	ctrl := wizard.New(api, factory.Scope(cfg.Store.Namespace), log)
	app := cli.New(ctrl, lookup.New(api, log), api, os.Stdout, log)

	if err := app.Run(ctx, flag.Args()); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		if !errors.Is(err, cli.ErrUsage) {
			fmt.Fprintln(os.Stderr, cli.Describe(err))
		}
		closer.Close()
		os.Exit(1)
	}
}
