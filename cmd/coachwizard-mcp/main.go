package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/coachwizard/internal/apiclient"
	"github.com/claude/coachwizard/internal/config"
	"github.com/claude/coachwizard/internal/lookup"
	"github.com/claude/coachwizard/internal/mcp"
	"github.com/claude/coachwizard/internal/storage"
	"github.com/claude/coachwizard/internal/wizard"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file (defaults apply when empty)")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("coachwizard-mcp", Version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the MCP protocol.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	log.Info("coachwizard MCP server starting", "version", Version, "store", cfg.Store.Driver)

	ctx := context.Background()
	factory, closer, err := storage.Open(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open session store", "error", err)
		os.Exit(1)
	}
	defer closer.Close()

	api := apiclient.New(cfg.Backend.BaseURL, cfg.Backend.Timeout)
	ctrl := wizard.New(api, factory.Scope(cfg.Store.Namespace), log)
	s := mcp.New(ctrl, lookup.New(api, log), api, Version, log)

	if err := server.ServeStdio(s); err != nil {
		log.Error("mcp server stopped", "error", err)
		closer.Close()
		os.Exit(1)
	}
}
