package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/coachwizard/internal/apiclient"
	"github.com/claude/coachwizard/internal/config"
	"github.com/claude/coachwizard/internal/lookup"
	"github.com/claude/coachwizard/internal/server"
	"github.com/claude/coachwizard/internal/storage"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "apply postgres session-store migrations and exit")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	log.Info("coachwizard gateway starting", "version", Version, "backend", cfg.Backend.BaseURL)

	if *migrateOnly {
		if cfg.Store.Driver != config.DriverPostgres {
			log.Error("migrate-only requires the postgres store driver", "driver", cfg.Store.Driver)
			os.Exit(1)
		}
		if err := storage.RunMigrations(cfg.Database.DSN()); err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
		log.Info("migrations applied, exiting")
		return
	}

	// Open session store
	ctx := context.Background()
	factory, closer, err := storage.Open(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open session store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer closer.Close()
	log.Info("session store ready", "driver", cfg.Store.Driver)

	api := apiclient.New(cfg.Backend.BaseURL, cfg.Backend.Timeout)
	srv := server.New(factory, api, lookup.New(api, log), server.Options{
		CookieName:     cfg.Server.CookieName,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		IdleTimeout:    cfg.Server.IdleTimeout,
	}, log)

	evictCtx, stopEvict := context.WithCancel(ctx)
	defer stopEvict()
	go srv.EvictIdle(evictCtx, cfg.Server.IdleTimeout/2)

	listener, cleanup, err := listen(cfg, srv, log)
	if err != nil {
		log.Error("listen failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	httpSrv := &http.Server{Handler: srv}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpSrv.Serve(listener)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("shutting down", "signal", sig)
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}

// listen opens the gateway listener. With Tailscale enabled the gateway joins
// the tailnet as its own node and browsers are identified by tailnet login.
func listen(cfg *config.Config, srv *server.Server, log *slog.Logger) (net.Listener, func(), error) {
	if !cfg.Tailscale.Enabled {
		addr := cfg.Server.Addr()
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return nil, nil, fmt.Errorf("listening on %s: %w", addr, err)
		}
		log.Info("server starting", "addr", addr, "identity", "cookie")
		return ln, func() {}, nil
	}

	ts := &tsnet.Server{
		Hostname: cfg.Tailscale.Hostname,
		Dir:      cfg.Tailscale.StateDir,
	}
	if err := ts.Start(); err != nil {
		return nil, nil, fmt.Errorf("starting tsnet: %w", err)
	}
	lc, err := ts.LocalClient()
	if err != nil {
		ts.Close()
		return nil, nil, fmt.Errorf("tsnet local client: %w", err)
	}
	srv.SetTailscale(lc)

	ln, err := ts.Listen("tcp", ":80")
	if err != nil {
		ts.Close()
		return nil, nil, fmt.Errorf("tsnet listen: %w", err)
	}
	log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname, "identity", "tailnet")
	return ln, func() { ts.Close() }, nil
}
