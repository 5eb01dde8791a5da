package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/meltforce/gainslog/internal/app"
	"github.com/meltforce/gainslog/internal/assetcache"
	"github.com/meltforce/gainslog/internal/background"
	"github.com/meltforce/gainslog/internal/channel"
	"github.com/meltforce/gainslog/internal/config"
	"github.com/meltforce/gainslog/internal/mcp"
	"github.com/meltforce/gainslog/internal/server"
	"github.com/meltforce/gainslog/internal/settings"
	"github.com/meltforce/gainslog/internal/storage"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("gainslog", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("GainsLog starting", "version", Version)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	storeCfg := cfg.Database.Store()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open applies pending migrations.
	store := storage.New(storeCfg, log)
	if err := store.Open(ctx); err != nil {
		log.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if *migrateOnly {
		log.Info("migrate-only: exiting")
		return
	}

	prefs, err := settings.Open(cfg.Settings.Path)
	if err != nil {
		log.Error("failed to load settings", "error", err)
		os.Exit(1)
	}

	client := channel.NewClient(cfg.Channel.Timeout, log)
	a := app.New(store, client, prefs, log)

	var (
		origin *url.URL
		assets *assetcache.Controller
	)
	if cfg.Cache.Origin != "" {
		origin, _ = url.Parse(cfg.Cache.Origin) // validated by config.Load
		cacheStore, err := assetcache.OpenSQLiteStorage(cfg.Cache.Path)
		if err != nil {
			log.Error("failed to open asset cache", "error", err)
			os.Exit(1)
		}
		defer cacheStore.Close()

		assets = assetcache.New(cacheStore, assetcache.Options{
			Generation: assetcache.Generation{Prefix: cfg.Cache.Prefix, Version: cfg.Cache.Version},
			Origin:     origin,
			Manifest:   cfg.Cache.Manifest,
		}, log)

		worker := background.New(assets, func(ctx context.Context) error {
			return storage.Drop(ctx, storeCfg)
		}, client, log)
		go worker.Run(ctx)

		// The controller only handles clears once its assets are active;
		// until then clears go straight to the store.
		if err := worker.Start(ctx); err != nil {
			log.Warn("asset cache unavailable, clearing directly", "error", err)
		} else {
			client.Attach(worker)
			log.Info("asset cache active", "generation", assets.Generation().Name())
		}
	}

	if err := a.Init(ctx); err != nil {
		log.Error("failed to load records", "error", err)
		os.Exit(1)
	}

	timer := app.NewRestTimer(app.LogNotifier{Log: log}, log)
	defer timer.Stop()

	srv := server.New(a, timer, cfg.Auth.APIKey, log)
	srv.SetMCP(mcpserver.NewStreamableHTTPServer(mcp.New(mcp.Local{App: a}, Version, log)))
	if assets != nil {
		srv.SetAssets(origin, assets)
	}

	// tsnet or plain HTTP
	var listener net.Listener

	if cfg.Tailscale.Enabled {
		tsServer := &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		lc, err := tsServer.LocalClient()
		if err != nil {
			log.Error("tsnet local client failed", "error", err)
			os.Exit(1)
		}
		srv.SetTailscale(lc)

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}
