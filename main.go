// File: main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"mathCaptcha/internal/captcha"
	"mathCaptcha/internal/config"
	"mathCaptcha/internal/log"
	"mathCaptcha/internal/metrics"
	"mathCaptcha/internal/session"
)

// Build information, set via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "mathcaptcha",
		Usage: "Arithmetic captcha image service",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Start the HTTP server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to YAML configuration file",
					},
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address, overrides server.addr",
					},
				},
				Action: serve,
			},
			{
				Name:  "version",
				Usage: "Show version information",
				Action: func(c *cli.Context) error {
					fmt.Fprintf(c.App.Writer, "mathcaptcha %s (commit: %s)\n", version, commit)
					return nil
				},
			},
		},
	}
}

func serve(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if addr := c.String("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	logOpts := log.Options{Level: cfg.Log.Level, Format: cfg.Log.Format}
	logger := log.New("server", logOpts)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeStore()

	font, err := captcha.LoadFont(cfg.Captcha.RootDir, cfg.Captcha.FontPath)
	if err != nil {
		return fmt.Errorf("load font: %w", err)
	}
	svc, err := captcha.New(store,
		captcha.WithFont(font),
		captcha.WithTTL(cfg.Captcha.TTL),
		captcha.WithJPEGQuality(cfg.Captcha.JPEGQuality),
	)
	if err != nil {
		return fmt.Errorf("init captcha: %w", err)
	}

	if mem, ok := store.(*session.MemoryStore); ok {
		go sweep(ctx, mem, cfg.Store.SweepInterval, log.New("store", logOpts))
	}

	s := &server{
		svc:        svc,
		logger:     log.New("http", logOpts),
		cookieName: cfg.Captcha.CookieName,
	}
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      s.routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Info().
		Str("address", cfg.Server.Addr).
		Str("store", cfg.Store.Driver).
		Str("version", version).
		Msg("started server")

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config) (captcha.Store, func() error, error) {
	switch cfg.Store.Driver {
	case config.DriverRedis:
		client, err := session.Dial(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		return session.NewRedisStore(client, cfg.Redis.Prefix), client.Close, nil
	default:
		return session.NewMemoryStore(), func() error { return nil }, nil
	}
}

// sweep drops expired answers from the in-memory store until ctx is done.
func sweep(ctx context.Context, store *session.MemoryStore, every time.Duration, logger zerolog.Logger) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := store.Sweep(); n > 0 {
				metrics.StoreSweptTotal.Add(float64(n))
				logger.Debug().Int("removed", n).Int("remaining", store.Len()).Msg("swept expired answers")
			}
		}
	}
}
