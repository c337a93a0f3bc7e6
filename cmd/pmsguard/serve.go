package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	pmsGuard "github.com/MrEthical07/pmsGuard"
	"github.com/MrEthical07/pmsGuard/internal/httpapi"
	"github.com/MrEthical07/pmsGuard/internal/logger"
	promexport "github.com/MrEthical07/pmsGuard/metrics/export/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type serveOptions struct {
	migrate         bool
	refreshInterval time.Duration
}

func newServeCmd(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, root.configPath, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.migrate, "migrate", true, "apply SQL migrations before serving")
	cmd.Flags().DurationVar(&opts.refreshInterval, "flag-refresh", 30*time.Second, "auth-disabled flag reload interval, 0 to disable")
	return cmd
}

func serve(ctx context.Context, configPath string, opts *serveOptions) error {
	cfg, err := pmsGuard.LoadConfig(configPath)
	if err != nil {
		return err
	}

	logger.Init(logger.Config{Env: cfg.Env, Level: cfg.Log.Level, Service: "pmsguard"})
	defer func() { _ = logger.Sync() }()
	log := logger.L()

	b, err := openBackends(ctx, cfg.Store, opts.migrate, log)
	if err != nil {
		return err
	}
	defer b.Close()

	builder := pmsGuard.New().
		WithConfig(cfg).
		WithStore(b.store).
		WithLogger(logger.Named("engine")).
		WithAuditSink(pmsGuard.NewZapSink(logger.Named("audit")))
	if b.guests != nil {
		builder = builder.
			WithGuestTokenStore(b.guests).
			WithSettingsStore(b.guests).
			WithRedis(b.redis)
	}
	engine, err := builder.Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	disabled := engine.RefreshAuthDisabled(ctx)
	log.Info("engine ready", zap.String("store", cfg.Store.Driver), zap.Bool("auth_disabled", disabled))
	if opts.refreshInterval > 0 {
		go refreshFlag(ctx, engine, opts.refreshInterval)
	}

	var metrics http.Handler
	if cfg.Metrics.Enabled {
		metrics = promexport.Handler(promexport.NewCollector(engine))
	}

	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: httpapi.NewRouter(httpapi.Deps{
			Engine:    engine,
			Logger:    logger.Named("http"),
			Passwords: b.passwords,
			Metrics:   metrics,
			LoginPath: "/login",
		}),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// refreshFlag reloads the auth-disabled flag so changes made by another
// process reach this one.
func refreshFlag(ctx context.Context, engine *pmsGuard.Engine, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			engine.RefreshAuthDisabled(ctx)
		}
	}
}
