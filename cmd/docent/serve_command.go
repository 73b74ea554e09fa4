package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"docent/internal/api"
	"docent/internal/daemon"
	"docent/internal/logging"
	"docent/internal/metrics"
	"docent/internal/preflight"
	"docent/internal/registry"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bindFlag string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if bind := strings.TrimSpace(bindFlag); bind != "" {
				cfg.Server.Bind = bind
			}

			logger, err := logging.NewForServer(cfg.Logging.Level, cfg.Logging.Format, cfg.LogPath())
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			if err := cfg.RequireLLM(); err != nil {
				logging.WarnWithContext(logger, "vision model not configured", "llm_unconfigured",
					logging.String(logging.FieldErrorHint, err.Error()),
					logging.String(logging.FieldImpact, "/api/analyze will fail; /api/resolve still works"),
				)
			}
			if cfg.Server.APIToken == "" && !loopbackBind(cfg.Server.Bind) {
				logging.WarnWithContext(logger, "registry writes are unauthenticated", "api_token_missing",
					logging.String("bind", cfg.Server.Bind),
					logging.String(logging.FieldErrorHint, "set server.api_token or DOCENT_API_TOKEN"),
					logging.String(logging.FieldImpact, "anyone who can reach the server can edit the registry"),
				)
			}

			for _, check := range preflight.Failed(preflight.RunLocal(cfg)) {
				logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
					logging.String("check", check.Name),
					logging.String("detail", check.Detail),
					logging.String(logging.FieldImpact, "registry writes may fail"),
				)
			}

			store, err := registry.Open(cfg.RegistryPath())
			if err != nil {
				return fmt.Errorf("open registry: %w", err)
			}
			defer store.Close()

			m := metrics.New()
			notifier := newNotifier(cfg)
			svc := newService(cfg, store, logger, m)
			svc.SetAlerter(notifier)
			handler := api.NewHandler(api.Options{
				Resolver: svc,
				Store:    store,
				Metrics:  m,
				Logger:   logger,
				APIToken: cfg.Server.APIToken,
			})
			timeout := time.Duration(cfg.LLM.TimeoutSeconds) * time.Second
			server := api.NewServer(cfg.Server.Bind, handler, timeout, logger)

			opts := daemon.Options{
				LockPath: cfg.LockPath(),
				Server:   server,
				Logger:   logger,
			}
			if interval := cfg.SyncInterval(); interval > 0 {
				opts.Source = registry.NewSheetSource(cfg.Registry.SheetURL, nil)
				opts.Store = store
				opts.SyncInterval = interval
				opts.Alerter = notifier
			}
			d, err := daemon.New(opts)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			logger.Info("docent serving",
				logging.String("bind", cfg.Server.Bind),
				logging.String("config", ctx.configPath),
				logging.String("registry", store.Path()),
				logging.Float64("threshold", cfg.Matching.Threshold),
			)
			if err := d.Run(runCtx); err != nil && runCtx.Err() == nil {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&bindFlag, "bind", "", "Override server.bind (host:port)")
	return cmd
}

func loopbackBind(bind string) bool {
	host := bind
	if idx := strings.LastIndex(bind, ":"); idx >= 0 {
		host = bind[:idx]
	}
	host = strings.Trim(host, "[]")
	switch host {
	case "127.0.0.1", "localhost", "::1":
		return true
	}
	return false
}
