package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"docent/internal/config"
	"docent/internal/logging"
	"docent/internal/metrics"
	"docent/internal/notifications"
	"docent/internal/registry"
	"docent/internal/resolution"
	"docent/internal/services/llm"
	"docent/internal/textutil"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configSeen bool
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configSeen = exists
	})
	return c.config, c.configErr
}

// cliLogger sends diagnostics to stderr so stdout stays parseable.
func (c *commandContext) cliLogger(cmd *cobra.Command) *slog.Logger {
	cfg, err := c.ensureConfig()
	if err != nil {
		return logging.NewNop()
	}
	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Writer: cmd.ErrOrStderr(),
	})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

func (c *commandContext) withStore(fn func(*config.Config, *registry.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := registry.Open(cfg.RegistryPath())
	if err != nil {
		return fmt.Errorf("open registry: %w", err)
	}
	defer store.Close()
	return fn(cfg, store)
}

func newResolver(cfg *config.Config) resolution.Resolver {
	return resolution.NewResolver(newMatcher(cfg))
}

func newMatcher(cfg *config.Config) registry.Matcher {
	scorer := textutil.NewScorer(textutil.NewTokenizer(cfg.Matching.Stopwords))
	return registry.NewMatcher(scorer, cfg.Matching.Threshold)
}

func newVisionClient(cfg *config.Config) *llm.Client {
	settings := cfg.GetLLM()
	return llm.NewClient(llm.Config{
		APIKey:         settings.APIKey,
		BaseURL:        settings.BaseURL,
		Model:          settings.Model,
		Referer:        settings.Referer,
		Title:          settings.Title,
		TimeoutSeconds: settings.TimeoutSeconds,
	})
}

func newService(cfg *config.Config, store *registry.Store, logger *slog.Logger, m *metrics.Metrics) *resolution.Service {
	snapshots := registry.NewSnapshotter(store, cfg.Registry.SampleFallback)
	return resolution.NewService(newResolver(cfg), newVisionClient(cfg), snapshots, logger, m)
}

func newNotifier(cfg *config.Config) notifications.Notifier {
	return notifications.New(notifications.Options{
		Topic:    cfg.Notifications.NtfyTopic,
		Timeout:  cfg.NotifyTimeout(),
		Cooldown: cfg.NotifyCooldown(),
	})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
