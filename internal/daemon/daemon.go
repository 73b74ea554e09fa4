package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"docent/internal/logging"
	"docent/internal/registry"
)

// ErrAlreadyRunning is returned when another server holds the lock.
var ErrAlreadyRunning = errors.New("another docent server is already running")

// Server is the HTTP surface run by the daemon.
type Server interface {
	Run(ctx context.Context) error
}

// Source fetches a fresh copy of the registry.
type Source interface {
	Fetch(ctx context.Context) ([]registry.Entry, error)
}

// Replacer swaps the stored registry contents.
type Replacer interface {
	ReplaceAll(ctx context.Context, entries []registry.Entry) error
}

// SyncAlerter is told when a periodic sync fails.
type SyncAlerter interface {
	NotifyRegistrySyncFailed(ctx context.Context, cause error) error
}

// Options configures a Daemon.
type Options struct {
	LockPath string
	Server   Server
	// Source and Store enable periodic sync when SyncInterval > 0.
	Source       Source
	Store        Replacer
	SyncInterval time.Duration
	Alerter      SyncAlerter
	Logger       *slog.Logger
}

// Daemon runs the server and background sync while holding the instance lock.
type Daemon struct {
	lockPath     string
	lock         *flock.Flock
	server       Server
	source       Source
	store        Replacer
	syncInterval time.Duration
	alerter      SyncAlerter
	logger       *slog.Logger

	running atomic.Bool
}

// New constructs a daemon.
func New(opts Options) (*Daemon, error) {
	if opts.LockPath == "" || opts.Server == nil {
		return nil, errors.New("daemon requires lock path and server")
	}
	if opts.SyncInterval > 0 && (opts.Source == nil || opts.Store == nil) {
		return nil, errors.New("daemon sync requires source and store")
	}
	return &Daemon{
		lockPath:     opts.LockPath,
		lock:         flock.New(opts.LockPath),
		server:       opts.Server,
		source:       opts.Source,
		store:        opts.Store,
		syncInterval: opts.SyncInterval,
		alerter:      opts.Alerter,
		logger:       logging.NewComponentLogger(opts.Logger, "daemon"),
	}, nil
}

// Running reports whether Run is active.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Run acquires the lock and blocks until ctx is cancelled or a component fails.
func (d *Daemon) Run(ctx context.Context) error {
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", d.lockPath, err)
	}
	if !ok {
		return fmt.Errorf("%w (lock %s)", ErrAlreadyRunning, d.lockPath)
	}
	d.running.Store(true)
	defer func() {
		d.running.Store(false)
		if err := d.lock.Unlock(); err != nil {
			d.logger.Warn("failed to release daemon lock", logging.Error(err))
		}
		d.logger.Info("docent daemon stopped")
	}()
	d.logger.Info("docent daemon started",
		logging.String("lock", d.lockPath),
		logging.Duration("sync_interval", d.syncInterval),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return d.server.Run(gctx)
	})
	if d.syncInterval > 0 {
		g.Go(func() error {
			d.syncLoop(gctx)
			return nil
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (d *Daemon) syncLoop(ctx context.Context) {
	ticker := time.NewTicker(d.syncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.syncOnce(ctx)
		}
	}
}

// errEmptySheet reports a sheet fetch that parsed to zero artifacts.
var errEmptySheet = errors.New("sheet returned no artifacts")

// syncOnce keeps the previous registry when the sheet is unreachable or empty.
func (d *Daemon) syncOnce(ctx context.Context) {
	entries, err := d.source.Fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logging.WarnWithContext(d.logger, "registry sync failed", "registry_sync_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check registry.sheet_url is a published CSV export"),
			logging.String(logging.FieldImpact, "previous registry kept"),
		)
		d.alertSyncFailure(ctx, err)
		return
	}
	if len(entries) == 0 {
		logging.WarnWithContext(d.logger, "registry sync returned no rows", "registry_sync_empty",
			logging.String(logging.FieldImpact, "previous registry kept"),
		)
		d.alertSyncFailure(ctx, errEmptySheet)
		return
	}
	if err := d.store.ReplaceAll(ctx, entries); err != nil {
		logging.WarnWithContext(d.logger, "registry sync write failed", "registry_sync_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "previous registry kept"),
		)
		d.alertSyncFailure(ctx, err)
		return
	}
	d.logger.Info("registry synced", logging.Int("artifacts", len(entries)))
}

func (d *Daemon) alertSyncFailure(ctx context.Context, cause error) {
	if d.alerter == nil {
		return
	}
	if err := d.alerter.NotifyRegistrySyncFailed(ctx, cause); err != nil {
		d.logger.Warn("operator alert failed", logging.String("alert", "registry_sync"), logging.Error(err))
	}
}
