package scorm

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"scormhub/internal/pkg/storage"
)

// CleanupConfig holds configuration for storage cleanup
type CleanupConfig struct {
	Interval    time.Duration // how often pending prefixes are retried (default: 30s)
	BaseBackoff time.Duration // first retry delay, doubled per failure (default: 5s)
	MaxBackoff  time.Duration // retry delay ceiling (default: 10m)
	MaxAttempts int           // give up after N failures (default: 10)
	OrphanGrace time.Duration // orphan sweep ignores prefixes written more recently (default: 1h)
}

// DefaultCleanupConfig returns default cleanup configuration
func DefaultCleanupConfig() CleanupConfig {
	return CleanupConfig{
		Interval:    30 * time.Second,
		BaseBackoff: 5 * time.Second,
		MaxBackoff:  10 * time.Minute,
		MaxAttempts: 10,
		OrphanGrace: time.Hour,
	}
}

type cleanupJob struct {
	prefix   string
	reason   string
	failures int
	nextAt   time.Time
}

// Cleaner deletes storage prefixes that no package record references any
// more: files of failed uploads and of deleted packages. Failed deletions are
// retried with exponential backoff.
type Cleaner struct {
	store storage.ObjectStore
	cfg   CleanupConfig
	log   zerolog.Logger
	now   func() time.Time

	mu      sync.Mutex
	pending map[string]*cleanupJob
	wake    chan struct{}
}

func NewCleaner(store storage.ObjectStore, cfg CleanupConfig, log zerolog.Logger) *Cleaner {
	def := DefaultCleanupConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = def.BaseBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.OrphanGrace <= 0 {
		cfg.OrphanGrace = def.OrphanGrace
	}
	return &Cleaner{
		store:   store,
		cfg:     cfg,
		log:     log.With().Str("component", "storage_cleanup").Logger(),
		now:     time.Now,
		pending: make(map[string]*cleanupJob),
		wake:    make(chan struct{}, 1),
	}
}

// Enqueue schedules prefix for deletion as soon as the worker runs.
func (c *Cleaner) Enqueue(prefix, reason string) {
	c.mu.Lock()
	if job, ok := c.pending[prefix]; ok {
		job.nextAt = c.now()
	} else {
		c.pending[prefix] = &cleanupJob{prefix: prefix, reason: reason, nextAt: c.now()}
	}
	c.mu.Unlock()

	c.log.Warn().Str("prefix", prefix).Str("reason", reason).Msg("storage prefix queued for cleanup")

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Pending lists queued prefixes in lexical order.
func (c *Cleaner) Pending() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.pending))
	for p := range c.pending {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// RunOnce processes every job that is due and returns how many prefixes were
// removed.
func (c *Cleaner) RunOnce(ctx context.Context) int {
	now := c.now()
	c.mu.Lock()
	due := make([]*cleanupJob, 0, len(c.pending))
	for _, job := range c.pending {
		if !job.nextAt.After(now) {
			due = append(due, job)
		}
	}
	c.mu.Unlock()

	done := 0
	for _, job := range due {
		if ctx.Err() != nil {
			break
		}
		n, err := c.store.DeletePrefix(ctx, job.prefix)

		c.mu.Lock()
		if err == nil {
			delete(c.pending, job.prefix)
			c.mu.Unlock()
			done++
			c.log.Info().Str("prefix", job.prefix).Int("objects", n).Str("reason", job.reason).Msg("storage prefix removed")
			continue
		}

		job.failures++
		if job.failures >= c.cfg.MaxAttempts {
			delete(c.pending, job.prefix)
			c.mu.Unlock()
			c.log.Error().Err(err).Str("prefix", job.prefix).Int("failures", job.failures).
				Msg("giving up on storage cleanup; prefix left orphaned")
			continue
		}
		job.nextAt = c.now().Add(c.backoff(job.failures))
		c.mu.Unlock()
		c.log.Warn().Err(err).Str("prefix", job.prefix).Int("failures", job.failures).
			Time("retry_at", job.nextAt).Msg("storage cleanup failed")
	}
	return done
}

func (c *Cleaner) backoff(failures int) time.Duration {
	d := c.cfg.BaseBackoff
	for i := 1; i < failures; i++ {
		d *= 2
		if d >= c.cfg.MaxBackoff {
			return c.cfg.MaxBackoff
		}
	}
	return d
}

// Start runs the worker until ctx is done or the returned channel is closed.
func (c *Cleaner) Start(ctx context.Context) chan struct{} {
	stopCh := make(chan struct{})

	go func() {
		ticker := time.NewTicker(c.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.RunOnce(ctx)
			case <-c.wake:
				c.RunOnce(ctx)
			case <-stopCh:
				c.log.Info().Msg("storage cleanup stopped")
				return
			case <-ctx.Done():
				c.log.Info().Msg("storage cleanup stopped (context done)")
				return
			}
		}
	}()

	c.log.Info().Dur("interval", c.cfg.Interval).Msg("storage cleanup started")
	return stopCh
}

// SweepOrphans queues every package prefix in the store that has no package
// record and has not been written to within the grace period, then processes
// the queue once. It returns the number of orphan prefixes found.
func (c *Cleaner) SweepOrphans(ctx context.Context, repo PackageRepository) (int, error) {
	objs, err := c.store.List(ctx, "")
	if err != nil {
		return 0, err
	}
	known, err := repo.StoragePaths(ctx)
	if err != nil {
		return 0, err
	}

	newest := make(map[string]time.Time)
	for _, o := range objs {
		parts := strings.SplitN(o.Key, "/", 3)
		if len(parts) < 3 {
			continue
		}
		prefix := parts[0] + "/" + parts[1]
		if t, seen := newest[prefix]; !seen || o.LastModified.After(t) {
			newest[prefix] = o.LastModified
		}
	}

	cutoff := c.now().Add(-c.cfg.OrphanGrace)
	orphans := 0
	for prefix, modified := range newest {
		if known[prefix] || modified.After(cutoff) {
			continue
		}
		c.Enqueue(prefix, "orphan sweep")
		orphans++
	}
	c.RunOnce(ctx)
	return orphans, nil
}
