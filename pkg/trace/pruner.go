package trace

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// PrunableStore is a trace backend that supports retention pruning.
type PrunableStore interface {
	Prune(ctx context.Context, before time.Time, maxRecords int64) (int64, error)
}

// PrunerConfig configures trace retention.
type PrunerConfig struct {
	// RetentionDays is the age beyond which records are deleted.
	// Default: 30.
	RetentionDays int

	// MaxRecords caps the total number of records. 0 disables the cap.
	MaxRecords int64

	// Schedule is a cron expression (e.g. "0 3 * * *"). Empty disables
	// scheduled pruning.
	Schedule string
}

// Pruner deletes old trace records on a cron schedule.
type Pruner struct {
	store  PrunableStore
	config PrunerConfig
	cron   *cron.Cron
	logger *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewPruner creates a retention pruner over the given store.
func NewPruner(store PrunableStore, config PrunerConfig) *Pruner {
	if config.RetentionDays <= 0 {
		config.RetentionDays = 30
	}

	return &Pruner{
		store:  store,
		config: config,
		cron:   cron.New(),
		logger: slog.Default().With("component", "trace.pruner"),
	}
}

// Start begins scheduled pruning. An empty schedule is a no-op.
func (p *Pruner) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.config.Schedule == "" {
		p.logger.Info("trace prune schedule not configured, skipping")
		return nil
	}

	if _, err := cron.ParseStandard(p.config.Schedule); err != nil {
		return fmt.Errorf("invalid trace prune schedule %q: %w", p.config.Schedule, err)
	}

	if _, err := p.cron.AddFunc(p.config.Schedule, func() {
		if _, err := p.Prune(ctx); err != nil {
			p.logger.Error("scheduled trace pruning failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule trace pruning: %w", err)
	}

	p.cron.Start()
	p.running = true

	p.logger.Info("trace retention scheduler started",
		"schedule", p.config.Schedule,
		"retention_days", p.config.RetentionDays,
		"max_records", p.config.MaxRecords,
	)

	go func() {
		<-ctx.Done()
		p.Stop()
	}()

	return nil
}

// Prune runs one pruning cycle immediately.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -p.config.RetentionDays)

	deleted, err := p.store.Prune(ctx, cutoff, p.config.MaxRecords)
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		p.logger.Info("pruned trace records", "deleted", deleted, "cutoff", cutoff.Format(time.RFC3339))
	}
	return deleted, nil
}

// Stop halts scheduled pruning.
func (p *Pruner) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		p.cron.Stop()
		p.running = false
	}
}
