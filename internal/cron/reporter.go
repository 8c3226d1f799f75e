// Package cron runs the orchestrator's periodic maintenance jobs. Grounded
// on the teacher's internal/cron.Scheduler: a ticker-driven loop guarded by
// a started flag and a sync.WaitGroup, with cron-expression parsing
// delegated to robfig/cron/v3 (SPEC_FULL.md §11 DOMAIN STACK).
package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/orito-ai/orito-core/internal/circuitbreaker"
)

var exprParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// StatsReporter periodically logs the set of currently-open circuit
// breakers, surfacing a degraded agent type well before an operator would
// otherwise notice it only from a spike in AgentLimitReached errors.
type StatsReporter struct {
	breakers *circuitbreaker.Registry
	logger   *slog.Logger
	schedule cron.Schedule

	mu      sync.Mutex
	started bool
	wg      sync.WaitGroup
}

// NewStatsReporter builds a StatsReporter that reports on the cadence
// described by cronExpr (standard 5-field cron syntax, e.g. "*/5 * * * *"
// or the "@every 1m" descriptor form). logger may be nil.
func NewStatsReporter(breakers *circuitbreaker.Registry, cronExpr string, logger *slog.Logger) (*StatsReporter, error) {
	schedule, err := exprParser.Parse(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid circuit breaker report schedule %q: %w", cronExpr, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StatsReporter{breakers: breakers, schedule: schedule, logger: logger.With("component", "cron")}, nil
}

// Start begins the report loop, sleeping until each scheduled run and
// waking early if ctx is cancelled. It is a no-op if already started.
func (r *StatsReporter) Start(ctx context.Context) {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		now := time.Now()
		for {
			next := r.schedule.Next(now)
			timer := time.NewTimer(next.Sub(now))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case now = <-timer.C:
				r.report()
			}
		}
	}()
}

// Stop blocks until the report loop has exited.
func (r *StatsReporter) Stop() {
	r.wg.Wait()
}

func (r *StatsReporter) report() {
	open := r.breakers.OpenBreakers()
	if len(open) == 0 {
		r.logger.Debug("circuit breaker report", "open_count", 0)
		return
	}
	r.logger.Warn("circuit breakers open", "open_count", len(open), "agent_types", open)
}
