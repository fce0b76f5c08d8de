// Package app assembles the pipeline and runs it: an HTTP intake
// surface, an optional inbox watcher, a cycle scheduler that drains the
// queue through decision and risk, and a monitor scheduler for open
// positions.
package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/liorsolomon/ai-options-trading-bot/internal/config"
	"github.com/liorsolomon/ai-options-trading-bot/internal/decision"
	"github.com/liorsolomon/ai-options-trading-bot/internal/ingest"
	"github.com/liorsolomon/ai-options-trading-bot/internal/logger"
	"github.com/liorsolomon/ai-options-trading-bot/internal/market"
	"github.com/liorsolomon/ai-options-trading-bot/internal/position"
	"github.com/liorsolomon/ai-options-trading-bot/internal/risk"
	"github.com/liorsolomon/ai-options-trading-bot/internal/scheduler"
	"github.com/liorsolomon/ai-options-trading-bot/internal/store"
	apihttp "github.com/liorsolomon/ai-options-trading-bot/internal/transport/http"
)

type App struct {
	cfg        *config.Config
	queue      *ingest.Queue
	chatSource *ingest.ChatSource
	subSource  *ingest.SubmissionSource
	scanner    *market.TechnicalScanner
	engine     *decision.Engine
	gate       *risk.Gate
	tracker    *position.Tracker
	audit      *store.Audit
	events     *store.EventLog
	httpSrv    *apihttp.Server
	inbox      *ingest.Inbox
}

func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return build(cfg)
}

// Run blocks until ctx is cancelled or a component fails.
func (a *App) Run(ctx context.Context) error {
	cycleInterval, ok := scheduler.ParseIntervalDuration(a.cfg.Pipeline.CycleInterval)
	if !ok {
		return fmt.Errorf("invalid pipeline.cycle_interval %q", a.cfg.Pipeline.CycleInterval)
	}
	monitorInterval, ok := scheduler.ParseIntervalDuration(a.cfg.Pipeline.MonitorInterval)
	if !ok {
		return fmt.Errorf("invalid pipeline.monitor_interval %q", a.cfg.Pipeline.MonitorInterval)
	}

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return a.httpSrv.Start(ctx)
	})

	if a.inbox != nil {
		group.Go(func() error {
			err := a.inbox.Start(ctx)
			if err == context.Canceled {
				return nil
			}
			return err
		})
	}

	group.Go(func() error {
		sched := scheduler.NewAlignedScheduler(ctx, cycleInterval,
			secondsDuration(a.cfg.Pipeline.CycleOffsetSeconds))
		sched.RunImmediately = a.cfg.Pipeline.RunImmediately
		sched.Start(func() { a.runCycle(ctx) })
		return nil
	})

	group.Go(func() error {
		sched := scheduler.NewAlignedScheduler(ctx, monitorInterval, 0)
		sched.Start(func() {
			if err := a.tracker.MonitorOnce(ctx); err != nil && ctx.Err() == nil {
				logger.Warnf("position monitor: %v", err)
			}
		})
		return nil
	})

	err := group.Wait()
	a.Close()
	if err == context.Canceled {
		return nil
	}
	return err
}

func secondsDuration(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func (a *App) Close() {
	if a.audit != nil {
		if err := a.audit.Close(); err != nil {
			logger.Warnf("close audit store: %v", err)
		}
	}
	if a.events != nil {
		if err := a.events.Close(); err != nil {
			logger.Warnf("close event log: %v", err)
		}
	}
}
