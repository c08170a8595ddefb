// Package jobs runs the recurring background work: allowance payouts, price
// simulation ticks, and the mission expiry sweep. All three are catch-up
// style, so a missed run is made up by the next one.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/moneynplay/engine/internal/allowance"
	"github.com/moneynplay/engine/internal/config"
	"github.com/moneynplay/engine/internal/invest"
	"github.com/moneynplay/engine/internal/mission"
)

// Scheduler owns the cron runner.
type Scheduler struct {
	cron *cron.Cron
}

// New wires the three recurring jobs using the schedules from config.
func New(cfg *config.Config, allowances *allowance.Service, investments *invest.Service, missions *mission.Service) (*Scheduler, error) {
	c := cron.New()

	if _, err := c.AddFunc(cfg.AllowanceSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := allowances.RunDue(ctx, time.Now().UTC()); err != nil {
			slog.Error("allowance run failed", "err", err)
		}
	}); err != nil {
		return nil, err
	}

	if _, err := c.AddFunc(cfg.PriceTickSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := investments.AdvancePrices(ctx, time.Now().UTC()); err != nil {
			slog.Error("price tick failed", "err", err)
		}
	}); err != nil {
		return nil, err
	}

	if _, err := c.AddFunc(cfg.MissionSweepCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := missions.ExpireOverdue(ctx, time.Now().UTC()); err != nil {
			slog.Error("mission sweep failed", "err", err)
		}
	}); err != nil {
		return nil, err
	}

	return &Scheduler{cron: c}, nil
}

// Start launches the cron runner in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("scheduler started")
}

// Stop halts scheduling and waits for in-flight jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	slog.Info("scheduler stopped")
}
