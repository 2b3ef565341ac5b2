// File: internal/mission/mission.go

// Package mission orchestrates one full sweep cycle: surveillance,
// aggregation, and per-offender judgment. Sweeps run to completion,
// strictly sequentially; the daemon loop never overlaps them.
package mission

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/method-and-apparatus/open-jaws/api/schemas"
	"github.com/method-and-apparatus/open-jaws/internal/config"
	"github.com/method-and-apparatus/open-jaws/internal/enforcer"
	"github.com/method-and-apparatus/open-jaws/internal/sentinel"
)

// Control wires the sweep pipeline together.
type Control struct {
	cfg     config.MissionConfig
	sweeper *sentinel.Sweeper
	engine  *enforcer.Engine
	log     *zap.Logger
}

// New builds a Control.
func New(cfg config.MissionConfig, sweeper *sentinel.Sweeper, engine *enforcer.Engine, logger *zap.Logger) *Control {
	return &Control{
		cfg:     cfg,
		sweeper: sweeper,
		engine:  engine,
		log:     logger.Named("mission"),
	}
}

// RunSweep executes a single sweep of the timeline and returns the number
// of targets neutralized. A failed or empty timeline fetch means "no data
// this cycle": the sweep completes cleanly with zero actions.
func (c *Control) RunSweep(ctx context.Context) (int, error) {
	sweepID := uuid.NewString()

	mode := "LIVE"
	if c.cfg.DryRun {
		mode = "RECONNAISSANCE"
	}
	c.log.Info("Sweep initiated",
		zap.String("sweep_id", sweepID),
		zap.String("mode", mode),
		zap.Int("strike_threshold", c.cfg.StrikeThreshold),
	)

	maxResults := c.cfg.MaxTimelineResults
	if maxResults > config.PlatformPageLimit {
		maxResults = config.PlatformPageLimit
	}

	suspects, err := c.sweeper.SweepTimeline(ctx, maxResults, c.cfg.LookbackWindow)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return 0, err
		}
		c.log.Warn("Timeline fetch failed, no data this cycle", zap.Error(err))
		return 0, nil
	}

	c.log.Info("Sentinel report", zap.Int("suspect_posts", len(suspects)))
	if len(suspects) == 0 {
		c.log.Info("Timeline clear. No engagement bait detected.")
		return 0, nil
	}

	targets := sentinel.IdentifyRepeatOffenders(suspects, c.cfg.StrikeThreshold)
	c.log.Info("Repeat offenders identified", zap.Int("targets", len(targets)))
	if len(targets) == 0 {
		c.log.Info("No targets exceeded the strike threshold. Watching.",
			zap.Int("strike_threshold", c.cfg.StrikeThreshold))
		return 0, nil
	}

	neutralized := 0
	for authorID, group := range targets {
		report := c.engine.ExecuteTermination(ctx, enforcer.Target{
			UserID:  authorID,
			Handle:  group[0].AuthorHandle,
			Strikes: len(group),
			SweepID: sweepID,
		})
		if report.Status == schemas.StatusNeutralized {
			neutralized++
		}
	}

	c.log.Info("Sweep complete",
		zap.String("sweep_id", sweepID),
		zap.Int("neutralized", neutralized),
	)
	return neutralized, nil
}

// RunDaemon loops single sweeps at the configured interval. Cancellation is
// honored between sweeps: the in-flight sweep finishes first, then the loop
// exits cleanly.
func (c *Control) RunDaemon(ctx context.Context) error {
	c.log.Info("Daemon mode engaged",
		zap.Duration("sweep_interval", c.cfg.SweepInterval))

	for {
		if _, err := c.RunSweep(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.log.Info("Mission recalled. Standing down.")
				return nil
			}
			// Sweep-level errors are unexpected; log and keep the watch.
			c.log.Error("Sweep failed", zap.Error(err))
		}

		c.log.Info("Next sweep scheduled",
			zap.Duration("sweep_interval", c.cfg.SweepInterval))

		timer := time.NewTimer(c.cfg.SweepInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			c.log.Info("Mission recalled. Standing down.")
			return nil
		case <-timer.C:
		}
	}
}
