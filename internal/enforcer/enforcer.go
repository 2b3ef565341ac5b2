// File: internal/enforcer/enforcer.go

// Package enforcer is the closer: it weighs the dossier, executes the mute,
// files the communique, and documents every operation in the mission log.
package enforcer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/method-and-apparatus/open-jaws/api/schemas"
	"github.com/method-and-apparatus/open-jaws/internal/communique"
	"github.com/method-and-apparatus/open-jaws/internal/config"
	"github.com/method-and-apparatus/open-jaws/internal/dossier"
)

// spareThreshold is the fulfillment rate at which a target is spared.
const spareThreshold = 0.5

// Target identifies one repeat offender queued for judgment.
type Target struct {
	UserID  string
	Handle  string
	Strikes int
	SweepID string
}

// Engine applies the decision policy to one target per invocation. Side
// effects per call: at most one mute, at most one announcement post, and
// exactly one audit append.
type Engine struct {
	writer   schemas.PlatformWriter
	dossiers *dossier.Builder
	composer *communique.Composer
	audit    schemas.AuditSink
	cfg      config.MissionConfig
	log      *zap.Logger
	now      func() time.Time
}

// New wires up an Engine.
func New(
	writer schemas.PlatformWriter,
	dossiers *dossier.Builder,
	composer *communique.Composer,
	audit schemas.AuditSink,
	cfg config.MissionConfig,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		writer:   writer,
		dossiers: dossiers,
		composer: composer,
		audit:    audit,
		cfg:      cfg,
		log:      logger.Named("enforcer"),
		now:      time.Now,
	}
}

// ExecuteTermination compiles the dossier, evaluates it, and carries out
// the verdict. A platform write failure is a terminal FAILED outcome for
// this sweep, not an error; the target stays eligible next sweep.
func (e *Engine) ExecuteTermination(ctx context.Context, target Target) schemas.MissionReport {
	e.log.Info("Mission briefing",
		zap.String("target", target.Handle),
		zap.Int("strikes", target.Strikes),
	)

	maxPosts := clampPageSize(e.cfg.MaxDossierPosts)
	intel := e.dossiers.Compile(ctx, target.UserID, target.Handle, maxPosts)
	e.log.Info("Dossier compiled",
		zap.String("target", target.Handle),
		zap.Int("bait_posts", intel.BaitPosts),
		zap.String("fulfillment_rate", intel.RatePercent()),
	)

	// Even the enforcer has standards.
	if intel.FulfillmentRate >= spareThreshold {
		e.log.Info("Stood down, target shows acceptable follow-through",
			zap.String("target", target.Handle),
			zap.String("fulfillment_rate", intel.RatePercent()),
		)
		return e.file(ctx, target, intel, schemas.ActionSpared, "")
	}

	var action schemas.Action
	switch {
	case e.cfg.DryRun:
		e.log.Info("Dry run, target would be muted", zap.String("target", target.Handle))
		action = schemas.ActionDryRun
	default:
		if err := e.writer.MuteUser(ctx, target.UserID); err != nil {
			e.log.Error("Mission failure, could not mute target",
				zap.String("target", target.Handle),
				zap.Error(err),
			)
			action = schemas.ActionFailed
		} else {
			e.log.Info("Target muted", zap.String("target", target.Handle))
			action = schemas.ActionMuted
		}
	}

	communiqueID := ""
	if action == schemas.ActionMuted && e.cfg.PostAnnouncements {
		communiqueID = e.postCommunique(ctx, intel)
	}

	return e.file(ctx, target, intel, action, communiqueID)
}

// postCommunique publishes the announcement. Failure leaves the mute
// outcome untouched; the report simply carries no post ID.
func (e *Engine) postCommunique(ctx context.Context, intel dossier.TargetIntel) string {
	text := e.composer.Compose(intel)
	postID, err := e.writer.PostMessage(ctx, text)
	if err != nil {
		e.log.Error("Communique failed", zap.Error(err))
		return ""
	}
	e.log.Info("Communique filed", zap.String("post_id", postID))
	return postID
}

// file builds the report and appends it to the mission log, exactly once.
func (e *Engine) file(ctx context.Context, target Target, intel dossier.TargetIntel, action schemas.Action, communiqueID string) schemas.MissionReport {
	report := schemas.MissionReport{
		ReportID:         uuid.NewString(),
		SweepID:          target.SweepID,
		Timestamp:        e.now().UTC(),
		Target:           intel.Handle,
		TargetID:         intel.UserID,
		OffenseCount:     intel.BaitPosts,
		PromisesMade:     intel.BaitPosts,
		PromisesKept:     intel.PromisesKept(),
		FulfillmentRate:  intel.RatePercent(),
		Verdict:          intel.Verdict(),
		Action:           action,
		CommuniquePostID: communiqueID,
		Status:           schemas.StatusForAction(action),
	}

	if err := e.audit.Append(ctx, report); err != nil {
		e.log.Error("Failed to append mission report",
			zap.String("target", report.Target),
			zap.Error(err),
		)
	}
	return report
}

// clampPageSize caps a configured sample size at the platform page limit.
func clampPageSize(n int) int {
	if n > config.PlatformPageLimit {
		return config.PlatformPageLimit
	}
	return n
}
