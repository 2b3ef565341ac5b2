// File: cmd/components.go
package cmd

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/method-and-apparatus/open-jaws/api/schemas"
	"github.com/method-and-apparatus/open-jaws/internal/auditlog"
	"github.com/method-and-apparatus/open-jaws/internal/bluesky"
	"github.com/method-and-apparatus/open-jaws/internal/communique"
	"github.com/method-and-apparatus/open-jaws/internal/config"
	"github.com/method-and-apparatus/open-jaws/internal/dossier"
	"github.com/method-and-apparatus/open-jaws/internal/enforcer"
	"github.com/method-and-apparatus/open-jaws/internal/llmclient"
	"github.com/method-and-apparatus/open-jaws/internal/mission"
	"github.com/method-and-apparatus/open-jaws/internal/qbranch"
	"github.com/method-and-apparatus/open-jaws/internal/sentinel"
)

// missionComponents holds every initialized service for one invocation.
type missionComponents struct {
	Control *mission.Control
	Oracle  *qbranch.Adapter
	Audit   schemas.AuditSink
	DBPool  *pgxpool.Pool
}

// Shutdown releases resources in reverse dependency order.
func (mc *missionComponents) Shutdown() {
	logger := zap.L()
	if mc.Audit != nil {
		if err := mc.Audit.Close(); err != nil {
			logger.Warn("Error closing audit sink", zap.Error(err))
		}
	}
	if mc.Oracle != nil {
		if err := mc.Oracle.Close(); err != nil {
			logger.Warn("Error closing classifier", zap.Error(err))
		}
	}
	if mc.DBPool != nil {
		mc.DBPool.Close()
	}
}

// initializeMissionComponents handles dependency injection for the sweep
// pipeline.
func initializeMissionComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*missionComponents, error) {
	components := &missionComponents{}

	// 1. Platform adapter. Missing credentials are fatal at startup.
	platform, err := bluesky.NewClient(cfg.Platform, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize platform client: %w", err)
	}

	// 2. Probabilistic classifier (best effort; absent without credential).
	oracle := qbranch.New(llmclient.Factory(cfg.Classifier, logger), logger)
	components.Oracle = oracle

	// 3. Audit sink: JSONL mission log, plus the optional Postgres mirror.
	fileSink, err := auditlog.NewFileSink(cfg.Audit, logger)
	if err != nil {
		return components, fmt.Errorf("failed to open mission log: %w", err)
	}
	var audit schemas.AuditSink = fileSink

	if cfg.Audit.DatabaseURL != "" {
		dbPool, err := pgxpool.New(ctx, cfg.Audit.DatabaseURL)
		if err != nil {
			return components, fmt.Errorf("failed to connect to audit database: %w", err)
		}
		components.DBPool = dbPool

		mirror, err := auditlog.NewPostgresSink(ctx, dbPool, logger)
		if err != nil {
			return components, fmt.Errorf("failed to initialize audit mirror: %w", err)
		}
		audit = auditlog.NewMultiSink(fileSink, mirror, logger)
	}
	components.Audit = audit

	// 4. Core pipeline.
	sweeper := sentinel.NewSweeper(platform, oracle, logger)
	builder := dossier.NewBuilder(platform, logger)
	composer := communique.NewComposer(nil)
	engine := enforcer.New(platform, builder, composer, audit, cfg.Mission, logger)

	components.Control = mission.New(cfg.Mission, sweeper, engine, logger)
	return components, nil
}
