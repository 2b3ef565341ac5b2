// File: internal/auditlog/auditlog.go

// Package auditlog persists mission reports. The primary sink is an
// append-only JSONL file; an optional Postgres mirror keeps a queryable
// copy. Every operation is documented.
package auditlog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/method-and-apparatus/open-jaws/api/schemas"
	"github.com/method-and-apparatus/open-jaws/internal/config"
)

// FileSink writes one JSON record per line to the mission log. Rotation is
// delegated to lumberjack; records within a generation are never rewritten.
type FileSink struct {
	mu  sync.Mutex
	w   *lumberjack.Logger
	log *zap.Logger
}

var _ schemas.AuditSink = (*FileSink)(nil)

// NewFileSink opens the mission log, creating parent directories as needed.
func NewFileSink(cfg config.AuditConfig, logger *zap.Logger) (*FileSink, error) {
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create mission log directory: %w", err)
		}
	}

	return &FileSink{
		w: &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
		},
		log: logger.Named("auditlog"),
	}, nil
}

// Append writes one report as a single JSONL line.
func (s *FileSink) Append(_ context.Context, report schemas.MissionReport) error {
	line, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal mission report: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append mission report: %w", err)
	}
	return nil
}

// Close closes the underlying log file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Close()
}

// MultiSink fans a report out to a primary sink and a best-effort mirror.
// A mirror failure is logged and swallowed; only the primary's error
// surfaces.
type MultiSink struct {
	primary schemas.AuditSink
	mirror  schemas.AuditSink
	log     *zap.Logger
}

var _ schemas.AuditSink = (*MultiSink)(nil)

// NewMultiSink combines a primary sink with a mirror.
func NewMultiSink(primary, mirror schemas.AuditSink, logger *zap.Logger) *MultiSink {
	return &MultiSink{
		primary: primary,
		mirror:  mirror,
		log:     logger.Named("auditlog.multi"),
	}
}

// Append writes primary first, then mirrors.
func (m *MultiSink) Append(ctx context.Context, report schemas.MissionReport) error {
	err := m.primary.Append(ctx, report)
	if mirrorErr := m.mirror.Append(ctx, report); mirrorErr != nil {
		m.log.Error("Audit mirror append failed", zap.Error(mirrorErr))
	}
	return err
}

// Close closes both sinks, reporting the primary's error.
func (m *MultiSink) Close() error {
	err := m.primary.Close()
	if mirrorErr := m.mirror.Close(); mirrorErr != nil {
		m.log.Error("Audit mirror close failed", zap.Error(mirrorErr))
	}
	return err
}
