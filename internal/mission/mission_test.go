// File: internal/mission/mission_test.go
package mission

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/method-and-apparatus/open-jaws/api/schemas"
	"github.com/method-and-apparatus/open-jaws/internal/communique"
	"github.com/method-and-apparatus/open-jaws/internal/config"
	"github.com/method-and-apparatus/open-jaws/internal/dossier"
	"github.com/method-and-apparatus/open-jaws/internal/enforcer"
	"github.com/method-and-apparatus/open-jaws/internal/sentinel"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakePlatform serves a canned timeline and per-user post history, and
// records writes.
type fakePlatform struct {
	mu          sync.Mutex
	timeline    []schemas.RawPost
	timelineErr error
	userPosts   map[string][]schemas.RawPost

	mutedIDs []string
	posted   []string
	sweeps   int
}

func (f *fakePlatform) FetchTimeline(_ context.Context, _ int, _ time.Time) ([]schemas.RawPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sweeps++
	return f.timeline, f.timelineErr
}

func (f *fakePlatform) FetchUserPosts(_ context.Context, userID string, _ int) ([]schemas.RawPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.userPosts[userID], nil
}

func (f *fakePlatform) MuteUser(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutedIDs = append(f.mutedIDs, userID)
	return nil
}

func (f *fakePlatform) PostMessage(_ context.Context, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posted = append(f.posted, text)
	return "at://did:plc:bot/app.bsky.feed.post/k1", nil
}

func (f *fakePlatform) sweepCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sweeps
}

type recordingSink struct {
	mu      sync.Mutex
	reports []schemas.MissionReport
}

func (r *recordingSink) Append(_ context.Context, report schemas.MissionReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
	return nil
}

func (r *recordingSink) Close() error { return nil }

func baitPost(id, authorID, handle string) schemas.RawPost {
	return schemas.RawPost{
		ID:           id,
		AuthorID:     authorID,
		AuthorHandle: handle,
		Text:         "Reply GO and I'll send you the playbook",
		CreatedAt:    time.Now().UTC(),
	}
}

func cleanPost(id, authorID string) schemas.RawPost {
	return schemas.RawPost{
		ID:        id,
		AuthorID:  authorID,
		Text:      "enjoying a quiet afternoon",
		CreatedAt: time.Now().UTC(),
	}
}

func newControl(platform *fakePlatform, sink *recordingSink, cfg config.MissionConfig) *Control {
	logger := zap.NewNop()
	sweeper := sentinel.NewSweeper(platform, nil, logger)
	engine := enforcer.New(
		platform,
		dossier.NewBuilder(platform, logger),
		communique.NewComposer(rand.New(rand.NewSource(1))),
		sink,
		cfg,
		logger,
	)
	return New(cfg, sweeper, engine, logger)
}

func missionCfg() config.MissionConfig {
	return config.MissionConfig{
		StrikeThreshold:    3,
		LookbackWindow:     7 * 24 * time.Hour,
		SweepInterval:      time.Hour,
		PostAnnouncements:  true,
		MaxTimelineResults: 100,
		MaxDossierPosts:    100,
	}
}

func TestRunSweep_EndToEnd(t *testing.T) {
	// One repeat offender with three strikes and no follow-through, one
	// casual poster below the threshold.
	platform := &fakePlatform{
		timeline: []schemas.RawPost{
			baitPost("p1", "did:plc:farmer", "farmer"),
			cleanPost("p2", "did:plc:human"),
			baitPost("p3", "did:plc:farmer", "farmer"),
			baitPost("p4", "did:plc:casual", "casual"),
			baitPost("p5", "did:plc:farmer", "farmer"),
		},
		userPosts: map[string][]schemas.RawPost{
			"did:plc:farmer": {
				baitPost("h1", "did:plc:farmer", "farmer"),
				baitPost("h2", "did:plc:farmer", "farmer"),
				cleanPost("h3", "did:plc:farmer"),
			},
		},
	}
	sink := &recordingSink{}
	control := newControl(platform, sink, missionCfg())

	neutralized, err := control.RunSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, neutralized)

	assert.Equal(t, []string{"did:plc:farmer"}, platform.mutedIDs)
	require.Len(t, platform.posted, 1)
	assert.Contains(t, platform.posted[0], "@farmer")

	require.Len(t, sink.reports, 1)
	report := sink.reports[0]
	assert.Equal(t, "farmer", report.Target)
	assert.Equal(t, schemas.ActionMuted, report.Action)
	assert.Equal(t, schemas.StatusNeutralized, report.Status)
	assert.NotEmpty(t, report.SweepID)
}

func TestRunSweep_QuietTimeline(t *testing.T) {
	platform := &fakePlatform{
		timeline: []schemas.RawPost{cleanPost("p1", "u1"), cleanPost("p2", "u2")},
	}
	sink := &recordingSink{}
	control := newControl(platform, sink, missionCfg())

	neutralized, err := control.RunSweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, neutralized)
	assert.Empty(t, platform.mutedIDs)
	assert.Empty(t, sink.reports)
}

func TestRunSweep_BelowThresholdIsWatched(t *testing.T) {
	platform := &fakePlatform{
		timeline: []schemas.RawPost{
			baitPost("p1", "did:plc:casual", "casual"),
			baitPost("p2", "did:plc:casual", "casual"),
		},
	}
	sink := &recordingSink{}
	control := newControl(platform, sink, missionCfg())

	neutralized, err := control.RunSweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, neutralized)
	assert.Empty(t, platform.mutedIDs)
	assert.Empty(t, sink.reports)
}

func TestRunSweep_FetchFailureIsNoDataCycle(t *testing.T) {
	platform := &fakePlatform{timelineErr: errors.New("service unavailable")}
	control := newControl(platform, &recordingSink{}, missionCfg())

	neutralized, err := control.RunSweep(context.Background())
	assert.NoError(t, err)
	assert.Zero(t, neutralized)
}

func TestRunSweep_ContextCancellationPropagates(t *testing.T) {
	platform := &fakePlatform{timelineErr: context.Canceled}
	control := newControl(platform, &recordingSink{}, missionCfg())

	_, err := control.RunSweep(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunSweep_DryRunNeverMutes(t *testing.T) {
	cfg := missionCfg()
	cfg.DryRun = true
	platform := &fakePlatform{
		timeline: []schemas.RawPost{
			baitPost("p1", "did:plc:farmer", "farmer"),
			baitPost("p2", "did:plc:farmer", "farmer"),
			baitPost("p3", "did:plc:farmer", "farmer"),
		},
	}
	sink := &recordingSink{}
	control := newControl(platform, sink, cfg)

	neutralized, err := control.RunSweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, neutralized)
	assert.Empty(t, platform.mutedIDs)
	assert.Empty(t, platform.posted)

	require.Len(t, sink.reports, 1)
	assert.Equal(t, schemas.ActionDryRun, sink.reports[0].Action)
	assert.Equal(t, schemas.StatusDryRun, sink.reports[0].Status)
}

func TestRunDaemon_SweepsUntilCancelled(t *testing.T) {
	cfg := missionCfg()
	cfg.SweepInterval = 10 * time.Millisecond

	platform := &fakePlatform{}
	control := newControl(platform, &recordingSink{}, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- control.RunDaemon(ctx)
	}()

	require.Eventually(t, func() bool {
		return platform.sweepCount() >= 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err, "daemon should exit cleanly on cancellation")
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not stop after cancellation")
	}
}

func TestRunDaemon_StopsImmediatelyOnCancelledContext(t *testing.T) {
	platform := &fakePlatform{}
	control := newControl(platform, &recordingSink{}, missionCfg())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, control.RunDaemon(ctx))
}
