// File: internal/dossier/dossier.go

// Package dossier gathers the evidence on a single target: how many
// promises, how many kept, and the ratio between them. It is always the
// ratio.
package dossier

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/method-and-apparatus/open-jaws/api/schemas"
	"github.com/method-and-apparatus/open-jaws/internal/sentinel"
)

// Verdict band strings, evaluated high to low against the fulfillment rate.
const (
	VerdictStoodDown         = "STOOD DOWN — target shows signs of humanity"
	VerdictUnderSurveillance = "UNDER SURVEILLANCE — borderline case"
	VerdictTokenEffort       = "GUILTY — token effort does not constitute compliance"
	VerdictTotalDereliction  = "GUILTY — total dereliction of duty"
)

// TargetIntel is everything we know about the target, built from one fresh
// sample of their recent posts. Not mutated after construction.
type TargetIntel struct {
	UserID       string
	Handle       string
	BaitPosts    int
	RepliesSent  int
	PostsChecked int
	// FulfillmentRate is replies-to-others over bait posts, capped at 1.0.
	// Zero bait posts in the fresh sample scores 1.0: benefit of the doubt
	// for an author whose earlier strikes aged out of the sample. That
	// asymmetry is deliberate.
	FulfillmentRate float64
}

// PromisesKept is a rough, generous estimate of follow-through.
func (t TargetIntel) PromisesKept() int {
	return int(math.Round(float64(t.BaitPosts) * t.FulfillmentRate))
}

// Verdict maps the fulfillment rate to its band. Boundary values belong to
// the higher band.
func (t TargetIntel) Verdict() string {
	switch {
	case t.FulfillmentRate >= 0.5:
		return VerdictStoodDown
	case t.FulfillmentRate >= 0.2:
		return VerdictUnderSurveillance
	case t.FulfillmentRate > 0:
		return VerdictTokenEffort
	default:
		return VerdictTotalDereliction
	}
}

// RatePercent formats the fulfillment rate for reports, e.g. "12.5%".
func (t TargetIntel) RatePercent() string {
	return fmt.Sprintf("%.1f%%", t.FulfillmentRate*100)
}

// BuildIntel runs the counting pass over a post batch. The bait check and
// the reply check are independent; a post may increment both counters.
// Pure and deterministic for a fixed batch.
func BuildIntel(userID, handle string, posts []schemas.RawPost) TargetIntel {
	baitCount := 0
	replyCount := 0

	for _, post := range posts {
		if _, matched := sentinel.Scan(post.Text); matched {
			baitCount++
		}
		// A genuine reply is directed at someone other than the author.
		if post.ReplyToUserID != "" && post.ReplyToUserID != userID {
			replyCount++
		}
	}

	rate := 1.0
	if baitCount > 0 {
		rate = math.Min(float64(replyCount)/float64(baitCount), 1.0)
	}

	return TargetIntel{
		UserID:          userID,
		Handle:          handle,
		BaitPosts:       baitCount,
		RepliesSent:     replyCount,
		PostsChecked:    len(posts),
		FulfillmentRate: rate,
	}
}

// Builder compiles dossiers against the platform read capability.
type Builder struct {
	reader schemas.PlatformReader
	log    *zap.Logger
}

// NewBuilder constructs a Builder.
func NewBuilder(reader schemas.PlatformReader, logger *zap.Logger) *Builder {
	return &Builder{
		reader: reader,
		log:    logger.Named("dossier"),
	}
}

// Compile investigates a target: pull their recent posts, count the bait,
// count the actual replies, do the math. A failed fetch is treated as an
// empty sample, not an error; the sweep continues.
func (b *Builder) Compile(ctx context.Context, userID, handle string, maxPosts int) TargetIntel {
	posts, err := b.reader.FetchUserPosts(ctx, userID, maxPosts)
	if err != nil {
		b.log.Warn("Could not fetch target posts, compiling empty dossier",
			zap.String("target", handle),
			zap.Error(err),
		)
		posts = nil
	}
	return BuildIntel(userID, handle, posts)
}
