// File: internal/sentinel/sentinel.go

// Package sentinel implements feed surveillance: the rule-based engagement
// bait classifier, the timeline sweep that flags suspects, and the
// repeat-offender aggregation that decides who gets investigated.
package sentinel

import (
	"context"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/method-and-apparatus/open-jaws/api/schemas"
	"github.com/method-and-apparatus/open-jaws/internal/qbranch"
)

// BaitPatterns is the ordered rule list. Matching is case-insensitive
// substring search; the first rule that hits wins. Order matters for
// diagnostics only. Rules are written permissively: a false positive is an
// accepted cost, a missed bait post is the failure mode we track.
var BaitPatterns = []*regexp.Regexp{
	// Core pattern: Reply/Comment/Drop/Type [X] and I'll/I will [Y].
	regexp.MustCompile(`(?i)(?:reply|comment|drop|type|send|post|put|write|leave)` +
		`[\s:]+(?:with\s+)?` +
		`(?:["'` + "“”" + `]?.{1,30}["'` + "“”" + `]?|(?:a\s+)?\S+(?:\s+emoji)?)` +
		`\s+(?:and|&|,)\s+` +
		`I(?:'ll|\s+will)\s+`),
	// "Want me to [Y]? Reply [X]" (inverted form).
	regexp.MustCompile(`(?i)want\s+me\s+to\s+.{5,50}\?\s*` +
		`(?:reply|comment|drop|type)`),
	// "I'll [Y] everyone who replies [X]".
	regexp.MustCompile(`(?i)I(?:'ll|\s+will)\s+\w+\s+(?:everyone|every\s+person|anybody|anyone)` +
		`\s+who\s+(?:replies|comments|drops|types)`),
	// "[Y] for everyone who [replies X]".
	regexp.MustCompile(`(?i)(?:free|honest)\s+\w+\s+for\s+(?:everyone|anyone|anybody)` +
		`\s+who\s+(?:replies|comments|drops|types)`),
}

// RuleOracle is the rule index recorded for suspects flagged by the
// probabilistic classifier rather than a pattern rule. It sits one past the
// pattern list so it never collides with a real rule.
var RuleOracle = len(BaitPatterns)

// Scan checks a single post against all known bait patterns. It returns the
// index of the first matching rule and true, or (0, false) when clean.
// Deterministic, pure, no I/O.
func Scan(text string) (int, bool) {
	for i, pattern := range BaitPatterns {
		if pattern.MatchString(text) {
			return i, true
		}
	}
	return 0, false
}

// Suspect is a single flagged post observation tied to an author. Created
// by the sweep, immutable afterwards.
type Suspect struct {
	AuthorID     string
	AuthorHandle string
	PostID       string
	Text         string
	DetectedAt   time.Time
	RuleIndex    int
}

// Sweeper scans timeline batches for bait. The oracle is optional
// best-effort refinement; the sweep never depends on it.
type Sweeper struct {
	reader schemas.PlatformReader
	oracle qbranch.Classifier
	log    *zap.Logger
	now    func() time.Time
}

// NewSweeper builds a Sweeper. oracle may be nil.
func NewSweeper(reader schemas.PlatformReader, oracle qbranch.Classifier, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		reader: reader,
		oracle: oracle,
		log:    logger.Named("sentinel"),
		now:    time.Now,
	}
}

// SweepTimeline fetches the home timeline and flags anything matching the
// bait patterns. When the rules miss and an oracle is available, the oracle
// gets a vote; an unavailable oracle changes nothing.
func (s *Sweeper) SweepTimeline(ctx context.Context, maxResults int, lookback time.Duration) ([]Suspect, error) {
	since := s.now().UTC().Add(-lookback)

	posts, err := s.reader.FetchTimeline(ctx, maxResults, since)
	if err != nil {
		return nil, err
	}

	return s.Flag(ctx, posts), nil
}

// Flag applies the classifier to a batch of posts and returns the suspects.
func (s *Sweeper) Flag(ctx context.Context, posts []schemas.RawPost) []Suspect {
	var suspects []Suspect

	for _, post := range posts {
		ruleIdx, matched := Scan(post.Text)
		if !matched && s.oracle != nil {
			if s.oracle.Classify(ctx, post.Text) == qbranch.VerdictBait {
				matched = true
				ruleIdx = RuleOracle
			}
		}
		if !matched {
			continue
		}

		handle := post.AuthorHandle
		if handle == "" {
			handle = "unknown"
		}
		suspects = append(suspects, Suspect{
			AuthorID:     post.AuthorID,
			AuthorHandle: handle,
			PostID:       post.ID,
			Text:         post.Text,
			DetectedAt:   s.now().UTC(),
			RuleIndex:    ruleIdx,
		})
	}

	if len(suspects) > 0 {
		s.log.Debug("Suspect posts flagged", zap.Int("count", len(suspects)))
	}
	return suspects
}

// IdentifyRepeatOffenders groups suspects by author, preserving insertion
// order within each group, and returns only the authors whose suspect count
// reached the strike threshold. Groups below threshold are dropped.
func IdentifyRepeatOffenders(suspects []Suspect, threshold int) map[string][]Suspect {
	byAuthor := make(map[string][]Suspect)
	for _, s := range suspects {
		byAuthor[s.AuthorID] = append(byAuthor[s.AuthorID], s)
	}

	offenders := make(map[string][]Suspect)
	for authorID, group := range byAuthor {
		if len(group) >= threshold {
			offenders[authorID] = group
		}
	}
	return offenders
}
