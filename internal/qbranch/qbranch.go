// File: internal/qbranch/qbranch.go

// Package qbranch wraps an external LLM as a best-effort engagement bait
// classifier. It is refinement for the rule engine in sentinel, never a
// dependency of correctness: when the client cannot be built or a call
// fails, the verdict is Unavailable and the rules carry the sweep alone.
package qbranch

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/method-and-apparatus/open-jaws/api/schemas"
)

// Verdict is the classifier's answer for a single post.
type Verdict int

const (
	// VerdictUnavailable means the classifier could not be consulted.
	// Callers must fall back to the rule engine, never treat it as clean.
	VerdictUnavailable Verdict = iota
	VerdictClean
	VerdictBait
)

func (v Verdict) String() string {
	switch v {
	case VerdictBait:
		return "BAIT"
	case VerdictClean:
		return "CLEAN"
	default:
		return "UNAVAILABLE"
	}
}

// Classifier is the capability the sweep consumes.
type Classifier interface {
	Classify(ctx context.Context, text string) Verdict
}

// classifierPrompt instructs the model to answer with a single token. Only
// an exact affirmative counts as bait; anything else reads as clean.
const classifierPrompt = `You are a binary classifier. Your job: decide if this post is engagement bait.

Engagement bait = posts that ask followers to perform actions (reply, comment, like, repost, follow, DM) in exchange for a promised reward that is almost never delivered. Common patterns include but are NOT limited to:

- "Reply [word] and I'll [promise]"
- "Comment [word] below and I will [promise]"
- "Like + comment + repost and I'll DM you [thing]"
- "Drop a [emoji] and I'll [promise]"
- "Follow me and reply [word] for a free [thing]"
- "Type [word] if you want [thing]"
- "Who wants [thing]? Like and repost"
- Any post asking for engagement in exchange for a vague promise

Be aggressive. If it smells like bait, it's bait. False positives are acceptable. False negatives are not.

Respond with exactly one word: YES or NO.`

// maxAnswerTokens caps the response budget; a binary answer needs no more.
const maxAnswerTokens = 4

// Adapter is the process-wide classifier resource. The underlying client is
// constructed at most once, on first use, and reused across calls.
type Adapter struct {
	factory func() (schemas.LLMClient, error)
	log     *zap.Logger

	initOnce sync.Once
	client   schemas.LLMClient

	offlineOnce sync.Once
}

var _ Classifier = (*Adapter)(nil)

// New builds an Adapter around a client factory. The factory runs lazily on
// the first Classify call; it may return (nil, err) when no credential is
// configured.
func New(factory func() (schemas.LLMClient, error), logger *zap.Logger) *Adapter {
	return &Adapter{
		factory: factory,
		log:     logger.Named("qbranch"),
	}
}

// acquire initializes the client at most once.
func (a *Adapter) acquire() schemas.LLMClient {
	a.initOnce.Do(func() {
		if a.factory == nil {
			return
		}
		client, err := a.factory()
		if err != nil {
			a.log.Warn("Classifier offline, could not initialize", zap.Error(err))
			return
		}
		a.client = client
		if client != nil {
			a.log.Info("Classifier online, LLM armed.")
		}
	})
	return a.client
}

// Classify asks the model whether the post is engagement bait. Any failure
// yields VerdictUnavailable; only an exact "YES" yields VerdictBait.
func (a *Adapter) Classify(ctx context.Context, text string) Verdict {
	client := a.acquire()
	if client == nil {
		a.offlineOnce.Do(func() {
			a.log.Warn("Classifier unavailable, falling back to rule engine.")
		})
		return VerdictUnavailable
	}

	resp, err := client.Generate(ctx, schemas.GenerationRequest{
		SystemPrompt:    classifierPrompt,
		UserPrompt:      text,
		MaxOutputTokens: maxAnswerTokens,
	})
	if err != nil {
		a.log.Warn("Classifier misfire, classification failed", zap.Error(err))
		return VerdictUnavailable
	}

	if strings.ToUpper(strings.TrimSpace(resp)) == "YES" {
		return VerdictBait
	}
	return VerdictClean
}

// Close releases the underlying client, if one was ever built.
func (a *Adapter) Close() error {
	if a.client != nil {
		return a.client.Close()
	}
	return nil
}
