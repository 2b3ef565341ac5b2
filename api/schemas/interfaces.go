// File: api/schemas/interfaces.go
// Central contracts between the core pipeline and its collaborators.
// Keeping them here breaks import cycles between internal packages.
package schemas

import (
	"context"
	"time"
)

// PlatformReader is the read surface the core requires from the platform.
// A failed or empty fetch is "no data this cycle", not a pipeline error;
// callers treat it as an empty batch.
type PlatformReader interface {
	// FetchTimeline returns the authenticated account's home timeline,
	// newest first, limited to maxResults and to posts created at or after
	// since.
	FetchTimeline(ctx context.Context, maxResults int, since time.Time) ([]RawPost, error)
	// FetchUserPosts returns a user's recent posts, newest first.
	FetchUserPosts(ctx context.Context, userID string, maxResults int) ([]RawPost, error)
}

// PlatformWriter is the mutation surface: exactly the two moderation
// actions the enforcer may take.
type PlatformWriter interface {
	MuteUser(ctx context.Context, userID string) error
	// PostMessage publishes a new post and returns its platform identifier.
	PostMessage(ctx context.Context, text string) (string, error)
}

// Platform is the full capability set of a platform adapter.
type Platform interface {
	PlatformReader
	PlatformWriter
}

// LLMClient abstracts a text-generation provider. The probabilistic
// classifier is the only consumer; it expects a single-token answer.
type LLMClient interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
	Close() error
}

// AuditSink receives one MissionReport per decision. Implementations are
// append-only: a record, once written, is never rewritten.
type AuditSink interface {
	Append(ctx context.Context, report MissionReport) error
	Close() error
}
