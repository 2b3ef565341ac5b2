// File: api/schemas/schemas.go
package schemas

import "time"

// RawPost is a single post as returned by the platform adapter. It carries
// the minimum the core pipeline needs; wire-level detail stays inside the
// adapter.
type RawPost struct {
	ID           string    `json:"id"`
	AuthorID     string    `json:"author_id"`
	AuthorHandle string    `json:"author_handle"`
	Text         string    `json:"text"`
	CreatedAt    time.Time `json:"created_at"`
	// ReplyToUserID is the platform identifier of the user this post replies
	// to, or empty when the post is not a reply.
	ReplyToUserID string `json:"reply_to_user_id,omitempty"`
}

// Action is the decision taken against a single target.
type Action string

const (
	ActionSpared Action = "SPARED"
	ActionMuted  Action = "MUTED"
	ActionDryRun Action = "DRY_RUN"
	ActionFailed Action = "FAILED"
)

// Status is the terminal outcome recorded for a target. It mirrors the
// action, except that a successful mute is recorded as NEUTRALIZED.
type Status string

const (
	StatusNeutralized Status = "NEUTRALIZED"
	StatusSpared      Status = "SPARED"
	StatusDryRun      Status = "DRY_RUN"
	StatusFailed      Status = "FAILED"
)

// StatusForAction maps an action to its report status.
func StatusForAction(a Action) Status {
	if a == ActionMuted {
		return StatusNeutralized
	}
	return Status(a)
}

// MissionReport is the append-only record of one decision against one
// target. Reports are built once, filed to the audit sink, and never
// mutated.
type MissionReport struct {
	ReportID        string    `json:"report_id"`
	SweepID         string    `json:"sweep_id"`
	Timestamp       time.Time `json:"timestamp"`
	Target          string    `json:"target"`
	TargetID        string    `json:"target_id"`
	OffenseCount    int       `json:"offense_count"`
	PromisesMade    int       `json:"promises_made"`
	PromisesKept    int       `json:"promises_kept"`
	FulfillmentRate string    `json:"fulfillment_rate"`
	Verdict         string    `json:"verdict"`
	Action          Action    `json:"action"`
	// CommuniquePostID is set only when an announcement was successfully
	// posted after a mute.
	CommuniquePostID string `json:"communique_post_id,omitempty"`
	Status           Status `json:"status"`
}

// GenerationRequest is a provider-agnostic text generation request.
type GenerationRequest struct {
	SystemPrompt    string  `json:"system_prompt"`
	UserPrompt      string  `json:"user_prompt"`
	Temperature     float32 `json:"temperature"`
	MaxOutputTokens int     `json:"max_output_tokens"`
}
