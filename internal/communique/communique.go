// File: internal/communique/communique.go

// Package communique drafts the public announcement posted after a
// successful mute. Template and closer are chosen independently at random
// from a seedable source so tests can pin the output.
package communique

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/method-and-apparatus/open-jaws/internal/dossier"
)

// MaxLength is the hard cap on announcement length, in runes.
const MaxLength = 280

// template interpolates a dossier into one body variant. All variants carry
// the same facts with different phrasing.
type template func(handle string, baitPosts, kept int, ratePct string) string

var killTemplates = []template{
	func(handle string, baitPosts, kept int, _ string) string {
		return fmt.Sprintf(
			"NEUTRALIZED: @%s promised to answer everyone who replied to their posts. "+
				"Promises made: %d. Promises kept: %d. Account muted. The timeline is secure.",
			handle, baitPosts, kept)
	},
	func(handle string, baitPosts, _ int, ratePct string) string {
		return fmt.Sprintf(
			"TARGET DOWN: @%s issued %d \"Reply X and I'll Y\" directives in the last week. "+
				"Actual follow-through rate: %s%%. Muted with extreme prejudice. Carry on.",
			handle, baitPosts, ratePct)
	},
	func(handle string, baitPosts, kept int, ratePct string) string {
		return fmt.Sprintf(
			"CONFIRMED KILL: @%s — %d engagement-bait posts. %d actual replies to respondents. "+
				"That's a %s%% fulfillment rate. We don't negotiate with engagement farmers. Muted.",
			handle, baitPosts, kept, ratePct)
	},
	func(handle string, baitPosts, kept int, _ string) string {
		return fmt.Sprintf(
			"MISSION COMPLETE: @%s asked followers to reply %d times. Replied back %d times. "+
				"The silence has been made permanent. Muted.",
			handle, baitPosts, kept)
	},
	func(handle string, baitPosts, kept int, _ string) string {
		return fmt.Sprintf(
			"DISPATCH: @%s has been retired from active duty on this timeline. "+
				"%d promises. %d deliveries. The ratio speaks for itself. Muted.",
			handle, baitPosts, kept)
	},
	func(handle string, baitPosts, _ int, ratePct string) string {
		return fmt.Sprintf(
			"INCIDENT REPORT: @%s — engagement bait detected %d times. "+
				"Response rate to actual humans: %s%%. "+
				"Subject has been muted in the interest of timeline security.",
			handle, baitPosts, ratePct)
	},
}

// Closer lines. Every communique needs a sign-off.
var closers = []string{
	"\n\n-- 007, Open Jaws",
	"\n\n-- Agent on duty, Open Jaws",
	"\n\nThis has been an Open Jaws communique.",
	"\n\ngithub.com/method-and-apparatus/open-jaws",
}

// Composer drafts announcements.
type Composer struct {
	rng *rand.Rand
}

// NewComposer builds a Composer around the given randomness source. A nil
// source gets a time-seeded one.
func NewComposer(rng *rand.Rand) *Composer {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Composer{rng: rng}
}

// Compose drafts the announcement for one dossier. Output never exceeds
// MaxLength runes: an oversized draft loses the closer and gets the body
// truncated with an ellipsis instead.
func (c *Composer) Compose(intel dossier.TargetIntel) string {
	body := killTemplates[c.rng.Intn(len(killTemplates))](
		intel.Handle,
		intel.BaitPosts,
		intel.PromisesKept(),
		fmt.Sprintf("%.0f", intel.FulfillmentRate*100),
	)
	closer := closers[c.rng.Intn(len(closers))]

	full := body + closer
	if len([]rune(full)) > MaxLength {
		runes := []rune(body)
		if len(runes) > MaxLength-3 {
			runes = runes[:MaxLength-3]
		}
		full = string(runes) + "..."
	}
	return full
}
