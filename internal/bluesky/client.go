// File: internal/bluesky/client.go

// Package bluesky implements the platform capabilities over the Bluesky
// XRPC API. The core pipeline sees only schemas.Platform; everything
// wire-level (session auth, lexicon NSIDs, pagination, rate limiting,
// retries) stays in here.
package bluesky

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/method-and-apparatus/open-jaws/api/schemas"
	"github.com/method-and-apparatus/open-jaws/internal/config"
)

// Lexicon endpoints the adapter speaks.
const (
	nsidCreateSession = "com.atproto.server.createSession"
	nsidGetTimeline   = "app.bsky.feed.getTimeline"
	nsidGetAuthorFeed = "app.bsky.feed.getAuthorFeed"
	nsidMuteActor     = "app.bsky.graph.muteActor"
	nsidCreateRecord  = "com.atproto.repo.createRecord"

	postCollection = "app.bsky.feed.post"
)

// Client is an authenticated Bluesky XRPC client implementing
// schemas.Platform. All calls share one rate limiter so the bot stays well
// inside the platform's budget regardless of sweep size.
type Client struct {
	host        string
	identifier  string
	appPassword string

	httpClient *http.Client
	limiter    *rate.Limiter
	log        *zap.Logger

	mu        sync.Mutex
	accessJwt string
	did       string

	// backoffFactory is replaceable in tests to avoid real retry delays.
	backoffFactory func() backoff.BackOff
}

var _ schemas.Platform = (*Client)(nil)

// NewClient validates credentials and builds a client. No network traffic
// happens until the first call; the session is established lazily.
func NewClient(cfg config.PlatformConfig, logger *zap.Logger) (*Client, error) {
	if cfg.Identifier == "" || cfg.AppPassword == "" {
		return nil, fmt.Errorf("platform credentials are required (platform.identifier and OPENJAWS_PLATFORM_APP_PASSWORD)")
	}

	return &Client{
		host:        strings.TrimRight(cfg.Host, "/"),
		identifier:  cfg.Identifier,
		appPassword: cfg.AppPassword,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		log:     logger.Named("bluesky"),
		backoffFactory: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxElapsedTime = 90 * time.Second
			b.MaxInterval = 15 * time.Second
			return b
		},
	}, nil
}

// -- Wire structures (internal to this package) --

type sessionInput struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type sessionOutput struct {
	AccessJwt  string `json:"accessJwt"`
	RefreshJwt string `json:"refreshJwt"`
	Handle     string `json:"handle"`
	Did        string `json:"did"`
}

type authorView struct {
	Did    string `json:"did"`
	Handle string `json:"handle"`
}

type replyRef struct {
	Parent struct {
		URI string `json:"uri"`
	} `json:"parent"`
	Root struct {
		URI string `json:"uri"`
	} `json:"root"`
}

type postRecord struct {
	Type      string    `json:"$type,omitempty"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	Reply     *replyRef `json:"reply,omitempty"`
}

type postView struct {
	URI       string     `json:"uri"`
	Cid       string     `json:"cid"`
	Author    authorView `json:"author"`
	Record    postRecord `json:"record"`
	IndexedAt time.Time  `json:"indexedAt"`
}

type feedItem struct {
	Post postView `json:"post"`
}

type feedOutput struct {
	Cursor string     `json:"cursor"`
	Feed   []feedItem `json:"feed"`
}

type muteActorInput struct {
	Actor string `json:"actor"`
}

type createRecordInput struct {
	Repo       string     `json:"repo"`
	Collection string     `json:"collection"`
	Record     postRecord `json:"record"`
}

type createRecordOutput struct {
	URI string `json:"uri"`
	Cid string `json:"cid"`
}

// Login establishes a session explicitly. Calls that need auth do this
// lazily, but a startup Login surfaces credential problems before the
// first sweep.
func (c *Client) Login(ctx context.Context) error {
	var out sessionOutput
	err := c.do(ctx, http.MethodPost, nsidCreateSession, nil,
		sessionInput{Identifier: c.identifier, Password: c.appPassword}, &out, false)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	c.mu.Lock()
	c.accessJwt = out.AccessJwt
	c.did = out.Did
	c.mu.Unlock()

	c.log.Info("Session established", zap.String("handle", out.Handle), zap.String("did", out.Did))
	return nil
}

func (c *Client) ensureSession(ctx context.Context) error {
	c.mu.Lock()
	haveSession := c.accessJwt != ""
	c.mu.Unlock()
	if haveSession {
		return nil
	}
	return c.Login(ctx)
}

// FetchTimeline returns the home timeline, newest first, dropping posts
// older than since. The platform has no server-side start time for
// timelines, so the window is applied client-side.
func (c *Client) FetchTimeline(ctx context.Context, maxResults int, since time.Time) ([]schemas.RawPost, error) {
	if err := c.ensureSession(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("algorithm", "reverse-chronological")
	params.Set("limit", strconv.Itoa(clampLimit(maxResults)))

	var out feedOutput
	if err := c.do(ctx, http.MethodGet, nsidGetTimeline, params, nil, &out, true); err != nil {
		return nil, fmt.Errorf("failed to fetch timeline: %w", err)
	}

	posts := make([]schemas.RawPost, 0, len(out.Feed))
	for _, item := range out.Feed {
		post := toRawPost(item.Post)
		if !since.IsZero() && post.CreatedAt.Before(since) {
			continue
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// FetchUserPosts returns a user's recent posts, newest first.
func (c *Client) FetchUserPosts(ctx context.Context, userID string, maxResults int) ([]schemas.RawPost, error) {
	if err := c.ensureSession(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("actor", userID)
	params.Set("limit", strconv.Itoa(clampLimit(maxResults)))

	var out feedOutput
	if err := c.do(ctx, http.MethodGet, nsidGetAuthorFeed, params, nil, &out, true); err != nil {
		return nil, fmt.Errorf("failed to fetch posts for %s: %w", userID, err)
	}

	posts := make([]schemas.RawPost, 0, len(out.Feed))
	for _, item := range out.Feed {
		posts = append(posts, toRawPost(item.Post))
	}
	return posts, nil
}

// MuteUser mutes the given actor for the authenticated account.
func (c *Client) MuteUser(ctx context.Context, userID string) error {
	if err := c.ensureSession(ctx); err != nil {
		return err
	}
	if err := c.do(ctx, http.MethodPost, nsidMuteActor, nil, muteActorInput{Actor: userID}, nil, true); err != nil {
		return fmt.Errorf("failed to mute %s: %w", userID, err)
	}
	return nil
}

// PostMessage publishes a post under the authenticated account and returns
// the new record's URI.
func (c *Client) PostMessage(ctx context.Context, text string) (string, error) {
	if err := c.ensureSession(ctx); err != nil {
		return "", err
	}

	c.mu.Lock()
	repo := c.did
	c.mu.Unlock()

	input := createRecordInput{
		Repo:       repo,
		Collection: postCollection,
		Record: postRecord{
			Type:      postCollection,
			Text:      text,
			CreatedAt: time.Now().UTC(),
		},
	}

	var out createRecordOutput
	if err := c.do(ctx, http.MethodPost, nsidCreateRecord, nil, input, &out, true); err != nil {
		return "", fmt.Errorf("failed to create post: %w", err)
	}
	return out.URI, nil
}

// do executes one XRPC call with rate limiting and retry on transient
// failures.
func (c *Client) do(ctx context.Context, method, nsid string, params url.Values, input, output any, authed bool) error {
	endpoint := c.host + "/xrpc/" + nsid
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var body []byte
	if input != nil {
		var err error
		body, err = json.Marshal(input)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	operation := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if authed {
			c.mu.Lock()
			req.Header.Set("Authorization", "Bearer "+c.accessJwt)
			c.mu.Unlock()
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.log.Warn("Network error during XRPC call, retrying...",
				zap.String("nsid", nsid), zap.Error(err))
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			return c.handleAPIError(nsid, resp.StatusCode, respBody)
		}

		if output != nil {
			if err := json.Unmarshal(respBody, output); err != nil {
				return backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
			}
		}
		return nil
	}

	return backoff.Retry(operation, backoff.WithContext(c.backoffFactory(), ctx))
}

func (c *Client) handleAPIError(nsid string, statusCode int, body []byte) error {
	err := fmt.Errorf("xrpc %s: status %d, body: %s", nsid, statusCode, string(body))
	switch statusCode {
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable:
		c.log.Warn("Transient XRPC error, retrying...",
			zap.String("nsid", nsid), zap.Int("status", statusCode))
		return err
	default:
		return backoff.Permanent(err)
	}
}

// toRawPost flattens a feed post view into the shape the core consumes.
func toRawPost(view postView) schemas.RawPost {
	createdAt := view.Record.CreatedAt
	if createdAt.IsZero() {
		createdAt = view.IndexedAt
	}

	replyTo := ""
	if view.Record.Reply != nil {
		replyTo = didFromURI(view.Record.Reply.Parent.URI)
	}

	return schemas.RawPost{
		ID:            view.URI,
		AuthorID:      view.Author.Did,
		AuthorHandle:  view.Author.Handle,
		Text:          view.Record.Text,
		CreatedAt:     createdAt,
		ReplyToUserID: replyTo,
	}
}

// didFromURI extracts the repo DID from an at:// URI, e.g.
// "at://did:plc:abc123/app.bsky.feed.post/xyz" yields "did:plc:abc123".
func didFromURI(uri string) string {
	trimmed := strings.TrimPrefix(uri, "at://")
	if trimmed == uri {
		return ""
	}
	if idx := strings.IndexByte(trimmed, '/'); idx >= 0 {
		return trimmed[:idx]
	}
	return trimmed
}

// clampLimit caps a requested page size to the platform's per-call limit.
func clampLimit(n int) int {
	if n > config.PlatformPageLimit {
		return config.PlatformPageLimit
	}
	if n < 1 {
		return 1
	}
	return n
}
