// Package reddit implements platform.Client against the Reddit OAuth API
// using script-app (password grant) credentials.
//
// # Contract
//
// All requests go through a shared token-bucket rate limiter and carry the
// bot's user agent. Listing retries transient failures (network faults,
// 429, 5xx) up to its attempt budget; moderation side effects are tried
// once and their failures surface to the caller.
package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kdoroschak/curlbot-v2/internal/platform"
)

const (
	defaultBaseURL  = "https://oauth.reddit.com"
	defaultTokenURL = "https://www.reddit.com/api/v1/access_token"
	defaultTimeout  = 10 * time.Second

	// listAttempts is the retry budget for listing new posts.
	listAttempts = 3

	// requestsPerMinute stays under Reddit's 60 req/min OAuth allowance.
	requestsPerMinute = 55

	// tokenSlack refreshes the token this long before it expires.
	tokenSlack = time.Minute
)

// Config holds the credentials and endpoints for a script-app client.
// BaseURL and TokenURL default to the public Reddit endpoints and exist as
// fields for tests.
type Config struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	Subreddit    string
	UserAgent    string

	BaseURL  string
	TokenURL string
	Timeout  time.Duration
}

// Client is the Reddit implementation of platform.Client.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
	limiter    *rate.Limiter

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

var _ platform.Client = (*Client)(nil)

// New validates the config and creates a Client. No network traffic happens
// until the first call; authentication is lazy.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	for name, v := range map[string]string{
		"client id":     cfg.ClientID,
		"client secret": cfg.ClientSecret,
		"username":      cfg.Username,
		"password":      cfg.Password,
		"subreddit":     cfg.Subreddit,
		"user agent":    cfg.UserAgent,
	} {
		if v == "" {
			return nil, fmt.Errorf("reddit client: %s is required", name)
		}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		limiter:    rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), 5),
	}, nil
}

// ListNewPosts returns the newest posts with their OP comments attached,
// retrying transient listing failures up to the attempt budget.
func (c *Client) ListNewPosts(ctx context.Context, limit int) ([]platform.PostSnapshot, error) {
	var children []thing
	var err error
	for attempt := 1; attempt <= listAttempts; attempt++ {
		children, err = c.listNew(ctx, limit)
		if err == nil {
			break
		}
		if !isTransient(err) {
			return nil, err
		}
		c.logger.Warn("Listing new posts failed",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("listing new posts after %d attempts: %w", listAttempts, err)
	}

	posts := make([]platform.PostSnapshot, 0, len(children))
	for _, child := range children {
		var p postData
		if err := json.Unmarshal(child.Data, &p); err != nil {
			return nil, fmt.Errorf("decoding post: %w", err)
		}
		comments, err := c.opComments(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("fetching comments for post %s: %w", p.ID, err)
		}
		flair := ""
		if p.LinkFlairText != nil {
			flair = *p.LinkFlairText
		}
		posts = append(posts, platform.PostSnapshot{
			ID:         p.ID,
			Title:      p.Title,
			URL:        p.URL,
			Flair:      flair,
			Content:    platform.ClassifyContent(p.URL, p.IsSelf),
			Body:       p.SelfText,
			CreatedAt:  time.Unix(int64(p.CreatedUTC), 0).UTC(),
			OPComments: comments,
		})
	}
	return posts, nil
}

func (c *Client) listNew(ctx context.Context, limit int) ([]thing, error) {
	var envelope thing
	path := fmt.Sprintf("/r/%s/new?limit=%d&raw_json=1", c.cfg.Subreddit, limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &envelope); err != nil {
		return nil, err
	}
	var l listingData
	if err := json.Unmarshal(envelope.Data, &l); err != nil {
		return nil, fmt.Errorf("decoding listing: %w", err)
	}
	return l.Children, nil
}

// opComments returns the text of the OP's top-level comments in thread order.
func (c *Client) opComments(ctx context.Context, postID string) ([]string, error) {
	// The comments endpoint returns two listings: the post, then the
	// comment tree.
	var envelopes []thing
	path := fmt.Sprintf("/comments/%s?raw_json=1", postID)
	if err := c.do(ctx, http.MethodGet, path, nil, &envelopes); err != nil {
		return nil, err
	}
	if len(envelopes) < 2 {
		return nil, nil
	}
	var l listingData
	if err := json.Unmarshal(envelopes[1].Data, &l); err != nil {
		return nil, fmt.Errorf("decoding comment listing: %w", err)
	}

	var comments []string
	for _, child := range l.Children {
		if child.Kind != "t1" {
			continue // "more" stubs and the like
		}
		var cd commentData
		if err := json.Unmarshal(child.Data, &cd); err != nil {
			return nil, fmt.Errorf("decoding comment: %w", err)
		}
		if cd.IsSubmitter {
			comments = append(comments, cd.Body)
		}
	}
	return comments, nil
}

// ReplySticky comments on the post and distinguishes the comment as a
// stickied moderator comment.
func (c *Client) ReplySticky(ctx context.Context, postID, text string) error {
	form := url.Values{
		"api_type": {"json"},
		"thing_id": {"t3_" + postID},
		"text":     {text},
	}
	var resp commentPostResponse
	if err := c.do(ctx, http.MethodPost, "/api/comment", form, &resp); err != nil {
		return fmt.Errorf("posting reply on %s: %w", postID, err)
	}
	if len(resp.JSON.Errors) > 0 {
		return fmt.Errorf("posting reply on %s: api errors: %v", postID, resp.JSON.Errors)
	}
	if len(resp.JSON.Data.Things) == 0 {
		return fmt.Errorf("posting reply on %s: no comment in response", postID)
	}

	distinguish := url.Values{
		"api_type": {"json"},
		"id":       {resp.JSON.Data.Things[0].Data.Name},
		"how":      {"yes"},
		"sticky":   {"true"},
	}
	if err := c.do(ctx, http.MethodPost, "/api/distinguish", distinguish, nil); err != nil {
		return fmt.Errorf("stickying reply on %s: %w", postID, err)
	}
	return nil
}

// Report files a moderator report against the post.
func (c *Client) Report(ctx context.Context, postID, reason string) error {
	form := url.Values{
		"api_type": {"json"},
		"thing_id": {"t3_" + postID},
		"reason":   {reason},
	}
	if err := c.do(ctx, http.MethodPost, "/api/report", form, nil); err != nil {
		return fmt.Errorf("reporting %s: %w", postID, err)
	}
	return nil
}

// Remove removes the post (moderator action, not marked as spam).
func (c *Client) Remove(ctx context.Context, postID string) error {
	form := url.Values{
		"id":   {"t3_" + postID},
		"spam": {"false"},
	}
	if err := c.do(ctx, http.MethodPost, "/api/remove", form, nil); err != nil {
		return fmt.Errorf("removing %s: %w", postID, err)
	}
	return nil
}

// WikiPage returns the raw content of a wiki page in the bot's subreddit.
func (c *Client) WikiPage(ctx context.Context, page string) (string, error) {
	var envelope thing
	path := fmt.Sprintf("/r/%s/wiki/%s?raw_json=1", c.cfg.Subreddit, page)
	if err := c.do(ctx, http.MethodGet, path, nil, &envelope); err != nil {
		return "", fmt.Errorf("fetching wiki page %s: %w", page, err)
	}
	var w wikiPageData
	if err := json.Unmarshal(envelope.Data, &w); err != nil {
		return "", fmt.Errorf("decoding wiki page %s: %w", page, err)
	}
	return w.ContentMD, nil
}

// EditProfilePost rewrites the body of one of the bot's own text posts.
func (c *Client) EditProfilePost(ctx context.Context, postID, body string) error {
	form := url.Values{
		"api_type": {"json"},
		"thing_id": {"t3_" + postID},
		"text":     {body},
	}
	if err := c.do(ctx, http.MethodPost, "/api/editusertext", form, nil); err != nil {
		return fmt.Errorf("editing profile post %s: %w", postID, err)
	}
	return nil
}

// do performs one authenticated API request, decoding the JSON response
// into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, form url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	token, err := c.ensureToken(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", platform.ErrTransient, method, path, err)
	}
	defer resp.Body.Close()

	if isTransientStatus(resp.StatusCode) {
		return fmt.Errorf("%w: %s %s: status %d", platform.ErrTransient, method, path, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}

// ensureToken returns a valid bearer token, fetching a fresh one when the
// cached token is absent or about to expire.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Until(c.tokenExpiry) > tokenSlack {
		return c.token, nil
	}

	form := url.Values{
		"grant_type": {"password"},
		"username":   {c.cfg.Username},
		"password":   {c.cfg.Password},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: fetching token: %v", platform.ErrTransient, err)
	}
	defer resp.Body.Close()

	if isTransientStatus(resp.StatusCode) {
		return "", fmt.Errorf("%w: fetching token: status %d", platform.ErrTransient, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching token: status %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("fetching token: empty access token (check credentials)")
	}

	c.token = tr.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	c.logger.Debug("Refreshed API token", zap.Int("expires_in", tr.ExpiresIn))
	return c.token, nil
}

func isTransient(err error) bool {
	return errors.Is(err, platform.ErrTransient)
}

func isTransientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}
