package emote

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/ratelimit"
)

// maxBodyBytes caps provider API responses; asset downloads are streamed.
const maxBodyBytes = 16 << 20

// Options configures a Client.
type Options struct {
	BaseURL       string
	Timeout       time.Duration
	Retries       int
	RatePerSecond int
	Logger        *slog.Logger
	// UserAgent is sent on every request when set.
	UserAgent string
	// HTTPClient overrides the underlying transport client.
	HTTPClient *http.Client
}

// Client queries channel emote sets and downloads emote files.
type Client struct {
	baseURL   string
	http      *retryablehttp.Client
	limiter   ratelimit.Limiter
	userAgent string
}

// NewClient builds a retrying HTTP client. Only channel queries are rate limited.
func NewClient(opts Options) *Client {
	rc := retryablehttp.NewClient()
	if opts.HTTPClient != nil {
		rc.HTTPClient = opts.HTTPClient
	}
	rc.HTTPClient.Timeout = opts.Timeout
	rc.RetryMax = max(opts.Retries, 0)
	rc.RetryWaitMin = 250 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = nil
	if opts.Logger != nil {
		rc.Logger = opts.Logger
	}

	limiter := ratelimit.NewUnlimited()
	if opts.RatePerSecond > 0 {
		limiter = ratelimit.New(opts.RatePerSecond, ratelimit.WithoutSlack)
	}

	return &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		http:      rc,
		limiter:   limiter,
		userAgent: opts.UserAgent,
	}
}

// ChannelURL returns the provider endpoint for one channel.
func (c *Client) ChannelURL(channelID string) string {
	return c.baseURL + "/" + url.PathEscape(channelID)
}

// FetchChannel returns the channel's emotes in provider order.
func (c *Client) FetchChannel(ctx context.Context, channelID string) ([]Emote, error) {
	// Take cannot be interrupted, so skip it outright once ctx is done.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.limiter.Take()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, c.ChannelURL(channelID))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch channel %s: %w", channelID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch channel %s: unexpected status %s", channelID, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read channel %s: %w", channelID, err)
	}

	emotes, err := ParseEmotes(body)
	if err != nil {
		return nil, fmt.Errorf("parse channel %s: %w", channelID, err)
	}
	return emotes, nil
}

// Download fetches rawURL into dest via a temp file in the same directory.
// It returns the number of bytes written.
func (c *Client) Download(ctx context.Context, rawURL, dest string) (int64, error) {
	req, err := c.newRequest(ctx, rawURL)
	if err != nil {
		return 0, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("download %s: unexpected status %s", rawURL, resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	n, err := io.Copy(tmp, resp.Body)
	if err != nil {
		_ = tmp.Close()
		return 0, fmt.Errorf("download %s: %w", rawURL, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return 0, fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return 0, fmt.Errorf("move download into place: %w", err)
	}
	return n, nil
}

func (c *Client) newRequest(ctx context.Context, rawURL string) (*retryablehttp.Request, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", rawURL, err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return req, nil
}
