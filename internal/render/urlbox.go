// Package render produces screenshot images of camera embed pages, either
// through the urlbox rendering API or a local headless browser.
package render

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/crystalpeak/camcapture/internal/capture"
)

// DefaultUrlboxEndpoint is the synchronous render endpoint.
const DefaultUrlboxEndpoint = "https://api.urlbox.io/v1/render/sync"

// UrlboxConfig controls the render request parameters.
type UrlboxConfig struct {
	Endpoint string
	APIKey   string
	Width    int
	Height   int
	Format   string
	// DelayMS is the settle delay granted to the page before the screenshot
	// is taken, so dynamic content has loaded.
	DelayMS int
	Timeout time.Duration
}

// Urlbox renders pages through the urlbox sync API: a POST yields a
// renderUrl, which must itself pass the domain allowlist before the rendered
// artifact is fetched.
type Urlbox struct {
	cfg     UrlboxConfig
	http    *resty.Client
	fetcher capture.Fetcher
	allow   *capture.Allowlist
	policy  capture.ContentPolicy
	logger  *zap.Logger
}

type urlboxRequest struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
	Delay  int    `json:"delay"`
}

type urlboxResponse struct {
	RenderURL string `json:"renderUrl"`
}

// NewUrlbox builds a Urlbox renderer. An empty API key is permitted at
// construction; Render then fails per camera with ErrMissingCredential so one
// unconfigured provider cannot take down the whole run.
func NewUrlbox(
	cfg UrlboxConfig,
	fetcher capture.Fetcher,
	allow *capture.Allowlist,
	policy capture.ContentPolicy,
	logger *zap.Logger,
) *Urlbox {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultUrlboxEndpoint
	}
	if cfg.Width <= 0 {
		cfg.Width = 1920
	}
	if cfg.Height <= 0 {
		cfg.Height = 1080
	}
	if cfg.Format == "" {
		cfg.Format = "jpg"
	}
	if cfg.DelayMS <= 0 {
		cfg.DelayMS = 15000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")

	return &Urlbox{
		cfg:     cfg,
		http:    client,
		fetcher: fetcher,
		allow:   allow,
		policy:  policy,
		logger:  logger,
	}
}

// Render requests a screenshot of pageURL and returns the validated image
// bytes.
func (u *Urlbox) Render(ctx context.Context, pageURL string) ([]byte, error) {
	if u.cfg.APIKey == "" {
		return nil, capture.ErrMissingCredential
	}

	var out urlboxResponse
	resp, err := u.http.R().
		SetContext(ctx).
		SetAuthToken(u.cfg.APIKey).
		SetBody(urlboxRequest{
			URL:    pageURL,
			Width:  u.cfg.Width,
			Height: u.cfg.Height,
			Format: u.cfg.Format,
			Delay:  u.cfg.DelayMS,
		}).
		SetResult(&out).
		Post(u.cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: render request: %v", capture.ErrUpstreamUnreachable, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: render request status %d", capture.ErrUpstreamUnreachable, resp.StatusCode())
	}
	if out.RenderURL == "" {
		return nil, capture.ErrMissingRenderResult
	}

	// The render URL comes from an external service response; it must not be
	// trusted implicitly.
	if !u.allow.Allows(out.RenderURL) {
		return nil, fmt.Errorf("%w: render url %s", capture.ErrDisallowedDomain, out.RenderURL)
	}

	u.logger.Debug("fetching rendered artifact", zap.String("render_url", out.RenderURL))
	res, err := u.fetcher.Fetch(ctx, out.RenderURL)
	if err != nil {
		return nil, fmt.Errorf("fetch rendered image: %w", err)
	}
	if err := u.policy.CheckImage(res.ContentType, int64(len(res.Body))); err != nil {
		return nil, err
	}
	return res.Body, nil
}
