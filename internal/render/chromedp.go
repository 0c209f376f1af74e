package render

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"

	"github.com/crystalpeak/camcapture/internal/capture"
)

// ChromedpConfig controls the local headless renderer.
type ChromedpConfig struct {
	Width       int
	Height      int
	Quality     int
	SettleDelay time.Duration
	NavTimeout  time.Duration
	MaxParallel int
	UserAgent   string
}

// Chromedp renders camera embed pages with an in-process headless browser.
// It serves deployments without a render-API credential; the capture flow is
// identical to the urlbox path except the screenshot is taken locally.
type Chromedp struct {
	cfg         ChromedpConfig
	policy      capture.ContentPolicy
	limiter     chan struct{}
	allocator   context.Context
	allocCancel context.CancelFunc
}

// NewChromedp creates the headless renderer.
func NewChromedp(cfg ChromedpConfig, policy capture.ContentPolicy) (*Chromedp, error) {
	if cfg.MaxParallel < 0 {
		return nil, fmt.Errorf("max parallel must be >= 0")
	}
	if cfg.Width <= 0 {
		cfg.Width = 1920
	}
	if cfg.Height <= 0 {
		cfg.Height = 1080
	}
	if cfg.Quality <= 0 || cfg.Quality >= 100 {
		cfg.Quality = 85
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = 15 * time.Second
	}
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 45 * time.Second
	}
	var limiter chan struct{}
	if cfg.MaxParallel > 0 {
		limiter = make(chan struct{}, cfg.MaxParallel)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Chromedp{
		cfg:         cfg,
		policy:      policy,
		limiter:     limiter,
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}, nil
}

// Close cancels the allocator context.
func (r *Chromedp) Close() {
	r.allocCancel()
}

// Render navigates to the page, waits out the settle delay, and screenshots
// the viewport as JPEG bytes.
func (r *Chromedp) Render(ctx context.Context, pageURL string) ([]byte, error) {
	if err := r.acquire(ctx); err != nil {
		return nil, err
	}
	defer r.release()

	taskCtx, taskCancel := chromedp.NewContext(r.allocator)
	defer taskCancel()

	taskCtx, cancel := context.WithTimeout(taskCtx, r.cfg.NavTimeout+r.cfg.SettleDelay)
	defer cancel()

	var buf []byte
	actions := []chromedp.Action{
		r.setupAction(),
		chromedp.EmulateViewport(int64(r.cfg.Width), int64(r.cfg.Height)),
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(r.cfg.SettleDelay),
		chromedp.FullScreenshot(&buf, r.cfg.Quality),
	}
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return nil, fmt.Errorf("%w: chromedp run: %v", capture.ErrUpstreamUnreachable, err)
	}
	if err := r.policy.CheckSize(int64(len(buf))); err != nil {
		return nil, err
	}
	return buf, nil
}

func (r *Chromedp) setupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if r.cfg.UserAgent == "" {
			return nil
		}
		if err := emulation.SetUserAgentOverride(r.cfg.UserAgent).Do(ctx); err != nil {
			return fmt.Errorf("set user-agent: %w", err)
		}
		return nil
	})
}

func (r *Chromedp) acquire(ctx context.Context) error {
	if r.limiter == nil {
		return nil
	}
	select {
	case r.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("render slot wait canceled: %w", ctx.Err())
	}
}

func (r *Chromedp) release() {
	if r.limiter == nil {
		return
	}
	select {
	case <-r.limiter:
	default:
	}
}
