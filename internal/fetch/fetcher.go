// Package fetch implements capture.Fetcher using gocolly.
package fetch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/crystalpeak/camcapture/internal/capture"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	// MaxBodyBytes caps how much of a response body is buffered. Set it one
	// byte above the content policy ceiling so oversized payloads are still
	// observable as oversized rather than silently truncated.
	MaxBodyBytes int64
}

// Client executes single HTTP GETs against trusted camera endpoints. The
// targets are a fixed allowlisted set, so robots handling does not apply.
type Client struct {
	cfg           Config
	baseCollector *colly.Collector
}

// New builds a Client.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "camcapture/1.0"
	}
	// Synchronous is colly's default; the Async option is avoided because in
	// colly v2.1.0 it ignores its argument and always enables async mode.
	opts := []colly.CollectorOption{
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
	}
	if cfg.MaxBodyBytes > 0 {
		opts = append(opts, colly.MaxBodySize(int(cfg.MaxBodyBytes)))
	}
	c := colly.NewCollector(opts...)
	c.WithTransport(newHTTPTransport())

	return &Client{cfg: cfg, baseCollector: c}
}

// Fetch executes a single HTTP GET using Colly and returns the body bytes.
// Network failures and non-2xx statuses surface as ErrUpstreamUnreachable.
func (f *Client) Fetch(ctx context.Context, url string) (capture.FetchResult, error) {
	var (
		result   capture.FetchResult
		fetchErr error
	)

	collector := f.baseCollector.Clone()
	collector.UserAgent = f.cfg.UserAgent
	collector.SetRequestTimeout(f.cfg.Timeout)

	collector.OnResponse(func(r *colly.Response) {
		result = capture.FetchResult{
			StatusCode:  r.StatusCode,
			ContentType: r.Headers.Get("Content-Type"),
			Body:        append([]byte(nil), r.Body...),
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			result.StatusCode = r.StatusCode
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return capture.FetchResult{}, fmt.Errorf("%w: %v", capture.ErrUpstreamUnreachable, ctx.Err())
	case err := <-done:
		switch {
		case fetchErr != nil:
			return result, fmt.Errorf("%w: status %d: %v", capture.ErrUpstreamUnreachable, result.StatusCode, fetchErr)
		case err != nil:
			return result, fmt.Errorf("%w: %v", capture.ErrUpstreamUnreachable, err)
		}
		return result, nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
