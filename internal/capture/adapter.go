package capture

import (
	"context"
	"fmt"
)

// DirectAdapter captures cameras whose source URL is itself an image
// endpoint: a single GET, validated, is the final image.
type DirectAdapter struct {
	fetcher Fetcher
	policy  ContentPolicy
}

// NewDirectAdapter builds a DirectAdapter.
func NewDirectAdapter(fetcher Fetcher, policy ContentPolicy) *DirectAdapter {
	return &DirectAdapter{fetcher: fetcher, policy: policy}
}

// Capture fetches the camera's source URL and validates the payload.
func (a *DirectAdapter) Capture(ctx context.Context, cam Camera) ([]byte, error) {
	res, err := a.fetcher.Fetch(ctx, cam.SourceURL)
	if err != nil {
		return nil, fmt.Errorf("fetch source image: %w", err)
	}
	if err := a.policy.CheckImage(res.ContentType, int64(len(res.Body))); err != nil {
		return nil, err
	}
	return res.Body, nil
}

// RenderAdapter captures cameras whose source URL is an embed page that must
// be screenshotted before an image exists.
type RenderAdapter struct {
	renderer Renderer
}

// NewRenderAdapter builds a RenderAdapter around a render provider.
func NewRenderAdapter(renderer Renderer) *RenderAdapter {
	return &RenderAdapter{renderer: renderer}
}

// Capture asks the renderer for a screenshot of the camera's page.
func (a *RenderAdapter) Capture(ctx context.Context, cam Camera) ([]byte, error) {
	if a.renderer == nil {
		return nil, ErrMissingCredential
	}
	img, err := a.renderer.Render(ctx, cam.SourceURL)
	if err != nil {
		return nil, fmt.Errorf("render source page: %w", err)
	}
	return img, nil
}
