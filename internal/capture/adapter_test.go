package capture

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	result FetchResult
	err    error
	urls   []string
}

func (f *stubFetcher) Fetch(_ context.Context, url string) (FetchResult, error) {
	f.urls = append(f.urls, url)
	if f.err != nil {
		return FetchResult{}, f.err
	}
	return f.result, nil
}

type stubRenderer struct {
	img  []byte
	err  error
	urls []string
}

func (r *stubRenderer) Render(_ context.Context, pageURL string) ([]byte, error) {
	r.urls = append(r.urls, pageURL)
	if r.err != nil {
		return nil, r.err
	}
	return r.img, nil
}

func TestDirectAdapter_Capture(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{result: FetchResult{
		StatusCode:  200,
		ContentType: "image/jpeg",
		Body:        []byte("jpegbytes"),
	}}
	adapter := NewDirectAdapter(fetcher, NewContentPolicy(DefaultMaxImageBytes))

	cam := Camera{Slug: "village-cam", SourceURL: "https://backend.roundshot.com/cam/image.jpg"}
	img, err := adapter.Capture(context.Background(), cam)
	require.NoError(t, err)
	require.Equal(t, []byte("jpegbytes"), img)
	require.Equal(t, []string{cam.SourceURL}, fetcher.urls)
}

func TestDirectAdapter_UpstreamError(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{err: fmt.Errorf("%w: status 503", ErrUpstreamUnreachable)}
	adapter := NewDirectAdapter(fetcher, NewContentPolicy(DefaultMaxImageBytes))

	_, err := adapter.Capture(context.Background(), Camera{SourceURL: "https://backend.roundshot.com/x"})
	require.ErrorIs(t, err, ErrUpstreamUnreachable)
}

func TestDirectAdapter_RejectsNonImage(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{result: FetchResult{
		StatusCode:  200,
		ContentType: "text/html",
		Body:        []byte("<html>not a camera</html>"),
	}}
	adapter := NewDirectAdapter(fetcher, NewContentPolicy(DefaultMaxImageBytes))

	_, err := adapter.Capture(context.Background(), Camera{SourceURL: "https://backend.roundshot.com/x"})
	require.ErrorIs(t, err, ErrInvalidContentType)
}

func TestDirectAdapter_RejectsOversizedPayload(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{result: FetchResult{
		StatusCode:  200,
		ContentType: "image/jpeg",
		Body:        make([]byte, 65),
	}}
	adapter := NewDirectAdapter(fetcher, NewContentPolicy(64))

	_, err := adapter.Capture(context.Background(), Camera{SourceURL: "https://backend.roundshot.com/x"})
	require.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestRenderAdapter_Capture(t *testing.T) {
	t.Parallel()

	renderer := &stubRenderer{img: []byte("screenshot")}
	adapter := NewRenderAdapter(renderer)

	cam := Camera{Slug: "lobby-cam", SourceType: SourceVerkada, SourceURL: "https://cams.example.com/embed/lobby"}
	img, err := adapter.Capture(context.Background(), cam)
	require.NoError(t, err)
	require.Equal(t, []byte("screenshot"), img)
	require.Equal(t, []string{cam.SourceURL}, renderer.urls)
}

func TestRenderAdapter_NilRendererMeansNoCredential(t *testing.T) {
	t.Parallel()

	adapter := NewRenderAdapter(nil)
	_, err := adapter.Capture(context.Background(), Camera{SourceURL: "https://cams.example.com/embed/x"})
	require.ErrorIs(t, err, ErrMissingCredential)
}

func TestRenderAdapter_PropagatesRenderError(t *testing.T) {
	t.Parallel()

	renderer := &stubRenderer{err: errors.New("render provider exploded")}
	adapter := NewRenderAdapter(renderer)

	_, err := adapter.Capture(context.Background(), Camera{SourceURL: "https://cams.example.com/embed/x"})
	require.Error(t, err)
	require.Equal(t, "internal", FailureReason(err))
}
