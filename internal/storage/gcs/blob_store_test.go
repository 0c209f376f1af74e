package gcs_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	storage "cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/crystalpeak/camcapture/internal/storage/gcs"
)

func newTestBlobStore(t *testing.T, handler http.Handler) (*gcs.BlobStore, func()) {
	t.Helper()

	server := httptest.NewServer(handler)

	client, err := storage.NewClient(context.Background(),
		option.WithEndpoint(server.URL),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)

	store, err := gcs.New(client, gcs.Config{Bucket: "webcam-snapshots"})
	require.NoError(t, err)

	return store, server.Close
}

func TestBlobStorePutObject(t *testing.T) {
	objectKey := "village/2026-01-15T20-00-00-000Z.jpg"
	imageData := []byte("jpeg-bytes")

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/upload/storage/v1/b/webcam-snapshots/o")
		assert.Equal(t, objectKey, r.URL.Query().Get("name"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), string(imageData))
		assert.Contains(t, string(body), "image/jpeg")
		assert.Contains(t, string(body), "public, max-age=3600")

		fmt.Fprintln(w, `{ "name": "`+objectKey+`" }`)
	})

	store, cleanup := newTestBlobStore(t, handler)
	defer cleanup()

	url, err := store.PutObject(context.Background(), objectKey, "image/jpeg", "public, max-age=3600", bytes.NewReader(imageData))
	require.NoError(t, err)
	assert.Equal(t, "https://storage.googleapis.com/webcam-snapshots/"+objectKey, url)
}

func TestBlobStorePutObjectUploadError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	store, cleanup := newTestBlobStore(t, handler)
	defer cleanup()

	_, err := store.PutObject(context.Background(), "x/y.jpg", "image/jpeg", "", strings.NewReader("data"))
	assert.Error(t, err)
}

func TestBlobStoreRejectsEmptyPath(t *testing.T) {
	store, cleanup := newTestBlobStore(t, http.NotFoundHandler())
	defer cleanup()

	_, err := store.PutObject(context.Background(), "  ", "image/jpeg", "", strings.NewReader("data"))
	assert.Error(t, err)
}

func TestBlobStoreRequiresClientAndBucket(t *testing.T) {
	t.Parallel()

	_, err := gcs.New(nil, gcs.Config{Bucket: "b"})
	require.Error(t, err)

	client := &storage.Client{}
	_, err = gcs.New(client, gcs.Config{})
	require.Error(t, err)
}
