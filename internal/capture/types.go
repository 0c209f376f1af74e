package capture

import (
	"context"
	"io"
	"time"
)

// SourceType selects the capture strategy for a camera.
type SourceType string

// Source types understood by the orchestrator.
const (
	SourceRoundshot SourceType = "roundshot"
	SourceVerkada   SourceType = "verkada"
)

// Camera is one configured external image source. Camera rows are owned by
// the configuration store; this package only reads them.
type Camera struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Slug         string     `json:"slug"`
	SourceType   SourceType `json:"source_type"`
	SourceURL    string     `json:"source_url"`
	IsActive     bool       `json:"is_active"`
	DisplayOrder int        `json:"display_order"`
}

// Snapshot is one persisted capture result. Created exactly once per
// successful per-camera capture, immutable thereafter.
type Snapshot struct {
	CameraID      string    `json:"camera_id"`
	ImageURL      string    `json:"image_url"`
	CapturedAt    time.Time `json:"captured_at"`
	TimeSlot      string    `json:"time_slot"`
	FileSizeBytes int       `json:"file_size_bytes"`
}

// RunSummary aggregates one capture run. Per-camera detail is logged but
// deliberately not included here.
type RunSummary struct {
	Processed  int `json:"processed"`
	Successful int `json:"successful"`
}

// CameraStore reads camera configuration records.
type CameraStore interface {
	// ListActive returns all cameras with is_active = true, ordered by
	// display_order.
	ListActive(ctx context.Context) ([]Camera, error)
}

// SnapshotStore persists snapshot records.
type SnapshotStore interface {
	Insert(ctx context.Context, snap Snapshot) error
}

// BlobStore writes image payloads and returns their public URL.
type BlobStore interface {
	PutObject(ctx context.Context, path, contentType, cacheControl string, data io.Reader) (string, error)
}

// SourceAdapter produces the final image bytes for one camera.
type SourceAdapter interface {
	Capture(ctx context.Context, cam Camera) ([]byte, error)
}

// FetchResult is the outcome of a single HTTP GET.
type FetchResult struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Fetcher executes a single HTTP GET and returns the response bytes.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (FetchResult, error)
}

// Renderer produces a screenshot of a page as image bytes.
type Renderer interface {
	Render(ctx context.Context, pageURL string) ([]byte, error)
}

// Publisher emits capture-run events to interested consumers.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock abstracts time.Now so runs are testable.
type Clock interface {
	Now() time.Time
}
