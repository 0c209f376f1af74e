package capture

import (
	"fmt"
	"strings"
)

// DefaultMaxImageBytes is the payload ceiling applied when none is configured.
const DefaultMaxImageBytes = 10 << 20 // 10 MiB

// IsValidImageContentType reports whether the value is present and denotes an
// image media type.
func IsValidImageContentType(contentType string) bool {
	ct := strings.TrimSpace(strings.ToLower(contentType))
	return strings.HasPrefix(ct, "image/")
}

// ContentPolicy bounds what a downloaded payload may look like before it is
// accepted for storage.
type ContentPolicy struct {
	MaxImageBytes int64
}

// NewContentPolicy returns a policy with the given byte ceiling, falling back
// to DefaultMaxImageBytes when maxBytes is not positive.
func NewContentPolicy(maxBytes int64) ContentPolicy {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	return ContentPolicy{MaxImageBytes: maxBytes}
}

// CheckImage validates the response content type and payload size. Both
// checks run after a successful fetch and before storage upload.
func (p ContentPolicy) CheckImage(contentType string, size int64) error {
	if !IsValidImageContentType(contentType) {
		return fmt.Errorf("%w: %q", ErrInvalidContentType, contentType)
	}
	return p.CheckSize(size)
}

// CheckSize rejects payloads above the configured ceiling.
func (p ContentPolicy) CheckSize(size int64) error {
	limit := p.MaxImageBytes
	if limit <= 0 {
		limit = DefaultMaxImageBytes
	}
	if size > limit {
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrPayloadTooLarge, size, limit)
	}
	return nil
}
