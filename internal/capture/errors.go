package capture

import "errors"

// Per-camera failure reasons. Each is recovered at the camera's scope and
// logged; none aborts the run.
var (
	ErrDisallowedDomain    = errors.New("url host is not in the domain allowlist")
	ErrUpstreamUnreachable = errors.New("upstream fetch failed")
	ErrInvalidContentType  = errors.New("response content type is not an image")
	ErrPayloadTooLarge     = errors.New("image exceeds the size ceiling")
	ErrMissingRenderResult = errors.New("render response contains no render url")
	ErrMissingCredential   = errors.New("render provider credential is not configured")
	ErrUnsupportedSource   = errors.New("no adapter registered for source type")
)

// FailureReason maps a per-camera error to a stable label for logs and
// metrics.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, ErrDisallowedDomain):
		return "disallowed_domain"
	case errors.Is(err, ErrUpstreamUnreachable):
		return "upstream_unreachable"
	case errors.Is(err, ErrInvalidContentType):
		return "invalid_content_type"
	case errors.Is(err, ErrPayloadTooLarge):
		return "payload_too_large"
	case errors.Is(err, ErrMissingRenderResult):
		return "missing_render_result"
	case errors.Is(err, ErrMissingCredential):
		return "missing_credential"
	case errors.Is(err, ErrUnsupportedSource):
		return "unsupported_source"
	default:
		return "internal"
	}
}
