package capture

import (
	"net/url"
	"strings"
)

// Allowlist holds the trusted hostname suffixes a fetch target must belong
// to. It is applied to every configured source URL and to every render-result
// URL before either is fetched.
type Allowlist struct {
	suffixes []string
}

// NewAllowlist builds an Allowlist from hostname suffixes. Entries are
// lowercased and trimmed; empty entries are dropped.
func NewAllowlist(domains []string) *Allowlist {
	a := &Allowlist{}
	for _, raw := range domains {
		value := strings.TrimSpace(strings.ToLower(raw))
		if value == "" {
			continue
		}
		value = strings.TrimPrefix(value, "*.")
		value = strings.TrimPrefix(value, ".")
		a.addSuffix(value)
	}
	return a
}

func (a *Allowlist) addSuffix(suffix string) {
	for _, existing := range a.suffixes {
		if existing == suffix {
			return
		}
	}
	a.suffixes = append(a.suffixes, suffix)
}

// Allows reports whether the URL's hostname equals, or is a subdomain of, one
// of the allowlisted suffixes. Malformed URLs fail closed.
func (a *Allowlist) Allows(rawURL string) bool {
	if a == nil || len(a.suffixes) == 0 {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	for _, suffix := range a.suffixes {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return true
		}
	}
	return false
}
