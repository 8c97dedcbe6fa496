package scrape

import (
	"fmt"
	"net/url"
	"strings"
)

// The importer only understands one source platform; anything else is
// rejected before the pipeline starts.
const sourceHost = "dreamwidth.org"

// InvalidURLError reports a source URL the importer refuses to process
type InvalidURLError struct {
	URL    string
	Reason string
}

func (e *InvalidURLError) Error() string {
	return fmt.Sprintf("invalid source URL %q: %s", e.URL, e.Reason)
}

// ValidateURL checks that a raw URL is well formed and points at the
// supported platform. Callers run this before starting an import.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return &InvalidURLError{URL: raw, Reason: "not a parseable URL"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &InvalidURLError{URL: raw, Reason: "unsupported scheme"}
	}
	host := strings.ToLower(u.Hostname())
	if host != sourceHost && !strings.HasSuffix(host, "."+sourceHost) {
		return &InvalidURLError{URL: raw, Reason: "not a " + sourceHost + " URL"}
	}
	return nil
}

// NormalizeURL canonicalizes a thread URL into its fetchable form.
//
// The site-style parameter normalizes layout variance across journal
// themes. The flat-view parameter makes replies arrive as large
// explicitly paginated pages; threaded mode omits it entirely and
// relies on the in-page comment tree instead. Normalizing an already
// normalized URL is a no-op; malformed URLs pass through untouched,
// validation being the caller's concern.
func NormalizeURL(raw string, threaded bool) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	q.Set("style", "site")
	if threaded {
		q.Del("view")
	} else {
		q.Set("view", "flat")
	}
	u.RawQuery = q.Encode()
	return u.String()
}
