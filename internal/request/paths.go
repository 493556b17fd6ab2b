package request

import (
	"net/url"
	"strings"
)

// CleanPath trims leading and trailing slashes and collapses repeated ones.
func CleanPath(p string) string {
	p = strings.TrimSpace(p)
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	return strings.Trim(p, "/")
}

// QueryString encodes filters and, when set, the access token. Keys are
// sorted so the same configuration always yields the same request path.
func QueryString(filters map[string]string, token string) string {
	values := url.Values{}
	for k, v := range filters {
		values.Set(k, v)
	}
	if token != "" {
		values.Set("access_token", token)
	}
	return values.Encode()
}

// stripQuery drops anything after the first '?'.
func stripQuery(p string) string {
	if i := strings.IndexByte(p, '?'); i >= 0 {
		return p[:i]
	}
	return p
}
