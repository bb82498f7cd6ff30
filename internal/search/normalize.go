package search

import (
	"net/url"
	"strings"
)

// NormalizeURL returns the key two results are compared by. Scheme and host are
// lower-cased and a trailing slash is dropped from the path; everything else is
// kept verbatim. Unparsable input is only trimmed.
func NormalizeURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	u, err := url.Parse(trimmed)
	if err != nil || u.Host == "" {
		return strings.TrimSuffix(trimmed, "/")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimSuffix(u.Path, "/")
	if u.RawPath != "" {
		u.RawPath = strings.TrimSuffix(u.RawPath, "/")
	}
	return u.String()
}

// finalize fills defaults a provider cannot leave blank and drops rows that
// share a key with an earlier row or have no URL at all.
func finalize(items []Result, source string, limit int) []Result {
	if limit <= 0 {
		limit = DefaultCount
	}
	seen := make(map[string]struct{}, len(items))
	out := make([]Result, 0, min(limit, len(items)))
	for _, item := range items {
		key := NormalizeURL(item.URL)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		item.URL = strings.TrimSpace(item.URL)
		item.Title = strings.TrimSpace(item.Title)
		if item.Title == "" {
			item.Title = fallbackTitle
		}
		item.Content = strings.TrimSpace(item.Content)
		item.Source = source
		out = append(out, item)
		if len(out) >= limit {
			break
		}
	}
	return out
}
