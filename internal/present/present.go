// Package present turns aggregated results into display-ready fields.
package present

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ymalspace/search-gateway/internal/search"
)

const (
	UnknownSource  = "unknown-source"
	NoDescription  = "No description available"
	DefaultEngine  = "Web"
	faviconBaseURL = "https://www.google.com/s2/favicons"
	day            = 24 * time.Hour
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Item is a result as the results page renders it.
type Item struct {
	Rank            int    `json:"rank"`
	Title           string `json:"title"`
	URL             string `json:"url"`
	Domain          string `json:"domain"`
	Favicon         string `json:"favicon"`
	Snippet         string `json:"snippet"`
	Source          string `json:"source"`
	Engine          string `json:"engine"`
	PublishedDate   string `json:"publishedDate,omitempty"`
	Published       string `json:"published,omitempty"`
	IsFeatured      bool   `json:"isFeatured,omitempty"`
	IsInstantAnswer bool   `json:"isInstantAnswer,omitempty"`
}

func Items(results []search.Result, now time.Time) []Item {
	out := make([]Item, 0, len(results))
	for _, r := range results {
		out = append(out, NewItem(r, now))
	}
	return out
}

func NewItem(r search.Result, now time.Time) Item {
	domain := Domain(r.URL)
	return Item{
		Rank:            r.Rank,
		Title:           r.Title,
		URL:             r.URL,
		Domain:          domain,
		Favicon:         Favicon(domain, 32),
		Snippet:         Snippet(r.Content),
		Source:          r.Source,
		Engine:          Engine(r.Engine),
		PublishedDate:   r.PublishedDate,
		Published:       RelativeTime(r.PublishedDate, now),
		IsFeatured:      r.IsFeatured,
		IsInstantAnswer: r.IsInstantAnswer,
	}
}

// Domain returns the host of rawURL without a leading "www.".
func Domain(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Hostname() == "" {
		return UnknownSource
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

func Favicon(domain string, size int) string {
	if size <= 0 {
		size = 16
	}
	return fmt.Sprintf("%s?domain=%s&sz=%d", faviconBaseURL, url.QueryEscape(domain), size)
}

func Snippet(content string) string {
	if s := strings.TrimSpace(content); s != "" {
		return s
	}
	return NoDescription
}

func Engine(engine string) string {
	if e := strings.TrimSpace(engine); e != "" {
		return e
	}
	return DefaultEngine
}

// RelativeTime renders date relative to now. Unparsable dates render empty;
// dates a month or older render as a calendar date.
func RelativeTime(date string, now time.Time) string {
	t, ok := parseDate(date)
	if !ok {
		return ""
	}
	days := int(now.Sub(t) / day)
	switch {
	case days <= 0:
		return "Today"
	case days == 1:
		return "Yesterday"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	case days < 30:
		return fmt.Sprintf("%d weeks ago", days/7)
	default:
		return t.Format("Jan 2, 2006")
	}
}

// Count formats n with thousands separators.
func Count(n int) string {
	return humanize.Comma(int64(n))
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
