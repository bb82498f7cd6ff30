package present

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ymalspace/search-gateway/internal/search"
)

func TestDomain(t *testing.T) {
	assert.Equal(t, "cats.org", Domain("https://www.cats.org/about"))
	assert.Equal(t, "en.wikipedia.org", Domain("https://EN.wikipedia.org/wiki/Cat"))
	assert.Equal(t, UnknownSource, Domain("not a url"))
	assert.Equal(t, UnknownSource, Domain(""))
}

func TestFavicon(t *testing.T) {
	assert.Equal(t, "https://www.google.com/s2/favicons?domain=cats.org&sz=32", Favicon("cats.org", 32))
	assert.Equal(t, "https://www.google.com/s2/favicons?domain=cats.org&sz=16", Favicon("cats.org", 0))
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		date string
		want string
	}{
		{"", ""},
		{"yesterday-ish", ""},
		{"2024-06-30T08:00:00Z", "Today"},
		{"2024-07-02T08:00:00Z", "Today"},
		{"2024-06-29T08:00:00Z", "Yesterday"},
		{"2024-06-26", "4 days ago"},
		{"2024-06-16T12:00:00", "2 weeks ago"},
		{"2024-05-01T00:00:00Z", "May 1, 2024"},
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			assert.Equal(t, tt.want, RelativeTime(tt.date, now))
		})
	}
}

func TestFallbacks(t *testing.T) {
	assert.Equal(t, NoDescription, Snippet("  "))
	assert.Equal(t, "text", Snippet(" text "))
	assert.Equal(t, DefaultEngine, Engine(""))
	assert.Equal(t, "bing", Engine("bing"))
	assert.Equal(t, "5,230,000", Count(5230000))
	assert.Equal(t, "0", Count(0))
}

func TestItems(t *testing.T) {
	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	items := Items([]search.Result{
		{Rank: 1, Title: "Cat", URL: "https://www.cats.org", Source: "google", PublishedDate: "2024-06-29T12:00:00Z", IsFeatured: true},
	}, now)

	assert.Equal(t, []Item{{
		Rank:          1,
		Title:         "Cat",
		URL:           "https://www.cats.org",
		Domain:        "cats.org",
		Favicon:       "https://www.google.com/s2/favicons?domain=cats.org&sz=32",
		Snippet:       NoDescription,
		Source:        "google",
		Engine:        DefaultEngine,
		PublishedDate: "2024-06-29T12:00:00Z",
		Published:     "Yesterday",
		IsFeatured:    true,
	}}, items)
	assert.NotNil(t, Items(nil, now))
}
