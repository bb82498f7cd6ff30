package search

import (
	"context"
	"strings"
)

const (
	ProviderDuckDuckGo = "duckduckgo"
	ProviderGoogle     = "google"
	ProviderSearxng    = "searxng"
	ProviderWikipedia  = "wikipedia"
	ProviderWorker     = "worker"
)

const (
	DefaultCount = 10
	MaxCount     = 50
	// MaxPage caps how deep an upstream is paged so offsets stay small.
	MaxPage      = 1000

	fallbackTitle = "No title"
	userAgent     = "Ymal-Search/1.0 (+https://search.ymal.space)"
)

type Query struct {
	Query    string
	Count    int
	Page     int
	Language string
	Country  string
}

func (q Query) Normalize() Query {
	out := Query{
		Query:    strings.TrimSpace(q.Query),
		Count:    q.Count,
		Page:     q.Page,
		Language: strings.TrimSpace(strings.ToLower(q.Language)),
		Country:  strings.TrimSpace(strings.ToLower(q.Country)),
	}
	if out.Count <= 0 {
		out.Count = DefaultCount
	}
	if out.Count > MaxCount {
		out.Count = MaxCount
	}
	out.Page = max(1, min(out.Page, MaxPage))
	return out
}

// Result is one organic candidate, already normalized from its upstream shape.
// Rank is assigned by the aggregator and is zero until then.
type Result struct {
	Title           string  `json:"title"`
	URL             string  `json:"url"`
	Content         string  `json:"content"`
	Source          string  `json:"source"`
	Engine          string  `json:"engine,omitempty"`
	Score           float64 `json:"score,omitempty"`
	Rank            int     `json:"rank"`
	IsFeatured      bool    `json:"isFeatured,omitempty"`
	IsInstantAnswer bool    `json:"isInstantAnswer,omitempty"`
	PublishedDate   string  `json:"publishedDate,omitempty"`
}

// Pinnable reports whether the result may be pinned ahead of every other result.
func (r Result) Pinnable() bool {
	return r.IsInstantAnswer || r.IsFeatured
}

type Response struct {
	Query       string   `json:"query"`
	Provider    string   `json:"provider"`
	Results     []Result `json:"results"`
	Total       int      `json:"total"`
	Suggestions []string `json:"suggestions,omitempty"`
	Instance    string   `json:"instance,omitempty"`
	Note        string   `json:"note,omitempty"`
}

type Provider interface {
	Name() string
	Search(ctx context.Context, query Query) (Response, error)
}
