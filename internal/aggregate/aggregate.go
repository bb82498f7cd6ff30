// Package aggregate merges per-source result lists into one deduplicated,
// ranked and paginated sequence. It performs no I/O.
package aggregate

import (
	"sort"
	"strings"

	"github.com/ymalspace/search-gateway/internal/search"
)

// Tier decides which block of the merged list a source's results land in.
type Tier int

const (
	TierEncyclopedia Tier = iota + 1
	TierWeb
	TierOther
)

const DefaultPageSize = 10

const untitled = "No title"

type Request struct {
	// SourceResults maps a source label to that source's results in the order
	// the source returned them. A failed source is an empty or nil list.
	SourceResults map[string][]search.Result
	Page          int
	PageSize      int
}

type Result struct {
	Items      []search.Result `json:"items"`
	Total      int             `json:"total"`
	TotalPages int             `json:"totalPages"`
	Page       int             `json:"page"`
	PageSize   int             `json:"pageSize"`
	// SourcesUsed has an entry for every source that supplied at least one
	// result; the value tells whether any of them survived deduplication.
	SourcesUsed map[string]bool `json:"sourcesUsed"`
}

type Aggregator struct {
	tiers map[string]Tier
	order map[string]int
}

type Option func(*Aggregator)

// WithTier assigns sources to a tier. Sources never assigned are TierOther.
func WithTier(tier Tier, sources ...string) Option {
	return func(a *Aggregator) {
		for _, s := range sources {
			a.tiers[sourceKey(s)] = tier
		}
	}
}

// WithOrder fixes the order of sources sharing a tier. Sources not listed come
// after the listed ones, sorted by name.
func WithOrder(sources ...string) Option {
	return func(a *Aggregator) {
		a.order = make(map[string]int, len(sources))
		for i, s := range sources {
			if _, ok := a.order[sourceKey(s)]; !ok {
				a.order[sourceKey(s)] = i
			}
		}
	}
}

func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		tiers: map[string]Tier{
			search.ProviderWikipedia: TierEncyclopedia,
			search.ProviderGoogle:    TierWeb,
		},
	}
	WithOrder(
		search.ProviderWikipedia,
		search.ProviderGoogle,
		search.ProviderSearxng,
		search.ProviderWorker,
		search.ProviderDuckDuckGo,
	)(a)
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Aggregator) Tier(source string) Tier {
	if tier, ok := a.tiers[sourceKey(source)]; ok {
		return tier
	}
	return TierOther
}

// Aggregate places at most one pinnable result first, then encyclopedia, web
// and remaining sources in that order. A result whose normalized URL was
// already placed is dropped. Ranks are 1-based positions in the merged list;
// the requested page is sliced from it afterwards.
func (a *Aggregator) Aggregate(req Request) Result {
	page := req.Page
	if page < 1 {
		page = 1
	}
	size := req.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}

	sources := a.orderedSources(req.SourceResults)

	capacity := 0
	used := make(map[string]bool, len(sources))
	for _, name := range sources {
		capacity += len(req.SourceResults[name])
		used[name] = false
	}

	merged := make([]search.Result, 0, capacity)
	seen := make(map[string]struct{}, capacity)
	place := func(source string, r search.Result) {
		key := search.NormalizeURL(r.URL)
		if key == "" {
			return
		}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		if strings.TrimSpace(r.Source) == "" {
			r.Source = source
		}
		if strings.TrimSpace(r.Title) == "" {
			r.Title = untitled
		}
		merged = append(merged, r)
		used[source] = true
	}

	pinnedSource, pinnedIdx := a.findPinned(sources, req.SourceResults)
	if pinnedIdx >= 0 {
		place(pinnedSource, req.SourceResults[pinnedSource][pinnedIdx])
	}
	for _, name := range sources {
		for i, r := range req.SourceResults[name] {
			if name == pinnedSource && i == pinnedIdx {
				continue
			}
			place(name, r)
		}
	}

	for i := range merged {
		merged[i].Rank = i + 1
	}

	total := len(merged)
	out := Result{
		Items:       []search.Result{},
		Total:       total,
		TotalPages:  pageCount(total, size),
		Page:        page,
		PageSize:    size,
		SourcesUsed: used,
	}
	if page > out.TotalPages {
		return out
	}
	// page <= TotalPages keeps (page-1)*size below total.
	start := (page - 1) * size
	end := start + min(size, total-start)
	out.Items = append(out.Items, merged[start:end]...)
	return out
}

func pageCount(total, size int) int {
	n := total / size
	if total%size != 0 {
		n++
	}
	return n
}

// findPinned returns the first pinnable result with a usable URL, scanning
// sources in merge order.
func (a *Aggregator) findPinned(sources []string, results map[string][]search.Result) (string, int) {
	for _, name := range sources {
		for i, r := range results[name] {
			if r.Pinnable() && search.NormalizeURL(r.URL) != "" {
				return name, i
			}
		}
	}
	return "", -1
}

// orderedSources lists the non-empty sources by tier, configured order, then name.
func (a *Aggregator) orderedSources(results map[string][]search.Result) []string {
	names := make([]string, 0, len(results))
	for name, list := range results {
		if len(list) == 0 {
			continue
		}
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ti, tj := a.Tier(names[i]), a.Tier(names[j])
		if ti != tj {
			return ti < tj
		}
		oi, oj := a.rank(names[i]), a.rank(names[j])
		if oi != oj {
			return oi < oj
		}
		return names[i] < names[j]
	})
	return names
}

func (a *Aggregator) rank(source string) int {
	if idx, ok := a.order[sourceKey(source)]; ok {
		return idx
	}
	return len(a.order)
}

func sourceKey(source string) string {
	return strings.TrimSpace(strings.ToLower(source))
}
