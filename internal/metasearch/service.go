// Package metasearch runs one user search end to end: fan out to the sources,
// merge their results, attach promoted entries and shape the page.
package metasearch

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ymalspace/search-gateway/internal/aggregate"
	"github.com/ymalspace/search-gateway/internal/fanout"
	"github.com/ymalspace/search-gateway/internal/metrics"
	"github.com/ymalspace/search-gateway/internal/present"
	"github.com/ymalspace/search-gateway/internal/promoted"
	"github.com/ymalspace/search-gateway/internal/search"
)

var ErrEmptyQuery = errors.New("query is required")

const (
	outcomeOK     = "ok"
	outcomeEmpty  = "empty"
	outcomeFailed = "failed"

	unavailable = "Search temporarily unavailable"
)

type Config struct {
	PageSize    int
	MaxPageSize int
	// PerSource is how many results each source is asked for. Every page is
	// cut from the same merged list, so this bounds the total result count.
	PerSource int
	// ProxySources feed the proxy-compatible endpoint.
	ProxySources []string
}

func (c Config) withDefaults() Config {
	if c.PageSize <= 0 {
		c.PageSize = aggregate.DefaultPageSize
	}
	if c.MaxPageSize <= 0 {
		c.MaxPageSize = search.MaxCount
	}
	if c.PageSize > c.MaxPageSize {
		c.PageSize = c.MaxPageSize
	}
	if c.PerSource <= 0 {
		c.PerSource = 2 * search.DefaultCount
	}
	if len(c.ProxySources) == 0 {
		c.ProxySources = []string{search.ProviderSearxng}
	}
	return c
}

type Request struct {
	Query    string
	Page     int
	PageSize int
	Sources  []string
	Language string
}

type Page struct {
	Query       string                         `json:"query"`
	Items       []present.Item                 `json:"items"`
	Promoted    []promoted.Promoted            `json:"promoted"`
	Total       int                            `json:"total"`
	TotalLabel  string                         `json:"totalLabel"`
	TotalPages  int                            `json:"totalPages"`
	Page        int                            `json:"page"`
	PageSize    int                            `json:"pageSize"`
	SourcesUsed map[string]bool                `json:"sourcesUsed"`
	Sources     map[string]fanout.SourceStatus `json:"sources"`
	Suggestions []string                       `json:"suggestions,omitempty"`
	Window      aggregate.Window               `json:"window"`
	ElapsedMs   int64                          `json:"elapsedMs"`
}

type Service struct {
	fanout     *fanout.Fanout
	aggregator *aggregate.Aggregator
	catalog    *promoted.Catalog
	metrics    *metrics.Metrics
	logger     *zap.Logger
	cfg        Config
	now        func() time.Time
}

func New(f *fanout.Fanout, agg *aggregate.Aggregator, catalog *promoted.Catalog, m *metrics.Metrics, logger *zap.Logger, cfg Config) *Service {
	if agg == nil {
		agg = aggregate.New()
	}
	if catalog == nil {
		catalog = promoted.NewCatalog(nil, logger)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		fanout:     f,
		aggregator: agg,
		catalog:    catalog,
		metrics:    m,
		logger:     logger,
		cfg:        cfg.withDefaults(),
		now:        time.Now,
	}
}

func (s *Service) Catalog() *promoted.Catalog {
	return s.catalog
}

func (s *Service) BreakerStates() map[string]string {
	return s.fanout.BreakerStates()
}

// Search answers one results page. Upstream failures never fail the search;
// they show up as source statuses and as missing results.
func (s *Service) Search(ctx context.Context, req Request) (Page, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return Page{}, ErrEmptyQuery
	}
	start := s.now()
	page := max(req.Page, 1)
	size := req.PageSize
	if size <= 0 {
		size = s.cfg.PageSize
	}
	size = min(size, s.cfg.MaxPageSize)

	outcome := s.fanout.Fetch(ctx, search.Query{
		Query:    query,
		Count:    s.cfg.PerSource,
		Page:     1,
		Language: req.Language,
	}, req.Sources)

	merged := s.aggregator.Aggregate(aggregate.Request{
		SourceResults: outcome.Results,
		Page:          page,
		PageSize:      size,
	})

	elapsed := s.now().Sub(start)
	result := searchOutcome(merged.Total, outcome.Status)
	s.metrics.ObserveSearch(result, elapsed)
	s.logger.Info("search served",
		zap.String("outcome", result),
		zap.Int("page", page),
		zap.Int("total", merged.Total),
		zap.Int("sources", len(outcome.Status)),
		zap.Duration("elapsed", elapsed),
	)

	return Page{
		Query:       query,
		Items:       present.Items(merged.Items, s.now()),
		Promoted:    s.catalog.Match(query),
		Total:       merged.Total,
		TotalLabel:  present.Count(merged.Total),
		TotalPages:  merged.TotalPages,
		Page:        merged.Page,
		PageSize:    merged.PageSize,
		SourcesUsed: merged.SourcesUsed,
		Sources:     outcome.Status,
		Suggestions: suggestions(outcome.Status, s.fanout.Order(outcome.Status)),
		Window:      aggregate.NewWindow(merged.Page, merged.TotalPages),
		ElapsedMs:   elapsed.Milliseconds(),
	}, nil
}

// Proxy answers in the single-backend proxy shape so older clients and other
// gateways (through WorkerProvider) can consume this one.
func (s *Service) Proxy(ctx context.Context, query string, page int) (search.ProxyResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return search.ProxyResponse{}, ErrEmptyQuery
	}
	start := s.now()
	outcome := s.fanout.Fetch(ctx, search.Query{
		Query: query,
		Count: s.cfg.PerSource,
		Page:  max(page, 1),
	}, s.cfg.ProxySources)

	merged := s.aggregator.Aggregate(aggregate.Request{
		SourceResults: outcome.Results,
		Page:          1,
		PageSize:      max(1, s.cfg.PerSource*len(outcome.Results)),
	})

	result := searchOutcome(merged.Total, outcome.Status)
	s.metrics.ObserveSearch(result, s.now().Sub(start))

	resp := search.ProxyResponse{
		Query:       query,
		Results:     make([]search.ProxyResult, 0, len(merged.Items)),
		Suggestions: []string{},
	}
	if result == outcomeFailed {
		resp.Error = unavailable
		resp.Fallback = true
		return resp, nil
	}

	for _, it := range merged.Items {
		var published *string
		if it.PublishedDate != "" {
			d := it.PublishedDate
			published = &d
		}
		resp.Results = append(resp.Results, search.ProxyResult{
			Title:         it.Title,
			URL:           it.URL,
			Content:       it.Content,
			Engine:        firstNonEmpty(it.Engine, "web"),
			Score:         it.Score,
			PublishedDate: published,
		})
	}
	order := s.fanout.Order(outcome.Status)
	for _, name := range order {
		st := outcome.Status[name]
		resp.NumberOfResults = max(resp.NumberOfResults, st.Total)
		if resp.InstanceUsed == "" {
			resp.InstanceUsed = st.Instance
		}
	}
	resp.NumberOfResults = max(resp.NumberOfResults, len(resp.Results))
	if sugg := suggestions(outcome.Status, order); len(sugg) > 0 {
		resp.Suggestions = sugg
	}
	return resp, nil
}

// searchOutcome is "failed" only when every queried source failed.
func searchOutcome(total int, statuses map[string]fanout.SourceStatus) string {
	if total > 0 {
		return outcomeOK
	}
	if len(statuses) == 0 {
		return outcomeFailed
	}
	for _, st := range statuses {
		if !st.Failed() {
			return outcomeEmpty
		}
	}
	return outcomeFailed
}

func suggestions(statuses map[string]fanout.SourceStatus, order []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, name := range order {
		for _, sugg := range statuses[name].Suggestions {
			key := strings.ToLower(strings.TrimSpace(sugg))
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, strings.TrimSpace(sugg))
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
