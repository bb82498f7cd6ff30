package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type SearxngProvider struct {
	instances *Endpoints
	apiKey    string
	client    *http.Client
}

// NewSearxngProvider walks instances in order (from a random start) until one
// answers. Each instance gets the full timeout.
func NewSearxngProvider(instances []string, apiKey string, timeout time.Duration) *SearxngProvider {
	return newSearxngProvider(NewEndpoints(instances, WithRandomStart()), apiKey, timeout)
}

func newSearxngProvider(instances *Endpoints, apiKey string, timeout time.Duration) *SearxngProvider {
	return &SearxngProvider{
		instances: instances,
		apiKey:    strings.TrimSpace(apiKey),
		client:    newHTTPClient(timeout),
	}
}

func (p *SearxngProvider) Name() string {
	return ProviderSearxng
}

type searxngResponse struct {
	Results []struct {
		Title         string  `json:"title"`
		URL           string  `json:"url"`
		Content       string  `json:"content"`
		PublishedDate string  `json:"publishedDate"`
		Engine        string  `json:"engine"`
		Score         float64 `json:"score"`
	} `json:"results"`
	NumberOfResults float64  `json:"number_of_results"`
	Suggestions     []string `json:"suggestions"`
}

func (p *SearxngProvider) Search(ctx context.Context, query Query) (Response, error) {
	if p.instances.Len() == 0 {
		return Response{}, NewTypedError(ErrorTypeConfig, fmt.Errorf("searxng instances are missing"))
	}
	q := query.Normalize()

	var payload searxngResponse
	instance, err := p.instances.Try(ctx, func(ctx context.Context, endpoint string) error {
		target, err := searxngURL(endpoint, q)
		if err != nil {
			return err
		}
		header := http.Header{}
		if p.apiKey != "" {
			header.Set("Authorization", "Bearer "+p.apiKey)
		}
		payload = searxngResponse{}
		return getJSON(ctx, p.client, ProviderSearxng, target, header, &payload)
	})
	if err != nil {
		return Response{}, err
	}

	items := make([]Result, 0, len(payload.Results))
	for _, row := range payload.Results {
		items = append(items, Result{
			Title:         row.Title,
			URL:           row.URL,
			Content:       row.Content,
			Engine:        strings.TrimSpace(row.Engine),
			Score:         row.Score,
			PublishedDate: strings.TrimSpace(row.PublishedDate),
		})
	}

	out := Response{
		Query:       q.Query,
		Provider:    ProviderSearxng,
		Results:     finalize(items, ProviderSearxng, q.Count),
		Suggestions: payload.Suggestions,
		Instance:    instance,
	}
	out.Total = int(payload.NumberOfResults)
	if out.Total < len(out.Results) {
		out.Total = len(out.Results)
	}
	if len(out.Results) == 0 {
		out.Note = "No public web results found"
	}
	return out, nil
}

func searxngURL(endpoint string, q Query) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", NewTypedError(ErrorTypeUnknown, fmt.Errorf("invalid searxng instance: %w", err))
	}
	if strings.TrimSpace(u.Path) == "" || strings.TrimSpace(u.Path) == "/" {
		u.Path = "/search"
	}
	params := u.Query()
	params.Set("q", q.Query)
	params.Set("format", "json")
	params.Set("pageno", strconv.Itoa(q.Page))
	if q.Language != "" {
		params.Set("language", q.Language)
	}
	u.RawQuery = params.Encode()
	return u.String(), nil
}
