package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// WorkerProvider talks to a personal search proxy that already fronts SearXNG
// and answers with the proxy response shape.
type WorkerProvider struct {
	endpoints *Endpoints
	client    *http.Client
}

func NewWorkerProvider(endpoints []string, timeout time.Duration) *WorkerProvider {
	return &WorkerProvider{
		endpoints: NewEndpoints(endpoints),
		client:    newHTTPClient(timeout),
	}
}

func (p *WorkerProvider) Name() string {
	return ProviderWorker
}

// ProxyResult is one row of the proxy response shape.
type ProxyResult struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	Engine        string  `json:"engine"`
	Score         float64 `json:"score"`
	PublishedDate *string `json:"publishedDate"`
}

// ProxyResponse is served by the gateway's own proxy endpoint and consumed by
// WorkerProvider, so one gateway can use another as a source.
type ProxyResponse struct {
	Query           string        `json:"query"`
	Results         []ProxyResult `json:"results"`
	NumberOfResults int           `json:"number_of_results"`
	Suggestions     []string      `json:"suggestions"`
	InstanceUsed    string        `json:"instance_used,omitempty"`
	Error           string        `json:"error,omitempty"`
	Fallback        bool          `json:"fallback,omitempty"`
}

func (p *WorkerProvider) Search(ctx context.Context, query Query) (Response, error) {
	if p.endpoints.Len() == 0 {
		return Response{}, NewTypedError(ErrorTypeConfig, fmt.Errorf("worker endpoint is missing"))
	}
	q := query.Normalize()

	var payload ProxyResponse
	_, err := p.endpoints.Try(ctx, func(ctx context.Context, endpoint string) error {
		u, err := url.Parse(endpoint)
		if err != nil {
			return NewTypedError(ErrorTypeUnknown, fmt.Errorf("invalid worker endpoint: %w", err))
		}
		params := u.Query()
		params.Set("q", q.Query)
		params.Set("page", strconv.Itoa(q.Page))
		u.RawQuery = params.Encode()

		payload = ProxyResponse{}
		if err := getJSON(ctx, p.client, ProviderWorker, u.String(), nil, &payload); err != nil {
			return err
		}
		if payload.Fallback {
			detail := strings.TrimSpace(payload.Error)
			if detail == "" {
				detail = "worker answered with fallback"
			}
			return NewTypedError(ErrorTypeUpstream5xx, errors.New(detail))
		}
		return nil
	})
	if err != nil {
		return Response{}, err
	}

	items := make([]Result, 0, len(payload.Results))
	for _, row := range payload.Results {
		item := Result{
			Title:   row.Title,
			URL:     row.URL,
			Content: row.Content,
			Engine:  strings.TrimSpace(row.Engine),
			Score:   row.Score,
		}
		if row.PublishedDate != nil {
			item.PublishedDate = strings.TrimSpace(*row.PublishedDate)
		}
		items = append(items, item)
	}

	out := Response{
		Query:       q.Query,
		Provider:    ProviderWorker,
		Results:     finalize(items, ProviderWorker, q.Count),
		Total:       payload.NumberOfResults,
		Suggestions: payload.Suggestions,
		Instance:    payload.InstanceUsed,
	}
	if out.Total < len(out.Results) {
		out.Total = len(out.Results)
	}
	if len(out.Results) == 0 {
		out.Note = "No public web results found"
	}
	return out, nil
}
