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

// Google Custom Search never returns more than ten items per call.
const googleMaxNum = 10

type GoogleProvider struct {
	endpoint string
	apiKey   string
	cx       string
	client   *http.Client
}

func NewGoogleProvider(endpoint, apiKey, cx string, timeout time.Duration) *GoogleProvider {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = "https://www.googleapis.com/customsearch/v1"
	}
	return &GoogleProvider{
		endpoint: strings.TrimSpace(endpoint),
		apiKey:   strings.TrimSpace(apiKey),
		cx:       strings.TrimSpace(cx),
		client:   newHTTPClient(timeout),
	}
}

func (p *GoogleProvider) Name() string {
	return ProviderGoogle
}

type googleResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
		Pagemap struct {
			Metatags []map[string]string `json:"metatags"`
		} `json:"pagemap"`
	} `json:"items"`
	SearchInformation struct {
		TotalResults string `json:"totalResults"`
	} `json:"searchInformation"`
	Spelling struct {
		CorrectedQuery string `json:"correctedQuery"`
	} `json:"spelling"`
}

func (p *GoogleProvider) Search(ctx context.Context, query Query) (Response, error) {
	if p.apiKey == "" || p.cx == "" {
		return Response{}, NewTypedError(ErrorTypeConfig, fmt.Errorf("google api key or cx is missing"))
	}

	q := query.Normalize()
	u, err := url.Parse(p.endpoint)
	if err != nil {
		return Response{}, NewTypedError(ErrorTypeConfig, fmt.Errorf("invalid google endpoint: %w", err))
	}

	num := min(q.Count, googleMaxNum)
	params := u.Query()
	params.Set("key", p.apiKey)
	params.Set("cx", p.cx)
	params.Set("q", q.Query)
	params.Set("num", strconv.Itoa(num))
	params.Set("start", strconv.Itoa((q.Page-1)*num+1))
	if q.Language != "" {
		params.Set("hl", q.Language)
	}
	if q.Country != "" {
		params.Set("gl", q.Country)
	}
	u.RawQuery = params.Encode()

	var payload googleResponse
	if err := getJSON(ctx, p.client, ProviderGoogle, u.String(), nil, &payload); err != nil {
		return Response{}, err
	}

	items := make([]Result, 0, len(payload.Items))
	for _, row := range payload.Items {
		items = append(items, Result{
			Title:         row.Title,
			URL:           row.Link,
			Content:       row.Snippet,
			PublishedDate: publishedFromMetatags(row.Pagemap.Metatags),
		})
	}

	out := Response{
		Query:    q.Query,
		Provider: ProviderGoogle,
		Results:  finalize(items, ProviderGoogle, num),
	}
	if total, err := strconv.Atoi(strings.TrimSpace(payload.SearchInformation.TotalResults)); err == nil {
		out.Total = total
	}
	if out.Total < len(out.Results) {
		out.Total = len(out.Results)
	}
	if corrected := strings.TrimSpace(payload.Spelling.CorrectedQuery); corrected != "" {
		out.Suggestions = []string{corrected}
	}
	if len(out.Results) == 0 {
		out.Note = "No public web results found"
	}
	return out, nil
}

func publishedFromMetatags(tags []map[string]string) string {
	for _, tag := range tags {
		for _, key := range []string{"article:published_time", "og:updated_time", "date"} {
			if v := strings.TrimSpace(tag[key]); v != "" {
				return v
			}
		}
	}
	return ""
}
