package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type DuckDuckGoProvider struct {
	endpoint string
	client   *http.Client
}

func NewDuckDuckGoProvider(endpoint string, timeout time.Duration) *DuckDuckGoProvider {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = "https://api.duckduckgo.com/"
	}
	return &DuckDuckGoProvider{
		endpoint: strings.TrimSpace(endpoint),
		client:   newHTTPClient(timeout),
	}
}

func (p *DuckDuckGoProvider) Name() string {
	return ProviderDuckDuckGo
}

type duckResponse struct {
	Heading        string      `json:"Heading"`
	AbstractText   string      `json:"AbstractText"`
	AbstractURL    string      `json:"AbstractURL"`
	AbstractSource string      `json:"AbstractSource"`
	Answer         string      `json:"Answer"`
	Redirect       string      `json:"Redirect"`
	RelatedTopics  []duckTopic `json:"RelatedTopics"`
}

type duckTopic struct {
	Text     string      `json:"Text"`
	FirstURL string      `json:"FirstURL"`
	Topics   []duckTopic `json:"Topics"`
}

func (p *DuckDuckGoProvider) Search(ctx context.Context, query Query) (Response, error) {
	q := query.Normalize()
	u, err := url.Parse(p.endpoint)
	if err != nil {
		return Response{}, NewTypedError(ErrorTypeConfig, fmt.Errorf("invalid duckduckgo endpoint: %w", err))
	}
	params := u.Query()
	params.Set("q", q.Query)
	params.Set("format", "json")
	params.Set("no_html", "1")
	params.Set("skip_disambig", "1")
	u.RawQuery = params.Encode()

	var payload duckResponse
	if err := getJSON(ctx, p.client, ProviderDuckDuckGo, u.String(), nil, &payload); err != nil {
		return Response{}, err
	}

	items := make([]Result, 0, q.Count+1)
	if answer, ok := instantAnswer(payload, q.Query); ok {
		items = append(items, answer)
	}
	collectDuckTopics(&items, payload.RelatedTopics)

	out := Response{
		Query:    q.Query,
		Provider: ProviderDuckDuckGo,
		Results:  finalize(items, ProviderDuckDuckGo, q.Count),
	}
	out.Total = len(out.Results)
	if out.Total == 0 {
		out.Note = "No instant answer found"
	}
	return out, nil
}

// instantAnswer builds the single pinnable result from the abstract, falling
// back to the direct answer when the abstract is empty.
func instantAnswer(payload duckResponse, query string) (Result, bool) {
	link := strings.TrimSpace(payload.AbstractURL)
	if link == "" {
		link = strings.TrimSpace(payload.Redirect)
	}
	text := strings.TrimSpace(payload.AbstractText)
	if text == "" {
		text = strings.TrimSpace(payload.Answer)
	}
	if text == "" || link == "" {
		return Result{}, false
	}
	title := strings.TrimSpace(payload.Heading)
	if title == "" {
		title = query
	}
	return Result{
		Title:           title,
		URL:             link,
		Content:         text,
		Engine:          strings.TrimSpace(payload.AbstractSource),
		IsInstantAnswer: true,
	}, true
}

func collectDuckTopics(items *[]Result, topics []duckTopic) {
	for _, topic := range topics {
		if len(topic.Topics) > 0 {
			collectDuckTopics(items, topic.Topics)
			continue
		}
		text := strings.TrimSpace(topic.Text)
		link := strings.TrimSpace(topic.FirstURL)
		if text == "" || link == "" {
			continue
		}
		title, desc := splitDuckText(text)
		*items = append(*items, Result{
			Title:   title,
			URL:     link,
			Content: desc,
		})
	}
}

func splitDuckText(text string) (string, string) {
	parts := strings.SplitN(text, " - ", 2)
	if len(parts) == 2 {
		title := strings.TrimSpace(parts[0])
		desc := strings.TrimSpace(parts[1])
		if title == "" {
			title = strings.TrimSpace(text)
		}
		if desc == "" {
			desc = strings.TrimSpace(text)
		}
		return title, desc
	}
	t := strings.TrimSpace(text)
	return t, t
}
