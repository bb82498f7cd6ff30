package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

type WikipediaProvider struct {
	endpoint string
	lang     string
	client   *http.Client
}

// NewWikipediaProvider queries the MediaWiki search API. An empty endpoint is
// derived from lang.
func NewWikipediaProvider(endpoint, lang string, timeout time.Duration) *WikipediaProvider {
	lang = strings.TrimSpace(strings.ToLower(lang))
	if lang == "" {
		lang = "en"
	}
	if strings.TrimSpace(endpoint) == "" {
		endpoint = fmt.Sprintf("https://%s.wikipedia.org/w/api.php", lang)
	}
	return &WikipediaProvider{
		endpoint: strings.TrimSpace(endpoint),
		lang:     lang,
		client:   newHTTPClient(timeout),
	}
}

func (p *WikipediaProvider) Name() string {
	return ProviderWikipedia
}

type wikipediaResponse struct {
	Query struct {
		SearchInfo struct {
			TotalHits  int    `json:"totalhits"`
			Suggestion string `json:"suggestion"`
		} `json:"searchinfo"`
		Search []struct {
			Title     string `json:"title"`
			PageID    int    `json:"pageid"`
			Snippet   string `json:"snippet"`
			Timestamp string `json:"timestamp"`
		} `json:"search"`
	} `json:"query"`
}

func (p *WikipediaProvider) Search(ctx context.Context, query Query) (Response, error) {
	q := query.Normalize()
	u, err := url.Parse(p.endpoint)
	if err != nil {
		return Response{}, NewTypedError(ErrorTypeConfig, fmt.Errorf("invalid wikipedia endpoint: %w", err))
	}

	params := u.Query()
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", q.Query)
	params.Set("srlimit", strconv.Itoa(q.Count))
	params.Set("sroffset", strconv.Itoa((q.Page-1)*q.Count))
	params.Set("srinfo", "totalhits|suggestion")
	params.Set("format", "json")
	u.RawQuery = params.Encode()

	var payload wikipediaResponse
	if err := getJSON(ctx, p.client, ProviderWikipedia, u.String(), nil, &payload); err != nil {
		return Response{}, err
	}

	items := make([]Result, 0, len(payload.Query.Search))
	for _, row := range payload.Query.Search {
		title := strings.TrimSpace(row.Title)
		if title == "" {
			continue
		}
		items = append(items, Result{
			Title:         title,
			URL:           p.articleURL(title),
			Content:       stripHTML(row.Snippet),
			Engine:        "Wikipedia",
			PublishedDate: strings.TrimSpace(row.Timestamp),
		})
	}

	out := Response{
		Query:    q.Query,
		Provider: ProviderWikipedia,
		Results:  finalize(items, ProviderWikipedia, q.Count),
		Total:    payload.Query.SearchInfo.TotalHits,
	}
	if out.Total < len(out.Results) {
		out.Total = len(out.Results)
	}
	if s := strings.TrimSpace(payload.Query.SearchInfo.Suggestion); s != "" {
		out.Suggestions = []string{s}
	}
	if len(out.Results) == 0 {
		out.Note = "No encyclopedia articles found"
	}
	return out, nil
}

func (p *WikipediaProvider) articleURL(title string) string {
	slug := strings.ReplaceAll(title, " ", "_")
	return fmt.Sprintf("https://%s.wikipedia.org/wiki/%s", p.lang, url.PathEscape(slug))
}

// stripHTML drops the highlight markup MediaWiki puts into search snippets.
func stripHTML(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return strings.TrimSpace(fragment)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
