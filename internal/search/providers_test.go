package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonServer(t *testing.T, status int, body string, check func(r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSearxngProvider_Search(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `{
		"number_of_results": 1234,
		"suggestions": ["golang tutorial"],
		"results": [
			{"title": "The Go Programming Language", "url": "https://go.dev/", "content": "Go is...", "engine": "google", "score": 3.5, "publishedDate": "2024-01-02T00:00:00"},
			{"title": "", "url": "https://golang.org", "content": "", "engine": "bing"},
			{"title": "dup", "url": "https://go.dev", "engine": "bing"},
			{"title": "no link", "url": ""}
		]
	}`, func(r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "golang", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "2", r.URL.Query().Get("pageno"))
		assert.Equal(t, "en", r.URL.Query().Get("language"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
	})

	p := NewSearxngProvider([]string{srv.URL}, "secret", time.Second)
	resp, err := p.Search(context.Background(), Query{Query: " golang ", Page: 2, Language: "EN"})
	require.NoError(t, err)

	assert.Equal(t, ProviderSearxng, resp.Provider)
	assert.Equal(t, srv.URL, resp.Instance)
	assert.Equal(t, 1234, resp.Total)
	assert.Equal(t, []string{"golang tutorial"}, resp.Suggestions)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "The Go Programming Language", resp.Results[0].Title)
	assert.Equal(t, "google", resp.Results[0].Engine)
	assert.Equal(t, 3.5, resp.Results[0].Score)
	assert.Equal(t, ProviderSearxng, resp.Results[0].Source)
	assert.Equal(t, "No title", resp.Results[1].Title)
}

func TestSearxngProvider_FallsBackToNextInstance(t *testing.T) {
	down := jsonServer(t, http.StatusServiceUnavailable, `busy`, nil)
	up := jsonServer(t, http.StatusOK, `{"results":[{"title":"a","url":"https://a.example"}]}`, nil)

	p := newSearxngProvider(NewEndpoints([]string{down.URL, up.URL}), "", time.Second)
	resp, err := p.Search(context.Background(), Query{Query: "a"})
	require.NoError(t, err)
	assert.Equal(t, up.URL, resp.Instance)
	assert.Len(t, resp.Results, 1)
}

func TestSearxngProvider_AllInstancesFail(t *testing.T) {
	limited := jsonServer(t, http.StatusTooManyRequests, `slow down`, nil)

	p := newSearxngProvider(NewEndpoints([]string{limited.URL}), "", time.Second)
	_, err := p.Search(context.Background(), Query{Query: "a"})
	require.Error(t, err)
	assert.Equal(t, ErrorTypeRateLimit, ClassifyError(err))
}

func TestSearxngProvider_NoInstances(t *testing.T) {
	p := NewSearxngProvider(nil, "", time.Second)
	_, err := p.Search(context.Background(), Query{Query: "a"})
	assert.Equal(t, ErrorTypeConfig, ClassifyError(err))
}

func TestDuckDuckGoProvider_Search(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `{
		"Heading": "Cat",
		"AbstractText": "The cat is a domestic species.",
		"AbstractURL": "https://en.wikipedia.org/wiki/Cat",
		"AbstractSource": "Wikipedia",
		"RelatedTopics": [
			{"Text": "Kitten - A young cat", "FirstURL": "https://duckduckgo.com/Kitten"},
			{"Topics": [{"Text": "Lion", "FirstURL": "https://duckduckgo.com/Lion"}]},
			{"Text": "", "FirstURL": "https://duckduckgo.com/empty"}
		]
	}`, func(r *http.Request) {
		assert.Equal(t, "cat", r.URL.Query().Get("q"))
		assert.Equal(t, "1", r.URL.Query().Get("no_html"))
	})

	p := NewDuckDuckGoProvider(srv.URL, time.Second)
	resp, err := p.Search(context.Background(), Query{Query: "cat"})
	require.NoError(t, err)

	require.Len(t, resp.Results, 3)
	assert.True(t, resp.Results[0].IsInstantAnswer)
	assert.Equal(t, "Cat", resp.Results[0].Title)
	assert.Equal(t, "Wikipedia", resp.Results[0].Engine)
	assert.Equal(t, "Kitten", resp.Results[1].Title)
	assert.Equal(t, "A young cat", resp.Results[1].Content)
	assert.False(t, resp.Results[1].IsInstantAnswer)
	assert.Equal(t, "Lion", resp.Results[2].Title)
	assert.Equal(t, "Lion", resp.Results[2].Content)
}

func TestDuckDuckGoProvider_AnswerWithoutAbstract(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `{"Answer": "42", "Redirect": "https://answer.example"}`, nil)

	p := NewDuckDuckGoProvider(srv.URL, time.Second)
	resp, err := p.Search(context.Background(), Query{Query: "meaning of life"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "meaning of life", resp.Results[0].Title)
	assert.Equal(t, "42", resp.Results[0].Content)
	assert.True(t, resp.Results[0].IsInstantAnswer)
}

func TestGoogleProvider_Search(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `{
		"searchInformation": {"totalResults": "5230000"},
		"spelling": {"correctedQuery": "cats"},
		"items": [
			{"title": "Cats.org", "link": "https://cats.org", "snippet": "All about cats",
			 "pagemap": {"metatags": [{"article:published_time": "2024-05-01T10:00:00Z"}]}},
			{"title": "Cat - Wikipedia", "link": "https://en.wikipedia.org/wiki/Cat", "snippet": "..."}
		]
	}`, func(r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "k", q.Get("key"))
		assert.Equal(t, "cx1", q.Get("cx"))
		assert.Equal(t, "10", q.Get("num"))
		assert.Equal(t, "11", q.Get("start"))
	})

	p := NewGoogleProvider(srv.URL, "k", "cx1", time.Second)
	resp, err := p.Search(context.Background(), Query{Query: "catz", Page: 2, Count: 20})
	require.NoError(t, err)

	assert.Equal(t, 5230000, resp.Total)
	assert.Equal(t, []string{"cats"}, resp.Suggestions)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "2024-05-01T10:00:00Z", resp.Results[0].PublishedDate)
	assert.Equal(t, ProviderGoogle, resp.Results[1].Source)
}

func TestGoogleProvider_MissingCredentials(t *testing.T) {
	p := NewGoogleProvider("", "", "", time.Second)
	_, err := p.Search(context.Background(), Query{Query: "x"})
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}

func TestGoogleProvider_Upstream5xx(t *testing.T) {
	srv := jsonServer(t, http.StatusBadGateway, ``, nil)
	p := NewGoogleProvider(srv.URL, "k", "cx", time.Second)
	_, err := p.Search(context.Background(), Query{Query: "x"})
	assert.Equal(t, ErrorTypeUpstream5xx, ClassifyError(err))
}

func TestWikipediaProvider_Search(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `{
		"query": {
			"searchinfo": {"totalhits": 812},
			"search": [
				{"title": "Cat", "pageid": 6678, "snippet": "The <span class=\"searchmatch\">cat</span> (Felis catus) &amp; more", "timestamp": "2024-06-01T12:00:00Z"},
				{"title": "Felis silvestris", "pageid": 1, "snippet": "wild"}
			]
		}
	}`, func(r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "search", q.Get("list"))
		assert.Equal(t, "cat", q.Get("srsearch"))
		assert.Equal(t, "5", q.Get("srlimit"))
		assert.Equal(t, "5", q.Get("sroffset"))
	})

	p := NewWikipediaProvider(srv.URL, "EN", time.Second)
	resp, err := p.Search(context.Background(), Query{Query: "cat", Count: 5, Page: 2})
	require.NoError(t, err)

	assert.Equal(t, 812, resp.Total)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Cat", resp.Results[0].URL)
	assert.Equal(t, "The cat (Felis catus) & more", resp.Results[0].Content)
	assert.Equal(t, "2024-06-01T12:00:00Z", resp.Results[0].PublishedDate)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Felis_silvestris", resp.Results[1].URL)
	assert.Equal(t, ProviderWikipedia, resp.Results[1].Source)
}

func TestWorkerProvider_Search(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `{
		"query": "go",
		"results": [{"title": "Go", "url": "https://go.dev", "content": "c", "engine": "web", "score": 1, "publishedDate": null}],
		"number_of_results": 99,
		"suggestions": [],
		"instance_used": "https://searx.be"
	}`, func(r *http.Request) {
		assert.Equal(t, "go", r.URL.Query().Get("q"))
		assert.Equal(t, "3", r.URL.Query().Get("page"))
	})

	p := NewWorkerProvider([]string{srv.URL}, time.Second)
	resp, err := p.Search(context.Background(), Query{Query: "go", Page: 3})
	require.NoError(t, err)
	assert.Equal(t, 99, resp.Total)
	assert.Equal(t, "https://searx.be", resp.Instance)
	require.Len(t, resp.Results, 1)
	assert.Empty(t, resp.Results[0].PublishedDate)
}

func TestWorkerProvider_FallbackIsFailure(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `{"query":"go","results":[],"number_of_results":0,"error":"Search temporarily unavailable","fallback":true}`, nil)

	p := NewWorkerProvider([]string{srv.URL}, time.Second)
	_, err := p.Search(context.Background(), Query{Query: "go"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Search temporarily unavailable")
	assert.Equal(t, ErrorTypeUpstream5xx, ClassifyError(err))
}

func TestProvider_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	p := NewDuckDuckGoProvider(srv.URL, 50*time.Millisecond)
	_, err := p.Search(context.Background(), Query{Query: "slow"})
	require.Error(t, err)
	assert.Contains(t, []string{ErrorTypeTimeout, ErrorTypeNetwork}, ClassifyError(err))
}
