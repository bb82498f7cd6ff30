package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const defaultTimeout = 8 * time.Second

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// getJSON issues a GET against rawURL and decodes a 2xx body into out.
func getJSON(ctx context.Context, client *http.Client, provider, rawURL string, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return NewTypedError(ErrorTypeConfig, fmt.Errorf("create %s request failed: %w", provider, err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	res, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return NewTypedError(ErrorTypeTimeout, fmt.Errorf("%s request timed out: %w", provider, err))
		}
		return NewTypedError(ErrorTypeNetwork, fmt.Errorf("%s request failed: %w", provider, err))
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return statusError(provider, res)
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return NewTypedError(ErrorTypeUnknown, fmt.Errorf("decode %s response failed: %w", provider, err))
	}
	return nil
}
