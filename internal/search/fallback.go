package search

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// Endpoints is an ordered list of interchangeable upstream base URLs.
type Endpoints struct {
	urls       []string
	attempt    time.Duration
	randomizer func(n int) int
}

type EndpointsOption func(*Endpoints)

// WithAttemptTimeout bounds every single attempt independently of the others.
func WithAttemptTimeout(d time.Duration) EndpointsOption {
	return func(e *Endpoints) {
		e.attempt = d
	}
}

// WithRandomStart rotates the list to a random offset before each walk, so
// load spreads across public instances.
func WithRandomStart() EndpointsOption {
	return func(e *Endpoints) {
		e.randomizer = rand.Intn
	}
}

func withStart(fn func(n int) int) EndpointsOption {
	return func(e *Endpoints) {
		e.randomizer = fn
	}
}

func NewEndpoints(urls []string, opts ...EndpointsOption) *Endpoints {
	cleaned := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimRight(strings.TrimSpace(u), "/")
		if u != "" {
			cleaned = append(cleaned, u)
		}
	}
	e := &Endpoints{urls: cleaned}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Endpoints) Len() int {
	if e == nil {
		return 0
	}
	return len(e.urls)
}

func (e *Endpoints) order() []string {
	out := make([]string, len(e.urls))
	start := 0
	if e.randomizer != nil && len(e.urls) > 1 {
		start = e.randomizer(len(e.urls))
	}
	for i := range e.urls {
		out[i] = e.urls[(start+i)%len(e.urls)]
	}
	return out
}

// Try calls fn for each endpoint in order until one succeeds and returns the
// endpoint that did. Config errors stop the walk since every endpoint would
// fail the same way.
func (e *Endpoints) Try(ctx context.Context, fn func(ctx context.Context, endpoint string) error) (string, error) {
	if e.Len() == 0 {
		return "", NewTypedError(ErrorTypeConfig, errors.New("no endpoints configured"))
	}
	var errs []error
	for _, endpoint := range e.order() {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		err := e.runAttempt(ctx, endpoint, fn)
		if err == nil {
			return endpoint, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", endpoint, err))
		if IsConfigError(err) {
			break
		}
	}
	joined := errors.Join(errs...)
	return "", NewTypedError(ClassifyError(lastErr(errs)), joined)
}

func (e *Endpoints) runAttempt(ctx context.Context, endpoint string, fn func(ctx context.Context, endpoint string) error) error {
	if e.attempt <= 0 {
		return fn(ctx, endpoint)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, e.attempt)
	defer cancel()
	return fn(attemptCtx, endpoint)
}

func lastErr(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return errs[len(errs)-1]
}
