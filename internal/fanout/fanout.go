// Package fanout queries every selected source concurrently and turns each
// failure into an empty list, so one slow or broken upstream never fails or
// blocks the whole search.
package fanout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ymalspace/search-gateway/internal/cache"
	"github.com/ymalspace/search-gateway/internal/metrics"
	"github.com/ymalspace/search-gateway/internal/search"
)

const (
	StateOK     = "ok"
	StateEmpty  = "empty"
	StateCached = "cached"
)

type Config struct {
	// Timeout bounds one source including its retries.
	Timeout         time.Duration
	Retries         int
	RetryInterval   time.Duration
	CacheTTL        time.Duration
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 8 * time.Second
	}
	if c.Retries < 0 {
		c.Retries = 0
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = 200 * time.Millisecond
	}
	if c.BreakerFailures == 0 {
		c.BreakerFailures = 5
	}
	if c.BreakerCooldown <= 0 {
		c.BreakerCooldown = 30 * time.Second
	}
	return c
}

type SourceStatus struct {
	Source      string   `json:"source"`
	State       string   `json:"state"`
	Count       int      `json:"count"`
	Total       int      `json:"total"`
	Instance    string   `json:"instance,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	Error       string   `json:"error,omitempty"`
	DurationMs  int64    `json:"durationMs"`
}

// Failed reports whether the source produced an error rather than results.
func (s SourceStatus) Failed() bool {
	switch s.State {
	case StateOK, StateEmpty, StateCached:
		return false
	}
	return true
}

type Outcome struct {
	// Results has an entry for every queried source; failed sources map to an
	// empty list.
	Results map[string][]search.Result
	Status  map[string]SourceStatus
}

type Fanout struct {
	registry *search.Registry
	cache    cache.Cache
	metrics  *metrics.Metrics
	logger   *zap.Logger
	cfg      Config
	breakers map[string]*gobreaker.CircuitBreaker
}

func New(registry *search.Registry, c cache.Cache, m *metrics.Metrics, logger *zap.Logger, cfg Config) *Fanout {
	if c == nil {
		c = cache.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	f := &Fanout{
		registry: registry,
		cache:    c,
		metrics:  m,
		logger:   logger,
		cfg:      cfg,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
	for _, name := range registry.Names() {
		f.breakers[name] = f.newBreaker(name)
	}
	return f
}

func (f *Fanout) newBreaker(name string) *gobreaker.CircuitBreaker {
	failures := f.cfg.BreakerFailures
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     f.cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || search.IsConfigError(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			f.logger.Warn("source circuit state changed",
				zap.String("source", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

// Fetch queries the requested sources (all registered ones when empty) and
// waits for every one of them to finish or time out.
func (f *Fanout) Fetch(ctx context.Context, query search.Query, sources []string) Outcome {
	q := query.Normalize()
	names := f.registry.Select(sources)
	out := Outcome{
		Results: make(map[string][]search.Result, len(names)),
		Status:  make(map[string]SourceStatus, len(names)),
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	for _, name := range names {
		name := name
		g.Go(func() error {
			results, status := f.fetchOne(ctx, name, q)
			mu.Lock()
			out.Results[name] = results
			out.Status[name] = status
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// BreakerStates reports the circuit state of every source.
func (f *Fanout) BreakerStates() map[string]string {
	out := make(map[string]string, len(f.breakers))
	for name, b := range f.breakers {
		out[name] = b.State().String()
	}
	return out
}

// Order lists the sources present in statuses in registration order.
func (f *Fanout) Order(statuses map[string]SourceStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, name := range f.registry.Names() {
		if _, ok := statuses[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

func (f *Fanout) fetchOne(ctx context.Context, name string, q search.Query) ([]search.Result, SourceStatus) {
	start := time.Now()
	status := SourceStatus{Source: name}

	key := cacheKey(name, q)
	if resp, ok := f.lookup(ctx, key); ok {
		status.State = StateCached
		fillStatus(&status, resp)
		status.DurationMs = time.Since(start).Milliseconds()
		f.metrics.ObserveSource(name, StateCached, time.Since(start))
		return resp.Results, status
	}

	resp, err := f.call(ctx, name, q)
	elapsed := time.Since(start)
	status.DurationMs = elapsed.Milliseconds()
	if err != nil {
		status.State = search.ClassifyError(err)
		status.Error = err.Error()
		f.metrics.ObserveSource(name, status.State, elapsed)
		f.logger.Warn("source failed",
			zap.String("source", name),
			zap.String("query", q.Query),
			zap.String("error_type", status.State),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return []search.Result{}, status
	}

	status.State = StateOK
	if len(resp.Results) == 0 {
		status.State = StateEmpty
	} else {
		f.store(ctx, key, resp)
	}
	fillStatus(&status, resp)
	f.metrics.ObserveSource(name, status.State, elapsed)
	f.logger.Debug("source answered",
		zap.String("source", name),
		zap.Int("results", len(resp.Results)),
		zap.Duration("elapsed", elapsed),
	)
	return resp.Results, status
}

func (f *Fanout) call(ctx context.Context, name string, q search.Query) (search.Response, error) {
	provider, ok := f.registry.Get(name)
	if !ok {
		return search.Response{}, search.NewTypedError(search.ErrorTypeConfig, fmt.Errorf("unknown source %q", name))
	}
	breaker, ok := f.breakers[name]
	if !ok {
		return search.Response{}, search.NewTypedError(search.ErrorTypeConfig, fmt.Errorf("no circuit for source %q", name))
	}

	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	res, err := breaker.Execute(func() (interface{}, error) {
		return f.retry(ctx, provider, q)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return search.Response{}, search.NewTypedError(search.ErrorTypeCircuitOpen, fmt.Errorf("%s: %w", name, err))
	}
	if err != nil {
		return search.Response{}, err
	}
	return res.(search.Response), nil
}

func (f *Fanout) retry(ctx context.Context, provider search.Provider, q search.Query) (search.Response, error) {
	var resp search.Response
	op := func() error {
		r, err := provider.Search(ctx, q)
		if err != nil {
			if !search.Retryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		resp = r
		return nil
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = f.cfg.RetryInterval
	exp.MaxElapsedTime = f.cfg.Timeout
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(f.cfg.Retries)), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return search.Response{}, search.NewTypedError(search.ErrorTypeTimeout, err)
		}
		return search.Response{}, err
	}
	return resp, nil
}

func (f *Fanout) lookup(ctx context.Context, key string) (search.Response, bool) {
	raw, ok, err := f.cache.Get(ctx, key)
	if err != nil {
		f.logger.Warn("cache lookup failed", zap.String("key", key), zap.Error(err))
		f.metrics.ObserveCache(false)
		return search.Response{}, false
	}
	if !ok {
		f.metrics.ObserveCache(false)
		return search.Response{}, false
	}
	var resp search.Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		f.logger.Warn("cache entry unreadable", zap.String("key", key), zap.Error(err))
		f.metrics.ObserveCache(false)
		return search.Response{}, false
	}
	f.metrics.ObserveCache(true)
	return resp, true
}

func (f *Fanout) store(ctx context.Context, key string, resp search.Response) {
	if f.cfg.CacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		f.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := f.cache.Set(ctx, key, raw, f.cfg.CacheTTL); err != nil {
		f.logger.Warn("cache store failed", zap.String("key", key), zap.Error(err))
	}
}

func fillStatus(status *SourceStatus, resp search.Response) {
	status.Count = len(resp.Results)
	status.Total = resp.Total
	status.Instance = resp.Instance
	status.Suggestions = resp.Suggestions
}

func cacheKey(source string, q search.Query) string {
	return strings.Join([]string{
		source,
		strings.ToLower(q.Query),
		strconv.Itoa(q.Page),
		strconv.Itoa(q.Count),
		q.Language,
		q.Country,
	}, "|")
}
