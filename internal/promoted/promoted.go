// Package promoted serves sponsored entries. They are matched against the raw
// query by trigger keyword and always shown apart from organic results.
package promoted

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Promoted struct {
	ID              string   `json:"id,omitempty" yaml:"id"`
	Title           string   `json:"title" yaml:"title"`
	URL             string   `json:"url" yaml:"url"`
	DisplayURL      string   `json:"display_url,omitempty" yaml:"display_url"`
	Content         string   `json:"content" yaml:"content"`
	TriggerKeywords []string `json:"trigger_keywords" yaml:"trigger_keywords"`
	BidAmount       float64  `json:"bid_amount,omitempty" yaml:"bid_amount"`
}

// Matches reports whether any non-blank trigger keyword occurs in query,
// ignoring case.
func (p Promoted) Matches(query string) bool {
	q := strings.ToLower(query)
	for _, kw := range p.TriggerKeywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

// Document is the on-disk and object-store layout.
type Document struct {
	PromotedResults []Promoted `json:"promoted_results" yaml:"promoted_results"`
}

type Loader interface {
	Load(ctx context.Context) ([]Promoted, error)
}

// StaticLoader returns a fixed list.
type StaticLoader []Promoted

func (s StaticLoader) Load(context.Context) ([]Promoted, error) {
	return append([]Promoted(nil), s...), nil
}

// Catalog holds the current promoted inventory. Reads never block on a reload
// and a failed reload keeps the previous inventory.
type Catalog struct {
	loader Loader
	logger *zap.Logger

	mu       sync.RWMutex
	entries  []Promoted
	loadedAt time.Time
}

func NewCatalog(loader Loader, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{loader: loader, logger: logger}
}

func (c *Catalog) Reload(ctx context.Context) (int, error) {
	if c.loader == nil {
		return 0, nil
	}
	entries, err := c.loader.Load(ctx)
	if err != nil {
		c.logger.Warn("promoted reload failed, keeping previous inventory", zap.Error(err))
		return c.Len(), err
	}
	kept := make([]Promoted, 0, len(entries))
	for _, e := range entries {
		if strings.TrimSpace(e.URL) == "" || strings.TrimSpace(e.Title) == "" {
			continue
		}
		kept = append(kept, e)
	}

	c.mu.Lock()
	c.entries = kept
	c.loadedAt = time.Now()
	c.mu.Unlock()

	c.logger.Info("promoted inventory loaded", zap.Int("entries", len(kept)))
	return len(kept), nil
}

// Run reloads every interval until ctx is done.
func (c *Catalog) Run(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = c.Reload(ctx)
		}
	}
}

// Match returns the entries triggered by query in inventory order.
func (c *Catalog) Match(query string) []Promoted {
	out := []Promoted{}
	if strings.TrimSpace(query) == "" {
		return out
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, e := range c.entries {
		if e.Matches(query) {
			out = append(out, e)
		}
	}
	return out
}

func (c *Catalog) All() []Promoted {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Promoted{}, c.entries...)
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Catalog) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}
