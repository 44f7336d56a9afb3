// Package prompt resolves the instruction text sent to each vision
// provider. Prompts live in a queryable store so they can be tuned without
// a deploy; resolution falls back to compiled-in defaults and caches
// whichever text it obtains for a fixed TTL.
package prompt

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Type selects which prompt is being requested.
type Type string

// Prompt types.
const (
	TypeExtraction  Type = "extraction"
	TypeFormulation Type = "formulation"
)

// DefaultTTL is how long a resolved prompt is served before the source is
// consulted again.
const DefaultTTL = 5 * time.Minute

// Source supplies the active prompt text for a (provider, type) pair.
// Returning an empty string with a nil error means "no override stored".
type Source interface {
	ActivePrompt(ctx context.Context, provider string, promptType Type) (string, error)
}

type entry struct {
	text   string
	expiry time.Time
}

// Cache resolves prompts through a Source with TTL caching. Entries are
// replaced whole, so concurrent refreshes for the same key race harmlessly:
// last writer wins and both computed the same answer.
type Cache struct {
	source Source
	ttl    time.Duration
	now    func() time.Time

	entries sync.Map // key string -> entry
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides the default entry TTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithNow injects a clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// NewCache creates a prompt cache over source. A nil source always serves
// the compiled-in defaults.
func NewCache(source Source, opts ...Option) *Cache {
	c := &Cache{
		source: source,
		ttl:    DefaultTTL,
		now:    time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Get returns the active prompt for a (provider, type) pair. Source errors
// and empty results both fall back to the default text; the fallback is
// cached like any other answer so a failing store is not hammered.
func (c *Cache) Get(ctx context.Context, provider string, promptType Type) string {
	key := provider + "/" + string(promptType)

	if v, ok := c.entries.Load(key); ok {
		e := v.(entry)
		if c.now().Before(e.expiry) {
			return e.text
		}
	}

	text := c.resolve(ctx, provider, promptType)
	c.entries.Store(key, entry{text: text, expiry: c.now().Add(c.ttl)})
	return text
}

func (c *Cache) resolve(ctx context.Context, provider string, promptType Type) string {
	if c.source == nil {
		return Default(promptType)
	}

	text, err := c.source.ActivePrompt(ctx, provider, promptType)
	if err != nil {
		zap.L().Warn("prompt source lookup failed, using default",
			zap.String("provider", provider),
			zap.String("prompt_type", string(promptType)),
			zap.Error(err),
		)
		return Default(promptType)
	}
	if text == "" {
		return Default(promptType)
	}
	return text
}

// Default returns the compiled-in prompt text for a type.
func Default(promptType Type) string {
	if promptType == TypeFormulation {
		return FormulationPrompt
	}
	return ExtractionPrompt
}
