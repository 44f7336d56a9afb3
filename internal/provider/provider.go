// Package provider defines the uniform contract over the AI vision
// backends and the shared analysis pipeline every adapter runs through.
package provider

import (
	"context"
	"sync"
	"time"

	"github.com/sells-group/labeleval/internal/label"
)

// ID identifies one AI vision backend.
type ID string

// Known providers.
const (
	Gemini      ID = "gemini"
	Groq        ID = "groq"
	Claude      ID = "claude"
	OpenAI      ID = "openai"
	CloudVision ID = "cloudvision"
)

// All lists every known provider in canonical order.
func All() []ID {
	return []ID{Gemini, Groq, Claude, OpenAI, CloudVision}
}

// Result is one provider's outcome for one image. It is immutable once
// produced; exactly one is created per (evaluation, provider) attempt.
// JSON field names match the persisted contract.
type Result struct {
	Provider    ID                   `json:"provider"`
	Success     bool                 `json:"success"`
	Data        *label.ExtractedData `json:"data,omitempty"`
	RawResponse string               `json:"raw_response,omitempty"`
	Error       string               `json:"error,omitempty"`
	StartTime   time.Time            `json:"start_time"`
	EndTime     time.Time            `json:"end_time"`
	DurationMS  int64                `json:"duration_ms"`
	TokensUsed  int                  `json:"tokens_used,omitempty"`
}

// Service is the uniform contract every provider adapter implements.
// Analyze never returns an error: all failures are captured in the Result.
type Service interface {
	// Name returns the provider identifier.
	Name() ID
	// DisplayName returns a human-readable provider name.
	DisplayName() string
	// IsConfigured reports whether the required credential is present.
	IsConfigured() bool
	// Analyze runs the full extraction pipeline on an image.
	Analyze(ctx context.Context, image []byte, mimeType string) Result
}

// Settings holds the per-provider knobs every adapter shares.
type Settings struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// DefaultTimeout bounds a single provider call (including retries) so one
// slow backend cannot dominate a parallel run.
const DefaultTimeout = 120 * time.Second

// Registry maps provider IDs to adapter instances. It is constructed once
// at startup and passed where needed; tests substitute fakes.
type Registry struct {
	mu       sync.RWMutex
	services map[ID]Service
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{services: make(map[ID]Service)}
}

// Register adds a service to the registry.
func (r *Registry) Register(s Service) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[s.Name()] = s
}

// Get returns a service by ID, or nil if not registered.
func (r *Registry) Get(id ID) Service {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.services[id]
}

// Configured returns the registered services with credentials present, in
// canonical provider order.
func (r *Registry) Configured() []Service {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Service
	for _, id := range All() {
		if s, ok := r.services[id]; ok && s.IsConfigured() {
			out = append(out, s)
		}
	}
	return out
}

// Status reports configuration state per registered provider.
func (r *Registry) Status() map[ID]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[ID]bool, len(r.services))
	for id, s := range r.services {
		out[id] = s.IsConfigured()
	}
	return out
}
