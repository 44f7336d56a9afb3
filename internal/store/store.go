// Package store persists evaluations, per-provider results, and prompt
// revisions behind a driver-agnostic interface.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/labeleval/internal/orchestrator"
	"github.com/sells-group/labeleval/internal/prompt"
	"github.com/sells-group/labeleval/internal/provider"
)

// Evaluation is the stored summary row for one orchestrator run.
type Evaluation struct {
	ID              string    `json:"id"`
	ImageName       string    `json:"image_name"`
	MimeType        string    `json:"mime_type"`
	ProductName     string    `json:"product_name,omitempty"`
	TotalDurationMS int64     `json:"total_duration_ms"`
	SuccessCount    int       `json:"success_count"`
	FailureCount    int       `json:"failure_count"`
	CreatedAt       time.Time `json:"created_at"`
}

// EvaluationFilter specifies criteria for listing evaluations.
type EvaluationFilter struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Prompt is one stored prompt revision. An empty Provider applies to all
// providers; a named provider overrides the blank row.
type Prompt struct {
	ID        string      `json:"id"`
	Provider  string      `json:"provider,omitempty"`
	Type      prompt.Type `json:"type"`
	Content   string      `json:"content"`
	Active    bool        `json:"active"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Store defines the persistence interface for evaluation runs. It also
// satisfies prompt.Source so the prompt cache can resolve stored prompts.
type Store interface {
	// Evaluations
	SaveRun(ctx context.Context, run *orchestrator.Run, imageName, mimeType string) error
	GetEvaluation(ctx context.Context, evaluationID string) (*Evaluation, error)
	ListEvaluations(ctx context.Context, filter EvaluationFilter) ([]Evaluation, error)
	GetResults(ctx context.Context, evaluationID string) ([]provider.Result, error)

	// Prompts
	ActivePrompt(ctx context.Context, providerName string, promptType prompt.Type) (string, error)
	SetPrompt(ctx context.Context, providerName string, promptType prompt.Type, content string) error
	SeedPrompts(ctx context.Context) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Config selects and configures the backing database.
type Config struct {
	Driver string      `yaml:"driver" mapstructure:"driver"`
	DSN    string      `yaml:"dsn" mapstructure:"dsn"`
	Pool   *PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// New opens a Store for the configured driver. SQLite is the default.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "labeleval.db"
		}
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, cfg.DSN, cfg.Pool)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

// productNameOf pulls a display name for the evaluation row from the
// first successful result that extracted one.
func productNameOf(run *orchestrator.Run) string {
	for _, r := range run.Results {
		if r.Success && r.Data != nil && r.Data.ProductName != "" {
			return r.Data.ProductName
		}
	}
	return ""
}
