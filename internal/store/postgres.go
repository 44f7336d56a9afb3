package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/labeleval/internal/label"
	"github.com/sells-group/labeleval/internal/orchestrator"
	"github.com/sells-group/labeleval/internal/prompt"
	"github.com/sells-group/labeleval/internal/provider"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// for unit tests.
type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

var _ Store = (*PostgresStore)(nil)
var _ prompt.Source = (*PostgresStore)(nil)

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS evaluations (
	id                TEXT PRIMARY KEY,
	image_name        TEXT NOT NULL,
	mime_type         TEXT NOT NULL,
	product_name      TEXT,
	total_duration_ms BIGINT NOT NULL DEFAULT 0,
	success_count     INTEGER NOT NULL DEFAULT 0,
	failure_count     INTEGER NOT NULL DEFAULT 0,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS ai_results (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	evaluation_id  TEXT NOT NULL REFERENCES evaluations(id),
	provider       TEXT NOT NULL,
	success        BOOLEAN NOT NULL DEFAULT false,
	extracted_data JSONB,
	raw_response   TEXT,
	error_message  TEXT,
	start_time     TIMESTAMPTZ NOT NULL,
	end_time       TIMESTAMPTZ NOT NULL,
	duration_ms    BIGINT NOT NULL DEFAULT 0,
	tokens_used    INTEGER,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS prompts (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	provider    TEXT NOT NULL DEFAULT '',
	prompt_type TEXT NOT NULL,
	content     TEXT NOT NULL,
	active      BOOLEAN NOT NULL DEFAULT true,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_evaluations_created_at ON evaluations(created_at);
CREATE INDEX IF NOT EXISTS idx_ai_results_evaluation_id ON ai_results(evaluation_id);
CREATE INDEX IF NOT EXISTS idx_ai_results_provider ON ai_results(provider);
CREATE INDEX IF NOT EXISTS idx_prompts_lookup ON prompts(provider, prompt_type, active);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveRun(ctx context.Context, run *orchestrator.Run, imageName, mimeType string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	now := time.Now().UTC()
	_, err = tx.Exec(ctx,
		`INSERT INTO evaluations (id, image_name, mime_type, product_name, total_duration_ms, success_count, failure_count, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.EvaluationID, imageName, mimeType, productNameOf(run),
		run.TotalDurationMS, run.SuccessCount, run.FailureCount, now,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: insert evaluation")
	}

	for _, r := range run.Results {
		var dataJSON []byte
		if r.Data != nil {
			dataJSON, err = json.Marshal(r.Data)
			if err != nil {
				return eris.Wrapf(err, "postgres: marshal %s data", r.Provider)
			}
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO ai_results (id, evaluation_id, provider, success, extracted_data, raw_response, error_message, start_time, end_time, duration_ms, tokens_used, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			uuid.New().String(), run.EvaluationID, string(r.Provider), r.Success,
			dataJSON, r.RawResponse, r.Error,
			r.StartTime.UTC(), r.EndTime.UTC(), r.DurationMS, r.TokensUsed, now,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert %s result", r.Provider)
		}
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit run")
}

func (s *PostgresStore) GetEvaluation(ctx context.Context, evaluationID string) (*Evaluation, error) {
	var e Evaluation
	var productName *string

	err := s.pool.QueryRow(ctx,
		`SELECT id, image_name, mime_type, product_name, total_duration_ms, success_count, failure_count, created_at
		 FROM evaluations WHERE id = $1`,
		evaluationID,
	).Scan(&e.ID, &e.ImageName, &e.MimeType, &productName,
		&e.TotalDurationMS, &e.SuccessCount, &e.FailureCount, &e.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, eris.Errorf("evaluation not found: %s", evaluationID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get evaluation")
	}
	if productName != nil {
		e.ProductName = *productName
	}
	return &e, nil
}

func (s *PostgresStore) ListEvaluations(ctx context.Context, filter EvaluationFilter) ([]Evaluation, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, image_name, mime_type, product_name, total_duration_ms, success_count, failure_count, created_at
		 FROM evaluations ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, filter.Offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list evaluations")
	}
	defer rows.Close()

	var out []Evaluation
	for rows.Next() {
		var e Evaluation
		var productName *string
		if err := rows.Scan(&e.ID, &e.ImageName, &e.MimeType, &productName,
			&e.TotalDurationMS, &e.SuccessCount, &e.FailureCount, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan evaluation")
		}
		if productName != nil {
			e.ProductName = *productName
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list evaluations iterate")
}

func (s *PostgresStore) GetResults(ctx context.Context, evaluationID string) ([]provider.Result, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT provider, success, extracted_data, raw_response, error_message, start_time, end_time, duration_ms, tokens_used
		 FROM ai_results WHERE evaluation_id = $1 ORDER BY provider`,
		evaluationID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get results")
	}
	defer rows.Close()

	var out []provider.Result
	for rows.Next() {
		var r provider.Result
		var providerName string
		var dataJSON []byte
		var rawResponse, errorMessage *string
		var tokensUsed *int

		if err := rows.Scan(&providerName, &r.Success, &dataJSON, &rawResponse, &errorMessage,
			&r.StartTime, &r.EndTime, &r.DurationMS, &tokensUsed); err != nil {
			return nil, eris.Wrap(err, "postgres: scan result")
		}

		r.Provider = provider.ID(providerName)
		if rawResponse != nil {
			r.RawResponse = *rawResponse
		}
		if errorMessage != nil {
			r.Error = *errorMessage
		}
		if tokensUsed != nil {
			r.TokensUsed = *tokensUsed
		}
		if len(dataJSON) > 0 {
			r.Data = &label.ExtractedData{}
			if err := json.Unmarshal(dataJSON, r.Data); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal extracted data")
			}
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: get results iterate")
}

func (s *PostgresStore) ActivePrompt(ctx context.Context, providerName string, promptType prompt.Type) (string, error) {
	// A provider-specific prompt beats the blank catch-all row.
	var content string
	err := s.pool.QueryRow(ctx,
		`SELECT content FROM prompts
		 WHERE (provider = $1 OR provider = '') AND prompt_type = $2 AND active
		 ORDER BY provider DESC, updated_at DESC LIMIT 1`,
		providerName, string(promptType),
	).Scan(&content)
	if err == pgx.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrap(err, "postgres: active prompt")
	}
	return content, nil
}

func (s *PostgresStore) SetPrompt(ctx context.Context, providerName string, promptType prompt.Type, content string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	_, err = tx.Exec(ctx,
		`UPDATE prompts SET active = false WHERE provider = $1 AND prompt_type = $2`,
		providerName, string(promptType),
	)
	if err != nil {
		return eris.Wrap(err, "postgres: deactivate prompts")
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO prompts (id, provider, prompt_type, content, active, updated_at) VALUES ($1, $2, $3, $4, true, $5)`,
		uuid.New().String(), providerName, string(promptType), content, time.Now().UTC(),
	)
	if err != nil {
		return eris.Wrap(err, "postgres: insert prompt")
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit prompt")
}

// SeedPrompts inserts the built-in default prompts as catch-all rows when
// no active row exists for a prompt type. Existing rows are never touched.
func (s *PostgresStore) SeedPrompts(ctx context.Context) error {
	for _, t := range []prompt.Type{prompt.TypeExtraction, prompt.TypeFormulation} {
		var n int
		err := s.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM prompts WHERE provider = '' AND prompt_type = $1 AND active`,
			string(t),
		).Scan(&n)
		if err != nil {
			return eris.Wrapf(err, "postgres: count %s prompts", t)
		}
		if n > 0 {
			continue
		}

		_, err = s.pool.Exec(ctx,
			`INSERT INTO prompts (id, provider, prompt_type, content, active, updated_at) VALUES ($1, '', $2, $3, true, $4)`,
			uuid.New().String(), string(t), prompt.Default(t), time.Now().UTC(),
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: seed %s prompt", t)
		}
	}
	return nil
}
