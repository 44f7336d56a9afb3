package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/labeleval/internal/label"
	"github.com/sells-group/labeleval/internal/orchestrator"
	"github.com/sells-group/labeleval/internal/prompt"
	"github.com/sells-group/labeleval/internal/provider"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)
var _ prompt.Source = (*SQLiteStore)(nil)

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS evaluations (
	id                TEXT PRIMARY KEY,
	image_name        TEXT NOT NULL,
	mime_type         TEXT NOT NULL,
	product_name      TEXT,
	total_duration_ms INTEGER NOT NULL DEFAULT 0,
	success_count     INTEGER NOT NULL DEFAULT 0,
	failure_count     INTEGER NOT NULL DEFAULT 0,
	created_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS ai_results (
	id             TEXT PRIMARY KEY,
	evaluation_id  TEXT NOT NULL REFERENCES evaluations(id),
	provider       TEXT NOT NULL,
	success        INTEGER NOT NULL DEFAULT 0,
	extracted_data TEXT,
	raw_response   TEXT,
	error_message  TEXT,
	start_time     DATETIME NOT NULL,
	end_time       DATETIME NOT NULL,
	duration_ms    INTEGER NOT NULL DEFAULT 0,
	tokens_used    INTEGER,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS prompts (
	id          TEXT PRIMARY KEY,
	provider    TEXT NOT NULL DEFAULT '',
	prompt_type TEXT NOT NULL,
	content     TEXT NOT NULL,
	active      INTEGER NOT NULL DEFAULT 1,
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_evaluations_created_at ON evaluations(created_at);
CREATE INDEX IF NOT EXISTS idx_ai_results_evaluation_id ON ai_results(evaluation_id);
CREATE INDEX IF NOT EXISTS idx_ai_results_provider ON ai_results(provider);
CREATE INDEX IF NOT EXISTS idx_prompts_lookup ON prompts(provider, prompt_type, active);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run *orchestrator.Run, imageName, mimeType string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO evaluations (id, image_name, mime_type, product_name, total_duration_ms, success_count, failure_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.EvaluationID, imageName, mimeType, productNameOf(run),
		run.TotalDurationMS, run.SuccessCount, run.FailureCount, now,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert evaluation")
	}

	for _, r := range run.Results {
		var dataJSON sql.NullString
		if r.Data != nil {
			encoded, err := json.Marshal(r.Data)
			if err != nil {
				return eris.Wrapf(err, "sqlite: marshal %s data", r.Provider)
			}
			dataJSON = sql.NullString{String: string(encoded), Valid: true}
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO ai_results (id, evaluation_id, provider, success, extracted_data, raw_response, error_message, start_time, end_time, duration_ms, tokens_used, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), run.EvaluationID, string(r.Provider), r.Success,
			dataJSON, r.RawResponse, r.Error,
			r.StartTime.UTC(), r.EndTime.UTC(), r.DurationMS, r.TokensUsed, now,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert %s result", r.Provider)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit run")
}

func (s *SQLiteStore) GetEvaluation(ctx context.Context, evaluationID string) (*Evaluation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, image_name, mime_type, product_name, total_duration_ms, success_count, failure_count, created_at
		 FROM evaluations WHERE id = ?`,
		evaluationID,
	)

	var e Evaluation
	var productName sql.NullString
	err := row.Scan(&e.ID, &e.ImageName, &e.MimeType, &productName,
		&e.TotalDurationMS, &e.SuccessCount, &e.FailureCount, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("evaluation not found: %s", evaluationID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get evaluation")
	}
	e.ProductName = productName.String
	return &e, nil
}

func (s *SQLiteStore) ListEvaluations(ctx context.Context, filter EvaluationFilter) ([]Evaluation, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, image_name, mime_type, product_name, total_duration_ms, success_count, failure_count, created_at
		 FROM evaluations ORDER BY created_at DESC LIMIT ?`
	args := []any{limit}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list evaluations")
	}
	defer rows.Close()

	var out []Evaluation
	for rows.Next() {
		var e Evaluation
		var productName sql.NullString
		if err := rows.Scan(&e.ID, &e.ImageName, &e.MimeType, &productName,
			&e.TotalDurationMS, &e.SuccessCount, &e.FailureCount, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan evaluation")
		}
		e.ProductName = productName.String
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list evaluations iterate")
}

func (s *SQLiteStore) GetResults(ctx context.Context, evaluationID string) ([]provider.Result, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT provider, success, extracted_data, raw_response, error_message, start_time, end_time, duration_ms, tokens_used
		 FROM ai_results WHERE evaluation_id = ? ORDER BY provider`,
		evaluationID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get results")
	}
	defer rows.Close()

	var out []provider.Result
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: get results iterate")
}

func (s *SQLiteStore) ActivePrompt(ctx context.Context, providerName string, promptType prompt.Type) (string, error) {
	// A provider-specific prompt beats the blank catch-all row.
	row := s.db.QueryRowContext(ctx,
		`SELECT content FROM prompts
		 WHERE (provider = ? OR provider = '') AND prompt_type = ? AND active = 1
		 ORDER BY provider DESC, updated_at DESC LIMIT 1`,
		providerName, string(promptType),
	)

	var content string
	err := row.Scan(&content)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrap(err, "sqlite: active prompt")
	}
	return content, nil
}

func (s *SQLiteStore) SetPrompt(ctx context.Context, providerName string, promptType prompt.Type, content string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx,
		`UPDATE prompts SET active = 0 WHERE provider = ? AND prompt_type = ?`,
		providerName, string(promptType),
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: deactivate prompts")
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO prompts (id, provider, prompt_type, content, active, updated_at) VALUES (?, ?, ?, ?, 1, ?)`,
		uuid.New().String(), providerName, string(promptType), content, time.Now().UTC(),
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert prompt")
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit prompt")
}

// SeedPrompts inserts the built-in default prompts as catch-all rows when
// no active row exists for a prompt type. Existing rows are never touched.
func (s *SQLiteStore) SeedPrompts(ctx context.Context) error {
	for _, t := range []prompt.Type{prompt.TypeExtraction, prompt.TypeFormulation} {
		var n int
		err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM prompts WHERE provider = '' AND prompt_type = ? AND active = 1`,
			string(t),
		).Scan(&n)
		if err != nil {
			return eris.Wrapf(err, "sqlite: count %s prompts", t)
		}
		if n > 0 {
			continue
		}

		_, err = s.db.ExecContext(ctx,
			`INSERT INTO prompts (id, provider, prompt_type, content, active, updated_at) VALUES (?, '', ?, ?, 1, ?)`,
			uuid.New().String(), string(t), prompt.Default(t), time.Now().UTC(),
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: seed %s prompt", t)
		}
	}
	return nil
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanResult(row scannable) (*provider.Result, error) {
	var r provider.Result
	var providerName string
	var dataJSON, rawResponse, errorMessage sql.NullString
	var tokensUsed sql.NullInt64

	err := row.Scan(&providerName, &r.Success, &dataJSON, &rawResponse, &errorMessage,
		&r.StartTime, &r.EndTime, &r.DurationMS, &tokensUsed)
	if err != nil {
		return nil, eris.Wrap(err, "store: scan result")
	}

	r.Provider = provider.ID(providerName)
	r.RawResponse = rawResponse.String
	r.Error = errorMessage.String
	r.TokensUsed = int(tokensUsed.Int64)

	if dataJSON.Valid && dataJSON.String != "" {
		r.Data = &label.ExtractedData{}
		if err := json.Unmarshal([]byte(dataJSON.String), r.Data); err != nil {
			return nil, eris.Wrap(err, "store: unmarshal extracted data")
		}
	}
	return &r, nil
}
