package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/labeleval/internal/label"
	"github.com/sells-group/labeleval/internal/orchestrator"
	"github.com/sells-group/labeleval/internal/prompt"
	"github.com/sells-group/labeleval/internal/provider"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func testRun(id string) *orchestrator.Run {
	now := time.Now().UTC()
	return &orchestrator.Run{
		EvaluationID:    id,
		TotalDurationMS: 1234,
		SuccessCount:    1,
		FailureCount:    1,
		Results: []provider.Result{
			{
				Provider:    provider.Claude,
				Success:     true,
				Data:        &label.ExtractedData{ProductName: "Aspirin", Brand: "Bayer"},
				RawResponse: `{"product_name":"Aspirin"}`,
				StartTime:   now,
				EndTime:     now.Add(900 * time.Millisecond),
				DurationMS:  900,
				TokensUsed:  321,
			},
			{
				Provider:  provider.Groq,
				Success:   false,
				Error:     "429 too many requests",
				StartTime: now,
				EndTime:   now.Add(100 * time.Millisecond),
			},
		},
	}
}

func TestSQLite_MigrateIsIdempotent(t *testing.T) {
	s := newTestSQLite(t)
	assert.NoError(t, s.Migrate(context.Background()))
}

func TestSQLite_SaveAndGetRun(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.SaveRun(ctx, testRun("eval-1"), "label.png", "image/png"))

	e, err := s.GetEvaluation(ctx, "eval-1")
	require.NoError(t, err)
	assert.Equal(t, "label.png", e.ImageName)
	assert.Equal(t, "image/png", e.MimeType)
	assert.Equal(t, "Aspirin", e.ProductName)
	assert.Equal(t, int64(1234), e.TotalDurationMS)
	assert.Equal(t, 1, e.SuccessCount)
	assert.Equal(t, 1, e.FailureCount)

	results, err := s.GetResults(ctx, "eval-1")
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Ordered by provider name: claude before groq.
	claude := results[0]
	assert.Equal(t, provider.Claude, claude.Provider)
	assert.True(t, claude.Success)
	require.NotNil(t, claude.Data)
	assert.Equal(t, "Aspirin", claude.Data.ProductName)
	assert.Equal(t, "Bayer", claude.Data.Brand)
	assert.Equal(t, int64(900), claude.DurationMS)
	assert.Equal(t, 321, claude.TokensUsed)

	groq := results[1]
	assert.Equal(t, provider.Groq, groq.Provider)
	assert.False(t, groq.Success)
	assert.Nil(t, groq.Data)
	assert.Equal(t, "429 too many requests", groq.Error)
}

func TestSQLite_GetEvaluation_NotFound(t *testing.T) {
	s := newTestSQLite(t)
	_, err := s.GetEvaluation(context.Background(), "missing")
	assert.Error(t, err)
}

func TestSQLite_GetResults_Empty(t *testing.T) {
	s := newTestSQLite(t)
	results, err := s.GetResults(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSQLite_ListEvaluations(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	for _, id := range []string{"eval-1", "eval-2", "eval-3"} {
		require.NoError(t, s.SaveRun(ctx, testRun(id), id+".png", "image/png"))
	}

	all, err := s.ListEvaluations(ctx, EvaluationFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	limited, err := s.ListEvaluations(ctx, EvaluationFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestSQLite_ActivePrompt_EmptyWhenUnseeded(t *testing.T) {
	s := newTestSQLite(t)
	content, err := s.ActivePrompt(context.Background(), "claude", prompt.TypeExtraction)
	require.NoError(t, err)
	assert.Empty(t, content)
}

func TestSQLite_SeedPrompts(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.SeedPrompts(ctx))

	content, err := s.ActivePrompt(ctx, "claude", prompt.TypeExtraction)
	require.NoError(t, err)
	assert.Equal(t, prompt.ExtractionPrompt, content)

	// Seeding again must not duplicate or overwrite.
	require.NoError(t, s.SeedPrompts(ctx))
	content, err = s.ActivePrompt(ctx, "claude", prompt.TypeFormulation)
	require.NoError(t, err)
	assert.Equal(t, prompt.FormulationPrompt, content)
}

func TestSQLite_SetPrompt_ProviderOverridesCatchAll(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.SetPrompt(ctx, "", prompt.TypeExtraction, "catch-all text"))
	require.NoError(t, s.SetPrompt(ctx, "gemini", prompt.TypeExtraction, "gemini text"))

	got, err := s.ActivePrompt(ctx, "gemini", prompt.TypeExtraction)
	require.NoError(t, err)
	assert.Equal(t, "gemini text", got)

	got, err = s.ActivePrompt(ctx, "claude", prompt.TypeExtraction)
	require.NoError(t, err)
	assert.Equal(t, "catch-all text", got)
}

func TestSQLite_SetPrompt_ReplacesActiveRevision(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.SetPrompt(ctx, "gemini", prompt.TypeExtraction, "v1"))
	require.NoError(t, s.SetPrompt(ctx, "gemini", prompt.TypeExtraction, "v2"))

	got, err := s.ActivePrompt(ctx, "gemini", prompt.TypeExtraction)
	require.NoError(t, err)
	assert.Equal(t, "v2", got)
}

func TestSQLite_PromptSourceContract(t *testing.T) {
	s := newTestSQLite(t)
	require.NoError(t, s.SeedPrompts(context.Background()))

	cache := prompt.NewCache(s)
	got := cache.Get(context.Background(), "claude", prompt.TypeExtraction)
	assert.Equal(t, prompt.ExtractionPrompt, got)
}
