package provider

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/labeleval/internal/prompt"
)

func testPipeline(call callFunc) *pipeline {
	return &pipeline{
		id:       Gemini,
		display:  "Gemini",
		settings: Settings{APIKey: "test-key", Timeout: 5 * time.Second},
		prompts:  prompt.NewCache(nil),
		call:     call,
	}
}

func TestPipeline_Success(t *testing.T) {
	p := testPipeline(func(_ context.Context, _, _, _ string) (callResult, error) {
		return callResult{text: `{"product_name": "Aspirin"}`, tokens: 120}, nil
	})

	res := p.Analyze(context.Background(), []byte("img"), "image/png")
	require.True(t, res.Success)
	require.NotNil(t, res.Data)
	assert.Equal(t, "Aspirin", res.Data.ProductName)
	assert.Equal(t, 120, res.TokensUsed)
	assert.Empty(t, res.Error)
	assert.False(t, res.StartTime.IsZero())
	assert.False(t, res.EndTime.Before(res.StartTime))
}

func TestPipeline_NotConfigured(t *testing.T) {
	p := testPipeline(func(_ context.Context, _, _, _ string) (callResult, error) {
		t.Fatal("call should not happen when unconfigured")
		return callResult{}, nil
	})
	p.settings.APIKey = ""

	res := p.Analyze(context.Background(), []byte("img"), "image/png")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "not configured")
	assert.Equal(t, res.StartTime, res.EndTime)
}

func TestPipeline_PassesBase64ImageAndPrompt(t *testing.T) {
	image := []byte{0x89, 0x50, 0x4e, 0x47}
	var gotImage, gotMime, gotPrompt string

	p := testPipeline(func(_ context.Context, imageB64, mimeType, promptText string) (callResult, error) {
		gotImage, gotMime, gotPrompt = imageB64, mimeType, promptText
		return callResult{text: `{"product_name": "X"}`}, nil
	})

	p.Analyze(context.Background(), image, "image/png")
	assert.Equal(t, base64.StdEncoding.EncodeToString(image), gotImage)
	assert.Equal(t, "image/png", gotMime)
	assert.Equal(t, prompt.ExtractionPrompt, gotPrompt)
}

func TestPipeline_CallErrorBecomesFailureResult(t *testing.T) {
	p := testPipeline(func(_ context.Context, _, _, _ string) (callResult, error) {
		return callResult{}, eris.New("gemini: api request failed")
	})

	res := p.Analyze(context.Background(), []byte("img"), "image/png")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "api request failed")
	assert.Nil(t, res.Data)
}

func TestPipeline_RetriesRateLimits(t *testing.T) {
	var calls int
	p := testPipeline(func(_ context.Context, _, _, _ string) (callResult, error) {
		calls++
		if calls < 2 {
			return callResult{}, eris.New("429 too many requests")
		}
		return callResult{text: `{"product_name": "X"}`}, nil
	})

	res := p.Analyze(context.Background(), []byte("img"), "image/png")
	assert.True(t, res.Success)
	assert.Equal(t, 2, calls)
}

func TestPipeline_UnparsableResponse(t *testing.T) {
	p := testPipeline(func(_ context.Context, _, _, _ string) (callResult, error) {
		return callResult{text: "sorry, I cannot read this image"}, nil
	})

	res := p.Analyze(context.Background(), []byte("img"), "image/png")
	assert.False(t, res.Success)
	assert.Equal(t, "failed to parse JSON response", res.Error)
	assert.Equal(t, "sorry, I cannot read this image", res.RawResponse)
	assert.Nil(t, res.Data)
}

func TestPipeline_RecoversFromNarratedResponse(t *testing.T) {
	p := testPipeline(func(_ context.Context, _, _, _ string) (callResult, error) {
		return callResult{text: "Here is the extracted data:\n```json\n{\"product_name\": \"Advil\"}\n```\n\nNote: the lot number was unreadable."}, nil
	})

	res := p.Analyze(context.Background(), []byte("img"), "image/png")
	require.True(t, res.Success)
	assert.Equal(t, "Advil", res.Data.ProductName)
}

func TestPipeline_MissingRequiredFields(t *testing.T) {
	p := testPipeline(func(_ context.Context, _, _, _ string) (callResult, error) {
		return callResult{text: `{"lot_number": "A123"}`}, nil
	})

	res := p.Analyze(context.Background(), []byte("img"), "image/png")
	assert.False(t, res.Success)
	assert.Equal(t, "extracted data missing required fields", res.Error)
	// Partially-recovered data is kept for diagnostics.
	require.NotNil(t, res.Data)
	assert.Equal(t, "A123", res.Data.LotNumber)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.Register(testPipeline(nil))

	assert.NotNil(t, reg.Get(Gemini))
	assert.Nil(t, reg.Get(Claude))

	status := reg.Status()
	assert.True(t, status[Gemini])
	assert.Len(t, reg.Configured(), 1)
}

func TestAll_CanonicalOrder(t *testing.T) {
	assert.Equal(t, []ID{Gemini, Groq, Claude, OpenAI, CloudVision}, All())
}
