package provider

import (
	"context"
	"encoding/base64"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/labeleval/internal/prompt"
	"github.com/sells-group/labeleval/internal/recovery"
	"github.com/sells-group/labeleval/internal/resilience"
	"github.com/sells-group/labeleval/internal/timing"
)

// callResult is what a provider raw-call function returns: the model's
// text answer and the token count, if the provider reports one.
type callResult struct {
	text   string
	tokens int
}

// callFunc packages an image and prompt into one provider's request and
// unwraps the response envelope to plain text. It is the only
// provider-specific part of the pipeline; SDK types never leak past it.
type callFunc func(ctx context.Context, imageB64, mimeType, promptText string) (callResult, error)

// pipeline runs the shared analysis flow: config check, prompt fetch,
// retry-wrapped timed call, cleaning, structured recovery, validation.
// Each adapter embeds one and supplies its raw-call function.
type pipeline struct {
	id       ID
	display  string
	settings Settings
	prompts  *prompt.Cache
	call     callFunc
}

func (p *pipeline) Name() ID            { return p.id }
func (p *pipeline) DisplayName() string { return p.display }

func (p *pipeline) IsConfigured() bool {
	return p.settings.APIKey != ""
}

// Analyze implements the Service contract. It never returns an error;
// every stage failure becomes a Result with Success=false and a
// human-readable Error.
func (p *pipeline) Analyze(ctx context.Context, image []byte, mimeType string) Result {
	start := time.Now()

	if !p.IsConfigured() {
		return Result{
			Provider:  p.id,
			Error:     p.display + " API key not configured",
			StartTime: start,
			EndTime:   start,
		}
	}

	promptText := p.prompts.Get(ctx, string(p.id), prompt.TypeExtraction)
	imageB64 := base64.StdEncoding.EncodeToString(image)

	timeout := p.settings.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	retryCfg := resilience.DefaultRetryConfig()
	retryCfg.OnRetry = resilience.RetryLogger(string(p.id), "analyze")

	res, span, err := timing.Measure(func() (callResult, error) {
		return resilience.DoVal(callCtx, retryCfg, func(ctx context.Context) (callResult, error) {
			return p.call(ctx, imageB64, mimeType, promptText)
		})
	})
	if err != nil {
		zap.L().Warn("provider call failed",
			zap.String("provider", string(p.id)),
			zap.Duration("duration", span.Duration),
			zap.Error(err),
		)
		return Result{
			Provider:   p.id,
			Error:      err.Error(),
			StartTime:  span.Start,
			EndTime:    span.End,
			DurationMS: span.Duration.Milliseconds(),
		}
	}

	cleaned := recovery.Clean(res.text)
	data, ok := recovery.Recover(cleaned)
	if !ok {
		return Result{
			Provider:    p.id,
			Error:       "failed to parse JSON response",
			RawResponse: res.text,
			StartTime:   span.Start,
			EndTime:     span.End,
			DurationMS:  span.Duration.Milliseconds(),
			TokensUsed:  res.tokens,
		}
	}

	if err := recovery.Validate(data); err != nil {
		// Keep the partially-recovered data for diagnostics.
		return Result{
			Provider:    p.id,
			Error:       "extracted data missing required fields",
			Data:        data,
			RawResponse: res.text,
			StartTime:   span.Start,
			EndTime:     span.End,
			DurationMS:  span.Duration.Milliseconds(),
			TokensUsed:  res.tokens,
		}
	}

	zap.L().Debug("provider analysis complete",
		zap.String("provider", string(p.id)),
		zap.Duration("duration", span.Duration),
		zap.Int("tokens", res.tokens),
	)

	return Result{
		Provider:    p.id,
		Success:     true,
		Data:        data,
		RawResponse: res.text,
		StartTime:   span.Start,
		EndTime:     span.End,
		DurationMS:  span.Duration.Milliseconds(),
		TokensUsed:  res.tokens,
	}
}
