// Package orchestrator fans an image out to the configured AI vision
// providers and aggregates their per-provider results into a single run.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/labeleval/internal/provider"
)

// Run is the aggregate outcome of one evaluation: every provider's result
// plus tallies. Immutable after the run completes.
type Run struct {
	EvaluationID    string            `json:"evaluation_id"`
	Results         []provider.Result `json:"results"`
	TotalDurationMS int64             `json:"total_duration_ms"`
	SuccessCount    int               `json:"success_count"`
	FailureCount    int               `json:"failure_count"`
}

// Orchestrator holds the provider subset used for analysis requests.
type Orchestrator struct {
	registry *provider.Registry
	services []provider.Service
}

// New creates an orchestrator over an explicit provider subset, or over
// all configured providers when subset is nil. Unknown IDs are skipped.
func New(registry *provider.Registry, subset []provider.ID) *Orchestrator {
	o := &Orchestrator{registry: registry}
	if subset == nil {
		o.services = registry.Configured()
		return o
	}
	for _, id := range subset {
		if s := registry.Get(id); s != nil {
			o.services = append(o.services, s)
		}
	}
	return o
}

// Services returns the providers this orchestrator will run.
func (o *Orchestrator) Services() []provider.Service {
	return o.services
}

// AnalyzeParallel runs every provider concurrently. Each call is
// independently guarded: a panic in one adapter becomes a failure result
// and does not cancel the others. Partial failure is not total failure.
// Results arrive in completion order, not adapter order.
func (o *Orchestrator) AnalyzeParallel(ctx context.Context, image []byte, mimeType, evaluationID string) *Run {
	start := time.Now()

	if len(o.services) == 0 {
		return &Run{EvaluationID: evaluationID, Results: []provider.Result{}}
	}

	var (
		mu      sync.Mutex
		results []provider.Result
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, svc := range o.services {
		g.Go(func() error {
			res := guardedAnalyze(gctx, svc, image, mimeType)
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}
	g.Wait() //nolint:errcheck // goroutines never return errors

	return o.finish(evaluationID, results, start)
}

// AnalyzeSequential runs providers one at a time with a fixed delay
// between calls, preserving adapter order. Used to stay under a shared
// per-minute rate limit; not the default path.
func (o *Orchestrator) AnalyzeSequential(ctx context.Context, image []byte, mimeType, evaluationID string, delay time.Duration) *Run {
	start := time.Now()

	if len(o.services) == 0 {
		return &Run{EvaluationID: evaluationID, Results: []provider.Result{}}
	}

	var limiter *rate.Limiter
	if delay > 0 {
		limiter = rate.NewLimiter(rate.Every(delay), 1)
	}

	results := make([]provider.Result, 0, len(o.services))
	for _, svc := range o.services {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				results = append(results, provider.Result{
					Provider:  svc.Name(),
					Error:     err.Error(),
					StartTime: time.Now(),
					EndTime:   time.Now(),
				})
				continue
			}
		}
		results = append(results, guardedAnalyze(ctx, svc, image, mimeType))
	}

	return o.finish(evaluationID, results, start)
}

// AnalyzeSingle runs one provider by ID. Unknown and unconfigured
// providers come back as failure results, never errors.
func (o *Orchestrator) AnalyzeSingle(ctx context.Context, id provider.ID, image []byte, mimeType string) provider.Result {
	svc := o.registry.Get(id)
	if svc == nil {
		now := time.Now()
		return provider.Result{
			Provider:  id,
			Error:     fmt.Sprintf("unknown provider: %s", id),
			StartTime: now,
			EndTime:   now,
		}
	}
	return guardedAnalyze(ctx, svc, image, mimeType)
}

func (o *Orchestrator) finish(evaluationID string, results []provider.Result, start time.Time) *Run {
	run := &Run{
		EvaluationID:    evaluationID,
		Results:         results,
		TotalDurationMS: time.Since(start).Milliseconds(),
	}
	for _, r := range results {
		if r.Success {
			run.SuccessCount++
		} else {
			run.FailureCount++
		}
	}

	zap.L().Info("orchestrator run complete",
		zap.String("evaluation_id", evaluationID),
		zap.Int("providers", len(results)),
		zap.Int("succeeded", run.SuccessCount),
		zap.Int("failed", run.FailureCount),
		zap.Int64("total_duration_ms", run.TotalDurationMS),
	)

	return run
}

// guardedAnalyze converts an adapter panic into a failure result so one
// misbehaving provider cannot take down the whole run.
func guardedAnalyze(ctx context.Context, svc provider.Service, image []byte, mimeType string) (res provider.Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("provider panicked",
				zap.String("provider", string(svc.Name())),
				zap.Any("panic", r),
			)
			now := time.Now()
			res = provider.Result{
				Provider:   svc.Name(),
				Error:      fmt.Sprintf("provider panic: %v", r),
				StartTime:  start,
				EndTime:    now,
				DurationMS: now.Sub(start).Milliseconds(),
			}
		}
	}()
	return svc.Analyze(ctx, image, mimeType)
}
