package main

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"

	"github.com/sells-group/labeleval/internal/prompt"
	"github.com/sells-group/labeleval/internal/provider"
	"github.com/sells-group/labeleval/internal/store"
)

// initStore opens the configured database and applies migrations.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.New(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	if err := st.SeedPrompts(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "seed prompts")
	}
	return st, nil
}

// buildRegistry wires all five provider adapters against a prompt cache
// backed by the store. Unconfigured providers register but report as such.
func buildRegistry(ctx context.Context, st store.Store) *provider.Registry {
	prompts := prompt.NewCache(st, prompt.WithTTL(cfg.Prompt.CacheTTL()))

	reg := provider.NewRegistry()
	reg.Register(provider.NewGemini(cfg.Gemini.Settings(), prompts, nil))
	reg.Register(provider.NewGroq(cfg.Groq.Settings(), prompts, nil))
	reg.Register(provider.NewClaude(cfg.Claude.Settings(), prompts))
	reg.Register(provider.NewOpenAI(cfg.OpenAI.Settings(), prompts))

	var visionSvc *vision.Service
	if cfg.CloudVision.APIKey != "" {
		svc, err := vision.NewService(ctx, option.WithAPIKey(cfg.CloudVision.APIKey))
		if err != nil {
			zap.L().Warn("cloud vision init failed, provider disabled", zap.Error(err))
		} else {
			visionSvc = svc
		}
	}
	reg.Register(provider.NewCloudVision(cfg.CloudVision.Settings(), prompts, visionSvc))

	return reg
}

// splitCommaList splits a comma-separated value, dropping blanks.
func splitCommaList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// parseProviders maps comma-separated provider names onto known IDs.
func parseProviders(names []string) ([]provider.ID, error) {
	if len(names) == 0 {
		return nil, nil
	}
	known := make(map[provider.ID]bool, len(provider.All()))
	for _, id := range provider.All() {
		known[id] = true
	}

	var out []provider.ID
	for _, name := range names {
		id := provider.ID(name)
		if !known[id] {
			return nil, eris.Errorf("unknown provider: %s", name)
		}
		out = append(out, id)
	}
	return out, nil
}
