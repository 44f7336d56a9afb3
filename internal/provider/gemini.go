package provider

import (
	"context"

	"github.com/sells-group/labeleval/internal/prompt"
	"github.com/sells-group/labeleval/pkg/gemini"
)

type geminiService struct {
	pipeline
	client gemini.Client
}

// NewGemini creates the Google Gemini adapter. If client is nil one is
// built from the settings.
func NewGemini(settings Settings, prompts *prompt.Cache, client gemini.Client) Service {
	if client == nil && settings.APIKey != "" {
		var opts []gemini.Option
		if settings.Model != "" {
			opts = append(opts, gemini.WithModel(settings.Model))
		}
		client = gemini.NewClient(settings.APIKey, opts...)
	}

	s := &geminiService{client: client}
	s.pipeline = pipeline{
		id:       Gemini,
		display:  "Google Gemini",
		settings: settings,
		prompts:  prompts,
		call:     s.callAPI,
	}
	return s
}

func (s *geminiService) callAPI(ctx context.Context, imageB64, mimeType, promptText string) (callResult, error) {
	temp := s.settings.Temperature
	maxTokens := s.settings.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	resp, err := s.client.GenerateContent(ctx, gemini.GenerateContentRequest{
		Model: s.settings.Model,
		Contents: []gemini.Content{
			{
				Parts: []gemini.Part{
					{Text: promptText},
					{InlineData: &gemini.InlineData{MIMEType: mimeType, Data: imageB64}},
				},
			},
		},
		GenerationConfig: &gemini.GenerationConfig{
			Temperature:     &temp,
			MaxOutputTokens: &maxTokens,
		},
	})
	if err != nil {
		return callResult{}, err
	}

	out := callResult{text: resp.Text()}
	if resp.UsageMetadata != nil {
		out.tokens = resp.UsageMetadata.TotalTokenCount
	}
	return out, nil
}
