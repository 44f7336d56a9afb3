package provider

import (
	"context"

	"github.com/sells-group/labeleval/internal/prompt"
	"github.com/sells-group/labeleval/pkg/groq"
)

type groqService struct {
	pipeline
	client groq.Client
}

// NewGroq creates the Groq adapter. If client is nil one is built from the
// settings.
func NewGroq(settings Settings, prompts *prompt.Cache, client groq.Client) Service {
	if client == nil && settings.APIKey != "" {
		var opts []groq.Option
		if settings.Model != "" {
			opts = append(opts, groq.WithModel(settings.Model))
		}
		client = groq.NewClient(settings.APIKey, opts...)
	}

	s := &groqService{client: client}
	s.pipeline = pipeline{
		id:       Groq,
		display:  "Groq (Llama 4)",
		settings: settings,
		prompts:  prompts,
		call:     s.callAPI,
	}
	return s
}

func (s *groqService) callAPI(ctx context.Context, imageB64, mimeType, promptText string) (callResult, error) {
	temp := s.settings.Temperature
	maxTokens := s.settings.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	imageURL := "data:" + mimeType + ";base64," + imageB64

	resp, err := s.client.ChatCompletion(ctx, groq.ChatCompletionRequest{
		Model: s.settings.Model,
		Messages: []groq.Message{
			{
				Role: "user",
				Content: []groq.ContentPart{
					{Type: "image_url", ImageURL: &groq.ImageURL{URL: imageURL}},
					{Type: "text", Text: promptText},
				},
			},
		},
		Temperature:    &temp,
		MaxTokens:      &maxTokens,
		ResponseFormat: &groq.ResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return callResult{}, err
	}

	out := callResult{tokens: resp.Usage.TotalTokens}
	if len(resp.Choices) > 0 {
		out.text = resp.Choices[0].Message.Content
	}
	return out, nil
}
