package provider

import (
	"context"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/sells-group/labeleval/internal/prompt"
)

const defaultClaudeModel = "claude-sonnet-4-5-20250929"

type claudeService struct {
	pipeline
	client sdk.Client
}

// NewClaude creates the Anthropic Claude adapter, with optional extra SDK
// options (tests point the SDK at a fake server).
func NewClaude(settings Settings, prompts *prompt.Cache, sdkOpts ...option.RequestOption) Service {
	opts := append([]option.RequestOption{option.WithAPIKey(settings.APIKey)}, sdkOpts...)

	s := &claudeService{client: sdk.NewClient(opts...)}
	s.pipeline = pipeline{
		id:       Claude,
		display:  "Anthropic Claude",
		settings: settings,
		prompts:  prompts,
		call:     s.callAPI,
	}
	return s
}

func (s *claudeService) callAPI(ctx context.Context, imageB64, mimeType, promptText string) (callResult, error) {
	model := s.settings.Model
	if model == "" {
		model = defaultClaudeModel
	}
	maxTokens := int64(s.settings.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	msg, err := s.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(model),
		MaxTokens: maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(
				sdk.NewImageBlockBase64(claudeMediaType(mimeType), imageB64),
				sdk.NewTextBlock(promptText),
			),
		},
	})
	if err != nil {
		return callResult{}, err
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	return callResult{
		text:   sb.String(),
		tokens: int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
	}, nil
}

// claudeMediaType maps arbitrary MIME types onto the media types the
// Anthropic API accepts for images.
func claudeMediaType(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/png":
		return "image/png"
	case "image/gif":
		return "image/gif"
	case "image/webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
