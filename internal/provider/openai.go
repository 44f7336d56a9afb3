package provider

import (
	"context"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/sells-group/labeleval/internal/prompt"
)

const defaultOpenAIModel = "gpt-4o-mini"

type openAIService struct {
	pipeline
	client oai.Client
}

// NewOpenAI creates the OpenAI adapter, with optional extra SDK options
// (tests point the SDK at a fake server).
func NewOpenAI(settings Settings, prompts *prompt.Cache, sdkOpts ...option.RequestOption) Service {
	opts := append([]option.RequestOption{option.WithAPIKey(settings.APIKey)}, sdkOpts...)

	s := &openAIService{client: oai.NewClient(opts...)}
	s.pipeline = pipeline{
		id:       OpenAI,
		display:  "OpenAI (GPT-4o)",
		settings: settings,
		prompts:  prompts,
		call:     s.callAPI,
	}
	return s
}

func (s *openAIService) callAPI(ctx context.Context, imageB64, mimeType, promptText string) (callResult, error) {
	model := s.settings.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	maxTokens := int64(s.settings.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	imageURL := "data:" + mimeType + ";base64," + imageB64

	resp, err := s.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model: shared.ChatModel(model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.UserMessage([]oai.ChatCompletionContentPartUnionParam{
				oai.ImageContentPart(oai.ChatCompletionContentPartImageImageURLParam{
					URL: imageURL,
					// High detail reads small label text better.
					Detail: "high",
				}),
				oai.TextContentPart(promptText),
			}),
		},
		Temperature: oai.Float(s.settings.Temperature),
		MaxTokens:   oai.Int(maxTokens),
		ResponseFormat: oai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return callResult{}, err
	}

	out := callResult{tokens: int(resp.Usage.TotalTokens)}
	if len(resp.Choices) > 0 {
		out.text = resp.Choices[0].Message.Content
	}
	return out, nil
}
