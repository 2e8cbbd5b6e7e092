package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAIConfig configures an OpenAI-compatible Oracle. BaseURL lets this
// point at any OpenAI-compatible endpoint, so the same client also serves
// third-party gateways that speak the OpenAI wire format.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// OpenAIOracle implements Oracle via Chat Completions' JSON response-format
// mode.
type OpenAIOracle struct {
	client *openai.Client
	model  string
}

func NewOpenAIOracle(cfg OpenAIConfig) (*OpenAIOracle, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("oracle: openai API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if strings.TrimSpace(cfg.BaseURL) != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &OpenAIOracle{client: openai.NewClientWithConfig(clientConfig), model: model}, nil
}

func (o *OpenAIOracle) GenerateJSON(ctx context.Context, systemPrompt, userPrompt string, schema json.RawMessage, temperature float64, maxTokens int) (json.RawMessage, error) {
	system := systemPrompt + "\n\nRespond with ONLY a single JSON object matching this schema, no prose:\n" + string(schema)

	messages := []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleSystem, Content: system}}
	if strings.TrimSpace(userPrompt) != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: userPrompt})
	} else {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: "Generate the JSON now."})
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:          o.model,
		Messages:       messages,
		Temperature:    float32(temperature),
		MaxTokens:      maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOracle, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrOracle)
	}
	raw := extractJSONObject(resp.Choices[0].Message.Content)
	if raw == "" {
		return nil, fmt.Errorf("%w: no JSON object in response", ErrOracle)
	}
	return json.RawMessage(raw), nil
}
