package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicConfig configures an Anthropic-backed Oracle.
type AnthropicConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// AnthropicOracle implements Oracle against Anthropic's Messages API,
// instructing the model (via system prompt + a forced JSON preamble) to
// return a single JSON object and nothing else. Modeled on the
// AnthropicProvider client-construction pattern, narrowed to a single
// non-streaming call since generate_json never needs incremental tokens.
type AnthropicOracle struct {
	client anthropic.Client
	model  string
}

func NewAnthropicOracle(cfg AnthropicConfig) (*AnthropicOracle, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("oracle: anthropic API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = "claude-3-5-haiku-20241022"
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &AnthropicOracle{client: anthropic.NewClient(opts...), model: model}, nil
}

func (o *AnthropicOracle) GenerateJSON(ctx context.Context, systemPrompt, userPrompt string, schema json.RawMessage, temperature float64, maxTokens int) (json.RawMessage, error) {
	system := systemPrompt + "\n\nRespond with ONLY a single JSON object matching this schema, no prose, no markdown fences:\n" + string(schema)

	userContent := userPrompt
	if strings.TrimSpace(userContent) == "" {
		userContent = "Generate the JSON now."
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(o.model),
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(temperature),
		System:      []anthropic.TextBlockParam{{Text: system}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(userContent))},
	}

	msg, err := o.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOracle, err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	raw := extractJSONObject(text.String())
	if raw == "" {
		return nil, fmt.Errorf("%w: no JSON object in response", ErrOracle)
	}
	return json.RawMessage(raw), nil
}

// extractJSONObject trims any surrounding prose or markdown fences a model
// might add despite instructions, returning the first balanced {...} span.
func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
