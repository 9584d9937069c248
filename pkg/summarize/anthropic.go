package summarize

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
)

// DefaultAnthropicModel is used when Anthropic.Model is empty.
const DefaultAnthropicModel = "claude-sonnet-4-5"

// Anthropic implements Completer with the Messages API.
type Anthropic struct {
	Client    *anthropic.Client
	Model     string
	MaxTokens int64
}

var _ Completer = (*Anthropic)(nil)

func (a *Anthropic) Name() string { return "anthropic" }

func (a *Anthropic) Complete(ctx context.Context, system, user string, temperature float64) (string, error) {
	model := a.Model
	if model == "" {
		model = DefaultAnthropicModel
	}
	maxTokens := a.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}
	msg, err := a.Client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
		Temperature: anthropic.Float(temperature),
	})
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}
