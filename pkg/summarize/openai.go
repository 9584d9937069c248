package summarize

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/param"
)

// OpenAI implements Completer and Extractor with chat completions.
type OpenAI struct {
	Client *openai.Client
	Model  string
}

var (
	_ Completer = (*OpenAI)(nil)
	_ Extractor = (*OpenAI)(nil)
)

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) model() string {
	if o.Model != "" {
		return o.Model
	}
	return DefaultStructuredModel
}

func (o *OpenAI) Complete(ctx context.Context, system, user string, temperature float64) (string, error) {
	resp, err := o.Client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: o.model(),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: param.NewOpt(temperature),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAI) Extract(ctx context.Context, system, user string, schema *jsonschema.Schema, out any) error {
	resp, err := o.Client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: o.model(),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "team",
					Schema: strictSchema(schema.CloneSchemas()),
					Strict: param.NewOpt(true),
				},
			},
		},
	})
	if err != nil {
		return err
	}
	if len(resp.Choices) == 0 {
		return ErrEmptyResponse
	}
	msg := resp.Choices[0].Message
	if msg.Refusal != "" {
		return &refusalError{msg.Refusal}
	}
	return decodeJSON(msg.Content, out)
}

type refusalError struct{ reason string }

func (e *refusalError) Error() string { return "model refused: " + e.reason }
