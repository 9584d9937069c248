package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/genai"
)

// DefaultGeminiModel is used when Gemini.Model is empty.
const DefaultGeminiModel = "gemini-2.5-flash"

// Gemini implements Completer and Extractor with GenerateContent.
type Gemini struct {
	Client *genai.Client
	Model  string
}

var (
	_ Completer = (*Gemini)(nil)
	_ Extractor = (*Gemini)(nil)
)

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) Complete(ctx context.Context, system, user string, temperature float64) (string, error) {
	return g.generate(ctx, user, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr(float32(temperature)),
	})
}

func (g *Gemini) Extract(ctx context.Context, system, user string, schema *jsonschema.Schema, out any) error {
	text, err := g.generate(ctx, user, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr(float32(0)),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    geminiSchema(schema),
	})
	if err != nil {
		return err
	}
	return decodeJSON(text, out)
}

func (g *Gemini) generate(ctx context.Context, user string, cfg *genai.GenerateContentConfig) (string, error) {
	model := g.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	resp, err := g.Client.Models.GenerateContent(ctx, model, genai.Text(user), cfg)
	if err != nil {
		if e, ok := err.(*apierror.APIError); ok {
			err = e.Unwrap()
		}
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}
	c := resp.Candidates[0]
	if c.FinishReason != genai.FinishReasonStop && c.FinishReason != genai.FinishReasonUnspecified && c.FinishReason != "" {
		if c.FinishReason == genai.FinishReasonMaxTokens {
			return "", errors.New("max tokens")
		}
		return "", fmt.Errorf("unexpected finish reason: %s", c.FinishReason)
	}
	var sb strings.Builder
	for _, p := range c.Content.Parts {
		if p.Text != "" && !p.Thought {
			sb.WriteString(p.Text)
		}
	}
	return sb.String(), nil
}

func geminiSchema(s *jsonschema.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	gs := &genai.Schema{
		Description: s.Description,
		Items:       geminiSchema(s.Items),
		Required:    s.Required,
	}
	if n := len(s.Properties); n > 0 {
		gs.Properties = make(map[string]*genai.Schema, n)
		for k, p := range s.Properties {
			gs.Properties[k] = geminiSchema(p)
		}
	}
	typ := s.Type
	if typ == "" {
		for _, t := range s.Types {
			if t != "null" {
				typ = t
				break
			}
		}
	}
	switch typ {
	case "object":
		gs.Type = genai.TypeObject
	case "array":
		gs.Type = genai.TypeArray
	case "string":
		gs.Type = genai.TypeString
	case "number":
		gs.Type = genai.TypeNumber
	case "integer":
		gs.Type = genai.TypeInteger
	case "boolean":
		gs.Type = genai.TypeBoolean
	}
	return gs
}
