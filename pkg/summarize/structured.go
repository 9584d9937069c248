package summarize

import (
	"context"
	"maps"
	"slices"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/haivivi/meetrec/pkg/meeterr"
)

// ExtractPrompt is the system prompt of the structured mode.
const ExtractPrompt = "Extract the event information."

// DefaultStructuredModel is used by the OpenAI extractor when no model is
// configured.
const DefaultStructuredModel = "gpt-4o-mini"

// TeamEvent is one reported item of progress.
type TeamEvent struct {
	Progress string `json:"progress" jsonschema:"what was achieved"`
	Blocker  string `json:"blocker" jsonschema:"what is blocking further progress"`
	NextStep string `json:"next_step" jsonschema:"the agreed next action"`
}

// Team is the structured summary of a stand-up style meeting.
type Team struct {
	TeamName string      `json:"team_name" jsonschema:"name of the team"`
	Events   []TeamEvent `json:"events"`
}

var teamSchema = mustSchema[Team]()

func mustSchema[T any]() *jsonschema.Schema {
	s, err := jsonschema.For[T](nil)
	if err != nil {
		panic(err)
	}
	return s
}

// TeamSchema returns a copy of the JSON schema of Team.
func TeamSchema() *jsonschema.Schema {
	return teamSchema.CloneSchemas()
}

// Structured extracts a Team report from a transcript.
type Structured struct {
	extractor Extractor
}

// NewStructured returns a structured summarizer using e.
func NewStructured(e Extractor) *Structured {
	return &Structured{extractor: e}
}

// Extract returns the Team report found in transcript.
func (s *Structured) Extract(ctx context.Context, transcript string) (*Team, error) {
	var team Team
	if err := s.extractor.Extract(ctx, ExtractPrompt, transcript, TeamSchema(), &team); err != nil {
		return nil, meeterr.Tool(s.extractor.Name(), "extract", err)
	}
	if team.Events == nil {
		team.Events = []TeamEvent{}
	}
	return &team, nil
}

// strictSchema rewrites m in place for strict structured outputs: every
// object gets additionalProperties false and lists all its properties as
// required.
func strictSchema(m *jsonschema.Schema) *jsonschema.Schema {
	if m == nil {
		return nil
	}
	if m.Type == "" && len(m.Types) > 0 {
		for _, t := range m.Types {
			if t != "null" {
				m.Type = t
				break
			}
		}
		m.Types = nil
	}
	switch m.Type {
	case "array":
		m.Items = strictSchema(m.Items)
	case "object":
		m.AdditionalProperties = &jsonschema.Schema{Not: &jsonschema.Schema{}}
		for k, v := range m.Properties {
			m.Properties[k] = strictSchema(v)
		}
		m.Required = slices.Sorted(maps.Keys(m.Properties))
	}
	return m
}
