package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/itchyny/gojq"
	"github.com/openai/openai-go"
)

// segmentsQuery extracts segment texts from a verbose_json transcription,
// falling back to the flat text field.
var segmentsQuery = mustParse(`if (.segments | length) > 0 then [.segments[].text] else [.text // empty] end`)

func mustParse(expr string) *gojq.Code {
	q, err := gojq.Parse(expr)
	if err != nil {
		panic(err)
	}
	code, err := gojq.Compile(q)
	if err != nil {
		panic(err)
	}
	return code
}

// OpenAI is an Engine backed by the OpenAI audio transcription endpoint.
// The hosted API does not expose a beam width, so Options.BeamSize is not
// forwarded.
type OpenAI struct {
	Client *openai.Client
	// Model defaults to whisper-1.
	Model openai.AudioModel
}

func (e *OpenAI) Name() string { return "openai-whisper" }

func (e *OpenAI) Transcribe(ctx context.Context, path string, opts Options) ([]Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	model := e.Model
	if model == "" {
		model = openai.AudioModelWhisper1
	}
	params := openai.AudioTranscriptionNewParams{
		File:           f,
		Model:          model,
		ResponseFormat: openai.AudioResponseFormatVerboseJSON,
	}
	if opts.Language != "" {
		params.Language = openai.String(opts.Language)
	}
	resp, err := e.Client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, err
	}
	raw := resp.RawJSON()
	if raw == "" {
		return []Segment{{Text: resp.Text}}, nil
	}
	return parseVerbose([]byte(raw))
}

func parseVerbose(raw []byte) ([]Segment, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("transcribe: decode response: %w", err)
	}
	iter := segmentsQuery.Run(v)
	out, ok := iter.Next()
	if !ok {
		return nil, nil
	}
	if err, ok := out.(error); ok {
		return nil, fmt.Errorf("transcribe: jq: %w", err)
	}
	items, _ := out.([]any)
	segments := make([]Segment, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			segments = append(segments, Segment{Text: s})
		}
	}
	return segments, nil
}
