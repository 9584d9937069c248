// Package summarize turns meeting transcripts into summaries with a
// text-generation model.
//
// Two independent modes exist. Summarizer produces a free-text summary under
// a fixed meeting-assistant system prompt. Structured extracts a typed Team
// report through a schema-constrained call. Backends for OpenAI, Anthropic
// and Gemini implement the Completer and Extractor interfaces.
package summarize

import (
	"context"
	"errors"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/haivivi/meetrec/pkg/meeterr"
)

// DefaultTemperature keeps generation near-deterministic.
const DefaultTemperature = 0.3

// UserPrefix is prepended to the transcript in the user message.
const UserPrefix = "Please summarize the following transcription:\n"

// DefaultSystemPrompt is the Thai meeting-assistant persona. It asks for
// three sections: discussion topics, assigned tasks, and goals/decisions.
const DefaultSystemPrompt = `
คุณคือผู้ช่วยประชุม (meeting‐assistant) มีหน้าที่อ่านบันทึกการประชุมทั้งหมด แล้วสร้าง:

รายการหัวข้ออภิปรายหลัก (bullet points)

รายการงานที่ได้รับมอบหมายในรูปแบบ "ผู้รับมอบหมาย → งาน → กำหนดเวลา (ถ้ามี)"

สำหรับเป้าหมาย การตัดสินใจ หรือขั้นตอนถัดไป

ให้ผลลัพธ์ออกมาใน 3 ส่วน ชื่อว่า:
• "หัวข้ออภิปราย"
• "งานที่ได้รับมอบหมาย"
• "เป้าหมายและการตัดสินใจ"

แต่ละบูลเล็ตรายการไม่เกินหนึ่งประโยค
`

// ErrEmptyResponse is returned when a model produces no text.
var ErrEmptyResponse = errors.New("summarize: empty response")

// Completer generates text for a system prompt and a user message.
type Completer interface {
	Name() string
	Complete(ctx context.Context, system, user string, temperature float64) (string, error)
}

// Extractor generates a JSON document conforming to schema and decodes it
// into out.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, system, user string, schema *jsonschema.Schema, out any) error
}

// Summarizer produces free-text meeting summaries.
type Summarizer struct {
	completer   Completer
	system      string
	temperature float64
}

// Option configures a Summarizer.
type Option func(*Summarizer)

// WithSystemPrompt replaces DefaultSystemPrompt.
func WithSystemPrompt(p string) Option {
	return func(s *Summarizer) { s.system = p }
}

// New returns a Summarizer using c.
func New(c Completer, opts ...Option) *Summarizer {
	s := &Summarizer{
		completer:   c,
		system:      DefaultSystemPrompt,
		temperature: DefaultTemperature,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Summarize returns the summary of transcript.
func (s *Summarizer) Summarize(ctx context.Context, transcript string) (string, error) {
	out, err := s.completer.Complete(ctx, s.system, UserPrefix+transcript, s.temperature)
	if err != nil {
		return "", meeterr.Tool(s.completer.Name(), "summarize", err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", meeterr.Tool(s.completer.Name(), "summarize", ErrEmptyResponse)
	}
	return out, nil
}
