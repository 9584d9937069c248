package summarize

import (
	"fmt"
	"strings"
)

// Mode selects which summaries are produced for a meeting.
type Mode string

const (
	ModeNone       Mode = "none"
	ModeText       Mode = "text"
	ModeStructured Mode = "structured"
	ModeBoth       Mode = "both"
)

// ParseMode parses s. An empty string is ModeText.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeText, nil
	case ModeNone, ModeText, ModeStructured, ModeBoth:
		return m, nil
	}
	return "", fmt.Errorf("summarize: unknown mode %q", s)
}

// WantsText reports whether m produces a free-text summary.
func (m Mode) WantsText() bool { return m == ModeText || m == ModeBoth }

// WantsStructured reports whether m produces a Team report.
func (m Mode) WantsStructured() bool { return m == ModeStructured || m == ModeBoth }

// Text renders the report as a short message.
func (t *Team) Text() string {
	var sb strings.Builder
	name := t.TeamName
	if name == "" {
		name = "Team"
	}
	fmt.Fprintf(&sb, "**%s**\n", name)
	if len(t.Events) == 0 {
		sb.WriteString("(no events)\n")
	}
	for i, e := range t.Events {
		fmt.Fprintf(&sb, "%d. Progress: %s\n   Blocker: %s\n   Next step: %s\n", i+1, e.Progress, e.Blocker, e.NextStep)
	}
	return strings.TrimRight(sb.String(), "\n")
}
