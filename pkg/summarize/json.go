package summarize

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// decodeJSON unmarshals model output into v. Code fences are stripped and
// malformed JSON is repaired before a second attempt.
func decodeJSON(text string, v any) error {
	text = stripFence(text)
	err := json.Unmarshal([]byte(text), v)
	if err == nil {
		return nil
	}
	if _, ok := err.(*json.SyntaxError); !ok {
		return err
	}
	fixed, rerr := jsonrepair.JSONRepair(text)
	if rerr != nil {
		return err
	}
	return json.Unmarshal([]byte(fixed), v)
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
