// Package recovery extracts a well-formed label record from the free-form,
// often malformed text that vision models return.
package recovery

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/labeleval/internal/label"
)

// ErrMissingRequired indicates a record parsed cleanly but lacks all of
// product_name, drug_facts, and supplement_facts. Distinct from a parse
// failure so callers can report the partially-recovered data.
var ErrMissingRequired = eris.New("recovery: extracted data missing required fields")

var (
	preambleRe   = regexp.MustCompile(`(?is)^(Here is|Here's|The extracted|Based on|I've analyzed)[\s\S]*?:\s*`)
	postscriptRe = regexp.MustCompile(`(?is)\n\n(Note:|Please note:|I hope|Let me know)[\s\S]*$`)
	fencedRe     = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
)

// Clean strips common assistant-style narration from a model reply: a
// leading preamble up to its first colon ("Here is the JSON: ...") and a
// trailing postscript ("Note: ...").
func Clean(response string) string {
	s := strings.TrimSpace(response)
	s = preambleRe.ReplaceAllString(s, "")
	s = postscriptRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Recover attempts to pull a structured record out of cleaned model text.
// It tries, in order: the whole string as JSON, the contents of a fenced
// code block, and the first-to-last brace span. If none parse it returns
// (nil, false) — that is "no data", not an error; callers must distinguish
// unparsable text from a failed provider call.
func Recover(response string) (*label.ExtractedData, bool) {
	if data := tryParse(response); data != nil {
		return data, true
	}

	if m := fencedRe.FindStringSubmatch(response); m != nil {
		if data := tryParse(strings.TrimSpace(m[1])); data != nil {
			return data, true
		}
	}

	// Greedy brace match: first "{" through last "}".
	first := strings.Index(response, "{")
	last := strings.LastIndex(response, "}")
	if first >= 0 && last > first {
		if data := tryParse(response[first : last+1]); data != nil {
			return data, true
		}
	}

	return nil, false
}

// Validate enforces the minimum-viability invariant on a recovered record.
func Validate(data *label.ExtractedData) error {
	if !data.Valid() {
		return ErrMissingRequired
	}
	return nil
}

func tryParse(s string) *label.ExtractedData {
	if s == "" {
		return nil
	}
	var data label.ExtractedData
	if err := json.Unmarshal([]byte(s), &data); err != nil {
		return nil
	}
	return &data
}
