package oracle

import (
	"encoding/json"
	"strings"

	"github.com/kolah/parley/internal/model"
)

// stripFences removes a markdown code fence around a model reply, which some
// models emit even in JSON mode.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// parseIntent decodes a model reply into an intent. ok is false on malformed
// output or an empty interpretation.
func parseIntent(text string) (model.Intent, bool) {
	var intent model.Intent
	if err := json.Unmarshal([]byte(stripFences(text)), &intent); err != nil {
		return model.Intent{}, false
	}
	if intent.OperationHint == "" && intent.ResourceHint == "" &&
		len(intent.Parameters) == 0 && len(intent.Data) == 0 {
		return model.Intent{}, false
	}
	return intent, true
}

// parseCorrection decodes a fix proposal. Malformed output degrades to a
// correction that cannot be applied.
func parseCorrection(text string) model.Correction {
	var c model.Correction
	if err := json.Unmarshal([]byte(stripFences(text)), &c); err != nil {
		return model.Correction{CanApply: false, Rationale: "unparseable fix proposal"}
	}
	return c
}
