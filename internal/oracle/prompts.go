package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kolah/parley/internal/model"
)

func intentPrompt(userText, conversationContext string) string {
	var b strings.Builder
	b.WriteString(`You are an API expert. Analyze the user's request and determine:
1. The operation type (GET, POST, PUT, PATCH, DELETE)
2. The resource or endpoint
3. Parameters and data
4. Whether the user asks for a whole collection ("all", "list") or one item

`)
	if conversationContext != "" {
		b.WriteString("Context of previous interactions:\n")
		b.WriteString(conversationContext)
		b.WriteString("\n\n")
	}
	b.WriteString(`Respond with JSON only, in this exact shape:
{
  "operation": "GET|POST|PUT|PATCH|DELETE",
  "resource": "resource name",
  "wants_collection": false,
  "parameters": {"param1": "value1"},
  "data": {"field1": "value1"},
  "intent": "short description of the goal",
  "confidence": 0.0
}

User request: `)
	b.WriteString(userText)
	return b.String()
}

func fixPrompt(original, current model.RequestDescriptor, result model.AttemptResult,
	userText string, attempt, maxAttempts int) string {
	originalJSON := descriptorJSON(original)
	currentJSON := descriptorJSON(current)

	return fmt.Sprintf(`An API request failed. Propose a correction if one is mechanically derivable
from the error; otherwise report that no fix applies.

User request: %s
Attempt %d of %d.

Original request:
%s

Current request:
%s

Server response (status %d, error kind %s):
%s

Respond with JSON only:
{
  "can_fix": false,
  "method": "",
  "url": "",
  "params": {},
  "data": {},
  "explanation": "why this fix should work, or why none applies"
}
Only include fields that must change.`,
		userText, attempt, maxAttempts, originalJSON, currentJSON,
		result.StatusCode, result.Kind, truncate(result.RawBody, 2000))
}

func followupExtractPrompt(userText string, pending model.Intent) string {
	pendingJSON, _ := json.MarshalIndent(map[string]any{
		"parameters": pending.Parameters,
		"data":       pending.Data,
	}, "", "  ")

	return fmt.Sprintf(`A previous API request is suspended waiting for missing information.
The user has now replied. Extract only the values their reply supplies.

Known values so far:
%s

User reply: %s

Respond with JSON only:
{
  "operation": "",
  "resource": "",
  "parameters": {"name": "value"},
  "data": {"field": "value"}
}
Leave operation and resource empty; put supplied values under parameters or data.`,
		pendingJSON, userText)
}

func followupQuestionPrompt(result model.AttemptResult, d model.RequestDescriptor) string {
	var required []string
	for _, p := range d.SourceOperation.Parameters {
		if p.Required {
			required = append(required, p.Name)
		}
	}

	return fmt.Sprintf(`An API request could not be completed automatically. Write one short,
friendly question asking the user for the information needed to finish it.
Plain text, no JSON, no markdown.

Request: %s %s
Server response (status %d): %s
Required parameters of this operation: %s`,
		d.Method, d.TargetURL, result.StatusCode,
		truncate(result.RawBody, 1000), strings.Join(required, ", "))
}

func descriptorJSON(d model.RequestDescriptor) string {
	out, err := json.MarshalIndent(map[string]any{
		"method": d.Method,
		"url":    d.TargetURL,
		"params": d.Query,
		"data":   d.Body,
	}, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(out)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
