package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kolah/parley/internal/builder"
	"github.com/kolah/parley/internal/model"
	"github.com/kolah/parley/internal/retry"
)

const (
	msgEmptyInput     = "Please enter a request."
	msgNoIntent       = "I could not understand the request. Try describing what you want to do with the API, for example: \"show all categories\"."
	msgNoOperation    = "No API operation matches this request. Try naming the resource you are after."
	msgNoPending      = "There is no suspended request to continue."
	msgPendingExpired = "The suspended request has expired. Please start over."
	msgAbandoned      = "Request cancelled."
)

func buildErrorMessage(err error) string {
	var buildErr *builder.BuildError
	if !errors.As(err, &buildErr) {
		return "The request could not be assembled: " + err.Error()
	}
	switch buildErr.Kind {
	case builder.MissingPathParam:
		return fmt.Sprintf("I need a value for %q to address the right resource. Please provide it.", buildErr.Param)
	case builder.MissingRequiredParam:
		return fmt.Sprintf("The required parameter %q is missing. Please provide it.", buildErr.Param)
	case builder.MissingBody:
		return "This operation needs data to send, but none was given. Please provide the fields to submit."
	}
	return "The request could not be assembled: " + buildErr.Error()
}

func previewMessage(d model.RequestDescriptor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Preview (execution disabled): %s %s", d.Method, d.TargetURL)
	if len(d.Query) > 0 {
		fmt.Fprintf(&b, "\nQuery: %s", compactJSON(d.Query))
	}
	if len(d.Body) > 0 {
		fmt.Fprintf(&b, "\nBody: %s", compactJSON(d.Body))
	}
	return b.String()
}

func successMessage(outcome retry.Outcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Done: %s %s returned HTTP %d.",
		outcome.Descriptor.Method, outcome.Descriptor.TargetURL, outcome.Result.StatusCode)
	if outcome.Attempts > 1 {
		fmt.Fprintf(&b, " (succeeded after %d attempts)", outcome.Attempts)
	}
	if body := prettyBody(outcome.Result); body != "" {
		b.WriteString("\n")
		b.WriteString(body)
	}
	return b.String()
}

func failureMessage(outcome retry.Outcome) string {
	result := outcome.Result
	switch result.Kind {
	case model.ErrAuth:
		return fmt.Sprintf("Authorization failed (HTTP %d). Check your credentials.", result.StatusCode)
	case model.ErrConnection:
		return "Could not reach the server: " + result.Message
	case model.ErrTimeout:
		return "The server did not respond in time."
	}
	if result.StatusCode > 0 {
		return fmt.Sprintf("The server rejected the request (HTTP %d): %s",
			result.StatusCode, shorten(result.RawBody, 300))
	}
	return "The request failed: " + result.Message
}

func fallbackFollowup(outcome retry.Outcome) string {
	var required []string
	for _, p := range outcome.Descriptor.SourceOperation.Parameters {
		if p.Required {
			required = append(required, p.Name)
		}
	}
	if len(required) > 0 {
		return fmt.Sprintf("To complete this request I still need: %s. Please provide the missing values.",
			strings.Join(required, ", "))
	}
	return "Could you clarify or correct the request so I can try again?"
}

func prettyBody(result model.AttemptResult) string {
	if result.Body == nil {
		return shorten(result.RawBody, 500)
	}
	out, err := json.MarshalIndent(result.Body, "", "  ")
	if err != nil {
		return shorten(result.RawBody, 500)
	}
	return shorten(string(out), 1500)
}

func compactJSON(v any) string {
	out, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(out)
}

func shorten(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
