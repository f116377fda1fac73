package builder

import "fmt"

// BuildErrorKind identifies which required input was missing.
type BuildErrorKind string

const (
	MissingPathParam     BuildErrorKind = "missing_path_param"
	MissingRequiredParam BuildErrorKind = "missing_required_param"
	MissingBody          BuildErrorKind = "missing_body"
)

// BuildError reports an intent that cannot produce an executable request.
// Build errors are always terminal: they mean the intent itself is incomplete,
// not that the network or server failed, so they are never retried.
type BuildError struct {
	Kind      BuildErrorKind
	Operation string
	Param     string
}

func (e *BuildError) Error() string {
	switch e.Kind {
	case MissingPathParam:
		return fmt.Sprintf("operation %s: missing path parameter %q", e.Operation, e.Param)
	case MissingRequiredParam:
		return fmt.Sprintf("operation %s: missing required parameter %q", e.Operation, e.Param)
	case MissingBody:
		return fmt.Sprintf("operation %s: request body is required but no data was provided", e.Operation)
	}
	return fmt.Sprintf("operation %s: invalid request", e.Operation)
}

// IsMissingPathParam reports whether the error is a missing path variable.
func (e *BuildError) IsMissingPathParam() bool {
	return e.Kind == MissingPathParam
}
