package model

import "fmt"

// RequestDescriptor is a fully-specified, ready-to-send HTTP request derived
// from an Operation and an Intent. Descriptors are built fresh per attempt and
// never mutated in place; a retry derives a new descriptor from the previous
// one plus a Correction.
type RequestDescriptor struct {
	TargetURL       string
	Method          Method
	Headers         map[string]string
	Query           map[string]string
	Body            map[string]any
	SourceOperation Operation
}

// Clone returns a deep copy of the descriptor. Corrections are applied to the
// clone so earlier attempts stay inspectable.
func (d RequestDescriptor) Clone() RequestDescriptor {
	out := d
	out.Headers = copyStringMap(d.Headers)
	out.Query = copyStringMap(d.Query)
	if d.Body != nil {
		out.Body = make(map[string]any, len(d.Body))
		for k, v := range d.Body {
			out.Body[k] = v
		}
	}
	return out
}

// Apply returns a new descriptor with the correction's populated fields
// overriding the receiver's.
func (d RequestDescriptor) Apply(c Correction) RequestDescriptor {
	out := d.Clone()
	if c.TargetURL != "" {
		out.TargetURL = c.TargetURL
	}
	if c.Method != "" {
		out.Method = c.Method
	}
	for k, v := range c.Headers {
		if out.Headers == nil {
			out.Headers = map[string]string{}
		}
		out.Headers[k] = v
	}
	for k, v := range c.Query {
		if out.Query == nil {
			out.Query = map[string]string{}
		}
		out.Query[k] = v
	}
	for k, v := range c.Body {
		if out.Body == nil {
			out.Body = map[string]any{}
		}
		out.Body[k] = v
	}
	return out
}

func copyStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Correction is an externally-proposed patch to a failed request descriptor.
// Only populated fields override; a correction is ephemeral and applied once.
type Correction struct {
	CanApply  bool              `json:"can_fix"`
	TargetURL string            `json:"url,omitempty"`
	Method    Method            `json:"method,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
	Query     map[string]string `json:"params,omitempty"`
	Body      map[string]any    `json:"data,omitempty"`
	Rationale string            `json:"explanation,omitempty"`
}

// ErrorKind classifies what went wrong with a single attempt.
type ErrorKind int

const (
	ErrNone ErrorKind = iota
	ErrConnection
	ErrTimeout
	ErrEncoding
	ErrClient
	ErrServer
	ErrAuth
)

func (k ErrorKind) String() string {
	switch k {
	case ErrNone:
		return "none"
	case ErrConnection:
		return "connection"
	case ErrTimeout:
		return "timeout"
	case ErrEncoding:
		return "encoding"
	case ErrClient:
		return "client"
	case ErrServer:
		return "server"
	case ErrAuth:
		return "auth"
	}
	return fmt.Sprintf("errorkind(%d)", int(k))
}

// AttemptResult records the outcome of one transport attempt. Network-level
// failures are captured here as typed kinds rather than raised as Go errors,
// so HTTP-level and network-level failures share one taxonomy.
type AttemptResult struct {
	StatusCode int
	Body       map[string]any
	RawBody    string
	Kind       ErrorKind
	Message    string
}

// OK reports whether the attempt reached the server and got a non-error status.
func (r AttemptResult) OK() bool {
	return r.Kind == ErrNone && r.StatusCode > 0 && r.StatusCode < 400
}

// KindForStatus maps an HTTP status code to an error classification.
func KindForStatus(status int) ErrorKind {
	switch {
	case status == 401 || status == 403:
		return ErrAuth
	case status >= 500:
		return ErrServer
	case status >= 400:
		return ErrClient
	default:
		return ErrNone
	}
}
