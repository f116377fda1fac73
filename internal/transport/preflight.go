package transport

import (
	"context"
	"strings"

	"github.com/pb33f/libopenapi"
	validator "github.com/pb33f/libopenapi-validator"

	"github.com/kolah/parley/internal/model"
)

// Preflight validates outgoing requests against the OpenAPI document before
// any network traffic. A schema violation surfaces as an encoding failure,
// which the retry controller treats as locally fixable.
type Preflight struct {
	validator validator.Validator
	next      Transport
}

// WithPreflight wraps a transport with request validation.
func WithPreflight(next Transport, doc libopenapi.Document) (*Preflight, error) {
	v, errs := validator.NewValidator(doc)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	return &Preflight{validator: v, next: next}, nil
}

func (p *Preflight) Send(ctx context.Context, d model.RequestDescriptor) model.AttemptResult {
	req, err := HTTPRequest(ctx, d)
	if err != nil {
		return model.AttemptResult{
			Kind:    model.ErrEncoding,
			Message: "building request: " + err.Error(),
		}
	}

	valid, validationErrs := p.validator.ValidateHttpRequestSync(req)
	if !valid {
		var reasons []string
		for _, e := range validationErrs {
			reasons = append(reasons, e.Message)
		}
		return model.AttemptResult{
			Kind:    model.ErrEncoding,
			Message: "request validation failed: " + strings.Join(reasons, "; "),
		}
	}

	return p.next.Send(ctx, d)
}
