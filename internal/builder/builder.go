// Package builder turns a chosen operation plus intent parameters into a
// concrete request descriptor. Building performs no I/O and is pure given its
// inputs, which is what makes a built descriptor safe to retry.
package builder

import (
	"fmt"
	"strings"

	"github.com/kolah/parley/internal/model"
)

// Builder assembles request descriptors against a fixed base URL. The bearer
// token is an opaque credential supplied by the caller, never generated here.
type Builder struct {
	baseURL     string
	bearerToken string
}

func New(baseURL, bearerToken string) *Builder {
	return &Builder{
		baseURL:     strings.TrimRight(baseURL, "/"),
		bearerToken: bearerToken,
	}
}

// Build produces a descriptor for the operation from the intent's parameters
// and data. A missing required value is a typed *BuildError; no descriptor is
// produced on failure.
func (b *Builder) Build(intent model.Intent, op model.Operation) (model.RequestDescriptor, error) {
	path, err := substitutePath(op, intent.Parameters)
	if err != nil {
		return model.RequestDescriptor{}, err
	}

	query, err := queryParams(op, intent.Parameters)
	if err != nil {
		return model.RequestDescriptor{}, err
	}

	var body map[string]any
	if op.BodyRequired || op.Method.WritesBody() {
		if len(intent.Data) > 0 {
			body = make(map[string]any, len(intent.Data))
			for k, v := range intent.Data {
				body[k] = v
			}
		} else if op.BodyRequired {
			return model.RequestDescriptor{}, &BuildError{Kind: MissingBody, Operation: op.ID}
		}
	}

	return model.RequestDescriptor{
		TargetURL:       b.baseURL + path,
		Method:          op.Method,
		Headers:         b.headers(),
		Query:           query,
		Body:            body,
		SourceOperation: op,
	}, nil
}

func substitutePath(op model.Operation, params map[string]any) (string, error) {
	path := op.Path
	for _, name := range op.PathPlaceholders() {
		value, ok := params[name]
		if !ok {
			return "", &BuildError{Kind: MissingPathParam, Operation: op.ID, Param: name}
		}
		path = strings.ReplaceAll(path, "{"+name+"}", fmt.Sprintf("%v", value))
	}
	return path, nil
}

func queryParams(op model.Operation, params map[string]any) (map[string]string, error) {
	var query map[string]string
	for _, p := range op.Parameters {
		if p.In != model.LocationQuery {
			continue
		}
		value, ok := params[p.Name]
		if !ok {
			if p.Required {
				return nil, &BuildError{Kind: MissingRequiredParam, Operation: op.ID, Param: p.Name}
			}
			continue
		}
		if query == nil {
			query = make(map[string]string)
		}
		query[p.Name] = fmt.Sprintf("%v", value)
	}
	return query, nil
}

func (b *Builder) headers() map[string]string {
	headers := map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
	}
	if b.bearerToken != "" {
		headers["Authorization"] = "Bearer " + b.bearerToken
	}
	return headers
}
