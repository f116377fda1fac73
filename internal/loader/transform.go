package loader

import (
	"strings"

	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"

	"github.com/kolah/parley/internal/model"
)

// Operations flattens the parsed document into the engine's operation list,
// in document order for deterministic IDs and candidate ordering.
func Operations(result *Result) []model.Operation {
	doc := result.Document.Model

	var ops []model.Operation
	if doc.Paths == nil {
		return ops
	}

	for pathStr, pathItem := range doc.Paths.PathItems.FromOldest() {
		methods := []struct {
			method model.Method
			op     *v3.Operation
		}{
			{model.MethodGet, pathItem.Get},
			{model.MethodPost, pathItem.Post},
			{model.MethodPut, pathItem.Put},
			{model.MethodPatch, pathItem.Patch},
			{model.MethodDelete, pathItem.Delete},
		}

		for _, m := range methods {
			if m.op == nil {
				continue
			}
			ops = append(ops, transformOperation(m.method, pathStr, m.op))
		}
	}
	return ops
}

// BaseURL returns the first server URL in the document, if any.
func BaseURL(result *Result) string {
	servers := result.Document.Model.Servers
	if len(servers) == 0 {
		return ""
	}
	return strings.TrimRight(servers[0].URL, "/")
}

func transformOperation(method model.Method, path string, op *v3.Operation) model.Operation {
	operation := model.Operation{
		ID:          op.OperationId,
		Method:      method,
		Path:        path,
		Summary:     op.Summary,
		Description: op.Description,
		Tags:        op.Tags,
	}
	if operation.ID == "" {
		operation.ID = strings.ToLower(string(method)) + strings.NewReplacer("/", "_", "{", "", "}", "").Replace(path)
	}

	for _, p := range op.Parameters {
		operation.Parameters = append(operation.Parameters, transformParameter(p))
	}

	if op.RequestBody != nil {
		operation.BodyRequired = boolPtr(op.RequestBody.Required)
	}

	return operation
}

func transformParameter(p *v3.Parameter) model.Parameter {
	param := model.Parameter{
		Name:        p.Name,
		In:          model.ParameterLocation(strings.ToLower(p.In)),
		Description: p.Description,
		Required:    boolPtr(p.Required),
	}

	if p.Schema != nil {
		if schema := p.Schema.Schema(); schema != nil && len(schema.Type) > 0 {
			param.Schema = schema.Type[0]
		}
	}

	return param
}

func boolPtr(b *bool) bool {
	return b != nil && *b
}
