package model

import "strings"

// Operation is one method + path entry from the loaded API description.
// Operations are immutable once loaded; everything downstream reads them only.
type Operation struct {
	ID           string
	Method       Method
	Path         string
	Summary      string
	Description  string
	Tags         []string
	Parameters   []Parameter
	BodyRequired bool
}

type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodPatch  Method = "PATCH"
	MethodDelete Method = "DELETE"
)

// WritesBody reports whether the method conventionally carries a request body.
func (m Method) WritesBody() bool {
	return m == MethodPost || m == MethodPut || m == MethodPatch
}

type ParameterLocation string

const (
	LocationPath   ParameterLocation = "path"
	LocationQuery  ParameterLocation = "query"
	LocationHeader ParameterLocation = "header"
	LocationBody   ParameterLocation = "body"
)

type Parameter struct {
	Name        string
	In          ParameterLocation
	Description string
	Required    bool
	Schema      string
}

// PathPlaceholders returns the {name} variables in the operation path, in order.
func (o Operation) PathPlaceholders() []string {
	var names []string
	rest := o.Path
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			break
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			break
		}
		names = append(names, rest[open+1:open+end])
		rest = rest[open+end+1:]
	}
	return names
}

// PlaceholderCount returns the number of {name} variables in the path.
func (o Operation) PlaceholderCount() int {
	return len(o.PathPlaceholders())
}

// RequiredParameters returns the required parameters in a given location.
func (o Operation) RequiredParameters(in ParameterLocation) []Parameter {
	var out []Parameter
	for _, p := range o.Parameters {
		if p.In == in && p.Required {
			out = append(out, p)
		}
	}
	return out
}
