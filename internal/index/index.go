// Package index supplies ranked operation candidates for a query. The real
// semantic search is an external concern behind the Index contract; this
// package ships a genai-embedding adapter and a lexical fallback so the
// binary works without one.
package index

import (
	"context"
	"strings"

	"github.com/kolah/parley/internal/model"
)

// Index returns operations ranked by relevance to the query text. The engine
// depends only on the returned order, never on similarity scores. scope, when
// non-empty, restricts candidates to operations carrying that tag.
type Index interface {
	FindCandidates(ctx context.Context, query, scope string, limit int) ([]model.Operation, error)
}

func inScope(op model.Operation, scope string) bool {
	if scope == "" {
		return true
	}
	for _, tag := range op.Tags {
		if strings.EqualFold(tag, scope) {
			return true
		}
	}
	return false
}

// document renders an operation as the text that gets matched or embedded.
func document(op model.Operation) string {
	parts := []string{string(op.Method), op.Path, op.Summary, op.Description}
	parts = append(parts, op.Tags...)
	return strings.Join(parts, " ")
}
