package index

import (
	"context"
	"sort"
	"strings"

	"github.com/kolah/parley/internal/model"
)

// Lexical ranks operations by token overlap with the query. It is the
// degraded path used when no embedding backend is configured; deliberately
// naive, since the scorer downstream does the precise selection.
type Lexical struct {
	ops []model.Operation
}

func NewLexical(ops []model.Operation) *Lexical {
	return &Lexical{ops: ops}
}

func (l *Lexical) FindCandidates(_ context.Context, query, scope string, limit int) ([]model.Operation, error) {
	queryTokens := tokenize(query)

	type ranked struct {
		op    model.Operation
		score int
	}
	var scored []ranked
	for _, op := range l.ops {
		if !inScope(op, scope) {
			continue
		}
		score := overlap(queryTokens, tokenize(document(op)))
		if score > 0 {
			scored = append(scored, ranked{op: op, score: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].op.Path < scored[j].op.Path
	})

	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	out := make([]model.Operation, len(scored))
	for i, r := range scored {
		out[i] = r.op
	}
	return out, nil
}

func tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, tok := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	}) {
		if len(tok) > 1 {
			tokens[tok] = struct{}{}
		}
	}
	return tokens
}

func overlap(a, b map[string]struct{}) int {
	count := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			count++
			continue
		}
		// Singular/plural tolerance: "category" matches "categories".
		for other := range b {
			if len(tok) >= 4 && len(other) >= 4 && (strings.HasPrefix(other, tok[:4]) && strings.HasPrefix(tok, other[:4])) {
				count++
				break
			}
		}
	}
	return count
}
