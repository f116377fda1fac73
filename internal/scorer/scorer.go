// Package scorer ranks candidate operations against an extracted intent.
// Scoring is deterministic and side-effect-free: the same intent and candidate
// list always select the same operation.
package scorer

import (
	"sort"
	"strings"

	"github.com/kolah/parley/internal/model"
)

// Score weights. The collection bonus outweighs the resource-in-summary bonus
// so "list all X" prefers /x over /x/{id} even when both summaries mention X.
const (
	methodMatchScore    = 5
	resourceInPathScore = 3
	resourceInDescScore = 2
	collectionBonus     = 4
	collectionPenalty   = 2
	listLexiconScore    = 2
)

// listLexicon marks summaries that describe collection endpoints.
var listLexicon = []string{"get all", "list", "all"}

// methodSynonyms maps operation-hint verbs to HTTP methods.
var methodSynonyms = map[string][]model.Method{
	"get":    {model.MethodGet},
	"read":   {model.MethodGet},
	"fetch":  {model.MethodGet},
	"create": {model.MethodPost},
	"add":    {model.MethodPost},
	"post":   {model.MethodPost},
	"update": {model.MethodPut, model.MethodPatch},
	"edit":   {model.MethodPut, model.MethodPatch},
	"put":    {model.MethodPut},
	"patch":  {model.MethodPatch},
	"delete": {model.MethodDelete},
	"remove": {model.MethodDelete},
}

// Select returns the best-matching operation for the intent, or nil when no
// candidate scores above zero. A nil result is deliberate precision over
// recall: guessing an unrelated operation is worse than asking the user.
func Select(intent model.Intent, candidates []model.Operation) *model.Operation {
	if len(candidates) == 0 {
		return nil
	}

	type ranked struct {
		op    model.Operation
		score int
	}

	scored := make([]ranked, 0, len(candidates))
	for _, op := range candidates {
		scored = append(scored, ranked{op: op, score: Score(intent, op)})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		pi, pj := scored[i].op.PlaceholderCount(), scored[j].op.PlaceholderCount()
		if pi != pj {
			return pi < pj
		}
		return scored[i].op.Path < scored[j].op.Path
	})

	if scored[0].score <= 0 {
		return nil
	}
	best := scored[0].op
	return &best
}

// Score computes the additive match score of one candidate against the intent.
func Score(intent model.Intent, op model.Operation) int {
	score := 0

	if methodMatches(intent.OperationHint, op.Method) {
		score += methodMatchScore
	}

	resource := strings.ToLower(strings.TrimSpace(intent.ResourceHint))
	summary := strings.ToLower(op.Summary)
	if resource != "" {
		if strings.Contains(strings.ToLower(op.Path), resource) {
			score += resourceInPathScore
		}
		if strings.Contains(summary, resource) {
			score += resourceInDescScore
		}
	}

	if intent.WantsCollection {
		if op.PlaceholderCount() == 0 {
			score += collectionBonus
		} else {
			score -= collectionPenalty
		}
	}

	for _, word := range listLexicon {
		if strings.Contains(summary, word) {
			score += listLexiconScore
			break
		}
	}

	return score
}

func methodMatches(hint string, method model.Method) bool {
	hint = strings.ToLower(strings.TrimSpace(hint))
	if hint == "" {
		return false
	}
	if strings.EqualFold(hint, string(method)) {
		return true
	}
	for _, m := range methodSynonyms[hint] {
		if m == method {
			return true
		}
	}
	return false
}
