package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kolah/parley/internal/model"
)

var ops = []model.Operation{
	{ID: "listCategories", Method: model.MethodGet, Path: "/api/categories", Summary: "List all categories", Tags: []string{"shop"}},
	{ID: "getCategory", Method: model.MethodGet, Path: "/api/categories/{id}", Summary: "Get one category", Tags: []string{"shop"}},
	{ID: "listOrders", Method: model.MethodGet, Path: "/api/orders", Summary: "List all orders", Tags: []string{"billing"}},
}

func TestLexicalRanksByOverlap(t *testing.T) {
	idx := NewLexical(ops)

	got, err := idx.FindCandidates(context.Background(), "show me all categories", "", 10)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	require.Equal(t, "listCategories", got[0].ID)

	for _, op := range got {
		require.NotEqual(t, "listOrders", op.ID)
	}
}

func TestLexicalSingularMatchesPlural(t *testing.T) {
	idx := NewLexical(ops)
	got, err := idx.FindCandidates(context.Background(), "get category 5", "", 10)
	require.NoError(t, err)
	require.NotEmpty(t, got)
}

func TestLexicalScopeFilters(t *testing.T) {
	idx := NewLexical(ops)
	got, err := idx.FindCandidates(context.Background(), "list all", "billing", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "listOrders", got[0].ID)
}

func TestLexicalLimit(t *testing.T) {
	idx := NewLexical(ops)
	got, err := idx.FindCandidates(context.Background(), "list all categories orders", "", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestLexicalNoMatch(t *testing.T) {
	idx := NewLexical(ops)
	got, err := idx.FindCandidates(context.Background(), "weather in Kyiv", "", 10)
	require.NoError(t, err)
	require.Empty(t, got)
}
