package index

import (
	"context"
	"fmt"
	"math"
	"sort"

	"google.golang.org/genai"

	"github.com/kolah/parley/internal/model"
)

const defaultEmbeddingModel = "gemini-embedding-001"

// Semantic ranks operations by embedding similarity. Operation embeddings are
// computed once at construction; queries are embedded per call.
type Semantic struct {
	client  *genai.Client
	model   string
	ops     []model.Operation
	vectors [][]float32
}

func NewSemantic(ctx context.Context, apiKey, embeddingModel string, ops []model.Operation) (*Semantic, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("embedding API key is required")
	}
	if embeddingModel == "" {
		embeddingModel = defaultEmbeddingModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	s := &Semantic{client: client, model: embeddingModel, ops: ops}
	if err := s.embedOperations(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Semantic) embedOperations(ctx context.Context) error {
	if len(s.ops) == 0 {
		return nil
	}

	contents := make([]*genai.Content, len(s.ops))
	for i, op := range s.ops {
		contents[i] = genai.NewContentFromText(document(op), genai.RoleUser)
	}

	result, err := s.client.Models.EmbedContent(ctx, s.model, contents,
		&genai.EmbedContentConfig{TaskType: "RETRIEVAL_DOCUMENT"})
	if err != nil {
		return fmt.Errorf("embedding operations: %w", err)
	}
	if len(result.Embeddings) != len(s.ops) {
		return fmt.Errorf("embedding count mismatch: got %d, want %d", len(result.Embeddings), len(s.ops))
	}

	s.vectors = make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		s.vectors[i] = emb.Values
	}
	return nil
}

func (s *Semantic) FindCandidates(ctx context.Context, query, scope string, limit int) ([]model.Operation, error) {
	contents := []*genai.Content{genai.NewContentFromText(query, genai.RoleUser)}
	result, err := s.client.Models.EmbedContent(ctx, s.model, contents,
		&genai.EmbedContentConfig{TaskType: "RETRIEVAL_QUERY"})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("no query embedding returned")
	}
	return s.rank(result.Embeddings[0].Values, scope, limit), nil
}

// rank orders the precomputed operation vectors by similarity to the query
// vector, ties broken on path for determinism.
func (s *Semantic) rank(queryVec []float32, scope string, limit int) []model.Operation {
	type ranked struct {
		op    model.Operation
		score float64
	}
	var scored []ranked
	for i, op := range s.ops {
		if !inScope(op, scope) {
			continue
		}
		scored = append(scored, ranked{op: op, score: cosine(queryVec, s.vectors[i])})
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
	return out
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
