package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kolah/parley/internal/builder"
	"github.com/kolah/parley/internal/history"
	"github.com/kolah/parley/internal/model"
	"github.com/kolah/parley/internal/retry"
)

var testOps = []model.Operation{
	{
		ID:     "listCategories",
		Method: model.MethodGet,
		Path:   "/api/categories",
	},
	{
		ID:     "getCategory",
		Method: model.MethodGet,
		Path:   "/api/categories/{id}",
		Parameters: []model.Parameter{
			{Name: "id", In: model.LocationPath, Required: true},
		},
	},
	{
		ID:           "createCategory",
		Method:       model.MethodPost,
		Path:         "/api/categories",
		Summary:      "Create a category",
		BodyRequired: true,
	},
}

type fakeOracle struct {
	intents    []*model.Intent
	intentErr  error
	followups  []model.Intent
	correction model.Correction
	question   string

	intentCalls   int
	followupCalls int
}

func (f *fakeOracle) ExtractIntent(_ context.Context, _, _ string) (*model.Intent, error) {
	if f.intentErr != nil {
		return nil, f.intentErr
	}
	if f.intentCalls >= len(f.intents) {
		return nil, nil
	}
	intent := f.intents[f.intentCalls]
	f.intentCalls++
	return intent, nil
}

func (f *fakeOracle) ProposeFix(_ context.Context, _, _ model.RequestDescriptor,
	_ model.AttemptResult, _ string, _, _ int) (model.Correction, error) {
	return f.correction, nil
}

func (f *fakeOracle) ExtractFollowup(_ context.Context, _ string, _ model.Intent) (model.Intent, error) {
	if f.followupCalls >= len(f.followups) {
		return model.Intent{}, nil
	}
	out := f.followups[f.followupCalls]
	f.followupCalls++
	return out, nil
}

func (f *fakeOracle) FollowupPrompt(_ context.Context, _ model.AttemptResult, _ model.RequestDescriptor) (string, error) {
	if f.question == "" {
		return "", errors.New("oracle down")
	}
	return f.question, nil
}

type fakeIndex struct {
	ops []model.Operation
}

func (f *fakeIndex) FindCandidates(_ context.Context, _, _ string, _ int) ([]model.Operation, error) {
	return f.ops, nil
}

type fakeTransport struct {
	results []model.AttemptResult
	calls   int
	seen    []model.RequestDescriptor
}

func (f *fakeTransport) Send(_ context.Context, d model.RequestDescriptor) model.AttemptResult {
	f.seen = append(f.seen, d)
	result := f.results[f.calls]
	if f.calls < len(f.results)-1 {
		f.calls++
	}
	return result
}

func testPolicy() retry.Policy {
	p := retry.DefaultPolicy()
	p.Delay = 0
	return p
}

func newTestEngine(o *fakeOracle, tr *fakeTransport, opts Options) (*Engine, *history.Store) {
	store := history.NewStore(20)
	b := builder.New("http://api.local", "tok")
	controller := retry.NewController(tr, o, testPolicy(), nil)
	engine := NewEngine(o, &fakeIndex{ops: testOps}, b, controller, store, nil, opts)
	return engine, store
}

func TestProcessSuccess(t *testing.T) {
	o := &fakeOracle{intents: []*model.Intent{{
		OperationHint:   "GET",
		ResourceHint:    "categories",
		WantsCollection: true,
	}}}
	tr := &fakeTransport{results: []model.AttemptResult{{StatusCode: 200, Body: map[string]any{"count": 2}}}}
	engine, store := newTestEngine(o, tr, Options{Execute: true})

	reply := engine.Process(context.Background(), "ivan", "show all categories")
	require.Equal(t, model.StatusSuccess, reply.Status)
	require.False(t, reply.NeedsFollowup)
	require.Contains(t, reply.Response, "HTTP 200")

	// Collection intent picked the placeholder-free endpoint.
	require.Equal(t, "http://api.local/api/categories", tr.seen[0].TargetURL)

	turns := store.Recent(UserID("ivan"), 10)
	require.Len(t, turns, 1)
	require.Equal(t, model.StatusSuccess, turns[0].Status)
	require.Nil(t, turns[0].PendingDescriptor)
}

func TestProcessEmptyInput(t *testing.T) {
	engine, store := newTestEngine(&fakeOracle{}, &fakeTransport{}, Options{Execute: true})

	reply := engine.Process(context.Background(), "ivan", "   ")
	require.Equal(t, model.StatusInformational, reply.Status)
	require.Empty(t, store.Recent(UserID("ivan"), 10))
}

func TestProcessNoIntent(t *testing.T) {
	engine, store := newTestEngine(&fakeOracle{}, &fakeTransport{}, Options{Execute: true})

	reply := engine.Process(context.Background(), "ivan", "blorp")
	require.Equal(t, model.StatusError, reply.Status)

	turns := store.Recent(UserID("ivan"), 10)
	require.Len(t, turns, 1)
	require.Equal(t, model.StatusError, turns[0].Status)
}

func TestProcessNoMatchingOperation(t *testing.T) {
	o := &fakeOracle{intents: []*model.Intent{{
		OperationHint: "DELETE",
		ResourceHint:  "invoices",
	}}}
	engine, _ := newTestEngine(o, &fakeTransport{}, Options{Execute: true})

	reply := engine.Process(context.Background(), "ivan", "delete invoice 3")
	require.Equal(t, model.StatusError, reply.Status)
	require.Contains(t, reply.Response, "No API operation")
}

func TestProcessBuildError(t *testing.T) {
	// The resource hint pins the single-item endpoint, but the intent carries
	// no id for its path variable.
	o := &fakeOracle{intents: []*model.Intent{{
		OperationHint: "GET",
		ResourceHint:  "categories/{id}",
	}}}
	engine, _ := newTestEngine(o, &fakeTransport{}, Options{Execute: true})

	reply := engine.Process(context.Background(), "ivan", "get that category")
	require.Equal(t, model.StatusError, reply.Status)
	require.Contains(t, reply.Response, `"id"`)
}

func TestProcessPreviewMode(t *testing.T) {
	o := &fakeOracle{intents: []*model.Intent{{
		OperationHint:   "GET",
		ResourceHint:    "categories",
		WantsCollection: true,
	}}}
	tr := &fakeTransport{results: []model.AttemptResult{{StatusCode: 200}}}
	engine, store := newTestEngine(o, tr, Options{Execute: false})

	reply := engine.Process(context.Background(), "ivan", "show all categories")
	require.Equal(t, model.StatusPreview, reply.Status)
	require.Contains(t, reply.Response, "GET http://api.local/api/categories")
	require.Empty(t, tr.seen)

	turns := store.Recent(UserID("ivan"), 10)
	require.Equal(t, model.StatusPreview, turns[0].Status)
}

func TestExhaustionSuspendsAndResumeSucceeds(t *testing.T) {
	o := &fakeOracle{
		intents: []*model.Intent{{
			OperationHint: "create",
			ResourceHint:  "category",
			Data:          map[string]any{"name": "Books"},
		}},
		followups:  []model.Intent{{Data: map[string]any{"slug": "books"}}},
		correction: model.Correction{CanApply: false},
		question:   "What slug should the category use?",
	}
	tr := &fakeTransport{results: []model.AttemptResult{
		{StatusCode: 422, Kind: model.ErrClient, RawBody: `{"error":"slug missing"}`},
		{StatusCode: 201},
	}}
	engine, store := newTestEngine(o, tr, Options{Execute: true})

	reply := engine.Process(context.Background(), "ivan", "create category Books")
	require.Equal(t, model.StatusNeedsFollowup, reply.Status)
	require.True(t, reply.NeedsFollowup)
	require.Contains(t, reply.Response, "What slug should the category use?")

	pending, ok := store.LastPending(UserID("ivan"))
	require.True(t, ok)
	require.NotNil(t, pending.PendingIntent)
	require.Equal(t, "Books", pending.PendingIntent.Data["name"])

	resumed := engine.Resume(context.Background(), "ivan", "use slug books")
	require.Equal(t, model.StatusSuccess, resumed.Status)

	// The retried request used the original operation plus merged data.
	final := tr.seen[len(tr.seen)-1]
	require.Equal(t, "http://api.local/api/categories", final.TargetURL)
	require.Equal(t, "Books", final.Body["name"])
	require.Equal(t, "books", final.Body["slug"])

	// No suspended request remains.
	_, ok = store.LastPending(UserID("ivan"))
	require.False(t, ok)
}

func TestResumeWithoutPending(t *testing.T) {
	engine, _ := newTestEngine(&fakeOracle{}, &fakeTransport{}, Options{Execute: true})
	reply := engine.Resume(context.Background(), "ivan", "the slug is books")
	require.Equal(t, model.StatusInformational, reply.Status)
	require.Contains(t, reply.Response, "no suspended request")
}

func TestResumeExpired(t *testing.T) {
	o := &fakeOracle{
		intents: []*model.Intent{{
			OperationHint: "create",
			ResourceHint:  "category",
			Data:          map[string]any{"name": "Books"},
		}},
		correction: model.Correction{CanApply: false},
	}
	tr := &fakeTransport{results: []model.AttemptResult{
		{StatusCode: 422, Kind: model.ErrClient, RawBody: "nope"},
	}}
	engine, store := newTestEngine(o, tr, Options{Execute: true, FollowupTTL: time.Hour})

	engine.Process(context.Background(), "ivan", "create category Books")
	_, ok := store.LastPending(UserID("ivan"))
	require.True(t, ok)

	engine.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	reply := engine.Resume(context.Background(), "ivan", "slug books")
	require.Equal(t, model.StatusInformational, reply.Status)
	require.Contains(t, reply.Response, "expired")

	_, ok = store.LastPending(UserID("ivan"))
	require.False(t, ok)
}

func TestResumeLoopsWhileStillFailing(t *testing.T) {
	o := &fakeOracle{
		intents: []*model.Intent{{
			OperationHint: "create",
			ResourceHint:  "category",
			Data:          map[string]any{"name": "Books"},
		}},
		followups:  []model.Intent{{Data: map[string]any{"slug": "books"}}},
		correction: model.Correction{CanApply: false},
	}
	tr := &fakeTransport{results: []model.AttemptResult{
		{StatusCode: 422, Kind: model.ErrClient, RawBody: "slug missing"},
	}}
	engine, store := newTestEngine(o, tr, Options{Execute: true})

	engine.Process(context.Background(), "ivan", "create category Books")
	reply := engine.Resume(context.Background(), "ivan", "use slug books")

	// Server keeps failing: stay suspended with the merged intent.
	require.Equal(t, model.StatusNeedsFollowup, reply.Status)
	pending, ok := store.LastPending(UserID("ivan"))
	require.True(t, ok)
	require.Equal(t, "books", pending.PendingIntent.Data["slug"])

	// Both rounds are on the record for auditing.
	require.Len(t, store.Recent(UserID("ivan"), 10), 2)
}

func TestAbandonDiscardsPending(t *testing.T) {
	o := &fakeOracle{
		intents: []*model.Intent{{
			OperationHint: "create",
			ResourceHint:  "category",
			Data:          map[string]any{"name": "Books"},
		}},
		correction: model.Correction{CanApply: false},
	}
	tr := &fakeTransport{results: []model.AttemptResult{
		{StatusCode: 422, Kind: model.ErrClient, RawBody: "x"},
	}}
	engine, store := newTestEngine(o, tr, Options{Execute: true})

	engine.Process(context.Background(), "ivan", "create category Books")
	reply := engine.Abandon("ivan")
	require.Equal(t, model.StatusInformational, reply.Status)

	_, ok := store.LastPending(UserID("ivan"))
	require.False(t, ok)
}

func TestAuthFailureEscalatesWithCredentialHint(t *testing.T) {
	o := &fakeOracle{
		intents: []*model.Intent{{
			OperationHint:   "GET",
			ResourceHint:    "categories",
			WantsCollection: true,
		}},
		correction: model.Correction{CanApply: true},
	}
	tr := &fakeTransport{results: []model.AttemptResult{
		{StatusCode: 401, Kind: model.ErrAuth},
	}}
	engine, _ := newTestEngine(o, tr, Options{Execute: true})

	reply := engine.Process(context.Background(), "ivan", "show all categories")
	require.Contains(t, reply.Response, "Authorization failed")
	// Auth failures are never retried.
	require.Len(t, tr.seen, 1)
}

func TestUsersDoNotCrossTalk(t *testing.T) {
	o := &fakeOracle{
		intents: []*model.Intent{
			{OperationHint: "create", ResourceHint: "category", Data: map[string]any{"name": "A"}},
			{OperationHint: "GET", ResourceHint: "categories", WantsCollection: true},
		},
		correction: model.Correction{CanApply: false},
	}
	tr := &fakeTransport{results: []model.AttemptResult{
		{StatusCode: 422, Kind: model.ErrClient, RawBody: "x"},
		{StatusCode: 200},
	}}
	engine, store := newTestEngine(o, tr, Options{Execute: true})

	engine.Process(context.Background(), "ivan", "create category A")
	engine.Process(context.Background(), "olena", "show all categories")

	// Ivan's suspension is invisible to Olena.
	_, ok := store.LastPending(UserID("olena"))
	require.False(t, ok)
	_, ok = store.LastPending(UserID("ivan"))
	require.True(t, ok)
}

func TestUserIDStable(t *testing.T) {
	require.Equal(t, UserID("ivan"), UserID("ivan"))
	require.NotEqual(t, UserID("ivan"), UserID("olena"))
	require.Len(t, UserID("ivan"), 32)
}
