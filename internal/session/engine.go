// Package session drives one user's resolution flow: oracle intent extraction,
// candidate selection, request building, the retry loop, and the follow-up
// dialogue when automatic repair is exhausted. Turns within a session are
// strictly sequential; sessions of different users never share state.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kolah/parley/internal/builder"
	"github.com/kolah/parley/internal/history"
	"github.com/kolah/parley/internal/index"
	"github.com/kolah/parley/internal/model"
	"github.com/kolah/parley/internal/oracle"
	"github.com/kolah/parley/internal/retry"
	"github.com/kolah/parley/internal/scorer"
)

// Options tunes engine behavior outside the retry policy.
type Options struct {
	// Execute enables real API calls; when false every resolution stops at a
	// preview of the request that would be sent.
	Execute bool
	// ContextTurns is how many recent turns feed the oracle's context window.
	ContextTurns int
	// CandidateLimit caps how many operations the index returns per query.
	CandidateLimit int
	// FollowupTTL expires a suspended request; a Resume after the deadline is
	// treated as a new conversation. Zero means no expiry.
	FollowupTTL time.Duration
	// Scope restricts candidate operations to one tag. Empty means all.
	Scope string
}

func (o Options) withDefaults() Options {
	if o.ContextTurns <= 0 {
		o.ContextTurns = 3
	}
	if o.CandidateLimit <= 0 {
		o.CandidateLimit = 5
	}
	return o
}

// Reply is what the surrounding presentation layer shows the user.
type Reply struct {
	Response      string
	Status        model.TurnStatus
	NeedsFollowup bool
	Result        *model.AttemptResult
}

// Engine resolves user messages into API calls. One engine serves all users;
// per-user ordering is enforced by a session lock so a new message waits for
// the prior resolution to reach a terminal state.
type Engine struct {
	oracle  oracle.Oracle
	index   index.Index
	builder *builder.Builder
	retrier *retry.Controller
	store   *history.Store
	logger  *zap.Logger
	opts    Options

	mu       sync.Mutex
	sessions map[string]*sync.Mutex

	now   func() time.Time
	newID func() string
}

func NewEngine(o oracle.Oracle, idx index.Index, b *builder.Builder, r *retry.Controller,
	store *history.Store, logger *zap.Logger, opts Options) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		oracle:   o,
		index:    idx,
		builder:  b,
		retrier:  r,
		store:    store,
		logger:   logger,
		opts:     opts.withDefaults(),
		sessions: make(map[string]*sync.Mutex),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// UserID derives a stable opaque identifier from whatever the caller uses to
// name a user.
func UserID(identifier string) string {
	sum := sha256.Sum256([]byte(identifier))
	return hex.EncodeToString(sum[:16])
}

func (e *Engine) sessionLock(userID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.sessions[userID]
	if !ok {
		lock = &sync.Mutex{}
		e.sessions[userID] = lock
	}
	return lock
}

// Process resolves a fresh user message end to end.
func (e *Engine) Process(ctx context.Context, userIdentifier, text string) Reply {
	userID := UserID(userIdentifier)
	lock := e.sessionLock(userID)
	lock.Lock()
	defer lock.Unlock()

	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{Response: msgEmptyInput, Status: model.StatusInformational}
	}

	log := e.logger.With(zap.String("user", userID))
	log.Info("processing query", zap.String("query", text))

	conversationContext := e.store.Context(userID, e.opts.ContextTurns)
	intent, err := e.oracle.ExtractIntent(ctx, text, conversationContext)
	if err != nil || intent == nil {
		if err != nil {
			log.Warn("intent extraction failed", zap.Error(err))
		}
		return e.record(userID, text, Reply{Response: msgNoIntent, Status: model.StatusError})
	}

	candidates, err := e.index.FindCandidates(ctx, text, e.opts.Scope, e.opts.CandidateLimit)
	if err != nil {
		log.Warn("candidate search failed", zap.Error(err))
	}
	operation := scorer.Select(*intent, candidates)
	if operation == nil {
		return e.record(userID, text, Reply{Response: msgNoOperation, Status: model.StatusError})
	}
	log.Debug("operation selected", zap.String("operation", operation.ID))

	descriptor, err := e.builder.Build(*intent, *operation)
	if err != nil {
		return e.record(userID, text, Reply{Response: buildErrorMessage(err), Status: model.StatusError})
	}

	if !e.opts.Execute {
		return e.record(userID, text, Reply{Response: previewMessage(descriptor), Status: model.StatusPreview})
	}

	return e.finish(ctx, userID, text, *intent, descriptor, log)
}

// Resume continues a suspended resolution with the user's follow-up reply.
// The original operation choice is kept: the user is supplying missing data,
// not changing intent.
func (e *Engine) Resume(ctx context.Context, userIdentifier, text string) Reply {
	userID := UserID(userIdentifier)
	lock := e.sessionLock(userID)
	lock.Lock()
	defer lock.Unlock()

	pending, ok := e.store.LastPending(userID)
	if !ok {
		return Reply{Response: msgNoPending, Status: model.StatusInformational}
	}
	if e.opts.FollowupTTL > 0 && e.now().Sub(pending.Timestamp) > e.opts.FollowupTTL {
		e.store.ResolvePending(userID, model.StatusInformational)
		return Reply{Response: msgPendingExpired, Status: model.StatusInformational}
	}

	log := e.logger.With(zap.String("user", userID))
	log.Info("resuming suspended request", zap.String("reply", text))

	partial, err := e.oracle.ExtractFollowup(ctx, text, *pending.PendingIntent)
	if err != nil {
		log.Warn("follow-up extraction failed", zap.Error(err))
	}
	merged := pending.PendingIntent.Merge(partial)

	descriptor, err := e.builder.Build(merged, pending.PendingDescriptor.SourceOperation)
	if err != nil {
		// Still incomplete: stay suspended with the merged intent so the next
		// reply builds on what this one supplied.
		e.store.ResolvePending(userID, model.StatusInformational)
		reply := Reply{
			Response:      buildErrorMessage(err),
			Status:        model.StatusNeedsFollowup,
			NeedsFollowup: true,
		}
		e.append(userID, text, reply, pending.PendingDescriptor, &merged)
		return reply
	}

	e.store.ResolvePending(userID, model.StatusInformational)
	return e.finish(ctx, userID, text, merged, descriptor, log)
}

// Abandon cancels any suspended request for the user. The pending descriptor
// is discarded, never re-persisted.
func (e *Engine) Abandon(userIdentifier string) Reply {
	userID := UserID(userIdentifier)
	lock := e.sessionLock(userID)
	lock.Lock()
	defer lock.Unlock()

	e.store.ResolvePending(userID, model.StatusInformational)
	reply := Reply{Response: msgAbandoned, Status: model.StatusInformational}
	e.append(userID, "", reply, nil, nil)
	return reply
}

// finish executes the descriptor through the retry loop and turns the outcome
// into a recorded reply, suspending into follow-up on exhaustion.
func (e *Engine) finish(ctx context.Context, userID, text string, intent model.Intent,
	descriptor model.RequestDescriptor, log *zap.Logger) Reply {
	outcome := e.retrier.Execute(ctx, descriptor, text)

	switch outcome.State {
	case retry.StateSucceeded:
		reply := Reply{
			Response: successMessage(outcome),
			Status:   model.StatusSuccess,
			Result:   &outcome.Result,
		}
		e.append(userID, text, reply, nil, nil)
		return reply

	case retry.StateCancelled:
		log.Info("resolution cancelled", zap.Int("attempts", outcome.Attempts))
		reply := Reply{Response: msgAbandoned, Status: model.StatusInformational}
		e.append(userID, text, reply, nil, nil)
		return reply

	default: // retry.StateExhausted
		question := e.followupQuestion(ctx, outcome)
		reply := Reply{
			Response:      failureMessage(outcome) + "\n\n" + question,
			Status:        model.StatusNeedsFollowup,
			NeedsFollowup: true,
			Result:        &outcome.Result,
		}
		e.append(userID, text, reply, &outcome.Descriptor, &intent)
		return reply
	}
}

func (e *Engine) followupQuestion(ctx context.Context, outcome retry.Outcome) string {
	question, err := e.oracle.FollowupPrompt(ctx, outcome.Result, outcome.Descriptor)
	if err != nil || strings.TrimSpace(question) == "" {
		return fallbackFollowup(outcome)
	}
	return question
}

// record appends a terminal turn with no pending state and returns the reply.
func (e *Engine) record(userID, text string, reply Reply) Reply {
	e.append(userID, text, reply, nil, nil)
	return reply
}

func (e *Engine) append(userID, text string, reply Reply,
	pendingDescriptor *model.RequestDescriptor, pendingIntent *model.Intent) {
	turn := model.ConversationTurn{
		ID:          e.newID(),
		Timestamp:   e.now(),
		UserMessage: text,
		BotResponse: reply.Response,
		Status:      reply.Status,
	}
	if reply.Status == model.StatusNeedsFollowup {
		turn.PendingDescriptor = pendingDescriptor
		turn.PendingIntent = pendingIntent
	}
	e.store.Append(userID, turn)
}
