// Package retry executes request descriptors with a bounded, policy-driven
// retry loop. Between attempts it asks the language oracle for a corrected
// descriptor; corrections apply to a fresh copy, never in place.
package retry

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kolah/parley/internal/model"
	"github.com/kolah/parley/internal/transport"
)

// State is the terminal state of one Execute call.
type State string

const (
	StateSucceeded State = "succeeded"
	StateExhausted State = "exhausted"
	StateCancelled State = "cancelled"
)

// FixProposer is the slice of the language oracle the controller consumes.
type FixProposer interface {
	ProposeFix(ctx context.Context, original, current model.RequestDescriptor,
		result model.AttemptResult, userQuery string, attempt, maxAttempts int) (model.Correction, error)
}

// Outcome reports how the loop ended, with the last attempt's result and the
// descriptor that produced it.
type Outcome struct {
	State      State
	Result     model.AttemptResult
	Descriptor model.RequestDescriptor
	Attempts   int
}

// Controller drives the attempt loop. It holds no per-call state; one
// controller serves any number of concurrent sessions.
type Controller struct {
	transport transport.Transport
	fixer     FixProposer
	policy    Policy
	logger    *zap.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

func NewController(t transport.Transport, fixer FixProposer, policy Policy, logger *zap.Logger) *Controller {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultPolicy().MaxAttempts
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		transport: t,
		fixer:     fixer,
		policy:    policy,
		logger:    logger,
		sleep:     sleepCtx,
	}
}

// Execute runs the descriptor until success, exhaustion, or cancellation.
// It performs at most policy.MaxAttempts transport calls.
func (c *Controller) Execute(ctx context.Context, d model.RequestDescriptor, userQuery string) Outcome {
	original := d
	current := d

	var result model.AttemptResult
	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return Outcome{State: StateCancelled, Result: result, Descriptor: current, Attempts: attempt - 1}
		}

		start := time.Now()
		result = c.transport.Send(ctx, current)
		c.logger.Debug("attempt finished",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.policy.MaxAttempts),
			zap.String("method", string(current.Method)),
			zap.String("url", current.TargetURL),
			zap.Int("status", result.StatusCode),
			zap.String("error_kind", result.Kind.String()),
			zap.Duration("elapsed", time.Since(start)),
		)

		if result.OK() {
			return Outcome{State: StateSucceeded, Result: result, Descriptor: current, Attempts: attempt}
		}

		if !c.policy.ShouldRetry(result, attempt) {
			return Outcome{State: StateExhausted, Result: result, Descriptor: current, Attempts: attempt}
		}

		correction, err := c.fixer.ProposeFix(ctx, original, current, result, userQuery, attempt, c.policy.MaxAttempts)
		if err != nil || !correction.CanApply {
			// No auto-repair available; exhaustion hands off to follow-up.
			if err != nil {
				c.logger.Warn("fix proposal failed", zap.Int("attempt", attempt), zap.Error(err))
			}
			return Outcome{State: StateExhausted, Result: result, Descriptor: current, Attempts: attempt}
		}

		c.logger.Info("applying proposed correction",
			zap.Int("attempt", attempt),
			zap.String("rationale", correction.Rationale),
		)
		current = current.Apply(correction)

		if err := c.sleep(ctx, c.policy.Delay); err != nil {
			return Outcome{State: StateCancelled, Result: result, Descriptor: current, Attempts: attempt}
		}
	}

	return Outcome{State: StateExhausted, Result: result, Descriptor: current, Attempts: c.policy.MaxAttempts}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
