// Package oracle defines the narrow contract with the external
// natural-language reasoning service and ships a Gemini-backed default.
// Every call is treated as slow, fallible, and side-effect-free: a malformed
// response degrades to "no intent" or "cannot fix", never to a hard failure.
package oracle

import (
	"context"

	"github.com/kolah/parley/internal/model"
)

// Oracle is the language-reasoning contract the resolution engine consumes.
type Oracle interface {
	// ExtractIntent interprets a user message against recent conversation
	// context. A nil intent means the message could not be interpreted.
	ExtractIntent(ctx context.Context, userText, conversationContext string) (*model.Intent, error)

	// ProposeFix asks for a corrected descriptor after a failed attempt.
	ProposeFix(ctx context.Context, original, current model.RequestDescriptor,
		result model.AttemptResult, userText string, attempt, maxAttempts int) (model.Correction, error)

	// ExtractFollowup pulls a partial intent out of a follow-up reply,
	// guided by the pending intent it will be merged into.
	ExtractFollowup(ctx context.Context, userText string, pending model.Intent) (model.Intent, error)

	// FollowupPrompt phrases the question shown to the user when automatic
	// repair is exhausted.
	FollowupPrompt(ctx context.Context, result model.AttemptResult, d model.RequestDescriptor) (string, error)
}
