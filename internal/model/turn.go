package model

import "time"

// TurnStatus classifies the outcome of one resolved conversation turn.
type TurnStatus string

const (
	StatusSuccess       TurnStatus = "success"
	StatusPreview       TurnStatus = "preview"
	StatusNeedsFollowup TurnStatus = "needs_followup"
	StatusError         TurnStatus = "error"
	StatusInformational TurnStatus = "informational"
)

// ConversationTurn is one user message and the engine's response to it.
// PendingDescriptor and PendingIntent are set if and only if the status is
// StatusNeedsFollowup; they carry the suspended request into the next round.
type ConversationTurn struct {
	ID                string
	Timestamp         time.Time
	UserMessage       string
	BotResponse       string
	Status            TurnStatus
	PendingDescriptor *RequestDescriptor
	PendingIntent     *Intent
}

// NeedsFollowup reports whether the turn suspended a request awaiting user input.
func (t ConversationTurn) NeedsFollowup() bool {
	return t.Status == StatusNeedsFollowup
}
