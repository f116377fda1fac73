// Package history keeps a bounded in-memory record of conversation turns per
// user. It is pure data access: no resolution logic lives here.
package history

import (
	"fmt"
	"strings"
	"sync"

	"github.com/kolah/parley/internal/model"
)

// DefaultCap is the per-user turn limit when none is configured.
const DefaultCap = 20

// Store holds recent conversation turns per user, evicting oldest-first once
// a user exceeds the cap. Safe for concurrent use across users.
type Store struct {
	mu    sync.Mutex
	cap   int
	turns map[string][]model.ConversationTurn
}

func NewStore(cap int) *Store {
	if cap <= 0 {
		cap = DefaultCap
	}
	return &Store{
		cap:   cap,
		turns: make(map[string][]model.ConversationTurn),
	}
}

// Append records a turn for a user, evicting the oldest turns beyond the cap.
func (s *Store) Append(userID string, turn model.ConversationTurn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := append(s.turns[userID], turn)
	if len(turns) > s.cap {
		turns = turns[len(turns)-s.cap:]
	}
	s.turns[userID] = turns
}

// Recent returns up to n most recent turns for a user, oldest first.
func (s *Store) Recent(userID string, n int) []model.ConversationTurn {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := s.turns[userID]
	if n <= 0 || n > len(turns) {
		n = len(turns)
	}
	out := make([]model.ConversationTurn, n)
	copy(out, turns[len(turns)-n:])
	return out
}

// LastPending returns the most recent turn awaiting follow-up input, or false
// when no suspended request exists for the user.
func (s *Store) LastPending(userID string) (model.ConversationTurn, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := s.turns[userID]
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].NeedsFollowup() {
			return turns[i], true
		}
	}
	return model.ConversationTurn{}, false
}

// ResolvePending marks every suspended turn for the user as resolved, so a
// later Resume cannot pick up a request that already completed or was
// abandoned.
func (s *Store) ResolvePending(userID string, status model.TurnStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := s.turns[userID]
	for i := range turns {
		if turns[i].NeedsFollowup() {
			turns[i].Status = status
			turns[i].PendingDescriptor = nil
			turns[i].PendingIntent = nil
		}
	}
}

// Clear drops all history for a user.
func (s *Store) Clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.turns, userID)
}

// Context formats the last max turns as a transcript for the oracle's
// conversation context.
func (s *Store) Context(userID string, max int) string {
	turns := s.Recent(userID, max)
	if len(turns) == 0 {
		return ""
	}

	var b strings.Builder
	for _, t := range turns {
		ts := t.Timestamp.Format("15:04")
		fmt.Fprintf(&b, "User (%s): %s\n", ts, t.UserMessage)
		fmt.Fprintf(&b, "Bot (%s) [%s]: %s\n", ts, t.Status, t.BotResponse)
	}
	return strings.TrimRight(b.String(), "\n")
}
