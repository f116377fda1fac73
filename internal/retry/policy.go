package retry

import (
	"strings"
	"time"

	"github.com/kolah/parley/internal/model"
)

// Policy bounds the retry loop and carries the classification tables. The
// fixable-pattern list is configuration, not code: the set of 400 bodies with
// a mechanically derivable correction depends on the target API's phrasing.
type Policy struct {
	MaxAttempts       int
	Delay             time.Duration
	RetryableStatuses []int
	FixablePatterns   []string
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:       3,
		Delay:             time.Second,
		RetryableStatuses: []int{429, 502, 503, 504},
		FixablePatterns: []string{
			"is required",
			"required field",
			"missing required",
			"slug",
			"обов'язкове поле",
			"відсутнє поле",
		},
	}
}

// ShouldRetry decides whether another attempt is warranted. Eligibility is
// re-evaluated against the current attempt number on every attempt.
//
// Auth failures are never retried under any policy: resending invalid
// credentials risks account lockouts, so 401/403 always escalate to the user.
// Most 400s reflect semantic errors a blind retry cannot fix; only bodies
// matching the fixable-pattern table are worth another attempt.
func (p Policy) ShouldRetry(result model.AttemptResult, attempt int) bool {
	if attempt >= p.MaxAttempts {
		return false
	}
	if result.Kind == model.ErrAuth || result.StatusCode == 401 || result.StatusCode == 403 {
		return false
	}

	switch result.Kind {
	case model.ErrConnection, model.ErrTimeout, model.ErrEncoding:
		// Transient or locally fixable, always worth another attempt.
		return true
	}

	for _, status := range p.RetryableStatuses {
		if result.StatusCode == status {
			return true
		}
	}

	if result.StatusCode == 400 {
		return p.matchesFixablePattern(result)
	}
	return false
}

func (p Policy) matchesFixablePattern(result model.AttemptResult) bool {
	body := strings.ToLower(result.RawBody)
	if body == "" {
		body = strings.ToLower(result.Message)
	}
	for _, pattern := range p.FixablePatterns {
		if pattern != "" && strings.Contains(body, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}
