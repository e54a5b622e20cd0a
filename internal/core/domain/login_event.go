package domain

import "time"

// Login outcomes recorded in login history and metrics.
const (
	OutcomeSuccess   = "success"
	OutcomeRejected  = "rejected"
	OutcomeThrottled = "throttled"
	OutcomeError     = "error"
)

// LoginEvent records one login attempt.
type LoginEvent struct {
	ID         string
	UserID     string // empty when no identity was resolved
	Email      string
	Method     string // "local", "google", "facebook"
	Outcome    string
	Reason     string // reject reason or error summary
	IP         string
	UserAgent  string
	OccurredAt time.Time
}
