package domain

import "time"

// Session maps an opaque session ID (the cookie value) to a serialized
// identity. ExpiresAt slides with activity; AbsoluteExpiresAt never moves.
type Session struct {
	ID                string    `json:"id"`
	Token             string    `json:"token"`
	Method            string    `json:"method"`
	CreatedAt         time.Time `json:"created_at"`
	LastSeenAt        time.Time `json:"last_seen_at"`
	ExpiresAt         time.Time `json:"expires_at"`
	AbsoluteExpiresAt time.Time `json:"absolute_expires_at"`
}

// Expired reports whether the session is no longer usable at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt) || !now.Before(s.AbsoluteExpiresAt)
}

// ShortID is a log-safe prefix of a session ID.
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
