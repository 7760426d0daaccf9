package entity

import (
	"time"

	"github.com/google/uuid"
)

// Session is auxiliary per-login bookkeeping. Tokens are self-contained, so
// sessions are not required for authentication correctness; they back the
// federation cookie flow and activity tracking.
type Session struct {
	ID           string
	UserID       uuid.UUID
	Email        string
	CreatedAt    time.Time
	LastActivity time.Time
}
