package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
)

// SummaryID is a UUID-based identifier for MidTermSummary
type SummaryID string

// NewSummaryID generates a new UUID v4 SummaryID
func NewSummaryID() SummaryID {
	return SummaryID(uuid.New().String())
}

// MidTermSummary is a compressed record of one short-term session window.
// Summaries are immutable: they are superseded by newer summaries or
// promoted into long-term memory, never edited.
type MidTermSummary struct {
	ID              SummaryID
	UserID          types.UserID
	SummaryText     string
	Importance      float64
	SourceSessionID types.SessionID
	TurnStart       int
	TurnEnd         int
	CreatedAt       time.Time
}
