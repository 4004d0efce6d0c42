package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
)

// ShortTermWindow is the number of turns held in short-term memory before
// the session is summarized into mid-term memory.
const ShortTermWindow = 15

// EntryID is a UUID-based identifier for ShortTermEntry
type EntryID string

// NewEntryID generates a new UUID v4 EntryID
func NewEntryID() EntryID {
	return EntryID(uuid.New().String())
}

// NewSessionID generates a time-ordered session ID
func NewSessionID() types.SessionID {
	return types.SessionID(uuid.Must(uuid.NewV7()).String())
}

// ShortTermEntry is one utterance in the append-only conversation log.
// Reads are bounded to the most recent ShortTermWindow turns per session.
type ShortTermEntry struct {
	ID         EntryID
	UserID     types.UserID
	SessionID  types.SessionID
	Role       types.Role
	Content    string
	TurnNumber int
	CreatedAt  time.Time
}
