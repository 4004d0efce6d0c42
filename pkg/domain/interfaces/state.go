package interfaces

import (
	"context"

	"github.com/secmon-lab/mnemosyne/pkg/domain/model"
	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
)

// StateRepository defines the interface for MindState persistence. There
// is at most one state document per user.
type StateRepository interface {
	// Get retrieves the mind state for a user. Returns ErrNotFound when
	// the user has never been seen.
	Get(ctx context.Context, userID types.UserID) (*model.MindState, error)

	// Put overwrites the mind state for a user. The state must pass
	// Validate before it is written.
	Put(ctx context.Context, state *model.MindState) error
}

// ShortTermRepository defines the interface for the rolling window of raw
// conversation entries.
type ShortTermRepository interface {
	// Append stores one conversation entry
	Append(ctx context.Context, entry *model.ShortTermEntry) error

	// List retrieves the most recent window of entries for a user,
	// ordered by turn number ascending. The window is capped at
	// model.ShortTermWindow so the read stays bounded even when a
	// promotion pass is delayed.
	List(ctx context.Context, userID types.UserID) ([]*model.ShortTermEntry, error)

	// Clear removes all entries for a user. Called after promotion to
	// mid-term.
	Clear(ctx context.Context, userID types.UserID) error

	// Count returns the number of stored entries for a user
	Count(ctx context.Context, userID types.UserID) (int, error)
}
