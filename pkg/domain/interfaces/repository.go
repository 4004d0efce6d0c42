package interfaces

import (
	"context"

	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
)

// Repository defines the interface for data persistence
type Repository interface {
	State() StateRepository
	ShortTerm() ShortTermRepository
	MidTerm() MidTermRepository
	LongTerm() LongTermRepository
	Archive() ArchiveRepository
	Profile() ProfileRepository
	Promise() PromiseRepository
	Boundary() BoundaryRepository
	WeeklySummary() WeeklySummaryRepository

	// ListUserIDs returns every user ID that has any persisted data.
	// Used by maintenance sweeps.
	ListUserIDs(ctx context.Context) ([]types.UserID, error)

	// ResetUser deletes all data held for one user across every
	// collection. Irreversible.
	ResetUser(ctx context.Context, userID types.UserID) error

	// Close releases underlying client connections
	Close() error
}
