package interfaces

import (
	"context"
	"time"

	"github.com/secmon-lab/mnemosyne/pkg/domain/model"
	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
)

// MidTermRepository defines the interface for MidTermSummary persistence.
// Summaries are immutable once created.
type MidTermRepository interface {
	// Create stores a new summary
	Create(ctx context.Context, summary *model.MidTermSummary) error

	// Get retrieves a summary by ID
	Get(ctx context.Context, userID types.UserID, id model.SummaryID) (*model.MidTermSummary, error)

	// List retrieves all summaries for a user ordered by creation time
	// ascending.
	List(ctx context.Context, userID types.UserID) ([]*model.MidTermSummary, error)

	// ListSince retrieves summaries created at or after the given time
	ListSince(ctx context.Context, userID types.UserID, since time.Time) ([]*model.MidTermSummary, error)
}

// LongTermRepository defines the interface for LongTermItem persistence
// and vector similarity search.
type LongTermRepository interface {
	// Create stores a new item with its embedding
	Create(ctx context.Context, item *model.LongTermItem) error

	// Get retrieves an item by ID
	Get(ctx context.Context, userID types.UserID, id model.ItemID) (*model.LongTermItem, error)

	// Update overwrites an existing item (importance, last access)
	Update(ctx context.Context, item *model.LongTermItem) error

	// List retrieves all items for a user
	List(ctx context.Context, userID types.UserID) ([]*model.LongTermItem, error)

	// FindByEmbedding performs vector similarity search using cosine
	// distance. Returns up to limit items most similar to the given
	// embedding, filtered to importance >= minImportance.
	FindByEmbedding(ctx context.Context, userID types.UserID, embedding []float32, limit int, minImportance float64) ([]*model.ScoredItem, error)

	// Delete removes an item by ID
	Delete(ctx context.Context, userID types.UserID, id model.ItemID) error
}

// ArchiveRepository defines the interface for archived long-term items.
// Archived items are retained for inspection but never retrieved into
// prompts.
type ArchiveRepository interface {
	// Put stores an archived item
	Put(ctx context.Context, item *model.ArchivedItem) error

	// List retrieves all archived items for a user
	List(ctx context.Context, userID types.UserID) ([]*model.ArchivedItem, error)
}

// WeeklySummaryRepository defines the interface for WeeklySummary
// persistence.
type WeeklySummaryRepository interface {
	// Create stores a new weekly summary
	Create(ctx context.Context, summary *model.WeeklySummary) error

	// List retrieves all weekly summaries for a user ordered by week start
	// ascending.
	List(ctx context.Context, userID types.UserID) ([]*model.WeeklySummary, error)

	// Latest retrieves the most recent weekly summary for a user. Returns
	// ErrNotFound when none exists.
	Latest(ctx context.Context, userID types.UserID) (*model.WeeklySummary, error)
}
