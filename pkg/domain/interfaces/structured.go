package interfaces

import (
	"context"

	"github.com/secmon-lab/mnemosyne/pkg/domain/model"
	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
)

// ProfileRepository defines the interface for UserProfile persistence.
// There is at most one profile document per user.
type ProfileRepository interface {
	// Get retrieves the profile for a user. Returns ErrNotFound when no
	// field has ever been stored.
	Get(ctx context.Context, userID types.UserID) (*model.UserProfile, error)

	// Put overwrites the profile for a user
	Put(ctx context.Context, profile *model.UserProfile) error
}

// PromiseRepository defines the interface for Promise persistence
type PromiseRepository interface {
	// Create stores a new promise
	Create(ctx context.Context, promise *model.Promise) error

	// Get retrieves a promise by ID
	Get(ctx context.Context, userID types.UserID, id model.PromiseID) (*model.Promise, error)

	// Update overwrites an existing promise
	Update(ctx context.Context, promise *model.Promise) error

	// List retrieves all promises for a user
	List(ctx context.Context, userID types.UserID) ([]*model.Promise, error)

	// ListByStatus retrieves promises with the given status
	ListByStatus(ctx context.Context, userID types.UserID, status types.PromiseStatus) ([]*model.Promise, error)
}

// BoundaryRepository defines the interface for Boundary persistence
type BoundaryRepository interface {
	// Create stores a new boundary
	Create(ctx context.Context, boundary *model.Boundary) error

	// List retrieves all boundaries for a user
	List(ctx context.Context, userID types.UserID) ([]*model.Boundary, error)
}
