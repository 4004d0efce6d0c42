package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
)

// DefaultBoundarySeverity is used when a boundary is stored without an
// explicit severity.
const DefaultBoundarySeverity = 0.5

// BoundaryID is a UUID-based identifier for Boundary
type BoundaryID string

// NewBoundaryID generates a new UUID v4 BoundaryID
func NewBoundaryID() BoundaryID {
	return BoundaryID(uuid.New().String())
}

// Boundary is a topic, action, or time the agent must avoid for one user,
// weighted by severity.
type Boundary struct {
	ID        BoundaryID
	UserID    types.UserID
	Content   string
	Category  types.BoundaryCategory
	Severity  float64
	CreatedAt time.Time
}

// NewBoundary returns a boundary with its severity clamped into [0, 1]
func NewBoundary(userID types.UserID, content string, category types.BoundaryCategory, severity float64) *Boundary {
	return &Boundary{
		ID:        NewBoundaryID(),
		UserID:    userID,
		Content:   content,
		Category:  category,
		Severity:  ClampScore(severity),
		CreatedAt: time.Now().UTC(),
	}
}
