package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
)

// EmbeddingDimension is the dimension of the embedding vector.
// Gemini text-embedding-004 uses 768 dimensions.
const EmbeddingDimension = 768

// Tiering constants. Items untouched for DecayWindow lose DecayStep of
// importance per maintenance run; items at or below ArchiveThreshold are
// moved to the archive tier.
const (
	DecayWindow      = 30 * 24 * time.Hour
	DecayStep        = 0.1
	ArchiveThreshold = 0.1
)

// PromotionThreshold is the minimum importance for a session fact to be
// promoted into long-term memory. WeeklyWindow is the trailing span the
// weekly compression pass covers.
const (
	PromotionThreshold = 0.7
	WeeklyWindow       = 7 * 24 * time.Hour
)

// ItemID is a UUID-based identifier for LongTermItem
type ItemID string

// NewItemID generates a new UUID v4 ItemID
func NewItemID() ItemID {
	return ItemID(uuid.New().String())
}

// LongTermItem is a durable memory about one user. Importance and
// LastAccessedAt are the only fields mutated after creation: retrieval
// touches LastAccessedAt, decay lowers Importance. An embedding is present
// only for items the retrieval index serves.
type LongTermItem struct {
	ID              ItemID
	UserID          types.UserID
	Content         string
	MemoryType      types.MemoryType
	Importance      float64
	Embedding       []float32
	SourceMidTermID SummaryID
	CreatedAt       time.Time
	LastAccessedAt  time.Time
}

// DecayEligible reports whether the item should lose importance at the
// given time: untouched for a full window. Decay itself counts as an
// access, which makes repeated maintenance runs inside one window a
// no-op without any extra bookkeeping.
func (m *LongTermItem) DecayEligible(now time.Time) bool {
	return now.Sub(m.LastAccessedAt) >= DecayWindow
}

// Decay lowers importance by DecayStep, clamped at 0, and refreshes the
// access time. The caller checks DecayEligible first.
func (m *LongTermItem) Decay(at time.Time) {
	m.Importance = ClampScore(m.Importance - DecayStep)
	m.LastAccessedAt = at
}

// Touch records a retrieval access
func (m *LongTermItem) Touch(at time.Time) {
	m.LastAccessedAt = at
}

// ScoredItem is a retrieval result with its cosine distance to the query
// embedding. Smaller distance means closer.
type ScoredItem struct {
	Item     *LongTermItem
	Distance float64
}

// ArchivedItem is a LongTermItem moved out of the active tier. Archived
// items are immutable and never resurface in decay or retrieval.
type ArchivedItem struct {
	ID         ItemID
	OriginalID ItemID
	UserID     types.UserID
	Content    string
	MemoryType types.MemoryType
	Importance float64
	CreatedAt  time.Time
	ArchivedAt time.Time
}

// NewArchivedItem freezes an active item into its archive form
func NewArchivedItem(item *LongTermItem, at time.Time) *ArchivedItem {
	return &ArchivedItem{
		ID:         ItemID(uuid.New().String()),
		OriginalID: item.ID,
		UserID:     item.UserID,
		Content:    item.Content,
		MemoryType: item.MemoryType,
		Importance: item.Importance,
		CreatedAt:  item.CreatedAt,
		ArchivedAt: at,
	}
}

// WeeklySummaryID is a UUID-based identifier for WeeklySummary
type WeeklySummaryID string

// NewWeeklySummaryID generates a new UUID v4 WeeklySummaryID
func NewWeeklySummaryID() WeeklySummaryID {
	return WeeklySummaryID(uuid.New().String())
}

// WeeklySummary is one consolidated narrative over the mid-term summaries
// of a trailing seven-day window, produced by the weekly compression pass.
type WeeklySummary struct {
	ID               WeeklySummaryID
	UserID           types.UserID
	SummaryText      string
	WeekStart        time.Time
	WeekEnd          time.Time
	SourceMidTermIDs []SummaryID
	CreatedAt        time.Time
}
