package model

import (
	"time"

	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
)

// Default importances assigned to facts extracted without an explicit
// score from the Observer.
const (
	DefaultFactImportance       = 0.5
	DefaultPreferenceImportance = 0.6
	DefaultPromiseImportance    = 0.7
	DefaultBoundaryImportance   = 0.8
)

// ExtractedFact is one candidate fact pulled out of a user utterance by
// the Observer. How it is committed depends on MemoryType: user_profile
// facts upsert a profile field, promise and boundary facts create
// structured rows, and the rest become long-term items.
type ExtractedFact struct {
	MemoryType types.MemoryType
	Content    string
	Importance float64

	// ProfileField is set for user_profile facts (e.g. "name", "hobby",
	// "preference_food"). ProfileValue carries the value to upsert.
	ProfileField string
	ProfileValue string

	// Category and Severity are set for boundary facts.
	Category types.BoundaryCategory
	Severity float64

	// DueDate is set for promise facts when the utterance names one.
	DueDate *time.Time
}

// Observation is the result of one Observer pass: a fully validated new
// mind state, zero or more extracted facts, and an optional directive for
// the Actor.
type Observation struct {
	NewState            *MindState
	Facts               []ExtractedFact
	InstructionOverride string
}
