package types

import "fmt"

// MemoryType classifies a long-term memory item
type MemoryType string

const (
	MemoryTypeFact        MemoryType = "fact"
	MemoryTypeEmotion     MemoryType = "emotion"
	MemoryTypePreference  MemoryType = "preference"
	MemoryTypeEvent       MemoryType = "event"
	MemoryTypeUserProfile MemoryType = "user_profile"
	MemoryTypePromise     MemoryType = "promise"
	MemoryTypeBoundary    MemoryType = "boundary"
)

// AllMemoryTypes returns all valid memory types
func AllMemoryTypes() []MemoryType {
	return []MemoryType{
		MemoryTypeFact,
		MemoryTypeEmotion,
		MemoryTypePreference,
		MemoryTypeEvent,
		MemoryTypeUserProfile,
		MemoryTypePromise,
		MemoryTypeBoundary,
	}
}

// IsValid checks if the memory type is valid
func (m MemoryType) IsValid() bool {
	switch m {
	case MemoryTypeFact,
		MemoryTypeEmotion,
		MemoryTypePreference,
		MemoryTypeEvent,
		MemoryTypeUserProfile,
		MemoryTypePromise,
		MemoryTypeBoundary:
		return true
	default:
		return false
	}
}

// String returns the string representation of the memory type
func (m MemoryType) String() string {
	return string(m)
}

// ParseMemoryType parses a string into a MemoryType
func ParseMemoryType(s string) (MemoryType, error) {
	mt := MemoryType(s)
	if !mt.IsValid() {
		return "", fmt.Errorf("invalid memory type: %s", s)
	}
	return mt, nil
}
