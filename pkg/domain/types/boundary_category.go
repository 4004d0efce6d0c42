package types

import "fmt"

// BoundaryCategory classifies what kind of thing a boundary restricts
type BoundaryCategory string

const (
	BoundaryCategoryTopic  BoundaryCategory = "topic"
	BoundaryCategoryAction BoundaryCategory = "action"
	BoundaryCategoryTime   BoundaryCategory = "time"
)

// AllBoundaryCategories returns all valid boundary categories
func AllBoundaryCategories() []BoundaryCategory {
	return []BoundaryCategory{
		BoundaryCategoryTopic,
		BoundaryCategoryAction,
		BoundaryCategoryTime,
	}
}

// IsValid checks if the boundary category is valid
func (c BoundaryCategory) IsValid() bool {
	switch c {
	case BoundaryCategoryTopic, BoundaryCategoryAction, BoundaryCategoryTime:
		return true
	default:
		return false
	}
}

// String returns the string representation of the boundary category
func (c BoundaryCategory) String() string {
	return string(c)
}

// ParseBoundaryCategory parses a string into a BoundaryCategory
func ParseBoundaryCategory(s string) (BoundaryCategory, error) {
	cat := BoundaryCategory(s)
	if !cat.IsValid() {
		return "", fmt.Errorf("invalid boundary category: %s", s)
	}
	return cat, nil
}
