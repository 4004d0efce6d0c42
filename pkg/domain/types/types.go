package types

// UserID identifies a single conversation partner. All persisted rows are
// scoped by UserID and all turn processing is serialized per UserID.
type UserID string

// String returns the string representation of the user ID
func (id UserID) String() string {
	return string(id)
}

// Validate checks if the user ID is valid
func (id UserID) Validate() bool {
	return id != ""
}

// SessionID identifies one short-term conversation window. A new session
// starts when the previous window is promoted to mid-term memory.
type SessionID string

// String returns the string representation of the session ID
func (id SessionID) String() string {
	return string(id)
}

// Role represents the speaker of a short-term entry
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// IsValid checks if the role is valid
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}
