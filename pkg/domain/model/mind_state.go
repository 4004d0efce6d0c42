package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
)

// Biometric variable bounds. Mood is signed, the rest are percentage-like.
const (
	MoodMin      = -10.0
	MoodMax      = 10.0
	EnergyMin    = 0.0
	EnergyMax    = 100.0
	AffectionMin = 0.0
	AffectionMax = 100.0
	TrustMin     = 0.0
	TrustMax     = 100.0
)

// Biometrics holds the four bounded mood/relationship variables of the
// agent toward one user. Every mutation must go through Apply or Clamp so
// values never leave their declared ranges.
type Biometrics struct {
	Mood      float64
	Energy    float64
	Affection float64
	Trust     float64
}

// Clamp forces all variables back into their declared ranges
func (b *Biometrics) Clamp() {
	b.Mood = clamp(b.Mood, MoodMin, MoodMax)
	b.Energy = clamp(b.Energy, EnergyMin, EnergyMax)
	b.Affection = clamp(b.Affection, AffectionMin, AffectionMax)
	b.Trust = clamp(b.Trust, TrustMin, TrustMax)
}

// Apply adds the delta to each variable and clamps the result
func (b *Biometrics) Apply(d BiometricsDelta) {
	b.Mood += d.Mood
	b.Energy += d.Energy
	b.Affection += d.Affection
	b.Trust += d.Trust
	b.Clamp()
}

// InRange reports whether all variables are within bounds
func (b *Biometrics) InRange() bool {
	return b.Mood >= MoodMin && b.Mood <= MoodMax &&
		b.Energy >= EnergyMin && b.Energy <= EnergyMax &&
		b.Affection >= AffectionMin && b.Affection <= AffectionMax &&
		b.Trust >= TrustMin && b.Trust <= TrustMax
}

// BiometricsDelta is a bounded change produced by one Observer pass
type BiometricsDelta struct {
	Mood      float64
	Energy    float64
	Affection float64
	Trust     float64
}

// Scenario tracks narrative progress for one user
type Scenario struct {
	Phase       string
	Scene       string
	TurnInScene int
	Flags       map[string]bool
}

// SetFlag sets a named scenario flag, allocating the map if needed
func (s *Scenario) SetFlag(name string, value bool) {
	if s.Flags == nil {
		s.Flags = make(map[string]bool)
	}
	s.Flags[name] = value
}

// Flag returns the value of a named scenario flag (false when unset)
func (s *Scenario) Flag(name string) bool {
	return s.Flags[name]
}

// MindState is the single live snapshot of the agent's disposition toward
// one user. Exactly one row exists per user and it is overwritten in place
// on each turn.
type MindState struct {
	UserID     types.UserID
	Biometrics Biometrics
	Scenario   Scenario
	UpdatedAt  time.Time
}

// NewMindState returns the initial state for a user the agent has never met
func NewMindState(userID types.UserID, persona *Persona) *MindState {
	st := &MindState{
		UserID: userID,
		Biometrics: Biometrics{
			Energy: 50,
		},
		Scenario: Scenario{
			Flags: make(map[string]bool),
		},
		UpdatedAt: time.Now().UTC(),
	}
	if persona != nil && len(persona.Phases) > 0 {
		st.Scenario.Phase = persona.Phases[0].ID
		st.Scenario.Scene = persona.Phases[0].Scene
	}
	return st
}

// Validate rejects states that must never reach the store. The store
// boundary converts raw documents through this before handing them to
// business logic.
func (s *MindState) Validate() error {
	if !s.UserID.Validate() {
		return goerr.Wrap(types.ErrValidation, "mind state requires a user ID")
	}
	if !s.Biometrics.InRange() {
		return goerr.Wrap(types.ErrValidation, "biometrics out of range",
			goerr.V("mood", s.Biometrics.Mood),
			goerr.V("energy", s.Biometrics.Energy),
			goerr.V("affection", s.Biometrics.Affection),
			goerr.V("trust", s.Biometrics.Trust))
	}
	if s.Scenario.TurnInScene < 0 {
		return goerr.Wrap(types.ErrValidation, "negative turn counter",
			goerr.V("turn_in_scene", s.Scenario.TurnInScene))
	}
	return nil
}

// Clone returns a deep copy so Observer strategies can mutate freely
// without touching the committed state.
func (s *MindState) Clone() *MindState {
	copied := *s
	copied.Scenario.Flags = make(map[string]bool, len(s.Scenario.Flags))
	for k, v := range s.Scenario.Flags {
		copied.Scenario.Flags[k] = v
	}
	return &copied
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampScore clamps an importance or severity score into [0, 1]
func ClampScore(v float64) float64 {
	return clamp(v, 0, 1)
}
