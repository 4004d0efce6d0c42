package model

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
)

// PhaseDefinition is one narrative phase of a persona. Phases advance in
// order as the scenario phase is updated by the Observer.
type PhaseDefinition struct {
	ID    string `toml:"id"`
	Scene string `toml:"scene"`
	// Goal is a free-form note injected into prompts while the phase is
	// active.
	Goal string `toml:"goal"`
	// TrustThreshold is the trust value that must be reached before the
	// scenario advances into this phase. Zero means no gate.
	TrustThreshold float64 `toml:"trust_threshold"`
}

// Persona describes the character the agent plays: its name, a prose
// description used as the base system prompt, speaking style notes, and
// the ordered scenario phases. Loaded from config at startup and treated
// as immutable.
type Persona struct {
	Name        string            `toml:"name"`
	Description string            `toml:"description"`
	Style       string            `toml:"style"`
	Phases      []PhaseDefinition `toml:"phases"`
}

// Validate rejects personas that would produce unusable prompts
func (p *Persona) Validate() error {
	if p.Name == "" {
		return goerr.Wrap(types.ErrValidation, "persona requires a name")
	}
	if p.Description == "" {
		return goerr.Wrap(types.ErrValidation, "persona requires a description",
			goerr.V("name", p.Name))
	}
	seen := make(map[string]struct{}, len(p.Phases))
	for _, ph := range p.Phases {
		if ph.ID == "" {
			return goerr.Wrap(types.ErrValidation, "persona phase requires an ID",
				goerr.V("name", p.Name))
		}
		if _, ok := seen[ph.ID]; ok {
			return goerr.Wrap(types.ErrValidation, "duplicate persona phase ID",
				goerr.V("name", p.Name),
				goerr.V("phase", ph.ID))
		}
		seen[ph.ID] = struct{}{}
	}
	return nil
}

// Phase returns the phase definition for the given ID, or nil when the
// persona does not define it.
func (p *Persona) Phase(id string) *PhaseDefinition {
	for i := range p.Phases {
		if p.Phases[i].ID == id {
			return &p.Phases[i]
		}
	}
	return nil
}

// NextPhase returns the phase following the given ID, or nil when the
// given phase is the last one or unknown.
func (p *Persona) NextPhase(id string) *PhaseDefinition {
	for i := range p.Phases {
		if p.Phases[i].ID == id && i+1 < len(p.Phases) {
			return &p.Phases[i+1]
		}
	}
	return nil
}

// DefaultPersona is used when no persona config is supplied
func DefaultPersona() *Persona {
	return &Persona{
		Name:        "Mnemosyne",
		Description: "A calm, attentive companion who remembers what matters to the people it talks with.",
		Style:       "Warm and concise. Avoids filler. Refers back to earlier conversations naturally.",
		Phases: []PhaseDefinition{
			{ID: "introduction", Scene: "first_contact", Goal: "Learn who the user is."},
			{ID: "acquaintance", Scene: "daily_chat", Goal: "Build shared context and routines.", TrustThreshold: 30},
			{ID: "companion", Scene: "daily_chat", Goal: "Act on accumulated memory proactively.", TrustThreshold: 70},
		},
	}
}
