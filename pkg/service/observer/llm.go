package observer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/secmon-lab/mnemosyne/pkg/domain/model"
	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
	"github.com/secmon-lab/mnemosyne/pkg/service/llm"
)

// llmObserver asks the model for bounded deltas rather than absolute
// values, then applies and clamps them locally. The committed state is
// always the product of local validation, never raw model output.
type llmObserver struct {
	client  gollem.LLMClient
	persona *model.Persona
}

func newLLMObserver(client gollem.LLMClient, persona *model.Persona) *llmObserver {
	return &llmObserver{client: client, persona: persona}
}

type observationResponse struct {
	MoodDelta           float64       `json:"mood_delta"`
	EnergyDelta         float64       `json:"energy_delta"`
	AffectionDelta      float64       `json:"affection_delta"`
	TrustDelta          float64       `json:"trust_delta"`
	Facts               []factPayload `json:"facts"`
	InstructionOverride string        `json:"instruction_override"`
}

type factPayload struct {
	MemoryType   string  `json:"memory_type"`
	Content      string  `json:"content"`
	Importance   float64 `json:"importance"`
	ProfileField string  `json:"profile_field"`
	ProfileValue string  `json:"profile_value"`
	Category     string  `json:"category"`
	Severity     float64 `json:"severity"`
}

func (x *llmObserver) Observe(ctx context.Context, message string, state *model.MindState, history []*model.ShortTermEntry) (*model.Observation, error) {
	var resp observationResponse
	err := llm.GenerateJSON(ctx, x.client,
		buildObserverSystemPrompt(x.persona),
		buildObserverUserPrompt(message, state, history),
		observerResponseSchema(), &resp)
	if err != nil {
		return nil, err
	}

	next := state.Clone()
	previousTrust := state.Biometrics.Trust

	next.Biometrics.Apply(model.BiometricsDelta{
		Mood:      resp.MoodDelta,
		Energy:    resp.EnergyDelta,
		Affection: resp.AffectionDelta,
		Trust:     resp.TrustDelta,
	})
	next.Scenario.TurnInScene++
	next.UpdatedAt = time.Now().UTC()

	advanceScenario(next, previousTrust, x.persona)

	if err := next.Validate(); err != nil {
		return nil, err
	}

	facts, err := convertFacts(resp.Facts)
	if err != nil {
		return nil, err
	}

	return &model.Observation{
		NewState:            next,
		Facts:               facts,
		InstructionOverride: resp.InstructionOverride,
	}, nil
}

func convertFacts(payloads []factPayload) ([]model.ExtractedFact, error) {
	facts := make([]model.ExtractedFact, 0, len(payloads))
	for _, p := range payloads {
		memoryType := types.MemoryType(p.MemoryType)
		if !memoryType.IsValid() {
			return nil, goerr.Wrap(types.ErrValidation, "unknown memory type in observation",
				goerr.V("memory_type", p.MemoryType))
		}
		if p.Content == "" {
			return nil, goerr.Wrap(types.ErrValidation, "fact without content",
				goerr.V("memory_type", p.MemoryType))
		}

		fact := model.ExtractedFact{
			MemoryType:   memoryType,
			Content:      p.Content,
			Importance:   model.ClampScore(p.Importance),
			ProfileField: p.ProfileField,
			ProfileValue: p.ProfileValue,
			Severity:     model.ClampScore(p.Severity),
		}
		if p.Category != "" {
			category := types.BoundaryCategory(p.Category)
			if !category.IsValid() {
				return nil, goerr.Wrap(types.ErrValidation, "unknown boundary category in observation",
					goerr.V("category", p.Category))
			}
			fact.Category = category
		}
		facts = append(facts, fact)
	}
	return facts, nil
}

func buildObserverSystemPrompt(persona *model.Persona) string {
	var sb strings.Builder

	sb.WriteString("You observe one turn of a conversation and decide how the agent's internal state shifts.\n\n")
	fmt.Fprintf(&sb, "The agent is %s. %s\n\n", persona.Name, persona.Description)
	sb.WriteString("## Instructions:\n\n")
	sb.WriteString("1. Produce small deltas for mood, energy, affection, and trust. Stay within [-5, 5] per turn.\n")
	sb.WriteString("2. Extract durable facts the agent should remember: profile details (memory_type user_profile with profile_field and profile_value), preferences, events, emotions, promises, and boundaries.\n")
	sb.WriteString("3. For boundaries set category (topic, action, or time) and severity in [0, 1].\n")
	sb.WriteString("4. Set instruction_override only when the reply needs special handling this turn, otherwise leave it empty.\n")
	sb.WriteString("5. Do not extract facts from small talk. An empty facts array is normal.\n")

	return sb.String()
}

func buildObserverUserPrompt(message string, state *model.MindState, history []*model.ShortTermEntry) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "## Current state\n\nmood %.1f, energy %.1f, affection %.1f, trust %.1f, phase %s, scene %s\n\n",
		state.Biometrics.Mood, state.Biometrics.Energy,
		state.Biometrics.Affection, state.Biometrics.Trust,
		state.Scenario.Phase, state.Scenario.Scene)

	if len(history) > 0 {
		sb.WriteString("## Recent conversation\n\n")
		for _, entry := range history {
			fmt.Fprintf(&sb, "%s: %s\n", entry.Role, entry.Content)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## New user message\n\n")
	sb.WriteString(message)
	sb.WriteString("\n")

	return sb.String()
}

func observerResponseSchema() *gollem.Parameter {
	return &gollem.Parameter{
		Title:       "ObservationResponse",
		Description: "State deltas and extracted facts for one conversation turn",
		Type:        gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"mood_delta": {
				Type:        gollem.TypeNumber,
				Description: "Change to mood, small values only",
				Required:    true,
			},
			"energy_delta": {
				Type:        gollem.TypeNumber,
				Description: "Change to energy",
				Required:    true,
			},
			"affection_delta": {
				Type:        gollem.TypeNumber,
				Description: "Change to affection",
				Required:    true,
			},
			"trust_delta": {
				Type:        gollem.TypeNumber,
				Description: "Change to trust",
				Required:    true,
			},
			"facts": {
				Type:        gollem.TypeArray,
				Description: "Durable facts extracted from the message",
				Required:    true,
				Items: &gollem.Parameter{
					Type: gollem.TypeObject,
					Properties: map[string]*gollem.Parameter{
						"memory_type": {
							Type:        gollem.TypeString,
							Description: "One of: fact, emotion, preference, event, user_profile, promise, boundary",
							Required:    true,
						},
						"content": {
							Type:        gollem.TypeString,
							Description: "The fact, phrased in third person",
							Required:    true,
						},
						"importance": {
							Type:        gollem.TypeNumber,
							Description: "Importance in [0, 1]",
						},
						"profile_field": {
							Type:        gollem.TypeString,
							Description: "For user_profile facts: name, age, occupation, location, birthday, hobby, or preference_<category>",
						},
						"profile_value": {
							Type:        gollem.TypeString,
							Description: "For user_profile facts: the value to store",
						},
						"category": {
							Type:        gollem.TypeString,
							Description: "For boundary facts: topic, action, or time",
						},
						"severity": {
							Type:        gollem.TypeNumber,
							Description: "For boundary facts: severity in [0, 1]",
						},
					},
				},
			},
			"instruction_override": {
				Type:        gollem.TypeString,
				Description: "Optional directive for this turn's reply, empty when not needed",
			},
		},
	}
}
