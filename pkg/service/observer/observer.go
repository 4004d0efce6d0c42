package observer

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/secmon-lab/mnemosyne/pkg/domain/model"
	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
)

// TrustEstablishedFlag is set once, on the turn trust first reaches 50
const TrustEstablishedFlag = "trust_established"

const trustEstablishedAt = 50

// Observer derives the next mind state and extracted facts from one user
// utterance. Implementations never send the reply, that is the Actor's
// job.
type Observer interface {
	Observe(ctx context.Context, message string, state *model.MindState, history []*model.ShortTermEntry) (*model.Observation, error)
}

// Mode selects the observation strategy at configure time. The strategy
// never changes per message.
type Mode string

const (
	ModeRule Mode = "rule"
	ModeLLM  Mode = "llm"
)

// New builds an Observer for the given mode. ModeLLM requires a client;
// running without one is a configuration error, not a silent fallback.
func New(mode Mode, llmClient gollem.LLMClient, persona *model.Persona) (Observer, error) {
	if persona == nil {
		persona = model.DefaultPersona()
	}

	switch mode {
	case ModeRule:
		return newRuleObserver(persona), nil
	case ModeLLM:
		if llmClient == nil {
			return nil, goerr.Wrap(types.ErrConfiguration, "observer mode llm requires an LLM client")
		}
		return newLLMObserver(llmClient, persona), nil
	default:
		return nil, goerr.Wrap(types.ErrConfiguration, "unknown observer mode", goerr.V("mode", mode))
	}
}

// advanceScenario moves the scenario forward when the new trust value
// clears the next phase's gate, and sets the one-shot trust flag on the
// first crossing.
func advanceScenario(state *model.MindState, previousTrust float64, persona *model.Persona) {
	if previousTrust < trustEstablishedAt && state.Biometrics.Trust >= trustEstablishedAt {
		state.Scenario.SetFlag(TrustEstablishedFlag, true)
	}

	next := persona.NextPhase(state.Scenario.Phase)
	if next == nil {
		return
	}
	if state.Biometrics.Trust >= next.TrustThreshold && next.TrustThreshold > 0 {
		state.Scenario.Phase = next.ID
		state.Scenario.Scene = next.Scene
		state.Scenario.TurnInScene = 0
	}
}
