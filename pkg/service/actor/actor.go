package actor

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/secmon-lab/mnemosyne/pkg/domain/model"
	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
)

// Actor turns an assembled prompt into the reply text. It never mutates
// state and never persists anything.
type Actor interface {
	Act(ctx context.Context, prompt string, state *model.MindState) (string, error)
}

// Mode selects the reply strategy at configure time
type Mode string

const (
	ModeRule Mode = "rule"
	ModeLLM  Mode = "llm"
)

// New builds an Actor for the given mode. ModeLLM requires a client;
// running without one is a configuration error, not a silent fallback.
func New(mode Mode, llmClient gollem.LLMClient, persona *model.Persona) (Actor, error) {
	if persona == nil {
		persona = model.DefaultPersona()
	}

	switch mode {
	case ModeRule:
		return newRuleActor(persona), nil
	case ModeLLM:
		if llmClient == nil {
			return nil, goerr.Wrap(types.ErrConfiguration, "actor mode llm requires an LLM client")
		}
		return newLLMActor(llmClient, persona), nil
	default:
		return nil, goerr.Wrap(types.ErrConfiguration, "unknown actor mode", goerr.V("mode", mode))
	}
}
