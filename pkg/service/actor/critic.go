package actor

import (
	"context"

	"github.com/m-mizutani/gollem"
	"github.com/secmon-lab/mnemosyne/pkg/service/llm"
	"github.com/secmon-lab/mnemosyne/pkg/utils/logging"
)

// criticMaxRetries bounds the regeneration loop. With two retries a turn
// issues at most three drafts before the last one is used as-is.
const criticMaxRetries = 2

const criticSystemPrompt = `You are a strict critic reviewing a draft reply from a roleplay agent.
Judge whether the draft stays in character for the persona described in the context and respects every directive and boundary it contains.
Respond with JSON: {"is_ok": boolean, "feedback": string}. Feedback is one short sentence naming what to fix, empty when the draft passes.`

type criticVerdict struct {
	IsOK     bool   `json:"is_ok"`
	Feedback string `json:"feedback"`
}

// critique judges one draft against the assembled context. A critic that
// errors out or returns garbage passes the draft: the critic guards
// quality, it must never block the reply.
func critique(ctx context.Context, client gollem.LLMClient, prompt, draft string) (bool, string) {
	request := "### Context\n" + prompt + "\n\n### Draft reply\n" + draft

	var verdict criticVerdict
	if err := llm.GenerateJSON(ctx, client, criticSystemPrompt, request, criticResponseSchema(), &verdict); err != nil {
		logging.From(ctx).Warn("critic check failed, accepting draft", "error", err.Error())
		return true, ""
	}

	return verdict.IsOK, verdict.Feedback
}

func criticResponseSchema() *gollem.Parameter {
	return &gollem.Parameter{
		Title:       "CriticVerdict",
		Description: "Whether a draft reply passes review",
		Type:        gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"is_ok": {
				Type:        gollem.TypeBoolean,
				Description: "True when the draft stays in character and within its directives",
				Required:    true,
			},
			"feedback": {
				Type:        gollem.TypeString,
				Description: "What to fix when is_ok is false",
			},
		},
	}
}
