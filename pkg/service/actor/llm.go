package actor

import (
	"context"

	"github.com/m-mizutani/gollem"
	"github.com/secmon-lab/mnemosyne/pkg/domain/model"
	"github.com/secmon-lab/mnemosyne/pkg/service/llm"
	"github.com/secmon-lab/mnemosyne/pkg/utils/logging"
)

// llmActor sends the assembled prompt to the model. All structure
// (persona, memories, history, directives) is already in the prompt, so
// the session itself stays plain text. Each draft goes through a critic
// pass; a rejected draft is regenerated with the critic's feedback
// appended to the prompt as an extra directive, a bounded number of
// times, and the last draft is used either way.
type llmActor struct {
	client  gollem.LLMClient
	persona *model.Persona
}

func newLLMActor(client gollem.LLMClient, persona *model.Persona) *llmActor {
	return &llmActor{client: client, persona: persona}
}

func (x *llmActor) Act(ctx context.Context, prompt string, state *model.MindState) (string, error) {
	logger := logging.From(ctx)

	current := prompt
	var reply string
	for attempt := 0; attempt <= criticMaxRetries; attempt++ {
		var err error
		reply, err = llm.Generate(ctx, x.client, current,
			gollem.WithSessionSystemPrompt("Reply in character as the persona described in the prompt. Reply with the message text only."),
		)
		if err != nil {
			return "", err
		}

		ok, feedback := critique(ctx, x.client, prompt, reply)
		if ok || feedback == "" {
			return reply, nil
		}

		logger.Debug("critic rejected draft",
			"attempt", attempt+1,
			"feedback", feedback,
		)
		current += "\n## Correction\n\n" + feedback + "\n"
	}

	return reply, nil
}
