package actor

import (
	"context"

	"github.com/secmon-lab/mnemosyne/pkg/domain/model"
)

// ruleActor composes a reply from tone templates selected by biometric
// bands. The assembled prompt is not consulted, the template is driven
// entirely by state, which keeps this strategy fully offline.
type ruleActor struct {
	persona *model.Persona
}

func newRuleActor(persona *model.Persona) *ruleActor {
	return &ruleActor{persona: persona}
}

func (x *ruleActor) Act(ctx context.Context, prompt string, state *model.MindState) (string, error) {
	reply := toneFrom(state.Biometrics)
	if fragment := sceneFragment(state); fragment != "" {
		reply += " " + fragment
	}
	return reply, nil
}

func toneFrom(b model.Biometrics) string {
	switch {
	case b.Mood <= -5:
		return "...Sorry, I'm not feeling great right now."
	case b.Energy < 20:
		return "I'm a little worn out today, but I'm glad you're here."
	case b.Affection >= 70 && b.Mood >= 3:
		return "Hey! I was just thinking about you."
	case b.Mood >= 3:
		return "Hi! Today feels like a good day."
	default:
		return "Hey. How have you been?"
	}
}

func sceneFragment(state *model.MindState) string {
	switch state.Scenario.Scene {
	case "first_contact":
		return "Tell me a bit about yourself?"
	case "daily_chat":
		if state.Biometrics.Trust >= 50 {
			return "What's on your mind today?"
		}
		return "How did your day go?"
	default:
		return ""
	}
}
