package observer

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/secmon-lab/mnemosyne/pkg/domain/model"
	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
)

// ruleObserver is the deterministic strategy: keyword classes drive
// biometric deltas, regular expressions extract facts. No network calls.
type ruleObserver struct {
	persona *model.Persona
}

func newRuleObserver(persona *model.Persona) *ruleObserver {
	return &ruleObserver{persona: persona}
}

var (
	affectionateWords = []string{"love", "miss you", "thank", "appreciate", "sweet", "adore", "happy with you"}
	hostileWords      = []string{"hate", "stupid", "annoying", "shut up", "leave me alone", "worst"}
	energeticWords    = []string{"let's go", "excited", "awesome", "amazing", "great news"}
)

var (
	reName       = regexp.MustCompile(`(?i)\bmy name is ([\p{L}][\p{L}'-]*)`)
	reAge        = regexp.MustCompile(`(?i)\bi(?:'m| am) (\d{1,3}) years old`)
	reOccupation = regexp.MustCompile(`(?i)\bi work as (?:an? )?([\p{L} ]+?)(?:\.|,|$)`)
	reLocation   = regexp.MustCompile(`(?i)\bi live in ([\p{L} ]+?)(?:\.|,|$)`)
	reBirthday   = regexp.MustCompile(`(?i)\bmy birthday is (?:on )?([\p{L}0-9 /-]+?)(?:\.|,|$)`)
	reHobby      = regexp.MustCompile(`(?i)\bmy hobby is ([\p{L} ]+?)(?:\.|,|$)`)
	reLike       = regexp.MustCompile(`(?i)\bi (?:really )?(?:like|love) ([\p{L} ]+?)(?:\.|,|!|$)`)
	rePromise    = regexp.MustCompile(`(?i)\bpromise (?:me )?(?:to |that )?(.+?)(?:\.|$)`)
	reBoundary   = regexp.MustCompile(`(?i)\b(?:please )?(?:don't|do not|never) (?:talk about|mention|bring up) (.+?)(?:\.|$)`)
	reNoAction   = regexp.MustCompile(`(?i)\b(?:please )?(?:don't|do not|never) ((?:call|text|message|wake|visit) .+?)(?:\.|$)`)
)

func (x *ruleObserver) Observe(ctx context.Context, message string, state *model.MindState, history []*model.ShortTermEntry) (*model.Observation, error) {
	next := state.Clone()
	previousTrust := state.Biometrics.Trust

	next.Biometrics.Apply(classifyDelta(message))
	next.Scenario.TurnInScene++
	next.UpdatedAt = time.Now().UTC()

	advanceScenario(next, previousTrust, x.persona)

	if err := next.Validate(); err != nil {
		return nil, err
	}

	return &model.Observation{
		NewState: next,
		Facts:    extractFacts(message),
	}, nil
}

// classifyDelta maps the utterance to one keyword class. Energy drifts
// down one point every turn regardless of class.
func classifyDelta(message string) model.BiometricsDelta {
	folded := strings.ToLower(message)

	switch {
	case containsAny(folded, hostileWords):
		return model.BiometricsDelta{Mood: -2, Energy: -1, Affection: -2, Trust: -1}
	case containsAny(folded, affectionateWords):
		return model.BiometricsDelta{Mood: 1, Energy: -1, Affection: 4, Trust: 2}
	case containsAny(folded, energeticWords):
		return model.BiometricsDelta{Mood: 1, Energy: 2, Affection: 1, Trust: 1}
	default:
		return model.BiometricsDelta{Energy: -1}
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func extractFacts(message string) []model.ExtractedFact {
	var facts []model.ExtractedFact

	profileFields := []struct {
		re    *regexp.Regexp
		field string
	}{
		{reName, model.ProfileFieldName},
		{reAge, model.ProfileFieldAge},
		{reOccupation, model.ProfileFieldOccupation},
		{reLocation, model.ProfileFieldLocation},
		{reBirthday, model.ProfileFieldBirthday},
		{reHobby, model.ProfileFieldHobby},
	}
	for _, pf := range profileFields {
		if m := pf.re.FindStringSubmatch(message); m != nil {
			facts = append(facts, model.ExtractedFact{
				MemoryType:   types.MemoryTypeUserProfile,
				Content:      strings.TrimSpace(m[0]),
				Importance:   model.DefaultFactImportance,
				ProfileField: pf.field,
				ProfileValue: strings.TrimSpace(m[1]),
			})
		}
	}

	if m := reLike.FindStringSubmatch(message); m != nil {
		facts = append(facts, model.ExtractedFact{
			MemoryType: types.MemoryTypePreference,
			Content:    "likes " + strings.TrimSpace(m[1]),
			Importance: model.DefaultPreferenceImportance,
		})
	}

	if m := rePromise.FindStringSubmatch(message); m != nil {
		facts = append(facts, model.ExtractedFact{
			MemoryType: types.MemoryTypePromise,
			Content:    strings.TrimSpace(m[1]),
			Importance: model.DefaultPromiseImportance,
		})
	}

	if m := reBoundary.FindStringSubmatch(message); m != nil {
		facts = append(facts, model.ExtractedFact{
			MemoryType: types.MemoryTypeBoundary,
			Content:    strings.TrimSpace(m[1]),
			Importance: model.DefaultBoundaryImportance,
			Category:   types.BoundaryCategoryTopic,
			Severity:   0.8,
		})
	} else if m := reNoAction.FindStringSubmatch(message); m != nil {
		facts = append(facts, model.ExtractedFact{
			MemoryType: types.MemoryTypeBoundary,
			Content:    strings.TrimSpace(m[1]),
			Importance: model.DefaultBoundaryImportance,
			Category:   types.BoundaryCategoryAction,
			Severity:   0.7,
		})
	}

	return facts
}
