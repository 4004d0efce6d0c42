package promptbuild

import (
	"fmt"
	"sort"
	"strings"

	"github.com/secmon-lab/mnemosyne/pkg/domain/model"
)

// WarningSeverity is the boundary severity at or above which the rendered
// line carries an explicit warning marker.
const WarningSeverity = 0.7

// Input carries everything the assembler may render. All fields except
// Message are optional; empty sections are omitted from the output.
type Input struct {
	Persona             *model.Persona
	State               *model.MindState
	Profile             *model.UserProfile
	Promises            []*model.Promise
	Boundaries          []*model.Boundary
	Episodes            []*model.ScoredItem
	WeeklySummary       *model.WeeklySummary
	History             []*model.ShortTermEntry
	InstructionOverride string
	Message             string
}

// Assemble renders the prompt. The section order is fixed: persona,
// profile, promises and boundaries, retrieved episodes, conversation
// history, then the current message. Given the same input the output is
// byte-identical.
func Assemble(in Input) string {
	var sb strings.Builder

	if in.InstructionOverride != "" {
		sb.WriteString("## Directive\n\n")
		sb.WriteString(in.InstructionOverride)
		sb.WriteString("\n\n")
	}

	writePersona(&sb, in.Persona, in.State)
	writeProfile(&sb, in.Profile)
	writePromises(&sb, in.Promises)
	writeBoundaries(&sb, in.Boundaries)
	writeEpisodes(&sb, in.Episodes, in.WeeklySummary)
	writeHistory(&sb, in.History)

	sb.WriteString("## Message\n\n")
	sb.WriteString(in.Message)
	sb.WriteString("\n")

	return sb.String()
}

func writePersona(sb *strings.Builder, persona *model.Persona, state *model.MindState) {
	if persona == nil {
		return
	}

	sb.WriteString("## Persona\n\n")
	fmt.Fprintf(sb, "You are %s. %s\n", persona.Name, persona.Description)
	if persona.Style != "" {
		fmt.Fprintf(sb, "Speaking style: %s\n", persona.Style)
	}

	if state != nil {
		fmt.Fprintf(sb, "Current disposition: mood %.0f, energy %.0f, affection %.0f, trust %.0f.\n",
			state.Biometrics.Mood, state.Biometrics.Energy,
			state.Biometrics.Affection, state.Biometrics.Trust)
		if phase := persona.Phase(state.Scenario.Phase); phase != nil && phase.Goal != "" {
			fmt.Fprintf(sb, "Current goal: %s\n", phase.Goal)
		}
	}
	sb.WriteString("\n")
}

func writeProfile(sb *strings.Builder, profile *model.UserProfile) {
	if profile == nil || profile.IsEmpty() {
		return
	}

	sb.WriteString("## User profile\n\n")
	if profile.Name != nil {
		fmt.Fprintf(sb, "- Name: %s\n", *profile.Name)
	}
	if profile.Age != nil {
		fmt.Fprintf(sb, "- Age: %d\n", *profile.Age)
	}
	if profile.Occupation != nil {
		fmt.Fprintf(sb, "- Occupation: %s\n", *profile.Occupation)
	}
	if profile.Location != nil {
		fmt.Fprintf(sb, "- Location: %s\n", *profile.Location)
	}
	if profile.Birthday != nil {
		fmt.Fprintf(sb, "- Birthday: %s\n", *profile.Birthday)
	}
	if len(profile.Hobbies) > 0 {
		fmt.Fprintf(sb, "- Hobbies: %s\n", strings.Join(profile.Hobbies, ", "))
	}
	for _, category := range sortedKeys(profile.Preferences) {
		fmt.Fprintf(sb, "- Preference (%s): %s\n", category, profile.Preferences[category])
	}
	sb.WriteString("\n")
}

func writePromises(sb *strings.Builder, promises []*model.Promise) {
	if len(promises) == 0 {
		return
	}

	sb.WriteString("## Promises\n\n")
	for _, p := range promises {
		if p.DueDate != nil {
			fmt.Fprintf(sb, "- [%s] %s (due %s)\n", p.Status, p.Content, p.DueDate.Format("2006-01-02"))
		} else {
			fmt.Fprintf(sb, "- [%s] %s\n", p.Status, p.Content)
		}
	}
	sb.WriteString("\n")
}

func writeBoundaries(sb *strings.Builder, boundaries []*model.Boundary) {
	if len(boundaries) == 0 {
		return
	}

	sb.WriteString("## Boundaries\n\n")
	for _, b := range boundaries {
		if b.Severity >= WarningSeverity {
			fmt.Fprintf(sb, "- [WARNING: do not bring up %s] (%s, severity %.1f)\n", b.Content, b.Category, b.Severity)
		} else {
			fmt.Fprintf(sb, "- Avoid %s (%s, severity %.1f)\n", b.Content, b.Category, b.Severity)
		}
	}
	sb.WriteString("\n")
}

func writeEpisodes(sb *strings.Builder, episodes []*model.ScoredItem, weekly *model.WeeklySummary) {
	if len(episodes) == 0 && weekly == nil {
		return
	}

	sb.WriteString("## Relevant memories\n\n")
	if weekly != nil {
		fmt.Fprintf(sb, "Last week: %s\n", weekly.SummaryText)
	}
	for _, e := range episodes {
		fmt.Fprintf(sb, "- (%s) %s\n", e.Item.MemoryType, e.Item.Content)
	}
	sb.WriteString("\n")
}

func writeHistory(sb *strings.Builder, history []*model.ShortTermEntry) {
	if len(history) == 0 {
		return
	}

	sb.WriteString("## Conversation so far\n\n")
	for _, entry := range history {
		fmt.Fprintf(sb, "%s: %s\n", entry.Role, entry.Content)
	}
	sb.WriteString("\n")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
