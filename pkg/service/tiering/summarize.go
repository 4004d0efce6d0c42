package tiering

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/secmon-lab/mnemosyne/pkg/domain/model"
	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
	"github.com/secmon-lab/mnemosyne/pkg/service/llm"
	"github.com/secmon-lab/mnemosyne/pkg/utils/logging"
)

// PromoteShortTerm summarizes a full short-term session into a mid-term
// summary and clears the window. High-importance facts from the session
// are promoted straight into long-term memory. Returns nil when the
// session has not reached the window yet.
func (e *Engine) PromoteShortTerm(ctx context.Context, userID types.UserID) (*model.MidTermSummary, error) {
	entries, err := e.repo.ShortTerm().List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(entries) < model.ShortTermWindow {
		return nil, nil
	}

	result, err := e.summarizeSession(ctx, entries)
	if err != nil {
		return nil, err
	}

	summary := &model.MidTermSummary{
		ID:              model.NewSummaryID(),
		UserID:          userID,
		SummaryText:     result.Summary,
		Importance:      model.ClampScore(result.Importance),
		SourceSessionID: entries[0].SessionID,
		TurnStart:       entries[0].TurnNumber,
		TurnEnd:         entries[len(entries)-1].TurnNumber,
		CreatedAt:       e.now(),
	}
	if err := e.repo.MidTerm().Create(ctx, summary); err != nil {
		return nil, err
	}

	for _, candidate := range result.Candidates {
		if candidate.Importance < model.PromotionThreshold {
			continue
		}
		if err := e.promoteItem(ctx, userID, summary.ID, candidate); err != nil {
			return nil, err
		}
	}

	if err := e.repo.ShortTerm().Clear(ctx, userID); err != nil {
		return nil, err
	}

	logging.From(ctx).Info("short term session promoted",
		"user_id", userID,
		"turns", len(entries),
		"candidates", len(result.Candidates))

	return summary, nil
}

func (e *Engine) promoteItem(ctx context.Context, userID types.UserID, sourceID model.SummaryID, candidate promotionCandidate) error {
	memoryType := types.MemoryType(candidate.MemoryType)
	if !memoryType.IsValid() {
		memoryType = types.MemoryTypeFact
	}

	item := &model.LongTermItem{
		ID:              model.NewItemID(),
		UserID:          userID,
		Content:         candidate.Content,
		MemoryType:      memoryType,
		Importance:      model.ClampScore(candidate.Importance),
		SourceMidTermID: sourceID,
		CreatedAt:       e.now(),
		LastAccessedAt:  e.now(),
	}

	if e.llmClient != nil {
		embedding, err := llm.Embed(ctx, e.llmClient, candidate.Content)
		if err != nil {
			return err
		}
		item.Embedding = embedding
	}

	return e.repo.LongTerm().Create(ctx, item)
}

// CreateWeeklySummary compresses the trailing week of mid-term summaries
// into one weekly record plus a long-term event item. Returns nil when
// the week holds no material.
func (e *Engine) CreateWeeklySummary(ctx context.Context, userID types.UserID) (*model.WeeklySummary, error) {
	now := e.now()
	weekStart := now.Add(-model.WeeklyWindow)

	summaries, err := e.repo.MidTerm().ListSince(ctx, userID, weekStart)
	if err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		return nil, nil
	}

	text, err := e.summarizeWeek(ctx, summaries)
	if err != nil {
		return nil, err
	}

	sourceIDs := make([]model.SummaryID, 0, len(summaries))
	for _, s := range summaries {
		sourceIDs = append(sourceIDs, s.ID)
	}

	weekly := &model.WeeklySummary{
		ID:               model.NewWeeklySummaryID(),
		UserID:           userID,
		SummaryText:      text,
		WeekStart:        weekStart,
		WeekEnd:          now,
		SourceMidTermIDs: sourceIDs,
		CreatedAt:        now,
	}
	if err := e.repo.WeeklySummary().Create(ctx, weekly); err != nil {
		return nil, err
	}

	item := &model.LongTermItem{
		ID:              model.NewItemID(),
		UserID:          userID,
		Content:         text,
		MemoryType:      types.MemoryTypeEvent,
		Importance:      model.PromotionThreshold,
		SourceMidTermID: sourceIDs[0],
		CreatedAt:       now,
		LastAccessedAt:  now,
	}
	if e.llmClient != nil {
		embedding, err := llm.Embed(ctx, e.llmClient, text)
		if err != nil {
			return nil, err
		}
		item.Embedding = embedding
	}
	if err := e.repo.LongTerm().Create(ctx, item); err != nil {
		return nil, err
	}

	return weekly, nil
}

type promotionCandidate struct {
	MemoryType string  `json:"memory_type"`
	Content    string  `json:"content"`
	Importance float64 `json:"importance"`
}

type sessionSummaryResponse struct {
	Summary    string               `json:"summary"`
	Importance float64              `json:"importance"`
	Candidates []promotionCandidate `json:"candidates"`
}

func (e *Engine) summarizeSession(ctx context.Context, entries []*model.ShortTermEntry) (*sessionSummaryResponse, error) {
	if e.llmClient == nil {
		return extractiveSessionSummary(entries), nil
	}

	var sb strings.Builder
	for _, entry := range entries {
		fmt.Fprintf(&sb, "%s: %s\n", entry.Role, entry.Content)
	}

	var resp sessionSummaryResponse
	err := llm.GenerateJSON(ctx, e.llmClient,
		"Summarize this conversation session in a few sentences. Rate its overall importance in [0, 1]. List durable facts worth keeping long term as candidates with memory_type (fact, emotion, preference, event, user_profile, promise, boundary), content, and importance in [0, 1].",
		sb.String(),
		sessionSummarySchema(), &resp)
	if err != nil {
		return nil, err
	}
	if resp.Summary == "" {
		return nil, goerr.Wrap(types.ErrValidation, "empty session summary")
	}

	return &resp, nil
}

// extractiveSessionSummary is the offline fallback: first and last user
// utterances, fixed middling importance, no promotion candidates.
func extractiveSessionSummary(entries []*model.ShortTermEntry) *sessionSummaryResponse {
	var userLines []string
	for _, entry := range entries {
		if entry.Role == types.RoleUser {
			userLines = append(userLines, entry.Content)
		}
	}

	summary := "Short session."
	if len(userLines) > 0 {
		summary = fmt.Sprintf("Session opened with %q", userLines[0])
		if len(userLines) > 1 {
			summary += fmt.Sprintf(" and closed with %q", userLines[len(userLines)-1])
		}
		summary += "."
	}

	return &sessionSummaryResponse{
		Summary:    summary,
		Importance: 0.5,
	}
}

func (e *Engine) summarizeWeek(ctx context.Context, summaries []*model.MidTermSummary) (string, error) {
	var sb strings.Builder
	for _, s := range summaries {
		fmt.Fprintf(&sb, "- %s (%s)\n", s.SummaryText, s.CreatedAt.Format("2006-01-02"))
	}

	if e.llmClient == nil {
		return fmt.Sprintf("Week in review:\n%s", sb.String()), nil
	}

	return llm.Generate(ctx, e.llmClient, sb.String(),
		gollem.WithSessionSystemPrompt("Compress these session summaries from the past week into one short narrative paragraph. Keep names, commitments, and recurring topics."),
	)
}

func sessionSummarySchema() *gollem.Parameter {
	return &gollem.Parameter{
		Title:       "SessionSummaryResponse",
		Description: "Summary of one conversation session with promotion candidates",
		Type:        gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"summary": {
				Type:        gollem.TypeString,
				Description: "A few sentences covering what happened in the session",
				Required:    true,
			},
			"importance": {
				Type:        gollem.TypeNumber,
				Description: "Overall session importance in [0, 1]",
				Required:    true,
			},
			"candidates": {
				Type:        gollem.TypeArray,
				Description: "Durable facts worth keeping long term",
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
							Required:    true,
						},
					},
				},
			},
		},
	}
}
