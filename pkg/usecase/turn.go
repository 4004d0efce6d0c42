package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/mnemosyne/pkg/domain/model"
	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
	"github.com/secmon-lab/mnemosyne/pkg/service/llm"
	"github.com/secmon-lab/mnemosyne/pkg/service/promptbuild"
	"github.com/secmon-lab/mnemosyne/pkg/utils/logging"
)

const (
	retrieveLimit         = 5
	retrieveMinImportance = 0.3
)

// TurnResult is the outcome of one processed turn.
type TurnResult struct {
	Reply      string
	State      *model.MindState
	SessionID  types.SessionID
	TurnNumber int
}

// ProcessTurn runs one full turn for a user: observe the message, commit
// the new state and extracted facts, retrieve relevant memories, assemble
// the prompt, generate the reply and append the conversation log. The new
// state is durable before the reply is generated, so a failed reply still
// leaves the state committed but appends no log entries.
func (uc *UseCases) ProcessTurn(ctx context.Context, userID types.UserID, message string) (*TurnResult, error) {
	if message == "" {
		return nil, goerr.Wrap(types.ErrValidation, "empty message", goerr.V("userID", userID))
	}

	unlock := uc.lockUser(string(userID))
	defer unlock()

	logger := logging.From(ctx)

	// LOAD
	state, err := uc.repo.State().Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			return nil, goerr.Wrap(err, "failed to load mind state", goerr.V("userID", userID), goerr.V("phase", types.TurnPhaseLoad))
		}
		state = model.NewMindState(userID, uc.persona)
	}

	history, err := uc.repo.ShortTerm().List(ctx, userID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load short term history", goerr.V("userID", userID), goerr.V("phase", types.TurnPhaseLoad))
	}

	sessionID, turnNumber := nextTurn(history)

	// OBSERVE
	obs, err := uc.observer.Observe(ctx, message, state, history)
	if err != nil {
		return nil, goerr.Wrap(err, "observation failed", goerr.V("userID", userID), goerr.V("phase", types.TurnPhaseObserve))
	}
	if err := obs.NewState.Validate(); err != nil {
		return nil, goerr.Wrap(err, "observed state is invalid", goerr.V("userID", userID), goerr.V("phase", types.TurnPhaseObserve))
	}

	// COMMIT_STATE
	obs.NewState.UpdatedAt = time.Now().UTC()
	if err := uc.repo.State().Put(ctx, obs.NewState); err != nil {
		return nil, goerr.Wrap(err, "failed to commit mind state", goerr.V("userID", userID), goerr.V("phase", types.TurnPhaseCommitState))
	}
	if err := uc.commitFacts(ctx, userID, obs.Facts); err != nil {
		return nil, goerr.Wrap(err, "failed to commit extracted facts", goerr.V("userID", userID), goerr.V("phase", types.TurnPhaseCommitState))
	}

	// RETRIEVE
	input, err := uc.retrieve(ctx, userID, message)
	if err != nil {
		return nil, goerr.Wrap(err, "retrieval failed", goerr.V("userID", userID), goerr.V("phase", types.TurnPhaseRetrieve))
	}

	// ASSEMBLE
	input.Persona = uc.persona
	input.State = obs.NewState
	input.History = history
	input.InstructionOverride = obs.InstructionOverride
	input.Message = message
	prompt := promptbuild.Assemble(*input)

	// ACT
	reply, err := uc.actor.Act(ctx, prompt, obs.NewState)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate reply", goerr.V("userID", userID), goerr.V("phase", types.TurnPhaseAct))
	}

	// COMMIT_LOG
	now := time.Now().UTC()
	entries := []*model.ShortTermEntry{
		{
			ID:         model.NewEntryID(),
			UserID:     userID,
			SessionID:  sessionID,
			Role:       types.RoleUser,
			Content:    message,
			TurnNumber: turnNumber,
			CreatedAt:  now,
		},
		{
			ID:         model.NewEntryID(),
			UserID:     userID,
			SessionID:  sessionID,
			Role:       types.RoleAssistant,
			Content:    reply,
			TurnNumber: turnNumber + 1,
			CreatedAt:  now,
		},
	}
	for _, entry := range entries {
		if err := uc.repo.ShortTerm().Append(ctx, entry); err != nil {
			return nil, goerr.Wrap(err, "failed to append conversation log", goerr.V("userID", userID), goerr.V("phase", types.TurnPhaseCommitLog))
		}
	}

	// The reply is already committed; a promotion failure only delays
	// summarization to the next turn.
	count, err := uc.repo.ShortTerm().Count(ctx, userID)
	if err != nil {
		logger.Warn("failed to count short term entries", "error", err.Error(), "user_id", userID)
	} else if count >= model.ShortTermWindow {
		if _, err := uc.tiering.PromoteShortTerm(ctx, userID); err != nil {
			logger.Warn("short term promotion failed", "error", err.Error(), "user_id", userID)
		}
	}

	return &TurnResult{
		Reply:      reply,
		State:      obs.NewState,
		SessionID:  sessionID,
		TurnNumber: turnNumber,
	}, nil
}

// nextTurn continues the session found in the history, or starts a new
// one when the window is empty.
func nextTurn(history []*model.ShortTermEntry) (types.SessionID, int) {
	if len(history) == 0 {
		return model.NewSessionID(), 0
	}
	last := history[len(history)-1]
	return last.SessionID, last.TurnNumber + 1
}

// commitFacts routes extracted facts to their stores: profile facts
// upsert a field, promise and boundary facts create structured rows, and
// the rest become long-term items.
func (uc *UseCases) commitFacts(ctx context.Context, userID types.UserID, facts []model.ExtractedFact) error {
	logger := logging.From(ctx)

	for _, fact := range facts {
		switch fact.MemoryType {
		case types.MemoryTypeUserProfile:
			if fact.ProfileField == "" {
				logger.Warn("profile fact without a field, skipping", "user_id", userID)
				continue
			}
			if err := uc.structured.SaveProfileField(ctx, userID, fact.ProfileField, fact.ProfileValue); err != nil {
				return goerr.Wrap(err, "failed to save profile field", goerr.V("field", fact.ProfileField))
			}

		case types.MemoryTypePromise:
			if _, err := uc.structured.SavePromise(ctx, userID, fact.Content, fact.DueDate); err != nil {
				return goerr.Wrap(err, "failed to save promise")
			}

		case types.MemoryTypeBoundary:
			category := fact.Category
			if category == "" {
				category = types.BoundaryCategoryTopic
			}
			if _, err := uc.structured.SaveBoundary(ctx, userID, fact.Content, category, fact.Severity); err != nil {
				return goerr.Wrap(err, "failed to save boundary")
			}

		default:
			if err := uc.commitLongTermFact(ctx, userID, fact); err != nil {
				return err
			}
		}
	}

	return nil
}

func (uc *UseCases) commitLongTermFact(ctx context.Context, userID types.UserID, fact model.ExtractedFact) error {
	now := time.Now().UTC()
	item := &model.LongTermItem{
		ID:             model.NewItemID(),
		UserID:         userID,
		Content:        fact.Content,
		MemoryType:     fact.MemoryType,
		Importance:     fact.Importance,
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	if item.Importance == 0 {
		if fact.MemoryType == types.MemoryTypePreference {
			item.Importance = model.DefaultPreferenceImportance
		} else {
			item.Importance = model.DefaultFactImportance
		}
	}

	if uc.llmClient != nil {
		embedding, err := llm.Embed(ctx, uc.llmClient, fact.Content)
		if err != nil {
			return goerr.Wrap(err, "failed to embed fact")
		}
		item.Embedding = embedding
	}

	if err := uc.repo.LongTerm().Create(ctx, item); err != nil {
		return goerr.Wrap(err, "failed to store long term item", goerr.V("userID", userID))
	}
	return nil
}

// retrieve gathers everything the assembler renders besides the state and
// history: structured memory and, when embeddings are available, the
// nearest long-term episodes.
func (uc *UseCases) retrieve(ctx context.Context, userID types.UserID, message string) (*promptbuild.Input, error) {
	input := &promptbuild.Input{}

	profile, err := uc.structured.GetProfile(ctx, userID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load profile", goerr.V("userID", userID))
	}
	input.Profile = profile

	pending := types.PromiseStatusPending
	promises, err := uc.structured.GetPromises(ctx, userID, &pending)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load promises", goerr.V("userID", userID))
	}
	input.Promises = promises

	boundaries, err := uc.structured.GetBoundaries(ctx, userID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load boundaries", goerr.V("userID", userID))
	}
	input.Boundaries = boundaries

	weekly, err := uc.repo.WeeklySummary().Latest(ctx, userID)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		return nil, goerr.Wrap(err, "failed to load weekly summary", goerr.V("userID", userID))
	}
	input.WeeklySummary = weekly

	if uc.llmClient == nil {
		return input, nil
	}

	embedding, err := llm.Embed(ctx, uc.llmClient, message)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed message", goerr.V("userID", userID))
	}

	episodes, err := uc.repo.LongTerm().FindByEmbedding(ctx, userID, embedding, retrieveLimit, retrieveMinImportance)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search long term memory", goerr.V("userID", userID))
	}
	input.Episodes = episodes

	// Retrieval counts as access for decay purposes.
	now := time.Now().UTC()
	for _, ep := range episodes {
		ep.Item.LastAccessedAt = now
		if err := uc.repo.LongTerm().Update(ctx, ep.Item); err != nil {
			return nil, goerr.Wrap(err, "failed to touch retrieved item", goerr.V("itemID", ep.Item.ID))
		}
	}

	return input, nil
}
