package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/mnemosyne/pkg/domain/model"
	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
)

type stateRepository struct {
	mu     sync.RWMutex
	states map[types.UserID]*model.MindState
}

func newStateRepository() *stateRepository {
	return &stateRepository{
		states: make(map[types.UserID]*model.MindState),
	}
}

func (r *stateRepository) Get(ctx context.Context, userID types.UserID) (*model.MindState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, ok := r.states[userID]
	if !ok {
		return nil, goerr.Wrap(types.ErrNotFound, "mind state not found", goerr.V("userID", userID))
	}
	return st.Clone(), nil
}

func (r *stateRepository) Put(ctx context.Context, state *model.MindState) error {
	if err := state.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := state.Clone()
	stored.UpdatedAt = time.Now().UTC()
	r.states[state.UserID] = stored
	return nil
}

func (r *stateRepository) eachUser(fn func(types.UserID)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id := range r.states {
		fn(id)
	}
}

func (r *stateRepository) reset(userID types.UserID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, userID)
}

type shortTermRepository struct {
	mu      sync.RWMutex
	entries map[types.UserID][]*model.ShortTermEntry
}

func newShortTermRepository() *shortTermRepository {
	return &shortTermRepository{
		entries: make(map[types.UserID][]*model.ShortTermEntry),
	}
}

func copyEntry(e *model.ShortTermEntry) *model.ShortTermEntry {
	copied := *e
	return &copied
}

func (r *shortTermRepository) Append(ctx context.Context, entry *model.ShortTermEntry) error {
	if !entry.UserID.Validate() {
		return goerr.Wrap(types.ErrValidation, "short term entry requires a user ID")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := copyEntry(entry)
	if stored.ID == "" {
		stored.ID = model.NewEntryID()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	r.entries[entry.UserID] = append(r.entries[entry.UserID], stored)
	return nil
}

func (r *shortTermRepository) List(ctx context.Context, userID types.UserID) ([]*model.ShortTermEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bucket := r.entries[userID]
	result := make([]*model.ShortTermEntry, 0, len(bucket))
	for _, e := range bucket {
		result = append(result, copyEntry(e))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TurnNumber < result[j].TurnNumber
	})

	if len(result) > model.ShortTermWindow {
		result = result[len(result)-model.ShortTermWindow:]
	}

	return result, nil
}

func (r *shortTermRepository) Clear(ctx context.Context, userID types.UserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, userID)
	return nil
}

func (r *shortTermRepository) Count(ctx context.Context, userID types.UserID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries[userID]), nil
}

func (r *shortTermRepository) eachUser(fn func(types.UserID)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id := range r.entries {
		fn(id)
	}
}

func (r *shortTermRepository) reset(userID types.UserID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, userID)
}
