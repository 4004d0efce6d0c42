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

type profileRepository struct {
	mu       sync.RWMutex
	profiles map[types.UserID]*model.UserProfile
}

func newProfileRepository() *profileRepository {
	return &profileRepository{
		profiles: make(map[types.UserID]*model.UserProfile),
	}
}

func (r *profileRepository) Get(ctx context.Context, userID types.UserID) (*model.UserProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[userID]
	if !ok {
		return nil, goerr.Wrap(types.ErrNotFound, "user profile not found", goerr.V("userID", userID))
	}
	return p.Clone(), nil
}

func (r *profileRepository) Put(ctx context.Context, profile *model.UserProfile) error {
	if !profile.UserID.Validate() {
		return goerr.Wrap(types.ErrValidation, "profile requires a user ID")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.profiles[profile.UserID] = profile.Clone()
	return nil
}

func (r *profileRepository) reset(userID types.UserID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.profiles, userID)
}

type promiseRepository struct {
	mu       sync.RWMutex
	promises map[types.UserID]map[model.PromiseID]*model.Promise
}

func newPromiseRepository() *promiseRepository {
	return &promiseRepository{
		promises: make(map[types.UserID]map[model.PromiseID]*model.Promise),
	}
}

func copyPromise(p *model.Promise) *model.Promise {
	copied := *p
	if p.DueDate != nil {
		due := *p.DueDate
		copied.DueDate = &due
	}
	return &copied
}

func (r *promiseRepository) Create(ctx context.Context, promise *model.Promise) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.promises[promise.UserID]; !ok {
		r.promises[promise.UserID] = make(map[model.PromiseID]*model.Promise)
	}

	stored := copyPromise(promise)
	if stored.ID == "" {
		stored.ID = model.NewPromiseID()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	r.promises[promise.UserID][stored.ID] = stored
	return nil
}

func (r *promiseRepository) Get(ctx context.Context, userID types.UserID, id model.PromiseID) (*model.Promise, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.promises[userID][id]
	if !ok {
		return nil, goerr.Wrap(types.ErrNotFound, "promise not found", goerr.V("promiseID", id))
	}
	return copyPromise(p), nil
}

func (r *promiseRepository) Update(ctx context.Context, promise *model.Promise) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.promises[promise.UserID][promise.ID]; !ok {
		return goerr.Wrap(types.ErrNotFound, "promise not found", goerr.V("promiseID", promise.ID))
	}
	r.promises[promise.UserID][promise.ID] = copyPromise(promise)
	return nil
}

func (r *promiseRepository) List(ctx context.Context, userID types.UserID) ([]*model.Promise, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.Promise, 0, len(r.promises[userID]))
	for _, p := range r.promises[userID] {
		result = append(result, copyPromise(p))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

func (r *promiseRepository) ListByStatus(ctx context.Context, userID types.UserID, status types.PromiseStatus) ([]*model.Promise, error) {
	all, err := r.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := make([]*model.Promise, 0, len(all))
	for _, p := range all {
		if p.Status == status {
			result = append(result, p)
		}
	}
	return result, nil
}

func (r *promiseRepository) reset(userID types.UserID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.promises, userID)
}

type boundaryRepository struct {
	mu         sync.RWMutex
	boundaries map[types.UserID][]*model.Boundary
}

func newBoundaryRepository() *boundaryRepository {
	return &boundaryRepository{
		boundaries: make(map[types.UserID][]*model.Boundary),
	}
}

func (r *boundaryRepository) Create(ctx context.Context, boundary *model.Boundary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *boundary
	if copied.ID == "" {
		copied.ID = model.NewBoundaryID()
	}
	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = time.Now().UTC()
	}
	r.boundaries[boundary.UserID] = append(r.boundaries[boundary.UserID], &copied)
	return nil
}

func (r *boundaryRepository) List(ctx context.Context, userID types.UserID) ([]*model.Boundary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.Boundary, 0, len(r.boundaries[userID]))
	for _, b := range r.boundaries[userID] {
		copied := *b
		result = append(result, &copied)
	}
	return result, nil
}

func (r *boundaryRepository) reset(userID types.UserID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.boundaries, userID)
}
