package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/mnemosyne/pkg/domain/model"
	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
)

type midTermRepository struct {
	mu        sync.RWMutex
	summaries map[types.UserID]map[model.SummaryID]*model.MidTermSummary
}

func newMidTermRepository() *midTermRepository {
	return &midTermRepository{
		summaries: make(map[types.UserID]map[model.SummaryID]*model.MidTermSummary),
	}
}

func copySummary(s *model.MidTermSummary) *model.MidTermSummary {
	copied := *s
	return &copied
}

func (r *midTermRepository) Create(ctx context.Context, summary *model.MidTermSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.summaries[summary.UserID]; !ok {
		r.summaries[summary.UserID] = make(map[model.SummaryID]*model.MidTermSummary)
	}

	stored := copySummary(summary)
	if stored.ID == "" {
		stored.ID = model.NewSummaryID()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	r.summaries[summary.UserID][stored.ID] = stored
	return nil
}

func (r *midTermRepository) Get(ctx context.Context, userID types.UserID, id model.SummaryID) (*model.MidTermSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.summaries[userID][id]
	if !ok {
		return nil, goerr.Wrap(types.ErrNotFound, "mid term summary not found", goerr.V("summaryID", id))
	}
	return copySummary(s), nil
}

func (r *midTermRepository) List(ctx context.Context, userID types.UserID) ([]*model.MidTermSummary, error) {
	return r.ListSince(ctx, userID, time.Time{})
}

func (r *midTermRepository) ListSince(ctx context.Context, userID types.UserID, since time.Time) ([]*model.MidTermSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.MidTermSummary, 0, len(r.summaries[userID]))
	for _, s := range r.summaries[userID] {
		if s.CreatedAt.Before(since) {
			continue
		}
		result = append(result, copySummary(s))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

func (r *midTermRepository) reset(userID types.UserID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.summaries, userID)
}

type longTermRepository struct {
	mu    sync.RWMutex
	items map[types.UserID]map[model.ItemID]*model.LongTermItem
}

func newLongTermRepository() *longTermRepository {
	return &longTermRepository{
		items: make(map[types.UserID]map[model.ItemID]*model.LongTermItem),
	}
}

func copyItem(m *model.LongTermItem) *model.LongTermItem {
	copied := *m
	if m.Embedding != nil {
		copied.Embedding = make([]float32, len(m.Embedding))
		copy(copied.Embedding, m.Embedding)
	}
	return &copied
}

func (r *longTermRepository) Create(ctx context.Context, item *model.LongTermItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[item.UserID]; !ok {
		r.items[item.UserID] = make(map[model.ItemID]*model.LongTermItem)
	}

	stored := copyItem(item)
	if stored.ID == "" {
		stored.ID = model.NewItemID()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	r.items[item.UserID][stored.ID] = stored
	return nil
}

func (r *longTermRepository) Get(ctx context.Context, userID types.UserID, id model.ItemID) (*model.LongTermItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[userID][id]
	if !ok {
		return nil, goerr.Wrap(types.ErrNotFound, "long term item not found", goerr.V("itemID", id))
	}
	return copyItem(item), nil
}

func (r *longTermRepository) Update(ctx context.Context, item *model.LongTermItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[item.UserID][item.ID]; !ok {
		return goerr.Wrap(types.ErrNotFound, "long term item not found", goerr.V("itemID", item.ID))
	}
	r.items[item.UserID][item.ID] = copyItem(item)
	return nil
}

func (r *longTermRepository) List(ctx context.Context, userID types.UserID) ([]*model.LongTermItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.LongTermItem, 0, len(r.items[userID]))
	for _, item := range r.items[userID] {
		result = append(result, copyItem(item))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

func (r *longTermRepository) FindByEmbedding(ctx context.Context, userID types.UserID, embedding []float32, limit int, minImportance float64) ([]*model.ScoredItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var candidates []*model.ScoredItem
	for _, item := range r.items[userID] {
		if len(item.Embedding) == 0 {
			continue
		}
		if item.Importance < minImportance {
			continue
		}
		candidates = append(candidates, &model.ScoredItem{
			Item:     copyItem(item),
			Distance: cosineDistance(embedding, item.Embedding),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Distance < candidates[j].Distance
	})

	if limit < len(candidates) {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

func (r *longTermRepository) Delete(ctx context.Context, userID types.UserID, id model.ItemID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[userID][id]; !ok {
		return goerr.Wrap(types.ErrNotFound, "long term item not found", goerr.V("itemID", id))
	}
	delete(r.items[userID], id)
	return nil
}

func (r *longTermRepository) eachUser(fn func(types.UserID)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id := range r.items {
		fn(id)
	}
}

func (r *longTermRepository) reset(userID types.UserID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, userID)
}

func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return 1
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 1
	}

	return 1 - dot/denom
}

type archiveRepository struct {
	mu    sync.RWMutex
	items map[types.UserID][]*model.ArchivedItem
}

func newArchiveRepository() *archiveRepository {
	return &archiveRepository{
		items: make(map[types.UserID][]*model.ArchivedItem),
	}
}

func (r *archiveRepository) Put(ctx context.Context, item *model.ArchivedItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *item
	r.items[item.UserID] = append(r.items[item.UserID], &copied)
	return nil
}

func (r *archiveRepository) List(ctx context.Context, userID types.UserID) ([]*model.ArchivedItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.ArchivedItem, 0, len(r.items[userID]))
	for _, item := range r.items[userID] {
		copied := *item
		result = append(result, &copied)
	}
	return result, nil
}

func (r *archiveRepository) reset(userID types.UserID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, userID)
}

type weeklySummaryRepository struct {
	mu        sync.RWMutex
	summaries map[types.UserID][]*model.WeeklySummary
}

func newWeeklySummaryRepository() *weeklySummaryRepository {
	return &weeklySummaryRepository{
		summaries: make(map[types.UserID][]*model.WeeklySummary),
	}
}

func copyWeekly(s *model.WeeklySummary) *model.WeeklySummary {
	copied := *s
	copied.SourceMidTermIDs = append([]model.SummaryID(nil), s.SourceMidTermIDs...)
	return &copied
}

func (r *weeklySummaryRepository) Create(ctx context.Context, summary *model.WeeklySummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := copyWeekly(summary)
	if stored.ID == "" {
		stored.ID = model.NewWeeklySummaryID()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	r.summaries[summary.UserID] = append(r.summaries[summary.UserID], stored)
	return nil
}

func (r *weeklySummaryRepository) List(ctx context.Context, userID types.UserID) ([]*model.WeeklySummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.WeeklySummary, 0, len(r.summaries[userID]))
	for _, s := range r.summaries[userID] {
		result = append(result, copyWeekly(s))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].WeekStart.Before(result[j].WeekStart)
	})

	return result, nil
}

func (r *weeklySummaryRepository) Latest(ctx context.Context, userID types.UserID) (*model.WeeklySummary, error) {
	summaries, err := r.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		return nil, goerr.Wrap(types.ErrNotFound, "no weekly summary", goerr.V("userID", userID))
	}
	return summaries[len(summaries)-1], nil
}

func (r *weeklySummaryRepository) reset(userID types.UserID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.summaries, userID)
}
