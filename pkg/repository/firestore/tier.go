package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/mnemosyne/pkg/domain/model"
	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// midTermDoc is the Firestore document representation of
// model.MidTermSummary.
type midTermDoc struct {
	ID              model.SummaryID `firestore:"ID"`
	UserID          types.UserID    `firestore:"UserID"`
	SummaryText     string          `firestore:"SummaryText"`
	Importance      float64         `firestore:"Importance"`
	SourceSessionID types.SessionID `firestore:"SourceSessionID"`
	TurnStart       int             `firestore:"TurnStart"`
	TurnEnd         int             `firestore:"TurnEnd"`
	CreatedAt       time.Time       `firestore:"CreatedAt"`
}

func toMidTermDoc(s *model.MidTermSummary) *midTermDoc {
	return &midTermDoc{
		ID:              s.ID,
		UserID:          s.UserID,
		SummaryText:     s.SummaryText,
		Importance:      s.Importance,
		SourceSessionID: s.SourceSessionID,
		TurnStart:       s.TurnStart,
		TurnEnd:         s.TurnEnd,
		CreatedAt:       s.CreatedAt,
	}
}

func fromMidTermDoc(d *midTermDoc) *model.MidTermSummary {
	return &model.MidTermSummary{
		ID:              d.ID,
		UserID:          d.UserID,
		SummaryText:     d.SummaryText,
		Importance:      d.Importance,
		SourceSessionID: d.SourceSessionID,
		TurnStart:       d.TurnStart,
		TurnEnd:         d.TurnEnd,
		CreatedAt:       d.CreatedAt,
	}
}

type midTermRepository struct {
	client *firestore.Client
}

func newMidTermRepository(client *firestore.Client) *midTermRepository {
	return &midTermRepository{client: client}
}

func (r *midTermRepository) collection(userID types.UserID) *firestore.CollectionRef {
	return userDoc(r.client, userID).Collection(collectionMidTerm)
}

func (r *midTermRepository) Create(ctx context.Context, summary *model.MidTermSummary) error {
	stored := *summary
	if stored.ID == "" {
		stored.ID = model.NewSummaryID()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	docRef := r.collection(summary.UserID).Doc(string(stored.ID))
	if _, err := docRef.Set(ctx, toMidTermDoc(&stored)); err != nil {
		return goerr.Wrap(err, "failed to create mid term summary", goerr.V("userID", summary.UserID))
	}

	return nil
}

func (r *midTermRepository) Get(ctx context.Context, userID types.UserID, id model.SummaryID) (*model.MidTermSummary, error) {
	doc, err := r.collection(userID).Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(types.ErrNotFound, "mid term summary not found", goerr.V("summaryID", id))
		}
		return nil, goerr.Wrap(err, "failed to get mid term summary", goerr.V("summaryID", id))
	}

	var d midTermDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal mid term summary", goerr.V("summaryID", id))
	}

	return fromMidTermDoc(&d), nil
}

func (r *midTermRepository) List(ctx context.Context, userID types.UserID) ([]*model.MidTermSummary, error) {
	return r.listQuery(ctx, r.collection(userID).OrderBy("CreatedAt", firestore.Asc))
}

func (r *midTermRepository) ListSince(ctx context.Context, userID types.UserID, since time.Time) ([]*model.MidTermSummary, error) {
	q := r.collection(userID).
		Where("CreatedAt", ">=", since).
		OrderBy("CreatedAt", firestore.Asc)
	return r.listQuery(ctx, q)
}

func (r *midTermRepository) listQuery(ctx context.Context, q firestore.Query) ([]*model.MidTermSummary, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()

	summaries := make([]*model.MidTermSummary, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate mid term summaries")
		}

		var d midTermDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal mid term summary")
		}

		summaries = append(summaries, fromMidTermDoc(&d))
	}

	return summaries, nil
}

// longTermDoc is the Firestore document representation of
// model.LongTermItem. Embedding is stored as firestore.Vector32 for
// FindNearest vector search.
type longTermDoc struct {
	ID              model.ItemID       `firestore:"ID"`
	UserID          types.UserID       `firestore:"UserID"`
	Content         string             `firestore:"Content"`
	MemoryType      string             `firestore:"MemoryType"`
	Importance      float64            `firestore:"Importance"`
	Embedding       firestore.Vector32 `firestore:"Embedding,omitempty"`
	SourceMidTermID model.SummaryID    `firestore:"SourceMidTermID"`
	CreatedAt       time.Time          `firestore:"CreatedAt"`
	LastAccessedAt  time.Time          `firestore:"LastAccessedAt"`
}

// longTermQueryDoc carries the extra distance field FindNearest writes
// into each result.
type longTermQueryDoc struct {
	longTermDoc
	Distance float64 `firestore:"Distance"`
}

func toLongTermDoc(m *model.LongTermItem) *longTermDoc {
	doc := &longTermDoc{
		ID:              m.ID,
		UserID:          m.UserID,
		Content:         m.Content,
		MemoryType:      m.MemoryType.String(),
		Importance:      m.Importance,
		SourceMidTermID: m.SourceMidTermID,
		CreatedAt:       m.CreatedAt,
		LastAccessedAt:  m.LastAccessedAt,
	}
	if len(m.Embedding) > 0 {
		doc.Embedding = firestore.Vector32(m.Embedding)
	}
	return doc
}

func fromLongTermDoc(d *longTermDoc) *model.LongTermItem {
	m := &model.LongTermItem{
		ID:              d.ID,
		UserID:          d.UserID,
		Content:         d.Content,
		MemoryType:      types.MemoryType(d.MemoryType),
		Importance:      d.Importance,
		SourceMidTermID: d.SourceMidTermID,
		CreatedAt:       d.CreatedAt,
		LastAccessedAt:  d.LastAccessedAt,
	}
	if len(d.Embedding) > 0 {
		m.Embedding = []float32(d.Embedding)
	}
	return m
}

type longTermRepository struct {
	client *firestore.Client
}

func newLongTermRepository(client *firestore.Client) *longTermRepository {
	return &longTermRepository{client: client}
}

func (r *longTermRepository) collection(userID types.UserID) *firestore.CollectionRef {
	return userDoc(r.client, userID).Collection(collectionLongTerm)
}

func (r *longTermRepository) Create(ctx context.Context, item *model.LongTermItem) error {
	stored := *item
	if stored.ID == "" {
		stored.ID = model.NewItemID()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	docRef := r.collection(item.UserID).Doc(string(stored.ID))
	if _, err := docRef.Set(ctx, toLongTermDoc(&stored)); err != nil {
		return goerr.Wrap(err, "failed to create long term item", goerr.V("userID", item.UserID))
	}

	return nil
}

func (r *longTermRepository) Get(ctx context.Context, userID types.UserID, id model.ItemID) (*model.LongTermItem, error) {
	doc, err := r.collection(userID).Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(types.ErrNotFound, "long term item not found", goerr.V("itemID", id))
		}
		return nil, goerr.Wrap(err, "failed to get long term item", goerr.V("itemID", id))
	}

	var d longTermDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal long term item", goerr.V("itemID", id))
	}

	return fromLongTermDoc(&d), nil
}

func (r *longTermRepository) Update(ctx context.Context, item *model.LongTermItem) error {
	docRef := r.collection(item.UserID).Doc(string(item.ID))

	if _, err := docRef.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(types.ErrNotFound, "long term item not found", goerr.V("itemID", item.ID))
		}
		return goerr.Wrap(err, "failed to get long term item", goerr.V("itemID", item.ID))
	}

	if _, err := docRef.Set(ctx, toLongTermDoc(item)); err != nil {
		return goerr.Wrap(err, "failed to update long term item", goerr.V("itemID", item.ID))
	}

	return nil
}

func (r *longTermRepository) List(ctx context.Context, userID types.UserID) ([]*model.LongTermItem, error) {
	iter := r.collection(userID).
		OrderBy("CreatedAt", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	items := make([]*model.LongTermItem, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate long term items")
		}

		var d longTermDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal long term item")
		}

		items = append(items, fromLongTermDoc(&d))
	}

	return items, nil
}

func (r *longTermRepository) FindByEmbedding(ctx context.Context, userID types.UserID, embedding []float32, limit int, minImportance float64) ([]*model.ScoredItem, error) {
	// Vector queries cannot carry inequality filters, so importance is
	// filtered after the nearest-neighbor fetch.
	vq := r.collection(userID).
		FindNearest("Embedding", firestore.Vector32(embedding), limit, firestore.DistanceMeasureCosine,
			&firestore.FindNearestOptions{DistanceResultField: "Distance"})

	iter := vq.Documents(ctx)
	defer iter.Stop()

	items := make([]*model.ScoredItem, 0, limit)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate vector search results")
		}

		var d longTermQueryDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal vector search result")
		}

		if d.Importance < minImportance {
			continue
		}

		items = append(items, &model.ScoredItem{
			Item:     fromLongTermDoc(&d.longTermDoc),
			Distance: d.Distance,
		})
	}

	return items, nil
}

func (r *longTermRepository) Delete(ctx context.Context, userID types.UserID, id model.ItemID) error {
	docRef := r.collection(userID).Doc(string(id))

	if _, err := docRef.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(types.ErrNotFound, "long term item not found", goerr.V("itemID", id))
		}
		return goerr.Wrap(err, "failed to get long term item", goerr.V("itemID", id))
	}

	if _, err := docRef.Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete long term item", goerr.V("itemID", id))
	}

	return nil
}

// archiveDoc is the Firestore document representation of
// model.ArchivedItem.
type archiveDoc struct {
	ID         model.ItemID `firestore:"ID"`
	OriginalID model.ItemID `firestore:"OriginalID"`
	UserID     types.UserID `firestore:"UserID"`
	Content    string       `firestore:"Content"`
	MemoryType string       `firestore:"MemoryType"`
	Importance float64      `firestore:"Importance"`
	CreatedAt  time.Time    `firestore:"CreatedAt"`
	ArchivedAt time.Time    `firestore:"ArchivedAt"`
}

type archiveRepository struct {
	client *firestore.Client
}

func newArchiveRepository(client *firestore.Client) *archiveRepository {
	return &archiveRepository{client: client}
}

func (r *archiveRepository) collection(userID types.UserID) *firestore.CollectionRef {
	return userDoc(r.client, userID).Collection(collectionArchive)
}

func (r *archiveRepository) Put(ctx context.Context, item *model.ArchivedItem) error {
	doc := &archiveDoc{
		ID:         item.ID,
		OriginalID: item.OriginalID,
		UserID:     item.UserID,
		Content:    item.Content,
		MemoryType: item.MemoryType.String(),
		Importance: item.Importance,
		CreatedAt:  item.CreatedAt,
		ArchivedAt: item.ArchivedAt,
	}

	if _, err := r.collection(item.UserID).Doc(string(item.ID)).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to put archived item", goerr.V("userID", item.UserID))
	}

	return nil
}

func (r *archiveRepository) List(ctx context.Context, userID types.UserID) ([]*model.ArchivedItem, error) {
	iter := r.collection(userID).
		OrderBy("ArchivedAt", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	items := make([]*model.ArchivedItem, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate archived items")
		}

		var d archiveDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal archived item")
		}

		items = append(items, &model.ArchivedItem{
			ID:         d.ID,
			OriginalID: d.OriginalID,
			UserID:     d.UserID,
			Content:    d.Content,
			MemoryType: types.MemoryType(d.MemoryType),
			Importance: d.Importance,
			CreatedAt:  d.CreatedAt,
			ArchivedAt: d.ArchivedAt,
		})
	}

	return items, nil
}

// weeklySummaryDoc is the Firestore document representation of
// model.WeeklySummary.
type weeklySummaryDoc struct {
	ID               model.WeeklySummaryID `firestore:"ID"`
	UserID           types.UserID          `firestore:"UserID"`
	SummaryText      string                `firestore:"SummaryText"`
	WeekStart        time.Time             `firestore:"WeekStart"`
	WeekEnd          time.Time             `firestore:"WeekEnd"`
	SourceMidTermIDs []string              `firestore:"SourceMidTermIDs"`
	CreatedAt        time.Time             `firestore:"CreatedAt"`
}

type weeklySummaryRepository struct {
	client *firestore.Client
}

func newWeeklySummaryRepository(client *firestore.Client) *weeklySummaryRepository {
	return &weeklySummaryRepository{client: client}
}

func (r *weeklySummaryRepository) collection(userID types.UserID) *firestore.CollectionRef {
	return userDoc(r.client, userID).Collection(collectionWeeklySummaries)
}

func (r *weeklySummaryRepository) Create(ctx context.Context, summary *model.WeeklySummary) error {
	stored := *summary
	if stored.ID == "" {
		stored.ID = model.NewWeeklySummaryID()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	sourceIDs := make([]string, 0, len(stored.SourceMidTermIDs))
	for _, id := range stored.SourceMidTermIDs {
		sourceIDs = append(sourceIDs, string(id))
	}

	doc := &weeklySummaryDoc{
		ID:               stored.ID,
		UserID:           stored.UserID,
		SummaryText:      stored.SummaryText,
		WeekStart:        stored.WeekStart,
		WeekEnd:          stored.WeekEnd,
		SourceMidTermIDs: sourceIDs,
		CreatedAt:        stored.CreatedAt,
	}

	if _, err := r.collection(summary.UserID).Doc(string(stored.ID)).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to create weekly summary", goerr.V("userID", summary.UserID))
	}

	return nil
}

func (r *weeklySummaryRepository) List(ctx context.Context, userID types.UserID) ([]*model.WeeklySummary, error) {
	iter := r.collection(userID).
		OrderBy("WeekStart", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	summaries := make([]*model.WeeklySummary, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate weekly summaries")
		}

		var d weeklySummaryDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal weekly summary")
		}

		summaries = append(summaries, fromWeeklySummaryDoc(&d))
	}

	return summaries, nil
}

func (r *weeklySummaryRepository) Latest(ctx context.Context, userID types.UserID) (*model.WeeklySummary, error) {
	iter := r.collection(userID).
		OrderBy("WeekStart", firestore.Desc).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, goerr.Wrap(types.ErrNotFound, "no weekly summary", goerr.V("userID", userID))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get latest weekly summary", goerr.V("userID", userID))
	}

	var d weeklySummaryDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal weekly summary")
	}

	return fromWeeklySummaryDoc(&d), nil
}

func fromWeeklySummaryDoc(d *weeklySummaryDoc) *model.WeeklySummary {
	sourceIDs := make([]model.SummaryID, 0, len(d.SourceMidTermIDs))
	for _, id := range d.SourceMidTermIDs {
		sourceIDs = append(sourceIDs, model.SummaryID(id))
	}

	return &model.WeeklySummary{
		ID:               d.ID,
		UserID:           d.UserID,
		SummaryText:      d.SummaryText,
		WeekStart:        d.WeekStart,
		WeekEnd:          d.WeekEnd,
		SourceMidTermIDs: sourceIDs,
		CreatedAt:        d.CreatedAt,
	}
}
