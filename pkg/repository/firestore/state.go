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

// stateDoc is the Firestore document representation of model.MindState.
// It is stored at users/{userID} so listing users is a plain collection
// scan.
type stateDoc struct {
	UserID      types.UserID    `firestore:"UserID"`
	Mood        float64         `firestore:"Mood"`
	Energy      float64         `firestore:"Energy"`
	Affection   float64         `firestore:"Affection"`
	Trust       float64         `firestore:"Trust"`
	Phase       string          `firestore:"Phase"`
	Scene       string          `firestore:"Scene"`
	TurnInScene int             `firestore:"TurnInScene"`
	Flags       map[string]bool `firestore:"Flags"`
	UpdatedAt   time.Time       `firestore:"UpdatedAt"`
}

func toStateDoc(s *model.MindState) *stateDoc {
	return &stateDoc{
		UserID:      s.UserID,
		Mood:        s.Biometrics.Mood,
		Energy:      s.Biometrics.Energy,
		Affection:   s.Biometrics.Affection,
		Trust:       s.Biometrics.Trust,
		Phase:       s.Scenario.Phase,
		Scene:       s.Scenario.Scene,
		TurnInScene: s.Scenario.TurnInScene,
		Flags:       s.Scenario.Flags,
		UpdatedAt:   s.UpdatedAt,
	}
}

func fromStateDoc(d *stateDoc) *model.MindState {
	return &model.MindState{
		UserID: d.UserID,
		Biometrics: model.Biometrics{
			Mood:      d.Mood,
			Energy:    d.Energy,
			Affection: d.Affection,
			Trust:     d.Trust,
		},
		Scenario: model.Scenario{
			Phase:       d.Phase,
			Scene:       d.Scene,
			TurnInScene: d.TurnInScene,
			Flags:       d.Flags,
		},
		UpdatedAt: d.UpdatedAt,
	}
}

type stateRepository struct {
	client *firestore.Client
}

func newStateRepository(client *firestore.Client) *stateRepository {
	return &stateRepository{client: client}
}

func (r *stateRepository) Get(ctx context.Context, userID types.UserID) (*model.MindState, error) {
	doc, err := userDoc(r.client, userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(types.ErrNotFound, "mind state not found", goerr.V("userID", userID))
		}
		return nil, goerr.Wrap(err, "failed to get mind state", goerr.V("userID", userID))
	}

	var d stateDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal mind state", goerr.V("userID", userID))
	}

	state := fromStateDoc(&d)
	if err := state.Validate(); err != nil {
		return nil, err
	}

	return state, nil
}

func (r *stateRepository) Put(ctx context.Context, state *model.MindState) error {
	if err := state.Validate(); err != nil {
		return err
	}

	stored := state.Clone()
	stored.UpdatedAt = time.Now().UTC()

	if _, err := userDoc(r.client, state.UserID).Set(ctx, toStateDoc(stored)); err != nil {
		return goerr.Wrap(err, "failed to put mind state", goerr.V("userID", state.UserID))
	}

	return nil
}

// shortTermDoc is the Firestore document representation of
// model.ShortTermEntry.
type shortTermDoc struct {
	ID         model.EntryID   `firestore:"ID"`
	UserID     types.UserID    `firestore:"UserID"`
	SessionID  types.SessionID `firestore:"SessionID"`
	Role       string          `firestore:"Role"`
	Content    string          `firestore:"Content"`
	TurnNumber int             `firestore:"TurnNumber"`
	CreatedAt  time.Time       `firestore:"CreatedAt"`
}

func toShortTermDoc(e *model.ShortTermEntry) *shortTermDoc {
	return &shortTermDoc{
		ID:         e.ID,
		UserID:     e.UserID,
		SessionID:  e.SessionID,
		Role:       e.Role.String(),
		Content:    e.Content,
		TurnNumber: e.TurnNumber,
		CreatedAt:  e.CreatedAt,
	}
}

func fromShortTermDoc(d *shortTermDoc) *model.ShortTermEntry {
	return &model.ShortTermEntry{
		ID:         d.ID,
		UserID:     d.UserID,
		SessionID:  d.SessionID,
		Role:       types.Role(d.Role),
		Content:    d.Content,
		TurnNumber: d.TurnNumber,
		CreatedAt:  d.CreatedAt,
	}
}

type shortTermRepository struct {
	client *firestore.Client
}

func newShortTermRepository(client *firestore.Client) *shortTermRepository {
	return &shortTermRepository{client: client}
}

func (r *shortTermRepository) collection(userID types.UserID) *firestore.CollectionRef {
	return userDoc(r.client, userID).Collection(collectionShortTerm)
}

func (r *shortTermRepository) Append(ctx context.Context, entry *model.ShortTermEntry) error {
	if !entry.UserID.Validate() {
		return goerr.Wrap(types.ErrValidation, "short term entry requires a user ID")
	}

	stored := *entry
	if stored.ID == "" {
		stored.ID = model.NewEntryID()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	docRef := r.collection(entry.UserID).Doc(string(stored.ID))
	if _, err := docRef.Set(ctx, toShortTermDoc(&stored)); err != nil {
		return goerr.Wrap(err, "failed to append short term entry", goerr.V("userID", entry.UserID))
	}

	return nil
}

func (r *shortTermRepository) List(ctx context.Context, userID types.UserID) ([]*model.ShortTermEntry, error) {
	// Newest first with a limit, then reversed, so a delayed promotion
	// never turns this into an unbounded read.
	iter := r.collection(userID).
		OrderBy("TurnNumber", firestore.Desc).
		Limit(model.ShortTermWindow).
		Documents(ctx)
	defer iter.Stop()

	entries := make([]*model.ShortTermEntry, 0, model.ShortTermWindow)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate short term entries")
		}

		var d shortTermDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal short term entry")
		}

		entries = append(entries, fromShortTermDoc(&d))
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	return entries, nil
}

func (r *shortTermRepository) Clear(ctx context.Context, userID types.UserID) error {
	return deleteCollection(ctx, r.client, r.collection(userID))
}

func (r *shortTermRepository) Count(ctx context.Context, userID types.UserID) (int, error) {
	// Keys-only scan. The window is small so this stays cheap.
	iter := r.collection(userID).Select().Documents(ctx)
	defer iter.Stop()

	count := 0
	for {
		_, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, goerr.Wrap(err, "failed to count short term entries", goerr.V("userID", userID))
		}
		count++
	}

	return count, nil
}
