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

// profileDoc is the Firestore document representation of
// model.UserProfile. A single document per user at
// users/{userID}/profile/profile.
type profileDoc struct {
	UserID      types.UserID      `firestore:"UserID"`
	Name        *string           `firestore:"Name"`
	Age         *int              `firestore:"Age"`
	Occupation  *string           `firestore:"Occupation"`
	Location    *string           `firestore:"Location"`
	Birthday    *string           `firestore:"Birthday"`
	Hobbies     []string          `firestore:"Hobbies"`
	Preferences map[string]string `firestore:"Preferences"`
}

const profileDocID = "profile"

type profileRepository struct {
	client *firestore.Client
}

func newProfileRepository(client *firestore.Client) *profileRepository {
	return &profileRepository{client: client}
}

func (r *profileRepository) docRef(userID types.UserID) *firestore.DocumentRef {
	return userDoc(r.client, userID).Collection(collectionProfile).Doc(profileDocID)
}

func (r *profileRepository) Get(ctx context.Context, userID types.UserID) (*model.UserProfile, error) {
	doc, err := r.docRef(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(types.ErrNotFound, "user profile not found", goerr.V("userID", userID))
		}
		return nil, goerr.Wrap(err, "failed to get user profile", goerr.V("userID", userID))
	}

	var d profileDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal user profile", goerr.V("userID", userID))
	}

	return &model.UserProfile{
		UserID:      d.UserID,
		Name:        d.Name,
		Age:         d.Age,
		Occupation:  d.Occupation,
		Location:    d.Location,
		Birthday:    d.Birthday,
		Hobbies:     d.Hobbies,
		Preferences: d.Preferences,
	}, nil
}

func (r *profileRepository) Put(ctx context.Context, profile *model.UserProfile) error {
	if !profile.UserID.Validate() {
		return goerr.Wrap(types.ErrValidation, "profile requires a user ID")
	}

	doc := &profileDoc{
		UserID:      profile.UserID,
		Name:        profile.Name,
		Age:         profile.Age,
		Occupation:  profile.Occupation,
		Location:    profile.Location,
		Birthday:    profile.Birthday,
		Hobbies:     profile.Hobbies,
		Preferences: profile.Preferences,
	}

	if _, err := r.docRef(profile.UserID).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to put user profile", goerr.V("userID", profile.UserID))
	}

	return nil
}

// promiseDoc is the Firestore document representation of model.Promise
type promiseDoc struct {
	ID        model.PromiseID `firestore:"ID"`
	UserID    types.UserID    `firestore:"UserID"`
	Content   string          `firestore:"Content"`
	CreatedAt time.Time       `firestore:"CreatedAt"`
	DueDate   *time.Time      `firestore:"DueDate"`
	Status    string          `firestore:"Status"`
}

func toPromiseDoc(p *model.Promise) *promiseDoc {
	return &promiseDoc{
		ID:        p.ID,
		UserID:    p.UserID,
		Content:   p.Content,
		CreatedAt: p.CreatedAt,
		DueDate:   p.DueDate,
		Status:    p.Status.String(),
	}
}

func fromPromiseDoc(d *promiseDoc) *model.Promise {
	return &model.Promise{
		ID:        d.ID,
		UserID:    d.UserID,
		Content:   d.Content,
		CreatedAt: d.CreatedAt,
		DueDate:   d.DueDate,
		Status:    types.PromiseStatus(d.Status),
	}
}

type promiseRepository struct {
	client *firestore.Client
}

func newPromiseRepository(client *firestore.Client) *promiseRepository {
	return &promiseRepository{client: client}
}

func (r *promiseRepository) collection(userID types.UserID) *firestore.CollectionRef {
	return userDoc(r.client, userID).Collection(collectionPromises)
}

func (r *promiseRepository) Create(ctx context.Context, promise *model.Promise) error {
	stored := *promise
	if stored.ID == "" {
		stored.ID = model.NewPromiseID()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	docRef := r.collection(promise.UserID).Doc(string(stored.ID))
	if _, err := docRef.Set(ctx, toPromiseDoc(&stored)); err != nil {
		return goerr.Wrap(err, "failed to create promise", goerr.V("userID", promise.UserID))
	}

	return nil
}

func (r *promiseRepository) Get(ctx context.Context, userID types.UserID, id model.PromiseID) (*model.Promise, error) {
	doc, err := r.collection(userID).Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(types.ErrNotFound, "promise not found", goerr.V("promiseID", id))
		}
		return nil, goerr.Wrap(err, "failed to get promise", goerr.V("promiseID", id))
	}

	var d promiseDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal promise", goerr.V("promiseID", id))
	}

	return fromPromiseDoc(&d), nil
}

func (r *promiseRepository) Update(ctx context.Context, promise *model.Promise) error {
	docRef := r.collection(promise.UserID).Doc(string(promise.ID))

	if _, err := docRef.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(types.ErrNotFound, "promise not found", goerr.V("promiseID", promise.ID))
		}
		return goerr.Wrap(err, "failed to get promise", goerr.V("promiseID", promise.ID))
	}

	if _, err := docRef.Set(ctx, toPromiseDoc(promise)); err != nil {
		return goerr.Wrap(err, "failed to update promise", goerr.V("promiseID", promise.ID))
	}

	return nil
}

func (r *promiseRepository) List(ctx context.Context, userID types.UserID) ([]*model.Promise, error) {
	return r.listQuery(ctx, r.collection(userID).OrderBy("CreatedAt", firestore.Asc))
}

func (r *promiseRepository) ListByStatus(ctx context.Context, userID types.UserID, promiseStatus types.PromiseStatus) ([]*model.Promise, error) {
	q := r.collection(userID).
		Where("Status", "==", promiseStatus.String()).
		OrderBy("CreatedAt", firestore.Asc)
	return r.listQuery(ctx, q)
}

func (r *promiseRepository) listQuery(ctx context.Context, q firestore.Query) ([]*model.Promise, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()

	promises := make([]*model.Promise, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate promises")
		}

		var d promiseDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal promise")
		}

		promises = append(promises, fromPromiseDoc(&d))
	}

	return promises, nil
}

// boundaryDoc is the Firestore document representation of model.Boundary
type boundaryDoc struct {
	ID        model.BoundaryID `firestore:"ID"`
	UserID    types.UserID     `firestore:"UserID"`
	Content   string           `firestore:"Content"`
	Category  string           `firestore:"Category"`
	Severity  float64          `firestore:"Severity"`
	CreatedAt time.Time        `firestore:"CreatedAt"`
}

type boundaryRepository struct {
	client *firestore.Client
}

func newBoundaryRepository(client *firestore.Client) *boundaryRepository {
	return &boundaryRepository{client: client}
}

func (r *boundaryRepository) collection(userID types.UserID) *firestore.CollectionRef {
	return userDoc(r.client, userID).Collection(collectionBoundaries)
}

func (r *boundaryRepository) Create(ctx context.Context, boundary *model.Boundary) error {
	stored := *boundary
	if stored.ID == "" {
		stored.ID = model.NewBoundaryID()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	doc := &boundaryDoc{
		ID:        stored.ID,
		UserID:    stored.UserID,
		Content:   stored.Content,
		Category:  stored.Category.String(),
		Severity:  stored.Severity,
		CreatedAt: stored.CreatedAt,
	}

	if _, err := r.collection(boundary.UserID).Doc(string(stored.ID)).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to create boundary", goerr.V("userID", boundary.UserID))
	}

	return nil
}

func (r *boundaryRepository) List(ctx context.Context, userID types.UserID) ([]*model.Boundary, error) {
	iter := r.collection(userID).
		OrderBy("CreatedAt", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	boundaries := make([]*model.Boundary, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate boundaries")
		}

		var d boundaryDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal boundary")
		}

		boundaries = append(boundaries, &model.Boundary{
			ID:        d.ID,
			UserID:    d.UserID,
			Content:   d.Content,
			Category:  types.BoundaryCategory(d.Category),
			Severity:  d.Severity,
			CreatedAt: d.CreatedAt,
		})
	}

	return boundaries, nil
}
