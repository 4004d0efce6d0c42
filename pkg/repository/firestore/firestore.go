package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/mnemosyne/pkg/domain/interfaces"
	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
	"google.golang.org/api/iterator"
)

// Collection layout:
//
//	users/{userID}                          mind state document
//	users/{userID}/shortTerm/{entryID}
//	users/{userID}/midTerm/{summaryID}
//	users/{userID}/longTerm/{itemID}
//	users/{userID}/archive/{itemID}
//	users/{userID}/profile/profile
//	users/{userID}/promises/{promiseID}
//	users/{userID}/boundaries/{boundaryID}
//	users/{userID}/weeklySummaries/{summaryID}
const (
	collectionUsers           = "users"
	collectionShortTerm       = "shortTerm"
	collectionMidTerm         = "midTerm"
	collectionLongTerm        = "longTerm"
	collectionArchive         = "archive"
	collectionProfile         = "profile"
	collectionPromises        = "promises"
	collectionBoundaries      = "boundaries"
	collectionWeeklySummaries = "weeklySummaries"
)

type Firestore struct {
	client    *firestore.Client
	state     *stateRepository
	shortTerm *shortTermRepository
	midTerm   *midTermRepository
	longTerm  *longTermRepository
	archive   *archiveRepository
	profile   *profileRepository
	promise   *promiseRepository
	boundary  *boundaryRepository
	weekly    *weeklySummaryRepository
}

var _ interfaces.Repository = &Firestore{}

func New(ctx context.Context, projectID, databaseID string) (*Firestore, error) {
	var client *firestore.Client
	var err error
	if databaseID == "" {
		client, err = firestore.NewClient(ctx, projectID)
	} else {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client", goerr.V("projectID", projectID))
	}

	return &Firestore{
		client:    client,
		state:     newStateRepository(client),
		shortTerm: newShortTermRepository(client),
		midTerm:   newMidTermRepository(client),
		longTerm:  newLongTermRepository(client),
		archive:   newArchiveRepository(client),
		profile:   newProfileRepository(client),
		promise:   newPromiseRepository(client),
		boundary:  newBoundaryRepository(client),
		weekly:    newWeeklySummaryRepository(client),
	}, nil
}

func userDoc(client *firestore.Client, userID types.UserID) *firestore.DocumentRef {
	return client.Collection(collectionUsers).Doc(string(userID))
}

func (f *Firestore) State() interfaces.StateRepository {
	return f.state
}

func (f *Firestore) ShortTerm() interfaces.ShortTermRepository {
	return f.shortTerm
}

func (f *Firestore) MidTerm() interfaces.MidTermRepository {
	return f.midTerm
}

func (f *Firestore) LongTerm() interfaces.LongTermRepository {
	return f.longTerm
}

func (f *Firestore) Archive() interfaces.ArchiveRepository {
	return f.archive
}

func (f *Firestore) Profile() interfaces.ProfileRepository {
	return f.profile
}

func (f *Firestore) Promise() interfaces.PromiseRepository {
	return f.promise
}

func (f *Firestore) Boundary() interfaces.BoundaryRepository {
	return f.boundary
}

func (f *Firestore) WeeklySummary() interfaces.WeeklySummaryRepository {
	return f.weekly
}

func (f *Firestore) ListUserIDs(ctx context.Context) ([]types.UserID, error) {
	iter := f.client.Collection(collectionUsers).Documents(ctx)
	defer iter.Stop()

	ids := make([]types.UserID, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate users")
		}
		ids = append(ids, types.UserID(doc.Ref.ID))
	}

	return ids, nil
}

func (f *Firestore) ResetUser(ctx context.Context, userID types.UserID) error {
	user := userDoc(f.client, userID)

	subcollections := []string{
		collectionShortTerm,
		collectionMidTerm,
		collectionLongTerm,
		collectionArchive,
		collectionProfile,
		collectionPromises,
		collectionBoundaries,
		collectionWeeklySummaries,
	}
	for _, name := range subcollections {
		if err := deleteCollection(ctx, f.client, user.Collection(name)); err != nil {
			return goerr.Wrap(err, "failed to delete subcollection",
				goerr.V("userID", userID), goerr.V("collection", name))
		}
	}

	if _, err := user.Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete user document", goerr.V("userID", userID))
	}

	return nil
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

const deleteBatchSize = 100

func deleteCollection(ctx context.Context, client *firestore.Client, ref *firestore.CollectionRef) error {
	for {
		iter := ref.Limit(deleteBatchSize).Documents(ctx)
		deleted := 0

		bw := client.BulkWriter(ctx)
		for {
			doc, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				iter.Stop()
				return goerr.Wrap(err, "failed to iterate documents for deletion")
			}
			if _, err := bw.Delete(doc.Ref); err != nil {
				iter.Stop()
				return goerr.Wrap(err, "failed to enqueue deletion")
			}
			deleted++
		}
		iter.Stop()
		bw.End()

		if deleted < deleteBatchSize {
			return nil
		}
	}
}
