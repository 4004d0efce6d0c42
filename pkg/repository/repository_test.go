package repository_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/mnemosyne/pkg/domain/interfaces"
	"github.com/secmon-lab/mnemosyne/pkg/domain/model"
	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
	"github.com/secmon-lab/mnemosyne/pkg/repository/firestore"
	"github.com/secmon-lab/mnemosyne/pkg/repository/memory"
)

func newMemoryRepo(t *testing.T) interfaces.Repository {
	t.Helper()
	return memory.New()
}

func newFirestoreRepo(t *testing.T) interfaces.Repository {
	t.Helper()

	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	if projectID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID not set")
	}

	repo, err := firestore.New(context.Background(), projectID, "")
	gt.NoError(t, err).Required()
	t.Cleanup(func() {
		gt.NoError(t, repo.Close())
	})
	return repo
}

func TestMemoryRepository(t *testing.T) {
	runRepositoryTest(t, newMemoryRepo)
}

func TestFirestoreRepository(t *testing.T) {
	runRepositoryTest(t, newFirestoreRepo)
}

func runRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("state", func(t *testing.T) { runStateTest(t, newRepo) })
	t.Run("short term", func(t *testing.T) { runShortTermTest(t, newRepo) })
	t.Run("mid term", func(t *testing.T) { runMidTermTest(t, newRepo) })
	t.Run("long term", func(t *testing.T) { runLongTermTest(t, newRepo) })
	t.Run("structured", func(t *testing.T) { runStructuredTest(t, newRepo) })
	t.Run("weekly summary", func(t *testing.T) { runWeeklySummaryTest(t, newRepo) })
	t.Run("reset user", func(t *testing.T) { runResetUserTest(t, newRepo) })
}

func testUserID(t *testing.T) types.UserID {
	t.Helper()
	return types.UserID("test-user-" + time.Now().Format("20060102150405.000000000"))
}

func runStateTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Run("Get returns not found for unknown user", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.State().Get(ctx, testUserID(t))
		gt.Value(t, err).NotNil()
		gt.Bool(t, errors.Is(err, types.ErrNotFound)).True()
	})

	t.Run("Put then Get round trips", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := testUserID(t)

		st := model.NewMindState(userID, model.DefaultPersona())
		st.Biometrics.Mood = 3
		st.Biometrics.Trust = 42
		st.Scenario.TurnInScene = 7
		st.Scenario.SetFlag("trust_established", true)
		gt.NoError(t, repo.State().Put(ctx, st)).Required()

		got, err := repo.State().Get(ctx, userID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.UserID).Equal(userID)
		gt.Number(t, got.Biometrics.Mood).Equal(3)
		gt.Number(t, got.Biometrics.Trust).Equal(42)
		gt.Value(t, got.Scenario.Phase).Equal("introduction")
		gt.Value(t, got.Scenario.TurnInScene).Equal(7)
		gt.Bool(t, got.Scenario.Flag("trust_established")).True()
		gt.Bool(t, got.UpdatedAt.IsZero()).False()
	})

	t.Run("Put rejects out of range biometrics", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		st := model.NewMindState(testUserID(t), nil)
		st.Biometrics.Mood = 99
		err := repo.State().Put(ctx, st)
		gt.Value(t, err).NotNil()
		gt.Bool(t, errors.Is(err, types.ErrValidation)).True()
	})

	t.Run("Put overwrites in place", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := testUserID(t)

		st := model.NewMindState(userID, nil)
		gt.NoError(t, repo.State().Put(ctx, st)).Required()

		st.Biometrics.Affection = 12
		gt.NoError(t, repo.State().Put(ctx, st)).Required()

		got, err := repo.State().Get(ctx, userID)
		gt.NoError(t, err).Required()
		gt.Number(t, got.Biometrics.Affection).Equal(12)
	})
}

func runShortTermTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Run("List returns entries ordered by turn", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := testUserID(t)
		sessionID := model.NewSessionID()

		for _, turn := range []int{2, 0, 1} {
			role := types.RoleUser
			if turn%2 == 1 {
				role = types.RoleAssistant
			}
			err := repo.ShortTerm().Append(ctx, &model.ShortTermEntry{
				UserID:     userID,
				SessionID:  sessionID,
				Role:       role,
				Content:    "turn content",
				TurnNumber: turn,
			})
			gt.NoError(t, err).Required()
		}

		entries, err := repo.ShortTerm().List(ctx, userID)
		gt.NoError(t, err).Required()
		gt.Array(t, entries).Length(3).Required()
		gt.Value(t, entries[0].TurnNumber).Equal(0)
		gt.Value(t, entries[1].TurnNumber).Equal(1)
		gt.Value(t, entries[2].TurnNumber).Equal(2)
		gt.String(t, string(entries[0].ID)).NotEqual("")
	})

	t.Run("List is bounded to the recent window", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := testUserID(t)
		sessionID := model.NewSessionID()

		total := model.ShortTermWindow + 5
		for turn := 0; turn < total; turn++ {
			err := repo.ShortTerm().Append(ctx, &model.ShortTermEntry{
				UserID:     userID,
				SessionID:  sessionID,
				Role:       types.RoleUser,
				Content:    "turn content",
				TurnNumber: turn,
			})
			gt.NoError(t, err).Required()
		}

		entries, err := repo.ShortTerm().List(ctx, userID)
		gt.NoError(t, err).Required()
		gt.Array(t, entries).Length(model.ShortTermWindow).Required()
		gt.Value(t, entries[0].TurnNumber).Equal(total - model.ShortTermWindow)
		gt.Value(t, entries[len(entries)-1].TurnNumber).Equal(total - 1)
	})

	t.Run("Count and Clear", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := testUserID(t)

		for i := 0; i < 4; i++ {
			err := repo.ShortTerm().Append(ctx, &model.ShortTermEntry{
				UserID:     userID,
				SessionID:  model.NewSessionID(),
				Role:       types.RoleUser,
				Content:    "hello",
				TurnNumber: i,
			})
			gt.NoError(t, err).Required()
		}

		count, err := repo.ShortTerm().Count(ctx, userID)
		gt.NoError(t, err).Required()
		gt.Value(t, count).Equal(4)

		gt.NoError(t, repo.ShortTerm().Clear(ctx, userID)).Required()

		count, err = repo.ShortTerm().Count(ctx, userID)
		gt.NoError(t, err).Required()
		gt.Value(t, count).Equal(0)
	})
}

func runMidTermTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Run("Create then Get round trips", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := testUserID(t)

		summary := &model.MidTermSummary{
			ID:              model.NewSummaryID(),
			UserID:          userID,
			SummaryText:     "User talked about an upcoming exam and asked for encouragement.",
			Importance:      0.6,
			SourceSessionID: model.NewSessionID(),
			TurnStart:       0,
			TurnEnd:         14,
		}
		gt.NoError(t, repo.MidTerm().Create(ctx, summary)).Required()

		got, err := repo.MidTerm().Get(ctx, userID, summary.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.SummaryText).Equal(summary.SummaryText)
		gt.Number(t, got.Importance).Equal(0.6)
		gt.Value(t, got.TurnEnd).Equal(14)
	})

	t.Run("ListSince filters by creation time", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := testUserID(t)

		old := &model.MidTermSummary{
			ID:          model.NewSummaryID(),
			UserID:      userID,
			SummaryText: "old session",
			Importance:  0.5,
			CreatedAt:   time.Now().UTC().Add(-10 * 24 * time.Hour),
		}
		recent := &model.MidTermSummary{
			ID:          model.NewSummaryID(),
			UserID:      userID,
			SummaryText: "recent session",
			Importance:  0.5,
			CreatedAt:   time.Now().UTC().Add(-time.Hour),
		}
		gt.NoError(t, repo.MidTerm().Create(ctx, old)).Required()
		gt.NoError(t, repo.MidTerm().Create(ctx, recent)).Required()

		got, err := repo.MidTerm().ListSince(ctx, userID, time.Now().UTC().Add(-7*24*time.Hour))
		gt.NoError(t, err).Required()
		gt.Array(t, got).Length(1).Required()
		gt.Value(t, got[0].SummaryText).Equal("recent session")
	})
}

func runLongTermTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	newItem := func(userID types.UserID, content string, importance float64, embedding []float32) *model.LongTermItem {
		return &model.LongTermItem{
			ID:             model.NewItemID(),
			UserID:         userID,
			Content:        content,
			MemoryType:     types.MemoryTypeFact,
			Importance:     importance,
			Embedding:      embedding,
			CreatedAt:      time.Now().UTC(),
			LastAccessedAt: time.Now().UTC(),
		}
	}

	t.Run("Create then Get round trips", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := testUserID(t)

		item := newItem(userID, "User works as a nurse", 0.8, []float32{0.1, 0.2, 0.3})
		gt.NoError(t, repo.LongTerm().Create(ctx, item)).Required()

		got, err := repo.LongTerm().Get(ctx, userID, item.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Content).Equal("User works as a nurse")
		gt.Value(t, got.MemoryType).Equal(types.MemoryTypeFact)
		gt.Array(t, got.Embedding).Length(3)
	})

	t.Run("Update persists importance changes", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := testUserID(t)

		item := newItem(userID, "likes jazz", 0.5, []float32{0.4, 0.5, 0.6})
		gt.NoError(t, repo.LongTerm().Create(ctx, item)).Required()

		item.Decay(time.Now().UTC())
		gt.NoError(t, repo.LongTerm().Update(ctx, item)).Required()

		got, err := repo.LongTerm().Get(ctx, userID, item.ID)
		gt.NoError(t, err).Required()
		gt.Number(t, got.Importance).Equal(0.4)
	})

	t.Run("Update unknown item returns not found", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		item := newItem(testUserID(t), "ghost", 0.5, nil)
		err := repo.LongTerm().Update(ctx, item)
		gt.Value(t, err).NotNil()
		gt.Bool(t, errors.Is(err, types.ErrNotFound)).True()
	})

	t.Run("Delete removes the item", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := testUserID(t)

		item := newItem(userID, "temporary", 0.5, []float32{0.1, 0.1, 0.1})
		gt.NoError(t, repo.LongTerm().Create(ctx, item)).Required()
		gt.NoError(t, repo.LongTerm().Delete(ctx, userID, item.ID)).Required()

		_, err := repo.LongTerm().Get(ctx, userID, item.ID)
		gt.Bool(t, errors.Is(err, types.ErrNotFound)).True()
	})

	t.Run("archive round trips", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := testUserID(t)

		item := newItem(userID, "stale memory", 0.1, nil)
		archived := model.NewArchivedItem(item, time.Now().UTC())
		gt.NoError(t, repo.Archive().Put(ctx, archived)).Required()

		got, err := repo.Archive().List(ctx, userID)
		gt.NoError(t, err).Required()
		gt.Array(t, got).Length(1).Required()
		gt.Value(t, got[0].OriginalID).Equal(item.ID)
		gt.Value(t, got[0].Content).Equal("stale memory")
	})
}

func TestMemoryFindByEmbedding(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	userID := types.UserID("vector-user")

	items := []struct {
		content    string
		importance float64
		embedding  []float32
	}{
		{"likes coffee", 0.9, []float32{1, 0, 0}},
		{"afraid of dogs", 0.8, []float32{0.9, 0.1, 0}},
		{"plays violin", 0.7, []float32{0, 1, 0}},
		{"faded memory", 0.05, []float32{1, 0, 0}},
	}
	for _, it := range items {
		err := repo.LongTerm().Create(ctx, &model.LongTermItem{
			ID:         model.NewItemID(),
			UserID:     userID,
			Content:    it.content,
			MemoryType: types.MemoryTypePreference,
			Importance: it.importance,
			Embedding:  it.embedding,
		})
		gt.NoError(t, err).Required()
	}

	got, err := repo.LongTerm().FindByEmbedding(ctx, userID, []float32{1, 0, 0}, 3, 0.1)
	gt.NoError(t, err).Required()
	gt.Array(t, got).Length(3).Required()

	// Closest first, and the low-importance item is excluded even though
	// its vector matches exactly.
	gt.Value(t, got[0].Item.Content).Equal("likes coffee")
	gt.Value(t, got[1].Item.Content).Equal("afraid of dogs")
	gt.Value(t, got[2].Item.Content).Equal("plays violin")
	gt.Bool(t, got[0].Distance <= got[1].Distance).True()
	gt.Bool(t, got[1].Distance <= got[2].Distance).True()
}

func TestMemoryFindByEmbeddingImportanceFloor(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	userID := types.UserID("vector-user")

	// Five items, three at or above the floor. Vectors are ordered so
	// the higher-importance survivors are also the closer ones.
	items := []struct {
		content    string
		importance float64
		embedding  []float32
	}{
		{"first", 0.9, []float32{1, 0, 0}},
		{"second", 0.7, []float32{0.9, 0.1, 0}},
		{"third", 0.5, []float32{0.5, 0.5, 0}},
		{"fourth", 0.3, []float32{0.1, 0.9, 0}},
		{"fifth", 0.65, []float32{0.7, 0.3, 0}},
	}
	for _, it := range items {
		err := repo.LongTerm().Create(ctx, &model.LongTermItem{
			ID:         model.NewItemID(),
			UserID:     userID,
			Content:    it.content,
			MemoryType: types.MemoryTypeFact,
			Importance: it.importance,
			Embedding:  it.embedding,
		})
		gt.NoError(t, err).Required()
	}

	got, err := repo.LongTerm().FindByEmbedding(ctx, userID, []float32{1, 0, 0}, 5, 0.6)
	gt.NoError(t, err).Required()
	gt.Array(t, got).Length(3).Required()

	gt.Value(t, got[0].Item.Content).Equal("first")
	gt.Value(t, got[1].Item.Content).Equal("second")
	gt.Value(t, got[2].Item.Content).Equal("fifth")
	gt.Bool(t, got[0].Distance <= got[1].Distance).True()
	gt.Bool(t, got[1].Distance <= got[2].Distance).True()
}

func runStructuredTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Run("profile Put then Get round trips", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := testUserID(t)

		profile := model.NewUserProfile(userID)
		gt.NoError(t, profile.ApplyField(model.ProfileFieldName, "Alice"))
		gt.NoError(t, profile.ApplyField(model.ProfileFieldHobby, "climbing"))
		gt.NoError(t, profile.ApplyField("preference_food", "ramen"))
		gt.NoError(t, repo.Profile().Put(ctx, profile)).Required()

		got, err := repo.Profile().Get(ctx, userID)
		gt.NoError(t, err).Required()
		gt.Value(t, *got.Name).Equal("Alice")
		gt.Value(t, got.Age).Nil()
		gt.Array(t, got.Hobbies).Length(1).Has("climbing")
		gt.Value(t, got.Preferences["food"]).Equal("ramen")
	})

	t.Run("profile Get returns not found for unknown user", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Profile().Get(ctx, testUserID(t))
		gt.Bool(t, errors.Is(err, types.ErrNotFound)).True()
	})

	t.Run("promise lifecycle", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := testUserID(t)

		due := time.Now().UTC().Add(24 * time.Hour)
		promise := model.NewPromise(userID, "remind about the dentist appointment", &due)
		gt.NoError(t, repo.Promise().Create(ctx, promise)).Required()

		pending, err := repo.Promise().ListByStatus(ctx, userID, types.PromiseStatusPending)
		gt.NoError(t, err).Required()
		gt.Array(t, pending).Length(1).Required()

		gt.NoError(t, promise.Transition(types.PromiseStatusFulfilled)).Required()
		gt.NoError(t, repo.Promise().Update(ctx, promise)).Required()

		got, err := repo.Promise().Get(ctx, userID, promise.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Status).Equal(types.PromiseStatusFulfilled)
		gt.Value(t, got.DueDate).NotNil()

		pending, err = repo.Promise().ListByStatus(ctx, userID, types.PromiseStatusPending)
		gt.NoError(t, err).Required()
		gt.Array(t, pending).Length(0)
	})

	t.Run("boundary Create then List", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := testUserID(t)

		b := model.NewBoundary(userID, "do not bring up exam results", types.BoundaryCategoryTopic, 0.9)
		gt.NoError(t, repo.Boundary().Create(ctx, b)).Required()

		got, err := repo.Boundary().List(ctx, userID)
		gt.NoError(t, err).Required()
		gt.Array(t, got).Length(1).Required()
		gt.Value(t, got[0].Category).Equal(types.BoundaryCategoryTopic)
		gt.Number(t, got[0].Severity).Equal(0.9)
	})
}

func runWeeklySummaryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Run("Latest returns most recent week", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := testUserID(t)

		now := time.Now().UTC()
		for _, weeksAgo := range []int{2, 1} {
			start := now.Add(-time.Duration(weeksAgo) * 7 * 24 * time.Hour)
			err := repo.WeeklySummary().Create(ctx, &model.WeeklySummary{
				ID:          model.NewWeeklySummaryID(),
				UserID:      userID,
				SummaryText: start.Format("week of 2006-01-02"),
				WeekStart:   start,
				WeekEnd:     start.Add(7 * 24 * time.Hour),
			})
			gt.NoError(t, err).Required()
		}

		latest, err := repo.WeeklySummary().Latest(ctx, userID)
		gt.NoError(t, err).Required()
		gt.String(t, latest.SummaryText).Contains(now.Add(-7 * 24 * time.Hour).Format("2006-01-02"))

		all, err := repo.WeeklySummary().List(ctx, userID)
		gt.NoError(t, err).Required()
		gt.Array(t, all).Length(2)
	})

	t.Run("Latest returns not found when empty", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.WeeklySummary().Latest(ctx, testUserID(t))
		gt.Bool(t, errors.Is(err, types.ErrNotFound)).True()
	})
}

func runResetUserTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	repo := newRepo(t)
	ctx := context.Background()
	userID := testUserID(t)

	gt.NoError(t, repo.State().Put(ctx, model.NewMindState(userID, nil))).Required()
	gt.NoError(t, repo.ShortTerm().Append(ctx, &model.ShortTermEntry{
		UserID:     userID,
		SessionID:  model.NewSessionID(),
		Role:       types.RoleUser,
		Content:    "hi",
		TurnNumber: 0,
	})).Required()
	gt.NoError(t, repo.LongTerm().Create(ctx, &model.LongTermItem{
		ID:         model.NewItemID(),
		UserID:     userID,
		Content:    "fact",
		MemoryType: types.MemoryTypeFact,
		Importance: 0.5,
	})).Required()

	gt.NoError(t, repo.ResetUser(ctx, userID)).Required()

	_, err := repo.State().Get(ctx, userID)
	gt.Bool(t, errors.Is(err, types.ErrNotFound)).True()

	count, err := repo.ShortTerm().Count(ctx, userID)
	gt.NoError(t, err).Required()
	gt.Value(t, count).Equal(0)

	items, err := repo.LongTerm().List(ctx, userID)
	gt.NoError(t, err).Required()
	gt.Array(t, items).Length(0)
}
