package model_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/mnemosyne/pkg/domain/model"
	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
)

func TestUserProfileApplyField(t *testing.T) {
	t.Run("scalar fields overwrite", func(t *testing.T) {
		p := model.NewUserProfile(types.UserID("u1"))
		gt.NoError(t, p.ApplyField(model.ProfileFieldName, "Alice"))
		gt.NoError(t, p.ApplyField(model.ProfileFieldName, "Alicia"))
		gt.Value(t, p.Name).NotNil()
		gt.Value(t, *p.Name).Equal("Alicia")
	})

	t.Run("age parses and caps", func(t *testing.T) {
		p := model.NewUserProfile(types.UserID("u1"))
		gt.NoError(t, p.ApplyField(model.ProfileFieldAge, "29"))
		gt.Value(t, *p.Age).Equal(29)
		gt.Error(t, p.ApplyField(model.ProfileFieldAge, "banana"))
		gt.Error(t, p.ApplyField(model.ProfileFieldAge, "900"))
	})

	t.Run("hobbies append as a set", func(t *testing.T) {
		p := model.NewUserProfile(types.UserID("u1"))
		gt.NoError(t, p.ApplyField(model.ProfileFieldHobby, "climbing"))
		gt.NoError(t, p.ApplyField(model.ProfileFieldHobby, "piano"))
		gt.NoError(t, p.ApplyField(model.ProfileFieldHobby, "climbing"))
		gt.Array(t, p.Hobbies).Length(2).Has("climbing").Has("piano")
	})

	t.Run("preference categories upsert", func(t *testing.T) {
		p := model.NewUserProfile(types.UserID("u1"))
		gt.NoError(t, p.ApplyField("preference_food", "ramen"))
		gt.NoError(t, p.ApplyField("preference_food", "sushi"))
		gt.NoError(t, p.ApplyField("preference_music", "jazz"))
		gt.Value(t, p.Preferences["food"]).Equal("sushi")
		gt.Value(t, p.Preferences["music"]).Equal("jazz")
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		p := model.NewUserProfile(types.UserID("u1"))
		gt.Error(t, p.ApplyField("shoe_size", "42"))
	})
}

func TestUserProfileClone(t *testing.T) {
	p := model.NewUserProfile(types.UserID("u1"))
	gt.NoError(t, p.ApplyField(model.ProfileFieldName, "Alice"))
	gt.NoError(t, p.ApplyField(model.ProfileFieldHobby, "climbing"))
	gt.NoError(t, p.ApplyField("preference_food", "ramen"))

	copied := p.Clone()
	*copied.Name = "Mallory"
	copied.Hobbies[0] = "arson"
	copied.Preferences["food"] = "nothing"

	gt.Value(t, *p.Name).Equal("Alice")
	gt.Value(t, p.Hobbies[0]).Equal("climbing")
	gt.Value(t, p.Preferences["food"]).Equal("ramen")
}

func TestPromiseTransition(t *testing.T) {
	p := model.NewPromise(types.UserID("u1"), "call back tomorrow", nil)
	gt.Value(t, p.Status).Equal(types.PromiseStatusPending)

	t.Run("pending to fulfilled", func(t *testing.T) {
		copied := *p
		gt.NoError(t, copied.Transition(types.PromiseStatusFulfilled))
		gt.Value(t, copied.Status).Equal(types.PromiseStatusFulfilled)
	})

	t.Run("terminal states are frozen", func(t *testing.T) {
		copied := *p
		gt.NoError(t, copied.Transition(types.PromiseStatusBroken))
		gt.Error(t, copied.Transition(types.PromiseStatusPending))
		gt.Error(t, copied.Transition(types.PromiseStatusFulfilled))
		gt.Value(t, copied.Status).Equal(types.PromiseStatusBroken)
	})
}

func TestNewBoundary(t *testing.T) {
	b := model.NewBoundary(types.UserID("u1"), "no calls after 22:00", types.BoundaryCategoryTime, 1.7)
	gt.Number(t, b.Severity).Equal(1)

	b2 := model.NewBoundary(types.UserID("u1"), "politics", types.BoundaryCategoryTopic, 0.8)
	gt.Number(t, b2.Severity).Equal(0.8)
}
