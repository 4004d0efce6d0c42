package types_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
)

func TestPromiseStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    types.PromiseStatus
		to      types.PromiseStatus
		allowed bool
	}{
		{"pending to fulfilled", types.PromiseStatusPending, types.PromiseStatusFulfilled, true},
		{"pending to broken", types.PromiseStatusPending, types.PromiseStatusBroken, true},
		{"fulfilled back to pending", types.PromiseStatusFulfilled, types.PromiseStatusPending, false},
		{"broken back to pending", types.PromiseStatusBroken, types.PromiseStatusPending, false},
		{"fulfilled to broken", types.PromiseStatusFulfilled, types.PromiseStatusBroken, false},
		{"pending to pending", types.PromiseStatusPending, types.PromiseStatusPending, false},
		{"invalid source", types.PromiseStatus("unknown"), types.PromiseStatusFulfilled, false},
		{"invalid target", types.PromiseStatusPending, types.PromiseStatus("unknown"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt.Value(t, tt.from.CanTransitionTo(tt.to)).Equal(tt.allowed)
		})
	}
}

func TestParsePromiseStatus(t *testing.T) {
	status, err := types.ParsePromiseStatus("fulfilled")
	gt.NoError(t, err)
	gt.Value(t, status).Equal(types.PromiseStatusFulfilled)

	_, err = types.ParsePromiseStatus("done")
	gt.Error(t, err)
}

func TestMemoryTypeIsValid(t *testing.T) {
	for _, mt := range types.AllMemoryTypes() {
		gt.Bool(t, mt.IsValid()).True()
	}
	gt.Bool(t, types.MemoryType("dream").IsValid()).False()
}

func TestBoundaryCategory(t *testing.T) {
	cat, err := types.ParseBoundaryCategory("topic")
	gt.NoError(t, err)
	gt.Value(t, cat).Equal(types.BoundaryCategoryTopic)

	_, err = types.ParseBoundaryCategory("mood")
	gt.Error(t, err)
}

func TestRoleIsValid(t *testing.T) {
	gt.Bool(t, types.RoleUser.IsValid()).True()
	gt.Bool(t, types.RoleAssistant.IsValid()).True()
	gt.Bool(t, types.Role("system").IsValid()).False()
}
