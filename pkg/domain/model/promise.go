package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
)

// PromiseID is a UUID-based identifier for Promise
type PromiseID string

// NewPromiseID generates a new UUID v4 PromiseID
func NewPromiseID() PromiseID {
	return PromiseID(uuid.New().String())
}

// Promise is a tracked commitment the agent made to (or with) the user.
// Status is monotonic: pending may only become fulfilled or broken.
type Promise struct {
	ID        PromiseID
	UserID    types.UserID
	Content   string
	CreatedAt time.Time
	DueDate   *time.Time
	Status    types.PromiseStatus
}

// NewPromise returns a pending promise
func NewPromise(userID types.UserID, content string, dueDate *time.Time) *Promise {
	return &Promise{
		ID:        NewPromiseID(),
		UserID:    userID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
		DueDate:   dueDate,
		Status:    types.PromiseStatusPending,
	}
}

// Transition moves the promise to the next status, enforcing the
// transition table. Any disallowed transition is a validation error.
func (p *Promise) Transition(next types.PromiseStatus) error {
	if !p.Status.CanTransitionTo(next) {
		return goerr.Wrap(types.ErrValidation, "promise status transition not allowed",
			goerr.V("promise_id", p.ID),
			goerr.V("from", p.Status),
			goerr.V("to", next))
	}
	p.Status = next
	return nil
}
