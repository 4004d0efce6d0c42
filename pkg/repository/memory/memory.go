package memory

import (
	"context"

	"github.com/secmon-lab/mnemosyne/pkg/domain/interfaces"
	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
)

// Repository is an alias for Memory to match the pattern
type Repository = Memory

// Memory is an in-memory implementation of interfaces.Repository. It is
// used for tests and for running without a Firestore project.
type Memory struct {
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

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		state:     newStateRepository(),
		shortTerm: newShortTermRepository(),
		midTerm:   newMidTermRepository(),
		longTerm:  newLongTermRepository(),
		archive:   newArchiveRepository(),
		profile:   newProfileRepository(),
		promise:   newPromiseRepository(),
		boundary:  newBoundaryRepository(),
		weekly:    newWeeklySummaryRepository(),
	}
}

func (m *Memory) State() interfaces.StateRepository {
	return m.state
}

func (m *Memory) ShortTerm() interfaces.ShortTermRepository {
	return m.shortTerm
}

func (m *Memory) MidTerm() interfaces.MidTermRepository {
	return m.midTerm
}

func (m *Memory) LongTerm() interfaces.LongTermRepository {
	return m.longTerm
}

func (m *Memory) Archive() interfaces.ArchiveRepository {
	return m.archive
}

func (m *Memory) Profile() interfaces.ProfileRepository {
	return m.profile
}

func (m *Memory) Promise() interfaces.PromiseRepository {
	return m.promise
}

func (m *Memory) Boundary() interfaces.BoundaryRepository {
	return m.boundary
}

func (m *Memory) WeeklySummary() interfaces.WeeklySummaryRepository {
	return m.weekly
}

func (m *Memory) ListUserIDs(ctx context.Context) ([]types.UserID, error) {
	seen := make(map[types.UserID]struct{})
	m.state.eachUser(func(id types.UserID) { seen[id] = struct{}{} })
	m.shortTerm.eachUser(func(id types.UserID) { seen[id] = struct{}{} })
	m.longTerm.eachUser(func(id types.UserID) { seen[id] = struct{}{} })

	ids := make([]types.UserID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *Memory) ResetUser(ctx context.Context, userID types.UserID) error {
	m.state.reset(userID)
	m.shortTerm.reset(userID)
	m.midTerm.reset(userID)
	m.longTerm.reset(userID)
	m.archive.reset(userID)
	m.profile.reset(userID)
	m.promise.reset(userID)
	m.boundary.reset(userID)
	m.weekly.reset(userID)
	return nil
}

func (m *Memory) Close() error {
	return nil
}
