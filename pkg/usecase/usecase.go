package usecase

import (
	"sync"

	"github.com/m-mizutani/gollem"
	"github.com/secmon-lab/mnemosyne/pkg/domain/interfaces"
	"github.com/secmon-lab/mnemosyne/pkg/domain/model"
	"github.com/secmon-lab/mnemosyne/pkg/service/actor"
	"github.com/secmon-lab/mnemosyne/pkg/service/observer"
	"github.com/secmon-lab/mnemosyne/pkg/service/structured"
	"github.com/secmon-lab/mnemosyne/pkg/service/tiering"
)

// UseCases wires the repositories and services behind the public
// operations: turn processing, state inspection, reset and the
// maintenance sweep.
type UseCases struct {
	repo       interfaces.Repository
	llmClient  gollem.LLMClient
	persona    *model.Persona
	observer   observer.Observer
	actor      actor.Actor
	structured *structured.Service
	tiering    *tiering.Engine

	observerMode observer.Mode
	actorMode    actor.Mode

	// userLocks serializes turns and maintenance per user. Distinct
	// users proceed in parallel.
	userLocks sync.Map

	sweepParallelism int
}

type Option func(*UseCases)

// WithLLMClient provides the model client used for observation, reply
// generation and embeddings. Without it both modes must be "rule".
func WithLLMClient(client gollem.LLMClient) Option {
	return func(uc *UseCases) {
		uc.llmClient = client
	}
}

// WithPersona overrides the default persona.
func WithPersona(persona *model.Persona) Option {
	return func(uc *UseCases) {
		uc.persona = persona
	}
}

// WithObserverMode selects the observation strategy (rule or llm).
func WithObserverMode(mode observer.Mode) Option {
	return func(uc *UseCases) {
		uc.observerMode = mode
	}
}

// WithActorMode selects the reply strategy (rule or llm).
func WithActorMode(mode actor.Mode) Option {
	return func(uc *UseCases) {
		uc.actorMode = mode
	}
}

// WithSweepParallelism bounds how many users the maintenance sweep
// processes concurrently.
func WithSweepParallelism(n int) Option {
	return func(uc *UseCases) {
		uc.sweepParallelism = n
	}
}

// New creates the use case layer. Strategy construction fails with
// ErrConfiguration when an llm mode is requested without a client.
func New(repo interfaces.Repository, opts ...Option) (*UseCases, error) {
	uc := &UseCases{
		repo:             repo,
		persona:          model.DefaultPersona(),
		observerMode:     observer.ModeRule,
		actorMode:        actor.ModeRule,
		sweepParallelism: 4,
	}

	for _, opt := range opts {
		opt(uc)
	}

	obs, err := observer.New(uc.observerMode, uc.llmClient, uc.persona)
	if err != nil {
		return nil, err
	}
	uc.observer = obs

	act, err := actor.New(uc.actorMode, uc.llmClient, uc.persona)
	if err != nil {
		return nil, err
	}
	uc.actor = act

	uc.structured = structured.New(repo)
	uc.tiering = tiering.New(repo, uc.llmClient)

	return uc, nil
}

// lockUser acquires the per-user mutex and returns its release func.
func (uc *UseCases) lockUser(key string) func() {
	v, _ := uc.userLocks.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Structured exposes the structured memory operations for callers that
// manage profile fields, promises and boundaries directly.
func (uc *UseCases) Structured() *structured.Service {
	return uc.structured
}
