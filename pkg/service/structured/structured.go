package structured

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/mnemosyne/pkg/domain/interfaces"
	"github.com/secmon-lab/mnemosyne/pkg/domain/model"
	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
)

// Service manages the exact-recall memories: the user profile, promises,
// and boundaries. Everything here is structured data, no embeddings or
// similarity involved.
type Service struct {
	repo interfaces.Repository
}

func New(repo interfaces.Repository) *Service {
	return &Service{repo: repo}
}

// SaveProfileField upserts one profile field, creating the profile on
// first write. Other fields are left untouched.
func (s *Service) SaveProfileField(ctx context.Context, userID types.UserID, field, value string) error {
	profile, err := s.repo.Profile().Get(ctx, userID)
	if err != nil {
		if !isNotFound(err) {
			return err
		}
		profile = model.NewUserProfile(userID)
	}

	if err := profile.ApplyField(field, value); err != nil {
		return err
	}

	return s.repo.Profile().Put(ctx, profile)
}

// GetProfile returns the stored profile, or an empty one when nothing has
// been recorded yet.
func (s *Service) GetProfile(ctx context.Context, userID types.UserID) (*model.UserProfile, error) {
	profile, err := s.repo.Profile().Get(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return model.NewUserProfile(userID), nil
		}
		return nil, err
	}
	return profile, nil
}

// SavePromise records a new pending promise
func (s *Service) SavePromise(ctx context.Context, userID types.UserID, content string, dueDate *time.Time) (*model.Promise, error) {
	promise := model.NewPromise(userID, content, dueDate)
	if err := s.repo.Promise().Create(ctx, promise); err != nil {
		return nil, err
	}
	return promise, nil
}

// UpdatePromiseStatus transitions a promise through its status table.
// Disallowed transitions fail with ErrValidation and leave the stored
// promise untouched.
func (s *Service) UpdatePromiseStatus(ctx context.Context, userID types.UserID, id model.PromiseID, next types.PromiseStatus) (*model.Promise, error) {
	promise, err := s.repo.Promise().Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if err := promise.Transition(next); err != nil {
		return nil, err
	}

	if err := s.repo.Promise().Update(ctx, promise); err != nil {
		return nil, err
	}
	return promise, nil
}

// GetPromises lists promises, optionally filtered by status
func (s *Service) GetPromises(ctx context.Context, userID types.UserID, status *types.PromiseStatus) ([]*model.Promise, error) {
	if status == nil {
		return s.repo.Promise().List(ctx, userID)
	}
	return s.repo.Promise().ListByStatus(ctx, userID, *status)
}

// SaveBoundary records a new boundary. A zero severity falls back to the
// default.
func (s *Service) SaveBoundary(ctx context.Context, userID types.UserID, content string, category types.BoundaryCategory, severity float64) (*model.Boundary, error) {
	if !category.IsValid() {
		return nil, goerr.Wrap(types.ErrValidation, "invalid boundary category", goerr.V("category", category))
	}
	if severity == 0 {
		severity = model.DefaultBoundarySeverity
	}

	boundary := model.NewBoundary(userID, content, category, severity)
	if err := s.repo.Boundary().Create(ctx, boundary); err != nil {
		return nil, err
	}
	return boundary, nil
}

// GetBoundaries lists all boundaries for a user
func (s *Service) GetBoundaries(ctx context.Context, userID types.UserID) ([]*model.Boundary, error) {
	return s.repo.Boundary().List(ctx, userID)
}

// CheckBoundary reports whether the text touches a stored boundary. A
// boundary matches when the message carries all of its significant words,
// so "no talk about ex" still catches "let's talk about my ex". When
// several match, the highest severity wins. Returns nil when nothing
// matches.
func (s *Service) CheckBoundary(ctx context.Context, userID types.UserID, text string) (*model.Boundary, error) {
	boundaries, err := s.repo.Boundary().List(ctx, userID)
	if err != nil {
		return nil, err
	}

	folded := strings.ToLower(text)
	textTokens := tokenSet(folded)

	var matched *model.Boundary
	for _, b := range boundaries {
		if !boundaryMatches(b, folded, textTokens) {
			continue
		}
		if matched == nil || b.Severity > matched.Severity {
			matched = b
		}
	}

	return matched, nil
}

// boundaryStopWords are the function and framing words stripped before
// matching. Boundaries are phrased as requests ("please don't talk
// about ..."), so the framing verbs carry no topic signal either.
var boundaryStopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "my": {}, "your": {}, "his": {}, "her": {},
	"their": {}, "our": {}, "me": {}, "i": {}, "you": {}, "we": {}, "it": {},
	"is": {}, "are": {}, "was": {}, "be": {}, "and": {}, "or": {}, "but": {},
	"no": {}, "not": {}, "do": {}, "don": {}, "dont": {}, "t": {}, "s": {},
	"please": {}, "never": {}, "ever": {}, "stop": {},
	"about": {}, "of": {}, "to": {}, "on": {}, "in": {}, "at": {},
	"with": {}, "for": {}, "up": {},
	"talk": {}, "talking": {}, "mention": {}, "mentioning": {},
	"bring": {}, "bringing": {}, "discuss": {}, "discussing": {},
	"ask": {}, "asking": {}, "say": {}, "saying": {},
	"speak": {}, "speaking": {},
}

func tokenSet(folded string) map[string]struct{} {
	tokens := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
	}
	return set
}

func significantTokens(folded string) []string {
	var tokens []string
	for tok := range tokenSet(folded) {
		if _, stop := boundaryStopWords[tok]; !stop {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

func boundaryMatches(b *model.Boundary, folded string, textTokens map[string]struct{}) bool {
	content := strings.ToLower(b.Content)
	if content == "" {
		return false
	}

	significant := significantTokens(content)
	if len(significant) == 0 {
		// A boundary made of nothing but framing words can only match
		// as a literal phrase.
		return strings.Contains(folded, content)
	}

	for _, tok := range significant {
		if _, ok := textTokens[tok]; !ok {
			return false
		}
	}
	return true
}

func isNotFound(err error) bool {
	return errors.Is(err, types.ErrNotFound)
}
