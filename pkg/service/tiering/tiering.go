// Package tiering moves memories between tiers: short-term sessions are
// summarized into mid-term, mid-term weeks are compressed into weekly
// summaries, and long-term items decay and eventually drop into the
// archive.
package tiering

import (
	"context"
	"time"

	"github.com/m-mizutani/gollem"
	"github.com/secmon-lab/mnemosyne/pkg/domain/interfaces"
	"github.com/secmon-lab/mnemosyne/pkg/domain/model"
	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
	"github.com/secmon-lab/mnemosyne/pkg/utils/logging"
)

type Engine struct {
	repo      interfaces.Repository
	llmClient gollem.LLMClient
	now       func() time.Time
}

type Option func(*Engine)

// WithNow replaces the clock, for tests
func WithNow(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates a tiering engine. The LLM client may be nil; summarization
// then falls back to a deterministic extractive form so rule-mode
// deployments keep working offline.
func New(repo interfaces.Repository, llmClient gollem.LLMClient, opts ...Option) *Engine {
	e := &Engine{
		repo:      repo,
		llmClient: llmClient,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Report summarizes one maintenance run for a user
type Report struct {
	Decayed    int
	Archived   int
	Summarized bool
}

// RunMaintenance runs the full pass in fixed order: decay first, then
// archive what fell below the floor, then compress the week.
func (e *Engine) RunMaintenance(ctx context.Context, userID types.UserID) (*Report, error) {
	report := &Report{}

	decayed, err := e.Decay(ctx, userID)
	if err != nil {
		return nil, err
	}
	report.Decayed = decayed

	archived, err := e.ArchiveLowImportance(ctx, userID, model.ArchiveThreshold)
	if err != nil {
		return nil, err
	}
	report.Archived = archived

	weekly, err := e.CreateWeeklySummary(ctx, userID)
	if err != nil {
		return nil, err
	}
	report.Summarized = weekly != nil

	logging.From(ctx).Info("maintenance completed",
		"user_id", userID,
		"decayed", report.Decayed,
		"archived", report.Archived,
		"summarized", report.Summarized)

	return report, nil
}

// Decay lowers the importance of long-term items untouched for a full
// decay window. Items already decayed within the current window are
// skipped, so running this repeatedly is safe.
func (e *Engine) Decay(ctx context.Context, userID types.UserID) (int, error) {
	items, err := e.repo.LongTerm().List(ctx, userID)
	if err != nil {
		return 0, err
	}

	now := e.now()
	decayed := 0
	for _, item := range items {
		if !item.DecayEligible(now) {
			continue
		}

		item.Decay(now)
		if err := e.repo.LongTerm().Update(ctx, item); err != nil {
			return decayed, err
		}
		decayed++
	}

	return decayed, nil
}

// ArchiveLowImportance moves items with importance at or below the
// threshold into the archive tier. The threshold is inclusive: an item
// sitting exactly on it is archived. Archived items lose their embedding
// and never resurface in retrieval or decay.
func (e *Engine) ArchiveLowImportance(ctx context.Context, userID types.UserID, threshold float64) (int, error) {
	items, err := e.repo.LongTerm().List(ctx, userID)
	if err != nil {
		return 0, err
	}

	now := e.now()
	archived := 0
	for _, item := range items {
		if item.Importance > threshold {
			continue
		}

		if err := e.repo.Archive().Put(ctx, model.NewArchivedItem(item, now)); err != nil {
			return archived, err
		}
		if err := e.repo.LongTerm().Delete(ctx, userID, item.ID); err != nil {
			return archived, err
		}
		archived++
	}

	return archived, nil
}
