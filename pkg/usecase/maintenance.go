package usecase

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/mnemosyne/pkg/domain/model"
	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
	"github.com/secmon-lab/mnemosyne/pkg/service/tiering"
	"github.com/secmon-lab/mnemosyne/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

// GetState returns the current mind state for a user. A user that has
// never been seen gets a fresh state, not an error.
func (uc *UseCases) GetState(ctx context.Context, userID types.UserID) (*model.MindState, error) {
	state, err := uc.repo.State().Get(ctx, userID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return model.NewMindState(userID, uc.persona), nil
		}
		return nil, goerr.Wrap(err, "failed to load mind state", goerr.V("userID", userID))
	}
	return state, nil
}

// Reset deletes everything held for one user. Irreversible.
func (uc *UseCases) Reset(ctx context.Context, userID types.UserID) error {
	unlock := uc.lockUser(string(userID))
	defer unlock()

	if err := uc.repo.ResetUser(ctx, userID); err != nil {
		return goerr.Wrap(err, "failed to reset user", goerr.V("userID", userID))
	}
	logging.From(ctx).Info("user reset", "user_id", userID)
	return nil
}

// RunMaintenance runs one tiering sweep for a single user, serialized
// against that user's turns.
func (uc *UseCases) RunMaintenance(ctx context.Context, userID types.UserID) (*tiering.Report, error) {
	unlock := uc.lockUser(string(userID))
	defer unlock()

	return uc.tiering.RunMaintenance(ctx, userID)
}

// RunMaintenanceAll sweeps every known user with bounded parallelism.
// One user's failure is logged and skipped, the rest still run.
func (uc *UseCases) RunMaintenanceAll(ctx context.Context) error {
	userIDs, err := uc.repo.ListUserIDs(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to list users for maintenance")
	}

	logger := logging.From(ctx)

	var eg errgroup.Group
	eg.SetLimit(uc.sweepParallelism)

	for _, userID := range userIDs {
		eg.Go(func() error {
			report, err := uc.RunMaintenance(ctx, userID)
			if err != nil {
				logger.Error("maintenance failed for user",
					"user_id", userID,
					"error", err.Error())
				return nil
			}
			logger.Info("maintenance completed for user",
				"user_id", userID,
				"decayed", report.Decayed,
				"archived", report.Archived,
				"summarized", report.Summarized)
			return nil
		})
	}

	return eg.Wait()
}
