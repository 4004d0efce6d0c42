package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/mnemosyne/pkg/cli/config"
	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
	"github.com/secmon-lab/mnemosyne/pkg/usecase"
	"github.com/secmon-lab/mnemosyne/pkg/utils/logging"
	"github.com/secmon-lab/mnemosyne/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func cmdMaintain() *cli.Command {
	var userID string
	var sweepParallelism int
	var repoCfg config.Repository
	var geminiCfg config.Gemini

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "user",
			Usage:       "Sweep a single user instead of every known user",
			Destination: &userID,
		},
		&cli.IntFlag{
			Name:        "sweep-parallelism",
			Usage:       "Number of users swept concurrently",
			Value:       4,
			Sources:     cli.EnvVars("MNEMOSYNE_SWEEP_PARALLELISM"),
			Destination: &sweepParallelism,
		},
	}
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, geminiCfg.Flags()...)

	return &cli.Command{
		Name:  "maintain",
		Usage: "Run one memory maintenance sweep (decay, archive, weekly summary)",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer safe.Close(ctx, repo)

			llmClient, err := geminiCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to configure Gemini client")
			}

			uc, err := usecase.New(repo,
				usecase.WithLLMClient(llmClient),
				usecase.WithSweepParallelism(sweepParallelism),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize use cases")
			}

			if userID != "" {
				report, err := uc.RunMaintenance(ctx, types.UserID(userID))
				if err != nil {
					return goerr.Wrap(err, "maintenance failed", goerr.V("userID", userID))
				}
				logging.Default().Info("maintenance completed",
					"user_id", userID,
					"decayed", report.Decayed,
					"archived", report.Archived,
					"summarized", report.Summarized)
				return nil
			}

			return uc.RunMaintenanceAll(ctx)
		},
	}
}
