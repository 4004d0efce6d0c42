package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/mnemosyne/pkg/cli/config"
	httpctrl "github.com/secmon-lab/mnemosyne/pkg/controller/http"
	"github.com/secmon-lab/mnemosyne/pkg/service/worker"
	"github.com/secmon-lab/mnemosyne/pkg/usecase"
	"github.com/secmon-lab/mnemosyne/pkg/utils/logging"
	"github.com/secmon-lab/mnemosyne/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var addr string
	var maintenanceSchedule string
	var sweepParallelism int
	var repoCfg config.Repository
	var geminiCfg config.Gemini
	var personaCfg config.Persona
	var strategyCfg config.Strategy

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("MNEMOSYNE_ADDR"),
			Destination: &addr,
		},
		&cli.StringFlag{
			Name:        "maintenance-schedule",
			Usage:       "Cron schedule for the memory maintenance sweep (empty disables it)",
			Value:       "0 3 * * *",
			Sources:     cli.EnvVars("MNEMOSYNE_MAINTENANCE_SCHEDULE"),
			Destination: &maintenanceSchedule,
		},
		&cli.IntFlag{
			Name:        "sweep-parallelism",
			Usage:       "Number of users swept concurrently during maintenance",
			Value:       4,
			Sources:     cli.EnvVars("MNEMOSYNE_SWEEP_PARALLELISM"),
			Destination: &sweepParallelism,
		},
	}
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, geminiCfg.Flags()...)
	flags = append(flags, personaCfg.Flags()...)
	flags = append(flags, strategyCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
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
			if llmClient == nil {
				logging.Default().Info("Gemini not configured, running with rule strategies only")
			}

			persona, err := personaCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load persona")
			}

			uc, err := usecase.New(repo,
				usecase.WithLLMClient(llmClient),
				usecase.WithPersona(persona),
				usecase.WithObserverMode(strategyCfg.ObserverMode()),
				usecase.WithActorMode(strategyCfg.ActorMode()),
				usecase.WithSweepParallelism(sweepParallelism),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize use cases")
			}

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var maintenanceWorker *worker.MaintenanceWorker
			if maintenanceSchedule != "" {
				maintenanceWorker = worker.NewMaintenanceWorker(maintenanceSchedule, uc.RunMaintenanceAll)
				if err := maintenanceWorker.Start(ctx); err != nil {
					return goerr.Wrap(err, "failed to start maintenance worker")
				}
				defer maintenanceWorker.Stop()
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				return goerr.Wrap(err, "HTTP server failed")
			case <-ctx.Done():
			}

			logging.Default().Info("Shutting down HTTP server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shut down HTTP server")
			}

			return nil
		},
	}
}
