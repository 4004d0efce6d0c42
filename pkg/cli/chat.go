package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/mnemosyne/pkg/cli/config"
	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
	"github.com/secmon-lab/mnemosyne/pkg/usecase"
	"github.com/secmon-lab/mnemosyne/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func cmdChat() *cli.Command {
	var userID string
	var showState bool
	var repoCfg config.Repository
	var geminiCfg config.Gemini
	var personaCfg config.Persona
	var strategyCfg config.Strategy

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "user",
			Usage:       "User ID for the conversation",
			Value:       "local",
			Sources:     cli.EnvVars("MNEMOSYNE_USER"),
			Destination: &userID,
		},
		&cli.BoolFlag{
			Name:        "show-state",
			Usage:       "Print the mind state after every turn",
			Destination: &showState,
		},
	}
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, geminiCfg.Flags()...)
	flags = append(flags, personaCfg.Flags()...)
	flags = append(flags, strategyCfg.Flags()...)

	return &cli.Command{
		Name:    "chat",
		Aliases: []string{"c"},
		Usage:   "Interactive conversation on the terminal",
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

			persona, err := personaCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load persona")
			}

			uc, err := usecase.New(repo,
				usecase.WithLLMClient(llmClient),
				usecase.WithPersona(persona),
				usecase.WithObserverMode(strategyCfg.ObserverMode()),
				usecase.WithActorMode(strategyCfg.ActorMode()),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize use cases")
			}

			return runREPL(ctx, uc, types.UserID(userID), persona.Name, showState)
		},
	}
}

func runREPL(ctx context.Context, uc *usecase.UseCases, userID types.UserID, personaName string, showState bool) error {
	prompt := color.New(color.FgCyan, color.Bold)
	reply := color.New(color.FgGreen)
	meta := color.New(color.FgHiBlack)

	fmt.Printf("Chatting with %s as %s. Type /quit to exit, /state to inspect, /reset to start over.\n",
		personaName, userID)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		prompt.Print("you> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "/quit", "/exit":
			return nil

		case "/state":
			state, err := uc.GetState(ctx, userID)
			if err != nil {
				color.Red("error: %v", err)
				continue
			}
			meta.Printf("mood=%.1f energy=%.1f affection=%.1f trust=%.1f phase=%s scene=%s\n",
				state.Biometrics.Mood,
				state.Biometrics.Energy,
				state.Biometrics.Affection,
				state.Biometrics.Trust,
				state.Scenario.Phase,
				state.Scenario.Scene)
			continue

		case "/reset":
			if err := uc.Reset(ctx, userID); err != nil {
				color.Red("error: %v", err)
				continue
			}
			meta.Println("memory cleared")
			continue
		}

		result, err := uc.ProcessTurn(ctx, userID, line)
		if err != nil {
			color.Red("error: %v", err)
			continue
		}

		reply.Printf("%s> %s\n", personaName, result.Reply)
		if showState {
			meta.Printf("  mood=%.1f energy=%.1f affection=%.1f trust=%.1f\n",
				result.State.Biometrics.Mood,
				result.State.Biometrics.Energy,
				result.State.Biometrics.Affection,
				result.State.Biometrics.Trust)
		}
	}

	if err := scanner.Err(); err != nil {
		return goerr.Wrap(err, "failed to read input")
	}
	return nil
}
