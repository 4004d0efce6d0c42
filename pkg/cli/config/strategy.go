package config

import (
	"github.com/secmon-lab/mnemosyne/pkg/service/actor"
	"github.com/secmon-lab/mnemosyne/pkg/service/observer"
	"github.com/urfave/cli/v3"
)

// Strategy holds CLI flags selecting the observer and actor strategies.
type Strategy struct {
	observerMode string
	actorMode    string
}

// Flags returns CLI flags for strategy configuration
func (s *Strategy) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "observer-mode",
			Usage:       "State observation strategy (rule or llm)",
			Value:       "rule",
			Sources:     cli.EnvVars("MNEMOSYNE_OBSERVER_MODE"),
			Destination: &s.observerMode,
		},
		&cli.StringFlag{
			Name:        "actor-mode",
			Usage:       "Reply generation strategy (rule or llm)",
			Value:       "rule",
			Sources:     cli.EnvVars("MNEMOSYNE_ACTOR_MODE"),
			Destination: &s.actorMode,
		},
	}
}

// ObserverMode returns the configured observer mode
func (s *Strategy) ObserverMode() observer.Mode {
	return observer.Mode(s.observerMode)
}

// ActorMode returns the configured actor mode
func (s *Strategy) ActorMode() actor.Mode {
	return actor.Mode(s.actorMode)
}
