package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/mnemosyne/pkg/domain/model"
	"github.com/urfave/cli/v3"
)

// Persona holds the CLI flag for loading a persona definition from TOML.
type Persona struct {
	path string
}

// Flags returns CLI flags for persona configuration
func (p *Persona) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "persona",
			Usage:       "Path to a persona TOML file (built-in default when omitted)",
			Sources:     cli.EnvVars("MNEMOSYNE_PERSONA"),
			Destination: &p.path,
		},
	}
}

// Configure loads and validates the persona. Without a path the built-in
// default persona is returned.
func (p *Persona) Configure() (*model.Persona, error) {
	if p.path == "" {
		return model.DefaultPersona(), nil
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read persona file", goerr.V("path", p.path))
	}

	var persona model.Persona
	if err := toml.Unmarshal(data, &persona); err != nil {
		return nil, goerr.Wrap(err, "failed to parse persona file", goerr.V("path", p.path))
	}
	if err := persona.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid persona", goerr.V("path", p.path))
	}

	return &persona, nil
}
