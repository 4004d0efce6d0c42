package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/mnemosyne/pkg/cli/config"
	"github.com/secmon-lab/mnemosyne/pkg/service/actor"
	"github.com/secmon-lab/mnemosyne/pkg/service/observer"
)

func TestGemini_Configure(t *testing.T) {
	t.Run("returns nil client when project ID is empty", func(t *testing.T) {
		cfg := config.NewGeminiForTest("", "us-central1")
		client, err := cfg.Configure(t.Context())
		gt.NoError(t, err)
		gt.Value(t, client).Nil()
	})

	t.Run("returns flags", func(t *testing.T) {
		cfg := config.NewGeminiForTest("", "")
		flags := cfg.Flags()
		gt.Value(t, len(flags)).Equal(2)
	})
}

func TestRepository_Configure(t *testing.T) {
	t.Run("memory backend needs no project", func(t *testing.T) {
		cfg := config.NewRepositoryForTest("memory", "", "")
		repo, err := cfg.Configure(t.Context())
		gt.NoError(t, err)
		gt.Value(t, repo).NotNil()
	})

	t.Run("firestore backend requires project ID", func(t *testing.T) {
		cfg := config.NewRepositoryForTest("firestore", "", "")
		_, err := cfg.Configure(t.Context())
		gt.Error(t, err)
	})

	t.Run("rejects unknown backend", func(t *testing.T) {
		cfg := config.NewRepositoryForTest("postgres", "", "")
		_, err := cfg.Configure(t.Context())
		gt.Error(t, err)
	})
}

func TestPersona_Configure(t *testing.T) {
	t.Run("returns built-in persona without a path", func(t *testing.T) {
		cfg := config.NewPersonaForTest("")
		persona, err := cfg.Configure()
		gt.NoError(t, err)
		gt.Value(t, persona).NotNil()
		gt.String(t, persona.Name).NotEqual("")
	})

	t.Run("loads persona from TOML file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "persona.toml")
		data := `
name = "Iris"
description = "A reserved librarian who warms up slowly."
style = "polite, a little dry"

[[phases]]
id = "intro"
scene = "the front desk of a quiet library"

[[phases]]
id = "familiar"
scene = "the reading room after closing"
trust_threshold = 50.0
`
		gt.NoError(t, os.WriteFile(path, []byte(data), 0600))

		cfg := config.NewPersonaForTest(path)
		persona, err := cfg.Configure()
		gt.NoError(t, err)
		gt.String(t, persona.Name).Equal("Iris")
		gt.Array(t, persona.Phases).Length(2)
		gt.Number(t, persona.Phases[1].TrustThreshold).Equal(50.0)
	})

	t.Run("rejects persona without a name", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "persona.toml")
		gt.NoError(t, os.WriteFile(path, []byte(`description = "nameless"`), 0600))

		cfg := config.NewPersonaForTest(path)
		_, err := cfg.Configure()
		gt.Error(t, err)
	})

	t.Run("fails on missing file", func(t *testing.T) {
		cfg := config.NewPersonaForTest(filepath.Join(t.TempDir(), "no-such.toml"))
		_, err := cfg.Configure()
		gt.Error(t, err)
	})
}

func TestStrategy_Modes(t *testing.T) {
	cfg := config.NewStrategyForTest("rule", "llm")
	gt.Value(t, cfg.ObserverMode()).Equal(observer.ModeRule)
	gt.Value(t, cfg.ActorMode()).Equal(actor.ModeLLM)
}
