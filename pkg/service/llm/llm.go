// Package llm wraps gollem calls with bounded retry. External provider
// hiccups are retried a few times with exponential backoff, then surface
// as ErrTransientProvider so the caller can fail the turn cleanly.
package llm

import (
	"context"
	"encoding/json"

	"github.com/cenkalti/backoff/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/secmon-lab/mnemosyne/pkg/domain/model"
	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
)

const maxTries = 3

// Generate runs one prompt through a fresh session and returns the first
// text of the response.
func Generate(ctx context.Context, client gollem.LLMClient, prompt string, opts ...gollem.SessionOption) (string, error) {
	if client == nil {
		return "", goerr.Wrap(types.ErrConfiguration, "LLM client is not configured")
	}

	text, err := backoff.Retry(ctx, func() (string, error) {
		session, err := client.NewSession(ctx, opts...)
		if err != nil {
			return "", err
		}

		resp, err := session.Generate(ctx, []gollem.Input{gollem.Text(prompt)})
		if err != nil {
			return "", err
		}
		if len(resp.Texts) == 0 {
			return "", goerr.New("empty LLM response")
		}
		return resp.Texts[0], nil
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(maxTries))
	if err != nil {
		return "", goerr.Wrap(types.ErrTransientProvider, "LLM generation failed", goerr.V("cause", err.Error()))
	}

	return text, nil
}

// GenerateJSON runs one prompt through a JSON session constrained by the
// given schema and unmarshals the response into out. A response that does
// not parse is a validation error, not a transient one: retrying the same
// malformed shape rarely helps and the caller must not coerce it.
func GenerateJSON(ctx context.Context, client gollem.LLMClient, systemPrompt, prompt string, schema *gollem.Parameter, out any) error {
	text, err := Generate(ctx, client, prompt,
		gollem.WithSessionContentType(gollem.ContentTypeJSON),
		gollem.WithSessionResponseSchema(schema),
		gollem.WithSessionSystemPrompt(systemPrompt),
	)
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(text), out); err != nil {
		return goerr.Wrap(types.ErrValidation, "failed to parse LLM response", goerr.V("response", text))
	}

	return nil
}

// Embed generates one embedding vector for the given text
func Embed(ctx context.Context, client gollem.LLMClient, text string) ([]float32, error) {
	if client == nil {
		return nil, goerr.Wrap(types.ErrConfiguration, "LLM client is not configured")
	}

	embedding, err := backoff.Retry(ctx, func() ([]float32, error) {
		embeddings, err := client.GenerateEmbedding(ctx, model.EmbeddingDimension, []string{text})
		if err != nil {
			return nil, err
		}
		if len(embeddings) == 0 {
			return nil, goerr.New("no embedding returned")
		}

		result := make([]float32, len(embeddings[0]))
		for i, v := range embeddings[0] {
			result[i] = float32(v)
		}
		return result, nil
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(maxTries))
	if err != nil {
		return nil, goerr.Wrap(types.ErrTransientProvider, "embedding generation failed", goerr.V("cause", err.Error()))
	}

	return embedding, nil
}
