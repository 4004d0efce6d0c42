package actor_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/mnemosyne/pkg/domain/model"
	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
	"github.com/secmon-lab/mnemosyne/pkg/service/actor"
)

type mockLLMSession struct {
	generateFn func(ctx context.Context, input []gollem.Input) (*gollem.Response, error)
}

func (s *mockLLMSession) Generate(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (*gollem.Response, error) {
	return s.generateFn(ctx, input)
}

func (s *mockLLMSession) Stream(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (<-chan *gollem.Response, error) {
	return nil, nil
}

func (s *mockLLMSession) GenerateContent(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
	return s.Generate(ctx, input)
}

func (s *mockLLMSession) GenerateStream(ctx context.Context, input ...gollem.Input) (<-chan *gollem.Response, error) {
	return s.Stream(ctx, input)
}

func (s *mockLLMSession) History() (*gollem.History, error) {
	return nil, nil
}

func (s *mockLLMSession) AppendHistory(*gollem.History) error {
	return nil
}

func (s *mockLLMSession) CountToken(ctx context.Context, input ...gollem.Input) (int, error) {
	return 0, nil
}

// mockLLMClient serves plain sessions from drafts and JSON sessions from
// verdicts, so one client can stand in for both the reply model and its
// reviewer. Prompts sent to plain sessions are recorded.
type mockLLMClient struct {
	mu       sync.Mutex
	drafts   []string
	verdicts []string
	prompts  []string
}

func (c *mockLLMClient) NewSession(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
	cfg := gollem.NewSessionConfig(options...)

	if cfg.ContentType() == gollem.ContentTypeJSON {
		return &mockLLMSession{
			generateFn: func(ctx context.Context, input []gollem.Input) (*gollem.Response, error) {
				c.mu.Lock()
				defer c.mu.Unlock()
				verdict := `{"is_ok": true, "feedback": ""}`
				if len(c.verdicts) > 0 {
					verdict = c.verdicts[0]
					c.verdicts = c.verdicts[1:]
				}
				return &gollem.Response{Texts: []string{verdict}}, nil
			},
		}, nil
	}

	return &mockLLMSession{
		generateFn: func(ctx context.Context, input []gollem.Input) (*gollem.Response, error) {
			c.mu.Lock()
			defer c.mu.Unlock()
			if len(input) > 0 {
				c.prompts = append(c.prompts, input[0].String())
			}
			draft := "hello"
			if len(c.drafts) > 0 {
				draft = c.drafts[0]
				if len(c.drafts) > 1 {
					c.drafts = c.drafts[1:]
				}
			}
			return &gollem.Response{Texts: []string{draft}}, nil
		},
	}, nil
}

func (c *mockLLMClient) GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error) {
	return nil, nil
}

func TestNewActor(t *testing.T) {
	t.Run("llm mode without client is a configuration error", func(t *testing.T) {
		_, err := actor.New(actor.ModeLLM, nil, nil)
		gt.Bool(t, errors.Is(err, types.ErrConfiguration)).True()
	})
}

func TestRuleActorToneBands(t *testing.T) {
	act, err := actor.New(actor.ModeRule, nil, model.DefaultPersona())
	gt.NoError(t, err).Required()
	ctx := context.Background()

	testCases := map[string]struct {
		mutate   func(*model.MindState)
		contains string
	}{
		"low mood": {
			mutate:   func(s *model.MindState) { s.Biometrics.Mood = -7 },
			contains: "not feeling great",
		},
		"low energy": {
			mutate:   func(s *model.MindState) { s.Biometrics.Energy = 5 },
			contains: "worn out",
		},
		"high affection and mood": {
			mutate: func(s *model.MindState) {
				s.Biometrics.Affection = 80
				s.Biometrics.Mood = 5
			},
			contains: "thinking about you",
		},
		"neutral": {
			mutate:   func(s *model.MindState) {},
			contains: "How have you been?",
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			state := model.NewMindState(types.UserID("u1"), model.DefaultPersona())
			tc.mutate(state)

			reply, err := act.Act(ctx, "", state)
			gt.NoError(t, err).Required()
			gt.String(t, reply).Contains(tc.contains)
		})
	}
}

func TestLLMActorReturnsReplyVerbatim(t *testing.T) {
	client := &mockLLMClient{drafts: []string{"Of course I remember! You mentioned the recital last week."}}
	act, err := actor.New(actor.ModeLLM, client, nil)
	gt.NoError(t, err).Required()

	state := model.NewMindState(types.UserID("u1"), nil)
	reply, err := act.Act(context.Background(), "assembled prompt", state)
	gt.NoError(t, err).Required()
	gt.Value(t, reply).Equal("Of course I remember! You mentioned the recital last week.")
	gt.Array(t, client.prompts).Length(1)
}

func TestLLMActorReviewLoop(t *testing.T) {
	ctx := context.Background()
	state := model.NewMindState(types.UserID("u1"), nil)

	t.Run("rejected draft is regenerated with feedback", func(t *testing.T) {
		client := &mockLLMClient{
			drafts: []string{"Whatever.", "I was hoping you'd ask about the recital!"},
			verdicts: []string{
				`{"is_ok": false, "feedback": "too cold for the persona"}`,
				`{"is_ok": true, "feedback": ""}`,
			},
		}
		act, err := actor.New(actor.ModeLLM, client, nil)
		gt.NoError(t, err).Required()

		reply, err := act.Act(ctx, "assembled prompt", state)
		gt.NoError(t, err).Required()
		gt.Value(t, reply).Equal("I was hoping you'd ask about the recital!")

		gt.Array(t, client.prompts).Length(2).Required()
		gt.String(t, client.prompts[1]).Contains("too cold for the persona")
	})

	t.Run("last draft is used when every attempt is rejected", func(t *testing.T) {
		client := &mockLLMClient{
			drafts: []string{"draft one", "draft two", "draft three"},
			verdicts: []string{
				`{"is_ok": false, "feedback": "fix one"}`,
				`{"is_ok": false, "feedback": "fix two"}`,
				`{"is_ok": false, "feedback": "fix three"}`,
			},
		}
		act, err := actor.New(actor.ModeLLM, client, nil)
		gt.NoError(t, err).Required()

		reply, err := act.Act(ctx, "assembled prompt", state)
		gt.NoError(t, err).Required()
		gt.Value(t, reply).Equal("draft three")
		gt.Array(t, client.prompts).Length(3)
	})

	t.Run("reviewer returning garbage accepts the draft", func(t *testing.T) {
		client := &mockLLMClient{
			drafts:   []string{"the only draft"},
			verdicts: []string{"not json at all"},
		}
		act, err := actor.New(actor.ModeLLM, client, nil)
		gt.NoError(t, err).Required()

		reply, err := act.Act(ctx, "assembled prompt", state)
		gt.NoError(t, err).Required()
		gt.Value(t, reply).Equal("the only draft")
		gt.Array(t, client.prompts).Length(1)
	})
}
