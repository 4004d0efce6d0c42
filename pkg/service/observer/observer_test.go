package observer_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/mnemosyne/pkg/domain/model"
	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
	"github.com/secmon-lab/mnemosyne/pkg/service/observer"
)

// mockLLMSession is a mock gollem Session for testing
type mockLLMSession struct {
	generateFn func(ctx context.Context, input []gollem.Input) (*gollem.Response, error)
}

func (s *mockLLMSession) Generate(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (*gollem.Response, error) {
	if s.generateFn != nil {
		return s.generateFn(ctx, input)
	}
	return &gollem.Response{Texts: []string{"{}"}}, nil
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

// mockLLMClient is a mock gollem LLMClient for testing
type mockLLMClient struct {
	newSessionFn func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error)
}

func (c *mockLLMClient) NewSession(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
	if c.newSessionFn != nil {
		return c.newSessionFn(ctx, options...)
	}
	return &mockLLMSession{}, nil
}

func (c *mockLLMClient) GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error) {
	return nil, nil
}

func jsonSession(text string) func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
	return func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
		return &mockLLMSession{
			generateFn: func(ctx context.Context, input []gollem.Input) (*gollem.Response, error) {
				return &gollem.Response{Texts: []string{text}}, nil
			},
		}, nil
	}
}

func TestNewObserver(t *testing.T) {
	t.Run("rule mode needs no client", func(t *testing.T) {
		obs, err := observer.New(observer.ModeRule, nil, nil)
		gt.NoError(t, err).Required()
		gt.Value(t, obs).NotNil()
	})

	t.Run("llm mode without client is a configuration error", func(t *testing.T) {
		_, err := observer.New(observer.ModeLLM, nil, nil)
		gt.Bool(t, errors.Is(err, types.ErrConfiguration)).True()
	})

	t.Run("unknown mode rejected", func(t *testing.T) {
		_, err := observer.New("vibes", nil, nil)
		gt.Bool(t, errors.Is(err, types.ErrConfiguration)).True()
	})
}

func TestRuleObserverTrustProgression(t *testing.T) {
	obs, err := observer.New(observer.ModeRule, nil, model.DefaultPersona())
	gt.NoError(t, err).Required()

	ctx := context.Background()
	state := model.NewMindState(types.UserID("u1"), model.DefaultPersona())

	// Three affectionate turns: trust is monotonically non-decreasing.
	trusts := []float64{state.Biometrics.Trust}
	for i := 0; i < 3; i++ {
		result, err := obs.Observe(ctx, "thank you, I really appreciate you", state, nil)
		gt.NoError(t, err).Required()
		gt.Bool(t, result.NewState.Biometrics.Trust >= trusts[len(trusts)-1]).True()
		trusts = append(trusts, result.NewState.Biometrics.Trust)
		state = result.NewState
	}

	gt.Bool(t, trusts[3] > trusts[0]).True()
}

func TestRuleObserverTrustFlagOneShot(t *testing.T) {
	obs, err := observer.New(observer.ModeRule, nil, model.DefaultPersona())
	gt.NoError(t, err).Required()

	ctx := context.Background()
	state := model.NewMindState(types.UserID("u1"), model.DefaultPersona())
	state.Biometrics.Trust = 49

	result, err := obs.Observe(ctx, "thank you so much", state, nil)
	gt.NoError(t, err).Required()
	gt.Bool(t, result.NewState.Biometrics.Trust >= 50).True()
	gt.Bool(t, result.NewState.Scenario.Flag(observer.TrustEstablishedFlag)).True()

	// Already above 50: the flag logic does not fire again, the set flag
	// just persists with the state.
	state2 := result.NewState
	state2.Scenario.SetFlag(observer.TrustEstablishedFlag, false)
	result2, err := obs.Observe(ctx, "thanks again", state2, nil)
	gt.NoError(t, err).Required()
	gt.Bool(t, result2.NewState.Scenario.Flag(observer.TrustEstablishedFlag)).False()
}

func TestRuleObserverHostileTurn(t *testing.T) {
	obs, err := observer.New(observer.ModeRule, nil, nil)
	gt.NoError(t, err).Required()

	state := model.NewMindState(types.UserID("u1"), nil)
	state.Biometrics.Mood = 0
	state.Biometrics.Affection = 10
	state.Biometrics.Trust = 10

	result, err := obs.Observe(context.Background(), "you are so annoying, shut up", state, nil)
	gt.NoError(t, err).Required()
	gt.Number(t, result.NewState.Biometrics.Mood).Equal(-2)
	gt.Number(t, result.NewState.Biometrics.Affection).Equal(8)
	gt.Number(t, result.NewState.Biometrics.Trust).Equal(9)

	// The source state is untouched.
	gt.Number(t, state.Biometrics.Mood).Equal(0)
}

func TestRuleObserverFactExtraction(t *testing.T) {
	obs, err := observer.New(observer.ModeRule, nil, nil)
	gt.NoError(t, err).Required()
	ctx := context.Background()
	state := model.NewMindState(types.UserID("u1"), nil)

	t.Run("profile fields", func(t *testing.T) {
		result, err := obs.Observe(ctx, "My name is Alice and I live in Osaka.", state, nil)
		gt.NoError(t, err).Required()

		fields := map[string]string{}
		for _, f := range result.Facts {
			gt.Value(t, f.MemoryType).Equal(types.MemoryTypeUserProfile)
			fields[f.ProfileField] = f.ProfileValue
		}
		gt.Value(t, fields[model.ProfileFieldName]).Equal("Alice")
		gt.Value(t, fields[model.ProfileFieldLocation]).Equal("Osaka")
	})

	t.Run("preference", func(t *testing.T) {
		result, err := obs.Observe(ctx, "I really like spicy ramen!", state, nil)
		gt.NoError(t, err).Required()
		gt.Array(t, result.Facts).Length(1).Required()
		gt.Value(t, result.Facts[0].MemoryType).Equal(types.MemoryTypePreference)
		gt.Number(t, result.Facts[0].Importance).Equal(model.DefaultPreferenceImportance)
	})

	t.Run("boundary", func(t *testing.T) {
		result, err := obs.Observe(ctx, "Please don't bring up my ex.", state, nil)
		gt.NoError(t, err).Required()
		gt.Array(t, result.Facts).Length(1).Required()
		gt.Value(t, result.Facts[0].MemoryType).Equal(types.MemoryTypeBoundary)
		gt.Value(t, result.Facts[0].Category).Equal(types.BoundaryCategoryTopic)
		gt.Number(t, result.Facts[0].Severity).Equal(0.8)
	})

	t.Run("small talk extracts nothing", func(t *testing.T) {
		result, err := obs.Observe(ctx, "nice weather today", state, nil)
		gt.NoError(t, err).Required()
		gt.Array(t, result.Facts).Length(0)
	})
}

func TestLLMObserver(t *testing.T) {
	ctx := context.Background()
	state := model.NewMindState(types.UserID("u1"), model.DefaultPersona())

	t.Run("applies deltas and converts facts", func(t *testing.T) {
		client := &mockLLMClient{newSessionFn: jsonSession(`{
			"mood_delta": 2,
			"energy_delta": -1,
			"affection_delta": 3,
			"trust_delta": 1,
			"facts": [
				{"memory_type": "preference", "content": "likes jazz", "importance": 0.6},
				{"memory_type": "user_profile", "content": "user is a nurse", "importance": 0.5, "profile_field": "occupation", "profile_value": "nurse"}
			],
			"instruction_override": ""
		}`)}

		obs, err := observer.New(observer.ModeLLM, client, model.DefaultPersona())
		gt.NoError(t, err).Required()

		result, err := obs.Observe(ctx, "I put on some jazz at work today", state, nil)
		gt.NoError(t, err).Required()
		gt.Number(t, result.NewState.Biometrics.Mood).Equal(2)
		gt.Number(t, result.NewState.Biometrics.Affection).Equal(3)
		gt.Array(t, result.Facts).Length(2).Required()
		gt.Value(t, result.Facts[1].ProfileField).Equal("occupation")
	})

	t.Run("clamps runaway deltas", func(t *testing.T) {
		client := &mockLLMClient{newSessionFn: jsonSession(`{
			"mood_delta": 999, "energy_delta": 0, "affection_delta": 0, "trust_delta": -999, "facts": []
		}`)}

		obs, err := observer.New(observer.ModeLLM, client, nil)
		gt.NoError(t, err).Required()

		result, err := obs.Observe(ctx, "hi", state, nil)
		gt.NoError(t, err).Required()
		gt.Number(t, result.NewState.Biometrics.Mood).Equal(model.MoodMax)
		gt.Number(t, result.NewState.Biometrics.Trust).Equal(model.TrustMin)
	})

	t.Run("malformed response is a validation error", func(t *testing.T) {
		client := &mockLLMClient{newSessionFn: jsonSession(`not json at all`)}

		obs, err := observer.New(observer.ModeLLM, client, nil)
		gt.NoError(t, err).Required()

		_, err = obs.Observe(ctx, "hi", state, nil)
		gt.Bool(t, errors.Is(err, types.ErrValidation)).True()
	})

	t.Run("unknown memory type is a validation error", func(t *testing.T) {
		client := &mockLLMClient{newSessionFn: jsonSession(`{
			"mood_delta": 0, "energy_delta": 0, "affection_delta": 0, "trust_delta": 0,
			"facts": [{"memory_type": "gossip", "content": "something"}]
		}`)}

		obs, err := observer.New(observer.ModeLLM, client, nil)
		gt.NoError(t, err).Required()

		_, err = obs.Observe(ctx, "hi", state, nil)
		gt.Bool(t, errors.Is(err, types.ErrValidation)).True()
	})
}
