package analysis

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chitieu/internal/core"
)

type stubGenerator struct {
	reply  string
	err    error
	calls  atomic.Int32
	prompt string
}

func (s *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	s.calls.Add(1)
	s.prompt = prompt
	return s.reply, s.err
}

func sample() []core.Expense {
	d := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	return []core.Expense{
		{ID: "1", Amount: 45000, Category: core.CategoryFood, Date: d},
		{ID: "2", Amount: 1200000, Category: core.CategoryShopping, Date: d},
	}
}

func TestAnalyzeRemote(t *testing.T) {
	gen := &stubGenerator{reply: `{"message": "Meow! Mua sắm hơi nhiều nha!", "mood": "concerned"}`}
	b := NewBridge(gen, nil)
	res := b.Analyze(context.Background(), sample(), 1245000)
	assert.Equal(t, Result{Message: "Meow! Mua sắm hơi nhiều nha!", Mood: MoodConcerned}, res)
	assert.Contains(t, gen.prompt, "Tổng chi: 1.245.000 VND")
	assert.Contains(t, gen.prompt, `"Mua sắm":1200000`)
	assert.Contains(t, gen.prompt, `"Ăn uống":45000`)
}

func TestAnalyzeEmptyListSkipsGenerator(t *testing.T) {
	gen := &stubGenerator{reply: `{"message": "x", "mood": "happy"}`}
	res := NewBridge(gen, nil).Analyze(context.Background(), nil, 0)
	assert.Equal(t, int32(0), gen.calls.Load())
	assert.Equal(t, MoodNeutral, res.Mood)
	assert.True(t, res.Fallback)
	assert.NotEmpty(t, res.Message)
}

func TestAnalyzeFallbacks(t *testing.T) {
	ctx := context.Background()

	res := NewBridge(nil, nil).Analyze(ctx, sample(), 1)
	assert.Equal(t, NoGeneratorMessage, res.Message)
	assert.Equal(t, MoodNeutral, res.Mood)

	cases := map[string]*stubGenerator{
		"error":         {err: errors.New("503")},
		"not json":      {reply: "Bạn tiêu nhiều quá"},
		"empty message": {reply: `{"message": "  ", "mood": "happy"}`},
		"wrong shape":   {reply: `["happy"]`},
	}
	for name, gen := range cases {
		t.Run(name, func(t *testing.T) {
			res := NewBridge(gen, nil).Analyze(ctx, sample(), 1)
			assert.Equal(t, Result{Message: FailureMessage, Mood: MoodNeutral, Fallback: true}, res)
		})
	}
}

func TestParseResponse(t *testing.T) {
	res, ok := ParseResponse("```json\n{\"message\": \"Ổn áp!\", \"mood\": \"HAPPY\"}\n```")
	require.True(t, ok)
	assert.Equal(t, MoodHappy, res.Mood)
	assert.Equal(t, "Ổn áp!", res.Message)

	res, ok = ParseResponse(`{"message": "Hmm", "mood": "angry"}`)
	require.True(t, ok)
	assert.Equal(t, MoodNeutral, res.Mood)
}

func TestStartDeliversOnce(t *testing.T) {
	gen := &stubGenerator{reply: `{"message": "Tốt lắm", "mood": "happy"}`}
	ch := NewBridge(gen, nil).Start(context.Background(), sample(), 1245000)
	res, ok := <-ch
	require.True(t, ok)
	assert.Equal(t, MoodHappy, res.Mood)
	_, ok = <-ch
	assert.False(t, ok)
}

func TestBuildPromptMentionsMoods(t *testing.T) {
	p, err := BuildPrompt(0, map[string]core.Money{})
	require.NoError(t, err)
	for _, m := range []Mood{MoodHappy, MoodConcerned, MoodNeutral} {
		assert.True(t, strings.Contains(p, string(m)))
	}
}
