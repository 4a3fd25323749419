package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain object", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced no lang", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"leading prose", "Here is the plan:\n{\"a\":1}\nDone.", `{"a":1}`},
		{"array", "The results: [1,2,3] as requested", `[1,2,3]`},
		{"no json", "no structured output here", "no structured output here"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractJSON(tc.in))
		})
	}
}

type staticClient struct {
	text string
	err  error
}

func (s *staticClient) Complete(ctx context.Context, prompt string) (string, error) {
	return s.text, s.err
}

func (s *staticClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return s.text, s.err
}

func TestCompleteJSONDecodesFencedStruct(t *testing.T) {
	type plan struct {
		Topic string `json:"topic"`
		N     int    `json:"n"`
	}
	c := &staticClient{text: "```json\n{\"topic\": \"quantum computing\", \"n\": 3}\n```"}

	got, err := CompleteJSON[plan](context.Background(), c, "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, "quantum computing", got.Topic)
	assert.Equal(t, 3, got.N)
}

func TestCompleteJSONBadPayload(t *testing.T) {
	c := &staticClient{text: "I could not produce JSON, sorry."}
	_, err := CompleteJSON[map[string]any](context.Background(), c, "", "")
	assert.ErrorIs(t, err, ErrBadJSON)
}

func TestLimiterBoundsConcurrency(t *testing.T) {
	l := newLimiter(1)
	ctx := context.Background()

	require.NoError(t, l.acquire(ctx))

	blocked, cancel := context.WithCancel(ctx)
	cancel()
	assert.Error(t, l.acquire(blocked), "second acquire should block and fail on cancellation")

	l.release()
	require.NoError(t, l.acquire(ctx))
	l.release()

	// nil limiter is a no-op
	var nop *limiter
	require.NoError(t, nop.acquire(ctx))
	nop.release()
}
