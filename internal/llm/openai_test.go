package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scry/internal/usage"
)

func newChatServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *OpenAIClient) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewOpenAIClient(OpenAIConfig{
		APIKey:     "test-key",
		BaseURL:    srv.URL,
		Model:      "test-model",
		MaxRetries: 2,
	})
	return srv, client
}

func chatReply(content string, promptTokens, completionTokens int) []byte {
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
		"usage": map[string]any{
			"prompt_tokens":     promptTokens,
			"completion_tokens": completionTokens,
		},
	}
	data, _ := json.Marshal(resp)
	return data
}

func TestOpenAICompleteWithSystem(t *testing.T) {
	var gotReq chatRequest
	_, client := newChatServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write(chatReply("  the answer  ", 11, 7))
	})

	tracker := usage.NewTracker()
	ctx := usage.WithTracker(context.Background(), tracker)
	ctx = usage.WithRole(ctx, usage.RolePlanner)

	text, err := client.CompleteWithSystem(ctx, "be brief", "what is Go?")
	require.NoError(t, err)
	assert.Equal(t, "the answer", text)

	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, "be brief", gotReq.Messages[0].Content)
	assert.Equal(t, "user", gotReq.Messages[1].Role)

	snap := tracker.Snapshot()
	assert.Equal(t, int64(18), snap.ByRole[usage.RolePlanner].Total)
}

func TestOpenAIRetriesOn429(t *testing.T) {
	var calls atomic.Int32
	_, client := newChatServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write(chatReply("recovered", 1, 1))
	})

	text, err := client.Complete(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "recovered", text)
	assert.Equal(t, int32(2), calls.Load())
}

func TestOpenAIDoesNotRetryOn400(t *testing.T) {
	var calls atomic.Int32
	_, client := newChatServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := client.Complete(context.Background(), "hi")
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpenAIEmptyChoices(t *testing.T) {
	_, client := newChatServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	})

	_, err := client.Complete(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOpenAIRequiresKey(t *testing.T) {
	client := NewOpenAIClient(OpenAIConfig{BaseURL: "http://localhost:0"})
	_, err := client.Complete(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrNoAPIKey)
}
