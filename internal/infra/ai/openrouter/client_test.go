package openrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compliai/compliai/internal/domain/compliance"
)

func completionBody(content string) map[string]any {
	return map[string]any{
		"id":      "gen-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "openai/gpt-4o-mini",
		"choices": []map[string]any{
			{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			},
		},
	}
}

func TestScoreReturnsRawContent(t *testing.T) {
	var calls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer sk-or-test", r.Header.Get("Authorization"))

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "system", body.Messages[0].Role)
		assert.Contains(t, body.Messages[0].Content, compliance.RegulationGDPR.Display())
		assert.Equal(t, "We collect emails without consent.", body.Messages[1].Content)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(completionBody("```json\n{\"score\":72,\"issues\":[],\"summary\":\"ok\"}\n```"))
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL})
	raw, err := client.Score(context.Background(), compliance.ScoreRequest{
		Document:    "We collect emails without consent.",
		Regulations: []compliance.Regulation{compliance.RegulationGDPR},
		Credential:  "sk-or-test",
	})
	require.NoError(t, err)
	assert.Contains(t, raw, `"score":72`)
	assert.EqualValues(t, 1, atomic.LoadInt64(&calls))
}

func TestScoreNonSuccessStatusIsRequestFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"invalid api key"}}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL})
	_, err := client.Score(context.Background(), compliance.ScoreRequest{
		Document:    "doc",
		Regulations: []compliance.Regulation{compliance.RegulationGDPR},
		Credential:  "expired",
	})
	assert.ErrorIs(t, err, compliance.ErrRequestFailed)
}

func TestScoreTimeoutIsRequestFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		json.NewEncoder(w).Encode(completionBody("{}"))
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL, Timeout: 20 * time.Millisecond})
	_, err := client.Score(context.Background(), compliance.ScoreRequest{
		Document:    "doc",
		Regulations: []compliance.Regulation{compliance.RegulationGDPR},
		Credential:  "sk-or-test",
	})
	assert.ErrorIs(t, err, compliance.ErrRequestFailed)
}
