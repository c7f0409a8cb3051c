package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendsentry/service/internal/config"
	"github.com/trendsentry/service/pkg/models"
)

func testProvider(url string) *Provider {
	p := NewProvider(config.OpenAIConfig{APIKey: "test-key", Model: "gpt-4-turbo"}, time.Second)
	p.SetBaseURL(url)
	return p
}

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4-turbo", req.Model)
		assert.Equal(t, 500, req.MaxTokens)
		assert.Equal(t, 0.2, req.Temperature)
		require.Len(t, req.Messages, 1)

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": `{"impact":"low"}`}},
			},
		})
	}))
	defer srv.Close()

	got, err := testProvider(srv.URL).Generate(context.Background(), "analyze this", 500, 0.2)
	require.NoError(t, err)
	assert.Equal(t, `{"impact":"low"}`, got)
}

func TestGenerateNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := testProvider(srv.URL).Generate(context.Background(), "p", 100, 0.3)
	assert.ErrorIs(t, err, models.ErrProviderUnavailable)
}

func TestGenerateEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := testProvider(srv.URL).Generate(context.Background(), "p", 100, 0.3)
	assert.ErrorIs(t, err, models.ErrInvalidResponse)
}

func TestGenerateTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	p := NewProvider(config.OpenAIConfig{APIKey: "k", Model: "m"}, 50*time.Millisecond)
	p.SetBaseURL(srv.URL)

	_, err := p.Generate(context.Background(), "p", 100, 0.3)
	assert.ErrorIs(t, err, models.ErrInferenceTimeout)
}
