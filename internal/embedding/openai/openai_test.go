package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type embeddingsRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

// fakeServer answers /embeddings with a 3-d vector per input whose first
// component is the input length, listing results in reverse order.
func fakeServer(t *testing.T, calls *atomic.Int32, failFirst int32, dim int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if r.URL.Path != "/embeddings" {
			http.NotFound(w, r)
			return
		}
		if n <= failFirst {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"message":"busy","type":"server_error"}}`))
			return
		}
		var req embeddingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data := make([]map[string]any, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			vec := make([]float32, dim)
			vec[0] = float32(len(req.Input[i]))
			data = append(data, map[string]any{"object": "embedding", "index": i, "embedding": vec})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  req.Model,
			"data":   data,
		})
	}))
}

func newTestClient(t *testing.T, url string, batchSize, retries int) *Client {
	t.Helper()
	c, err := NewClient(Config{
		BaseURL:    url,
		Model:      "all-minilm",
		Dimension:  3,
		BatchSize:  batchSize,
		MaxRetries: retries,
	}, nil)
	require.NoError(t, err)
	return c
}

func TestClient_EmbedBatchKeepsInputOrder(t *testing.T) {
	var calls atomic.Int32
	srv := fakeServer(t, &calls, 0, 3)
	defer srv.Close()

	c := newTestClient(t, srv.URL, 2, 0)
	assert.Equal(t, "openai:all-minilm", c.Name())
	assert.Equal(t, 3, c.Dimension())

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vecs, err := c.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, len(texts))
	for i, text := range texts {
		assert.Equal(t, float32(len(text)), vecs[i][0])
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := fakeServer(t, &calls, 1, 3)
	defer srv.Close()

	c := newTestClient(t, srv.URL, 8, 2)
	vec, err := c.Embed(context.Background(), "dragon")
	require.NoError(t, err)
	assert.Equal(t, float32(6), vec[0])
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_DimensionMismatchIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := fakeServer(t, &calls, 0, 5)
	defer srv.Close()

	c := newTestClient(t, srv.URL, 8, 3)
	_, err := c.Embed(context.Background(), "dragon")
	require.Error(t, err)
	assert.ErrorIs(t, err, errBadResponse)
	assert.Equal(t, int32(1), calls.Load())
}

func TestNewClient_RequiresKeyForOpenAI(t *testing.T) {
	t.Setenv("LORERAG_TEST_OPENAI_KEY", "")
	_, err := NewClient(Config{APIKeyEnv: "LORERAG_TEST_OPENAI_KEY", Dimension: 1536}, nil)
	assert.Error(t, err)

	_, err = NewClient(Config{BaseURL: "http://localhost:11434/v1", Model: "all-minilm"}, nil)
	assert.Error(t, err, "dimension is mandatory")
}
