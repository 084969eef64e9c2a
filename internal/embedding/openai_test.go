package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hyperjump/docqa/internal/models"
)

func newEmbeddingServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded","type":"insufficient_quota"}}`))
			return
		}
		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		type item struct {
			Object    string    `json:"object"`
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}
		data := make([]item, len(req.Input))
		// Reverse order to check results are placed by index.
		for i := range req.Input {
			j := len(req.Input) - 1 - i
			data[i] = item{Object: "embedding", Index: j, Embedding: []float32{float32(j), 1}}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data, "model": "test"})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIEmbedder_EmbedBatch(t *testing.T) {
	srv := newEmbeddingServer(t, http.StatusOK)
	e := NewOpenAIEmbedder(&OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1", Model: "test", Dimensions: 2})
	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 3 {
		t.Fatalf("got %d vectors", len(vecs))
	}
	for i, v := range vecs {
		if v[0] != float32(i) {
			t.Errorf("vector %d = %v, want index-ordered result", i, v)
		}
	}
	one, err := e.Embed(context.Background(), "a")
	if err != nil || len(one) != 2 {
		t.Errorf("Embed: %v %v", one, err)
	}
}

func TestOpenAIEmbedder_apiErrorIsModelUnavailable(t *testing.T) {
	srv := newEmbeddingServer(t, http.StatusTooManyRequests)
	cfg := &OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1", Model: "test"}
	_, err := NewOpenAIEmbedder(cfg).EmbedBatch(context.Background(), []string{"a"})
	if !errors.Is(err, models.ErrModelUnavailable) {
		t.Errorf("expected ErrModelUnavailable, got %v", err)
	}
}
