package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hyperjump/kotae/internal/models"
)

func TestMockEmbedderDeterministic(t *testing.T) {
	e := NewMockEmbedder(16)
	ctx := context.Background()

	a, err := e.Embed(ctx, "returns policy")
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Embed(ctx, "returns policy")
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != 16 {
		t.Fatalf("dimension = %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embeddings for same text differ at %d", i)
		}
	}

	c, _ := e.Embed(ctx, "shipping policy")
	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("embeddings for different texts should differ")
	}
}

func TestMockEmbedderUnitLength(t *testing.T) {
	e := NewMockEmbedder(32)
	vec, err := e.Embed(context.Background(), "some text")
	if err != nil {
		t.Fatal(err)
	}
	var sum float64
	for _, v := range vec {
		sum += float64(v * v)
	}
	if math.Abs(sum-1.0) > 1e-5 {
		t.Errorf("vector norm^2 = %f, want 1", sum)
	}
}

type countingEmbedder struct {
	*MockEmbedder
	calls int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	return c.MockEmbedder.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls += len(texts)
	return c.MockEmbedder.EmbedBatch(ctx, texts)
}

func TestCachingEmbedderSkipsRepeats(t *testing.T) {
	inner := &countingEmbedder{MockEmbedder: NewMockEmbedder(8)}
	e := NewCachingEmbedder(inner, 100)
	ctx := context.Background()

	if _, err := e.Embed(ctx, "q"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Embed(ctx, "q"); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}

	if _, err := e.EmbedBatch(ctx, []string{"q", "r", "q"}); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 2 {
		t.Errorf("inner calls after batch = %d, want 2", inner.calls)
	}
}

func TestEmbeddingCacheEviction(t *testing.T) {
	c := NewEmbeddingCache(2)
	c.Set("a", []float32{1})
	c.Set("b", []float32{2})
	c.Set("c", []float32{3})
	if _, ok := c.Get("a"); ok {
		t.Error("oldest entry should have been evicted")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("newest entry should be present")
	}
}

func TestOpenAIEmbedderBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth header = %q", got)
		}
		var req openAIEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		resp := openAIEmbedResponse{}
		// Return out of order to exercise index-based reassembly.
		for i := len(req.Input) - 1; i >= 0; i-- {
			resp.Data = append(resp.Data, struct {
				Embedding []float64 `json:"embedding"`
				Index     int       `json:"index"`
			}{Embedding: []float64{float64(i), 0}, Index: i})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	e, err := NewOpenAIEmbedder(srv.URL, "test-key", "text-embedding-3-small", 2, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 2 || vecs[0][0] != 0 || vecs[1][0] != 1 {
		t.Errorf("vectors not reassembled by index: %v", vecs)
	}
}

func TestOpenAIEmbedderBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	e, _ := NewOpenAIEmbedder(srv.URL, "test-key", "", 0, time.Second)
	_, err := e.Embed(context.Background(), "q")
	if !errors.Is(err, models.ErrBackend) {
		t.Errorf("expected ErrBackend, got %v", err)
	}
}

func TestOllamaEmbedderTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(srv.URL, "", 0, 20*time.Millisecond)
	_, err := e.Embed(context.Background(), "q")
	if !errors.Is(err, models.ErrBackendTimeout) {
		t.Errorf("expected ErrBackendTimeout, got %v", err)
	}
}

func TestOllamaEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: []float64{0.1, 0.2, 0.3}})
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(srv.URL, "nomic-embed-text", 3, time.Second)
	vec, err := e.Embed(context.Background(), "q")
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 3 {
		t.Errorf("vector length = %d", len(vec))
	}
}

func TestFactoryUnknownProvider(t *testing.T) {
	if _, err := New(Config{Provider: "bedrock"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestFactoryMock(t *testing.T) {
	e, err := New(Config{Provider: "mock", Dimensions: 8, CacheSize: 10})
	if err != nil {
		t.Fatal(err)
	}
	if e.Dimensions() != 8 {
		t.Errorf("dimensions = %d", e.Dimensions())
	}
}
