package embeddings

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/seralba/vitala-health-agent/internal/httpkit"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"scaled copy", []float32{1, 2}, []float32{2, 4}, 1},
		{"zero vector", []float32{0, 0}, []float32{1, 2}, 0},
		{"both zero", []float32{0, 0}, []float32{0, 0}, 0},
		{"length mismatch", []float32{1, 2}, []float32{1, 2, 3}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(float64(got-tt.want)) > 1e-6 {
				t.Errorf("CosineSimilarity(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestEmbedBatch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("path = %s, want /v1/embeddings", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, want bearer key", got)
		}

		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("model = %q, want test-model", req.Model)
		}

		// Return embeddings out of order to prove index-based reassembly.
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"index": 1, "embedding": []float32{0, 1}},
				{"index": 0, "embedding": []float32{1, 0}},
			},
		})
	}))
	defer ts.Close()

	c := New(Config{BaseURL: ts.URL, APIKey: "test-key", Model: "test-model"})

	vectors, err := c.EmbedBatch(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}
	if len(vectors) != 2 {
		t.Fatalf("len(vectors) = %d, want 2", len(vectors))
	}
	if vectors[0][0] != 1 || vectors[1][1] != 1 {
		t.Errorf("vectors = %v, not reassembled in input order", vectors)
	}
}

func TestEmbed_BackendError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := New(Config{BaseURL: ts.URL, APIKey: "k", Model: "m"})

	_, err := c.Embed(context.Background(), "text")
	if !errors.Is(err, httpkit.ErrServiceUnavailable) {
		t.Errorf("Embed() error = %v, want ErrServiceUnavailable", err)
	}
}

func TestEmbedBatch_CountMismatch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"index": 0, "embedding": []float32{1}}},
		})
	}))
	defer ts.Close()

	c := New(Config{BaseURL: ts.URL, APIKey: "k", Model: "m"})

	_, err := c.EmbedBatch(context.Background(), []string{"a", "b"})
	if !errors.Is(err, httpkit.ErrServiceUnavailable) {
		t.Errorf("EmbedBatch() error = %v, want ErrServiceUnavailable on count mismatch", err)
	}
}

func TestEmbed_Unreachable(t *testing.T) {
	c := New(Config{BaseURL: "http://127.0.0.1:1", APIKey: "k", Model: "m"})

	_, err := c.Embed(context.Background(), "text")
	if !errors.Is(err, httpkit.ErrServiceUnavailable) {
		t.Errorf("Embed() error = %v, want ErrServiceUnavailable", err)
	}
}
