// Package embedding turns query text into dense vectors via an
// OpenAI-compatible embedding endpoint.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
)

// Embedder converts a single query string into one embedding vector.
//
// It is constructed exactly once at process start. If construction of
// the underlying client fails, the failure is recorded and the Embedder
// stays permanently unusable for the rest of the process: a broken
// embedding backend is a deployment error, not a transient one, so no
// retry is attempted. Readiness reporting surfaces the recorded reason.
type Embedder struct {
	client  *Client
	model   string
	dim     int
	initErr error
}

// New constructs the embedder for the given model. A construction
// failure does not return an error; it yields an Embedder whose
// InitError reports the reason and whose EmbedQuery always fails.
func New(baseURL, apiKey, model string, dim int) *Embedder {
	client, err := NewClient(baseURL, apiKey)
	if err != nil {
		return &Embedder{model: model, dim: dim, initErr: err}
	}
	return &Embedder{client: client, model: model, dim: dim}
}

// InitError returns the recorded construction failure, or nil if the
// embedder is usable.
func (e *Embedder) InitError() error {
	return e.initErr
}

// Model returns the configured embedding model identifier.
func (e *Embedder) Model() string {
	return e.model
}

// Dimension returns the expected vector length.
func (e *Embedder) Dimension() int {
	return e.dim
}

// EmbedQuery returns exactly one vector for exactly one input string.
// Rate-limit responses (429) are retried with exponential backoff; any
// other failure is returned immediately. The underlying HTTP client is
// safe for concurrent use.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if e.initErr != nil {
		return nil, fmt.Errorf("embedding model failed to load: %w", e.initErr)
	}

	var vector []float32

	operation := func() error {
		resp, err := e.client.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: []string{text},
			},
			Model: openai.EmbeddingModel(e.model),
		})
		if err != nil {
			if isRateLimitError(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		if len(resp.Data) != 1 {
			return backoff.Permanent(fmt.Errorf("expected 1 embedding, got %d", len(resp.Data)))
		}
		vector = toFloat32(resp.Data[0].Embedding)
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return vector, nil
}

// isRateLimitError checks if the error is a rate limit error (HTTP 429).
func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

// toFloat32 converts the API's float64 vector to the float32 layout the
// index stores.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
