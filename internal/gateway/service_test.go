package gateway

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/rag-gateway/internal/config"
	"github.com/bull/rag-gateway/internal/storage"
)

type stubEmbedder struct {
	calls   atomic.Int64
	vector  []float32
	err     error
	initErr error
}

func (s *stubEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.vector, nil
}

func (s *stubEmbedder) InitError() error { return s.initErr }

type stubIndex struct {
	calls     atomic.Int64
	lastLimit uint64
	hits      []storage.Hit
	err       error
}

func (s *stubIndex) Search(ctx context.Context, vector []float32, limit uint64) ([]storage.Hit, error) {
	s.calls.Add(1)
	s.lastLimit = limit
	if s.err != nil {
		return nil, s.err
	}
	return s.hits, nil
}

func testConfig() *config.Config {
	return &config.Config{
		QdrantEndpoint: "localhost:6334",
		QdrantAPIKey:   "token",
		Collection:     "rag_chunks",
		APIKey:         "secret",
		EmbedModel:     "BAAI/bge-small-en-v1.5",
		EmbedDim:       3,
		MaxQueryChars:  2000,
	}
}

func newTestService(embedder *stubEmbedder, index *stubIndex) *Service {
	return NewService(testConfig(), embedder, index, nil, nil)
}

func TestSearchSuccess(t *testing.T) {
	embedder := &stubEmbedder{vector: []float32{0.1, 0.2, 0.3}}
	index := &stubIndex{hits: []storage.Hit{
		{Score: 0.92, DocID: "doc-1", Title: "Intro", ChunkIndex: 0, Text: "retrieval is lookup"},
		{Score: 0.85, DocID: "doc-2", Title: "Basics", ChunkIndex: 3, Text: "vectors and chunks"},
		{Score: 0.71, DocID: "doc-1", Title: "Intro", ChunkIndex: 5, Text: "ranking"},
	}}
	svc := newTestService(embedder, index)

	hits, err := svc.Search(context.Background(), SearchRequest{Text: "what is retrieval?", TopK: 5}, "secret")
	require.NoError(t, err)

	// Exactly the stub's hits, in the stub's order.
	require.Len(t, hits, 3)
	assert.Equal(t, index.hits, hits)
	assert.Equal(t, uint64(5), index.lastLimit)
	assert.Equal(t, int64(1), embedder.calls.Load())
}

func TestSearchIdempotent(t *testing.T) {
	embedder := &stubEmbedder{vector: []float32{1, 0, 0}}
	index := &stubIndex{hits: []storage.Hit{{Score: 0.9, DocID: "a"}, {Score: 0.5, DocID: "b"}}}
	svc := newTestService(embedder, index)

	req := SearchRequest{Text: "same query", TopK: 2}
	first, err := svc.Search(context.Background(), req, "secret")
	require.NoError(t, err)
	second, err := svc.Search(context.Background(), req, "secret")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSearchWrongKey(t *testing.T) {
	embedder := &stubEmbedder{vector: []float32{1, 0, 0}}
	index := &stubIndex{}
	svc := newTestService(embedder, index)

	_, err := svc.Search(context.Background(), SearchRequest{Text: "hi"}, "wrong")

	var appErr *Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, KindUnauthorized, appErr.Kind)

	// Auth fails before any expensive work.
	assert.Equal(t, int64(0), embedder.calls.Load())
	assert.Equal(t, int64(0), index.calls.Load())
}

func TestSearchBlankConfiguredKeyIsMisconfigured(t *testing.T) {
	embedder := &stubEmbedder{}
	index := &stubIndex{}
	svc := NewService(&config.Config{
		QdrantEndpoint: "localhost:6334",
		QdrantAPIKey:   "token",
		EmbedDim:       3,
		MaxQueryChars:  2000,
	}, embedder, index, nil, nil)

	// A blank configured key never means "allow all", even when the
	// client also presents a blank key.
	_, err := svc.Search(context.Background(), SearchRequest{Text: "hi"}, "")

	var appErr *Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, KindMisconfigured, appErr.Kind)
	assert.Equal(t, int64(0), embedder.calls.Load())
}

func TestSearchEmptyText(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t "} {
		embedder := &stubEmbedder{}
		svc := newTestService(embedder, &stubIndex{})

		_, err := svc.Search(context.Background(), SearchRequest{Text: text}, "secret")

		var appErr *Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, KindBadRequest, appErr.Kind)
		assert.Equal(t, int64(0), embedder.calls.Load())
	}
}

func TestSearchQueryTooLong(t *testing.T) {
	embedder := &stubEmbedder{}
	svc := newTestService(embedder, &stubIndex{})

	long := strings.Repeat("q", 2001)
	_, err := svc.Search(context.Background(), SearchRequest{Text: long}, "secret")

	var appErr *Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, KindPayloadTooLarge, appErr.Kind)
	assert.Equal(t, int64(0), embedder.calls.Load())
}

func TestTopKClamping(t *testing.T) {
	tests := []struct {
		topK int
		want uint64
	}{
		{-5, 1},
		{-1, 1},
		{0, defaultTopK}, // unset gets the default
		{1, 1},
		{12, 12},
		{30, 30},
		{31, 30},
		{1000, 30},
	}

	for _, tt := range tests {
		embedder := &stubEmbedder{vector: []float32{1, 0, 0}}
		index := &stubIndex{}
		svc := newTestService(embedder, index)

		_, err := svc.Search(context.Background(), SearchRequest{Text: "q", TopK: tt.topK}, "secret")
		require.NoError(t, err)
		assert.Equal(t, tt.want, index.lastLimit, "top_k=%d", tt.topK)
		assert.GreaterOrEqual(t, index.lastLimit, uint64(1))
		assert.LessOrEqual(t, index.lastLimit, uint64(30))
	}
}

func TestSearchEmbeddingFailure(t *testing.T) {
	embedder := &stubEmbedder{err: errors.New("model exploded")}
	index := &stubIndex{}
	svc := newTestService(embedder, index)

	_, err := svc.Search(context.Background(), SearchRequest{Text: "q"}, "secret")

	var appErr *Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, KindEmbedding, appErr.Kind)
	assert.Contains(t, appErr.Detail, "Embedding failed: model exploded")
	assert.Equal(t, int64(0), index.calls.Load())
}

func TestSearchIndexFailure(t *testing.T) {
	embedder := &stubEmbedder{vector: []float32{1, 0, 0}}
	index := &stubIndex{err: errors.New("grpc timeout")}
	svc := newTestService(embedder, index)

	_, err := svc.Search(context.Background(), SearchRequest{Text: "q"}, "secret")

	var appErr *Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, KindSearch, appErr.Kind)
	assert.Contains(t, appErr.Detail, "Qdrant search failed")
}

func TestSearchIndexUnavailable(t *testing.T) {
	embedder := &stubEmbedder{vector: []float32{1, 0, 0}}
	index := &stubIndex{err: storage.ErrIndexUnavailable}
	svc := newTestService(embedder, index)

	_, err := svc.Search(context.Background(), SearchRequest{Text: "q"}, "secret")

	var appErr *Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, KindIndexUnavailable, appErr.Kind)
}

func TestSearchEmbedderInitFailure(t *testing.T) {
	embedder := &stubEmbedder{initErr: errors.New("weights missing")}
	index := &stubIndex{}
	svc := newTestService(embedder, index)

	_, err := svc.Search(context.Background(), SearchRequest{Text: "q"}, "secret")

	var appErr *Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, KindMisconfigured, appErr.Kind)
	assert.Equal(t, int64(0), embedder.calls.Load())
	assert.Equal(t, int64(0), index.calls.Load())
}
