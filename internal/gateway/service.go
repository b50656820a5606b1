// Package gateway implements the query-serving path: credential-gated
// request handling, embedding invocation, vector search, and result
// assembly.
package gateway

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/bull/rag-gateway/internal/config"
	"github.com/bull/rag-gateway/internal/metrics"
	"github.com/bull/rag-gateway/internal/storage"
)

const (
	// ServiceName identifies the gateway in the root endpoint.
	ServiceName = "rag-retrieval"

	// healthVersion tags the liveness payload so deploys are
	// distinguishable from the outside.
	healthVersion = "health-v4"

	defaultTopK = 12
	maxTopK     = 30
)

// Embedder produces one vector per query string.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	// InitError reports a permanent construction failure, nil if usable.
	InitError() error
}

// Index runs nearest-neighbor searches against the vector store.
type Index interface {
	Search(ctx context.Context, vector []float32, limit uint64) ([]storage.Hit, error)
}

// SearchRequest is the /search body. TopK zero means "not provided".
type SearchRequest struct {
	Text string `json:"text"`
	TopK int    `json:"top_k"`
}

// Service orchestrates authenticate -> validate -> embed -> search.
// It is constructed once at process start; all fields are read-only
// afterwards, so it is safe for concurrent request handling.
type Service struct {
	cfg      *config.Config
	embedder Embedder
	index    Index
	metrics  *metrics.Metrics
	log      *zap.Logger
}

// NewService wires the query service. metrics may be nil (tests).
func NewService(cfg *config.Config, embedder Embedder, index Index, m *metrics.Metrics, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		cfg:      cfg,
		embedder: embedder,
		index:    index,
		metrics:  m,
		log:      log,
	}
}

// authenticate compares the presented key against the configured one.
// A blank configured key is a deployment error, never "allow all".
func (s *Service) authenticate(presentedKey string) error {
	if s.cfg.APIKey == "" {
		return E(KindMisconfigured, "Server missing RAG_API_KEY")
	}
	if presentedKey != s.cfg.APIKey {
		return E(KindUnauthorized, "Unauthorized")
	}
	return nil
}

// RequireConfigured reports whether the process is capable of serving.
// It is cheap: config checks plus the embedder's recorded init state,
// no network I/O.
func (s *Service) RequireConfigured() error {
	if err := s.cfg.Validate(); err != nil {
		return E(KindMisconfigured, "%v", err)
	}
	if err := s.embedder.InitError(); err != nil {
		return E(KindMisconfigured, "Embedding model failed to load: %v", err)
	}
	return nil
}

// validate trims and bounds the request. TopK is clamped into
// [1, maxTopK] without erroring; an absent TopK gets the default.
func (s *Service) validate(req SearchRequest) (string, int, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return "", 0, E(KindBadRequest, "Missing text")
	}
	if utf8.RuneCountInString(text) > s.cfg.MaxQueryChars {
		return "", 0, E(KindPayloadTooLarge, "Query too long")
	}

	topK := req.TopK
	if topK == 0 {
		topK = defaultTopK
	}
	if topK < 1 {
		topK = 1
	}
	if topK > maxTopK {
		topK = maxTopK
	}

	return text, topK, nil
}

// Search runs the full query path. All auth and validation failures
// return before any embedding or index work happens; downstream
// failures are rewrapped with the failing stage's name. Hits come back
// in index order.
func (s *Service) Search(ctx context.Context, req SearchRequest, presentedKey string) ([]storage.Hit, error) {
	if err := s.authenticate(presentedKey); err != nil {
		return nil, err
	}
	if err := s.RequireConfigured(); err != nil {
		return nil, err
	}

	text, topK, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	vector, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		s.countFailure("embed")
		return nil, E(KindEmbedding, "Embedding failed: %v", err)
	}

	hits, err := s.index.Search(ctx, vector, uint64(topK))
	if err != nil {
		if errors.Is(err, storage.ErrIndexUnavailable) {
			s.countFailure("connect")
			return nil, E(KindIndexUnavailable, "Qdrant unavailable: %v", err)
		}
		s.countFailure("search")
		return nil, E(KindSearch, "Qdrant search failed: %v", err)
	}

	if hits == nil {
		hits = []storage.Hit{}
	}
	if s.metrics != nil {
		s.metrics.ObserveHits(len(hits))
	}

	s.log.Debug("search served",
		zap.Int("top_k", topK),
		zap.Int("hits", len(hits)),
	)
	return hits, nil
}

func (s *Service) countFailure(stage string) {
	if s.metrics != nil {
		s.metrics.IncFailure(stage)
	}
}
