package storage

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

// Dial returns a DialFunc that opens a gRPC session to Qdrant and
// verifies it with a health check. The returned connection is not
// usable for search until LoadCollection succeeds.
func Dial(host string, port int, apiKey string) DialFunc {
	return func(ctx context.Context) (Conn, error) {
		client, err := qdrant.NewClient(&qdrant.Config{
			Host:   host,
			Port:   port,
			APIKey: apiKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create qdrant client: %w", err)
		}

		result, err := client.HealthCheck(ctx)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("health check failed: %w", err)
		}
		if result == nil || result.Title == "" {
			client.Close()
			return nil, fmt.Errorf("health check returned invalid response")
		}

		return &qdrantConn{client: client}, nil
	}
}

// qdrantConn wraps the Qdrant client for one named collection.
type qdrantConn struct {
	client     *qdrant.Client
	collection string
}

// LoadCollection verifies the collection exists and remembers its name
// for subsequent searches. Qdrant keeps loaded collections server-side,
// so existence is the whole load step here.
func (c *qdrantConn) LoadCollection(ctx context.Context, name string) error {
	collections, err := c.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	for _, existing := range collections {
		if existing == name {
			c.collection = name
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
}

// Search runs a nearest-neighbor query. The similarity metric is a
// property of the collection (cosine for the ingest-side schema); ef
// controls the HNSW search quality.
func (c *qdrantConn) Search(ctx context.Context, vector []float32, limit uint64) ([]Hit, error) {
	ef := uint64(searchEf)

	results, err := c.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: c.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(limit),
		Params:         &qdrant.SearchParams{HnswEf: &ef},
		WithPayload:    qdrant.NewWithPayloadInclude(payloadFields...),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, result := range results {
		payload := result.Payload
		hits = append(hits, Hit{
			Score:      float64(result.Score),
			DocID:      payload["doc_id"].GetStringValue(),
			Title:      payload["title"].GetStringValue(),
			ChunkIndex: int(payload["chunk_index"].GetIntegerValue()),
			Text:       payload["text"].GetStringValue(),
		})
	}

	return hits, nil
}

func (c *qdrantConn) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
