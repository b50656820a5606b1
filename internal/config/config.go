// Package config resolves the gateway's process-wide configuration from
// environment variables. Values are read once at startup and never change
// for the life of the process.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	// DefaultCollection is the Qdrant collection searched by the gateway.
	DefaultCollection = "rag_chunks"

	// DefaultEmbedModel is the embedding model identifier.
	DefaultEmbedModel = "BAAI/bge-small-en-v1.5"

	// DefaultEmbedDim is the vector dimensionality of bge-small-en-v1.5.
	DefaultEmbedDim = 384

	// DefaultMaxQueryChars is the ceiling on trimmed query length.
	DefaultMaxQueryChars = 2000
)

// Config holds every runtime setting of the gateway. A missing required
// value is a permanent condition for the process; it is reported by
// /ready and /search, not treated as a per-request validation error.
type Config struct {
	// Qdrant endpoint as "host:port" (gRPC) and its credential.
	QdrantEndpoint string
	QdrantAPIKey   string
	Collection     string

	// Shared API key clients must present in X-Api-Key.
	APIKey string

	// Embedding backend: model id, OpenAI-compatible base URL (empty
	// means the OpenAI default), credential, and vector dimensionality.
	EmbedModel    string
	EmbedEndpoint string
	EmbedAPIKey   string
	EmbedDim      int

	MaxQueryChars int
	Port          string
	LogLevel      string
}

// New reads the configuration from the environment. All values are
// trimmed; defaults are applied for optional settings.
func New() *Config {
	return &Config{
		QdrantEndpoint: getenv("QDRANT_ENDPOINT", ""),
		QdrantAPIKey:   getenv("QDRANT_API_KEY", ""),
		Collection:     getenv("QDRANT_COLLECTION", DefaultCollection),
		APIKey:         getenv("RAG_API_KEY", ""),
		EmbedModel:     getenv("EMBED_MODEL", DefaultEmbedModel),
		EmbedEndpoint:  getenv("EMBED_ENDPOINT", ""),
		EmbedAPIKey:    getenv("EMBED_API_KEY", ""),
		EmbedDim:       getenvInt("EMBED_DIM", DefaultEmbedDim),
		MaxQueryChars:  getenvInt("MAX_QUERY_CHARS", DefaultMaxQueryChars),
		Port:           getenv("PORT", "8080"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
	}
}

// Validate reports whether the gateway is capable of serving search
// requests. It is cheap (no I/O) and safe to call on every request.
func (c *Config) Validate() error {
	if c.QdrantEndpoint == "" || c.QdrantAPIKey == "" {
		return fmt.Errorf("config: missing QDRANT_ENDPOINT or QDRANT_API_KEY")
	}
	// A blank shared key would mean either "reject everything" or
	// "allow all" depending on interpretation. Neither is acceptable
	// silently, so a blank key is a deployment error.
	if c.APIKey == "" {
		return fmt.Errorf("config: missing RAG_API_KEY")
	}
	if c.EmbedDim <= 0 {
		return fmt.Errorf("config: EMBED_DIM must be positive")
	}
	return nil
}

// QdrantHostPort splits the endpoint into host and gRPC port.
// A missing port falls back to Qdrant's default 6334.
func (c *Config) QdrantHostPort() (string, int) {
	host := c.QdrantEndpoint
	port := 6334
	if i := strings.LastIndex(host, ":"); i >= 0 {
		if n, err := strconv.Atoi(host[i+1:]); err == nil && n > 0 {
			port = n
			host = host[:i]
		}
	}
	return host, port
}

func getenv(key, defaultValue string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultValue
}

func getenvInt(key string, defaultValue int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}
