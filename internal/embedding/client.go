package embedding

import (
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Client wraps the OpenAI-compatible API client used for query embedding.
// Pointing BaseURL at a local inference server (TEI, vLLM, ...) lets the
// gateway serve models like bge-small-en-v1.5 that OpenAI does not host.
type Client struct {
	client *openai.Client
}

// NewClient creates the embedding API client. baseURL may be empty, in
// which case the OpenAI default endpoint is used. An empty apiKey is an
// error: every supported backend requires a credential.
func NewClient(baseURL, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("embedding API key not set")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(opts...)
	return &Client{client: &client}, nil
}
