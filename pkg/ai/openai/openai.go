// Package openai implements the ai client contracts against any
// OpenAI-compatible API. Embedding and chat traffic may target different
// endpoints with different credentials.
package openai

import (
	"sync"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/semaphore"

	"github.com/lattice-kb/lattice/pkg/ai"
)

// Client talks to OpenAI-compatible endpoints for embeddings and chat.
// Create it with NewClient.
type Client struct {
	embeddingModel string
	chatModel      string

	embeddingURL string
	chatURL      string

	timeoutMin    int
	embeddingLock *semaphore.Weighted

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	ChatClient      *openai.Client
	EmbeddingClient *openai.Client
}

// NewClientParams configures a Client. Empty URLs fall back to the official
// OpenAI endpoint; an empty key leaves that sub-client nil.
type NewClientParams struct {
	EmbeddingModel string
	ChatModel      string

	EmbeddingURL string
	EmbeddingKey string
	ChatURL      string
	ChatKey      string

	RequestTimeoutMin              int
	MaxConcurrentEmbeddingRequests int64
}

// NewClient creates a Client with separate sub-clients for embeddings and
// chat so the two workloads can live on different providers.
func NewClient(params NewClientParams) *Client {
	if params.RequestTimeoutMin <= 0 {
		params.RequestTimeoutMin = 5
	}
	if params.MaxConcurrentEmbeddingRequests <= 0 {
		params.MaxConcurrentEmbeddingRequests = 4
	}

	return &Client{
		embeddingModel: params.EmbeddingModel,
		chatModel:      params.ChatModel,

		embeddingURL: params.EmbeddingURL,
		chatURL:      params.ChatURL,

		timeoutMin:    params.RequestTimeoutMin,
		embeddingLock: semaphore.NewWeighted(params.MaxConcurrentEmbeddingRequests),

		ChatClient:      newOpenaiClient(params.ChatURL, params.ChatKey),
		EmbeddingClient: newOpenaiClient(params.EmbeddingURL, params.EmbeddingKey),
	}
}

func newOpenaiClient(baseURL string, apiKey string) *openai.Client {
	if apiKey == "" {
		return nil
	}
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(options...)

	return &client
}

func (c *Client) modifyMetrics(m ai.ModelMetrics) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	c.metrics.InputTokens += m.InputTokens
	c.metrics.OutputTokens += m.OutputTokens
	c.metrics.TotalTokens += m.TotalTokens
	c.metrics.DurationMs += m.DurationMs
}

// GetMetrics returns the cumulative usage metrics of this client.
func (c *Client) GetMetrics() ai.ModelMetrics {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	return c.metrics
}

// ResetMetrics zeroes the cumulative usage metrics.
func (c *Client) ResetMetrics() {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.metrics = ai.ModelMetrics{}
}
