package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
)

const defaultOllamaURL = "http://localhost:11434"

// OllamaClient 通过本地Ollama服务生成向量
type OllamaClient struct {
	embedder *embeddings.EmbedderImpl
	model    string
}

// NewOllamaClient 创建Ollama嵌入客户端
func NewOllamaClient(opts ...Option) (Client, error) {
	cfg := NewConfig(opts...)

	if cfg.Model == "" {
		cfg.Model = "all-minilm"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	serverURL := cfg.BaseURL
	if serverURL == "" {
		serverURL = defaultOllamaURL
	}

	llm, err := ollama.New(
		ollama.WithServerURL(serverURL),
		ollama.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(llm,
		embeddings.WithBatchSize(cfg.BatchSize),
		embeddings.WithStripNewLines(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama embedder: %w", err)
	}

	return &OllamaClient{embedder: embedder, model: cfg.Model}, nil
}

// Name 返回模型名称
func (c *OllamaClient) Name() string {
	return c.model
}

// Embed 生成单条文本的向量
func (c *OllamaClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	vec, err := c.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, NewEmbeddingError(ErrCodeServerError, err.Error())
	}
	return vec, nil
}

// EmbedBatch 批量生成向量，空文本位置返回nil
func (c *OllamaClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))

	input := make([]string, 0, len(texts))
	positions := make([]int, 0, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) != "" {
			input = append(input, text)
			positions = append(positions, i)
		}
	}
	if len(input) == 0 {
		return results, nil
	}

	vectors, err := c.embedder.EmbedDocuments(ctx, input)
	if err != nil {
		return nil, NewEmbeddingError(ErrCodeServerError, err.Error())
	}
	if len(vectors) != len(input) {
		return nil, NewEmbeddingError(ErrCodeServerError,
			fmt.Sprintf("expected %d vectors, got %d", len(input), len(vectors)))
	}

	for i, vec := range vectors {
		results[positions[i]] = vec
	}
	return results, nil
}

func init() {
	RegisterClient("ollama", NewOllamaClient)
}
