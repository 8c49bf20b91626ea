package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClient 兼容OpenAI协议的嵌入客户端
// 通义千问compatible-mode等兼容端点也走这里
type OpenAIClient struct {
	client *openai.Client
	config *Config
}

// NewOpenAIClient 创建一个新的OpenAI嵌入客户端
func NewOpenAIClient(opts ...Option) (Client, error) {
	cfg := NewConfig(opts...)

	if cfg.APIKey == "" {
		return nil, NewEmbeddingError(ErrCodeInvalidAPIKey, ErrMsgInvalidAPIKey)
	}
	if cfg.Model == "" {
		cfg.Model = string(openai.SmallEmbedding3)
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
	}, nil
}

// Name 返回模型名称
func (c *OpenAIClient) Name() string {
	return c.config.Model
}

// Embed 对单个文本生成嵌入向量
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, NewEmbeddingError(ErrCodeServerError, "no embedding vectors returned")
	}
	return vectors[0], nil
}

// EmbedBatch 对多个文本生成嵌入向量
// 空文本对应的位置返回nil
func (c *OpenAIClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if c.config.BatchSize > 0 && len(texts) > c.config.BatchSize {
		return nil, ErrBatchTooLarge
	}

	// 过滤空文本，记录原始位置
	input := make([]string, 0, len(texts))
	positions := make([]int, 0, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) != "" {
			input = append(input, text)
			positions = append(positions, i)
		}
	}

	results := make([][]float32, len(texts))
	if len(input) == 0 {
		return results, nil
	}

	req := openai.EmbeddingRequest{
		Input: input,
		Model: openai.EmbeddingModel(c.config.Model),
	}
	if c.config.Dimensions > 0 && strings.HasPrefix(c.config.Model, "text-embedding-3") {
		req.Dimensions = c.config.Dimensions
	}

	var (
		resp openai.EmbeddingResponse
		err  error
	)
	for attempt := 0; ; attempt++ {
		resp, err = c.client.CreateEmbeddings(ctx, req)
		if err == nil {
			break
		}

		embErr := classifyError(err)
		if embErr.Code != ErrCodeRateLimited || attempt >= c.config.MaxRetries {
			return nil, fmt.Errorf("batch embedding API error: %w", embErr)
		}

		// 指数退避策略
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(1<<attempt) * 500 * time.Millisecond):
		}
	}

	for _, data := range resp.Data {
		if data.Index < 0 || data.Index >= len(positions) {
			return nil, NewEmbeddingError(ErrCodeServerError, fmt.Sprintf("unexpected embedding index %d", data.Index))
		}
		results[positions[data.Index]] = data.Embedding
	}

	return results, nil
}

// classifyError 将SDK错误映射为嵌入错误
func classifyError(err error) EmbeddingError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return NewEmbeddingError(ErrCodeInvalidAPIKey, apiErr.Message)
		case http.StatusTooManyRequests:
			return NewEmbeddingError(ErrCodeRateLimited, apiErr.Message)
		case http.StatusBadRequest:
			return NewEmbeddingError(ErrCodeInvalidRequest, apiErr.Message)
		default:
			return NewEmbeddingError(ErrCodeServerError, apiErr.Message)
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return NewEmbeddingError(ErrCodeServerError, reqErr.Error())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewEmbeddingError(ErrCodeTimeout, ErrMsgTimeout)
	}
	return NewEmbeddingError(ErrCodeNetworkError, err.Error())
}

// 在包初始化时注册OpenAI客户端
func init() {
	RegisterClient("openai", NewOpenAIClient)
}
