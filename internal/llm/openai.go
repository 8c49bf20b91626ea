package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
)

// 兼容OpenAI协议的Groq端点
const defaultGroqEndpoint = "https://api.groq.com/openai/v1"

// OpenAIClient 兼容OpenAI协议的聊天客户端
// 用于Groq、OpenAI以及其他兼容端点
type OpenAIClient struct {
	client *openai.Client
	config *Config
}

// NewOpenAIClient 创建OpenAI兼容客户端
func NewOpenAIClient(opts ...Option) (Client, error) {
	cfg := NewConfig(opts...)

	if cfg.APIKey == "" {
		return nil, NewLLMError(ErrCodeInvalidAPIKey, ErrMsgInvalidAPIKey)
	}
	if cfg.Model == "" {
		cfg.Model = ModelLlama31Instant
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = defaultGroqEndpoint
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

// Chat 发送一次聊天补全请求
func (c *OpenAIClient) Chat(ctx context.Context, messages []Message, options ...ChatOption) (*Response, error) {
	if len(messages) == 0 {
		return nil, NewLLMError(ErrCodeInvalidRequest, "messages cannot be empty")
	}

	opts := resolveChatOptions(c.config, options)

	req := openai.ChatCompletionRequest{
		Model:    c.config.Model,
		Messages: make([]openai.ChatCompletionMessage, len(messages)),
	}
	for i, m := range messages {
		req.Messages[i] = openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content}
	}
	if opts.MaxTokens != nil {
		req.MaxTokens = *opts.MaxTokens
	}
	if opts.Temperature != nil {
		req.Temperature = *opts.Temperature
	}
	if opts.TopP != nil {
		req.TopP = *opts.TopP
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, NewLLMError(ErrCodeEmptyResponse, ErrMsgEmptyResponse)
	}

	return &Response{
		Text:         resp.Choices[0].Message.Content,
		TokenCount:   resp.Usage.TotalTokens,
		ModelName:    resp.Model,
		FinishReason: string(resp.Choices[0].FinishReason),
		FinishTime:   time.Now(),
	}, nil
}

// classifyOpenAIError 将SDK错误映射为LLMError
func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		msg := fmt.Sprintf("API error (status %d): %s", apiErr.HTTPStatusCode, apiErr.Message)
		return NewLLMError(statusToCode(apiErr.HTTPStatusCode, fmt.Sprint(apiErr.Code)), msg)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return NewLLMError(statusToCode(reqErr.HTTPStatusCode, ""), reqErr.Error())
	}

	return WrapError(err, ErrCodeNetworkError)
}

func init() {
	RegisterClient("openai", NewOpenAIClient)
}
