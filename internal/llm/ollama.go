package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

const defaultOllamaURL = "http://localhost:11434"

// OllamaClient 本地Ollama聊天客户端
type OllamaClient struct {
	llm    *ollama.LLM
	config *Config
}

// NewOllamaClient 创建Ollama客户端，不需要API密钥
func NewOllamaClient(opts ...Option) (Client, error) {
	cfg := NewConfig(opts...)
	if cfg.Model == "" {
		cfg.Model = ModelLlama32
	}

	serverURL := cfg.BaseURL
	if serverURL == "" {
		serverURL = defaultOllamaURL
	}

	llm, err := ollama.New(
		ollama.WithServerURL(serverURL),
		ollama.WithModel(cfg.Model),
		ollama.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	)
	if err != nil {
		return nil, NewLLMError(ErrCodeInvalidRequest, fmt.Sprintf("failed to create ollama client: %v", err))
	}

	return &OllamaClient{llm: llm, config: cfg}, nil
}

// Name 返回模型名称
func (c *OllamaClient) Name() string {
	return c.config.Model
}

// Chat 调用Ollama生成回复
func (c *OllamaClient) Chat(ctx context.Context, messages []Message, options ...ChatOption) (*Response, error) {
	if len(messages) == 0 {
		return nil, NewLLMError(ErrCodeInvalidRequest, "messages cannot be empty")
	}

	opts := resolveChatOptions(c.config, options)
	callOpts := []llms.CallOption{}
	if opts.Temperature != nil {
		callOpts = append(callOpts, llms.WithTemperature(float64(*opts.Temperature)))
	}
	if opts.MaxTokens != nil {
		callOpts = append(callOpts, llms.WithMaxTokens(*opts.MaxTokens))
	}
	if opts.TopP != nil {
		callOpts = append(callOpts, llms.WithTopP(float64(*opts.TopP)))
	}

	msgContent := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		msgContent = append(msgContent, llms.MessageContent{
			Role:  toChatMessageType(m.Role),
			Parts: []llms.ContentPart{llms.TextContent{Text: m.Content}},
		})
	}

	res, err := c.llm.GenerateContent(ctx, msgContent, callOpts...)
	if err != nil {
		return nil, WrapError(err, ErrCodeNetworkError)
	}
	if len(res.Choices) == 0 {
		return nil, NewLLMError(ErrCodeEmptyResponse, ErrMsgEmptyResponse)
	}

	return &Response{
		Text:         res.Choices[0].Content,
		ModelName:    c.config.Model,
		FinishReason: res.Choices[0].StopReason,
		FinishTime:   time.Now(),
	}, nil
}

func toChatMessageType(role MessageRole) llms.ChatMessageType {
	switch role {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

func init() {
	RegisterClient("ollama", NewOllamaClient)
}
