package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

// GeminiClient Google Gemini 聊天客户端
type GeminiClient struct {
	client *genai.Client
	config *Config
}

// NewGeminiClient 创建Gemini客户端
func NewGeminiClient(opts ...Option) (Client, error) {
	cfg := NewConfig(opts...)

	if cfg.APIKey == "" {
		return nil, NewLLMError(ErrCodeInvalidAPIKey, ErrMsgInvalidAPIKey)
	}
	if cfg.Model == "" {
		cfg.Model = ModelGeminiFlash
	}

	clientConfig := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(context.Background(), clientConfig)
	if err != nil {
		return nil, NewLLMError(ErrCodeInvalidRequest, fmt.Sprintf("failed to create gemini client: %v", err))
	}

	return &GeminiClient{client: client, config: cfg}, nil
}

// Name 返回模型名称
func (c *GeminiClient) Name() string {
	return c.config.Model
}

// Chat 发送一次生成请求，系统提示放入SystemInstruction
func (c *GeminiClient) Chat(ctx context.Context, messages []Message, options ...ChatOption) (*Response, error) {
	system, rest := splitMessages(messages)
	if len(rest) == 0 {
		return nil, NewLLMError(ErrCodeInvalidRequest, "messages cannot be empty")
	}

	opts := resolveChatOptions(c.config, options)
	genConfig := &genai.GenerateContentConfig{
		Temperature: opts.Temperature,
		TopP:        opts.TopP,
	}
	if opts.MaxTokens != nil {
		genConfig.MaxOutputTokens = int32(*opts.MaxTokens)
	}
	if system != "" {
		genConfig.SystemInstruction = genai.Text(system)[0]
	}

	contents := make([]*genai.Content, 0, len(rest))
	for _, m := range rest {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.config.Model, contents, genConfig)
	if err != nil {
		return nil, classifyGeminiError(err)
	}
	if len(resp.Candidates) == 0 {
		return nil, NewLLMError(ErrCodeEmptyResponse, ErrMsgEmptyResponse)
	}

	result := &Response{
		Text:         resp.Text(),
		ModelName:    c.config.Model,
		FinishReason: strings.ToLower(string(resp.Candidates[0].FinishReason)),
		FinishTime:   time.Now(),
	}
	if resp.UsageMetadata != nil {
		result.TokenCount = int(resp.UsageMetadata.TotalTokenCount)
	}
	return result, nil
}

// classifyGeminiError 将Gemini错误映射为LLMError
func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return geminiAPIError(apiErr)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return geminiAPIError(*apiErrPtr)
	}
	return WrapError(err, ErrCodeNetworkError)
}

func geminiAPIError(apiErr genai.APIError) error {
	return NewLLMError(statusToCode(apiErr.Code, apiErr.Status),
		fmt.Sprintf("API error (status %d): %s", apiErr.Code, apiErr.Message))
}

func init() {
	RegisterClient("gemini", NewGeminiClient)
}
