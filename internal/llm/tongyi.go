package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// 通义千问API端点
	defaultTongyiEndpoint = "https://dashscope.aliyuncs.com/api/v1/services/aigc/text-generation/generation"
)

// TongyiRequest 通义千问请求结构
type TongyiRequest struct {
	Model      string              `json:"model"`                // 模型名称
	Input      *TongyiRequestInput `json:"input"`                // 输入内容
	Parameters *TongyiParameters   `json:"parameters,omitempty"` // 可选参数
}

// TongyiRequestInput 请求输入内容
type TongyiRequestInput struct {
	Messages []Message `json:"messages"` // 消息列表
}

// TongyiParameters 请求参数
type TongyiParameters struct {
	Temperature  *float32 `json:"temperature,omitempty"` // 采样温度
	TopP         *float32 `json:"top_p,omitempty"`       // 核采样概率阈值
	MaxTokens    *int     `json:"max_tokens,omitempty"`  // 最大生成Token数
	ResultFormat string   `json:"result_format,omitempty"`
}

// TongyiResponse 通义千问响应结构
type TongyiResponse struct {
	RequestID string       `json:"request_id"` // 请求ID
	Code      string       `json:"code"`       // 错误码(如果有)
	Message   string       `json:"message"`    // 错误消息(如果有)
	Output    TongyiOutput `json:"output"`     // 输出结果
	Usage     TongyiUsage  `json:"usage"`      // 资源使用情况
}

// TongyiOutput 输出结构
type TongyiOutput struct {
	Text    *string        `json:"text"`    // 文本输出(当result_format为text时)
	Choices []TongyiChoice `json:"choices"` // 选择列表(当result_format为message时)
}

// TongyiChoice 输出选择
type TongyiChoice struct {
	FinishReason string  `json:"finish_reason"` // 结束原因
	Message      Message `json:"message"`       // 消息内容
}

// TongyiUsage 资源使用情况
type TongyiUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// TongyiClient 通义千问大模型客户端实现
type TongyiClient struct {
	config     *Config
	baseURL    string
	httpClient *http.Client
}

// NewTongyiClient 创建新的通义千问大模型客户端
func NewTongyiClient(opts ...Option) (Client, error) {
	cfg := NewConfig(opts...)

	if cfg.APIKey == "" {
		return nil, NewLLMError(ErrCodeInvalidAPIKey, ErrMsgInvalidAPIKey)
	}
	if cfg.Model == "" {
		cfg.Model = ModelQwenTurbo
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultTongyiEndpoint
	}

	return &TongyiClient{
		config:     cfg,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Name 返回模型名称
func (c *TongyiClient) Name() string {
	return c.config.Model
}

// Chat 发送一次对话请求，不做重试
func (c *TongyiClient) Chat(ctx context.Context, messages []Message, options ...ChatOption) (*Response, error) {
	if len(messages) == 0 {
		return nil, NewLLMError(ErrCodeInvalidRequest, "messages cannot be empty")
	}

	opts := resolveChatOptions(c.config, options)
	req := &TongyiRequest{
		Model: c.config.Model,
		Input: &TongyiRequestInput{
			Messages: messages,
		},
		Parameters: &TongyiParameters{
			Temperature:  opts.Temperature,
			TopP:         opts.TopP,
			MaxTokens:    opts.MaxTokens,
			ResultFormat: "message",
		},
	}

	resp, err := c.sendRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	return c.processResponse(resp)
}

// sendRequest 发送API请求并解析响应
func (c *TongyiClient) sendRequest(ctx context.Context, req *TongyiRequest) (*TongyiResponse, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, NewLLMError(ErrCodeInvalidRequest, fmt.Sprintf("failed to marshal request: %v", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(jsonData))
	if err != nil {
		return nil, NewLLMError(ErrCodeInvalidRequest, fmt.Sprintf("failed to create request: %v", err))
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return nil, NewLLMError(ErrCodeTimeout, err.Error())
		}
		return nil, NewLLMError(ErrCodeNetworkError, fmt.Sprintf("request failed: %v", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewLLMError(ErrCodeNetworkError, fmt.Sprintf("failed to read response: %v", err))
	}

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		message := string(body)
		if jsonErr := json.Unmarshal(body, &errResp); jsonErr == nil && errResp.Message != "" {
			message = fmt.Sprintf("%s (%s)", errResp.Message, errResp.Code)
		}
		return nil, NewLLMError(statusToCode(resp.StatusCode, errResp.Code),
			fmt.Sprintf("API error (status %d): %s", resp.StatusCode, message))
	}

	var tongyiResp TongyiResponse
	if err := json.Unmarshal(body, &tongyiResp); err != nil {
		return nil, NewLLMError(ErrCodeEmptyResponse, fmt.Sprintf("failed to parse response: %v", err))
	}

	if tongyiResp.Code != "" {
		return nil, NewLLMError(ErrCodeServerError,
			fmt.Sprintf("API error: %s (%s)", tongyiResp.Message, tongyiResp.Code))
	}

	return &tongyiResp, nil
}

// processResponse 处理通义千问的响应
func (c *TongyiClient) processResponse(resp *TongyiResponse) (*Response, error) {
	result := &Response{
		ModelName:  c.config.Model,
		TokenCount: resp.Usage.TotalTokens,
		FinishTime: time.Now(),
	}

	switch {
	case resp.Output.Text != nil:
		result.Text = *resp.Output.Text
	case len(resp.Output.Choices) > 0:
		choice := resp.Output.Choices[0]
		result.Text = choice.Message.Content
		result.FinishReason = choice.FinishReason
	default:
		return nil, NewLLMError(ErrCodeEmptyResponse, ErrMsgEmptyResponse)
	}

	return result, nil
}

// statusToCode 将HTTP状态码映射为错误码
func statusToCode(status int, apiCode string) int {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrCodeInvalidAPIKey
	case status == http.StatusTooManyRequests:
		return ErrCodeRateLimited
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return ErrCodeTimeout
	case status == http.StatusServiceUnavailable:
		return ErrCodeModelOverload
	case status >= 500:
		return ErrCodeServerError
	case strings.Contains(strings.ToLower(apiCode), "datainspection"):
		return ErrCodeContentFilter
	default:
		return ErrCodeInvalidRequest
	}
}

// 在包初始化时注册通义千问客户端
func init() {
	RegisterClient("tongyi", NewTongyiClient)
}
