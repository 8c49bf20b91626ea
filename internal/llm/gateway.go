package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// GatewayConfig 网关配置
type GatewayConfig struct {
	Timeout     time.Duration // 单次调用超时
	MaxTokens   int           // 最大生成Token数
	Temperature float32       // 采样温度
}

// DefaultGatewayConfig 默认网关配置
func DefaultGatewayConfig() *GatewayConfig {
	return &GatewayConfig{
		Timeout:     60 * time.Second,
		MaxTokens:   2000,
		Temperature: 0.3,
	}
}

// GatewayOption 网关配置选项
type GatewayOption func(*Gateway)

// WithGatewayTimeout 设置单次调用超时
func WithGatewayTimeout(timeout time.Duration) GatewayOption {
	return func(g *Gateway) {
		g.config.Timeout = timeout
	}
}

// WithGatewayMaxTokens 设置最大生成Token数
func WithGatewayMaxTokens(tokens int) GatewayOption {
	return func(g *Gateway) {
		g.config.MaxTokens = tokens
	}
}

// WithGatewayTemperature 设置采样温度
func WithGatewayTemperature(temp float32) GatewayOption {
	return func(g *Gateway) {
		g.config.Temperature = temp
	}
}

// WithGatewayLogger 设置日志记录器
func WithGatewayLogger(logger *logrus.Logger) GatewayOption {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// Gateway 大模型网关
// 每次调用是一次无状态的同步往返，不做重试
type Gateway struct {
	client Client
	config *GatewayConfig
	logger *logrus.Logger
}

// NewGateway 基于客户端创建网关
func NewGateway(client Client, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		client: client,
		config: DefaultGatewayConfig(),
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name 返回底层模型名称
func (g *Gateway) Name() string {
	return g.client.Name()
}

// Complete 用系统提示和用户提示完成一次生成
// 传输、鉴权、配额和超时失败返回 *GatewayError，空回复返回 *ModelError
func (g *Gateway) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if strings.TrimSpace(userPrompt) == "" {
		return "", &GatewayError{
			Provider: g.client.Name(),
			Code:     ErrCodeEmptyPrompt,
			Err:      NewLLMError(ErrCodeEmptyPrompt, ErrMsgEmptyPrompt),
		}
	}

	if g.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.config.Timeout)
		defer cancel()
	}

	messages := make([]Message, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: systemPrompt})
	}
	messages = append(messages, Message{Role: RoleUser, Content: userPrompt})

	start := time.Now()
	resp, err := g.client.Chat(ctx, messages,
		WithChatMaxTokens(g.config.MaxTokens),
		WithChatTemperature(g.config.Temperature),
	)
	if err != nil {
		classified := g.classify(ctx, err)
		g.logger.WithFields(logrus.Fields{
			"model":   g.client.Name(),
			"elapsed": time.Since(start).String(),
		}).WithError(classified).Warn("LLM call failed")
		return "", classified
	}

	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		return "", &ModelError{Provider: g.client.Name(), Message: ErrMsgEmptyResponse}
	}

	g.logger.WithFields(logrus.Fields{
		"model":   g.client.Name(),
		"tokens":  resp.TokenCount,
		"elapsed": time.Since(start).String(),
	}).Debug("LLM call completed")

	return strings.TrimSpace(resp.Text), nil
}

// classify 将客户端错误归类为网关错误或模型错误
func (g *Gateway) classify(ctx context.Context, err error) error {
	provider := g.client.Name()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return &GatewayError{Provider: provider, Code: ErrCodeTimeout, Err: err}
	}

	var llmErr LLMError
	if errors.As(err, &llmErr) {
		if llmErr.Code == ErrCodeEmptyResponse {
			return &ModelError{Provider: provider, Message: llmErr.Message}
		}
		return &GatewayError{Provider: provider, Code: llmErr.Code, Err: err}
	}

	return &GatewayError{Provider: provider, Code: ErrCodeNetworkError, Err: err}
}
