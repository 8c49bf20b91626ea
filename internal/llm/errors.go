package llm

import (
	"context"
	"errors"
	"fmt"
)

// LLMError 大模型调用错误类型
type LLMError struct {
	Code    int    // 错误码
	Message string // 错误消息
}

// Error 实现error接口
func (e LLMError) Error() string {
	return fmt.Sprintf("llm error (code=%d): %s", e.Code, e.Message)
}

// 错误码常量
const (
	ErrCodeInvalidAPIKey  = 1001 // 无效的API密钥
	ErrCodeInvalidRequest = 1002 // 无效的请求
	ErrCodeNetworkError   = 1003 // 网络连接错误
	ErrCodeRateLimited    = 1004 // 请求频率超限
	ErrCodeServerError    = 1005 // 服务器错误
	ErrCodeTimeout        = 1006 // 请求超时
	ErrCodeEmptyPrompt    = 1007 // 提示词为空
	ErrCodeContentFilter  = 1008 // 内容安全过滤
	ErrCodeModelOverload  = 1009 // 模型过载
	ErrCodeContextTooLong = 1010 // 上下文过长
	ErrCodeEmptyResponse  = 1011 // 模型没有返回内容
)

// 错误消息常量
const (
	ErrMsgInvalidAPIKey  = "invalid API key"
	ErrMsgInvalidRequest = "invalid request parameters"
	ErrMsgRateLimited    = "too many requests, rate limit exceeded"
	ErrMsgServerError    = "server error occurred"
	ErrMsgTimeout        = "request timed out"
	ErrMsgEmptyPrompt    = "prompt cannot be empty"
	ErrMsgNetworkError   = "network connection error"
	ErrMsgContentFilter  = "content filtered due to safety concerns"
	ErrMsgModelOverload  = "model is currently overloaded"
	ErrMsgContextTooLong = "context length exceeds model's maximum"
	ErrMsgEmptyResponse  = "empty response from model"
)

// NewLLMError 创建新的大模型错误
func NewLLMError(code int, message string) LLMError {
	return LLMError{
		Code:    code,
		Message: message,
	}
}

// WrapError 包装普通错误为LLM错误
func WrapError(err error, code int) LLMError {
	if err == nil {
		return LLMError{Code: code, Message: "unknown error"}
	}

	var llmErr LLMError
	if errors.As(err, &llmErr) {
		return llmErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return LLMError{Code: ErrCodeTimeout, Message: err.Error()}
	}

	return LLMError{
		Code:    code,
		Message: err.Error(),
	}
}

// GatewayError 一次调用在传输层失败：网络、鉴权、配额或超时
type GatewayError struct {
	Provider string // 提供商或模型名称
	Code     int    // LLMError错误码
	Err      error  // 底层错误
}

// Error 实现error接口
func (e *GatewayError) Error() string {
	return fmt.Sprintf("llm gateway %s (code=%d): %v", e.Provider, e.Code, e.Err)
}

// Unwrap 返回底层错误
func (e *GatewayError) Unwrap() error {
	return e.Err
}

// Retryable 判断该错误重试是否可能成功
func (e *GatewayError) Retryable() bool {
	switch e.Code {
	case ErrCodeNetworkError, ErrCodeRateLimited, ErrCodeServerError, ErrCodeTimeout, ErrCodeModelOverload:
		return true
	default:
		return false
	}
}

// ModelError 模型返回了空的或无法使用的内容
type ModelError struct {
	Provider string
	Message  string
}

// Error 实现error接口
func (e *ModelError) Error() string {
	return fmt.Sprintf("llm model %s: %s", e.Provider, e.Message)
}

// IsGatewayError 判断是否为网关错误
func IsGatewayError(err error) bool {
	var gwErr *GatewayError
	return errors.As(err, &gwErr)
}

// IsModelError 判断是否为模型错误
func IsModelError(err error) bool {
	var modelErr *ModelError
	return errors.As(err, &modelErr)
}
