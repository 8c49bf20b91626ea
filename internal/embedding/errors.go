package embedding

import (
	"errors"
	"fmt"
)

// EmbeddingError 嵌入错误类型
type EmbeddingError struct {
	Code    int    // 错误码
	Message string // 错误消息
}

// Error 实现error接口
func (e EmbeddingError) Error() string {
	return fmt.Sprintf("embedding error (code=%d): %s", e.Code, e.Message)
}

// 错误码常量
const (
	ErrCodeInvalidAPIKey  = 1001 // 无效的API密钥
	ErrCodeInvalidRequest = 1002 // 无效的请求
	ErrCodeNetworkError   = 1003 // 网络连接错误
	ErrCodeRateLimited    = 1004 // 请求频率超限
	ErrCodeServerError    = 1005 // 服务器错误
	ErrCodeTimeout        = 1006 // 请求超时
	ErrCodeEmptyInput     = 1007 // 输入为空
	ErrCodeDegenerate     = 1008 // 文本没有可嵌入的内容
	ErrCodeBatchTooLarge  = 1009 // 批量过大
)

// 错误消息常量
const (
	ErrMsgInvalidAPIKey  = "invalid API key"
	ErrMsgInvalidRequest = "invalid request parameters"
	ErrMsgRateLimited    = "too many requests, rate limit exceeded"
	ErrMsgServerError    = "server error occurred"
	ErrMsgTimeout        = "request timed out"
	ErrMsgEmptyInput     = "input text cannot be empty"
	ErrMsgNetworkError   = "network connection error"
	ErrMsgDegenerate     = "text has no embeddable tokens"
	ErrMsgBatchTooLarge  = "batch exceeds configured size"
)

var (
	// ErrEmptyText 空文本
	ErrEmptyText = NewEmbeddingError(ErrCodeEmptyInput, ErrMsgEmptyInput)
	// ErrDegenerateText 文本中没有可用的词
	ErrDegenerateText = NewEmbeddingError(ErrCodeDegenerate, ErrMsgDegenerate)
	// ErrBatchTooLarge 批量超过上限
	ErrBatchTooLarge = NewEmbeddingError(ErrCodeBatchTooLarge, ErrMsgBatchTooLarge)
	// ErrRateLimited 被限流
	ErrRateLimited = NewEmbeddingError(ErrCodeRateLimited, ErrMsgRateLimited)
)

// NewEmbeddingError 创建新的嵌入错误
func NewEmbeddingError(code int, message string) EmbeddingError {
	return EmbeddingError{
		Code:    code,
		Message: message,
	}
}

// ErrorCode 返回错误码，非嵌入错误返回0
func ErrorCode(err error) int {
	var embErr EmbeddingError
	if errors.As(err, &embErr) {
		return embErr.Code
	}
	return 0
}
