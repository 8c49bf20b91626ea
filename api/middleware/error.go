package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/fyerfyer/doc-assistant/api/model"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// 定义应用中的错误类型常量
const (
	ErrorTypeValidation  = "VALIDATION_ERROR"  // 输入验证错误
	ErrorTypeUnsupported = "UNSUPPORTED_ERROR" // 不支持的文件类型
	ErrorTypeExtraction  = "EXTRACTION_ERROR"  // 文档解析失败
	ErrorTypeIndex       = "INDEX_ERROR"       // 没有可检索的内容
	ErrorTypeUpstream    = "UPSTREAM_ERROR"    // 大模型调用失败
	ErrorTypeTimeout     = "TIMEOUT_ERROR"     // 处理超时
	ErrorTypeInternal    = "INTERNAL_ERROR"    // 内部服务器错误
)

// AppError 应用错误结构体
type AppError struct {
	Type    string // 错误类型
	Message string // 错误消息
	Details string // 详细错误信息
	Code    int    // HTTP状态码
	Err     error  // 原始错误
}

// Error 实现error接口的方法
func (e AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap 返回原始错误
func (e AppError) Unwrap() error {
	return e.Err
}

func newAppError(errType string, code int, message string, details []string) AppError {
	return AppError{
		Type:    errType,
		Message: message,
		Details: strings.Join(details, "; "),
		Code:    code,
	}
}

// NewValidationError 创建输入验证错误
func NewValidationError(message string, details ...string) AppError {
	return newAppError(ErrorTypeValidation, http.StatusBadRequest, message, details)
}

// NewUnsupportedError 创建不支持的文件类型错误
func NewUnsupportedError(message string, details ...string) AppError {
	return newAppError(ErrorTypeUnsupported, http.StatusUnsupportedMediaType, message, details)
}

// NewExtractionError 创建文档解析错误
func NewExtractionError(message string, details ...string) AppError {
	return newAppError(ErrorTypeExtraction, http.StatusBadRequest, message, details)
}

// NewIndexError 创建索引错误
func NewIndexError(message string, details ...string) AppError {
	return newAppError(ErrorTypeIndex, http.StatusUnprocessableEntity, message, details)
}

// NewUpstreamError 创建大模型调用错误
func NewUpstreamError(message string, details ...string) AppError {
	return newAppError(ErrorTypeUpstream, http.StatusBadGateway, message, details)
}

// NewTimeoutError 创建超时错误
func NewTimeoutError(message string, details ...string) AppError {
	return newAppError(ErrorTypeTimeout, http.StatusGatewayTimeout, message, details)
}

// NewInternalError 创建内部服务器错误
func NewInternalError(message string, details ...string) AppError {
	return newAppError(ErrorTypeInternal, http.StatusInternalServerError, message, details)
}

// ErrorMiddleware 统一错误处理中间件
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.WithFields(logrus.Fields{
					FieldError:   err,
					"stack":      string(debug.Stack()),
					FieldPath:    c.Request.URL.Path,
					FieldTraceID: GetTraceID(c),
				}).Error("Panic recovered in API request")

				errResp := model.NewErrorResponse(http.StatusInternalServerError, "An unexpected error occurred")
				if gin.Mode() == gin.DebugMode {
					errResp.Message = fmt.Sprintf("Panic: %v", err)
				}
				errResp.TraceID = GetTraceID(c)

				c.AbortWithStatusJSON(http.StatusInternalServerError, errResp)
			}
		}()

		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		traceID := GetTraceID(c)

		var appErr AppError
		if !errors.As(err, &appErr) {
			appErr = NewInternalError("Internal server error")
			appErr.Err = err
			if gin.Mode() == gin.DebugMode {
				appErr.Message = err.Error()
			}
		}

		entry := log.WithFields(logrus.Fields{
			"error_type": appErr.Type,
			FieldTraceID: traceID,
			FieldPath:    c.Request.URL.Path,
		})
		if appErr.Err != nil {
			entry = entry.WithError(appErr.Err)
		}
		if appErr.Code >= http.StatusInternalServerError {
			entry.Error(appErr.Message)
		} else {
			entry.Warn(appErr.Message)
		}

		errResp := model.NewErrorResponse(appErr.Code, appErr.Message)
		errResp.TraceID = traceID
		c.AbortWithStatusJSON(appErr.Code, errResp)
	}
}

// HandleError 在处理器中使用的错误处理辅助函数
func HandleError(c *gin.Context, err error) {
	_ = c.Error(err)
}
