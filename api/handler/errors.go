package handler

import (
	"context"
	"errors"

	"github.com/fyerfyer/doc-assistant/api/middleware"
	"github.com/fyerfyer/doc-assistant/internal/document"
	"github.com/fyerfyer/doc-assistant/internal/llm"
	"github.com/fyerfyer/doc-assistant/internal/retrieval"
	"github.com/fyerfyer/doc-assistant/internal/services"
)

// toAppError 将领域错误映射为带HTTP状态码的应用错误
func toAppError(err error) middleware.AppError {
	var (
		appErr     middleware.AppError
		extractErr *document.ExtractionError
		gwErr      *llm.GatewayError
		modelErr   *llm.ModelError
	)

	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, services.ErrEmptyQuestion), errors.Is(err, services.ErrEmptyAnswer):
		appErr = middleware.NewValidationError(err.Error())
	case errors.Is(err, document.ErrUnsupportedType):
		appErr = middleware.NewUnsupportedError("Unsupported file type, only .pdf, .md, .markdown and .txt are accepted")
	case errors.As(err, &extractErr):
		appErr = middleware.NewExtractionError("Failed to extract text from document", extractErr.Error())
	case errors.Is(err, retrieval.ErrIndexEmpty):
		appErr = middleware.NewIndexError("Document has no content that can be indexed")
	case errors.As(err, &gwErr) && gwErr.Code == llm.ErrCodeTimeout:
		appErr = middleware.NewTimeoutError("LLM request timed out")
	case errors.As(err, &gwErr):
		appErr = middleware.NewUpstreamError("LLM service unavailable", gwErr.Error())
	case errors.As(err, &modelErr):
		appErr = middleware.NewUpstreamError("LLM returned an unusable response", modelErr.Error())
	case errors.Is(err, context.DeadlineExceeded):
		appErr = middleware.NewTimeoutError("Request timed out")
	default:
		appErr = middleware.NewInternalError("Internal server error")
	}

	appErr.Err = err
	return appErr
}
