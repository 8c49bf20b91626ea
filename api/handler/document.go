package handler

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/fyerfyer/doc-assistant/api/middleware"
	"github.com/fyerfyer/doc-assistant/api/model"
	"github.com/fyerfyer/doc-assistant/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// DocumentHandler 处理文档上传和查询
type DocumentHandler struct {
	service       *services.AssistantService
	maxUploadSize int64
	logger        *logrus.Logger
}

// NewDocumentHandler 创建新的文档处理器
func NewDocumentHandler(service *services.AssistantService, maxUploadSize int64) *DocumentHandler {
	return &DocumentHandler{
		service:       service,
		maxUploadSize: maxUploadSize,
		logger:        middleware.GetLogger(),
	}
}

// UploadDocument 上传并索引文档，替换当前文档
// POST /api/upload
func (h *DocumentHandler) UploadDocument(c *gin.Context) {
	var req model.UploadRequest
	if err := c.ShouldBind(&req); err != nil {
		h.logger.WithError(err).Warn("Invalid document upload request")
		middleware.HandleError(c, middleware.NewValidationError("A file is required in the 'file' field"))
		return
	}

	filename := filepath.Base(req.File.Filename)
	if !isValidFileType(filepath.Ext(filename)) {
		middleware.HandleError(c, middleware.NewUnsupportedError(
			"Unsupported file type, only .pdf, .md, .markdown and .txt are accepted"))
		return
	}

	if h.maxUploadSize > 0 && req.File.Size > h.maxUploadSize {
		middleware.HandleError(c, middleware.AppError{
			Type:    middleware.ErrorTypeValidation,
			Message: "File is too large",
			Code:    http.StatusRequestEntityTooLarge,
		})
		return
	}

	file, err := req.File.Open()
	if err != nil {
		middleware.HandleError(c, toAppError(err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		middleware.HandleError(c, toAppError(err))
		return
	}

	result, err := h.service.Upload(c.Request.Context(), data, req.File.Header.Get("Content-Type"), filename)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"filename":             filename,
			middleware.FieldTraceID: middleware.GetTraceID(c),
		}).WithError(err).Warn("Failed to process document")
		middleware.HandleError(c, toAppError(err))
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.UploadResponse{
		Message:     "Document processed",
		DocumentID:  result.DocumentID,
		FileName:    result.FileName,
		TotalChunks: result.TotalChunks,
		Dropped:     result.Dropped,
	}))
}

// GetDocument 返回当前文档信息
// GET /api/document
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	info, err := h.service.Document()
	if errors.Is(err, services.ErrNoDocument) {
		c.JSON(http.StatusOK, model.NewNoDocumentResponse())
		return
	}
	if err != nil {
		middleware.HandleError(c, toAppError(err))
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.DocumentResponse{
		DocumentID:  info.DocumentID,
		FileName:    info.FileName,
		Length:      info.Length,
		TotalChunks: info.TotalChunks,
		Dimension:   info.Dimension,
		Model:       info.Model,
		UploadedAt:  info.UploadedAt,
	}))
}

// isValidFileType 检查文件扩展名
func isValidFileType(ext string) bool {
	switch strings.ToLower(ext) {
	case ".pdf", ".md", ".markdown", ".txt":
		return true
	default:
		return false
	}
}
