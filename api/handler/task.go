package handler

import (
	"errors"
	"net/http"

	"github.com/fyerfyer/doc-assistant/api/middleware"
	"github.com/fyerfyer/doc-assistant/api/model"
	"github.com/fyerfyer/doc-assistant/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// TaskHandler 处理针对整篇文档的任务：摘要和出题
type TaskHandler struct {
	service *services.AssistantService
	logger  *logrus.Logger
}

// NewTaskHandler 创建任务处理器
func NewTaskHandler(service *services.AssistantService) *TaskHandler {
	return &TaskHandler{
		service: service,
		logger:  middleware.GetLogger(),
	}
}

// Summarize 生成文档摘要
// POST /api/summarize
func (h *TaskHandler) Summarize(c *gin.Context) {
	summary, err := h.service.Summarize(c.Request.Context())
	if h.handleTaskError(c, "summarize", err) {
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.SummaryResponse{Summary: summary}))
}

// GenerateQuestions 根据文档生成问题
// POST /api/generate_questions
func (h *TaskHandler) GenerateQuestions(c *gin.Context) {
	questions, err := h.service.GenerateQuestions(c.Request.Context())
	if h.handleTaskError(c, "generate_questions", err) {
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.QuestionsResponse{Questions: questions}))
}

// handleTaskError 处理任务错误，已写出响应时返回true
// 尚未上传文档时返回正常响应而不是错误
func (h *TaskHandler) handleTaskError(c *gin.Context, task string, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, services.ErrNoDocument) {
		c.JSON(http.StatusOK, model.NewNoDocumentResponse())
		return true
	}

	h.logger.WithFields(logrus.Fields{
		"task":                  task,
		middleware.FieldTraceID: middleware.GetTraceID(c),
	}).WithError(err).Error("Task failed")
	middleware.HandleError(c, toAppError(err))
	return true
}
