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

// QAHandler 处理基于检索的问答和答案评价
type QAHandler struct {
	service *services.AssistantService
	logger  *logrus.Logger
}

// NewQAHandler 创建新的问答处理器
func NewQAHandler(service *services.AssistantService) *QAHandler {
	return &QAHandler{
		service: service,
		logger:  middleware.GetLogger(),
	}
}

// Ask 回答问题
// POST /api/ask
func (h *QAHandler) Ask(c *gin.Context) {
	var req model.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("question is required", err.Error()))
		return
	}

	h.logger.WithFields(logrus.Fields{
		"question":              req.Question,
		middleware.FieldTraceID: middleware.GetTraceID(c),
	}).Info("Question received")

	result, err := h.service.Ask(c.Request.Context(), req.Question)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.AskResponse{
		Question:    req.Question,
		Answer:      result.Answer,
		ContextUsed: result.ContextUsed,
		Sources:     model.ConvertToSourceInfo(result.Sources),
	}))
}

// Evaluate 评价用户答案
// POST /api/evaluate
func (h *QAHandler) Evaluate(c *gin.Context) {
	var req model.EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("question and user_answer are required", err.Error()))
		return
	}

	result, err := h.service.Evaluate(c.Request.Context(), req.Question, req.UserAnswer)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.EvaluateResponse{
		Feedback:    result.Feedback,
		ContextUsed: result.ContextUsed,
		Sources:     model.ConvertToSourceInfo(result.Sources),
	}))
}

func (h *QAHandler) writeError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrNoDocument) {
		c.JSON(http.StatusOK, model.NewNoDocumentResponse())
		return
	}
	middleware.HandleError(c, toAppError(err))
}
