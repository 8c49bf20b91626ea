package api

import (
	"net/http"

	"github.com/fyerfyer/doc-assistant/api/handler"
	"github.com/fyerfyer/doc-assistant/api/middleware"
	"github.com/gin-gonic/gin"
)

// SetupRouter 设置API路由
// 配置所有的API端点并应用中间件
func SetupRouter(
	docHandler *handler.DocumentHandler,
	taskHandler *handler.TaskHandler,
	qaHandler *handler.QAHandler,
) *gin.Engine {
	router := gin.New()

	// 应用全局中间件
	router.Use(middleware.SetTraceID())
	router.Use(middleware.Logger())
	router.Use(middleware.Cors())
	router.Use(middleware.ErrorMiddleware())

	// 在调试模式下记录请求体和响应体
	if gin.Mode() == gin.DebugMode {
		router.Use(middleware.RequestLogger())
	}

	api := router.Group("/api")
	{
		// 文档
		api.POST("/upload", docHandler.UploadDocument)
		api.GET("/document", docHandler.GetDocument)

		// 整篇文档任务
		api.POST("/summarize", taskHandler.Summarize)
		api.POST("/generate_questions", taskHandler.GenerateQuestions)

		// 检索问答
		api.POST("/ask", qaHandler.Ask)
		api.POST("/evaluate", qaHandler.Evaluate)

		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status": "ok",
			})
		})
	}

	return router
}
