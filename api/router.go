package api

import (
	"github.com/fyerfyer/ticket-copilot/api/handler"
	"github.com/fyerfyer/ticket-copilot/api/middleware"
	"github.com/gin-gonic/gin"
)

// SetupRouter 设置API路由
// 配置所有的API端点并应用中间件
func SetupRouter(
	ticketHandler *handler.TicketHandler,
	answerHandler *handler.AnswerHandler,
	kbHandler *handler.KBHandler,
) *gin.Engine {
	router := gin.New()

	// 应用全局中间件
	router.Use(middleware.SetTraceID())
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())

	api := router.Group("/api")
	{
		// 工单API
		ticketGroup := api.Group("/tickets")
		{
			// 创建工单并分类 - POST /api/tickets
			ticketGroup.POST("", ticketHandler.CreateTicket)

			// 工单列表 - GET /api/tickets
			ticketGroup.GET("", ticketHandler.ListTickets)

			// 工单详情 - GET /api/tickets/:id
			ticketGroup.GET("/:id", ticketHandler.GetTicket)

			// 重新分类 - POST /api/tickets/:id/classify
			ticketGroup.POST("/:id/classify", ticketHandler.ClassifyTicket)

			// 按工单生成建议回复 - POST /api/tickets/:id/answer
			ticketGroup.POST("/:id/answer", answerHandler.AnswerTicket)
		}

		// 建议回复API
		api.POST("/answers", answerHandler.Answer)

		// 知识库文档管理API
		kbGroup := api.Group("/kb/documents")
		{
			// 上传文档 - POST /api/kb/documents
			kbGroup.POST("", kbHandler.UploadDocument)

			// 文档列表 - GET /api/kb/documents
			kbGroup.GET("", kbHandler.ListDocuments)

			// 删除文档 - DELETE /api/kb/documents/:name
			kbGroup.DELETE("/:name", kbHandler.DeleteDocument)
		}

		// 健康检查API
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status": "ok",
			})
		})
	}

	return router
}

// Cors 跨域资源共享中间件
// 如果需要支持跨域请求，可以启用此中间件
func Cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Trace-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
