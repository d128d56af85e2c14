package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/fyerfyer/ticket-copilot/api/model"
	"github.com/fyerfyer/ticket-copilot/internal/models"
	"github.com/fyerfyer/ticket-copilot/internal/vectordb"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ErrorHandler 统一错误处理中间件
// 捕获panic并把处理器上报的错误翻译成HTTP响应
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.WithFields(logrus.Fields{
					"error": err,
					"stack": string(debug.Stack()),
					"path":  c.Request.URL.Path,
				}).Error("Panic recovered in API request")

				errResp := model.NewErrorResponse(
					http.StatusInternalServerError,
					"An unexpected error occurred",
				)
				if gin.Mode() == gin.DebugMode {
					errResp.Message = fmt.Sprintf("Panic: %v", err)
				}
				errResp.TraceID = c.GetString(TraceIDKey)

				c.AbortWithStatusJSON(http.StatusInternalServerError, errResp)
			}
		}()

		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		traceID := c.GetString(TraceIDKey)
		status, message := translateError(err)

		log.WithFields(logrus.Fields{
			"trace_id":    traceID,
			"path":        c.Request.URL.Path,
			"status_code": status,
		}).Error(err.Error())

		errResp := model.NewErrorResponse(status, message)
		errResp.TraceID = traceID

		c.AbortWithStatusJSON(status, errResp)
	}
}

// translateError 将领域错误映射为HTTP状态码和对外消息
func translateError(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrTicketNotFound):
		return http.StatusNotFound, "ticket not found"
	case errors.Is(err, vectordb.ErrIndexNotReady):
		return http.StatusConflict, "knowledge base index is not ready, run ingestion first"
	default:
		message := "Internal server error"
		if gin.Mode() == gin.DebugMode {
			message = err.Error()
		}
		return http.StatusInternalServerError, message
	}
}

// HandleError 在处理器中使用的错误处理辅助函数
func HandleError(c *gin.Context, err error) {
	_ = c.Error(err)
}
