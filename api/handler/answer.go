package handler

import (
	"net/http"

	"github.com/fyerfyer/ticket-copilot/api/middleware"
	"github.com/fyerfyer/ticket-copilot/api/model"
	"github.com/fyerfyer/ticket-copilot/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AnswerHandler 处理建议回复相关的API请求
type AnswerHandler struct {
	answerService *services.AnswerService // 回答服务
	ticketService *services.TicketService // 工单服务，按工单生成回复时用
	logger        *logrus.Logger          // 日志记录器
}

// NewAnswerHandler 创建回答处理器
func NewAnswerHandler(
	answerService *services.AnswerService,
	ticketService *services.TicketService,
) *AnswerHandler {
	return &AnswerHandler{
		answerService: answerService,
		ticketService: ticketService,
		logger:        middleware.GetLogger(),
	}
}

// Answer 对任意工单文本生成建议回复
// POST /api/answers
func (h *AnswerHandler) Answer(c *gin.Context) {
	var req model.AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithField("error", err.Error()).Warn("Invalid answer request")
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(
			http.StatusBadRequest,
			"invalid request: query is required",
		))
		return
	}

	answer, sources, err := h.answerService.Answer(c.Request.Context(), req.Query, req.TopK)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.AnswerResponse{
		Query:   req.Query,
		Answer:  answer,
		Sources: model.ConvertSources(sources),
	}))
}

// AnswerTicket 对已有工单生成建议回复
// POST /api/tickets/:id/answer
func (h *AnswerHandler) AnswerTicket(c *gin.Context) {
	var req model.TicketIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(
			http.StatusBadRequest,
			"ticket id is required",
		))
		return
	}

	ticket, err := h.ticketService.GetTicket(c.Request.Context(), req.ID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	query := ticket.Subject
	if query != "" && ticket.Body != "" {
		query += "\n"
	}
	query += ticket.Body

	h.logger.WithFields(logrus.Fields{
		"ticket_id": ticket.ID,
	}).Info("Generating suggested reply for ticket")

	answer, sources, err := h.answerService.Answer(c.Request.Context(), query, 0)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.AnswerResponse{
		Query:   query,
		Answer:  answer,
		Sources: model.ConvertSources(sources),
	}))
}
