package handler

import (
	"net/http"

	"github.com/fyerfyer/ticket-copilot/api/middleware"
	"github.com/fyerfyer/ticket-copilot/api/model"
	"github.com/fyerfyer/ticket-copilot/internal/models"
	"github.com/fyerfyer/ticket-copilot/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// TicketHandler 处理工单相关的API请求
type TicketHandler struct {
	ticketService *services.TicketService // 工单服务
	logger        *logrus.Logger          // 日志记录器
}

// NewTicketHandler 创建工单处理器
func NewTicketHandler(ticketService *services.TicketService) *TicketHandler {
	return &TicketHandler{
		ticketService: ticketService,
		logger:        middleware.GetLogger(),
	}
}

// CreateTicket 创建工单并返回分类结果
// POST /api/tickets
func (h *TicketHandler) CreateTicket(c *gin.Context) {
	var req model.TicketCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithField("error", err.Error()).Warn("Invalid ticket create request")
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(
			http.StatusBadRequest,
			"invalid request: body is required",
		))
		return
	}

	ticket, prediction, err := h.ticketService.CreateTicket(
		c.Request.Context(),
		models.TicketChannel(req.Channel),
		req.Subject,
		req.Body,
	)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	info := model.ConvertTicket(ticket)
	info.Prediction = model.ConvertPrediction(prediction)

	c.JSON(http.StatusCreated, model.NewSuccessResponse(info))
}

// GetTicket 获取工单及其分类历史
// GET /api/tickets/:id
func (h *TicketHandler) GetTicket(c *gin.Context) {
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

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.ConvertTicket(ticket)))
}

// ListTickets 分页列出工单
// GET /api/tickets
func (h *TicketHandler) ListTickets(c *gin.Context) {
	var req model.TicketListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(
			http.StatusBadRequest,
			"invalid pagination parameters",
		))
		return
	}

	page := req.GetPage()
	pageSize := req.GetPageSize()

	tickets, total, err := h.ticketService.ListTickets(
		c.Request.Context(),
		(page-1)*pageSize,
		pageSize,
	)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	infos := make([]model.TicketInfo, len(tickets))
	for i := range tickets {
		infos[i] = model.ConvertTicket(&tickets[i])
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.TicketListResponse{
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Tickets:  infos,
	}))
}

// ClassifyTicket 对已有工单重新分类
// POST /api/tickets/:id/classify
func (h *TicketHandler) ClassifyTicket(c *gin.Context) {
	var req model.TicketIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(
			http.StatusBadRequest,
			"ticket id is required",
		))
		return
	}

	prediction, err := h.ticketService.ClassifyTicket(c.Request.Context(), req.ID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"ticket_id":     req.ID,
		"category":      prediction.Category,
		"model_version": prediction.ModelVersion,
	}).Info("Ticket classified")

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.ConvertPrediction(prediction)))
}
