package repository

import (
	"context"

	"github.com/fyerfyer/ticket-copilot/internal/models"
)

// TicketRepository 工单数据访问接口
type TicketRepository interface {
	// CreateTicket 创建工单
	CreateTicket(ctx context.Context, ticket *models.Ticket) error

	// GetTicket 获取工单及其分类历史
	GetTicket(ctx context.Context, id string) (*models.Ticket, error)

	// ListTickets 分页列出工单，按创建时间降序
	ListTickets(ctx context.Context, offset, limit int) ([]models.Ticket, int64, error)

	// AddPrediction 为工单追加一条分类结果
	AddPrediction(ctx context.Context, prediction *models.TicketPrediction) error

	// LatestPrediction 获取工单最近一次分类结果
	LatestPrediction(ctx context.Context, ticketID string) (*models.TicketPrediction, error)

	// CreateAuditLog 写入一条审计日志
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}
