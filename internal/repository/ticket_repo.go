package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/fyerfyer/ticket-copilot/internal/models"
	"gorm.io/gorm"
)

// GormTicketRepository 基于GORM的工单仓储实现
type GormTicketRepository struct {
	db *gorm.DB
}

// NewTicketRepository 创建工单仓储实例
func NewTicketRepository(db *gorm.DB) TicketRepository {
	return &GormTicketRepository{db: db}
}

// CreateTicket 创建工单
func (r *GormTicketRepository) CreateTicket(ctx context.Context, ticket *models.Ticket) error {
	if ticket.Body == "" {
		return models.ErrEmptyTicketBody
	}
	if err := r.db.WithContext(ctx).Create(ticket).Error; err != nil {
		return fmt.Errorf("failed to create ticket: %v", err)
	}
	return nil
}

// GetTicket 获取工单及其分类历史
func (r *GormTicketRepository) GetTicket(ctx context.Context, id string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.db.WithContext(ctx).
		Preload("Predictions").
		First(&ticket, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to get ticket: %v", err)
	}
	return &ticket, nil
}

// ListTickets 分页列出工单，按创建时间降序
func (r *GormTicketRepository) ListTickets(ctx context.Context, offset, limit int) ([]models.Ticket, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Ticket{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count tickets: %v", err)
	}

	if limit <= 0 {
		limit = 20
	}

	var tickets []models.Ticket
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&tickets).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tickets: %v", err)
	}
	return tickets, total, nil
}

// AddPrediction 为工单追加一条分类结果
func (r *GormTicketRepository) AddPrediction(ctx context.Context, prediction *models.TicketPrediction) error {
	// 先确认工单存在，避免悬空的分类记录
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Ticket{}).
		Where("id = ?", prediction.TicketID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check ticket: %v", err)
	}
	if count == 0 {
		return models.ErrTicketNotFound
	}

	if err := r.db.WithContext(ctx).Create(prediction).Error; err != nil {
		return fmt.Errorf("failed to create prediction: %v", err)
	}
	return nil
}

// LatestPrediction 获取工单最近一次分类结果
func (r *GormTicketRepository) LatestPrediction(ctx context.Context, ticketID string) (*models.TicketPrediction, error) {
	var prediction models.TicketPrediction
	err := r.db.WithContext(ctx).
		Where("ticket_id = ?", ticketID).
		Order("created_at DESC").
		First(&prediction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get prediction: %v", err)
	}
	return &prediction, nil
}

// CreateAuditLog 写入一条审计日志
func (r *GormTicketRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if err := r.db.WithContext(ctx).Create(log).Error; err != nil {
		return fmt.Errorf("failed to create audit log: %v", err)
	}
	return nil
}
