package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/fyerfyer/ticket-copilot/internal/classifier"
	"github.com/fyerfyer/ticket-copilot/internal/models"
	"github.com/fyerfyer/ticket-copilot/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// TicketService 工单服务
// 负责工单的创建、分类和审计落库
type TicketService struct {
	repo   repository.TicketRepository
	router *classifier.Router
	logger *logrus.Logger
}

// NewTicketService 创建工单服务实例
func NewTicketService(
	repo repository.TicketRepository,
	router *classifier.Router,
	logger *logrus.Logger,
) *TicketService {
	return &TicketService{
		repo:   repo,
		router: router,
		logger: logger,
	}
}

// CreateTicket 创建工单并立即分类
// 分类是全函数，任何文本都有结果，创建流程不会因分类失败而中断
func (s *TicketService) CreateTicket(
	ctx context.Context,
	channel models.TicketChannel,
	subject, body string,
) (*models.Ticket, *models.TicketPrediction, error) {
	if channel == "" {
		channel = models.ChannelEmail
	}

	ticket := &models.Ticket{
		Channel: channel,
		Subject: subject,
		Body:    body,
	}
	if err := s.repo.CreateTicket(ctx, ticket); err != nil {
		return nil, nil, err
	}

	prediction, err := s.classify(ctx, ticket)
	if err != nil {
		// 工单已落库，分类失败只记日志
		s.logger.WithError(err).WithField("ticket_id", ticket.ID).
			Warn("Failed to classify new ticket")
		return ticket, nil, nil
	}
	return ticket, prediction, nil
}

// GetTicket 获取工单及其分类历史
func (s *TicketService) GetTicket(ctx context.Context, id string) (*models.Ticket, error) {
	return s.repo.GetTicket(ctx, id)
}

// ListTickets 分页列出工单
func (s *TicketService) ListTickets(ctx context.Context, offset, limit int) ([]models.Ticket, int64, error) {
	return s.repo.ListTickets(ctx, offset, limit)
}

// ClassifyTicket 对已有工单重新分类并落库
func (s *TicketService) ClassifyTicket(ctx context.Context, ticketID string) (*models.TicketPrediction, error) {
	ticket, err := s.repo.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	return s.classify(ctx, ticket)
}

// classify 执行分类、落库分类结果并写审计日志
func (s *TicketService) classify(ctx context.Context, ticket *models.Ticket) (*models.TicketPrediction, error) {
	result, err := s.router.Classify(ticket.Subject, ticket.Body)
	if err != nil {
		return nil, fmt.Errorf("classification failed: %w", err)
	}

	prediction := &models.TicketPrediction{
		TicketID:     ticket.ID,
		Category:     string(result.Category),
		Priority:     result.Priority,
		Confidence:   result.Confidence,
		ModelVersion: result.ModelVersion,
	}
	if err := s.repo.AddPrediction(ctx, prediction); err != nil {
		return nil, err
	}

	s.audit(ctx, "ticket.classify", ticket, prediction)
	return prediction, nil
}

// audit 写入审计日志
// 审计失败不影响主流程，只记日志
func (s *TicketService) audit(ctx context.Context, action string, ticket *models.Ticket, prediction *models.TicketPrediction) {
	details, _ := json.Marshal(map[string]interface{}{
		"ticket_id":     ticket.ID,
		"category":      prediction.Category,
		"priority":      prediction.Priority,
		"model_version": prediction.ModelVersion,
	})

	log := &models.AuditLog{
		RequestID: requestIDFromContext(ctx),
		Action:    action,
		InputHash: hashInput(ticket.Subject, ticket.Body),
		Details:   string(details),
	}
	if err := s.repo.CreateAuditLog(ctx, log); err != nil {
		s.logger.WithError(err).Warn("Failed to write audit log")
	}
}

// requestIDKey 请求关联ID的上下文键类型
type requestIDKey struct{}

// WithRequestID 在上下文中携带请求关联ID
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// requestIDFromContext 取出请求关联ID，没有就生成一个
func requestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.New().String()
}

// hashInput 计算输入文本的SHA-256哈希
// 审计日志不存原文
func hashInput(subject, body string) string {
	sum := sha256.Sum256([]byte(subject + "\n" + body))
	return hex.EncodeToString(sum[:])
}
