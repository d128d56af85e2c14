package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/fyerfyer/ticket-copilot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB 创建测试用的SQLite数据库
func setupTestDB(t *testing.T) *gorm.DB {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.Ticket{}, &models.TicketPrediction{}, &models.AuditLog{})
	require.NoError(t, err)
	return db
}

// TestTicketCRUD 测试工单的创建和查询
func TestTicketCRUD(t *testing.T) {
	repo := NewTicketRepository(setupTestDB(t))
	ctx := context.Background()

	ticket := &models.Ticket{
		Channel: models.ChannelEmail,
		Subject: "VPN login failing",
		Body:    "VPN login failing, cannot access email",
	}
	err := repo.CreateTicket(ctx, ticket)
	require.NoError(t, err)
	assert.NotEmpty(t, ticket.ID)
	assert.False(t, ticket.CreatedAt.IsZero())

	got, err := repo.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "VPN login failing", got.Subject)
	assert.Empty(t, got.Predictions)

	// 不存在的工单
	_, err = repo.GetTicket(ctx, "no-such-id")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrTicketNotFound)

	// 空正文被拒绝
	err = repo.CreateTicket(ctx, &models.Ticket{Subject: "empty"})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrEmptyTicketBody)
}

// TestPredictions 测试分类结果的追加和查询
func TestPredictions(t *testing.T) {
	repo := NewTicketRepository(setupTestDB(t))
	ctx := context.Background()

	ticket := &models.Ticket{Body: "cannot access email"}
	require.NoError(t, repo.CreateTicket(ctx, ticket))

	// 未分类时最近结果为空
	latest, err := repo.LatestPrediction(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Nil(t, latest)

	err = repo.AddPrediction(ctx, &models.TicketPrediction{
		TicketID:     ticket.ID,
		Category:     "access",
		Priority:     2,
		Confidence:   0.62,
		ModelVersion: "rules-v0",
	})
	require.NoError(t, err)

	latest, err = repo.LatestPrediction(ctx, ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "access", latest.Category)
	assert.Equal(t, 2, latest.Priority)

	// 工单带出分类历史
	got, err := repo.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, got.Predictions, 1)

	// 悬空工单ID被拒绝
	err = repo.AddPrediction(ctx, &models.TicketPrediction{
		TicketID:     "no-such-id",
		Category:     "general",
		Priority:     4,
		Confidence:   0.55,
		ModelVersion: "rules-v0",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrTicketNotFound)
}

// TestListTickets 测试工单分页
func TestListTickets(t *testing.T) {
	repo := NewTicketRepository(setupTestDB(t))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.CreateTicket(ctx, &models.Ticket{Body: "ticket body"}))
	}

	tickets, total, err := repo.ListTickets(ctx, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, tickets, 3)

	tickets, _, err = repo.ListTickets(ctx, 3, 3)
	require.NoError(t, err)
	assert.Len(t, tickets, 2)
}

// TestAuditLog 测试审计日志写入
func TestAuditLog(t *testing.T) {
	repo := NewTicketRepository(setupTestDB(t))
	ctx := context.Background()

	err := repo.CreateAuditLog(ctx, &models.AuditLog{
		RequestID: "req-123",
		Action:    "ticket.classify",
		InputHash: "abc123",
		Details:   `{"category":"access"}`,
	})
	require.NoError(t, err)
}
