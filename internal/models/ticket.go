package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TicketChannel 工单来源渠道
type TicketChannel string

const (
	// ChannelEmail 邮件渠道
	ChannelEmail TicketChannel = "email"
	// ChannelWeb Web表单渠道
	ChannelWeb TicketChannel = "web"
)

// Ticket 工单数据模型
type Ticket struct {
	ID        string         `gorm:"primaryKey;size:36"`    // 工单ID，主键
	CreatedAt time.Time      `gorm:"not null;index"`        // 创建时间
	UpdatedAt time.Time      `gorm:"not null"`              // 更新时间
	Channel   TicketChannel  `gorm:"size:20;default:email"` // 来源渠道
	Subject   string         `gorm:"size:300"`              // 工单主题
	Body      string         `gorm:"type:text;not null"`    // 工单正文
	Metadata  datatypes.JSON `gorm:"type:json"`             // 附加元数据

	Predictions []TicketPrediction `gorm:"foreignKey:TicketID;constraint:OnDelete:CASCADE"` // 关联的分类结果
}

// BeforeCreate GORM的钩子函数，创建记录前自动生成ID和时间
func (t *Ticket) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	t.UpdatedAt = time.Now()
	return nil
}

// BeforeUpdate GORM的钩子函数，更新记录前自动设置更新时间
func (t *Ticket) BeforeUpdate(tx *gorm.DB) (err error) {
	t.UpdatedAt = time.Now()
	return nil
}

// TableName 明确指定表名
func (Ticket) TableName() string {
	return "tickets"
}

// TicketPrediction 工单分类结果数据模型
// 每次分类产生一条记录，工单可以被多次分类
type TicketPrediction struct {
	ID           string    `gorm:"primaryKey;size:36"`     // 主键ID
	CreatedAt    time.Time `gorm:"not null"`               // 创建时间
	TicketID     string    `gorm:"size:36;not null;index"` // 所属工单ID
	Category     string    `gorm:"size:80;not null"`       // 分类类别
	Priority     int       `gorm:"not null"`               // 优先级（1..4）
	Confidence   float64   `gorm:"not null"`               // 置信度
	ModelVersion string    `gorm:"size:40;not null"`       // 产生结果的模型版本
}

// BeforeCreate GORM的钩子函数，创建记录前自动生成ID和时间
func (p *TicketPrediction) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	return nil
}

// TableName 明确指定表名
func (TicketPrediction) TableName() string {
	return "ticket_predictions"
}

// AuditLog 审计日志数据模型
// 只存输入文本的哈希，不存原文
type AuditLog struct {
	ID        string    `gorm:"primaryKey;size:36"`         // 主键ID
	CreatedAt time.Time `gorm:"not null;index"`             // 创建时间
	RequestID string    `gorm:"size:36;index"`              // 请求关联ID
	Action    string    `gorm:"size:60;not null"`           // 动作名称，如 ticket.classify
	Actor     string    `gorm:"size:120;default:anonymous"` // 触发者
	InputHash string    `gorm:"size:64"`                    // 输入文本的SHA-256哈希
	Details   string    `gorm:"type:text"`                  // 调试用附加信息
}

// BeforeCreate GORM的钩子函数，创建记录前自动生成ID和时间
func (a *AuditLog) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	return nil
}

// TableName 明确指定表名
func (AuditLog) TableName() string {
	return "audit_logs"
}
