package model

import (
	"time"

	"github.com/fyerfyer/ticket-copilot/internal/models"
	"github.com/fyerfyer/ticket-copilot/internal/services"
)

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`               // 响应状态码，0表示成功
	Message string      `json:"message"`            // 响应消息
	Data    interface{} `json:"data,omitempty"`     // 响应数据，可能为空
	TraceID string      `json:"trace_id,omitempty"` // 调用链追踪ID
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Code:    0,
		Message: "success",
		Data:    data,
	}
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(code int, message string) *Response {
	return &Response{
		Code:    code,
		Message: message,
	}
}

// PredictionInfo 分类结果信息
type PredictionInfo struct {
	Category     string    `json:"category"`      // 类别
	Priority     int       `json:"priority"`      // 优先级，1最高
	Confidence   float64   `json:"confidence"`    // 置信度
	ModelVersion string    `json:"model_version"` // 产生该结果的模型版本
	CreatedAt    time.Time `json:"created_at"`    // 分类时间
}

// TicketInfo 工单信息
type TicketInfo struct {
	ID          string           `json:"id"`                   // 工单ID
	Channel     string           `json:"channel"`              // 来源渠道
	Subject     string           `json:"subject"`              // 主题
	Body        string           `json:"body"`                 // 正文
	CreatedAt   time.Time        `json:"created_at"`           // 创建时间
	Prediction  *PredictionInfo  `json:"prediction,omitempty"` // 最新分类结果
	Predictions []PredictionInfo `json:"history,omitempty"`    // 分类历史
}

// TicketListResponse 工单列表响应
type TicketListResponse struct {
	Total    int64        `json:"total"`     // 总数量
	Page     int          `json:"page"`      // 当前页码
	PageSize int          `json:"page_size"` // 每页大小
	Tickets  []TicketInfo `json:"tickets"`   // 工单列表
}

// SourceInfo 回答引用的知识库来源
type SourceInfo struct {
	Source  string  `json:"source"`  // 来源文件名
	Snippet string  `json:"snippet"` // 截断后的引用片段
	Score   float32 `json:"score"`   // 相似度得分
}

// AnswerResponse 建议回复响应
type AnswerResponse struct {
	Query   string       `json:"query"`   // 工单文本
	Answer  string       `json:"answer"`  // 建议回复
	Sources []SourceInfo `json:"sources"` // 引用来源
}

// KBUploadResponse 知识库文档上传响应
type KBUploadResponse struct {
	FileName string `json:"filename"` // 文件名，即检索来源标识
	Size     int64  `json:"size"`     // 文件大小
}

// KBListResponse 知识库文档列表响应
type KBListResponse struct {
	Total     int      `json:"total"`     // 文档数量
	Documents []string `json:"documents"` // 文件名列表
}

// ConvertPrediction 将分类结果模型转换为响应信息
func ConvertPrediction(p *models.TicketPrediction) *PredictionInfo {
	if p == nil {
		return nil
	}
	return &PredictionInfo{
		Category:     p.Category,
		Priority:     p.Priority,
		Confidence:   p.Confidence,
		ModelVersion: p.ModelVersion,
		CreatedAt:    p.CreatedAt,
	}
}

// ConvertTicket 将工单模型转换为响应信息
// 最新的分类结果单独给出，历史按时间排列
func ConvertTicket(t *models.Ticket) TicketInfo {
	info := TicketInfo{
		ID:        t.ID,
		Channel:   string(t.Channel),
		Subject:   t.Subject,
		Body:      t.Body,
		CreatedAt: t.CreatedAt,
	}

	if len(t.Predictions) > 0 {
		history := make([]PredictionInfo, len(t.Predictions))
		for i := range t.Predictions {
			history[i] = *ConvertPrediction(&t.Predictions[i])
		}
		info.Predictions = history
		info.Prediction = &history[len(history)-1]
	}
	return info
}

// ConvertSources 将检索来源转换为响应信息
func ConvertSources(sources []services.Source) []SourceInfo {
	if len(sources) == 0 {
		return []SourceInfo{}
	}

	infos := make([]SourceInfo, len(sources))
	for i, src := range sources {
		infos[i] = SourceInfo{
			Source:  src.SourceID,
			Snippet: src.Snippet,
			Score:   src.Score,
		}
	}
	return infos
}
