package model

import "mime/multipart"

// PaginationRequest 分页请求参数
type PaginationRequest struct {
	Page     int `form:"page" json:"page" binding:"omitempty,min=1"`           // 当前页码，从1开始
	PageSize int `form:"page_size" json:"page_size" binding:"omitempty,min=1"` // 每页记录数
}

// GetPage 获取页码，默认为1
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize 获取每页记录数，默认为10，最大为100
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return 10
	}
	if p.PageSize > 100 {
		return 100
	}
	return p.PageSize
}

// TicketCreateRequest 工单创建请求
type TicketCreateRequest struct {
	Channel string `json:"channel" binding:"omitempty,oneof=email web"` // 来源渠道，默认email
	Subject string `json:"subject" binding:"omitempty,max=300"`         // 工单主题
	Body    string `json:"body" binding:"required"`                     // 工单正文
}

// TicketIDRequest 按ID查询工单的请求
type TicketIDRequest struct {
	ID string `uri:"id" binding:"required"` // 工单ID
}

// TicketListRequest 工单列表请求
type TicketListRequest struct {
	PaginationRequest
}

// AnswerRequest 建议回复请求
type AnswerRequest struct {
	Query string `json:"query" binding:"required"`        // 工单文本
	TopK  int    `json:"top_k" binding:"omitempty,min=1"` // 检索结果数量，默认3
}

// KBUploadRequest 知识库文档上传请求
type KBUploadRequest struct {
	File *multipart.FileHeader `form:"file" binding:"required"` // 文件对象，支持pdf/md/txt
}
