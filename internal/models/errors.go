package models

import "errors"

// 数据层常用错误定义
var (
	// ErrTicketNotFound 工单不存在
	ErrTicketNotFound = errors.New("ticket not found")
	// ErrEmptyTicketBody 工单正文为空
	ErrEmptyTicketBody = errors.New("ticket body cannot be empty")
)
