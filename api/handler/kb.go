package handler

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/fyerfyer/ticket-copilot/api/middleware"
	"github.com/fyerfyer/ticket-copilot/api/model"
	"github.com/fyerfyer/ticket-copilot/pkg/storage"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// allowedKBExtensions 知识库支持的文件类型
var allowedKBExtensions = map[string]bool{
	".pdf": true,
	".md":  true,
	".txt": true,
}

// KBHandler 处理知识库文档管理的API请求
// 上传只入库存储，不触发索引重建；索引由离线摄取命令构建
type KBHandler struct {
	storage storage.Storage // 知识库文件存储
	logger  *logrus.Logger  // 日志记录器
}

// NewKBHandler 创建知识库处理器
func NewKBHandler(store storage.Storage) *KBHandler {
	return &KBHandler{
		storage: store,
		logger:  middleware.GetLogger(),
	}
}

// UploadDocument 上传知识库文档
// POST /api/kb/documents
func (h *KBHandler) UploadDocument(c *gin.Context) {
	var req model.KBUploadRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(
			http.StatusBadRequest,
			"file is required",
		))
		return
	}

	name := filepath.Base(req.File.Filename)
	ext := strings.ToLower(filepath.Ext(name))
	if !allowedKBExtensions[ext] {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(
			http.StatusBadRequest,
			"unsupported file type, expected pdf, md or txt",
		))
		return
	}

	file, err := req.File.Open()
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	defer file.Close()

	info, err := h.storage.Save(file, name)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"filename": info.Name,
		"size":     info.Size,
	}).Info("Knowledge base document uploaded")

	c.JSON(http.StatusCreated, model.NewSuccessResponse(model.KBUploadResponse{
		FileName: info.Name,
		Size:     info.Size,
	}))
}

// ListDocuments 列出知识库文档
// GET /api/kb/documents
func (h *KBHandler) ListDocuments(c *gin.Context) {
	files, err := h.storage.List()
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	names := make([]string, len(files))
	for i, file := range files {
		names[i] = file.Name
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.KBListResponse{
		Total:     len(names),
		Documents: names,
	}))
}

// DeleteDocument 删除知识库文档
// DELETE /api/kb/documents/:name
func (h *KBHandler) DeleteDocument(c *gin.Context) {
	name := filepath.Base(c.Param("name"))
	if name == "" || name == "." {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(
			http.StatusBadRequest,
			"document name is required",
		))
		return
	}

	if err := h.storage.Delete(name); err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			c.JSON(http.StatusNotFound, model.NewErrorResponse(
				http.StatusNotFound,
				"document not found",
			))
			return
		}
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(gin.H{"deleted": name}))
}
