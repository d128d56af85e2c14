package storage

import (
	"errors"
	"io"
)

// ErrFileNotFound 文件不存在
var ErrFileNotFound = errors.New("file not found")

// FileInfo 知识库文件元数据
// 文件名就是知识库的来源标识，同名覆盖
type FileInfo struct {
	Name     string // 文件名，兼作来源标识
	Size     int64  // 文件大小(字节)
	MimeType string // 文件MIME类型
	Path     string // 内部存储路径(实现相关)
}

// Storage 知识库文件存储接口
// 可以有不同实现(本地文件系统、MinIO等)
type Storage interface {
	// Save 保存文件，同名文件被覆盖
	Save(reader io.Reader, name string) (FileInfo, error)

	// Get 按文件名获取文件内容
	Get(name string) (io.ReadCloser, error)

	// Delete 按文件名删除文件
	Delete(name string) error

	// List 列出所有文件
	List() ([]FileInfo, error)

	// Exists 检查文件是否存在
	Exists(name string) (bool, error)
}
