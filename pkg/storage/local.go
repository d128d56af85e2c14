package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage 本地文件系统知识库存储
// 平坦目录，文件按原名保存，方便摄取流程直接扫描
type LocalStorage struct {
	basePath string
}

// LocalConfig 本地存储配置
type LocalConfig struct {
	Path string // 本地存储路径
}

// NewLocalStorage 创建本地存储实例
func NewLocalStorage(cfg LocalConfig) (*LocalStorage, error) {
	absPath, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %v", err)
	}
	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %v", err)
	}

	return &LocalStorage{
		basePath: absPath,
	}, nil
}

// BasePath 返回存储根目录
// 摄取流程用它定位知识库目录
func (s *LocalStorage) BasePath() string {
	return s.basePath
}

// Save 保存文件到本地存储
func (s *LocalStorage) Save(reader io.Reader, name string) (FileInfo, error) {
	safeName, err := sanitizeName(name)
	if err != nil {
		return FileInfo{}, err
	}

	filePath := filepath.Join(s.basePath, safeName)
	file, err := os.Create(filePath)
	if err != nil {
		return FileInfo{}, fmt.Errorf("failed to create file: %v", err)
	}
	defer file.Close()

	size, err := io.Copy(file, reader)
	if err != nil {
		return FileInfo{}, fmt.Errorf("failed to write file: %v", err)
	}

	return FileInfo{
		Name:     safeName,
		Size:     size,
		MimeType: getMimeType(safeName),
		Path:     filePath,
	}, nil
}

// Get 获取文件内容
func (s *LocalStorage) Get(name string) (io.ReadCloser, error) {
	safeName, err := sanitizeName(name)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filepath.Join(s.basePath, safeName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, name)
		}
		return nil, fmt.Errorf("failed to open file: %v", err)
	}
	return file, nil
}

// Delete 删除文件
func (s *LocalStorage) Delete(name string) error {
	safeName, err := sanitizeName(name)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(s.basePath, safeName)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, name)
		}
		return fmt.Errorf("failed to delete file: %v", err)
	}
	return nil
}

// List 列出所有文件
func (s *LocalStorage) List() ([]FileInfo, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %v", err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to stat file: %v", err)
		}
		files = append(files, FileInfo{
			Name:     entry.Name(),
			Size:     info.Size(),
			MimeType: getMimeType(entry.Name()),
			Path:     filepath.Join(s.basePath, entry.Name()),
		})
	}
	return files, nil
}

// Exists 检查文件是否存在
func (s *LocalStorage) Exists(name string) (bool, error) {
	safeName, err := sanitizeName(name)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(filepath.Join(s.basePath, safeName))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// sanitizeName 拒绝带路径成分的文件名，防止目录穿越
func sanitizeName(name string) (string, error) {
	cleaned := filepath.Base(strings.TrimSpace(name))
	if cleaned == "" || cleaned == "." || cleaned == ".." || cleaned != name {
		return "", fmt.Errorf("invalid file name: %q", name)
	}
	return cleaned, nil
}

// getMimeType 简单根据文件扩展名判断MIME类型
func getMimeType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".pdf":
		return "application/pdf"
	case ".md", ".markdown":
		return "text/markdown"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
