package document

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// TextUnit 归一化后的文本单元
// 一个单元对应一个纯文本/Markdown文件，或PDF的一页
// 由加载器产出后不再修改
type TextUnit struct {
	Content  string // 文本内容
	SourceID string // 来源标识（文件名，PDF带页号后缀）
}

// Loader 知识库目录加载器
// 把异构的知识库文件读取为归一化的文本单元
type Loader struct {
	logger *logrus.Logger
}

// NewLoader 创建知识库加载器
func NewLoader(logger *logrus.Logger) *Loader {
	if logger == nil {
		logger = logrus.New()
	}
	return &Loader{logger: logger}
}

// Load 加载目录下的所有知识库文件
// 不支持的扩展名静默跳过；单个文件解析失败记录日志后跳过，
// 不会让整批加载失败。返回单元的跨文件顺序不做保证，
// 同一文件内的页序保持原始顺序
func (l *Loader) Load(dir string) ([]TextUnit, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge base directory: %v", err)
	}

	var units []TextUnit
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		parser, err := ParserFactory(path)
		if err != nil {
			if errors.Is(err, ErrUnsupportedType) {
				continue
			}
			return nil, err
		}

		pages, err := parser.Parse(path)
		if err != nil {
			l.logger.WithFields(logrus.Fields{
				"file":  entry.Name(),
				"error": err.Error(),
			}).Warn("Failed to parse knowledge base file, skipping")
			continue
		}

		multiPage := len(pages) > 1
		for i, page := range pages {
			sourceID := entry.Name()
			if multiPage {
				sourceID = fmt.Sprintf("%s#page%d", entry.Name(), i+1)
			}
			units = append(units, TextUnit{
				Content:  page,
				SourceID: sourceID,
			})
		}
	}

	return units, nil
}
