package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/fyerfyer/ticket-copilot/internal/embedding"
	"github.com/fyerfyer/ticket-copilot/internal/vectordb"
	"github.com/sirupsen/logrus"
)

// defaultSnippetLength 引用片段的截断长度
const defaultSnippetLength = 200

// Source 检索到的知识库来源
type Source struct {
	SourceID string  `json:"source"`  // 来源标识
	Snippet  string  `json:"snippet"` // 截断后的引用片段
	Content  string  `json:"-"`       // 分块完整内容，回答合成用，不进响应
	Score    float32 `json:"score"`   // 相似度得分
}

// RetrievalEngine 检索引擎
// 封装嵌入模型和向量索引，索引首次使用时懒加载。
// 加载后索引只读，支持任意并发查询；重建需要重启进程
type RetrievalEngine struct {
	embedder      embedding.Client
	indexConfig   vectordb.Config
	topK          int
	snippetLength int
	logger        *logrus.Logger

	mu   sync.Mutex
	repo vectordb.Repository
}

// RetrievalOption 检索引擎配置选项
type RetrievalOption func(*RetrievalEngine)

// WithTopK 设置默认检索结果数量
func WithTopK(k int) RetrievalOption {
	return func(e *RetrievalEngine) {
		e.topK = k
	}
}

// WithSnippetLength 设置引用片段截断长度
func WithSnippetLength(length int) RetrievalOption {
	return func(e *RetrievalEngine) {
		e.snippetLength = length
	}
}

// NewRetrievalEngine 创建检索引擎实例
// indexConfig.CreateIfNotExists应为false：索引缺失是运维状态，不能静默新建空库
func NewRetrievalEngine(
	embedder embedding.Client,
	indexConfig vectordb.Config,
	logger *logrus.Logger,
	opts ...RetrievalOption,
) *RetrievalEngine {
	engine := &RetrievalEngine{
		embedder:      embedder,
		indexConfig:   indexConfig,
		topK:          3,
		snippetLength: defaultSnippetLength,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// index 懒加载向量索引
// 双重检查锁保证并发首次调用只加载一次
func (e *RetrievalEngine) index() (vectordb.Repository, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.repo != nil {
		return e.repo, nil
	}

	cfg := e.indexConfig
	cfg.EmbedderName = e.embedder.Name()
	cfg.Dimension = e.embedder.Dimensions()

	repo, err := vectordb.NewRepository(cfg)
	if err != nil {
		return nil, err
	}

	count, _ := repo.Count()
	e.logger.WithFields(logrus.Fields{
		"path":     cfg.Path,
		"docs":     count,
		"embedder": cfg.EmbedderName,
	}).Info("Vector index loaded")

	e.repo = repo
	return repo, nil
}

// Retrieve 检索与查询最相关的k个知识库分块
// 索引缺失或损坏时返回vectordb.ErrIndexNotReady，调用方应提示先执行摄取
func (e *RetrievalEngine) Retrieve(ctx context.Context, query string, k int) ([]Source, error) {
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if k <= 0 {
		k = e.topK
	}

	repo, err := e.index()
	if err != nil {
		return nil, err
	}

	vector, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := repo.Search(vector, vectordb.SearchFilter{MaxResults: k})
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	sources := make([]Source, 0, len(results))
	for _, result := range results {
		sources = append(sources, Source{
			SourceID: result.Document.SourceID,
			Snippet:  truncateRunes(result.Document.Text, e.snippetLength),
			Content:  result.Document.Text,
			Score:    result.Score,
		})
	}
	return sources, nil
}

// Close 关闭已加载的索引
func (e *RetrievalEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.repo == nil {
		return nil
	}
	err := e.repo.Close()
	e.repo = nil
	return err
}

// truncateRunes 按字符数截断文本
func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
