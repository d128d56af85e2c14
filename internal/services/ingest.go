package services

import (
	"context"
	"fmt"

	"github.com/fyerfyer/ticket-copilot/internal/document"
	"github.com/fyerfyer/ticket-copilot/internal/embedding"
	"github.com/fyerfyer/ticket-copilot/internal/vectordb"
	"github.com/sirupsen/logrus"
)

// IngestService 知识库摄取服务
// 离线批处理：加载知识库目录 -> 分块 -> 向量化 -> 建库并落盘
type IngestService struct {
	loader       *document.Loader
	splitter     *document.TextSplitter
	embedder     embedding.Client
	logger       *logrus.Logger
	batchSize    int
	indexType    string
	distanceType vectordb.DistanceType
}

// IngestOption 摄取服务配置选项
type IngestOption func(*IngestService)

// WithIngestBatchSize 设置向量化批大小
func WithIngestBatchSize(size int) IngestOption {
	return func(s *IngestService) {
		s.batchSize = size
	}
}

// WithIngestIndexType 设置索引实现类型
// 必须与服务进程的vectordb配置一致，否则服务端打不开建好的索引
func WithIngestIndexType(indexType string) IngestOption {
	return func(s *IngestService) {
		if indexType != "" {
			s.indexType = indexType
		}
	}
}

// WithIngestDistance 设置索引的距离度量
func WithIngestDistance(distType vectordb.DistanceType) IngestOption {
	return func(s *IngestService) {
		if distType != "" {
			s.distanceType = distType
		}
	}
}

// NewIngestService 创建摄取服务实例
func NewIngestService(
	loader *document.Loader,
	splitter *document.TextSplitter,
	embedder embedding.Client,
	logger *logrus.Logger,
	opts ...IngestOption,
) *IngestService {
	service := &IngestService{
		loader:       loader,
		splitter:     splitter,
		embedder:     embedder,
		logger:       logger,
		batchSize:    16,
		indexType:    "memory",
		distanceType: vectordb.Cosine,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Ingest 执行一次完整摄取，返回写入索引的分块数
// 同一索引路径不允许并发摄取，也不支持与在线查询并发重建
func (s *IngestService) Ingest(ctx context.Context, kbDir, indexPath string) (int, error) {
	units, err := s.loader.Load(kbDir)
	if err != nil {
		return 0, fmt.Errorf("failed to load knowledge base: %w", err)
	}
	if len(units) == 0 {
		return 0, fmt.Errorf("no loadable documents in %s", kbDir)
	}

	chunks := s.splitter.Split(units)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("no chunks produced from %s", kbDir)
	}

	s.logger.WithFields(logrus.Fields{
		"units":  len(units),
		"chunks": len(chunks),
		"dir":    kbDir,
	}).Info("Knowledge base loaded")

	repo, err := vectordb.NewRepository(vectordb.Config{
		Type:              s.indexType,
		Path:              indexPath,
		Dimension:         s.embedder.Dimensions(),
		DistanceType:      s.distanceType,
		EmbedderName:      s.embedder.Name(),
		CreateIfNotExists: true,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create index: %w", err)
	}

	// 分批向量化写入
	for start := 0; start < len(chunks); start += s.batchSize {
		end := start + s.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Content
		}

		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("failed to embed batch: %w", err)
		}

		docs := make([]vectordb.Document, len(batch))
		for i, chunk := range batch {
			docs[i] = vectordb.Document{
				ID:       fmt.Sprintf("%s#%d", chunk.SourceID, chunk.Index),
				SourceID: chunk.SourceID,
				Position: chunk.Index,
				Text:     chunk.Content,
				Vector:   vectors[i],
			}
		}
		if err := repo.AddBatch(docs); err != nil {
			return 0, fmt.Errorf("failed to index batch: %w", err)
		}
	}

	if err := repo.Save(); err != nil {
		return 0, fmt.Errorf("failed to save index: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"chunks":   len(chunks),
		"path":     indexPath,
		"embedder": s.embedder.Name(),
	}).Info("Index built and saved")

	return len(chunks), nil
}
