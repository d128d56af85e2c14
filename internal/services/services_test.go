package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fyerfyer/ticket-copilot/internal/cache"
	"github.com/fyerfyer/ticket-copilot/internal/document"
	"github.com/fyerfyer/ticket-copilot/internal/embedding"
	"github.com/fyerfyer/ticket-copilot/internal/llm"
	"github.com/fyerfyer/ticket-copilot/internal/vectordb"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestLogger 创建测试用的静默日志器
func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

// setupKnowledgeBase 创建带一篇文档的知识库目录
func setupKnowledgeBase(t *testing.T) string {
	kbDir := t.TempDir()
	content := "Reset your password by visiting the portal and clicking Forgot Password."
	err := os.WriteFile(filepath.Join(kbDir, "reset_password.txt"), []byte(content), 0644)
	require.NoError(t, err)
	return kbDir
}

// newIngestService 组装摄取服务
func newIngestService(t *testing.T, embedder embedding.Client) *IngestService {
	logger := newTestLogger()
	splitter, err := document.NewTextSplitter(document.DefaultSplitterConfig())
	require.NoError(t, err)
	return NewIngestService(document.NewLoader(logger), splitter, embedder, logger)
}

// TestIngestAndRetrieve 端到端：摄取知识库后按工单文本检索
func TestIngestAndRetrieve(t *testing.T) {
	kbDir := setupKnowledgeBase(t)
	indexPath := filepath.Join(t.TempDir(), "index.json")

	embedder, err := embedding.NewClient("local")
	require.NoError(t, err)

	// 摄取
	ingest := newIngestService(t, embedder)
	count, err := ingest.Ingest(context.Background(), kbDir, indexPath)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// 检索
	engine := NewRetrievalEngine(embedder, vectordb.Config{
		Type: "memory",
		Path: indexPath,
	}, newTestLogger())
	defer engine.Close()

	sources, err := engine.Retrieve(context.Background(), "I forgot my password", 1)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "reset_password.txt", sources[0].SourceID)
	assert.Contains(t, sources[0].Content, "Reset your password")
	assert.LessOrEqual(t, len([]rune(sources[0].Snippet)), defaultSnippetLength)
}

// TestIngestUsesConfiguredIndexType 建库走配置的索引实现和距离度量
// 摄取和服务进程的索引类型必须一致，否则建出的索引服务端打不开
func TestIngestUsesConfiguredIndexType(t *testing.T) {
	var got vectordb.Config
	vectordb.RegisterRepository("recording", func(cfg vectordb.Config) (vectordb.Repository, error) {
		got = cfg
		cfg.Type = "memory"
		return vectordb.NewMemoryRepository(cfg)
	})

	kbDir := setupKnowledgeBase(t)
	indexPath := filepath.Join(t.TempDir(), "index.json")

	embedder, err := embedding.NewClient("local")
	require.NoError(t, err)

	logger := newTestLogger()
	splitter, err := document.NewTextSplitter(document.DefaultSplitterConfig())
	require.NoError(t, err)

	ingest := NewIngestService(document.NewLoader(logger), splitter, embedder, logger,
		WithIngestIndexType("recording"),
		WithIngestDistance(vectordb.Euclidean),
	)

	_, err = ingest.Ingest(context.Background(), kbDir, indexPath)
	require.NoError(t, err)

	assert.Equal(t, "recording", got.Type)
	assert.Equal(t, vectordb.Euclidean, got.DistanceType)
	assert.True(t, got.CreateIfNotExists)
}

// TestAnswerEndToEnd 端到端：检索结果合成抽取式回答
func TestAnswerEndToEnd(t *testing.T) {
	kbDir := setupKnowledgeBase(t)
	indexPath := filepath.Join(t.TempDir(), "index.json")

	embedder, err := embedding.NewClient("local")
	require.NoError(t, err)

	ingest := newIngestService(t, embedder)
	_, err = ingest.Ingest(context.Background(), kbDir, indexPath)
	require.NoError(t, err)

	engine := NewRetrievalEngine(embedder, vectordb.Config{
		Type: "memory",
		Path: indexPath,
	}, newTestLogger())
	defer engine.Close()

	answerCache, err := cache.NewCache(cache.DefaultConfig())
	require.NoError(t, err)

	// 未配置大模型客户端，回答走抽取式
	service := NewAnswerService(engine, llm.NewSynthesizer(nil), answerCache, newTestLogger())

	answer, sources, err := service.Answer(context.Background(), "I forgot my password", 1)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Contains(t, answer, "Reset your password")
	assert.Contains(t, answer, "Based on internal procedures:")

	// 第二次命中缓存，结果一致
	cached, cachedSources, err := service.Answer(context.Background(), "I forgot my password", 1)
	require.NoError(t, err)
	assert.Equal(t, answer, cached)
	assert.Equal(t, sources[0].SourceID, cachedSources[0].SourceID)
}

// TestRetrieveIndexNotReady 索引缺失时必须返回ErrIndexNotReady
func TestRetrieveIndexNotReady(t *testing.T) {
	embedder, err := embedding.NewClient("local")
	require.NoError(t, err)

	engine := NewRetrievalEngine(embedder, vectordb.Config{
		Type: "memory",
		Path: filepath.Join(t.TempDir(), "nonexistent.json"),
	}, newTestLogger())

	_, err = engine.Retrieve(context.Background(), "I forgot my password", 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, vectordb.ErrIndexNotReady)
}

// TestRetrieveEmptyIndex 空索引返回空来源而不是错误
func TestRetrieveEmptyIndex(t *testing.T) {
	indexPath := filepath.Join(t.TempDir(), "empty.json")

	embedder, err := embedding.NewClient("local")
	require.NoError(t, err)

	// 建一个没有任何分块的空索引
	repo, err := vectordb.NewRepository(vectordb.Config{
		Type:              "memory",
		Path:              indexPath,
		Dimension:         embedder.Dimensions(),
		DistanceType:      vectordb.Cosine,
		EmbedderName:      embedder.Name(),
		CreateIfNotExists: true,
	})
	require.NoError(t, err)
	require.NoError(t, repo.Save())

	engine := NewRetrievalEngine(embedder, vectordb.Config{
		Type: "memory",
		Path: indexPath,
	}, newTestLogger())
	defer engine.Close()

	sources, err := engine.Retrieve(context.Background(), "I forgot my password", 3)
	require.NoError(t, err)
	assert.Empty(t, sources)

	// 空来源时抽取式回答返回未找到的固定回复
	answer := llm.NewSynthesizer(nil).ExtractiveAnswer(nil)
	assert.Equal(t, llm.NoGroundingAnswer, answer)
}
