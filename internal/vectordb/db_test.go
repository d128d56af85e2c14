package vectordb

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestDoc 创建用于测试的文档
func createTestDoc(id, sourceID string, position int, vector []float32) Document {
	return Document{
		ID:        id,
		SourceID:  sourceID,
		Position:  position,
		Text:      "这是测试分块 " + id,
		Vector:    vector,
		CreatedAt: time.Now(),
	}
}

// TestMemoryRepository 测试内存向量索引的基本操作
func TestMemoryRepository(t *testing.T) {
	config := Config{
		Type:         "memory",
		Dimension:    4,
		DistanceType: Cosine,
	}

	repo, err := NewRepository(config)
	require.NoError(t, err)
	defer repo.Close()

	// 添加文档
	docs := []Document{
		createTestDoc("doc1", "reset_password.md", 0, []float32{1, 0, 0, 0}),
		createTestDoc("doc2", "reset_password.md", 1, []float32{0, 1, 0, 0}),
		createTestDoc("doc3", "vpn_guide.md", 0, []float32{0.9, 0.1, 0, 0}),
	}
	err = repo.AddBatch(docs)
	require.NoError(t, err)

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// 搜索应按相似度降序返回
	results, err := repo.Search([]float32{1, 0, 0, 0}, SearchFilter{MaxResults: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "doc1", results[0].Document.ID)
	assert.Equal(t, "doc3", results[1].Document.ID)
	assert.True(t, results[0].Score >= results[1].Score)

	// 按来源过滤
	results, err = repo.Search([]float32{1, 0, 0, 0}, SearchFilter{
		MaxResults: 3,
		SourceIDs:  []string{"vpn_guide.md"},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc3", results[0].Document.ID)
}

// TestMemoryRepositorySaveAndLoad 测试索引的保存和重新加载
func TestMemoryRepositorySaveAndLoad(t *testing.T) {
	tempDir := t.TempDir()
	indexPath := filepath.Join(tempDir, "index.json")

	// 第一步：建库并保存
	{
		config := Config{
			Type:              "memory",
			Dimension:         4,
			DistanceType:      Cosine,
			Path:              indexPath,
			EmbedderName:      "local-hash-4",
			CreateIfNotExists: true,
		}
		repo, err := NewRepository(config)
		require.NoError(t, err)

		err = repo.AddBatch([]Document{
			createTestDoc("doc1", "file1.txt", 0, []float32{0.1, 0.2, 0.3, 0.4}),
			createTestDoc("doc2", "file1.txt", 1, []float32{0.5, 0.6, 0.7, 0.8}),
		})
		require.NoError(t, err)

		err = repo.Save()
		require.NoError(t, err)
	}

	// 第二步：只读加载并验证数据
	{
		config := Config{
			Type:         "memory",
			Dimension:    4,
			DistanceType: Cosine,
			Path:         indexPath,
			EmbedderName: "local-hash-4",
		}
		repo, err := NewRepository(config)
		require.NoError(t, err)
		defer repo.Close()

		count, err := repo.Count()
		require.NoError(t, err)
		assert.Equal(t, 2, count)
		assert.Equal(t, "local-hash-4", repo.EmbedderName())

		results, err := repo.Search([]float32{0.1, 0.2, 0.3, 0.4}, SearchFilter{MaxResults: 1})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "doc1", results[0].Document.ID)
		assert.InDelta(t, 1.0, results[0].Score, 1e-5)
	}
}

// TestCloseReadOnlyDoesNotRewrite 只读加载的索引关闭时不回写文件
func TestCloseReadOnlyDoesNotRewrite(t *testing.T) {
	indexPath := filepath.Join(t.TempDir(), "index.json")

	// 建库落盘
	builder, err := NewRepository(Config{
		Type:              "memory",
		Dimension:         4,
		DistanceType:      Cosine,
		Path:              indexPath,
		EmbedderName:      "local-hash-4",
		CreateIfNotExists: true,
	})
	require.NoError(t, err)
	require.NoError(t, builder.AddBatch([]Document{
		createTestDoc("doc1", "file1.txt", 0, []float32{1, 0, 0, 0}),
	}))
	require.NoError(t, builder.Save())

	// 只读加载后删掉磁盘文件，关闭不能把它重新写出来
	reader, err := NewRepository(Config{
		Type:         "memory",
		Dimension:    4,
		DistanceType: Cosine,
		Path:         indexPath,
		EmbedderName: "local-hash-4",
	})
	require.NoError(t, err)
	require.NoError(t, os.Remove(indexPath))
	require.NoError(t, reader.Close())
	assert.NoFileExists(t, indexPath)
}

// TestIndexNotReady 缺失或损坏的索引必须返回ErrIndexNotReady
func TestIndexNotReady(t *testing.T) {
	tempDir := t.TempDir()

	t.Run("missing index", func(t *testing.T) {
		_, err := NewRepository(Config{
			Type:      "memory",
			Dimension: 4,
			Path:      filepath.Join(tempDir, "nonexistent.json"),
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrIndexNotReady)
	})

	t.Run("corrupt index file", func(t *testing.T) {
		corruptPath := filepath.Join(tempDir, "corrupt.json")
		err := os.WriteFile(corruptPath, []byte("{not valid json"), 0644)
		require.NoError(t, err)

		_, err = NewRepository(Config{
			Type:      "memory",
			Dimension: 4,
			Path:      corruptPath,
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrIndexNotReady)
	})
}

// TestEmbedderMismatch 嵌入模型身份不一致时拒绝加载
func TestEmbedderMismatch(t *testing.T) {
	tempDir := t.TempDir()
	indexPath := filepath.Join(tempDir, "index.json")

	{
		repo, err := NewRepository(Config{
			Type:              "memory",
			Dimension:         4,
			DistanceType:      Cosine,
			Path:              indexPath,
			EmbedderName:      "local-hash-4",
			CreateIfNotExists: true,
		})
		require.NoError(t, err)
		require.NoError(t, repo.AddBatch([]Document{
			createTestDoc("doc1", "file1.txt", 0, []float32{1, 0, 0, 0}),
		}))
		require.NoError(t, repo.Save())
	}

	_, err := NewRepository(Config{
		Type:         "memory",
		Dimension:    4,
		DistanceType: Cosine,
		Path:         indexPath,
		EmbedderName: "text-embedding-v2",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmbedderMismatch)
}

// TestFaissRepository 测试Faiss向量索引
func TestFaissRepository(t *testing.T) {
	tempDir := t.TempDir()
	indexPath := filepath.Join(tempDir, "faiss_index")

	config := Config{
		Type:              "faiss",
		Dimension:         4,
		DistanceType:      Cosine,
		Path:              indexPath,
		EmbedderName:      "local-hash-4",
		CreateIfNotExists: true,
	}

	repo, err := NewRepository(config)
	if err != nil {
		t.Skip("FAISS may not be installed correctly, skipping test: " + err.Error())
	}
	defer repo.Close()

	err = repo.AddBatch([]Document{
		createTestDoc("doc1", "file1.txt", 0, []float32{1, 0, 0, 0}),
		createTestDoc("doc2", "file1.txt", 1, []float32{0, 1, 0, 0}),
	})
	require.NoError(t, err)

	results, err := repo.Search([]float32{1, 0, 0, 0}, SearchFilter{MaxResults: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc1", results[0].Document.ID)
}

// TestComputeDistance 测试距离计算
func TestComputeDistance(t *testing.T) {
	v1 := []float32{1, 0, 0, 0}
	v2 := []float32{0, 1, 0, 0}

	t.Run("cosine", func(t *testing.T) {
		dist, err := ComputeDistance(v1, v1, Cosine)
		require.NoError(t, err)
		assert.InDelta(t, 0.0, dist, 1e-6)

		dist, err = ComputeDistance(v1, v2, Cosine)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, dist, 1e-6)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		_, err := ComputeDistance(v1, []float32{1, 0}, Cosine)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidDimension)
	})
}
