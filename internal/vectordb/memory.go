package vectordb

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// MemoryRepository 平坦精确搜索的向量索引
// 文档和向量全部驻留内存，持久化为单个JSON文件。
// 规模不大的知识库用它就够了，也不需要额外的本地库依赖
type MemoryRepository struct {
	mu           sync.RWMutex
	documents    []Document
	byID         map[string]int
	dimension    int
	distanceType DistanceType
	embedderName string
	path         string
	saveOnClose  bool
}

// indexFile 持久化的索引文件结构
type indexFile struct {
	Meta      Meta       `json:"meta"`
	Documents []Document `json:"documents"`
}

// NewMemoryRepository 创建内存向量索引
// 路径下已有索引文件则加载并校验元信息；文件缺失且
// CreateIfNotExists为false、或文件损坏时返回ErrIndexNotReady
func NewMemoryRepository(config Config) (Repository, error) {
	distType := config.DistanceType
	if distType == "" {
		distType = Cosine
	}

	repo := &MemoryRepository{
		byID:         make(map[string]int),
		dimension:    config.Dimension,
		distanceType: distType,
		embedderName: config.EmbedderName,
		path:         config.Path,
		saveOnClose:  config.Path != "" && config.CreateIfNotExists,
	}

	if config.Path != "" {
		if fileExists(config.Path) {
			if err := repo.load(config); err != nil {
				return nil, err
			}
			return repo, nil
		}
		if !config.CreateIfNotExists {
			return nil, fmt.Errorf("%w: no index at %s", ErrIndexNotReady, config.Path)
		}
		if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create index directory: %v", err)
		}
	}

	if repo.dimension <= 0 {
		return nil, fmt.Errorf("vector dimension must be positive")
	}
	return repo, nil
}

// load 从磁盘加载索引文件
func (r *MemoryRepository) load(config Config) error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndexNotReady, err)
	}

	var file indexFile
	if err := json.Unmarshal(data, &file); err != nil {
		// 文件损坏与"从未摄取"对调用方是同一种可恢复状态
		return fmt.Errorf("%w: corrupt index file: %v", ErrIndexNotReady, err)
	}

	if err := checkMeta(file.Meta, config); err != nil {
		return err
	}

	r.documents = file.Documents
	r.byID = make(map[string]int, len(file.Documents))
	for i, doc := range file.Documents {
		r.byID[doc.ID] = i
	}
	if file.Meta.Dimension > 0 {
		r.dimension = file.Meta.Dimension
	}
	if file.Meta.DistanceType != "" {
		r.distanceType = file.Meta.DistanceType
	}
	if r.embedderName == "" {
		r.embedderName = file.Meta.EmbedderName
	}
	return nil
}

// AddBatch 批量添加文档
func (r *MemoryRepository) AddBatch(docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, doc := range docs {
		if err := ValidateVector(doc.Vector, r.dimension); err != nil {
			return fmt.Errorf("invalid vector for document %s: %w", doc.ID, err)
		}
		if r.distanceType == Cosine {
			doc.Vector = normalizeVector(doc.Vector)
		}
		if doc.CreatedAt.IsZero() {
			doc.CreatedAt = time.Now()
		}

		if pos, exists := r.byID[doc.ID]; exists {
			r.documents[pos] = doc
			continue
		}
		r.byID[doc.ID] = len(r.documents)
		r.documents = append(r.documents, doc)
	}
	return nil
}

// Search 相似度搜索
func (r *MemoryRepository) Search(vector []float32, filter SearchFilter) ([]SearchResult, error) {
	if err := ValidateVector(vector, r.dimension); err != nil {
		return nil, err
	}
	if r.distanceType == Cosine {
		vector = normalizeVector(vector)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	k := filter.MaxResults
	if k <= 0 {
		k = 10
	}

	var results []SearchResult
	for _, doc := range r.documents {
		if !matchSourceIDs(doc, filter.SourceIDs) {
			continue
		}

		dist, err := ComputeDistance(vector, doc.Vector, r.distanceType)
		if err != nil {
			return nil, err
		}
		score := DistanceToScore(dist, r.distanceType)
		if score < filter.MinScore {
			continue
		}

		results = append(results, SearchResult{
			Document: doc,
			Score:    score,
			Distance: dist,
		})
	}

	SortSearchResults(results)
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Count 获取文档总数
func (r *MemoryRepository) Count() (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.documents), nil
}

// Dimension 返回向量维度
func (r *MemoryRepository) Dimension() int {
	return r.dimension
}

// EmbedderName 返回建库所用嵌入模型身份
func (r *MemoryRepository) EmbedderName() string {
	return r.embedderName
}

// Save 持久化索引到磁盘
// 先写临时文件再原子替换，避免写入中断留下损坏的索引
func (r *MemoryRepository) Save() error {
	if r.path == "" {
		return nil
	}

	r.mu.RLock()
	file := indexFile{
		Meta: Meta{
			EmbedderName: r.embedderName,
			Dimension:    r.dimension,
			DistanceType: r.distanceType,
		},
		Documents: r.documents,
	}
	data, err := json.Marshal(file)
	r.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal index: %v", err)
	}

	tmpPath := r.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write index file: %v", err)
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		return fmt.Errorf("failed to replace index file: %v", err)
	}
	return nil
}

// Close 关闭仓库
// 建库模式打开的仓库落盘一次；只读加载的服务进程不回写索引文件
func (r *MemoryRepository) Close() error {
	if r.saveOnClose {
		return r.Save()
	}
	return nil
}

// fileExists 检查文件是否存在
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// 在包初始化时注册内存索引
func init() {
	RegisterRepository("memory", NewMemoryRepository)
}
