package vectordb

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/DataIntelligenceCrew/go-faiss"
)

// FaissRepository 基于Faiss的向量索引
// 知识库规模上来后替换内存实现，索引文件与文档元数据分开持久化
type FaissRepository struct {
	mu           sync.RWMutex
	index        faiss.Index
	documents    map[string]Document
	positionToID map[int]string
	indexPath    string
	metaPath     string
	dimension    int
	distanceType DistanceType
	embedderName string
	saveOnClose  bool
}

// faissMetaFile Faiss索引的旁路元数据文件
type faissMetaFile struct {
	Meta         Meta                `json:"meta"`
	Documents    map[string]Document `json:"documents"`
	PositionToID map[int]string      `json:"position_to_id"`
}

// NewFaissRepository 创建Faiss向量索引
func NewFaissRepository(config Config) (Repository, error) {
	if config.Dimension <= 0 {
		return nil, fmt.Errorf("vector dimension must be positive")
	}

	distType := config.DistanceType
	if distType == "" {
		distType = Cosine
	}

	indexPath := config.Path
	metaPath := ""
	if indexPath != "" {
		metaPath = indexPath + ".meta.json"
	}

	repo := &FaissRepository{
		documents:    make(map[string]Document),
		positionToID: make(map[int]string),
		indexPath:    indexPath,
		metaPath:     metaPath,
		dimension:    config.Dimension,
		distanceType: distType,
		embedderName: config.EmbedderName,
		saveOnClose:  indexPath != "" && config.CreateIfNotExists,
	}

	if indexPath != "" && fileExists(indexPath) {
		index, err := faiss.ReadIndex(indexPath, 0)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read faiss index: %v", ErrIndexNotReady, err)
		}
		if err := repo.loadMetadata(config); err != nil {
			return nil, err
		}
		repo.index = index
		return repo, nil
	}

	if indexPath != "" {
		if !config.CreateIfNotExists {
			return nil, fmt.Errorf("%w: no index at %s", ErrIndexNotReady, indexPath)
		}
		if err := os.MkdirAll(filepath.Dir(indexPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create index directory: %v", err)
		}
	}

	index, err := createFaissIndex(config.Dimension, distType)
	if err != nil {
		return nil, fmt.Errorf("failed to create faiss index: %v", err)
	}
	repo.index = index
	return repo, nil
}

// createFaissIndex 创建Faiss索引
func createFaissIndex(dimension int, distType DistanceType) (faiss.Index, error) {
	var metric int
	switch distType {
	case Cosine, DotProduct:
		metric = faiss.MetricInnerProduct
	case Euclidean:
		metric = faiss.MetricL2
	default:
		metric = faiss.MetricL2
	}
	return faiss.NewIndexFlat(dimension, metric)
}

// AddBatch 批量添加文档
func (r *FaissRepository) AddBatch(docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	for i := range docs {
		if err := ValidateVector(docs[i].Vector, r.dimension); err != nil {
			return fmt.Errorf("invalid vector for document %s: %w", docs[i].ID, err)
		}
		if r.distanceType == Cosine {
			docs[i].Vector = normalizeVector(docs[i].Vector)
		}
		if docs[i].CreatedAt.IsZero() {
			docs[i].CreatedAt = time.Now()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	startPos := int(r.index.Ntotal())
	for _, doc := range docs {
		if err := r.index.Add(doc.Vector); err != nil {
			return fmt.Errorf("failed to add vector to index: %v", err)
		}
	}
	for i, doc := range docs {
		r.documents[doc.ID] = doc
		r.positionToID[startPos+i] = doc.ID
	}
	return nil
}

// Search 相似度搜索
func (r *FaissRepository) Search(vector []float32, filter SearchFilter) ([]SearchResult, error) {
	if err := ValidateVector(vector, r.dimension); err != nil {
		return nil, err
	}
	if r.distanceType == Cosine {
		vector = normalizeVector(vector)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.documents) == 0 {
		return []SearchResult{}, nil
	}

	k := filter.MaxResults
	if k <= 0 {
		k = 10
	}

	// 多查一些结果补偿过滤损耗
	queryLimit := k * 2
	total := int(r.index.Ntotal())
	if queryLimit > total {
		queryLimit = total
	}

	distances, indices, err := r.index.Search(vector, int64(queryLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %v", err)
	}

	var results []SearchResult
	for i := 0; i < len(indices); i++ {
		idx := indices[i]
		if idx < 0 {
			continue
		}
		docID, ok := r.positionToID[int(idx)]
		if !ok {
			continue
		}
		doc, exists := r.documents[docID]
		if !exists {
			continue
		}
		if !matchSourceIDs(doc, filter.SourceIDs) {
			continue
		}

		// 内积度量下faiss返回的"距离"就是相似度，换算回余弦距离
		dist := distances[i]
		if r.distanceType == Cosine {
			dist = 1 - dist
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
		if len(results) >= k {
			break
		}
	}

	SortSearchResults(results)
	return results, nil
}

// Count 获取文档总数
func (r *FaissRepository) Count() (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.documents), nil
}

// Dimension 返回向量维度
func (r *FaissRepository) Dimension() int {
	return r.dimension
}

// EmbedderName 返回建库所用嵌入模型身份
func (r *FaissRepository) EmbedderName() string {
	return r.embedderName
}

// Save 保存索引和文档元数据到文件
func (r *FaissRepository) Save() error {
	if r.indexPath == "" {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(r.indexPath), 0755); err != nil {
		return fmt.Errorf("failed to create index directory: %v", err)
	}
	if err := faiss.WriteIndex(r.index, r.indexPath); err != nil {
		return fmt.Errorf("failed to write index file: %v", err)
	}

	meta := faissMetaFile{
		Meta: Meta{
			EmbedderName: r.embedderName,
			Dimension:    r.dimension,
			DistanceType: r.distanceType,
		},
		Documents:    r.documents,
		PositionToID: r.positionToID,
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %v", err)
	}
	if err := os.WriteFile(r.metaPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata file: %v", err)
	}
	return nil
}

// Close 关闭仓库
// 建库模式打开的仓库落盘一次；只读加载的服务进程不回写索引文件
func (r *FaissRepository) Close() error {
	if r.saveOnClose {
		return r.Save()
	}
	return nil
}

// loadMetadata 从旁路文件加载文档元数据并校验一致性
func (r *FaissRepository) loadMetadata(config Config) error {
	if r.metaPath == "" || !fileExists(r.metaPath) {
		return fmt.Errorf("%w: metadata file missing for index %s", ErrIndexNotReady, r.indexPath)
	}

	data, err := os.ReadFile(r.metaPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndexNotReady, err)
	}

	var meta faissMetaFile
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("%w: corrupt metadata file: %v", ErrIndexNotReady, err)
	}

	if err := checkMeta(meta.Meta, config); err != nil {
		return err
	}

	r.documents = meta.Documents
	r.positionToID = meta.PositionToID
	if r.documents == nil {
		r.documents = make(map[string]Document)
	}
	if r.positionToID == nil {
		r.positionToID = make(map[int]string)
	}
	if r.embedderName == "" {
		r.embedderName = meta.Meta.EmbedderName
	}
	return nil
}

func init() {
	RegisterRepository("faiss", NewFaissRepository)
}
