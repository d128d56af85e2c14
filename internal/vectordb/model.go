package vectordb

import (
	"errors"
	"time"
)

// 常用错误定义
var (
	// ErrIndexNotReady 索引缺失或损坏
	// 可恢复的运维状态：提示先执行知识库摄取，区别于一般I/O错误
	ErrIndexNotReady = errors.New("vector index not ready: run ingestion first")
	// ErrEmbedderMismatch 查询进程的嵌入模型与建库时不一致
	// 继续查询会返回误导性的相似度得分，必须上报
	ErrEmbedderMismatch = errors.New("vector index was built with a different embedding model")
	// ErrDocumentNotFound 文档不存在
	ErrDocumentNotFound = errors.New("document not found")
	// ErrEmptyVector 向量为空
	ErrEmptyVector = errors.New("empty vector")
	// ErrInvalidDimension 向量维度不匹配
	ErrInvalidDimension = errors.New("vector dimension mismatch")
)

// Document 知识库分块的向量化文档
type Document struct {
	ID        string                 `json:"id"`         // 唯一标识符
	SourceID  string                 `json:"source_id"`  // 来源标识（文件名或PDF页）
	Position  int                    `json:"position"`   // 分块在来源内的序号
	Text      string                 `json:"text"`       // 分块文本内容
	Vector    []float32              `json:"vector"`     // 向量表示
	CreatedAt time.Time              `json:"created_at"` // 创建时间
	Metadata  map[string]interface{} `json:"metadata"`   // 附加元数据
}

// DistanceType 向量距离计算方法
// 建库和查询必须使用同一种度量
type DistanceType string

const (
	// Cosine 余弦相似度
	Cosine DistanceType = "cosine"
	// DotProduct 点积
	DotProduct DistanceType = "dot"
	// Euclidean 欧几里得距离
	Euclidean DistanceType = "l2"
)

// SearchResult 搜索结果
type SearchResult struct {
	Document Document // 文档对象
	Score    float32  // 相似度得分
	Distance float32  // 计算的距离
}

// SearchFilter 搜索过滤条件
type SearchFilter struct {
	SourceIDs  []string // 按来源标识过滤
	MinScore   float32  // 最小相似度分数
	MaxResults int      // 最大返回结果数
}

// Meta 索引元信息
// 随索引一起持久化，加载时校验嵌入模型身份
type Meta struct {
	EmbedderName string       `json:"embedder_name"` // 建库所用嵌入模型身份
	Dimension    int          `json:"dimension"`     // 向量维度
	DistanceType DistanceType `json:"distance_type"` // 距离度量方式
}

// Repository 向量索引仓库接口
// 离线建库后加载为只读服务；重建通过完整的重新摄取完成，
// 不支持与服务查询并发的重建
type Repository interface {
	// AddBatch 批量添加文档
	AddBatch(docs []Document) error

	// Search 相似度搜索，结果按得分降序
	Search(vector []float32, filter SearchFilter) ([]SearchResult, error)

	// Count 获取文档总数
	Count() (int, error)

	// Dimension 返回向量维度
	Dimension() int

	// EmbedderName 返回建库所用嵌入模型身份
	EmbedderName() string

	// Save 持久化索引到磁盘
	Save() error

	// Close 关闭仓库，建库模式打开时保存一次
	Close() error
}

// Config 向量索引配置
type Config struct {
	Type              string       // 索引类型，如 "memory", "faiss"
	Path              string       // 索引文件路径
	Dimension         int          // 向量维度
	DistanceType      DistanceType // 距离计算类型
	EmbedderName      string       // 当前进程的嵌入模型身份，用于一致性校验
	CreateIfNotExists bool         // 路径下没有索引时是否新建（建库true，查询false）
}

// Factory 向量索引工厂函数类型
type Factory func(config Config) (Repository, error)

// RepositoryRegistry 注册可用的向量索引实现
var RepositoryRegistry = map[string]Factory{}

// RegisterRepository 注册向量索引工厂函数
func RegisterRepository(name string, factory Factory) {
	RepositoryRegistry[name] = factory
}

// NewRepository 根据配置创建向量索引实例
func NewRepository(config Config) (Repository, error) {
	factory, ok := RepositoryRegistry[config.Type]
	if !ok {
		// 默认使用内存实现
		factory = NewMemoryRepository
	}
	return factory(config)
}
