package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fyerfyer/ticket-copilot/internal/cache"
	"github.com/fyerfyer/ticket-copilot/internal/llm"
	"github.com/sirupsen/logrus"
)

// AnswerService 工单回答服务
// 协调检索引擎和回答合成器，生成式不可用时自动退回抽取式
type AnswerService struct {
	retrieval   *RetrievalEngine
	synthesizer *llm.Synthesizer
	cache       cache.Cache
	cacheTTL    time.Duration
	topK        int
	logger      *logrus.Logger
}

// AnswerOption 回答服务配置选项
type AnswerOption func(*AnswerService)

// WithAnswerCacheTTL 设置回答缓存时间
func WithAnswerCacheTTL(ttl time.Duration) AnswerOption {
	return func(s *AnswerService) {
		s.cacheTTL = ttl
	}
}

// WithAnswerTopK 设置默认检索结果数量
func WithAnswerTopK(k int) AnswerOption {
	return func(s *AnswerService) {
		s.topK = k
	}
}

// NewAnswerService 创建回答服务实例
func NewAnswerService(
	retrieval *RetrievalEngine,
	synthesizer *llm.Synthesizer,
	answerCache cache.Cache,
	logger *logrus.Logger,
	opts ...AnswerOption,
) *AnswerService {
	service := &AnswerService{
		retrieval:   retrieval,
		synthesizer: synthesizer,
		cache:       answerCache,
		cacheTTL:    time.Hour,
		topK:        3,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// cachedAnswer 回答缓存的存储结构
type cachedAnswer struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// Answer 对工单文本生成建议回复
// 返回回答文本和引用来源；索引未就绪时错误原样向上传递
func (s *AnswerService) Answer(ctx context.Context, query string, k int) (string, []Source, error) {
	if query == "" {
		return "", nil, fmt.Errorf("query cannot be empty")
	}
	if k <= 0 {
		k = s.topK
	}

	// 1. 尝试从缓存获取
	cacheKey := cache.AnswerKey(query, k)
	if cachedJSON, found, err := s.cache.Get(cacheKey); err == nil && found {
		var cached cachedAnswer
		if err := json.Unmarshal([]byte(cachedJSON), &cached); err == nil {
			return cached.Answer, cached.Sources, nil
		}
		// 缓存内容损坏就当缓存未命中
		s.logger.WithField("key", cacheKey).Warn("Failed to decode cached answer, recomputing")
	}

	// 2. 检索相关知识库分块
	sources, err := s.retrieval.Retrieve(ctx, query, k)
	if err != nil {
		return "", nil, err
	}

	// 3. 合成回答，生成式失败在合成器内部退回抽取式
	llmSources := make([]llm.Source, len(sources))
	for i, src := range sources {
		llmSources[i] = llm.Source{
			SourceID: src.SourceID,
			Snippet:  src.Snippet,
			Content:  src.Content,
		}
	}
	answer := s.synthesizer.Synthesize(ctx, query, llmSources)

	// 4. 缓存结果
	if data, err := json.Marshal(cachedAnswer{Answer: answer, Sources: sources}); err == nil {
		if err := s.cache.Set(cacheKey, string(data), s.cacheTTL); err != nil {
			s.logger.WithError(err).Warn("Failed to cache answer")
		}
	}

	return answer, sources, nil
}
