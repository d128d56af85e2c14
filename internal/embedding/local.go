package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// LocalClient 本地特征哈希嵌入客户端
// 把词条哈希到固定数量的桶里累加词频，再做L2归一化。
// 完全确定性，不依赖网络，用于测试、CI和离线部署。
// 注意它只捕捉词面重合度，不捕捉语义相似度
type LocalClient struct {
	model      string
	dimensions int
}

// NewLocalClient 创建本地哈希嵌入客户端
func NewLocalClient(opts ...Option) (Client, error) {
	cfg := NewConfig(opts...)

	dimensions := cfg.Dimensions
	if dimensions <= 0 {
		dimensions = 256
	}

	model := cfg.Model
	if model == "" {
		model = fmt.Sprintf("local-hash-%d", dimensions)
	}

	return &LocalClient{
		model:      model,
		dimensions: dimensions,
	}, nil
}

// Name 返回嵌入模型身份标识
func (c *LocalClient) Name() string {
	return c.model
}

// Dimensions 返回向量维度
func (c *LocalClient) Dimensions() int {
	return c.dimensions
}

// Embed 生成单条文本的向量表示
func (c *LocalClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, NewEmbeddingError(ErrCodeEmptyInput, ErrMsgEmptyInput)
	}
	if err := ctx.Err(); err != nil {
		return nil, NewEmbeddingError(ErrCodeTimeout, err.Error())
	}

	vector := make([]float32, c.dimensions)
	for _, token := range hashTokens(text) {
		h := fnv.New64a()
		h.Write([]byte(token))
		sum := h.Sum64()

		bucket := int(sum % uint64(c.dimensions))
		// 用哈希的高位决定符号，减少桶冲突造成的偏置
		sign := float32(1)
		if sum>>63 == 1 {
			sign = -1
		}
		vector[bucket] += sign
	}

	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vector {
			vector[i] *= scale
		}
	}

	return vector, nil
}

// EmbedBatch 批量生成多条文本的向量表示
func (c *LocalClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vector, err := c.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vector
	}
	return vectors, nil
}

// hashTokens 切分并小写化文本词条
func hashTokens(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// 在包初始化时注册本地嵌入客户端
func init() {
	RegisterClient("local", NewLocalClient)
}
