package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// 默认API端点
	defaultDashScopeEndpoint = "https://dashscope.aliyuncs.com/api/v1/services/embeddings/text-embedding/text-embedding"
	// 默认模型
	defaultTongyiModel = "text-embedding-v2"
)

// TongyiClient 实现通义千问嵌入API客户端
type TongyiClient struct {
	apiKey     string
	endpoint   string
	model      string
	httpClient *http.Client
	maxRetries int
	dimensions int
	batchSize  int
}

// NewTongyiClient 创建新的通义千问嵌入客户端
func NewTongyiClient(opts ...Option) (Client, error) {
	cfg := NewConfig(opts...)

	if cfg.APIKey == "" {
		return nil, NewEmbeddingError(ErrCodeInvalidAPIKey, ErrMsgInvalidAPIKey)
	}

	endpoint := cfg.BaseURL
	if endpoint == "" {
		endpoint = defaultDashScopeEndpoint
	}

	model := cfg.Model
	if model == "" {
		model = defaultTongyiModel
	}

	dimensions := cfg.Dimensions
	if dimensions <= 0 {
		dimensions = 1024
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 16
	}

	return &TongyiClient{
		apiKey:     cfg.APIKey,
		endpoint:   endpoint,
		model:      model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
		dimensions: dimensions,
		batchSize:  batchSize,
	}, nil
}

// Name 返回嵌入模型身份标识
func (c *TongyiClient) Name() string {
	return c.model
}

// Dimensions 返回向量维度
func (c *TongyiClient) Dimensions() int {
	return c.dimensions
}

// Embed 生成单条文本的向量表示
func (c *TongyiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, NewEmbeddingError(ErrCodeEmptyInput, ErrMsgEmptyInput)
	}

	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, NewEmbeddingError(ErrCodeServerError, "no embedding vectors returned")
	}
	return vectors[0], nil
}

// EmbedBatch 批量生成多条文本的向量表示
// 超出批大小限制的输入自动拆成多次请求
func (c *TongyiClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// embedBatch 发送一批文本的嵌入请求，带重试
func (c *TongyiClient) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	request := TongyiEmbeddingRequest{
		Model: c.model,
		Input: TongyiEmbeddingInput{Texts: texts},
		Parameters: &TongyiParameters{
			Dimension: c.dimensions,
		},
	}

	body, err := json.Marshal(request)
	if err != nil {
		return nil, NewEmbeddingError(ErrCodeInvalidRequest, err.Error())
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// 指数退避
			select {
			case <-ctx.Done():
				return nil, NewEmbeddingError(ErrCodeTimeout, ctx.Err().Error())
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		vectors, retryable, err := c.doRequest(ctx, body, len(texts))
		if err == nil {
			return vectors, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return nil, lastErr
}

// doRequest 执行一次HTTP请求
// 返回值第二项表示错误是否可重试
func (c *TongyiClient) doRequest(ctx context.Context, body []byte, n int) ([][]float32, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, false, NewEmbeddingError(ErrCodeInvalidRequest, err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, NewEmbeddingError(ErrCodeNetworkError, err.Error())
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, NewEmbeddingError(ErrCodeNetworkError, err.Error())
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, false, NewEmbeddingError(ErrCodeInvalidAPIKey, ErrMsgInvalidAPIKey)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, NewEmbeddingError(ErrCodeRateLimited, ErrMsgRateLimited)
	case resp.StatusCode >= 500:
		return nil, true, NewEmbeddingError(ErrCodeServerError, ErrMsgServerError)
	case resp.StatusCode != http.StatusOK:
		return nil, false, NewEmbeddingError(ErrCodeInvalidRequest,
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(data)))
	}

	var response TongyiEmbeddingResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, false, NewEmbeddingError(ErrCodeServerError, "failed to parse response: "+err.Error())
	}
	if response.Code != "" {
		return nil, false, NewEmbeddingError(ErrCodeServerError,
			fmt.Sprintf("api error %s: %s", response.Code, response.Message))
	}
	if len(response.Output.Embeddings) != n {
		return nil, false, NewEmbeddingError(ErrCodeServerError,
			fmt.Sprintf("expected %d embeddings, got %d", n, len(response.Output.Embeddings)))
	}

	// 按text_index还原输入顺序
	vectors := make([][]float32, n)
	for _, e := range response.Output.Embeddings {
		if e.TextIndex < 0 || e.TextIndex >= n {
			return nil, false, NewEmbeddingError(ErrCodeServerError,
				fmt.Sprintf("embedding text_index %d out of range", e.TextIndex))
		}
		vectors[e.TextIndex] = e.Embedding
	}
	return vectors, false, nil
}

// 在包初始化时注册通义千问嵌入客户端
func init() {
	RegisterClient("tongyi", NewTongyiClient)
}
