package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// 通义千问API端点
	defaultTongyiEndpoint = "https://dashscope.aliyuncs.com/api/v1/services/aigc/text-generation/generation"
)

// TongyiClient 通义千问大模型客户端实现
type TongyiClient struct {
	apiKey      string
	baseURL     string
	model       string
	httpClient  *http.Client
	maxRetries  int
	maxTokens   int
	temperature float32
	topP        float32
}

// NewTongyiClient 创建新的通义千问大模型客户端
func NewTongyiClient(opts ...Option) (Client, error) {
	cfg := NewConfig(opts...)

	if cfg.APIKey == "" {
		return nil, NewLLMError(ErrCodeNotConfigured, ErrMsgNotConfigured)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultTongyiEndpoint
	}

	model := cfg.Model
	if model == "" {
		model = ModelQwenTurbo
	}

	return &TongyiClient{
		apiKey:      cfg.APIKey,
		baseURL:     baseURL,
		model:       model,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		maxRetries:  cfg.MaxRetries,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		topP:        cfg.TopP,
	}, nil
}

// Name 返回模型名称
func (c *TongyiClient) Name() string {
	return c.model
}

// Generate 根据提示词生成回答
func (c *TongyiClient) Generate(ctx context.Context, prompt string) (*Response, error) {
	if prompt == "" {
		return nil, NewLLMError(ErrCodeEmptyPrompt, ErrMsgEmptyPrompt)
	}
	return c.Chat(ctx, []Message{{Role: RoleUser, Content: prompt}})
}

// Chat 进行多轮对话
func (c *TongyiClient) Chat(ctx context.Context, messages []Message) (*Response, error) {
	if len(messages) == 0 {
		return nil, NewLLMError(ErrCodeInvalidRequest, "messages cannot be empty")
	}

	request := TongyiRequest{
		Model: c.model,
		Input: &TongyiRequestInput{Messages: messages},
		Parameters: &TongyiParameters{
			Temperature:  &c.temperature,
			TopP:         &c.topP,
			MaxTokens:    &c.maxTokens,
			ResultFormat: "message",
		},
	}

	body, err := json.Marshal(request)
	if err != nil {
		return nil, NewLLMError(ErrCodeInvalidRequest, err.Error())
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, NewLLMError(ErrCodeTimeout, ctx.Err().Error())
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		response, retryable, err := c.doRequest(ctx, body)
		if err == nil {
			return response, nil
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
func (c *TongyiClient) doRequest(ctx context.Context, body []byte) (*Response, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, false, NewLLMError(ErrCodeInvalidRequest, err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, NewLLMError(ErrCodeNetworkError, err.Error())
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, NewLLMError(ErrCodeNetworkError, err.Error())
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, false, NewLLMError(ErrCodeInvalidAPIKey, ErrMsgInvalidAPIKey)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, NewLLMError(ErrCodeRateLimited, ErrMsgRateLimited)
	case resp.StatusCode >= 500:
		return nil, true, NewLLMError(ErrCodeServerError, ErrMsgServerError)
	case resp.StatusCode != http.StatusOK:
		return nil, false, NewLLMError(ErrCodeInvalidRequest,
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(data)))
	}

	var response TongyiResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, false, NewLLMError(ErrCodeServerError, "failed to parse response: "+err.Error())
	}
	if response.Code != "" {
		return nil, false, NewLLMError(ErrCodeServerError,
			fmt.Sprintf("api error %s: %s", response.Code, response.Message))
	}

	text := ""
	if len(response.Output.Choices) > 0 {
		text = response.Output.Choices[0].Message.Content
	} else if response.Output.Text != nil {
		text = *response.Output.Text
	}
	if text == "" {
		return nil, false, NewLLMError(ErrCodeServerError, "empty completion")
	}

	return &Response{
		Text:       text,
		TokenCount: response.Usage.TotalTokens,
		ModelName:  c.model,
		FinishTime: time.Now(),
	}, false, nil
}

// 在包初始化时注册通义千问大模型客户端
func init() {
	RegisterClient("tongyi", NewTongyiClient)
}
