package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiClient Google Gemini大模型客户端实现
type GeminiClient struct {
	client      *genai.Client
	modelName   string
	maxRetries  int
	maxTokens   int
	temperature float32
	topP        float32
}

// NewGeminiClient 创建新的Gemini大模型客户端
func NewGeminiClient(opts ...Option) (Client, error) {
	cfg := NewConfig(opts...)

	if cfg.APIKey == "" {
		return nil, NewLLMError(ErrCodeNotConfigured, ErrMsgNotConfigured)
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = ModelGeminiFlash
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, NewLLMError(ErrCodeNetworkError, "failed to create gemini client: "+err.Error())
	}

	return &GeminiClient{
		client:      client,
		modelName:   modelName,
		maxRetries:  cfg.MaxRetries,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		topP:        cfg.TopP,
	}, nil
}

// Name 返回模型名称
func (c *GeminiClient) Name() string {
	return c.modelName
}

// Generate 根据提示词生成回答
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (*Response, error) {
	if prompt == "" {
		return nil, NewLLMError(ErrCodeEmptyPrompt, ErrMsgEmptyPrompt)
	}
	return c.Chat(ctx, []Message{{Role: RoleUser, Content: prompt}})
}

// Chat 进行多轮对话
// system消息转为Gemini的SystemInstruction，其余消息拼接为用户输入
func (c *GeminiClient) Chat(ctx context.Context, messages []Message) (*Response, error) {
	if len(messages) == 0 {
		return nil, NewLLMError(ErrCodeInvalidRequest, "messages cannot be empty")
	}

	model := c.client.GenerativeModel(c.modelName)
	model.SetTemperature(c.temperature)
	model.SetTopP(c.topP)
	if c.maxTokens > 0 {
		model.SetMaxOutputTokens(int32(c.maxTokens))
	}

	var userParts []string
	for _, msg := range messages {
		if msg.Role == RoleSystem {
			model.SystemInstruction = &genai.Content{
				Parts: []genai.Part{genai.Text(msg.Content)},
			}
			continue
		}
		userParts = append(userParts, msg.Content)
	}
	if len(userParts) == 0 {
		return nil, NewLLMError(ErrCodeInvalidRequest, "no user message provided")
	}
	prompt := strings.Join(userParts, "\n\n")

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, NewLLMError(ErrCodeTimeout, ctx.Err().Error())
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		resp, err := model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			lastErr = NewLLMError(ErrCodeServerError, err.Error())
			continue
		}

		text := extractGeminiText(resp)
		if text == "" {
			lastErr = NewLLMError(ErrCodeServerError, "empty completion")
			continue
		}

		tokens := 0
		if resp.UsageMetadata != nil {
			tokens = int(resp.UsageMetadata.TotalTokenCount)
		}
		return &Response{
			Text:       text,
			TokenCount: tokens,
			ModelName:  c.modelName,
			FinishTime: time.Now(),
		}, nil
	}
	return nil, lastErr
}

// extractGeminiText 从响应候选中提取文本内容
func extractGeminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				builder.WriteString(string(text))
			}
		}
	}
	return strings.TrimSpace(builder.String())
}

// Close 释放底层连接
func (c *GeminiClient) Close() error {
	if c.client == nil {
		return nil
	}
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("failed to close gemini client: %v", err)
	}
	return nil
}

// 在包初始化时注册Gemini大模型客户端
func init() {
	RegisterClient("gemini", NewGeminiClient)
}
