package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// NoGroundingAnswer 检索不到任何内部流程时的固定回复
// 宁可明说没找到，也不允许凭空编造操作步骤
const NoGroundingAnswer = "I could not find any matching internal procedures for this request. " +
	"Please provide more details so the support team can assist you."

// extractiveContextBudget 抽取式回答拼接上下文的字符预算
const extractiveContextBudget = 800

// snippetCitationLimit 生成式上下文中每条引用片段的字符上限
const snippetCitationLimit = 300

// generativeSystemPrompt 生成式回答的固定系统指令
// 约束模型只引用提供的来源，信息不足时追问而不是猜测
const generativeSystemPrompt = "You are an IT support copilot. Draft a helpful, professional reply to the user.\n" +
	"Use ONLY the provided internal procedure snippets as grounding.\n" +
	"If information is missing, ask for the minimum required details.\n" +
	"Always include short citations like [1], [2] referencing the provided sources.\n" +
	"Keep the reply concise and actionable."

// Source 回答合成使用的检索来源
type Source struct {
	SourceID string // 来源标识
	Snippet  string // 引用展示用的截断片段
	Content  string // 分块完整内容，抽取式回答使用
}

// SynthesizerConfig 回答合成器配置
type SynthesizerConfig struct {
	Timeout time.Duration // 生成式调用超时时间
}

// DefaultSynthesizerConfig 默认合成器配置
func DefaultSynthesizerConfig() *SynthesizerConfig {
	return &SynthesizerConfig{
		Timeout: 30 * time.Second,
	}
}

// Synthesizer 回答合成器
// client为nil时只提供抽取式回答，生成式路径视为未配置
type Synthesizer struct {
	client Client
	config *SynthesizerConfig
}

// SynthesizerOption 合成器配置选项函数类型
type SynthesizerOption func(*SynthesizerConfig)

// WithSynthesizerTimeout 设置生成式调用超时时间
func WithSynthesizerTimeout(timeout time.Duration) SynthesizerOption {
	return func(c *SynthesizerConfig) {
		c.Timeout = timeout
	}
}

// NewSynthesizer 创建回答合成器
func NewSynthesizer(client Client, opts ...SynthesizerOption) *Synthesizer {
	cfg := DefaultSynthesizerConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &Synthesizer{
		client: client,
		config: cfg,
	}
}

// GenerativeConfigured 生成式路径是否可用
func (s *Synthesizer) GenerativeConfigured() bool {
	return s.client != nil
}

// Synthesize 根据检索来源合成回答
// 优先走生成式，不可用或失败时回退抽取式，整个请求不会因此失败
func (s *Synthesizer) Synthesize(ctx context.Context, query string, sources []Source) string {
	answer, err := s.GenerativeAnswer(ctx, query, sources)
	if err == nil {
		return answer
	}
	return s.ExtractiveAnswer(sources)
}

// ExtractiveAnswer 抽取式回答
// 直接拼接检索到的分块内容，截断到固定预算后套上固定的首尾语
func (s *Synthesizer) ExtractiveAnswer(sources []Source) string {
	if len(sources) == 0 {
		return NoGroundingAnswer
	}

	contents := make([]string, 0, len(sources))
	for _, src := range sources {
		contents = append(contents, src.Content)
	}
	context := strings.Join(contents, "\n\n")

	runes := []rune(context)
	if len(runes) > extractiveContextBudget {
		context = string(runes[:extractiveContextBudget])
	}

	return "Based on internal procedures:\n\n" + context + "\n\nPlease follow the steps above."
}

// GenerativeAnswer 生成式回答
// 未配置客户端、调用失败或超时都返回ErrGenerativeUnavailable
func (s *Synthesizer) GenerativeAnswer(ctx context.Context, query string, sources []Source) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("%w: no client configured", ErrGenerativeUnavailable)
	}
	if len(sources) == 0 {
		return "", fmt.Errorf("%w: no sources to ground on", ErrGenerativeUnavailable)
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	messages := []Message{
		{Role: RoleSystem, Content: generativeSystemPrompt},
		{Role: RoleUser, Content: buildGenerativePrompt(query, sources)},
	}

	response, err := s.client.Chat(ctxWithTimeout, messages)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerativeUnavailable, err)
	}

	answer := strings.TrimSpace(response.Text)
	if answer == "" {
		return "", fmt.Errorf("%w: empty completion", ErrGenerativeUnavailable)
	}
	return answer, nil
}

// buildGenerativePrompt 构建带引用标注的用户提示词
// 每个来源编号成 [i] source: snippet 一行，供模型按编号引用
func buildGenerativePrompt(query string, sources []Source) string {
	var contextLines []string
	for i, src := range sources {
		snippet := src.Snippet
		runes := []rune(snippet)
		if len(runes) > snippetCitationLimit {
			snippet = string(runes[:snippetCitationLimit])
		}
		contextLines = append(contextLines, fmt.Sprintf("[%d] %s: %s", i+1, src.SourceID, snippet))
	}

	return fmt.Sprintf(
		"Ticket:\n%s\n\nInternal procedure snippets:\n%s\n\nWrite the suggested reply.",
		query, strings.Join(contextLines, "\n"))
}
