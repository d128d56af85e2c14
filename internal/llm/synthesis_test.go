package llm

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockClient 测试用的大模型客户端
type mockClient struct {
	lastMessages []Message
	reply        string
	err          error
}

func (m *mockClient) Generate(ctx context.Context, prompt string) (*Response, error) {
	return m.Chat(ctx, []Message{{Role: RoleUser, Content: prompt}})
}

func (m *mockClient) Chat(ctx context.Context, messages []Message) (*Response, error) {
	m.lastMessages = messages
	if m.err != nil {
		return nil, m.err
	}
	return &Response{Text: m.reply, ModelName: m.Name(), FinishTime: time.Now()}, nil
}

func (m *mockClient) Name() string {
	return "mock-model"
}

// TestExtractiveAnswer 测试抽取式回答
func TestExtractiveAnswer(t *testing.T) {
	s := NewSynthesizer(nil)

	t.Run("wraps retrieved content", func(t *testing.T) {
		sources := []Source{
			{SourceID: "reset_password.md", Content: "Reset your password by visiting the portal."},
			{SourceID: "vpn_guide.md", Content: "Reconnect the VPN client after a password change."},
		}

		answer := s.ExtractiveAnswer(sources)
		assert.True(t, strings.HasPrefix(answer, "Based on internal procedures:"))
		assert.True(t, strings.HasSuffix(answer, "Please follow the steps above."))
		assert.Contains(t, answer, "Reset your password")
		assert.Contains(t, answer, "Reconnect the VPN client")
	})

	t.Run("truncates context to budget", func(t *testing.T) {
		long := strings.Repeat("a", 2000)
		answer := s.ExtractiveAnswer([]Source{{SourceID: "big.txt", Content: long}})
		assert.Contains(t, answer, strings.Repeat("a", extractiveContextBudget))
		assert.NotContains(t, answer, strings.Repeat("a", extractiveContextBudget+1))
	})

	t.Run("empty sources returns sentinel", func(t *testing.T) {
		answer := s.ExtractiveAnswer(nil)
		assert.Equal(t, NoGroundingAnswer, answer)
	})
}

// TestGenerativeAnswer 测试生成式回答
func TestGenerativeAnswer(t *testing.T) {
	sources := []Source{
		{SourceID: "reset_password.md", Snippet: "Reset your password by visiting the portal.", Content: "Reset your password by visiting the portal."},
	}

	t.Run("not configured", func(t *testing.T) {
		s := NewSynthesizer(nil)
		_, err := s.GenerativeAnswer(context.Background(), "I forgot my password", sources)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrGenerativeUnavailable)
	})

	t.Run("builds cited context", func(t *testing.T) {
		client := &mockClient{reply: "Please visit the portal [1]."}
		s := NewSynthesizer(client)

		answer, err := s.GenerativeAnswer(context.Background(), "I forgot my password", sources)
		require.NoError(t, err)
		assert.Equal(t, "Please visit the portal [1].", answer)

		require.Len(t, client.lastMessages, 2)
		assert.Equal(t, RoleSystem, client.lastMessages[0].Role)
		assert.Contains(t, client.lastMessages[0].Content, "IT support copilot")
		assert.Contains(t, client.lastMessages[1].Content, "[1] reset_password.md:")
		assert.Contains(t, client.lastMessages[1].Content, "I forgot my password")
	})

	t.Run("upstream failure maps to unavailable", func(t *testing.T) {
		client := &mockClient{err: NewLLMError(ErrCodeServerError, ErrMsgServerError)}
		s := NewSynthesizer(client)

		_, err := s.GenerativeAnswer(context.Background(), "I forgot my password", sources)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrGenerativeUnavailable)
	})
}

// TestSynthesizeFallback 生成式失败时整体合成必须回退抽取式
func TestSynthesizeFallback(t *testing.T) {
	sources := []Source{
		{SourceID: "reset_password.md", Snippet: "Reset your password", Content: "Reset your password by visiting the portal."},
	}

	client := &mockClient{err: NewLLMError(ErrCodeTimeout, ErrMsgTimeout)}
	s := NewSynthesizer(client, WithSynthesizerTimeout(time.Second))

	answer := s.Synthesize(context.Background(), "I forgot my password", sources)
	assert.Contains(t, answer, "Based on internal procedures:")
	assert.Contains(t, answer, "Reset your password")
}
