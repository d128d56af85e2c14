package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalClientIdentity(t *testing.T) {
	client, err := NewClient("local")
	require.NoError(t, err)

	assert.Equal(t, "local-hash-256", client.Name())
	assert.Equal(t, 256, client.Dimensions())

	// 维度进入身份标识，不同维度是不同的嵌入器
	small, err := NewClient("local", WithDimensions(64))
	require.NoError(t, err)
	assert.Equal(t, "local-hash-64", small.Name())
	assert.Equal(t, 64, small.Dimensions())
}

func TestLocalEmbedDeterministic(t *testing.T) {
	client, err := NewClient("local")
	require.NoError(t, err)
	ctx := context.Background()

	first, err := client.Embed(ctx, "reset my password")
	require.NoError(t, err)
	require.Len(t, first, 256)

	second, err := client.Embed(ctx, "reset my password")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// 向量L2归一化
	var norm float64
	for _, v := range first {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)
}

func TestLocalEmbedSimilarity(t *testing.T) {
	client, err := NewClient("local", WithDimensions(128))
	require.NoError(t, err)
	ctx := context.Background()

	query, err := client.Embed(ctx, "forgot my password")
	require.NoError(t, err)
	related, err := client.Embed(ctx, "reset your password at the portal")
	require.NoError(t, err)
	unrelated, err := client.Embed(ctx, "quarterly revenue spreadsheet totals")
	require.NoError(t, err)

	// 词面重合的文本得分更高
	assert.Greater(t, dot(query, related), dot(query, unrelated))
}

func TestLocalEmbedEmptyInput(t *testing.T) {
	client, err := NewClient("local")
	require.NoError(t, err)

	_, err = client.Embed(context.Background(), "   ")
	assert.Error(t, err)
}

func TestLocalEmbedBatch(t *testing.T) {
	client, err := NewClient("local")
	require.NoError(t, err)

	vectors, err := client.EmbedBatch(context.Background(), []string{"first text", "second text"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.NotEqual(t, vectors[0], vectors[1])
}

func TestClientFactory(t *testing.T) {
	_, err := NewClient("local")
	assert.NoError(t, err)

	_, err = NewClient("nonexistent")
	assert.Error(t, err)
}

// dot 向量点积
func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
