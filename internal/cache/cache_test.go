package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMemoryCache 测试内存缓存的基本功能
func TestMemoryCache(t *testing.T) {
	config := Config{
		Type:            "memory",
		DefaultTTL:      time.Second * 2,
		CleanupInterval: time.Second,
	}
	c, err := NewMemoryCache(config)
	require.NoError(t, err)

	err = c.Set("key1", "value1", 0)
	require.NoError(t, err)

	val, found, err := c.Get("key1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "value1", val)

	// 不存在的键
	_, found, err = c.Get("non-existent")
	require.NoError(t, err)
	assert.False(t, found)

	// 过期
	err = c.Set("expire-soon", "temp-value", time.Millisecond*100)
	require.NoError(t, err)
	time.Sleep(time.Millisecond * 200)

	_, found, err = c.Get("expire-soon")
	require.NoError(t, err)
	assert.False(t, found)

	// 删除
	require.NoError(t, c.Set("to-delete", "delete-me", 0))
	require.NoError(t, c.Delete("to-delete"))
	_, found, _ = c.Get("to-delete")
	assert.False(t, found)

	// 清空
	require.NoError(t, c.Set("key2", "value2", 0))
	require.NoError(t, c.Clear())
	_, found, _ = c.Get("key2")
	assert.False(t, found)
}

// TestRedisCache 用miniredis测试Redis缓存
func TestRedisCache(t *testing.T) {
	server := miniredis.RunT(t)

	config := Config{
		Type:       "redis",
		RedisAddr:  server.Addr(),
		DefaultTTL: time.Minute,
	}

	c, err := NewCache(config)
	require.NoError(t, err)

	err = c.Set("redis-key1", "redis-value1", time.Minute)
	require.NoError(t, err)

	val, found, err := c.Get("redis-key1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "redis-value1", val)

	_, found, err = c.Get("redis-non-existent")
	require.NoError(t, err)
	assert.False(t, found)

	// miniredis需要手动推进时间来触发过期
	err = c.Set("redis-expire-soon", "temp", time.Second)
	require.NoError(t, err)
	server.FastForward(time.Second * 2)

	_, found, err = c.Get("redis-expire-soon")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set("redis-to-delete", "delete-me", time.Minute))
	require.NoError(t, c.Delete("redis-to-delete"))
	_, found, _ = c.Get("redis-to-delete")
	assert.False(t, found)
}

// TestCacheFactory 测试缓存工厂函数
func TestCacheFactory(t *testing.T) {
	memCache, err := NewCache(DefaultConfig())
	require.NoError(t, err)
	assert.NotNil(t, memCache)

	// 未知类型回退到内存缓存
	unknownCache, err := NewCache(Config{Type: "unknown-type"})
	require.NoError(t, err)
	assert.NotNil(t, unknownCache)
}

// TestAnswerKey 测试回答缓存键
func TestAnswerKey(t *testing.T) {
	key1 := AnswerKey("I forgot my password", 3)
	key2 := AnswerKey("I forgot my password", 3)
	key3 := AnswerKey("I forgot my password", 5)
	key4 := AnswerKey("VPN is down", 3)

	// 相同输入键一致，不同输入键不同
	assert.Equal(t, key1, key2)
	assert.NotEqual(t, key1, key3)
	assert.NotEqual(t, key1, key4)
	assert.Contains(t, key1, "answer:k3:")
}

// TestGenerateCacheKey 测试缓存键生成
func TestGenerateCacheKey(t *testing.T) {
	assert.Equal(t, "prefix", GenerateCacheKey("prefix"))
	assert.Equal(t, "prefix:part1", GenerateCacheKey("prefix", "part1"))
	assert.Equal(t, "prefix:part1:part2", GenerateCacheKey("prefix", "part1", "part2"))
}
