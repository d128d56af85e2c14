package storage

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLocalStorage 测试本地知识库存储
func TestLocalStorage(t *testing.T) {
	store, err := NewLocalStorage(LocalConfig{Path: t.TempDir()})
	require.NoError(t, err)

	// 保存文件
	content := "Reset your password by visiting the portal."
	info, err := store.Save(strings.NewReader(content), "reset_password.md")
	require.NoError(t, err)
	assert.Equal(t, "reset_password.md", info.Name)
	assert.Equal(t, int64(len(content)), info.Size)
	assert.Equal(t, "text/markdown", info.MimeType)

	// 读取文件
	reader, err := store.Get("reset_password.md")
	require.NoError(t, err)
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	reader.Close()
	assert.Equal(t, content, string(data))

	// 同名覆盖
	updated := "Reset your password at the new portal."
	_, err = store.Save(strings.NewReader(updated), "reset_password.md")
	require.NoError(t, err)

	reader, err = store.Get("reset_password.md")
	require.NoError(t, err)
	data, _ = io.ReadAll(reader)
	reader.Close()
	assert.Equal(t, updated, string(data))

	// 列出文件
	_, err = store.Save(strings.NewReader("VPN setup guide"), "vpn_guide.txt")
	require.NoError(t, err)

	files, err := store.List()
	require.NoError(t, err)
	assert.Len(t, files, 2)

	// 存在性检查
	exists, err := store.Exists("reset_password.md")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.Exists("missing.md")
	require.NoError(t, err)
	assert.False(t, exists)

	// 删除
	require.NoError(t, store.Delete("vpn_guide.txt"))
	_, err = store.Get("vpn_guide.txt")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFileNotFound)
}

// TestSanitizeName 拒绝路径穿越文件名
func TestSanitizeName(t *testing.T) {
	store, err := NewLocalStorage(LocalConfig{Path: t.TempDir()})
	require.NoError(t, err)

	for _, name := range []string{"../escape.txt", "a/b.txt", "..", ""} {
		_, err := store.Save(strings.NewReader("x"), name)
		assert.Error(t, err, "name %q should be rejected", name)
	}
}

// TestGetMimeType 测试MIME类型判断
func TestGetMimeType(t *testing.T) {
	assert.Equal(t, "application/pdf", getMimeType("doc.pdf"))
	assert.Equal(t, "text/markdown", getMimeType("guide.MD"))
	assert.Equal(t, "text/plain", getMimeType("note.txt"))
	assert.Equal(t, "application/octet-stream", getMimeType("image.png"))
}
