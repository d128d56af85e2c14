package document

import (
	"fmt"
	"strings"
	"unicode"
)

// Chunk 文本分块
// 由单个文本单元派生，相邻分块按固定字符数重叠，
// Index在同一来源内单调递增
type Chunk struct {
	Content  string // 分块文本内容
	SourceID string // 所属文本单元的来源标识
	Index    int    // 在来源内的分块序号
}

// SplitterConfig 分段器配置
type SplitterConfig struct {
	ChunkSize    int // 分块大小（字符数）
	ChunkOverlap int // 分块重叠大小（字符数）
}

// DefaultSplitterConfig 返回默认分段器配置
func DefaultSplitterConfig() SplitterConfig {
	return SplitterConfig{
		ChunkSize:    800,
		ChunkOverlap: 150,
	}
}

// TextSplitter 把文本单元切分为带重叠的分块
type TextSplitter struct {
	config SplitterConfig
}

// NewTextSplitter 创建新的文本分段器
// 重叠必须小于分块大小，否则切分无法推进
func NewTextSplitter(config SplitterConfig) (*TextSplitter, error) {
	if config.ChunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", config.ChunkSize)
	}
	if config.ChunkOverlap < 0 {
		return nil, fmt.Errorf("chunk overlap cannot be negative, got %d", config.ChunkOverlap)
	}
	if config.ChunkOverlap >= config.ChunkSize {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than chunk size %d",
			config.ChunkOverlap, config.ChunkSize)
	}
	return &TextSplitter{config: config}, nil
}

// Split 将一批文本单元切分为分块
// 每个单元独立切分，分块覆盖单元的全部内容
func (s *TextSplitter) Split(units []TextUnit) []Chunk {
	var chunks []Chunk
	for _, unit := range units {
		for i, piece := range s.splitText(unit.Content) {
			chunks = append(chunks, Chunk{
				Content:  piece,
				SourceID: unit.SourceID,
				Index:    i,
			})
		}
	}
	return chunks
}

// splitText 按字符窗口切分文本
// 窗口边界优先落在段落/句子/单词的自然分隔处，
// 但无论如何不超过ChunkSize；下一个窗口从
// 上一个边界回退ChunkOverlap个字符开始，保证内容覆盖
func (s *TextSplitter) splitText(text string) []string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}

	size := s.config.ChunkSize
	overlap := s.config.ChunkOverlap

	var pieces []string
	start := 0
	for {
		end := start + size
		if end >= len(runes) {
			appendPiece(&pieces, runes[start:])
			break
		}

		end = s.findBreak(runes, start, end)
		appendPiece(&pieces, runes[start:end])
		start = end - overlap
	}
	return pieces
}

// findBreak 在窗口尾部寻找自然断点
// 依次尝试段落边界、句子边界和空白符；搜索下限保证
// 窗口长度始终大于重叠量，切分能够向前推进
func (s *TextSplitter) findBreak(runes []rune, start, end int) int {
	floor := start + s.config.ChunkSize/2
	if min := start + s.config.ChunkOverlap + 1; floor < min {
		floor = min
	}
	if floor >= end {
		return end
	}

	// 段落边界：空行
	for i := end; i > floor; i-- {
		if runes[i-1] == '\n' && i >= 2 && runes[i-2] == '\n' {
			return i
		}
	}

	// 句子边界
	for i := end; i > floor; i-- {
		if isSentenceEnd(runes[i-1]) {
			return i
		}
	}

	// 单词边界
	for i := end; i > floor; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}

	return end
}

// isSentenceEnd 判断是否为句子结束符
func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？', '；':
		return true
	}
	return false
}

// appendPiece 追加非空分块
func appendPiece(pieces *[]string, runes []rune) {
	piece := strings.TrimSpace(string(runes))
	if piece != "" {
		*pieces = append(*pieces, piece)
	}
}
