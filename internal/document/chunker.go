package document

import (
	"errors"
	"fmt"
)

// ErrInvalidChunkConfig 分块参数不合法
var ErrInvalidChunkConfig = errors.New("invalid chunk config")

const (
	// DefaultChunkSize 默认分块大小（字符）
	DefaultChunkSize = 5000
	// DefaultChunkOverlap 默认相邻分块重叠字符数
	DefaultChunkOverlap = 200
)

// Chunk 文档中的一段连续文本
// Start 为该段在原文中的字符偏移量
type Chunk struct {
	Index int    // 分块序号
	Start int    // 起始字符偏移
	Text  string // 分块文本
}

// Len 返回分块的字符数
func (c Chunk) Len() int {
	return len([]rune(c.Text))
}

// Chunker 固定窗口滑动分块器
type Chunker struct {
	size    int
	overlap int
}

// NewChunker 创建分块器，要求 0 <= overlap < size
func NewChunker(size, overlap int) (*Chunker, error) {
	if err := checkChunkConfig(size, overlap); err != nil {
		return nil, err
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Size 返回窗口大小
func (c *Chunker) Size() int { return c.size }

// Overlap 返回重叠大小
func (c *Chunker) Overlap() int { return c.overlap }

// Split 将文本切分为重叠的分块
func (c *Chunker) Split(text string) ([]Chunk, error) {
	return Split(text, c.size, c.overlap)
}

// Split 以 size 为窗口、size-overlap 为步长切分文本
// 长度按 Unicode 码点计算，最后一块可以短于 size
func Split(text string, size, overlap int) ([]Chunk, error) {
	if err := checkChunkConfig(size, overlap); err != nil {
		return nil, err
	}

	runes := []rune(text)
	total := len(runes)
	if total == 0 {
		return []Chunk{}, nil
	}

	step := size - overlap
	chunks := make([]Chunk, 0, total/step+1)
	for start := 0; start < total; start += step {
		end := start + size
		if end > total {
			end = total
		}
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Start: start,
			Text:  string(runes[start:end]),
		})
		// 窗口已到达末尾，后续窗口都会落在其中
		if end == total {
			break
		}
	}

	return chunks, nil
}

// Texts 提取分块文本
func Texts(chunks []Chunk) []string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return texts
}

func checkChunkConfig(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidChunkConfig, size)
	}
	if overlap < 0 || overlap >= size {
		return fmt.Errorf("%w: overlap must be in [0, %d), got %d", ErrInvalidChunkConfig, size, overlap)
	}
	return nil
}
