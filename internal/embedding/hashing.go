package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

// HashingClient 本地特征哈希嵌入
// 不依赖外部服务，同样的文本总是得到同样的向量
type HashingClient struct {
	dimensions   int
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

// NewHashingClient 创建本地哈希嵌入客户端
func NewHashingClient(opts ...Option) (Client, error) {
	cfg := NewConfig(opts...)
	if cfg.Dimensions <= 0 {
		return nil, NewEmbeddingError(ErrCodeInvalidRequest, "dimensions must be positive")
	}

	return &HashingClient{
		dimensions:   cfg.Dimensions,
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`),
		stopwords:    defaultStopwords(),
	}, nil
}

// Name 返回模型名称
func (c *HashingClient) Name() string {
	return "local-hashing"
}

// Dimensions 返回向量维度
func (c *HashingClient) Dimensions() int {
	return c.dimensions
}

// Embed 计算词频哈希向量并做L2归一化
func (c *HashingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	tokens := c.tokenize(text)
	if len(tokens) == 0 {
		return nil, ErrDegenerateText
	}

	tf := make(map[int]float64)
	for _, tok := range tokens {
		h := fnv.New64a()
		h.Write([]byte(tok))
		sum := h.Sum64()

		// 最高位决定符号，减少哈希碰撞的偏差
		sign := 1.0
		if sum>>63 == 1 {
			sign = -1.0
		}
		tf[int(sum%uint64(c.dimensions))] += sign
	}

	vec := make([]float32, c.dimensions)
	norm := 0.0
	for idx, v := range tf {
		w := math.Copysign(math.Log1p(math.Abs(v)), v)
		vec[idx] = float32(w)
		norm += w * w
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return nil, ErrDegenerateText
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}

	return vec, nil
}

// EmbedBatch 逐条计算，失败或为空的位置返回nil
func (c *HashingClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := c.Embed(ctx, text)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		results[i] = vec
	}
	return results, nil
}

func (c *HashingClient) tokenize(text string) []string {
	raw := c.tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := c.stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at",
		"by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that",
		"these", "those", "from", "so", "such", "into", "about", "can", "will", "just", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

func init() {
	RegisterClient("local", NewHashingClient)
}
