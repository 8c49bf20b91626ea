package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/fyerfyer/doc-assistant/internal/document"
	"github.com/fyerfyer/doc-assistant/internal/embedding"
	"github.com/fyerfyer/doc-assistant/internal/vectordb"
	"github.com/sirupsen/logrus"
)

var (
	// ErrIndexEmpty 没有任何分块成功生成向量
	ErrIndexEmpty = vectordb.ErrIndexEmpty
	// ErrDimensionMismatch 查询向量与索引维度不一致
	ErrDimensionMismatch = vectordb.ErrDimensionMismatch
)

// DefaultTopK 默认检索数量
const DefaultTopK = 3

// DroppedChunk 建索引时被丢弃的分块
type DroppedChunk struct {
	Chunk document.Chunk
	Err   error
}

// Hit 检索命中的分块及其距离
type Hit struct {
	Chunk    document.Chunk
	Distance float32
}

// Index 一个文档的向量索引
// 构建完成后只读，可以被多个请求并发查询
type Index struct {
	repo      vectordb.Repository
	chunks    []document.Chunk
	dropped   []DroppedChunk
	model     string
	dimension int
}

// Size 返回索引中的分块数
func (i *Index) Size() int { return len(i.chunks) }

// Dimension 返回向量维度
func (i *Index) Dimension() int { return i.dimension }

// Model 返回建索引使用的嵌入模型
func (i *Index) Model() string { return i.model }

// Dropped 返回被丢弃的分块
func (i *Index) Dropped() []DroppedChunk { return i.dropped }

// Chunks 返回已索引的分块，按插入顺序
func (i *Index) Chunks() []document.Chunk { return i.chunks }

// Close 释放底层索引
func (i *Index) Close() error {
	if i == nil || i.repo == nil {
		return nil
	}
	return i.repo.Close()
}

// Store 负责为分块生成向量、建立索引并检索
type Store struct {
	client    embedding.Client
	processor *embedding.BatchProcessor
	indexType string
	distance  vectordb.DistanceType
	logger    *logrus.Logger
}

// Option Store配置选项
type Option func(*Store)

// WithIndexType 设置向量索引类型
func WithIndexType(indexType string) Option {
	return func(s *Store) {
		s.indexType = indexType
	}
}

// WithBatch 设置批量嵌入的批大小和并发数
func WithBatch(batchSize, workers int) Option {
	return func(s *Store) {
		s.processor = embedding.NewBatchProcessor(s.client, batchSize, workers)
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *logrus.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore 创建检索存储
func NewStore(client embedding.Client, opts ...Option) *Store {
	s := &Store{
		client:    client,
		processor: embedding.NewBatchProcessor(client, 16, 4),
		indexType: "memory",
		distance:  vectordb.Euclidean,
		logger:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Build 为分块生成向量并建立索引
// 无法嵌入的分块被丢弃并记录，全部失败时返回 ErrIndexEmpty
func (s *Store) Build(ctx context.Context, chunks []document.Chunk) (*Index, error) {
	if len(chunks) == 0 {
		return nil, ErrIndexEmpty
	}

	results, err := s.processor.Process(ctx, document.Texts(chunks))
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}

	idx := &Index{model: s.client.Name()}
	docs := make([]vectordb.Document, 0, len(chunks))
	for i, res := range results {
		if res.Err != nil || len(res.Vector) == 0 {
			cause := res.Err
			if cause == nil {
				cause = embedding.ErrDegenerateText
			}
			idx.dropped = append(idx.dropped, DroppedChunk{Chunk: chunks[i], Err: cause})
			s.logger.WithFields(logrus.Fields{
				"chunk": chunks[i].Index,
				"start": chunks[i].Start,
				"error": cause.Error(),
			}).Warn("Dropping chunk without embedding")
			continue
		}

		docs = append(docs, vectordb.Document{
			ID:     strconv.Itoa(chunks[i].Index),
			Text:   chunks[i].Text,
			Vector: res.Vector,
		})
		idx.chunks = append(idx.chunks, chunks[i])
	}

	if len(docs) == 0 {
		return nil, ErrIndexEmpty
	}

	repo, err := vectordb.NewRepository(vectordb.Config{
		Type:         s.indexType,
		DistanceType: s.distance,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create vector index: %w", err)
	}
	if err := repo.AddBatch(docs); err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to add vectors: %w", err)
	}

	idx.repo = repo
	idx.dimension = repo.GetDimension()

	s.logger.WithFields(logrus.Fields{
		"chunks":    len(idx.chunks),
		"dropped":   len(idx.dropped),
		"dimension": idx.dimension,
		"model":     idx.model,
	}).Info("Vector index built")

	return idx, nil
}

// Retrieve 返回与查询最接近的k个分块，按距离升序
func (s *Store) Retrieve(ctx context.Context, idx *Index, query string, k int) ([]document.Chunk, error) {
	hits, err := s.RetrieveScored(ctx, idx, query, k)
	if err != nil {
		return nil, err
	}

	chunks := make([]document.Chunk, len(hits))
	for i, h := range hits {
		chunks[i] = h.Chunk
	}
	return chunks, nil
}

// RetrieveScored 与 Retrieve 相同，同时返回距离
func (s *Store) RetrieveScored(ctx context.Context, idx *Index, query string, k int) ([]Hit, error) {
	if idx == nil || idx.repo == nil || len(idx.chunks) == 0 {
		return nil, ErrIndexEmpty
	}
	if k <= 0 {
		k = DefaultTopK
	}

	vec, err := s.client.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := idx.repo.Search(vec, k)
	if err != nil {
		if errors.Is(err, ErrDimensionMismatch) {
			s.logger.WithFields(logrus.Fields{
				"index_model":     idx.model,
				"query_model":     s.client.Name(),
				"index_dimension": idx.dimension,
				"query_dimension": len(vec),
			}).Error("Query embedding does not match index")
		}
		return nil, err
	}

	hits := make([]Hit, len(results))
	for i, r := range results {
		hits[i] = Hit{Chunk: idx.chunks[r.Document.Position], Distance: r.Distance}
	}
	return hits, nil
}
