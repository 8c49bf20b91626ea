//go:build faiss

package vectordb

import (
	"fmt"
	"math"
	"sync"

	"github.com/DataIntelligenceCrew/go-faiss"
)

// FaissRepository 基于Faiss IndexFlat的精确索引
type FaissRepository struct {
	mu        sync.RWMutex
	index     faiss.Index
	documents []Document
	dimension int
	distType  DistanceType
}

// NewFaissRepository 创建新的Faiss索引
// Faiss索引在创建时就需要维度，为0时延迟到第一次写入
func NewFaissRepository(config Config) (Repository, error) {
	distType := config.DistanceType
	if distType == "" {
		distType = Euclidean
	}
	if distType != Euclidean && distType != DotProduct {
		return nil, fmt.Errorf("faiss index does not support distance type: %s", distType)
	}

	repo := &FaissRepository{distType: distType}
	if config.Dimension > 0 {
		if err := repo.createIndex(config.Dimension); err != nil {
			return nil, err
		}
	}
	return repo, nil
}

// createIndex 创建Faiss索引
func (r *FaissRepository) createIndex(dimension int) error {
	metric := faiss.MetricL2
	if r.distType == DotProduct {
		metric = faiss.MetricInnerProduct
	}

	index, err := faiss.NewIndexFlat(dimension, metric)
	if err != nil {
		return fmt.Errorf("failed to create Faiss index: %w", err)
	}
	r.index = index
	r.dimension = dimension
	return nil
}

// Add 添加单个文档到索引
func (r *FaissRepository) Add(doc Document) error {
	return r.AddBatch([]Document{doc})
}

// AddBatch 批量添加文档到索引
func (r *FaissRepository) AddBatch(docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	dim := r.dimension
	if dim == 0 {
		dim = len(docs[0].Vector)
	}
	flat := make([]float32, 0, len(docs)*dim)
	for _, doc := range docs {
		if err := ValidateVector(doc.Vector, dim); err != nil {
			return fmt.Errorf("invalid vector for document %s: %w", doc.ID, err)
		}
		flat = append(flat, doc.Vector...)
	}

	if r.index == nil {
		if err := r.createIndex(dim); err != nil {
			return err
		}
	}
	if err := r.index.Add(flat); err != nil {
		return fmt.Errorf("failed to add vectors to index: %w", err)
	}

	for _, doc := range docs {
		doc.Position = len(r.documents)
		r.documents = append(r.documents, doc)
	}
	return nil
}

// Search 相似度搜索
// 取回全部候选后再排序，保证距离相同时按插入顺序返回
func (r *FaissRepository) Search(vector []float32, k int) ([]SearchResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.index == nil || len(r.documents) == 0 {
		return nil, ErrIndexEmpty
	}
	if err := ValidateVector(vector, r.dimension); err != nil {
		return nil, err
	}

	distances, labels, err := r.index.Search(vector, r.index.Ntotal())
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}

	results := make([]SearchResult, 0, len(labels))
	for i, label := range labels {
		if label < 0 || int(label) >= len(r.documents) {
			continue
		}

		// IndexFlatL2返回的是距离平方
		dist := distances[i]
		if r.distType == Euclidean {
			dist = float32(math.Sqrt(float64(dist)))
		} else {
			dist = -dist
		}

		results = append(results, SearchResult{
			Document: r.documents[label],
			Distance: dist,
			Score:    DistanceToScore(dist, r.distType),
		})
	}

	SortSearchResults(results)
	return topK(results, k), nil
}

// Count 获取文档总数
func (r *FaissRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.documents)
}

// GetDimension 返回向量维数
func (r *FaissRepository) GetDimension() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dimension
}

// Close 释放Faiss索引
func (r *FaissRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.index != nil {
		r.index.Delete()
		r.index = nil
	}
	r.documents = nil
	return nil
}

func init() {
	RegisterRepository("faiss", NewFaissRepository)
}
