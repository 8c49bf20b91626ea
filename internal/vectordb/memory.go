package vectordb

import (
	"fmt"
	"sync"
)

// MemoryRepository 内存中的精确索引
// 每次查询都与全部向量比较距离
type MemoryRepository struct {
	mu        sync.RWMutex
	dimension int
	distType  DistanceType
	documents []Document
}

// NewMemoryRepository 创建内存索引
func NewMemoryRepository(config Config) (Repository, error) {
	if config.Dimension < 0 {
		return nil, fmt.Errorf("vector dimension must not be negative")
	}
	distType := config.DistanceType
	if distType == "" {
		distType = Euclidean
	}
	if _, err := ComputeDistance(nil, nil, distType); err != nil {
		return nil, err
	}

	return &MemoryRepository{
		dimension: config.Dimension,
		distType:  distType,
	}, nil
}

// Add 添加单个文档
func (r *MemoryRepository) Add(doc Document) error {
	return r.AddBatch([]Document{doc})
}

// AddBatch 批量添加文档，任意一条维度不符则整体不写入
func (r *MemoryRepository) AddBatch(docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	dim := r.dimension
	if dim == 0 {
		dim = len(docs[0].Vector)
	}
	for _, doc := range docs {
		if err := ValidateVector(doc.Vector, dim); err != nil {
			return fmt.Errorf("invalid vector for document %s: %w", doc.ID, err)
		}
	}

	r.dimension = dim
	for _, doc := range docs {
		doc.Position = len(r.documents)
		doc.Vector = append([]float32(nil), doc.Vector...)
		r.documents = append(r.documents, doc)
	}
	return nil
}

// Search 精确最近邻搜索
func (r *MemoryRepository) Search(vector []float32, k int) ([]SearchResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.documents) == 0 {
		return nil, ErrIndexEmpty
	}
	if err := ValidateVector(vector, r.dimension); err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(r.documents))
	for _, doc := range r.documents {
		dist, err := ComputeDistance(vector, doc.Vector, r.distType)
		if err != nil {
			return nil, err
		}
		results = append(results, SearchResult{
			Document: doc,
			Distance: dist,
			Score:    DistanceToScore(dist, r.distType),
		})
	}

	SortSearchResults(results)
	return topK(results, k), nil
}

// Count 获取文档总数
func (r *MemoryRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.documents)
}

// GetDimension 返回向量维数
func (r *MemoryRepository) GetDimension() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dimension
}

// Close 释放内存
func (r *MemoryRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.documents = nil
	return nil
}

func init() {
	RegisterRepository("memory", NewMemoryRepository)
}
