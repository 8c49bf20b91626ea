package vectordb

import (
	"errors"
	"fmt"
)

// 常用错误定义
var (
	ErrEmptyVector       = errors.New("empty vector")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrIndexEmpty        = errors.New("index is empty")
)

// Document 索引中的一条记录
// Position 为插入顺序，用于相同距离时的排序
type Document struct {
	ID       string    // 唯一标识符
	Position int       // 插入位置
	Text     string    // 原始文本内容
	Vector   []float32 // 向量表示
}

// DistanceType 向量距离计算方法
type DistanceType string

const (
	// Cosine 余弦距离
	Cosine DistanceType = "cosine"
	// DotProduct 点积
	DotProduct DistanceType = "dot"
	// Euclidean 欧几里得距离
	Euclidean DistanceType = "l2"
)

// SearchResult 搜索结果
type SearchResult struct {
	Document Document // 文档对象
	Distance float32  // 与查询向量的距离
	Score    float32  // 由距离换算的相似度得分
}

// Repository 向量索引接口
// 同一个索引中的向量维度必须一致，只支持追加
type Repository interface {
	// Add 添加单个文档
	Add(doc Document) error

	// AddBatch 批量添加文档
	AddBatch(docs []Document) error

	// Search 返回距离最近的k个文档，按距离升序
	Search(vector []float32, k int) ([]SearchResult, error)

	// Count 获取文档总数
	Count() int

	// GetDimension 返回向量维数，尚未写入时为0
	GetDimension() int

	// Close 释放索引资源
	Close() error
}

// Config 向量索引配置
type Config struct {
	Type         string       // 索引类型，如 "memory", "faiss"
	Dimension    int          // 向量维度，为0时由第一条向量决定
	DistanceType DistanceType // 距离计算类型
}

// Factory 向量索引工厂函数类型
type Factory func(config Config) (Repository, error)

// RepositoryRegistry 注册可用的向量索引实现
var RepositoryRegistry = map[string]Factory{}

// RegisterRepository 注册向量索引工厂函数
func RegisterRepository(name string, factory Factory) {
	RepositoryRegistry[name] = factory
}

// NewRepository 根据配置创建向量索引实例
func NewRepository(config Config) (Repository, error) {
	if config.Type == "" {
		config.Type = "memory"
	}
	if config.DistanceType == "" {
		config.DistanceType = Euclidean
	}

	factory, ok := RepositoryRegistry[config.Type]
	if !ok {
		return nil, fmt.Errorf("vector index type not registered: %s", config.Type)
	}
	return factory(config)
}
