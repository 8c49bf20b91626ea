package embedding

import (
	"context"
	"strings"
	"sync"

	"github.com/gammazero/workerpool"
)

// Result 单条文本的嵌入结果
// Vector为nil时Err说明原因
type Result struct {
	Vector []float32
	Err    error
}

// BatchProcessor 批处理器
// 将大量文本分批并行嵌入，单条失败不影响其余文本
type BatchProcessor struct {
	client     Client // 嵌入客户端
	batchSize  int    // 每批处理的文本数量
	maxWorkers int    // 最大并行工作线程数
}

// NewBatchProcessor 创建新的批处理器
func NewBatchProcessor(client Client, batchSize int, maxWorkers int) *BatchProcessor {
	if batchSize <= 0 {
		batchSize = 16 // 默认批量大小
	}

	if maxWorkers <= 0 {
		maxWorkers = 4 // 默认工作线程数
	}

	return &BatchProcessor{
		client:     client,
		batchSize:  batchSize,
		maxWorkers: maxWorkers,
	}
}

// Process 处理一批文本，返回与输入一一对应的结果
// 只有上下文取消时才返回错误
func (p *BatchProcessor) Process(ctx context.Context, texts []string) ([]Result, error) {
	results := make([]Result, len(texts))
	if len(texts) == 0 {
		return results, nil
	}

	// 空文本不送入模型
	indices := make([]int, 0, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			results[i] = Result{Err: ErrEmptyText}
			continue
		}
		indices = append(indices, i)
	}

	wp := workerpool.New(p.maxWorkers)
	var mu sync.Mutex

	for _, batch := range splitIntoBatches(indices, p.batchSize) {
		batch := batch
		wp.Submit(func() {
			if ctx.Err() != nil {
				return
			}

			batchTexts := make([]string, len(batch))
			for j, idx := range batch {
				batchTexts[j] = texts[idx]
			}

			batchResults := p.embedBatch(ctx, batchTexts)

			mu.Lock()
			defer mu.Unlock()
			for j, idx := range batch {
				results[idx] = batchResults[j]
			}
		})
	}

	// 等待所有任务完成
	wp.StopWait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// embedBatch 整批失败时逐条重试，找出具体失败的文本
func (p *BatchProcessor) embedBatch(ctx context.Context, texts []string) []Result {
	out := make([]Result, len(texts))

	vectors, err := p.client.EmbedBatch(ctx, texts)
	if err == nil && len(vectors) == len(texts) {
		for i, vec := range vectors {
			if len(vec) == 0 {
				out[i] = Result{Err: ErrDegenerateText}
				continue
			}
			out[i] = Result{Vector: vec}
		}
		return out
	}

	for i, text := range texts {
		if ctx.Err() != nil {
			out[i] = Result{Err: ctx.Err()}
			continue
		}
		vec, err := p.client.Embed(ctx, text)
		if err == nil && len(vec) == 0 {
			err = ErrDegenerateText
		}
		out[i] = Result{Vector: vec, Err: err}
	}
	return out
}

// splitIntoBatches 将下标列表分割成多个批次
func splitIntoBatches(indices []int, batchSize int) [][]int {
	if batchSize <= 0 {
		batchSize = 1
	}

	batches := make([][]int, 0, (len(indices)+batchSize-1)/batchSize)

	for i := 0; i < len(indices); i += batchSize {
		end := i + batchSize
		if end > len(indices) {
			end = len(indices)
		}
		batches = append(batches, indices[i:end])
	}

	return batches
}
