package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/fyerfyer/doc-assistant/internal/document"
	"github.com/fyerfyer/doc-assistant/internal/llm"
	"github.com/gammazero/workerpool"
	"github.com/sirupsen/logrus"
)

// Completer 一次系统提示+用户提示的生成调用
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ReduceMode map阶段结果的合并方式
type ReduceMode string

const (
	ReduceLLM    ReduceMode = "llm"    // 再调用一次模型合并
	ReduceConcat ReduceMode = "concat" // 直接拼接，不额外调用
)

// 执行路径
const (
	ModeSingle    = "single"
	ModeMapReduce = "map_reduce"
)

// ErrUnknownTask 未定义的任务类型
var ErrUnknownTask = errors.New("unknown task type")

// OrchestratorConfig 编排器配置
type OrchestratorConfig struct {
	Threshold    int           // 单次调用允许的最大输入长度(字符)
	Overlap      int           // 切分时相邻分块的重叠长度
	ReduceMode   ReduceMode    // 合并方式
	Workers      int           // map阶段并发数
	Retries      int           // GatewayError的重试次数，0为不重试
	RetryBackoff time.Duration // 首次重试等待时间，之后指数增长
}

// DefaultOrchestratorConfig 默认编排器配置
func DefaultOrchestratorConfig() *OrchestratorConfig {
	return &OrchestratorConfig{
		Threshold:    5000,
		Overlap:      document.DefaultChunkOverlap,
		ReduceMode:   ReduceLLM,
		Workers:      4,
		Retries:      0,
		RetryBackoff: 500 * time.Millisecond,
	}
}

// OrchestratorOption 编排器配置选项
type OrchestratorOption func(*Orchestrator)

// WithThreshold 设置输入长度阈值
func WithThreshold(threshold int) OrchestratorOption {
	return func(o *Orchestrator) {
		o.config.Threshold = threshold
	}
}

// WithOverlap 设置切分重叠长度
func WithOverlap(overlap int) OrchestratorOption {
	return func(o *Orchestrator) {
		o.config.Overlap = overlap
	}
}

// WithReduceMode 设置合并方式
func WithReduceMode(mode ReduceMode) OrchestratorOption {
	return func(o *Orchestrator) {
		o.config.ReduceMode = mode
	}
}

// WithWorkers 设置map阶段并发数
func WithWorkers(workers int) OrchestratorOption {
	return func(o *Orchestrator) {
		o.config.Workers = workers
	}
}

// WithRetries 设置重试次数和首次退避时间
func WithRetries(retries int, backoff time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		o.config.Retries = retries
		o.config.RetryBackoff = backoff
	}
}

// WithOrchestratorLogger 设置日志记录器
func WithOrchestratorLogger(logger *logrus.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// TaskRequest 一次任务的输入
// Input 是需要做长度判断的部分：摘要和出题时为全文，回答和评价时为检索上下文
type TaskRequest struct {
	Type       TaskType
	Input      string
	Question   string
	UserAnswer string
}

// TaskResult 任务结果
type TaskResult struct {
	Output string // 最终输出
	Calls  int    // 实际发起的模型调用次数
	Chunks int    // 输入被切分的块数，单次调用时为1
	Mode   string // single 或 map_reduce
}

// Orchestrator map-reduce任务编排器
// 输入不超过阈值时直接调用一次，否则按块map后再reduce
type Orchestrator struct {
	completer Completer
	chunker   *document.Chunker
	config    *OrchestratorConfig
	logger    *logrus.Logger
}

// NewOrchestrator 创建编排器
func NewOrchestrator(completer Completer, opts ...OrchestratorOption) (*Orchestrator, error) {
	o := &Orchestrator{
		completer: completer,
		config:    DefaultOrchestratorConfig(),
		logger:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.config.Overlap <= 0 {
		return nil, fmt.Errorf("%w: orchestrator overlap must be positive, got %d",
			document.ErrInvalidChunkConfig, o.config.Overlap)
	}
	chunker, err := document.NewChunker(o.config.Threshold, o.config.Overlap)
	if err != nil {
		return nil, err
	}
	o.chunker = chunker

	switch o.config.ReduceMode {
	case ReduceLLM, ReduceConcat:
	default:
		return nil, fmt.Errorf("unsupported reduce mode: %s", o.config.ReduceMode)
	}
	if o.config.Workers <= 0 {
		o.config.Workers = 1
	}

	return o, nil
}

// Config 返回编排器配置的副本
func (o *Orchestrator) Config() OrchestratorConfig {
	return *o.config
}

// Run 执行一次任务
func (o *Orchestrator) Run(ctx context.Context, req TaskRequest) (*TaskResult, error) {
	tmpl, ok := TemplateFor(req.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, req.Type)
	}

	var calls atomic.Int32
	vars := promptVars{
		Input:    req.Input,
		Question: req.Question,
		Answer:   req.UserAnswer,
	}

	// SizeCheck
	if utf8.RuneCountInString(req.Input) <= o.config.Threshold {
		output, err := o.call(ctx, tmpl.System, render(tmpl.Single, vars), &calls)
		if err != nil {
			return nil, fmt.Errorf("%s failed: %w", req.Type, err)
		}
		return &TaskResult{Output: output, Calls: int(calls.Load()), Chunks: 1, Mode: ModeSingle}, nil
	}

	chunks, err := o.chunker.Split(req.Input)
	if err != nil {
		return nil, err
	}

	log := o.logger.WithFields(logrus.Fields{
		"task":   req.Type,
		"chunks": len(chunks),
		"reduce": o.config.ReduceMode,
	})
	log.Info("Input exceeds threshold, running map-reduce")

	// MapPhase
	partials, err := o.mapChunks(ctx, tmpl, vars, chunks, &calls)
	if err != nil {
		log.WithError(err).Error("Map phase failed")
		return nil, fmt.Errorf("%s map phase failed: %w", req.Type, err)
	}

	// ReducePhase
	var output string
	switch o.config.ReduceMode {
	case ReduceConcat:
		output = strings.Join(partials, "\n\n")
	default:
		vars.Partials = strings.Join(partials, tmpl.Joiner)
		output, err = o.call(ctx, tmpl.System, render(tmpl.Reduce, vars), &calls)
		if err != nil {
			log.WithError(err).Error("Reduce phase failed")
			return nil, fmt.Errorf("%s reduce phase failed: %w", req.Type, err)
		}
	}

	result := &TaskResult{
		Output: output,
		Calls:  int(calls.Load()),
		Chunks: len(chunks),
		Mode:   ModeMapReduce,
	}
	log.WithField("calls", result.Calls).Info("Map-reduce completed")
	return result, nil
}

// mapChunks 在工作池上并发处理每个分块，结果按分块顺序返回
// 任意一块失败时取消其余调用并返回第一个错误
func (o *Orchestrator) mapChunks(ctx context.Context, tmpl PromptTemplate, vars promptVars,
	chunks []document.Chunk, calls *atomic.Int32) ([]string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	partials := make([]string, len(chunks))
	var (
		firstErr error
		errOnce  sync.Once
	)

	wp := workerpool.New(o.config.Workers)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		wp.Submit(func() {
			if ctx.Err() != nil {
				return
			}

			chunkVars := vars
			chunkVars.Input = chunk.Text
			chunkVars.Part = strconv.Itoa(i + 1)

			output, err := o.call(ctx, tmpl.System, render(tmpl.Map, chunkVars), calls)
			if err != nil {
				errOnce.Do(func() {
					firstErr = fmt.Errorf("chunk %d: %w", i+1, err)
					cancel()
				})
				return
			}
			partials[i] = output
		})
	}
	wp.StopWait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return partials, nil
}

// call 调用模型，只对可重试的网关错误做指数退避重试
func (o *Orchestrator) call(ctx context.Context, system, prompt string, calls *atomic.Int32) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= o.config.Retries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * o.config.RetryBackoff
			o.logger.WithFields(logrus.Fields{
				"attempt": attempt,
				"backoff": backoff.String(),
			}).WithError(lastErr).Warn("Retrying LLM call")

			select {
			case <-ctx.Done():
				return "", lastErr
			case <-time.After(backoff):
			}
		}

		calls.Add(1)
		output, err := o.completer.Complete(ctx, system, prompt)
		if err == nil {
			return output, nil
		}
		lastErr = err

		var gwErr *llm.GatewayError
		if !errors.As(err, &gwErr) || !gwErr.Retryable() {
			break
		}
	}
	return "", lastErr
}
