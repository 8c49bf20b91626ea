package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fyerfyer/doc-assistant/internal/cache"
	"github.com/fyerfyer/doc-assistant/internal/document"
	"github.com/fyerfyer/doc-assistant/internal/retrieval"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	// ErrNoDocument 尚未上传文档
	ErrNoDocument = errors.New("no document uploaded")
	// ErrEmptyQuestion 问题为空
	ErrEmptyQuestion = errors.New("question cannot be empty")
	// ErrEmptyAnswer 用户答案为空
	ErrEmptyAnswer = errors.New("user answer cannot be empty")
)

// contextSeparator 检索到的分块之间的分隔符
const contextSeparator = "\n\n"

// UploadResult 上传结果
type UploadResult struct {
	DocumentID  string
	FileName    string
	TotalChunks int
	Dropped     int // 无法生成向量而被丢弃的分块数
}

// AnswerResult 问答结果，附带实际使用的上下文
type AnswerResult struct {
	Answer      string
	ContextUsed string
	Sources     []document.Chunk
}

// EvaluationResult 答案评价结果
type EvaluationResult struct {
	Feedback    string
	ContextUsed string
	Sources     []document.Chunk
}

// DocumentInfo 当前文档信息
type DocumentInfo struct {
	DocumentID  string
	FileName    string
	Length      int
	TotalChunks int
	Dimension   int
	Model       string
	UploadedAt  time.Time
}

// AssistantService 文档助手服务
// 协调文档解析、分块、索引和map-reduce任务
type AssistantService struct {
	session      *Session
	chunker      *document.Chunker
	store        *retrieval.Store
	orchestrator *Orchestrator
	cache        cache.Cache
	cacheTTL     time.Duration
	topK         int
	logger       *logrus.Logger
}

// AssistantOption 助手服务配置选项
type AssistantOption func(*AssistantService)

// WithCache 设置任务结果缓存
func WithCache(c cache.Cache, ttl time.Duration) AssistantOption {
	return func(s *AssistantService) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithTopK 设置检索数量
func WithTopK(k int) AssistantOption {
	return func(s *AssistantService) {
		s.topK = k
	}
}

// WithSession 使用外部会话
func WithSession(session *Session) AssistantOption {
	return func(s *AssistantService) {
		s.session = session
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *logrus.Logger) AssistantOption {
	return func(s *AssistantService) {
		s.logger = logger
	}
}

// NewAssistantService 创建助手服务
func NewAssistantService(
	chunker *document.Chunker,
	store *retrieval.Store,
	orchestrator *Orchestrator,
	opts ...AssistantOption,
) *AssistantService {
	s := &AssistantService{
		session:      NewSession(),
		chunker:      chunker,
		store:        store,
		orchestrator: orchestrator,
		cacheTTL:     time.Hour,
		topK:         retrieval.DefaultTopK,
		logger:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.session.SetLogger(s.logger)
	return s
}

// Session 返回服务持有的会话
func (s *AssistantService) Session() *Session {
	return s.session
}

// Upload 解析并索引新文档，成功后替换当前文档
func (s *AssistantService) Upload(ctx context.Context, data []byte, contentType, fileName string) (*UploadResult, error) {
	text, err := document.Extract(data, contentType, fileName)
	if err != nil {
		return nil, err
	}

	chunks, err := s.chunker.Split(text)
	if err != nil {
		return nil, err
	}

	index, err := s.store.Build(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("failed to build index: %w", err)
	}

	snap := &Snapshot{
		DocumentID: uuid.New().String(),
		FileName:   fileName,
		Text:       text,
		Index:      index,
		Chunks:     len(chunks),
		UploadedAt: time.Now(),
	}
	s.session.Swap(snap)

	s.logger.WithFields(logrus.Fields{
		"document_id": snap.DocumentID,
		"file_name":   fileName,
		"length":      utf8.RuneCountInString(text),
		"chunks":      len(chunks),
		"dropped":     len(index.Dropped()),
	}).Info("Document processed")

	return &UploadResult{
		DocumentID:  snap.DocumentID,
		FileName:    fileName,
		TotalChunks: len(chunks),
		Dropped:     len(index.Dropped()),
	}, nil
}

// Summarize 生成当前文档的摘要
func (s *AssistantService) Summarize(ctx context.Context) (string, error) {
	snap, release := s.session.Acquire()
	defer release()
	if snap == nil {
		return "", ErrNoDocument
	}

	key := cache.GenerateCacheKey("summary", snap.DocumentID)
	if summary, ok := s.cachedString(ctx, key); ok {
		return summary, nil
	}

	result, err := s.orchestrator.Run(ctx, TaskRequest{Type: TaskSummarize, Input: snap.Text})
	if err != nil {
		return "", err
	}

	s.cacheString(ctx, key, result.Output)
	return result.Output, nil
}

// GenerateQuestions 根据当前文档生成问题
func (s *AssistantService) GenerateQuestions(ctx context.Context) ([]string, error) {
	snap, release := s.session.Acquire()
	defer release()
	if snap == nil {
		return nil, ErrNoDocument
	}

	key := cache.GenerateCacheKey("questions", snap.DocumentID)
	if s.cache != nil {
		var questions []string
		found, err := cache.GetJSON(ctx, s.cache, key, &questions)
		if err != nil {
			s.logger.WithError(err).Warn("Failed to read cached questions")
		} else if found {
			return questions, nil
		}
	}

	result, err := s.orchestrator.Run(ctx, TaskRequest{Type: TaskQuestions, Input: snap.Text})
	if err != nil {
		return nil, err
	}

	questions := ParseQuestions(result.Output)
	if s.cache != nil {
		if err := cache.SetJSON(ctx, s.cache, key, questions, s.cacheTTL); err != nil {
			s.logger.WithError(err).Warn("Failed to cache questions")
		}
	}
	return questions, nil
}

// Ask 基于检索到的上下文回答问题
func (s *AssistantService) Ask(ctx context.Context, question string) (*AnswerResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	snap, release := s.session.Acquire()
	defer release()
	if snap == nil {
		return nil, ErrNoDocument
	}

	sources, contextUsed, err := s.retrieveContext(ctx, snap, question)
	if err != nil {
		return nil, err
	}

	result, err := s.orchestrator.Run(ctx, TaskRequest{
		Type:     TaskAnswer,
		Input:    contextUsed,
		Question: question,
	})
	if err != nil {
		return nil, err
	}

	return &AnswerResult{
		Answer:      result.Output,
		ContextUsed: contextUsed,
		Sources:     sources,
	}, nil
}

// Evaluate 根据检索到的上下文评价用户答案
func (s *AssistantService) Evaluate(ctx context.Context, question, userAnswer string) (*EvaluationResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	if strings.TrimSpace(userAnswer) == "" {
		return nil, ErrEmptyAnswer
	}

	snap, release := s.session.Acquire()
	defer release()
	if snap == nil {
		return nil, ErrNoDocument
	}

	sources, contextUsed, err := s.retrieveContext(ctx, snap, question)
	if err != nil {
		return nil, err
	}

	result, err := s.orchestrator.Run(ctx, TaskRequest{
		Type:       TaskEvaluate,
		Input:      contextUsed,
		Question:   question,
		UserAnswer: userAnswer,
	})
	if err != nil {
		return nil, err
	}

	return &EvaluationResult{
		Feedback:    result.Output,
		ContextUsed: contextUsed,
		Sources:     sources,
	}, nil
}

// Document 返回当前文档信息
func (s *AssistantService) Document() (*DocumentInfo, error) {
	snap, release := s.session.Acquire()
	defer release()
	if snap == nil {
		return nil, ErrNoDocument
	}
	return &DocumentInfo{
		DocumentID:  snap.DocumentID,
		FileName:    snap.FileName,
		Length:      utf8.RuneCountInString(snap.Text),
		TotalChunks: snap.Chunks,
		Dimension:   snap.Index.Dimension(),
		Model:       snap.Index.Model(),
		UploadedAt:  snap.UploadedAt,
	}, nil
}

// retrieveContext 检索top-K分块并拼接为上下文
func (s *AssistantService) retrieveContext(ctx context.Context, snap *Snapshot, question string) ([]document.Chunk, string, error) {
	sources, err := s.store.Retrieve(ctx, snap.Index, question, s.topK)
	if err != nil {
		return nil, "", fmt.Errorf("retrieval failed: %w", err)
	}
	return sources, strings.Join(document.Texts(sources), contextSeparator), nil
}

func (s *AssistantService) cachedString(ctx context.Context, key string) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	value, found, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Cache read failed")
		return "", false
	}
	return value, found
}

func (s *AssistantService) cacheString(ctx context.Context, key, value string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cacheTTL); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Cache write failed")
	}
}
