package services

import (
	"context"
	"strings"
	"testing"

	"github.com/fyerfyer/doc-assistant/internal/cache"
	"github.com/fyerfyer/doc-assistant/internal/document"
	"github.com/fyerfyer/doc-assistant/internal/embedding"
	"github.com/fyerfyer/doc-assistant/internal/retrieval"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// word 把序号编码为只含字母的唯一单词
func word(i int) string {
	var sb strings.Builder
	n := i + 26*26
	for n > 0 {
		sb.WriteByte(byte('a' + n%26))
		n /= 26
	}
	return sb.String()
}

// uniqueText 生成指定字符数、单词互不重复的文本
func uniqueText(length int) string {
	var sb strings.Builder
	for i := 0; sb.Len() < length; i++ {
		sb.WriteString(word(i))
		sb.WriteByte(' ')
	}
	return sb.String()[:length]
}

func newTestAssistant(t *testing.T, completer Completer, opts ...AssistantOption) *AssistantService {
	t.Helper()
	logger, _ := test.NewNullLogger()

	client, err := embedding.NewClient("local", embedding.WithDimensions(1024))
	require.NoError(t, err)
	store := retrieval.NewStore(client, retrieval.WithBatch(4, 2), retrieval.WithLogger(logger))

	chunker, err := document.NewChunker(5000, 200)
	require.NoError(t, err)

	orchestrator, err := NewOrchestrator(completer, WithOrchestratorLogger(logger))
	require.NoError(t, err)

	return NewAssistantService(chunker, store, orchestrator,
		append([]AssistantOption{WithLogger(logger)}, opts...)...)
}

// TestNoDocument 测试未上传文档时不调用模型
func TestNoDocument(t *testing.T) {
	ctx := context.Background()
	completer := &fakeCompleter{}
	svc := newTestAssistant(t, completer)

	_, err := svc.Summarize(ctx)
	assert.ErrorIs(t, err, ErrNoDocument)

	_, err = svc.Ask(ctx, "what?")
	assert.ErrorIs(t, err, ErrNoDocument)

	_, err = svc.GenerateQuestions(ctx)
	assert.ErrorIs(t, err, ErrNoDocument)

	_, err = svc.Evaluate(ctx, "what?", "nothing")
	assert.ErrorIs(t, err, ErrNoDocument)

	_, err = svc.Document()
	assert.ErrorIs(t, err, ErrNoDocument)

	assert.Empty(t, completer.Calls())
}

// TestSummarizeShortDocument 测试短文档摘要只调用一次模型
func TestSummarizeShortDocument(t *testing.T) {
	ctx := context.Background()
	completer := &fakeCompleter{respond: func(system, prompt string) (string, error) {
		return "a short summary", nil
	}}
	svc := newTestAssistant(t, completer)

	text := uniqueText(200)
	upload, err := svc.Upload(ctx, []byte(text), "text/plain", "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, 1, upload.TotalChunks)
	assert.NotEmpty(t, upload.DocumentID)

	summary, err := svc.Summarize(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a short summary", summary)

	calls := completer.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, summarizeSystem, calls[0].System)
	assert.Contains(t, calls[0].Prompt, text)
}

// TestSummaryCachedPerDocument 测试摘要按文档缓存，新上传后失效
func TestSummaryCachedPerDocument(t *testing.T) {
	ctx := context.Background()
	c, err := cache.NewCache(cache.DefaultConfig())
	require.NoError(t, err)

	completer := &fakeCompleter{}
	svc := newTestAssistant(t, completer, WithCache(c, 0))

	_, err = svc.Upload(ctx, []byte("first document about rivers"), "text/plain", "a.txt")
	require.NoError(t, err)

	_, err = svc.Summarize(ctx)
	require.NoError(t, err)
	_, err = svc.Summarize(ctx)
	require.NoError(t, err)
	assert.Len(t, completer.Calls(), 1)

	_, err = svc.Upload(ctx, []byte("second document about mountains"), "text/plain", "b.txt")
	require.NoError(t, err)
	_, err = svc.Summarize(ctx)
	require.NoError(t, err)
	assert.Len(t, completer.Calls(), 2)
}

// TestEndToEndRetrieval 测试12000字符文档的分块、检索和问答
func TestEndToEndRetrieval(t *testing.T) {
	ctx := context.Background()
	completer := &fakeCompleter{respond: func(system, prompt string) (string, error) {
		if strings.HasPrefix(prompt, "Merge these partial answers") {
			return "final answer", nil
		}
		return "partial answer", nil
	}}
	svc := newTestAssistant(t, completer)

	text := uniqueText(12000)
	upload, err := svc.Upload(ctx, []byte(text), "text/plain", "long.txt")
	require.NoError(t, err)
	assert.Equal(t, 3, upload.TotalChunks)
	assert.Zero(t, upload.Dropped)

	info, err := svc.Document()
	require.NoError(t, err)
	assert.Equal(t, 12000, info.Length)
	assert.Equal(t, 3, info.TotalChunks)
	assert.Equal(t, "long.txt", info.FileName)

	// 只出现在第2块中的原文
	question := text[6000:6300]
	result, err := svc.Ask(ctx, question)
	require.NoError(t, err)

	require.Len(t, result.Sources, 3)
	assert.Equal(t, 1, result.Sources[0].Index)
	assert.Equal(t, 4800, result.Sources[0].Start)
	assert.True(t, strings.HasPrefix(result.ContextUsed, result.Sources[0].Text))
	assert.Equal(t, "final answer", result.Answer)

	// 上下文约12400字符，超过阈值后走3次map和1次reduce
	calls := completer.Calls()
	require.Len(t, calls, 4)
	for _, c := range calls {
		assert.Equal(t, answerSystem, c.System)
	}
	assert.Contains(t, calls[3].Prompt, "partial answer\n\npartial answer\n\npartial answer")
}

// TestEvaluate 测试答案评价
func TestEvaluate(t *testing.T) {
	ctx := context.Background()
	completer := &fakeCompleter{respond: func(system, prompt string) (string, error) {
		return "Correct. The context says so.", nil
	}}
	svc := newTestAssistant(t, completer)

	_, err := svc.Upload(ctx, []byte("Photosynthesis converts sunlight into chemical energy in plants."),
		"text/plain", "bio.txt")
	require.NoError(t, err)

	result, err := svc.Evaluate(ctx, "What does photosynthesis convert?", "sunlight into chemical energy")
	require.NoError(t, err)
	assert.Equal(t, "Correct. The context says so.", result.Feedback)
	assert.Contains(t, result.ContextUsed, "Photosynthesis")

	calls := completer.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, evaluateSystem, calls[0].System)
	assert.Contains(t, calls[0].Prompt, "User's Answer:\nsunlight into chemical energy")
	assert.Contains(t, calls[0].Prompt, "Question:\nWhat does photosynthesis convert?")
}

// TestGenerateQuestions 测试问题列表规整和缓存
func TestGenerateQuestions(t *testing.T) {
	ctx := context.Background()
	c, err := cache.NewCache(cache.DefaultConfig())
	require.NoError(t, err)

	completer := &fakeCompleter{respond: func(system, prompt string) (string, error) {
		return "Here are three questions:\n\n1. What is A?\n2. Why does B happen?\n3. How is C measured?", nil
	}}
	svc := newTestAssistant(t, completer, WithCache(c, 0))

	_, err = svc.Upload(ctx, []byte("A causes B and C is measured."), "text/plain", "q.txt")
	require.NoError(t, err)

	questions, err := svc.GenerateQuestions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"What is A?", "Why does B happen?", "How is C measured?"}, questions)

	again, err := svc.GenerateQuestions(ctx)
	require.NoError(t, err)
	assert.Equal(t, questions, again)
	assert.Len(t, completer.Calls(), 1)
	assert.Equal(t, questionsSystem, completer.Calls()[0].System)
}

// TestInputValidation 测试空问题和空答案
func TestInputValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestAssistant(t, &fakeCompleter{})

	_, err := svc.Ask(ctx, "  ")
	assert.ErrorIs(t, err, ErrEmptyQuestion)

	_, err = svc.Evaluate(ctx, "q", "")
	assert.ErrorIs(t, err, ErrEmptyAnswer)
}

// TestUploadExtractionError 测试无法解析的文件
func TestUploadExtractionError(t *testing.T) {
	svc := newTestAssistant(t, &fakeCompleter{})

	_, err := svc.Upload(context.Background(), nil, "text/plain", "empty.txt")
	var extractErr *document.ExtractionError
	assert.ErrorAs(t, err, &extractErr)

	_, err = svc.Upload(context.Background(), []byte("data"), "image/png", "x.png")
	assert.Error(t, err)

	// 失败的上传不会替换当前文档
	assert.Nil(t, svc.Session().Current())
}

// TestUploadDegenerateDocument 测试没有任何可嵌入内容的文档
func TestUploadDegenerateDocument(t *testing.T) {
	svc := newTestAssistant(t, &fakeCompleter{})

	_, err := svc.Upload(context.Background(), []byte("!!! ... ???"), "text/plain", "noise.txt")
	assert.ErrorIs(t, err, retrieval.ErrIndexEmpty)
	assert.Nil(t, svc.Session().Current())
}
