package retrieval

import (
	"context"
	"strings"
	"testing"

	"github.com/fyerfyer/doc-assistant/internal/document"
	"github.com/fyerfyer/doc-assistant/internal/embedding"
	"github.com/sirupsen/logrus"
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

func newTestStore(t *testing.T, dim int) (*Store, *test.Hook) {
	t.Helper()
	client, err := embedding.NewClient("local", embedding.WithDimensions(dim))
	require.NoError(t, err)

	logger, hook := test.NewNullLogger()
	return NewStore(client, WithBatch(2, 2), WithLogger(logger)), hook
}

// TestBuildAndRetrieveExactChunk 测试用分块原文检索能命中该分块
func TestBuildAndRetrieveExactChunk(t *testing.T) {
	store, _ := newTestStore(t, 256)
	ctx := context.Background()

	chunks := []document.Chunk{
		{Index: 0, Start: 0, Text: "mitochondria produce cellular energy through respiration"},
		{Index: 1, Start: 60, Text: "glaciers carve valleys during repeated ice ages"},
		{Index: 2, Start: 120, Text: "parliament debated the taxation reform bill"},
		{Index: 3, Start: 180, Text: "violin concertos feature virtuoso soloists"},
	}

	idx, err := store.Build(ctx, chunks)
	require.NoError(t, err)
	defer idx.Close()

	assert.Equal(t, 4, idx.Size())
	assert.Equal(t, 256, idx.Dimension())
	assert.Equal(t, "local-hashing", idx.Model())
	assert.Empty(t, idx.Dropped())

	for _, c := range chunks {
		hits, err := store.RetrieveScored(ctx, idx, c.Text, 3)
		require.NoError(t, err)
		require.Len(t, hits, 3)
		assert.Equal(t, c, hits[0].Chunk)
		assert.InDelta(t, 0, hits[0].Distance, 1e-5)

		for i := 1; i < len(hits); i++ {
			assert.LessOrEqual(t, hits[i-1].Distance, hits[i].Distance)
		}
	}

	// k大于索引大小时返回全部
	all, err := store.Retrieve(ctx, idx, "energy", 10)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

// TestBuildDropsDegenerateChunks 测试无法嵌入的分块被丢弃
func TestBuildDropsDegenerateChunks(t *testing.T) {
	store, hook := newTestStore(t, 64)
	ctx := context.Background()

	chunks := []document.Chunk{
		{Index: 0, Text: "useful sentence about photosynthesis"},
		{Index: 1, Text: "  ---- !!! ...  "},
		{Index: 2, Text: "another sentence about chlorophyll"},
	}

	idx, err := store.Build(ctx, chunks)
	require.NoError(t, err)

	assert.Equal(t, 2, idx.Size())
	require.Len(t, idx.Dropped(), 1)
	assert.Equal(t, 1, idx.Dropped()[0].Chunk.Index)
	assert.Equal(t, embedding.ErrCodeDegenerate, embedding.ErrorCode(idx.Dropped()[0].Err))
	assert.Equal(t, []document.Chunk{chunks[0], chunks[2]}, idx.Chunks())

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warned = true
		}
	}
	assert.True(t, warned)
}

// TestBuildEmpty 测试所有分块都失败时的错误
func TestBuildEmpty(t *testing.T) {
	store, _ := newTestStore(t, 64)
	ctx := context.Background()

	_, err := store.Build(ctx, nil)
	assert.ErrorIs(t, err, ErrIndexEmpty)

	_, err = store.Build(ctx, []document.Chunk{{Text: "..."}, {Text: "the of and"}})
	assert.ErrorIs(t, err, ErrIndexEmpty)

	_, err = store.Retrieve(ctx, nil, "query", 3)
	assert.ErrorIs(t, err, ErrIndexEmpty)
}

// TestRetrieveDimensionMismatch 测试不同维度的模型查询同一索引
func TestRetrieveDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	store64, _ := newTestStore(t, 64)
	store32, hook := newTestStore(t, 32)

	idx, err := store64.Build(ctx, []document.Chunk{{Text: "some indexed text"}})
	require.NoError(t, err)

	_, err = store32.Retrieve(ctx, idx, "some indexed text", 3)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

// TestRetrieveFromChunkedDocument 测试12000字符文档的切分和检索
func TestRetrieveFromChunkedDocument(t *testing.T) {
	store, _ := newTestStore(t, 384)
	ctx := context.Background()

	text := uniqueText(12000)
	chunks, err := document.Split(text, document.DefaultChunkSize, document.DefaultChunkOverlap)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	idx, err := store.Build(ctx, chunks)
	require.NoError(t, err)

	// 取第二块中间、不在重叠区域内的一段作为问题
	runes := []rune(chunks[1].Text)
	question := string(runes[2000:2300])

	hits, err := store.Retrieve(ctx, idx, question, DefaultTopK)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, 1, hits[0].Index)
	assert.Equal(t, 4800, hits[0].Start)
}
