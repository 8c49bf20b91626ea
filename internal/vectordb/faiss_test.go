//go:build faiss

package vectordb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFaissRepository 测试Faiss索引与内存索引结果一致
func TestFaissRepository(t *testing.T) {
	repo, err := NewRepository(Config{Type: "faiss", DistanceType: Euclidean})
	require.NoError(t, err)
	defer repo.Close()

	_, err = repo.Search([]float32{0, 0}, 1)
	assert.ErrorIs(t, err, ErrIndexEmpty)

	require.NoError(t, repo.AddBatch([]Document{
		createTestDoc("far", []float32{10, 10}),
		createTestDoc("dup-a", []float32{1, 0}),
		createTestDoc("exact", []float32{0, 0}),
		createTestDoc("dup-b", []float32{1, 0}),
	}))
	assert.Equal(t, 2, repo.GetDimension())

	results, err := repo.Search([]float32{0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "exact", results[0].Document.ID)
	assert.Equal(t, "dup-a", results[1].Document.ID)
	assert.Equal(t, "dup-b", results[2].Document.ID)
	assert.InDelta(t, 1, results[1].Distance, 1e-6)

	err = repo.Add(createTestDoc("bad", []float32{1, 2, 3}))
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}
