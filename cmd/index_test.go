//go:build !faiss

package main

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestResolveIndexType 测试未编译FAISS时回退到内存索引
func TestResolveIndexType(t *testing.T) {
	logger, hook := test.NewNullLogger()

	assert.Equal(t, "memory", resolveIndexType("memory", logger))
	assert.Empty(t, hook.AllEntries())

	assert.Equal(t, "memory", resolveIndexType("faiss", logger))
	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}
