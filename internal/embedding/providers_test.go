package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeVector 根据文本长度生成确定的向量
func fakeVector(text string) []float32 {
	return []float32{float32(len(text)), 1, 0}
}

// TestOpenAIClientEmbed 测试OpenAI嵌入请求构造和结果对齐
func TestOpenAIClientEmbed(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer embed-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"object": "list",
			"data": [
				{"object": "embedding", "index": 1, "embedding": [0.4, 0.5, 0.6]},
				{"object": "embedding", "index": 0, "embedding": [0.1, 0.2, 0.3]}
			],
			"model": "text-embedding-3-small",
			"usage": {"prompt_tokens": 4, "total_tokens": 4}
		}`))
	}))
	defer server.Close()

	client, err := NewClient("openai", WithAPIKey("embed-key"), WithBaseURL(server.URL+"/v1"))
	require.NoError(t, err)
	assert.Equal(t, "text-embedding-3-small", client.Name())

	vectors, err := client.EmbedBatch(context.Background(), []string{"hello", "  ", "world"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vectors[0])
	assert.Nil(t, vectors[1], "空文本位置应为nil")
	assert.Equal(t, []float32{0.4, 0.5, 0.6}, vectors[2])

	// 空文本不发送给服务端
	assert.Equal(t, []any{"hello", "world"}, captured["input"])
	assert.Equal(t, "text-embedding-3-small", captured["model"])
	assert.EqualValues(t, 384, captured["dimensions"])
}

// TestOpenAIClientEmbedErrors 测试OpenAI嵌入错误映射
func TestOpenAIClientEmbedErrors(t *testing.T) {
	testCases := []struct {
		name     string
		status   int
		body     string
		wantCode int
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down","type":"rate_limit"}}`, ErrCodeRateLimited},
		{"server error", http.StatusInternalServerError, `{"error":{"message":"boom","type":"server_error"}}`, ErrCodeServerError},
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"bad key","type":"invalid_request_error"}}`, ErrCodeInvalidAPIKey},
		{"empty data", http.StatusOK, `{"object":"list","data":[],"model":"m"}`, ErrCodeServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			client, err := NewClient("openai", WithAPIKey("k"), WithBaseURL(server.URL), WithMaxRetries(0))
			require.NoError(t, err)

			_, err = client.Embed(context.Background(), "hello")
			var embErr EmbeddingError
			require.ErrorAs(t, err, &embErr)
			assert.Equal(t, tc.wantCode, embErr.Code)
		})
	}
}

// TestOpenAIClientEmbedRetry 测试限流后重试成功
func TestOpenAIClientEmbedRetry(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[1,2]}],"model":"m"}`))
	}))
	defer server.Close()

	client, err := NewClient("openai", WithAPIKey("k"), WithBaseURL(server.URL), WithMaxRetries(1))
	require.NoError(t, err)

	vec, err := client.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, vec)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

// ollamaEmbedServer 模拟Ollama的嵌入接口，兼容新旧两种路径
func ollamaEmbedServer(t *testing.T, requests *int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(requests, 1)

		var req struct {
			Model  string          `json:"model"`
			Prompt string          `json:"prompt"`
			Input  json.RawMessage `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "all-minilm", req.Model)

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/embeddings":
			_ = json.NewEncoder(w).Encode(map[string]any{"embedding": fakeVector(req.Prompt)})
		case "/api/embed":
			var inputs []string
			if err := json.Unmarshal(req.Input, &inputs); err != nil {
				var single string
				require.NoError(t, json.Unmarshal(req.Input, &single))
				inputs = []string{single}
			}
			vectors := make([][]float32, len(inputs))
			for i, in := range inputs {
				vectors[i] = fakeVector(in)
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": vectors})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

// TestOllamaClientEmbed 测试Ollama嵌入客户端
func TestOllamaClientEmbed(t *testing.T) {
	var requests int32
	server := ollamaEmbedServer(t, &requests)

	client, err := NewClient("ollama", WithBaseURL(server.URL))
	require.NoError(t, err)
	assert.Equal(t, "all-minilm", client.Name())

	vec, err := client.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, fakeVector("hello"), vec)

	vectors, err := client.EmbedBatch(context.Background(), []string{"a", "", "abc"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, fakeVector("a"), vectors[0])
	assert.Nil(t, vectors[1])
	assert.Equal(t, fakeVector("abc"), vectors[2])
	assert.Positive(t, atomic.LoadInt32(&requests))

	_, err = client.Embed(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyText)
}

// TestOllamaClientEmbedError 测试Ollama服务错误映射
func TestOllamaClientEmbedError(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusInternalServerError} {
		t.Run(fmt.Sprint(status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				_, _ = w.Write([]byte(`{"error":"model not found"}`))
			}))
			defer server.Close()

			client, err := NewClient("ollama", WithBaseURL(server.URL))
			require.NoError(t, err)

			_, err = client.EmbedBatch(context.Background(), []string{"hello"})
			var embErr EmbeddingError
			require.ErrorAs(t, err, &embErr)
			assert.Equal(t, ErrCodeServerError, embErr.Code)
		})
	}
}
