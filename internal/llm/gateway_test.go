package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestGateway(client Client, opts ...GatewayOption) *Gateway {
	logger, _ := test.NewNullLogger()
	return NewGateway(client, append([]GatewayOption{WithGatewayLogger(logger)}, opts...)...)
}

// TestGatewayComplete 测试一次正常调用
func TestGatewayComplete(t *testing.T) {
	client := new(MockClient)
	client.On("Chat", mock.Anything, []Message{
		{Role: RoleSystem, Content: "system"},
		{Role: RoleUser, Content: "prompt"},
	}).Return(&Response{Text: "  result \n"}, nil).Once()

	gw := newTestGateway(client)
	out, err := gw.Complete(context.Background(), "system", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "result", out)
	client.AssertExpectations(t)
}

// TestGatewayNoSystemPrompt 测试空系统提示不发送系统消息
func TestGatewayNoSystemPrompt(t *testing.T) {
	client := new(MockClient)
	client.On("Chat", mock.Anything, []Message{{Role: RoleUser, Content: "prompt"}}).
		Return(&Response{Text: "ok"}, nil).Once()

	out, err := newTestGateway(client).Complete(context.Background(), "", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

// TestGatewayErrors 测试错误分类
func TestGatewayErrors(t *testing.T) {
	testCases := []struct {
		name      string
		resp      *Response
		err       error
		gateway   bool
		code      int
		retryable bool
	}{
		{"rate limited", nil, NewLLMError(ErrCodeRateLimited, ErrMsgRateLimited), true, ErrCodeRateLimited, true},
		{"auth", nil, NewLLMError(ErrCodeInvalidAPIKey, ErrMsgInvalidAPIKey), true, ErrCodeInvalidAPIKey, false},
		{"plain error", nil, errors.New("connection reset"), true, ErrCodeNetworkError, true},
		{"deadline", nil, context.DeadlineExceeded, true, ErrCodeTimeout, true},
		{"empty response error", nil, NewLLMError(ErrCodeEmptyResponse, ErrMsgEmptyResponse), false, 0, false},
		{"blank text", &Response{Text: "   "}, nil, false, 0, false},
		{"nil response", nil, nil, false, 0, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			client := new(MockClient)
			client.On("Chat", mock.Anything, mock.Anything).Return(tc.resp, tc.err)

			_, err := newTestGateway(client).Complete(context.Background(), "s", "p")
			require.Error(t, err)

			if tc.gateway {
				var gwErr *GatewayError
				require.ErrorAs(t, err, &gwErr)
				assert.Equal(t, tc.code, gwErr.Code)
				assert.Equal(t, tc.retryable, gwErr.Retryable())
				assert.Equal(t, "mock-model", gwErr.Provider)
				assert.False(t, IsModelError(err))
			} else {
				assert.True(t, IsModelError(err))
				assert.False(t, IsGatewayError(err))
			}
		})
	}
}

// TestGatewayTimeout 测试网关超时转为GatewayError
func TestGatewayTimeout(t *testing.T) {
	client := new(MockClient)
	client.On("Chat", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			<-ctx.Done()
		}).
		Return(nil, errors.New("request canceled"))

	gw := newTestGateway(client, WithGatewayTimeout(20*time.Millisecond))
	_, err := gw.Complete(context.Background(), "s", "p")

	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, ErrCodeTimeout, gwErr.Code)
	assert.True(t, gwErr.Retryable())
}

// TestGatewayEmptyPrompt 测试空提示词不发起调用
func TestGatewayEmptyPrompt(t *testing.T) {
	client := new(MockClient)
	_, err := newTestGateway(client).Complete(context.Background(), "s", "  ")

	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, ErrCodeEmptyPrompt, gwErr.Code)
	client.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything)
}

// TestGatewayLogsFailure 测试失败时记录警告日志
func TestGatewayLogsFailure(t *testing.T) {
	logger, hook := test.NewNullLogger()
	client := new(MockClient)
	client.On("Chat", mock.Anything, mock.Anything).Return(nil, NewLLMError(ErrCodeServerError, "boom"))

	gw := NewGateway(client, WithGatewayLogger(logger))
	_, err := gw.Complete(context.Background(), "s", "p")
	require.Error(t, err)

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "mock-model", hook.LastEntry().Data["model"])
}
