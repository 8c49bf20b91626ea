package model

import (
	"time"

	"github.com/fyerfyer/doc-assistant/internal/document"
)

// 业务状态码
const (
	CodeSuccess    = 0 // 成功
	CodeNoDocument = 1 // 尚未上传文档，不视为错误
)

// NoDocumentMessage 尚未上传文档时的提示
const NoDocumentMessage = "No document uploaded yet."

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`               // 响应状态码，0表示成功
	Message string      `json:"message"`            // 响应消息
	Data    interface{} `json:"data,omitempty"`     // 响应数据，可能为空
	TraceID string      `json:"trace_id,omitempty"` // 调用链追踪ID
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	}
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(code int, message string) *Response {
	return &Response{
		Code:    code,
		Message: message,
	}
}

// NewNoDocumentResponse 创建尚未上传文档的响应
func NewNoDocumentResponse() *Response {
	return &Response{
		Code:    CodeNoDocument,
		Message: NoDocumentMessage,
	}
}

// UploadResponse 文档上传响应
type UploadResponse struct {
	Message     string `json:"message"`      // 处理结果
	DocumentID  string `json:"document_id"`  // 文档ID
	FileName    string `json:"filename"`     // 文件名
	TotalChunks int    `json:"total_chunks"` // 分块数量
	Dropped     int    `json:"dropped"`      // 被丢弃的分块数量
}

// SummaryResponse 摘要响应
type SummaryResponse struct {
	Summary string `json:"summary"`
}

// SourceInfo 检索来源信息
type SourceInfo struct {
	Index int    `json:"index"` // 分块序号
	Start int    `json:"start"` // 分块在文档中的起始位置
	Text  string `json:"text"`  // 分块文本
}

// AskResponse 问答响应
type AskResponse struct {
	Question    string       `json:"question"`
	Answer      string       `json:"answer"`
	ContextUsed string       `json:"context_used"`
	Sources     []SourceInfo `json:"sources"`
}

// QuestionsResponse 生成问题响应
type QuestionsResponse struct {
	Questions []string `json:"questions"`
}

// EvaluateResponse 答案评价响应
type EvaluateResponse struct {
	Feedback    string       `json:"feedback"`
	ContextUsed string       `json:"context_used"`
	Sources     []SourceInfo `json:"sources"`
}

// DocumentResponse 当前文档信息
type DocumentResponse struct {
	DocumentID  string    `json:"document_id"`
	FileName    string    `json:"filename"`
	Length      int       `json:"length"`
	TotalChunks int       `json:"total_chunks"`
	Dimension   int       `json:"dimension"`
	Model       string    `json:"embedding_model"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// ConvertToSourceInfo 将分块转换为来源信息
func ConvertToSourceInfo(chunks []document.Chunk) []SourceInfo {
	sources := make([]SourceInfo, len(chunks))
	for i, chunk := range chunks {
		sources[i] = SourceInfo{
			Index: chunk.Index,
			Start: chunk.Start,
			Text:  chunk.Text,
		}
	}
	return sources
}
