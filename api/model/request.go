package model

import "mime/multipart"

// UploadRequest 文档上传请求
type UploadRequest struct {
	File *multipart.FileHeader `form:"file" binding:"required"` // 文件对象
}

// AskRequest 问答请求
type AskRequest struct {
	Question string `json:"question" binding:"required"` // 问题内容
}

// EvaluateRequest 答案评价请求
type EvaluateRequest struct {
	Question   string `json:"question" binding:"required"`    // 问题内容
	UserAnswer string `json:"user_answer" binding:"required"` // 用户答案
}
