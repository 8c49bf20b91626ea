package llm

import "time"

// MessageRole 消息角色类型
type MessageRole string

const (
	// RoleSystem 系统角色
	RoleSystem MessageRole = "system"
	// RoleUser 用户角色
	RoleUser MessageRole = "user"
	// RoleAssistant 助手角色
	RoleAssistant MessageRole = "assistant"
)

// Message 对话消息结构
type Message struct {
	Role    MessageRole `json:"role"`    // 角色
	Content string      `json:"content"` // 内容
}

// Response 统一的响应结构
type Response struct {
	Text         string    // 生成的文本
	TokenCount   int       // 使用的token数
	ModelName    string    // 使用的模型名称
	FinishReason string    // 结束原因
	FinishTime   time.Time // 完成时间
}

// splitMessages 拆出系统提示和其余消息
func splitMessages(messages []Message) (string, []Message) {
	var system string
	rest := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}

// Model 常用模型名称
const (
	ModelLlama31Instant = "llama-3.1-8b-instant" // Groq默认模型
	ModelQwenTurbo      = "qwen-turbo"           // 通义千问-Turbo模型
	ModelQwenPlus       = "qwen-plus"            // 通义千问-Plus模型
	ModelGeminiFlash    = "gemini-2.5-flash"     // Gemini Flash模型
	ModelLlama32        = "llama3.2"             // Ollama本地模型
)
