package services

import "strings"

// TaskType 任务类型
type TaskType string

const (
	TaskSummarize TaskType = "summarize"          // 摘要
	TaskAnswer    TaskType = "answer"             // 基于上下文回答问题
	TaskQuestions TaskType = "generate_questions" // 生成测验问题
	TaskEvaluate  TaskType = "evaluate"           // 评价用户答案
)

// PromptTemplate 一类任务的提示词模板
// 可用占位符:
// {{.Input}}    - 当前输入(全文、上下文或其中一块)
// {{.Part}}     - 分块序号，从1开始
// {{.Question}} - 用户问题
// {{.Answer}}   - 用户答案
// {{.Partials}} - map阶段的部分结果
type PromptTemplate struct {
	System string // 系统角色
	Single string // 输入未超过阈值时的单次调用
	Map    string // 超过阈值时每个分块的调用
	Reduce string // 合并部分结果
	Joiner string // 部分结果之间的分隔符
}

const summarizeSystem = "You are an assistant that summarizes documents."

const answerSystem = "You are an assistant that answers questions based only on the provided context. " +
	"Always cite exactly which part of the context supports the answer."

const answerPrompt = `Context:
{{.Input}}

Question:
{{.Question}}

Please answer the question based ONLY on the context. Include a justification citing the supporting text.`

const questionsSystem = "You are a teacher assistant."

const evaluateSystem = "You are a critical evaluator. Judge if the user's answer is correct based on the context. " +
	"Provide feedback with justification."

const evaluatePrompt = `
Context:
{{.Input}}

Question:
{{.Question}}

User's Answer:
{{.Answer}}

Is the answer correct? Provide feedback with justification from the context.`

// 各任务的固定模板
var templates = map[TaskType]PromptTemplate{
	TaskSummarize: {
		System: summarizeSystem,
		Single: "Summarize the following text in under 150 words:\n\n{{.Input}}",
		Map:    "Summarize part {{.Part}} of the text in under 100 words:\n\n{{.Input}}",
		Reduce: "Combine these partial summaries into one concise summary under 150 words:\n\n{{.Partials}}",
		Joiner: " ",
	},
	TaskAnswer: {
		System: answerSystem,
		Single: answerPrompt,
		Map:    answerPrompt,
		Reduce: "Merge these partial answers into one final answer:\n\n{{.Partials}}",
		Joiner: "\n\n",
	},
	TaskQuestions: {
		System: questionsSystem,
		Single: "Generate 3 logic-based or comprehension-focused questions from the following text:\n\n{{.Input}}",
		Map:    "Generate 2 comprehension-focused questions from part {{.Part}} of the text:\n\n{{.Input}}",
		Reduce: "From these partial questions, select the 3 most logical and diverse questions:\n\n{{.Partials}}",
		Joiner: " ",
	},
	TaskEvaluate: {
		System: evaluateSystem,
		Single: evaluatePrompt,
		Map:    evaluatePrompt,
		Reduce: "Combine these partial evaluations into one clear evaluation:\n\n{{.Partials}}",
		Joiner: " ",
	},
}

// TemplateFor 返回任务对应的模板
func TemplateFor(task TaskType) (PromptTemplate, bool) {
	t, ok := templates[task]
	return t, ok
}

// promptVars 模板变量
type promptVars struct {
	Input    string
	Part     string
	Question string
	Answer   string
	Partials string
}

// render 替换模板占位符
// 只做一次替换，输入文本中出现的占位符不会被再次展开
func render(tmpl string, vars promptVars) string {
	return strings.NewReplacer(
		"{{.Input}}", vars.Input,
		"{{.Part}}", vars.Part,
		"{{.Question}}", vars.Question,
		"{{.Answer}}", vars.Answer,
		"{{.Partials}}", vars.Partials,
	).Replace(tmpl)
}
