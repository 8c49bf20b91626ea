package services

import (
	"regexp"
	"strings"
)

var (
	// 行首编号或列表符号: "1." "2)" "Q3:" "- " "* " "•"
	questionPrefix = regexp.MustCompile(`^\s*(?:(?:[Qq](?:uestion)?\s*)?\d+\s*[.):：、]|[-*•])\s*`)
	boldMarker     = regexp.MustCompile(`\*\*(.*?)\*\*`)
)

// ParseQuestions 将模型输出规整为问题列表
// 保留带编号或列表符号的行以及以问号结尾的行，其余说明文字被丢弃
// 没有任何匹配时整段输出作为一个问题
func ParseQuestions(output string) []string {
	questions := make([]string, 0, 3)
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(boldMarker.ReplaceAllString(line, "$1"))
		if line == "" {
			continue
		}

		stripped := questionPrefix.ReplaceAllString(line, "")
		listed := stripped != line
		stripped = strings.TrimSpace(stripped)
		if stripped == "" {
			continue
		}

		if listed || strings.HasSuffix(stripped, "?") || strings.HasSuffix(stripped, "？") {
			questions = append(questions, stripped)
		}
	}

	if len(questions) == 0 {
		if trimmed := strings.TrimSpace(output); trimmed != "" {
			questions = append(questions, trimmed)
		}
	}
	return questions
}
