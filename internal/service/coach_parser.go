package service

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	tutorTaskMarker = "GOREV_EKLE:"
	tutorTaskPrefix = "🤖 Hoca: "
	tutorTaskOnly   = "Görevini listene ekledim."

	planMaxTasks   = 5
	planMinRunes   = 6
	planMaxRunes   = 200
	planBulletRune = "-*•# \t"
)

// 序号后紧跟数字时不剥离，避免 "3.5 saat" 被截断
var planNumbering = regexp.MustCompile(`^\d{1,2}[.)]\s*(\D|$)`)

// ParsePlan 把模型返回的自由文本拆成最多5条任务
func ParsePlan(raw string) []string {
	var tasks []string
	for _, line := range strings.Split(raw, "\n") {
		line = cleanPlanLine(line)
		n := utf8.RuneCountInString(line)
		if n < planMinRunes || n > planMaxRunes {
			continue
		}
		tasks = append(tasks, line)
		if len(tasks) == planMaxTasks {
			break
		}
	}
	return tasks
}

func cleanPlanLine(line string) string {
	line = strings.ReplaceAll(line, "**", "")
	line = strings.TrimSpace(line)
	line = strings.TrimLeft(line, planBulletRune)
	line = planNumbering.ReplaceAllString(line, "${1}")
	return strings.TrimSpace(line)
}

// TutorReply 辅导回答；HasTask 为 true 时 Task 是需要加入任务列表的内容
type TutorReply struct {
	Answer  string
	Task    string
	HasTask bool
}

// ParseTutorReply 在第一个 GOREV_EKLE: 处切分回答和任务
func ParseTutorReply(raw string) TutorReply {
	idx := strings.Index(raw, tutorTaskMarker)
	if idx < 0 {
		return TutorReply{Answer: strings.TrimSpace(raw)}
	}

	answer := strings.TrimSpace(raw[:idx])
	if answer == "" {
		answer = tutorTaskOnly
	}
	task := strings.TrimSpace(strings.ReplaceAll(raw[idx+len(tutorTaskMarker):], "**", ""))
	if task == "" {
		return TutorReply{Answer: answer}
	}
	return TutorReply{Answer: answer, Task: tutorTaskPrefix + task, HasTask: true}
}

// ParseStructured 从模型输出中提取 JSON 对象；解析失败或 valid 返回 false 时使用 fallback
func ParseStructured[T any](raw string, fallback T, valid func(T) bool) (T, bool) {
	body := extractJSONObject(raw)
	if body == "" {
		return fallback, false
	}
	var v T
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		return fallback, false
	}
	if valid != nil && !valid(v) {
		return fallback, false
	}
	return v, true
}

func extractJSONObject(raw string) string {
	s := strings.ReplaceAll(raw, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
