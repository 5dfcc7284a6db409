package service

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var promptsYAML []byte

const (
	promptPlan        = "plan"
	promptTutor       = "tutor"
	promptAnalyze     = "analyze"
	promptChallenge   = "challenge"
	promptSolve       = "solve"
	promptExamComment = "exam_comment"
)

// PromptSet 已编译的提示词模板
type PromptSet struct {
	templates map[string]*template.Template
}

func LoadPrompts() (*PromptSet, error) {
	return parsePrompts(promptsYAML)
}

func parsePrompts(data []byte) (*PromptSet, error) {
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}

	funcs := template.FuncMap{"join": strings.Join}
	set := &PromptSet{templates: make(map[string]*template.Template, len(raw))}
	for name, text := range raw {
		tmpl, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("prompt %s: %w", name, err)
		}
		set.templates[name] = tmpl
	}

	for _, name := range []string{promptPlan, promptTutor, promptAnalyze, promptChallenge, promptSolve, promptExamComment} {
		if _, ok := set.templates[name]; !ok {
			return nil, fmt.Errorf("prompt %s missing", name)
		}
	}
	return set, nil
}

func (p *PromptSet) Render(name string, data interface{}) (string, error) {
	tmpl, ok := p.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt %q", name)
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return sb.String(), nil
}
