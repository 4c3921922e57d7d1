package labels

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/fe-devtools/devflow/internal/errors"
	"github.com/fe-devtools/devflow/internal/llm"
	"github.com/fe-devtools/devflow/internal/models"
)

const maxPromptFiles = 200

type (
	// Knowledge is the team's label catalogue, read from labels.yaml.
	Knowledge struct {
		Labels []KnowledgeLabel `yaml:"labels"`
	}

	KnowledgeLabel struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
		Applicable  bool   `yaml:"applicable"`
	}
)

// LoadKnowledge reads a knowledge file.
func LoadKnowledge(path string) (*Knowledge, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ErrKnowledgeFile.WithError(err).WithContext("path", path)
	}
	var k Knowledge
	if err := yaml.Unmarshal(data, &k); err != nil {
		return nil, errors.ErrKnowledgeFile.WithError(err).WithContext("path", path)
	}
	return &k, nil
}

// Applicable returns the labels the model may choose from.
func (k *Knowledge) Applicable() []KnowledgeLabel {
	var out []KnowledgeLabel
	for _, l := range k.Labels {
		if l.Applicable && strings.TrimSpace(l.Name) != "" {
			out = append(out, l)
		}
	}
	return out
}

// canonical maps a model answer onto an applicable label name, ignoring case.
func (k *Knowledge) canonical(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, l := range k.Applicable() {
		if strings.EqualFold(l.Name, name) {
			return l.Name, true
		}
	}
	return "", false
}

var _ Source = (*LLMSource)(nil)

// LLMSource asks a model to pick labels from the knowledge file. Answers
// outside the applicable labels are dropped.
type LLMSource struct {
	completer   llm.Completer
	knowledge   *Knowledge
	temperature float64
}

func NewLLMSource(completer llm.Completer, knowledge *Knowledge, temperature float64) *LLMSource {
	return &LLMSource{completer: completer, knowledge: knowledge, temperature: temperature}
}

func (s *LLMSource) Name() string { return "llm" }

type labelAnswer struct {
	Labels []string `json:"labels"`
}

func (s *LLMSource) Labels(ctx context.Context, in Input) ([]string, error) {
	applicable := s.knowledge.Applicable()
	if len(applicable) == 0 {
		return nil, nil
	}

	user, err := renderPrompt(labelPrompt, promptData{
		Ticket:  in.Ticket,
		Summary: in.Summary,
		Target:  in.TargetBranch,
		Labels:  applicable,
		Files:   promptFiles(in.Files),
	})
	if err != nil {
		return nil, err
	}

	var answer labelAnswer
	err = llm.CompleteJSON(ctx, s.completer, llm.Request{
		System:      labelSystemPrompt,
		User:        user,
		Temperature: s.temperature,
	}, &answer)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, name := range answer.Labels {
		if c, ok := s.knowledge.canonical(name); ok {
			out = append(out, c)
		}
	}
	return out, nil
}

const labelSystemPrompt = `You label GitLab merge requests for a frontend team.
Only choose labels from the list you are given. Answer with JSON only, in the form {"labels": ["..."]}.
Return an empty list when no label fits.`

const labelPrompt = `Ticket: {{if .Ticket}}{{.Ticket}}{{else}}none{{end}}
{{- if .Summary}}
Summary: {{.Summary}}{{end}}
Target branch: {{.Target}}

Available labels:
{{- range .Labels}}
- {{.Name}}{{if .Description}}: {{.Description}}{{end}}
{{- end}}

Changed files:
{{- range .Files}}
{{.}}
{{- end}}
`

type promptData struct {
	Ticket  string
	Summary string
	Target  string
	Labels  []KnowledgeLabel
	Files   []string
}

func promptFiles(files []models.ChangedFile) []string {
	out := make([]string, 0, len(files))
	for i, f := range files {
		if i == maxPromptFiles {
			out = append(out, fmt.Sprintf("... and %d more", len(files)-maxPromptFiles))
			break
		}
		out = append(out, fmt.Sprintf("%s %s", f.Status, f.Path))
	}
	return out
}

func renderPrompt(tmplStr string, data interface{}) (string, error) {
	tmpl, err := template.New("labels").Parse(tmplStr)
	if err != nil {
		return "", fmt.Errorf("error parsing label prompt: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("error rendering label prompt: %w", err)
	}
	return buf.String(), nil
}
