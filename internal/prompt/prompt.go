// Package prompt renders one translation prompt per source unit.
package prompt

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"

	log "github.com/sirupsen/logrus"

	"github.com/valpere/indicmt/internal"
	"github.com/valpere/indicmt/internal/lang"
	"github.com/valpere/indicmt/internal/textio"
)

// DefaultTemplate is a completion-style prompt; the model continues after
// the target language label. It has no blank lines so the default "\n\n"
// stop sequence never cuts the prompt itself.
const DefaultTemplate = `Translate the following {{.SourceName}} text into {{.TargetName}}.
{{.SourceName}}: {{.Text}}
{{.TargetName}}:`

// Data is the value a template is executed with.
type Data struct {
	Index      int
	SourceLang string
	TargetLang string
	SourceName string
	TargetName string
	Text       string
}

// TokenCounter estimates prompt length in tokens.
type TokenCounter interface {
	Count(text string) (int, error)
}

// Stats describes one generated prompt file.
type Stats struct {
	Prompts    int
	OverBudget int
}

type Generator struct {
	tmpl      *template.Template
	counter   TokenCounter
	maxTokens int
}

// New parses body as a text/template. An empty body selects DefaultTemplate.
func New(body string) (*Generator, error) {
	if strings.TrimSpace(body) == "" {
		body = DefaultTemplate
	}
	tmpl, err := template.New("prompt").Option("missingkey=error").Parse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt template: %w", err)
	}
	return &Generator{tmpl: tmpl}, nil
}

// LoadTemplate reads a template body from path; an empty path yields "".
func LoadTemplate(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt template: %w", err)
	}
	return string(b), nil
}

// WithTokenBudget makes the generator warn about prompts longer than
// maxTokens. Prompts are never truncated.
func (g *Generator) WithTokenBudget(counter TokenCounter, maxTokens int) *Generator {
	g.counter = counter
	g.maxTokens = maxTokens
	return g
}

// Render fills the template for one unit.
func (g *Generator) Render(d internal.Direction, index int, text string) (string, error) {
	var buf bytes.Buffer
	err := g.tmpl.Execute(&buf, Data{
		Index:      index,
		SourceLang: d.Source,
		TargetLang: d.Target,
		SourceName: lang.Name(d.Source),
		TargetName: lang.Name(d.Target),
		Text:       text,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render prompt %d: %w", index, err)
	}
	return buf.String(), nil
}

// Generate renders one record per unit, in order.
func (g *Generator) Generate(d internal.Direction, units []string) ([]Record, *Stats, error) {
	records := make([]Record, 0, len(units))
	stats := &Stats{}
	for i, text := range units {
		p, err := g.Render(d, i, text)
		if err != nil {
			return nil, nil, err
		}
		if g.overBudget(p) {
			stats.OverBudget++
		}
		records = append(records, Record{
			ID:         i,
			SourceLang: d.Source,
			TargetLang: d.Target,
			Source:     text,
			Prompt:     p,
		})
	}
	if err := internal.CheckCounts(internal.ErrConsistency, "source units", len(units), "prompts", len(records)); err != nil {
		return nil, nil, err
	}
	stats.Prompts = len(records)
	return records, stats, nil
}

func (g *Generator) overBudget(p string) bool {
	if g.counter == nil || g.maxTokens <= 0 {
		return false
	}
	n, err := g.counter.Count(p)
	if err != nil {
		log.Debugf("token count failed: %v", err)
		return false
	}
	return n > g.maxTokens
}

// GenerateFile reads sourcePath, writes the prompt file and verifies the
// written file has one line per source unit.
func (g *Generator) GenerateFile(sourcePath, promptPath string, d internal.Direction) (*Stats, error) {
	units, err := textio.ReadUnits(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read source file: %w", err)
	}

	records, stats, err := g.Generate(d, units)
	if err != nil {
		return nil, err
	}
	if err := WriteRecords(promptPath, records); err != nil {
		return nil, fmt.Errorf("failed to write prompt file: %w", err)
	}

	written, err := textio.CountUnits(promptPath)
	if err != nil {
		return nil, err
	}
	if err := internal.CheckCounts(internal.ErrConsistency, sourcePath, len(units), promptPath, written); err != nil {
		return nil, err
	}

	entry := log.WithFields(log.Fields{"direction": d.String(), "prompts": stats.Prompts})
	if stats.OverBudget > 0 {
		entry.Warnf("%d prompts exceed the %d token budget", stats.OverBudget, g.maxTokens)
	}
	entry.Debugf("wrote %s", promptPath)
	return stats, nil
}
