package explain

import (
	"bytes"
	"embed"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"text/template"
)

//go:embed prompts/explain.txt
var promptFS embed.FS

var questionDataRegex = regexp.MustCompile(`(?i)</?\s*question-data\b[^>]*>`)

var (
	loadOnce   sync.Once
	loadErr    error
	promptTmpl *template.Template
)

// languageNames maps UI language codes to the name used in the prompt.
var languageNames = map[string]string{
	"en": "English",
	"it": "Italian",
}

type promptData struct {
	Request
	Options      []string
	WrongPick    bool
	Language     string
	MaxSentences int
}

func loadTemplate() (*template.Template, error) {
	loadOnce.Do(func() {
		content, err := promptFS.ReadFile("prompts/explain.txt")
		if err != nil {
			loadErr = fmt.Errorf("read prompt template: %w", err)
			return
		}
		promptTmpl, loadErr = template.New("explain").Parse(string(content))
	})
	return promptTmpl, loadErr
}

// BuildPrompt renders the system prompt for req.
func BuildPrompt(req Request) (string, error) {
	tmpl, err := loadTemplate()
	if err != nil {
		return "", err
	}

	clean := req
	clean.Topic = sanitize(req.Topic)
	clean.Prompt = sanitize(req.Prompt)
	clean.CorrectAnswer = sanitize(req.CorrectAnswer)
	clean.Selected = sanitize(req.Selected)
	clean.Rationale = sanitize(req.Rationale)

	data := promptData{
		Request:      clean,
		WrongPick:    clean.Selected != "" && clean.Selected != clean.CorrectAnswer,
		Language:     languageNames["en"],
		MaxSentences: 4,
	}
	if name, ok := languageNames[req.Lang]; ok {
		data.Language = name
	}
	for _, o := range req.Options {
		data.Options = append(data.Options, sanitize(o))
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// sanitize removes delimiter tags so question text cannot close the data block.
func sanitize(s string) string {
	return strings.TrimSpace(questionDataRegex.ReplaceAllString(s, ""))
}
