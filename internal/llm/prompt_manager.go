package llm

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed prompts/*.prompt
var promptFiles embed.FS

// PromptKey names an embedded prompt template.
type PromptKey string

const (
	// DiffReviewPrompt reviews an entire unified diff in one pass.
	DiffReviewPrompt PromptKey = "diff_review"
	// FileReviewPrompt reviews a single file's patch; used by the
	// chunked fallback.
	FileReviewPrompt PromptKey = "file_review"
)

// PromptManager loads and renders the embedded prompt templates.
type PromptManager struct {
	prompts map[PromptKey]*template.Template
}

// NewPromptManager parses all embedded .prompt files.
func NewPromptManager() (*PromptManager, error) {
	pm := &PromptManager{prompts: make(map[PromptKey]*template.Template)}

	files, err := promptFiles.ReadDir("prompts")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded prompts directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() {
			continue
		}
		name := file.Name()
		key := PromptKey(strings.TrimSuffix(name, ".prompt"))

		content, err := promptFiles.ReadFile("prompts/" + name)
		if err != nil {
			return nil, fmt.Errorf("failed to read embedded prompt file %s: %w", name, err)
		}

		tmpl, err := template.New(string(key)).Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("could not parse prompt template %s: %w", name, err)
		}
		pm.prompts[key] = tmpl
	}

	return pm, nil
}

// Render executes the template for key with the given data.
func (pm *PromptManager) Render(key PromptKey, data any) (string, error) {
	tmpl, ok := pm.prompts[key]
	if !ok {
		return "", fmt.Errorf("no prompt registered for key %q", key)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render prompt %q: %w", key, err)
	}
	return buf.String(), nil
}

// DiffReviewData feeds the whole-diff prompt.
type DiffReviewData struct {
	RepoFullName       string
	PRTitle            string
	PRBody             string
	Diff               string
	CustomInstructions []string
}

// FileReviewData feeds the per-file prompt.
type FileReviewData struct {
	RepoFullName       string
	Path               string
	Patch              string
	CustomInstructions []string
}
