// Package assets provides embedded static assets for the application.
//
// Prompt templates are stored as text files under prompts/ and embedded at compile time.
package assets

import (
	"bytes"
	_ "embed"
	"path/filepath"
	"text/template"
)

//go:embed prompts/scene-analysis.txt
var sceneAnalysisTemplate string

var sceneAnalysisTmpl = template.Must(template.New("scene-analysis").Parse(sceneAnalysisTemplate))

// PromptData holds the dynamic values substituted into prompt templates.
type PromptData struct {
	Filename string
}

// BuildSceneAnalysisPrompt renders the scene analysis instruction for the
// media file at path. Only the base name is sent.
func BuildSceneAnalysisPrompt(path string) string {
	return renderTemplate(sceneAnalysisTmpl, PromptData{Filename: filepath.Base(path)})
}

// renderTemplate executes a prompt template. The templates are fixed at
// compile time, so execution errors cannot occur with valid data.
func renderTemplate(tmpl *template.Template, data PromptData) string {
	var buf bytes.Buffer
	_ = tmpl.Execute(&buf, data)
	return buf.String()
}
