// Package scene produces the optional scene context that adaptive operations
// use to tune their parameters, by sending sampled stills to a vision model.
package scene

import (
	"context"
	"encoding/json"
	"strings"
)

// Section names returned by the analysis.
const (
	SectionLighting        = "lighting_conditions"
	SectionColor           = "color_characteristics"
	SectionNoise           = "noise_assessment"
	SectionMotion          = "motion_assessment"
	SectionArtifacts       = "artifacts"
	SectionSceneType       = "scene_type"
	SectionRecommendations = "processing_recommendations"
)

// Context is the result of one scene analysis. It is built once per run and
// read-only afterwards. A context with Error set carries no usable signals.
type Context struct {
	Sections     map[string]any
	Error        string
	TextAnalysis string
}

// Provider analyzes sampled stills from the media file at source.
type Provider interface {
	Analyze(ctx context.Context, frames []string, source string) (*Context, error)
}

// Usable reports whether c holds analysis results that may drive adjustments.
func (c *Context) Usable() bool {
	return c != nil && c.Error == "" && c.Sections != nil
}

// MarshalJSON renders the analysis sections, or the error tag when analysis failed.
func (c *Context) MarshalJSON() ([]byte, error) {
	if c.Error != "" {
		return json.Marshal(struct {
			Error        string `json:"error"`
			TextAnalysis string `json:"text_analysis,omitempty"`
		}{c.Error, c.TextAnalysis})
	}
	if c.Sections == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c.Sections)
}

// UnmarshalJSON accepts either form written by MarshalJSON.
func (c *Context) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if e, ok := raw["error"].(string); ok && e != "" {
		c.Error = e
		c.TextAnalysis, _ = raw["text_analysis"].(string)
		c.Sections = nil
		return nil
	}
	c.Sections = raw
	return nil
}

// field returns a lower-cased string field from a named section.
func (c *Context) field(section, key string) string {
	if !c.Usable() {
		return ""
	}
	m, ok := c.Sections[section].(map[string]any)
	if !ok {
		return ""
	}
	s, _ := m[key].(string)
	return strings.ToLower(strings.TrimSpace(s))
}

// NoiseLevel returns noise_assessment.level ("low", "medium", "high") or "".
func (c *Context) NoiseLevel() string { return c.field(SectionNoise, "level") }

// CameraShake returns motion_assessment.camera_shake or "".
func (c *Context) CameraShake() string { return c.field(SectionMotion, "camera_shake") }

// ColorTemperature returns color_characteristics.temperature or "".
func (c *Context) ColorTemperature() string { return c.field(SectionColor, "temperature") }

// ColorCast returns color_characteristics.color_cast or "".
func (c *Context) ColorCast() string { return c.field(SectionColor, "color_cast") }

// Artifacts returns the normalized names of detected artifacts. Entries may
// be plain strings or objects carrying a "type" or "name" field.
func (c *Context) Artifacts() []string {
	if !c.Usable() {
		return nil
	}

	var entries []any
	switch v := c.Sections[SectionArtifacts].(type) {
	case []any:
		entries = v
	case map[string]any:
		// Some responses wrap the list, others use name -> bool.
		if list, ok := v["detected"].([]any); ok {
			entries = list
		} else if list, ok := v["types"].([]any); ok {
			entries = list
		} else {
			for name, present := range v {
				if b, ok := present.(bool); ok && b {
					entries = append(entries, name)
				}
			}
		}
	}

	var out []string
	for _, e := range entries {
		var name string
		switch v := e.(type) {
		case string:
			name = v
		case map[string]any:
			if s, ok := v["type"].(string); ok {
				name = s
			} else if s, ok := v["name"].(string); ok {
				name = s
			}
		}
		if name = normalizeName(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	return s
}
