package scene

import "os"

// Gemini model IDs suitable for frame analysis.
const (
	// ModelGemini3FlashPreview is best for speed + intelligence.
	ModelGemini3FlashPreview = "gemini-3-flash-preview"

	// ModelGemini25Flash is stable, balanced performance.
	ModelGemini25Flash = "gemini-2.5-flash"

	// ModelGemini25FlashLite is for high-throughput, lowest cost.
	ModelGemini25FlashLite = "gemini-2.5-flash-lite"
)

// DefaultModelName is the default model for scene analysis.
// Can be overridden via GEMINI_MODEL environment variable.
const DefaultModelName = ModelGemini25Flash

// GetModelName returns GEMINI_MODEL if set, otherwise DefaultModelName.
func GetModelName() string {
	if env := os.Getenv("GEMINI_MODEL"); env != "" {
		return env
	}
	return DefaultModelName
}
