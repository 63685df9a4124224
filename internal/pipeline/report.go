package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"

	"github.com/fpang/postrender/internal/media"
	"github.com/fpang/postrender/internal/operation"
	"github.com/fpang/postrender/internal/scene"
)

// Report is the record of one run. It is complete once Process returns.
type Report struct {
	RunID           string           `json:"run_id"`
	InputFile       string           `json:"input_file"`
	OutputPath      string           `json:"output_path"`
	FileInfo        *media.FileInfo  `json:"file_info"`
	PresetRequested string           `json:"preset_requested,omitempty"`
	Preset          string           `json:"preset"`
	Operations      OperationResults `json:"operations"`
	SceneAnalysis   *scene.Context   `json:"scene_analysis"`
	Warnings        []string         `json:"warnings,omitempty"`
	Cancelled       bool             `json:"cancelled,omitempty"`
	StartedAt       time.Time        `json:"started_at"`
	Duration        time.Duration    `json:"-"`
	DurationSeconds float64          `json:"duration_seconds"`
}

// SceneAnalyzed reports whether the run had a usable scene context. An
// error-tagged context is recorded in the report but does not count.
func (r *Report) SceneAnalyzed() bool {
	return r.SceneAnalysis.Usable()
}

func (r *Report) warn(logger *zerolog.Logger, msg string) {
	logger.Warn().Msg(msg)
	r.Warnings = append(r.Warnings, msg)
}

// OperationEntry pairs a report key with the result of one operation.
type OperationEntry struct {
	Key    string
	Result operation.Result
}

// OperationResults keeps results in execution order and marshals to a
// JSON object whose keys follow that order.
type OperationResults []OperationEntry

// Get returns the result stored under key.
func (o OperationResults) Get(key string) (operation.Result, bool) {
	for _, e := range o {
		if e.Key == key {
			return e.Result, true
		}
	}
	return operation.Result{}, false
}

// Keys returns the report keys in execution order.
func (o OperationResults) Keys() []string {
	keys := make([]string, len(o))
	for i, e := range o {
		keys[i] = e.Key
	}
	return keys
}

func (o OperationResults) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.Result)
		if err != nil {
			return nil, fmt.Errorf("marshal %s result: %w", e.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (o *OperationResults) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*o = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("operations: expected object")
	}
	var out OperationResults
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var res operation.Result
		if err := dec.Decode(&res); err != nil {
			return fmt.Errorf("operations[%s]: %w", key, err)
		}
		out = append(out, OperationEntry{Key: key, Result: res})
	}
	*o = out
	return nil
}

// WriteReport writes r as indented JSON to path. Paths ending in ".zst"
// are zstd-compressed.
func WriteReport(path string, r *Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if strings.HasSuffix(path, ".zst") {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return fmt.Errorf("create zstd encoder: %w", err)
		}
		data = enc.EncodeAll(data, nil)
		enc.Close()
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// ReadReport reads a report written by WriteReport.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("create zstd decoder: %w", err)
		}
		defer dec.Close()
		if data, err = dec.DecodeAll(data, nil); err != nil {
			return nil, fmt.Errorf("decompress report: %w", err)
		}
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}
	r.Duration = time.Duration(r.DurationSeconds * float64(time.Second))
	return &r, nil
}
