package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/fpang/postrender/internal/preset"
)

// FileStore keeps custom presets in a single YAML document on disk.
// The file uses the same layout as the embedded built-in table.
type FileStore struct {
	mu   sync.Mutex
	path string
}

type presetDoc struct {
	Presets []preset.Preset `yaml:"presets"`
}

// NewFileStore returns a FileStore backed by path. The file is created on
// first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) read() (map[string]preset.Preset, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]preset.Preset{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read preset file: %w", err)
	}

	var doc presetDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse preset file %s: %w", s.path, err)
	}
	out := make(map[string]preset.Preset, len(doc.Presets))
	for _, p := range doc.Presets {
		out[p.ID] = p
	}
	return out, nil
}

// write replaces the file atomically via a temp file in the same directory.
func (s *FileStore) write(presets map[string]preset.Preset) error {
	ids := make([]string, 0, len(presets))
	for id := range presets {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	doc := presetDoc{Presets: make([]preset.Preset, 0, len(ids))}
	for _, id := range ids {
		doc.Presets = append(doc.Presets, presets[id])
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode presets: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create preset dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".presets-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp preset file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp preset file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp preset file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace preset file: %w", err)
	}
	return nil
}

// ListPresets returns the presets in the file sorted by id.
func (s *FileStore) ListPresets(_ context.Context) ([]preset.Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	presets, err := s.read()
	if err != nil {
		return nil, err
	}
	out := make([]preset.Preset, 0, len(presets))
	for _, p := range presets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// PutPreset creates or replaces a preset in the file.
func (s *FileStore) PutPreset(_ context.Context, p preset.Preset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	presets, err := s.read()
	if err != nil {
		return err
	}
	presets[p.ID] = p
	return s.write(presets)
}

// DeletePreset removes a preset from the file. Missing ids are ignored.
func (s *FileStore) DeletePreset(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	presets, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := presets[id]; !ok {
		return nil
	}
	delete(presets, id)
	return s.write(presets)
}
