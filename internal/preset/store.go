// Package preset holds the built-in and custom preset tables and resolves
// the parameter set each operation runs with.
package preset

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// DefaultID is the preset used when a request names none or names an unknown one.
const DefaultID = "standard"

var (
	// ErrBuiltInPreset is returned when a write targets a built-in preset id.
	ErrBuiltInPreset = errors.New("built-in presets cannot be modified")
	// ErrPresetExists is returned by Create when a custom preset already has the id.
	ErrPresetExists = errors.New("preset already exists")
)

//go:embed presets.yaml
var builtinYAML []byte

// Preset is a named bundle of per-operation parameter sets.
type Preset struct {
	ID          string            `yaml:"id" json:"id" dynamodbav:"id"`
	Name        string            `yaml:"name" json:"name" dynamodbav:"name"`
	Description string            `yaml:"description,omitempty" json:"description,omitempty" dynamodbav:"description,omitempty"`
	Operations  map[string]Params `yaml:"operations" json:"operations" dynamodbav:"operations"`
	BuiltIn     bool              `yaml:"-" json:"built_in" dynamodbav:"-"`
}

// clone returns a deep copy so callers never share maps with the table.
func (p Preset) clone() Preset {
	out := p
	out.Operations = make(map[string]Params, len(p.Operations))
	for op, params := range p.Operations {
		out.Operations[op] = params.normalize()
	}
	return out
}

type presetFile struct {
	Presets []Preset `yaml:"presets"`
}

// builtins is parsed once at package init and never written afterwards.
var builtins, builtinOrder = mustLoadBuiltins()

func mustLoadBuiltins() (map[string]Preset, []string) {
	var f presetFile
	if err := yaml.Unmarshal(builtinYAML, &f); err != nil {
		panic(fmt.Sprintf("parse embedded presets.yaml: %v", err))
	}
	table := make(map[string]Preset, len(f.Presets))
	order := make([]string, 0, len(f.Presets))
	for _, p := range f.Presets {
		p.BuiltIn = true
		table[p.ID] = p.clone()
		order = append(order, p.ID)
	}
	if _, ok := table[DefaultID]; !ok {
		panic("embedded presets.yaml has no " + DefaultID + " preset")
	}
	return table, order
}

// IsBuiltIn reports whether id names a built-in preset.
func IsBuiltIn(id string) bool {
	_, ok := builtins[id]
	return ok
}

// Repository persists custom presets. Implementations live in internal/store.
type Repository interface {
	ListPresets(ctx context.Context) ([]Preset, error)
	PutPreset(ctx context.Context, p Preset) error
	DeletePreset(ctx context.Context, id string) error
}

// Store serves built-in and custom presets. It is safe for concurrent use.
// Writes are serialized on writeMu and call the repository without holding
// mu, so lookups never wait on storage.
type Store struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	custom  map[string]Preset
	repo    Repository
}

// NewStore creates a Store. repo may be nil, in which case custom presets
// live only in memory.
func NewStore(repo Repository) *Store {
	return &Store{custom: make(map[string]Preset), repo: repo}
}

// LoadCustom reads custom presets from the repository. Entries that collide
// with a built-in id are ignored.
func (s *Store) LoadCustom(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	presets, err := s.repo.ListPresets(ctx)
	if err != nil {
		return fmt.Errorf("list custom presets: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range presets {
		if IsBuiltIn(p.ID) {
			log.Warn().Str("preset", p.ID).Msg("Ignoring stored preset that shadows a built-in")
			continue
		}
		p.BuiltIn = false
		s.custom[p.ID] = p.clone()
	}
	log.Debug().Int("count", len(s.custom)).Msg("Custom presets loaded")
	return nil
}

func (s *Store) lookup(id string) (Preset, bool) {
	if p, ok := builtins[id]; ok {
		return p, true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.custom[id]
	return p, ok
}

// ResolvePreset returns the preset id that will actually be used for id,
// and whether that is a fallback to DefaultID because id is unknown.
func (s *Store) ResolvePreset(id string) (string, bool) {
	if id == "" {
		return DefaultID, false
	}
	if _, ok := s.lookup(id); ok {
		return id, false
	}
	return DefaultID, true
}

// Resolve returns the parameter set for operation under presetID with any
// overrides for that operation applied on top. Unknown presets fall back to
// DefaultID with a warning; a preset without an entry for the operation
// yields an empty set. Neither the stored preset nor overrides is modified.
func (s *Store) Resolve(operation, presetID string, overrides Overrides) Params {
	effective, fellBack := s.ResolvePreset(presetID)
	if fellBack {
		log.Warn().
			Str("preset", presetID).
			Str("fallback", effective).
			Msg("Unknown preset, using default")
	}

	p, _ := s.lookup(effective)
	base := p.Operations[operation].Clone()
	if over, ok := overrides[operation]; ok {
		return base.Merge(over)
	}
	return base
}

// Get returns a copy of the preset with the given id.
func (s *Store) Get(id string) (Preset, bool) {
	p, ok := s.lookup(id)
	if !ok {
		return Preset{}, false
	}
	return p.clone(), true
}

// List returns built-in presets in table order followed by custom presets
// sorted by id.
func (s *Store) List() []Preset {
	out := make([]Preset, 0, len(builtinOrder))
	for _, id := range builtinOrder {
		out = append(out, builtins[id].clone())
	}

	s.mu.RLock()
	ids := make([]string, 0, len(s.custom))
	for id := range s.custom {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		out = append(out, s.custom[id].clone())
	}
	s.mu.RUnlock()
	return out
}

// DeriveID builds a preset id from a display name: lower-cased with spaces
// replaced by underscores, or custom_<8 hex> when the name is blank.
func DeriveID(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "custom_" + uuid.NewString()[:8]
	}
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}

// Create adds a custom preset and returns it with its assigned id.
func (s *Store) Create(ctx context.Context, p Preset) (Preset, error) {
	if p.ID == "" {
		p.ID = DeriveID(p.Name)
	}
	if p.Name == "" {
		p.Name = p.ID
	}
	if IsBuiltIn(p.ID) {
		return Preset{}, fmt.Errorf("create %q: %w", p.ID, ErrBuiltInPreset)
	}
	p.BuiltIn = false
	p = p.clone()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, exists := s.customPreset(p.ID); exists {
		return Preset{}, fmt.Errorf("create %q: %w", p.ID, ErrPresetExists)
	}
	if s.repo != nil {
		if err := s.repo.PutPreset(ctx, p); err != nil {
			return Preset{}, fmt.Errorf("persist preset %q: %w", p.ID, err)
		}
	}
	s.mu.Lock()
	s.custom[p.ID] = p
	s.mu.Unlock()
	log.Info().Str("preset", p.ID).Msg("Custom preset created")
	return p.clone(), nil
}

// Update replaces the contents of a custom preset. It returns false for
// built-in and unknown ids.
func (s *Store) Update(ctx context.Context, id string, p Preset) (bool, error) {
	if IsBuiltIn(id) {
		return false, nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	existing, ok := s.customPreset(id)
	if !ok {
		return false, nil
	}
	p.ID = id
	p.BuiltIn = false
	if p.Name == "" {
		p.Name = existing.Name
	}
	p = p.clone()
	if s.repo != nil {
		if err := s.repo.PutPreset(ctx, p); err != nil {
			return false, fmt.Errorf("persist preset %q: %w", id, err)
		}
	}
	s.mu.Lock()
	s.custom[id] = p
	s.mu.Unlock()
	log.Info().Str("preset", id).Msg("Custom preset updated")
	return true, nil
}

// Delete removes a custom preset. It returns false for built-in and unknown ids.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	if IsBuiltIn(id) {
		return false, nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, ok := s.customPreset(id); !ok {
		return false, nil
	}
	if s.repo != nil {
		if err := s.repo.DeletePreset(ctx, id); err != nil {
			return false, fmt.Errorf("delete stored preset %q: %w", id, err)
		}
	}
	s.mu.Lock()
	delete(s.custom, id)
	s.mu.Unlock()
	log.Info().Str("preset", id).Msg("Custom preset deleted")
	return true, nil
}

func (s *Store) customPreset(id string) (Preset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.custom[id]
	return p, ok
}
