package preset

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestBuiltinsLoaded(t *testing.T) {
	want := []string{"standard", "light", "heavy", "web", "cinema", "archival"}
	if diff := cmp.Diff(want, builtinOrder); diff != "" {
		t.Errorf("builtin order mismatch (-want +got):\n%s", diff)
	}
	for _, id := range want {
		if !IsBuiltIn(id) {
			t.Errorf("IsBuiltIn(%q) = false, want true", id)
		}
	}
}

func TestResolve_StandardDenoise(t *testing.T) {
	s := NewStore(nil)
	got := s.Resolve("denoise", "standard", nil)
	want := Params{"strength": 0.5, "preserve_details": true, "temporal": true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_ReturnsStoredEntryUnmodified(t *testing.T) {
	s := NewStore(nil)
	for _, p := range s.List() {
		for op, params := range p.Operations {
			got := s.Resolve(op, p.ID, nil)
			if diff := cmp.Diff(params, got); diff != "" {
				t.Errorf("Resolve(%s, %s) mismatch (-want +got):\n%s", op, p.ID, diff)
			}
		}
	}
}

func TestResolve_MissingOperationIsEmpty(t *testing.T) {
	s := NewStore(nil)
	got := s.Resolve("stabilize", "web", nil)
	if got == nil || len(got) != 0 {
		t.Errorf("Resolve(stabilize, web) = %v, want empty set", got)
	}
}

func TestResolve_UnknownPresetFallsBack(t *testing.T) {
	s := NewStore(nil)
	got := s.Resolve("denoise", "nonexistent", nil)
	want := s.Resolve("denoise", "standard", nil)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("fallback mismatch (-want +got):\n%s", diff)
	}

	id, fellBack := s.ResolvePreset("nonexistent")
	if id != DefaultID || !fellBack {
		t.Errorf("ResolvePreset() = (%q, %v), want (%q, true)", id, fellBack, DefaultID)
	}
	if id, fellBack := s.ResolvePreset(""); id != DefaultID || fellBack {
		t.Errorf("ResolvePreset(\"\") = (%q, %v), want (%q, false)", id, fellBack, DefaultID)
	}
}

func TestResolve_OverrideMerge(t *testing.T) {
	s := NewStore(nil)
	overrides := Overrides{"denoise": {"strength": 0.9, "extra": "x"}}
	before := Overrides{"denoise": {"strength": 0.9, "extra": "x"}}

	once := s.Resolve("denoise", "standard", overrides)
	want := Params{"strength": 0.9, "preserve_details": true, "temporal": true, "extra": "x"}
	if diff := cmp.Diff(want, once); diff != "" {
		t.Errorf("merged mismatch (-want +got):\n%s", diff)
	}

	twice := once.Merge(overrides["denoise"])
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("merge not idempotent (-once +twice):\n%s", diff)
	}

	if diff := cmp.Diff(before, overrides); diff != "" {
		t.Errorf("overrides mutated (-before +after):\n%s", diff)
	}
}

func TestResolve_BuiltinsImmutable(t *testing.T) {
	s := NewStore(nil)
	got := s.Resolve("denoise", "standard", nil)
	got["strength"] = 0.0

	p, _ := s.Get("standard")
	p.Operations["denoise"]["strength"] = 0.1

	again := s.Resolve("denoise", "standard", nil)
	if again.Float("strength", -1) != 0.5 {
		t.Errorf("standard denoise strength = %v after mutation, want 0.5", again["strength"])
	}
}

type memRepo struct {
	items   map[string]Preset
	failPut bool
}

func (m *memRepo) ListPresets(context.Context) ([]Preset, error) {
	var out []Preset
	for _, p := range m.items {
		out = append(out, p)
	}
	return out, nil
}

func (m *memRepo) PutPreset(_ context.Context, p Preset) error {
	if m.failPut {
		return errors.New("put failed")
	}
	m.items[p.ID] = p
	return nil
}

func (m *memRepo) DeletePreset(_ context.Context, id string) error {
	delete(m.items, id)
	return nil
}

func TestStore_CustomLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := &memRepo{items: map[string]Preset{}}
	s := NewStore(repo)

	created, err := s.Create(ctx, Preset{
		Name:       "My Look",
		Operations: map[string]Params{"denoise": {"strength": 1}},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID != "my_look" {
		t.Errorf("created.ID = %q, want %q", created.ID, "my_look")
	}
	if _, ok := repo.items["my_look"]; !ok {
		t.Error("Create() did not write through to repository")
	}
	if got := s.Resolve("denoise", "my_look", nil); got["strength"] != 1.0 {
		t.Errorf("custom strength = %#v, want float64 1", got["strength"])
	}

	if _, err := s.Create(ctx, Preset{ID: "my_look"}); !errors.Is(err, ErrPresetExists) {
		t.Errorf("duplicate Create() error = %v, want ErrPresetExists", err)
	}

	ok, err := s.Update(ctx, "my_look", Preset{Operations: map[string]Params{"denoise": {"strength": 0.2}}})
	if err != nil || !ok {
		t.Fatalf("Update() = (%v, %v), want (true, nil)", ok, err)
	}
	if got := s.Resolve("denoise", "my_look", nil).Float("strength", 0); got != 0.2 {
		t.Errorf("updated strength = %v, want 0.2", got)
	}

	ok, err = s.Delete(ctx, "my_look")
	if err != nil || !ok {
		t.Fatalf("Delete() = (%v, %v), want (true, nil)", ok, err)
	}
	if _, found := s.Get("my_look"); found {
		t.Error("Get() found deleted preset")
	}
	if _, ok := repo.items["my_look"]; ok {
		t.Error("Delete() did not remove from repository")
	}
}

func TestStore_BuiltinAndUnknownWrites(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil)

	if _, err := s.Create(ctx, Preset{ID: "standard"}); !errors.Is(err, ErrBuiltInPreset) {
		t.Errorf("Create(standard) error = %v, want ErrBuiltInPreset", err)
	}

	tests := []struct {
		name string
		id   string
	}{
		{"builtin", "heavy"},
		{"unknown", "does_not_exist"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if ok, err := s.Update(ctx, tt.id, Preset{}); ok || err != nil {
				t.Errorf("Update(%q) = (%v, %v), want (false, nil)", tt.id, ok, err)
			}
			if ok, err := s.Delete(ctx, tt.id); ok || err != nil {
				t.Errorf("Delete(%q) = (%v, %v), want (false, nil)", tt.id, ok, err)
			}
		})
	}
}

func TestStore_CreatePersistFailure(t *testing.T) {
	s := NewStore(&memRepo{items: map[string]Preset{}, failPut: true})
	if _, err := s.Create(context.Background(), Preset{Name: "x"}); err == nil {
		t.Fatal("Create() error = nil, want persistence error")
	}
	if _, ok := s.Get("x"); ok {
		t.Error("preset kept in memory after failed persist")
	}
}

// slowRepo blocks PutPreset until release is closed.
type slowRepo struct {
	memRepo
	entered chan struct{}
	release chan struct{}
}

func (r *slowRepo) PutPreset(ctx context.Context, p Preset) error {
	close(r.entered)
	<-r.release
	return r.memRepo.PutPreset(ctx, p)
}

func TestStore_LookupsDoNotWaitOnPersistence(t *testing.T) {
	repo := &slowRepo{
		memRepo: memRepo{items: map[string]Preset{}},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := NewStore(repo)

	created := make(chan error, 1)
	go func() {
		_, err := s.Create(context.Background(), Preset{Name: "Slow"})
		created <- err
	}()
	<-repo.entered

	looked := make(chan int, 1)
	go func() {
		s.Get("slow")
		s.ResolvePreset("slow")
		looked <- len(s.List())
	}()
	select {
	case n := <-looked:
		if n != len(builtinOrder) {
			t.Errorf("List() during persist = %d presets, want %d", n, len(builtinOrder))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("lookups blocked while the repository write was in flight")
	}

	close(repo.release)
	if err := <-created; err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, ok := s.Get("slow"); !ok {
		t.Error("Get(slow) = false after Create returned")
	}
}

func TestStore_LoadCustomSkipsBuiltinIDs(t *testing.T) {
	repo := &memRepo{items: map[string]Preset{
		"standard": {ID: "standard", Operations: map[string]Params{"denoise": {"strength": 0.0}}},
		"night":    {ID: "night", Name: "Night"},
	}}
	s := NewStore(repo)
	if err := s.LoadCustom(context.Background()); err != nil {
		t.Fatalf("LoadCustom() error = %v", err)
	}
	if got := s.Resolve("denoise", "standard", nil).Float("strength", 0); got != 0.5 {
		t.Errorf("standard strength = %v, want 0.5", got)
	}
	if _, ok := s.Get("night"); !ok {
		t.Error("custom preset night not loaded")
	}
}

func TestDeriveID(t *testing.T) {
	if got := DeriveID("Low Light Fix"); got != "low_light_fix" {
		t.Errorf("DeriveID() = %q, want %q", got, "low_light_fix")
	}
	got := DeriveID("  ")
	if !strings.HasPrefix(got, "custom_") || len(got) != len("custom_")+8 {
		t.Errorf("DeriveID(blank) = %q, want custom_<8 chars>", got)
	}
}

func TestOverrides_ParseAssignment(t *testing.T) {
	o := Overrides{}
	for _, s := range []string{"denoise.strength=0.8", "denoise.temporal=false", "color_correct.white_balance=3200K", "stabilize.strength=1"} {
		if err := o.ParseAssignment(s); err != nil {
			t.Fatalf("ParseAssignment(%q) error = %v", s, err)
		}
	}
	want := Overrides{
		"denoise":       {"strength": 0.8, "temporal": false},
		"color_correct": {"white_balance": "3200K"},
		"stabilize":     {"strength": 1.0},
	}
	if diff := cmp.Diff(want, o); diff != "" {
		t.Errorf("overrides mismatch (-want +got):\n%s", diff)
	}

	for _, bad := range []string{"denoise", "strength=1", ".x=1"} {
		if err := o.ParseAssignment(bad); err == nil {
			t.Errorf("ParseAssignment(%q) error = nil, want error", bad)
		}
	}
}
