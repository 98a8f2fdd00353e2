package statetree

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	opts = append(opts, WithMaintenanceInterval(0))
	s := New(opts...)
	t.Cleanup(s.Destroy)
	return s
}

func mustSet(t *testing.T, s *Store, path string, value any) {
	t.Helper()
	if err := s.Set(path, value); err != nil {
		t.Fatalf("set %q: %v", path, err)
	}
}

func TestSetGetAutoVivifies(t *testing.T) {
	s := newTestStore(t)
	mustSet(t, s, "user.profile.name", "Ann")

	if got := s.Get("user.profile.name"); got != "Ann" {
		t.Fatalf("expected Ann, got %v", got)
	}
	profile, ok := s.Get("user.profile").(map[string]any)
	if !ok || profile["name"] != "Ann" {
		t.Fatalf("expected intermediate map, got %#v", s.Get("user.profile"))
	}
	if s.Get("user.missing") != nil {
		t.Fatalf("expected nil for absent path")
	}
}

func TestSetOverwritesScalarBranch(t *testing.T) {
	s := newTestStore(t)
	mustSet(t, s, "a", 1)
	mustSet(t, s, "a.b", 2)

	if got := s.Get("a.b"); got != 2 {
		t.Fatalf("expected 2, got %v", got)
	}
	if _, ok := s.Get("a").(map[string]any); !ok {
		t.Fatalf("expected a to become a map, got %T", s.Get("a"))
	}
}

func TestSetIdenticalValueIsNoop(t *testing.T) {
	s := newTestStore(t)
	calls := 0
	s.Watch("x", func(_, _ any, _ string) { calls++ })

	mustSet(t, s, "x", map[string]any{"k": []any{1, 2}})
	mustSet(t, s, "x", map[string]any{"k": []any{1, 2}})
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mustSet(t, s, "t", at)
	mustSet(t, s, "t", at.In(time.FixedZone("x", 3600)))
	s.Flush()

	if calls != 1 {
		t.Fatalf("expected a single notification, got %d", calls)
	}
	if n := len(s.ChangeHistory(0)); n != 2 {
		t.Fatalf("expected 2 history entries, got %d", n)
	}
}

func TestSetStoresCopies(t *testing.T) {
	s := newTestStore(t)
	input := map[string]any{"tags": []any{"a"}}
	mustSet(t, s, "item", input)

	input["tags"].([]any)[0] = "changed"
	input["extra"] = true

	stored := s.Get("item").(map[string]any)
	if stored["tags"].([]any)[0] != "a" {
		t.Fatalf("expected stored copy, got %v", stored["tags"])
	}
	if _, ok := stored["extra"]; ok {
		t.Fatalf("expected stored copy to ignore new keys")
	}
}

func TestHasAndLookupDistinguishNil(t *testing.T) {
	s := newTestStore(t)
	mustSet(t, s, "empty", nil)

	if s.Has("empty") {
		t.Fatalf("expected Has to treat stored nil as absent")
	}
	if _, ok := s.Lookup("empty"); !ok {
		t.Fatalf("expected Lookup to find stored nil")
	}
	if _, ok := s.Lookup("nothing"); ok {
		t.Fatalf("expected Lookup to miss absent path")
	}
}

func TestGetAsAndGetClone(t *testing.T) {
	s := newTestStore(t)
	mustSet(t, s, "count", 3)
	mustSet(t, s, "cfg", map[string]any{"on": true})

	if v, ok := GetAs[int](s, "count"); !ok || v != 3 {
		t.Fatalf("expected 3, got %v %v", v, ok)
	}
	if _, ok := GetAs[string](s, "count"); ok {
		t.Fatalf("expected type mismatch to report false")
	}

	cloned := s.GetClone("cfg").(map[string]any)
	cloned["on"] = false
	if s.Get("cfg.on") != true {
		t.Fatalf("expected clone to be independent")
	}
}

func TestRemove(t *testing.T) {
	s := newTestStore(t)
	var gotNew, gotOld any = "unset", nil
	s.Watch("a.b", func(newValue, oldValue any, _ string) {
		gotNew, gotOld = newValue, oldValue
	})
	mustSet(t, s, "a.b", 1)
	if err := s.Remove("a.b"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := s.Remove("a.zzz"); err != nil {
		t.Fatalf("remove absent: %v", err)
	}
	s.Flush()

	if _, ok := s.Lookup("a.b"); ok {
		t.Fatalf("expected a.b removed")
	}
	if gotNew != nil || gotOld != 1 {
		t.Fatalf("expected remove notification (nil, 1), got (%v, %v)", gotNew, gotOld)
	}
	history := s.ChangeHistory(0)
	if len(history) != 2 || !history[0].Removed {
		t.Fatalf("expected removal recorded, got %+v", history)
	}
}

func TestKeysAreSortedLeaves(t *testing.T) {
	s := newTestStore(t, WithInitialState(map[string]any{
		"b": 1,
		"a": map[string]any{"y": 2, "x": map[string]any{}},
	}))

	want := []string{"a.x", "a.y", "b"}
	if got := s.Keys(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestKeysDepthBound(t *testing.T) {
	cfg := DefaultConfig()
	cfg.KeysDepth = 2
	s := newTestStore(t, WithConfig(cfg))
	mustSet(t, s, "a.b.c.d", 1)

	want := []string{"a.b"}
	if got := s.Keys(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestDescribeReportsTypes(t *testing.T) {
	s := newTestStore(t)
	mustSet(t, s, "name", "x")
	mustSet(t, s, "list", []any{1.5})
	mustSet(t, s, "flag", true)

	got := map[string]string{}
	for _, d := range s.Describe() {
		got[d.Path] = d.Type
	}
	want := map[string]string{"flag": "bool", "list": "[]float64", "name": "string"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestClearKeepsWatchers(t *testing.T) {
	s := newTestStore(t)
	calls := 0
	s.Watch("a", func(_, _ any, _ string) { calls++ })
	mustSet(t, s, "a", 1)
	if err := s.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if len(s.Keys()) != 0 || len(s.ChangeHistory(0)) != 0 {
		t.Fatalf("expected empty tree and history")
	}
	mustSet(t, s, "a", 2)
	s.Flush()
	if calls != 2 {
		t.Fatalf("expected watcher to survive Clear, got %d calls", calls)
	}
}

func TestDestroy(t *testing.T) {
	s := New(WithMaintenanceInterval(time.Hour))
	mustSet(t, s, "a", 1)
	s.Destroy()
	s.Destroy()

	if err := s.Set("a", 2); !errors.Is(err, ErrDestroyed) {
		t.Fatalf("expected ErrDestroyed, got %v", err)
	}
	if err := s.Remove("a"); !errors.Is(err, ErrDestroyed) {
		t.Fatalf("expected ErrDestroyed from Remove, got %v", err)
	}
	if err := s.Transaction(func() error { return nil }); !errors.Is(err, ErrDestroyed) {
		t.Fatalf("expected ErrDestroyed from Transaction, got %v", err)
	}
	if s.Get("a") != nil || len(s.Snapshot()) != 0 || s.Undo() {
		t.Fatalf("expected zero reads after Destroy")
	}
	if !s.Stats().Destroyed {
		t.Fatalf("expected stats to report destroyed")
	}
	unwatch := s.Watch("a", func(_, _ any, _ string) {})
	unwatch()
}

func TestStringSummary(t *testing.T) {
	s := newTestStore(t)
	mustSet(t, s, "a.b", 1)
	if got := s.String(); !strings.Contains(got, "keys=1") {
		t.Fatalf("unexpected summary %q", got)
	}
}

func TestWithInitialStateIsCopied(t *testing.T) {
	initial := map[string]any{"a": map[string]any{"b": 1}}
	s := newTestStore(t, WithInitialState(initial))
	initial["a"].(map[string]any)["b"] = 2
	if s.Get("a.b") != 1 {
		t.Fatalf("expected initial state to be cloned")
	}
}

func TestInitialLayersMergeStrongestFirst(t *testing.T) {
	user := map[string]any{"ui": map[string]any{"theme": "dark"}}
	defaults := map[string]any{"ui": map[string]any{"theme": "light", "size": 12}, "lang": "en"}
	s := newTestStore(t, WithInitialLayers(user, defaults))

	if s.Get("ui.theme") != "dark" || s.Get("ui.size") != 12 || s.Get("lang") != "en" {
		t.Fatalf("unexpected merged tree %v", s.Snapshot())
	}
	mustSet(t, s, "ui.size", 14)
	if defaults["ui"].(map[string]any)["size"] != 12 {
		t.Fatalf("expected layers left untouched")
	}
}
