package statetree

import (
	"errors"
	"reflect"
	"regexp"
	"testing"
	"time"
)

func TestSnapshotRoundTrip(t *testing.T) {
	s := newTestStore(t)
	at := time.Date(2024, 4, 4, 0, 0, 0, 0, time.UTC)
	mustSet(t, s, "user", map[string]any{
		"name":    "Ann",
		"tags":    []any{"a", "b"},
		"created": at,
		"pattern": regexp.MustCompile(`^a+$`),
	})

	snap := s.Snapshot()
	other := newTestStore(t)
	if err := other.Restore(snap); err != nil {
		t.Fatalf("restore: %v", err)
	}

	if !reflect.DeepEqual(other.Get("user.tags"), []any{"a", "b"}) {
		t.Fatalf("unexpected tags %v", other.Get("user.tags"))
	}
	if got, _ := other.Get("user.created").(time.Time); !got.Equal(at) {
		t.Fatalf("expected time preserved, got %v", other.Get("user.created"))
	}
	re, ok := other.Get("user.pattern").(*regexp.Regexp)
	if !ok || re.String() != `^a+$` || re == s.Get("user.pattern") {
		t.Fatalf("expected recompiled regexp, got %v", other.Get("user.pattern"))
	}
}

func TestSnapshotIsIndependent(t *testing.T) {
	s := newTestStore(t)
	mustSet(t, s, "a.b", []any{1})

	snap := s.Snapshot()
	snap["a"].(map[string]any)["b"].([]any)[0] = 99
	snap["new"] = true

	if s.Get("a.b").([]any)[0] != 1 || s.Has("new") {
		t.Fatalf("expected snapshot mutation to leave store untouched")
	}

	tree := map[string]any{"x": map[string]any{"y": 1}}
	if err := s.Restore(tree); err != nil {
		t.Fatalf("restore: %v", err)
	}
	tree["x"].(map[string]any)["y"] = 2
	if s.Get("x.y") != 1 {
		t.Fatalf("expected Restore to copy its argument")
	}
}

func TestRestoreRejectsNil(t *testing.T) {
	s := newTestStore(t)
	if err := s.Restore(nil); !errors.Is(err, ErrInvalidSnapshot) {
		t.Fatalf("expected ErrInvalidSnapshot, got %v", err)
	}
}

func TestRestoreKeepsHistoryAndSkipsWatchers(t *testing.T) {
	s := newTestStore(t)
	mustSet(t, s, "a", 1)
	rec := &recorder{}
	s.Watch("a", rec.fn)

	if err := s.Restore(map[string]any{"a": 2}); err != nil {
		t.Fatalf("restore: %v", err)
	}
	s.Flush()
	if rec.len() != 0 {
		t.Fatalf("expected no notification on restore, got %d", rec.len())
	}
	if len(s.ChangeHistory(0)) != 1 {
		t.Fatalf("expected history kept")
	}
}

func TestSnapshotHandlesSharedAndCyclicValues(t *testing.T) {
	s := newTestStore(t)
	shared := map[string]any{"v": 1}
	cyclic := map[string]any{"name": "loop"}
	cyclic["self"] = cyclic
	mustSet(t, s, "pair", map[string]any{"left": shared, "right": shared})
	mustSet(t, s, "cycle", cyclic)

	snap := s.Snapshot()
	pair := snap["pair"].(map[string]any)
	left := pair["left"].(map[string]any)
	right := pair["right"].(map[string]any)
	left["v"] = 2
	if right["v"] != 2 {
		t.Fatalf("expected shared reference preserved in the copy")
	}
	loop := snap["cycle"].(map[string]any)
	if reflect.ValueOf(loop["self"]).Pointer() != reflect.ValueOf(loop).Pointer() {
		t.Fatalf("expected cycle re-linked in the copy")
	}
}

func TestStats(t *testing.T) {
	s := newTestStore(t)
	mustSet(t, s, "a.b", "hello")
	mustSet(t, s, "a.c", []any{1, 2})
	s.Watch("a.b", func(_, _ any, _ string) {})

	stats := s.Stats()
	if stats.Keys != 2 || stats.WatchedPaths != 1 || stats.Handlers != 1 {
		t.Fatalf("unexpected counts %+v", stats)
	}
	if stats.HistoryLength != 2 || stats.CompiledPaths == 0 {
		t.Fatalf("unexpected history or compiler stats %+v", stats)
	}
	if stats.MemoryBytes <= 0 || stats.Destroyed {
		t.Fatalf("unexpected memory stats %+v", stats)
	}
}
