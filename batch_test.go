package statetree

import (
	"reflect"
	"testing"
)

func TestBatchSetCoalescesNotifications(t *testing.T) {
	s := newTestStore(t)
	mustSet(t, s, "a", 0)
	recA, recB := &recorder{}, &recorder{}
	s.Watch("a", recA.fn)
	s.Watch("b", recB.fn)

	err := s.BatchSet([]Update{
		{Path: "a", Value: 1},
		{Path: "b", Value: "x"},
		{Path: "a", Value: 2},
		{Path: "a", Value: 3},
	})
	if err != nil {
		t.Fatalf("batch set: %v", err)
	}
	s.Flush()

	if recA.len() != 1 {
		t.Fatalf("expected a to fire once, got %d", recA.len())
	}
	if got := recA.last(); got.newValue != 3 || got.oldValue != 0 {
		t.Fatalf("expected (3, 0), got %+v", got)
	}
	if recB.len() != 1 {
		t.Fatalf("expected b to fire once, got %d", recB.len())
	}
	if n := len(s.ChangeHistory(0)); n != 5 {
		t.Fatalf("expected every write recorded, got %d", n)
	}
}

func TestBatchSetSkipsNetUnchangedPaths(t *testing.T) {
	s := newTestStore(t)
	mustSet(t, s, "a", 1)
	rec := &recorder{}
	s.Watch("a", rec.fn)

	if err := s.BatchSet([]Update{{Path: "a", Value: 2}, {Path: "a", Value: 1}}); err != nil {
		t.Fatalf("batch set: %v", err)
	}
	s.Flush()
	if rec.len() != 0 {
		t.Fatalf("expected no delivery for net-unchanged path, got %d", rec.len())
	}
}

func TestBatchSetWithoutNotify(t *testing.T) {
	s := newTestStore(t)
	rec := &recorder{}
	s.Watch("a", rec.fn)

	if err := s.BatchSet([]Update{{Path: "a", Value: 1}}, WithoutNotify()); err != nil {
		t.Fatalf("batch set: %v", err)
	}
	s.Flush()
	if rec.len() != 0 {
		t.Fatalf("expected silent batch, got %d deliveries", rec.len())
	}
	if s.Get("a") != 1 {
		t.Fatalf("expected value written")
	}
}

func TestBatchGetOmitsAbsent(t *testing.T) {
	s := newTestStore(t)
	mustSet(t, s, "a", 1)
	mustSet(t, s, "b.c", 2)

	got := s.BatchGet([]string{"a", "b.c", "missing"})
	want := map[string]any{"a": 1, "b.c": 2}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestBatchRemove(t *testing.T) {
	s := newTestStore(t)
	mustSet(t, s, "a", 1)
	mustSet(t, s, "b", 2)
	rec := &recorder{}
	s.Watch("a", rec.fn)

	if err := s.BatchRemove([]string{"a", "b", "a", "zzz"}); err != nil {
		t.Fatalf("batch remove: %v", err)
	}
	s.Flush()

	if len(s.Keys()) != 0 {
		t.Fatalf("expected all removed, got %v", s.Keys())
	}
	if rec.len() != 1 || rec.last().newValue != nil || rec.last().oldValue != 1 {
		t.Fatalf("unexpected removal delivery %+v", rec.calls)
	}
}
