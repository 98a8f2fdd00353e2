package statetree

import (
	"testing"
	"time"
)

func TestUndoWalksBackLIFO(t *testing.T) {
	s := newTestStore(t)
	mustSet(t, s, "x", 1)
	mustSet(t, s, "x", 2)

	if !s.Undo() {
		t.Fatalf("expected first undo to succeed")
	}
	if got := s.Get("x"); got != 1 {
		t.Fatalf("expected 1 after first undo, got %v", got)
	}
	if !s.Undo() {
		t.Fatalf("expected second undo to succeed")
	}
	if _, ok := s.Lookup("x"); ok {
		t.Fatalf("expected x removed after undoing its creation")
	}
	if s.Undo() {
		t.Fatalf("expected undo on empty history to report false")
	}
}

func TestUndoNotifiesAndRestoresRemoval(t *testing.T) {
	s := newTestStore(t)
	rec := &recorder{}
	mustSet(t, s, "a", "kept")
	if err := s.Remove("a"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	s.Watch("a", rec.fn)

	if !s.Undo() {
		t.Fatalf("expected undo")
	}
	s.Flush()

	if s.Get("a") != "kept" {
		t.Fatalf("expected removal undone, got %v", s.Get("a"))
	}
	if rec.len() != 1 || rec.last().newValue != "kept" || rec.last().oldValue != nil {
		t.Fatalf("unexpected undo delivery %+v", rec.calls)
	}
}

func TestHistoryIsBounded(t *testing.T) {
	s := newTestStore(t, WithHistorySize(3))
	for i := 1; i <= 5; i++ {
		mustSet(t, s, "n", i)
	}

	history := s.ChangeHistory(0)
	if len(history) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(history))
	}
	if history[0].NewValue != 5 || history[2].NewValue != 3 {
		t.Fatalf("expected newest first 5..3, got %+v", history)
	}
	if got := s.ChangeHistory(1); len(got) != 1 || got[0].NewValue != 5 {
		t.Fatalf("expected limit to return newest, got %+v", got)
	}
	stats := s.Stats()
	if stats.HistoryLength != 3 || stats.HistoryCapacity != 3 {
		t.Fatalf("unexpected history stats %+v", stats)
	}
}

func TestChangeRecordsMetadata(t *testing.T) {
	at := time.Date(2024, 2, 2, 10, 0, 0, 0, time.UTC)
	s := newTestStore(t, WithClock(func() time.Time { return at }))
	mustSet(t, s, "a", 1)
	mustSet(t, s, "a", 2)

	ch := s.ChangeHistory(1)[0]
	if ch.Path != "a" || ch.OldValue != 1 || ch.NewValue != 2 || !ch.HadOld {
		t.Fatalf("unexpected change %+v", ch)
	}
	if !ch.Timestamp.Equal(at) {
		t.Fatalf("expected clock timestamp, got %v", ch.Timestamp)
	}
	if ch.TxID != "" {
		t.Fatalf("expected no tx id outside transactions, got %q", ch.TxID)
	}
}

func TestChangeJSONRoundTrip(t *testing.T) {
	ch := Change{
		Path:      "a.b",
		OldValue:  "x",
		NewValue:  map[string]any{"k": 1.0},
		HadOld:    true,
		Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		TxID:      "tx",
	}
	payload, err := ch.ToJSON()
	if err != nil {
		t.Fatalf("to json: %v", err)
	}
	got, err := ChangeFromJSON(payload)
	if err != nil {
		t.Fatalf("from json: %v", err)
	}
	if got.Path != ch.Path || got.OldValue != "x" || !got.HadOld || got.TxID != "tx" || !got.Timestamp.Equal(ch.Timestamp) {
		t.Fatalf("unexpected round trip %+v", got)
	}
	if got.NewValue.(map[string]any)["k"] != 1.0 {
		t.Fatalf("unexpected new value %v", got.NewValue)
	}
}

func TestMaintainPurgesExpiredHistory(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	s := newTestStore(t, WithClock(clock), WithHistoryMaxAge(time.Minute))

	mustSet(t, s, "old", 1)
	now = now.Add(2 * time.Minute)
	mustSet(t, s, "fresh", 1)

	unwatch := s.Watch("w", func(_, _ any, _ string) {})
	unwatch()

	report := s.Maintain()
	if report.ExpiredChanges != 1 {
		t.Fatalf("expected one expired change, got %+v", report)
	}
	history := s.ChangeHistory(0)
	if len(history) != 1 || history[0].Path != "fresh" {
		t.Fatalf("expected only fresh change left, got %+v", history)
	}
}

func TestClearHistory(t *testing.T) {
	s := newTestStore(t)
	mustSet(t, s, "a", 1)
	s.ClearHistory()
	if s.Undo() {
		t.Fatalf("expected nothing to undo")
	}
	if s.Get("a") != 1 {
		t.Fatalf("expected tree untouched")
	}
}

func TestChangeHistoryIsDetached(t *testing.T) {
	s := newTestStore(t)
	mustSet(t, s, "cfg", map[string]any{"x": 1})
	mustSet(t, s, "cfg.x", 2)

	history := s.ChangeHistory(0)
	first, ok := history[1].NewValue.(map[string]any)
	if !ok || first["x"] != 1 {
		t.Fatalf("expected first change frozen at {x:1}, got %v", history[1].NewValue)
	}

	first["x"] = 99
	if s.Get("cfg.x") != 2 {
		t.Fatalf("expected tree untouched by history edits, got %v", s.Get("cfg.x"))
	}
	again := s.ChangeHistory(0)[1].NewValue.(map[string]any)
	if again["x"] != 1 {
		t.Fatalf("expected recorded change untouched, got %v", again)
	}
}

func TestUndoRestoresCopy(t *testing.T) {
	s := newTestStore(t)
	mustSet(t, s, "cfg", map[string]any{"x": 1})
	mustSet(t, s, "cfg", "flat")
	if !s.Undo() {
		t.Fatalf("expected undo")
	}
	mustSet(t, s, "cfg.x", 5)
	if !s.Undo() || s.Get("cfg.x") != 1 {
		t.Fatalf("expected second undo back to 1, got %v", s.Get("cfg.x"))
	}
	if !s.Undo() {
		t.Fatalf("expected undo of first set")
	}
	if _, ok := s.Lookup("cfg"); ok {
		t.Fatalf("expected cfg removed")
	}
}
