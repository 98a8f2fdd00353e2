package layering

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestMergeFromFixture(t *testing.T) {
	fx := loadMergeFixture(t, "merge_patches.json")

	for _, tc := range fx.Cases {
		tc := tc
		t.Run(tc.Name, func(t *testing.T) {
			got := Merge(tc.Patch, tc.Base)
			if !reflect.DeepEqual(tc.Expect, got) {
				t.Errorf("merged value mismatch:\nwant: %#v\n got: %#v", tc.Expect, got)
			}
		})
	}
}

func TestMergeDoesNotAliasInputs(t *testing.T) {
	base := map[string]any{"ui": map[string]any{"theme": "light"}}
	patch := map[string]any{"ui": map[string]any{"size": 1.0}}

	merged := Merge(patch, base).(map[string]any)
	merged["ui"].(map[string]any)["theme"] = "changed"

	if base["ui"].(map[string]any)["theme"] != "light" {
		t.Fatalf("base was modified through merged result")
	}
	if _, ok := patch["ui"].(map[string]any)["theme"]; ok {
		t.Fatalf("patch was modified by merge")
	}
}

func TestMergeLayersStructPointers(t *testing.T) {
	type settings struct {
		Enabled *bool
		Limits  map[string]int
		Tags    []string
	}
	on := true
	off := false

	got := MergeLayers(
		settings{Enabled: &on, Limits: map[string]int{"max": 5}},
		settings{Enabled: &off, Limits: map[string]int{"min": 1}, Tags: []string{"base"}},
	)
	if got.Enabled == nil || !*got.Enabled {
		t.Fatalf("expected strong Enabled to win, got %+v", got.Enabled)
	}
	if got.Limits["max"] != 5 || got.Limits["min"] != 1 {
		t.Fatalf("expected merged limits, got %+v", got.Limits)
	}
	if !reflect.DeepEqual(got.Tags, []string{"base"}) {
		t.Fatalf("expected weak tags to fill nil slice, got %+v", got.Tags)
	}
}

func TestMergeLayersZeroInput(t *testing.T) {
	type sample struct {
		Value int
	}
	var zero sample
	if got := MergeLayers[sample](); got != zero {
		t.Fatalf("expected MergeLayers() to return zero value, got %+v", got)
	}
}

type mergeFixture struct {
	Description string             `json:"description"`
	Cases       []mergeFixtureCase `json:"cases"`
}

type mergeFixtureCase struct {
	Name   string         `json:"name"`
	Base   map[string]any `json:"base"`
	Patch  map[string]any `json:"patch"`
	Expect map[string]any `json:"expect"`
}

func loadMergeFixture(t *testing.T, name string) mergeFixture {
	t.Helper()
	path := filepath.Join("testdata", name)
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read merge fixture %q: %v", name, err)
	}
	var fx mergeFixture
	if err := json.Unmarshal(raw, &fx); err != nil {
		t.Fatalf("failed to unmarshal merge fixture %q: %v", name, err)
	}
	return fx
}
