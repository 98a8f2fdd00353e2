package clone

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profile struct {
	Name    string
	Tags    []string
	Friends []*profile
	secret  string
}

func TestValueCopiesNestedAggregates(t *testing.T) {
	src := map[string]any{
		"user": map[string]any{
			"name":  "ada",
			"langs": []any{"go", "ml"},
		},
	}

	out := Value(src, Limits{}).(map[string]any)
	user := out["user"].(map[string]any)
	user["name"] = "grace"
	user["langs"].([]any)[0] = "c"

	assert.Equal(t, "ada", src["user"].(map[string]any)["name"])
	assert.Equal(t, "go", src["user"].(map[string]any)["langs"].([]any)[0])
}

func TestValuePreservesCycles(t *testing.T) {
	node := map[string]any{"name": "root"}
	node["self"] = node

	out := Value(node, Limits{}).(map[string]any)
	self := out["self"].(map[string]any)
	self["name"] = "changed"

	assert.Equal(t, "changed", out["name"], "cycle re-linked to the copy")
	assert.Equal(t, "root", node["name"])
}

func TestValuePointerCycleInStruct(t *testing.T) {
	a := &profile{Name: "a", Tags: []string{"x"}, secret: "s"}
	b := &profile{Name: "b", Friends: []*profile{a}}
	a.Friends = []*profile{b}

	out := Value(a, Limits{}).(*profile)
	require.NotSame(t, a, out)
	require.Len(t, out.Friends, 1)
	require.NotSame(t, b, out.Friends[0])
	assert.Same(t, out, out.Friends[0].Friends[0])
	assert.Equal(t, "s", out.secret)

	out.Tags[0] = "y"
	assert.Equal(t, "x", a.Tags[0])
}

func TestValueStructInInterface(t *testing.T) {
	src := map[string]any{"p": profile{Name: "p", Tags: []string{"t"}}}
	out := Value(src, Limits{}).(map[string]any)
	p := out["p"].(profile)
	p.Tags[0] = "changed"
	assert.Equal(t, "t", src["p"].(profile).Tags[0])
}

func TestValueAppliesLimits(t *testing.T) {
	list := make([]any, 10)
	for i := range list {
		list[i] = i
	}
	m := map[string]any{"d": 4, "a": 1, "c": 3, "b": 2}

	out := Value(map[string]any{"list": list, "m": m}, Limits{MaxElements: 3, MaxKeys: 2}).(map[string]any)
	assert.Equal(t, []any{0, 1, 2}, out["list"])
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, out["m"])
}

func TestValueSpecialTypes(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	re := regexp.MustCompile(`^a+$`)

	out := Value(map[string]any{"at": now, "re": re}, Limits{}).(map[string]any)
	assert.True(t, now.Equal(out["at"].(time.Time)))
	copied := out["re"].(*regexp.Regexp)
	assert.NotSame(t, re, copied)
	assert.Equal(t, re.String(), copied.String())
}

func TestStructuredCopiesJSONTrees(t *testing.T) {
	shared := []any{1, 2}
	src := map[string]any{
		"a":  shared,
		"b":  shared,
		"at": time.Unix(10, 0),
		"n":  nil,
	}

	out, err := Structured(src)
	require.NoError(t, err)
	m := out.(map[string]any)
	m["a"].([]any)[0] = 99
	assert.Equal(t, 99, m["b"].([]any)[0], "shared reference copied once")
	assert.Equal(t, 1, shared[0])
	assert.Nil(t, m["n"])
}

func TestStructuredRejectsUnknownTypes(t *testing.T) {
	_, err := Structured(map[string]any{"ch": make(chan int)})
	require.ErrorIs(t, err, ErrUnsupported)

	_, err = Structured(profile{})
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestStructuredCycles(t *testing.T) {
	list := []any{nil}
	list[0] = list
	out, err := Structured(list)
	require.NoError(t, err)
	copied := out.([]any)
	inner := copied[0].([]any)
	inner[0] = "x"
	assert.Equal(t, "x", copied[0])
}

func TestEqual(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(nil, 0))
	assert.True(t, Equal(1, 1))
	assert.False(t, Equal(1, int64(1)))
	assert.True(t, Equal(at, at.In(time.FixedZone("x", 3600))))
	assert.True(t, Equal(regexp.MustCompile("a"), regexp.MustCompile("a")))
	assert.True(t, Equal(map[string]any{"a": []any{1}}, map[string]any{"a": []any{1}}))
	assert.False(t, Equal(map[string]any{"a": 1}, map[string]any{"a": 2}))
}
