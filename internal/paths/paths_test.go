package paths

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompileSegments(t *testing.T) {
	cases := []struct {
		in   string
		want []string
		key  string
	}{
		{in: "user", want: []string{"user"}, key: "user"},
		{in: "user.profile.name", want: []string{"user", "profile", "name"}, key: "user.profile.name"},
		{in: "a..b", want: []string{"a", "b"}, key: "a.b"},
		{in: "a.", want: []string{"a"}, key: "a"},
		{in: "", want: []string{""}, key: ""},
		{in: ".", want: []string{""}, key: ""},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got := Compile(tc.in)
			require.Equal(t, tc.want, got.Segments())
			require.Equal(t, len(tc.want), got.Len())
			require.Equal(t, tc.key, got.String())
		})
	}
}

func TestCompilerIsIdempotent(t *testing.T) {
	c := NewCompiler(10)
	first := c.Compile("a.b.c")
	second := c.Compile("a.b.c")
	require.Equal(t, first.Segments(), second.Segments())
	require.Equal(t, 1, c.Len())

	// single-segment paths bypass the cache
	c.Compile("plain")
	require.Equal(t, 1, c.Len())
}

func TestCompilerEvictsOldestHalf(t *testing.T) {
	c := NewCompiler(4)
	for i := 0; i < 4; i++ {
		c.Compile(fmt.Sprintf("k.%d", i))
	}
	require.Equal(t, 4, c.Len())

	c.Compile("k.4")
	require.Equal(t, 3, c.Len())

	c.mu.Lock()
	_, hasOldest := c.cache["k.0"]
	_, hasNewest := c.cache["k.4"]
	c.mu.Unlock()
	require.False(t, hasOldest)
	require.True(t, hasNewest)

	// evicted entries recompile to the same segments
	require.Equal(t, []string{"k", "0"}, c.Compile("k.0").Segments())
}

func TestAncestry(t *testing.T) {
	require.True(t, IsAncestor("a", "a.b"))
	require.True(t, IsAncestor("a.b", "a.b.c"))
	require.False(t, IsAncestor("a", "ab"))
	require.False(t, IsAncestor("a.b", "a.b"))
	require.False(t, IsAncestor("", "a"))

	require.True(t, Related("a.b", "a"))
	require.True(t, Related("a", "a.b"))
	require.True(t, Related("a", "a"))
	require.False(t, Related("a.b", "a.c"))

	require.Equal(t, []string{"a", "a.b"}, Ancestors(Compile("a.b.c")))
	require.Nil(t, Ancestors(Compile("a")))
}

func TestJoin(t *testing.T) {
	require.Equal(t, "ns.key", Join("ns", "key"))
	require.Equal(t, "key", Join("", "key"))
	require.Equal(t, "a.b.c", Join("a", "b", "c"))
	require.Equal(t, "", Join())
}

func TestDescendantBounds(t *testing.T) {
	lo, hi := DescendantBounds("a")
	for _, key := range []string{"a.b", "a.b.c", "a.z"} {
		require.True(t, key >= lo && key < hi, key)
	}
	for _, key := range []string{"a", "ab", "a/"} {
		require.False(t, key >= lo && key < hi, key)
	}
}
