package namespace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPathNames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path string
		want []string
	}{
		{"root", "/", []string{}},
		{"simple", "/a/b/c", []string{"a", "b", "c"}},
		{"trailing separator", "/a/b/", []string{"a", "b"}},
		{"repeated separators", "//a///b", []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			names, err := GetPathNames(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestGetPathNames_Relative(t *testing.T) {
	t.Parallel()

	_, err := GetPathNames("a/b")
	var perr *InvalidPathError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "a/b", perr.Path)

	_, err = GetPathNames("")
	assert.ErrorAs(t, err, &perr)
}

func TestGetPathComponents_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, path := range []string{"/a/b/c", "/x"} {
		components, err := GetPathComponents(path)
		require.NoError(t, err)
		assert.Equal(t, path, ConstructPath(components, 0, len(components)))
	}
}

func TestGetPathComponents_RootComponent(t *testing.T) {
	t.Parallel()

	components, err := GetPathComponents("/a")
	require.NoError(t, err)
	require.Len(t, components, 2)
	assert.Empty(t, components[0], "first component is the empty root name")
	assert.Equal(t, []byte("a"), components[1])
}

func TestConstructPath_SubRange(t *testing.T) {
	t.Parallel()

	components, err := GetPathComponents("/a/b/c")
	require.NoError(t, err)
	assert.Equal(t, "a/b", ConstructPath(components, 1, 3))
}

func TestCompareBytes(t *testing.T) {
	t.Parallel()

	assert.Negative(t, CompareBytes([]byte("a"), []byte("b")))
	assert.Positive(t, CompareBytes([]byte("b"), []byte("a")))
	assert.Zero(t, CompareBytes([]byte("a"), []byte("a")))
	assert.Negative(t, CompareBytes(nil, []byte("a")), "nil orders as the empty sequence")
	// unsigned comparison: high bytes sort after ASCII
	assert.Negative(t, CompareBytes([]byte("a"), []byte{0xff}))
}
