package namespace

import (
	"bytes"
	"strings"
)

// Separator is the path component separator.
const Separator = "/"

// GetPathNames splits an absolute path into its component names. The path
// must start with Separator; empty components produced by repeated or
// trailing separators are dropped, so GetPathNames("/") returns an empty
// slice.
func GetPathNames(path string) ([]string, error) {
	if !strings.HasPrefix(path, Separator) {
		return nil, &InvalidPathError{Path: path, Reason: "absolute path required"}
	}
	parts := strings.Split(path, Separator)
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			names = append(names, p)
		}
	}
	return names, nil
}

// GetPathComponents splits an absolute path into byte-sequence components.
// The first component is always the empty root name, so that
// ConstructPath(components, 0, len(components)) round-trips the input.
func GetPathComponents(path string) ([][]byte, error) {
	names, err := GetPathNames(path)
	if err != nil {
		return nil, err
	}
	components := make([][]byte, 0, len(names)+1)
	components = append(components, []byte{}) // root
	for _, name := range names {
		components = append(components, []byte(name))
	}
	return components, nil
}

// ConstructPath joins components[start:end] with the path separator.
func ConstructPath(components [][]byte, start, end int) string {
	var buf strings.Builder
	for i := start; i < end; i++ {
		buf.Write(components[i])
		if i < end-1 {
			buf.WriteString(Separator)
		}
	}
	return buf.String()
}

// CompareBytes is the component ordering used throughout the tree: unsigned
// lexicographic byte comparison, independent of text encoding. nil compares
// as the empty byte sequence.
func CompareBytes(a, b []byte) int {
	return bytes.Compare(a, b)
}
