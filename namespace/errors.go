package namespace

import "fmt"

// InvalidVariantError is returned by the As* capability casts when a node is
// not the requested variant. It carries the node's detail string for
// diagnostics and is never silently coerced.
type InvalidVariantError struct {
	Want   string // variant that was requested, e.g. "file"
	Detail string // detail string of the offending node
}

func (e *InvalidVariantError) Error() string {
	return fmt.Sprintf("node is not a %s: %s", e.Want, e.Detail)
}

// Quota kinds reported by QuotaExceededError
const (
	QuotaKindNamespace = "namespace"
	QuotaKindDiskspace = "diskspace"
)

// QuotaExceededError is returned by quota propagation before any counter
// mutation commits. The directory that declares the violated quota raises it.
type QuotaExceededError struct {
	Kind  string // QuotaKindNamespace or QuotaKindDiskspace
	Path  string // local name of the quota-owning directory
	Quota int64  // the configured limit
	Count int64  // the count the rejected operation would have produced
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("%s quota exceeded on %q: quota=%d but count=%d",
		e.Kind, e.Path, e.Quota, e.Count)
}

// InvalidPathError is returned by the path codec for malformed input.
type InvalidPathError struct {
	Path   string
	Reason string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("invalid path %q: %s", e.Path, e.Reason)
}

// PathNotFoundError is returned when resolving a path that has no node.
type PathNotFoundError struct {
	Path string
}

func (e *PathNotFoundError) Error() string {
	return fmt.Sprintf("path does not exist: %s", e.Path)
}
