package namespace

// ContentKey selects which view of the tree a ContentCounts bucket
// aggregates: the live tree or state retained only by snapshots.
type ContentKey int

const (
	// ContentCurrent buckets entries reachable in the live tree
	ContentCurrent ContentKey = iota
	// ContentSnapshot buckets entries retained only by snapshots
	ContentSnapshot
)

// ContentCounts aggregates entry counts and sizes over a subtree.
type ContentCounts struct {
	FileCount      int64
	DirectoryCount int64
	SymlinkCount   int64
	Length         int64
	Diskspace      int64
}

// ContentCountsMap buckets ContentCounts by view so a single bottom-up pass
// yields both live and snapshot-retained summaries.
type ContentCountsMap struct {
	counts map[ContentKey]*ContentCounts
}

// NewContentCountsMap returns an empty counts map.
func NewContentCountsMap() *ContentCountsMap {
	return &ContentCountsMap{counts: make(map[ContentKey]*ContentCounts)}
}

// Counts returns the bucket for key, creating it on first use.
func (m *ContentCountsMap) Counts(key ContentKey) *ContentCounts {
	c, ok := m.counts[key]
	if !ok {
		c = &ContentCounts{}
		m.counts[key] = c
	}
	return c
}

// ContentSummary is the flattened live-view summary of a subtree, including
// the quotas of the node it was computed at.
type ContentSummary struct {
	Length         int64
	FileCount      int64
	DirectoryCount int64
	SymlinkCount   int64
	Diskspace      int64
	NsQuota        int64
	DsQuota        int64
}
