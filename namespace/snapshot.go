package namespace

import (
	"fmt"
	"sort"
)

// Snapshot is an immutable, totally ordered point-in-time view of the
// namespace tree. Newer snapshots have larger ids. A nil *Snapshot means
// "current state" for getters and "no snapshot taken" for the copy-on-write
// protocol.
type Snapshot struct {
	id   int
	name string
}

func newSnapshot(id int, name string) *Snapshot {
	return &Snapshot{id: id, name: name}
}

// ID returns the snapshot's identifier.
func (s *Snapshot) ID() int { return s.id }

// Name returns the snapshot's user-visible name.
func (s *Snapshot) Name() string { return s.name }

func (s *Snapshot) String() string {
	return fmt.Sprintf("snapshot#%d(%s)", s.id, s.name)
}

// snapshotID is the id of s, or noSnapshotID when s is nil.
const noSnapshotID = -1

func snapshotID(s *Snapshot) int {
	if s == nil {
		return noSnapshotID
	}
	return s.id
}

// attributes is the versioned attribute family shared by every variant.
// Captured wholesale into diff records by the copy-on-write protocol.
type attributes struct {
	owner string
	group string
	perm  Permission
	mtime int64 // ms since epoch
	atime int64 // ms since epoch
}

// Permission holds the permission bits of a node.
type Permission uint16

func (p Permission) String() string {
	return fmt.Sprintf("%04o", uint16(p))
}

// attrHistory is the per-variant snapshot diff storage contract for the
// attribute family: capture current state under a snapshot, and retrieve the
// state as of a snapshot.
type attrHistory interface {
	// attrAt returns the attribute state visible at snapshot s, or nil if no
	// diff record covers s (the current state applies).
	attrAt(s *Snapshot) *attributes
}

// attrDiff is one captured attribute record. The record captured under
// snapshot id X holds the state that was current when the first modification
// after X was applied, i.e. the state visible at X and every earlier
// snapshot back to the preceding diff.
type attrDiff struct {
	snapshotID int
	attr       attributes
}

// attrDiffList stores attrDiff records in ascending snapshot-id order. It is
// the whole diff mechanism for symlinks and the attribute half of the file
// and directory diff lists.
type attrDiffList struct {
	diffs []attrDiff
}

func (l *attrDiffList) attrAt(s *Snapshot) *attributes {
	if s == nil || l == nil {
		return nil
	}
	i := sort.Search(len(l.diffs), func(i int) bool {
		return l.diffs[i].snapshotID >= s.id
	})
	if i == len(l.diffs) {
		return nil
	}
	return &l.diffs[i].attr
}

// saveSelf captures cur under latest unless a record already covers it.
func (l *attrDiffList) saveSelf(latest *Snapshot, cur attributes) {
	if latest == nil {
		return
	}
	n := len(l.diffs)
	if n > 0 && l.diffs[n-1].snapshotID >= latest.id {
		return // already captured for this or a newer snapshot
	}
	l.diffs = append(l.diffs, attrDiff{snapshotID: latest.id, attr: cur})
}

// deleteDiff removes the record captured under snapshot id sid, if any, and
// reports whether a record was removed. When prior is non-nil the removed
// record's state is re-attributed to prior, keeping views at and before
// prior intact.
func (l *attrDiffList) deleteDiff(sid int, prior *Snapshot) bool {
	for i := range l.diffs {
		if l.diffs[i].snapshotID != sid {
			continue
		}
		if prior != nil && (i == 0 || l.diffs[i-1].snapshotID < prior.id) {
			l.diffs[i].snapshotID = prior.id
		} else {
			l.diffs = append(l.diffs[:i], l.diffs[i+1:]...)
		}
		return true
	}
	return false
}

func (l *attrDiffList) empty() bool {
	return l == nil || len(l.diffs) == 0
}
