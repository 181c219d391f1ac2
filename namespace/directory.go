package namespace

import (
	"bytes"
	"fmt"
	"sort"
)

// Directory is a directory entry. Children are kept sorted by local-name
// bytes so lookups are binary searches over the same ordering external child
// storage would use. The directory owns its children: destroying it destroys
// them, subject to the snapshot retention rules.
//
// Quota fields live only here; QuotaUnset (-1) means not configured. nsCount
// and dsCount are the running subtree usage counters, maintained by
// AddSpaceConsumed and usable as the memoized total for ComputeQuotaUsage.
type Directory struct {
	inode
	children []Node
	nsQuota  int64
	dsQuota  int64
	nsCount  int64
	dsCount  int64
	diffs    *dirDiffList
}

func newDirectory(id uint64, name []byte, attr attributes) *Directory {
	d := &Directory{
		nsQuota: QuotaUnset,
		dsQuota: QuotaUnset,
		nsCount: 1, // the directory itself
	}
	d.init(d, id, name, attr)
	return d
}

func (d *Directory) IsDirectory() bool { return true }

func (d *Directory) AsDirectory() (*Directory, error) { return d, nil }

// IsWithSnapshot reports whether the directory tracks snapshot diffs.
func (d *Directory) IsWithSnapshot() bool { return d.diffs != nil }

func (d *Directory) NsQuota() int64 { return d.nsQuota }

func (d *Directory) DsQuota() int64 { return d.dsQuota }

// SetQuota sets the namespace and diskspace quotas through the copy-on-write
// protocol. QuotaUnset clears a quota.
func (d *Directory) SetQuota(nsQuota, dsQuota int64, latest *Snapshot) (Node, error) {
	nodeToUpdate, err := d.RecordModification(latest)
	if err != nil {
		return nil, err
	}
	d.nsQuota = nsQuota
	d.dsQuota = dsQuota
	return nodeToUpdate, nil
}

// SpaceConsumed returns the running usage counters.
func (d *Directory) SpaceConsumed() QuotaCounts {
	return QuotaCounts{Namespace: d.nsCount, Diskspace: d.dsCount}
}

// verifyQuota rejects a positive delta that would push usage past a set
// quota. Called for every directory on the chain before any commit.
func (d *Directory) verifyQuota(nsDelta, dsDelta int64) error {
	if !d.IsQuotaSet() {
		return nil
	}
	if nsDelta > 0 && d.nsQuota >= 0 && d.nsCount+nsDelta > d.nsQuota {
		return &QuotaExceededError{
			Kind:  QuotaKindNamespace,
			Path:  d.LocalName(),
			Quota: d.nsQuota,
			Count: d.nsCount + nsDelta,
		}
	}
	if dsDelta > 0 && d.dsQuota >= 0 && d.dsCount+dsDelta > d.dsQuota {
		return &QuotaExceededError{
			Kind:  QuotaKindDiskspace,
			Path:  d.LocalName(),
			Quota: d.dsQuota,
			Count: d.dsCount + dsDelta,
		}
	}
	return nil
}

// search locates name among the current children.
func (d *Directory) search(name []byte) (int, bool) {
	i := sort.Search(len(d.children), func(i int) bool {
		return CompareBytes(d.children[i].Key(), name) >= 0
	})
	if i < len(d.children) && bytes.Equal(d.children[i].Key(), name) {
		return i, true
	}
	return i, false
}

// Child looks up a child by name at the given snapshot (nil for the current
// view). The result may be a direct child or a reference left by a rename.
func (d *Directory) Child(name []byte, s *Snapshot) Node {
	if s != nil && d.diffs != nil {
		if n, hidden := d.diffs.childAt(name, s); hidden {
			return nil
		} else if n != nil {
			return n
		}
	}
	if i, ok := d.search(name); ok {
		return d.children[i]
	}
	return nil
}

// Children returns a copy of the current child list, in name order.
func (d *Directory) Children() []Node {
	out := make([]Node, len(d.children))
	copy(out, d.children)
	return out
}

// AddChild inserts child into the sorted child list and links its parent to
// this directory. When a live snapshot exists and this directory is part of
// it, the insertion is recorded in the snapshot diff's created list.
func (d *Directory) AddChild(child Node, latest *Snapshot) error {
	if _, ok := d.search(child.Key()); ok {
		return fmt.Errorf("child %q already exists in %s", child.LocalName(), d.DetailString())
	}
	if _, err := d.RecordModification(latest); err != nil {
		return err
	}
	if latest != nil && d.diffs != nil {
		if diff := d.diffs.diffFor(latest.id); diff != nil {
			diff.created = append(diff.created, child)
		}
	}
	i, _ := d.search(child.Key())
	d.children = append(d.children, nil)
	copy(d.children[i+1:], d.children[i:])
	d.children[i] = child
	child.SetParent(d)
	return nil
}

// RemoveChild detaches child from the current view. retained reports whether
// the child was recorded in the latest snapshot's deleted list instead of
// being freed; the caller picks the CleanSubtree prior argument from it.
func (d *Directory) RemoveChild(child Node, latest *Snapshot) (retained bool, err error) {
	return d.removeChild(child, latest, nil)
}

// removeChild additionally accepts a replacement node to record in the
// deleted list in place of child; rename uses this to retain a reference
// where the plain node used to be.
func (d *Directory) removeChild(child Node, latest *Snapshot, replacement Node) (bool, error) {
	i, ok := d.search(child.Key())
	if !ok || d.children[i].asInode() != child.asInode() {
		return false, fmt.Errorf("node %s is not a child of %s", child.DetailString(), d.DetailString())
	}
	retained := latest != nil && child.IsInLatestSnapshot(latest)
	if _, err := d.RecordModification(latest); err != nil {
		return false, err
	}
	d.children = append(d.children[:i], d.children[i+1:]...)
	if !retained {
		if d.diffs != nil {
			d.diffs.removeFromCreated(child)
		}
		return false, nil
	}
	rec := child
	if replacement != nil {
		rec = replacement
	}
	diff := d.diffs.diffFor(latest.id)
	if diff == nil {
		// the directory itself is not part of the snapshot; nothing retains
		// the child
		return false, nil
	}
	// parent link stays intact so snapshot paths still resolve
	diff.deleted = append(diff.deleted, rec)
	return true, nil
}

func (d *Directory) RecordModification(latest *Snapshot) (Node, error) {
	if d.IsInLatestSnapshot(latest) {
		if d.diffs == nil {
			d.diffs = &dirDiffList{}
			d.history = d.diffs
		}
		d.diffs.saveSelf(latest, d.attr)
	}
	return d, nil
}

func (d *Directory) CleanSubtree(toDelete, prior *Snapshot, batch *BlockDeletionBatch) (QuotaCounts, error) {
	counts := QuotaCounts{}
	if toDelete == nil {
		// deleting the current directory state
		if d.diffs == nil {
			if prior == nil {
				// no snapshot anywhere above, destroy the whole subtree
				usage := *d.ComputeQuotaUsage(&QuotaCounts{}, false)
				d.DestroyAndCollectBlocks(batch)
				return usage.Negate(), nil
			}
			// the directory survives as prior's copy; clean children only
			for _, child := range d.Children() {
				sub, err := child.CleanSubtree(nil, prior, batch)
				if err != nil {
					return counts, err
				}
				counts.Add(sub)
			}
			d.absorb(counts)
			return counts, nil
		}
		// snapshot-tracking: capture current state, destroy entries created
		// strictly after prior, recurse into the rest
		if _, err := d.RecordModification(prior); err != nil {
			return counts, err
		}
		for _, created := range d.diffs.createdAfter(prior) {
			if i, ok := d.search(created.Key()); ok && d.children[i].asInode() == created.asInode() {
				d.children = append(d.children[:i], d.children[i+1:]...)
			}
			d.diffs.removeFromCreated(created)
			usage := *created.ComputeQuotaUsage(&QuotaCounts{}, false)
			created.DestroyAndCollectBlocks(batch)
			counts.Add(usage.Negate())
		}
		for _, child := range d.Children() {
			sub, err := child.CleanSubtree(nil, prior, batch)
			if err != nil {
				return counts, err
			}
			counts.Add(sub)
		}
		d.absorb(counts)
		return counts, nil
	}
	// deleting a named snapshot
	if d.diffs != nil {
		for _, del := range d.diffs.removeDiff(toDelete.id, prior) {
			usage := *del.ComputeQuotaUsage(&QuotaCounts{}, false)
			del.DestroyAndCollectBlocks(batch)
			counts.Add(usage.Negate())
		}
	}
	for _, child := range d.Children() {
		sub, err := child.CleanSubtree(toDelete, prior, batch)
		if err != nil {
			return counts, err
		}
		counts.Add(sub)
	}
	if d.diffs != nil {
		for _, del := range d.diffs.allDeleted() {
			sub, err := del.CleanSubtree(toDelete, prior, batch)
			if err != nil {
				return counts, err
			}
			counts.Add(sub)
		}
	}
	d.absorb(counts)
	return counts, nil
}

// absorb folds a subtree deletion delta into the running usage counters as
// the recursion unwinds, so every surviving ancestor stays consistent.
func (d *Directory) absorb(delta QuotaCounts) {
	d.nsCount += delta.Namespace
	d.dsCount += delta.Diskspace
}

func (d *Directory) DestroyAndCollectBlocks(batch *BlockDeletionBatch) {
	if d.destroyed {
		return
	}
	d.destroyed = true
	batch.AddRemovedNode(d.id)
	for _, child := range d.children {
		child.DestroyAndCollectBlocks(batch)
	}
	if d.diffs != nil {
		for _, del := range d.diffs.allDeleted() {
			del.DestroyAndCollectBlocks(batch)
		}
	}
	d.children = nil
	d.diffs = nil
	d.history = nil
	d.clearParent()
}

func (d *Directory) ComputeQuotaUsage(counts *QuotaCounts, useCache bool) *QuotaCounts {
	if useCache && d.IsQuotaSet() {
		counts.Namespace += d.nsCount
		counts.Diskspace += d.dsCount
		return counts
	}
	counts.Namespace++
	for _, child := range d.children {
		child.ComputeQuotaUsage(counts, useCache)
	}
	if d.diffs != nil {
		// snapshot-retained entries still consume quota until their
		// snapshots are deleted
		for _, del := range d.diffs.allDeleted() {
			del.ComputeQuotaUsage(counts, false)
		}
	}
	return counts
}

func (d *Directory) ComputeContentCounts(c *ContentCounts) *ContentCounts {
	c.DirectoryCount++
	for _, child := range d.children {
		child.ComputeContentCounts(c)
	}
	return c
}

func (d *Directory) ComputeContentSummary(m *ContentCountsMap) *ContentCountsMap {
	m.Counts(ContentCurrent).DirectoryCount++
	for _, child := range d.children {
		child.ComputeContentSummary(m)
	}
	if d.diffs != nil {
		for _, del := range d.diffs.allDeleted() {
			del.ComputeContentCounts(m.Counts(ContentSnapshot))
		}
	}
	return m
}

// dirDiff captures a directory's state under one snapshot: the attribute
// family plus the child changes made after that snapshot. created holds
// children added after the snapshot (hidden from its view), deleted holds
// children removed after it (still visible in its view).
type dirDiff struct {
	snapshotID int
	attr       attributes
	created    []Node
	deleted    []Node
}

// removeCreated drops node from this record's created list, by identity, and
// reports whether it was present.
func (d *dirDiff) removeCreated(node Node) bool {
	for i, created := range d.created {
		if created.asInode() == node.asInode() {
			d.created = append(d.created[:i], d.created[i+1:]...)
			return true
		}
	}
	return false
}

// dirDiffList stores dirDiff records in ascending snapshot-id order.
type dirDiffList struct {
	diffs []*dirDiff
}

func (l *dirDiffList) attrAt(s *Snapshot) *attributes {
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

func (l *dirDiffList) saveSelf(latest *Snapshot, cur attributes) {
	if latest == nil {
		return
	}
	n := len(l.diffs)
	if n > 0 && l.diffs[n-1].snapshotID >= latest.id {
		return
	}
	l.diffs = append(l.diffs, &dirDiff{snapshotID: latest.id, attr: cur})
}

// diffFor returns the record captured under snapshot id sid, if present.
func (l *dirDiffList) diffFor(sid int) *dirDiff {
	for i := len(l.diffs) - 1; i >= 0; i-- {
		if l.diffs[i].snapshotID == sid {
			return l.diffs[i]
		}
		if l.diffs[i].snapshotID < sid {
			break
		}
	}
	return nil
}

// childAt reconstructs the child visible as name at snapshot s by replaying
// the diff records covering s, oldest first. hidden means the name was
// created after s and must not fall through to the current children.
func (l *dirDiffList) childAt(name []byte, s *Snapshot) (n Node, hidden bool) {
	start := sort.Search(len(l.diffs), func(i int) bool {
		return l.diffs[i].snapshotID >= s.id
	})
	for i := start; i < len(l.diffs); i++ {
		for _, del := range l.diffs[i].deleted {
			if bytes.Equal(del.Key(), name) {
				return del, false
			}
		}
		for _, created := range l.diffs[i].created {
			if bytes.Equal(created.Key(), name) {
				return nil, true
			}
		}
	}
	return nil, false
}

// createdAfter returns the union of created entries recorded at or after
// prior; with a nil prior every created entry qualifies.
func (l *dirDiffList) createdAfter(prior *Snapshot) []Node {
	var out []Node
	for _, diff := range l.diffs {
		if prior != nil && diff.snapshotID < prior.id {
			continue
		}
		out = append(out, diff.created...)
	}
	return out
}

// removeFromCreated drops node from every created list, by identity.
func (l *dirDiffList) removeFromCreated(node Node) bool {
	removed := false
	for _, diff := range l.diffs {
		if diff.removeCreated(node) {
			removed = true
		}
	}
	return removed
}

// allDeleted returns every snapshot-retained entry across all diff records.
func (l *dirDiffList) allDeleted() []Node {
	var out []Node
	for _, diff := range l.diffs {
		out = append(out, diff.deleted...)
	}
	return out
}

// removeDiff removes the record captured under snapshot id sid and returns
// the entries nothing retains anymore, for the caller to destroy. With a nil
// prior that is everything the record held in its deleted list. With a prior
// the record is merged into (or re-attributed to) prior's; an entry created
// after prior and deleted under sid cancels out of the merge, since no
// remaining view ever contained it.
func (l *dirDiffList) removeDiff(sid int, prior *Snapshot) []Node {
	for i := range l.diffs {
		if l.diffs[i].snapshotID != sid {
			continue
		}
		diff := l.diffs[i]
		if prior == nil {
			l.diffs = append(l.diffs[:i], l.diffs[i+1:]...)
			return diff.deleted
		}
		if i > 0 && l.diffs[i-1].snapshotID == prior.id {
			// merge into the prior record
			pd := l.diffs[i-1]
			var orphans []Node
			for _, del := range diff.deleted {
				if pd.removeCreated(del) {
					orphans = append(orphans, del)
				} else {
					pd.deleted = append(pd.deleted, del)
				}
			}
			pd.created = append(pd.created, diff.created...)
			l.diffs = append(l.diffs[:i], l.diffs[i+1:]...)
			return orphans
		}
		// no record for prior yet, re-attribute this one
		diff.snapshotID = prior.id
		return nil
	}
	return nil
}

func (l *dirDiffList) empty() bool {
	return l == nil || len(l.diffs) == 0
}
