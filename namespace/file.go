package namespace

import "sort"

// File is a plain file entry: a block list plus the common attribute state.
// A file starts in live-only form; its first modification under a live
// snapshot attaches a diff list and it becomes snapshot-tracking from then
// on.
type File struct {
	inode
	blocks      []Block
	length      int64
	replication int16
	diffs       *fileDiffList
	// deleted marks the current state removed while snapshot copies remain
	deleted bool
}

func newFile(id uint64, name []byte, attr attributes, length int64, replication int16, blocks []Block) *File {
	f := &File{
		blocks:      blocks,
		length:      length,
		replication: replication,
	}
	f.init(f, id, name, attr)
	return f
}

func (f *File) IsFile() bool { return true }

func (f *File) AsFile() (*File, error) { return f, nil }

// Length returns the file length visible at s.
func (f *File) Length(s *Snapshot) int64 {
	if s != nil && f.diffs != nil {
		if d := f.diffs.diffAt(s); d != nil {
			return d.length
		}
	}
	return f.length
}

// Replication returns the replication factor.
func (f *File) Replication() int16 { return f.replication }

// Blocks returns the file's block list.
func (f *File) Blocks() []Block { return f.blocks }

// IsWithSnapshot reports whether the file tracks snapshot diffs.
func (f *File) IsWithSnapshot() bool { return f.diffs != nil }

// IsCurrentDeleted reports whether the current state was removed while
// snapshot copies remain.
func (f *File) IsCurrentDeleted() bool { return f.deleted }

func (f *File) diskspaceConsumed() int64 {
	return f.length * int64(f.replication)
}

func (f *File) RecordModification(latest *Snapshot) (Node, error) {
	if f.IsInLatestSnapshot(latest) {
		if f.diffs == nil {
			f.diffs = &fileDiffList{}
			f.history = f.diffs
		}
		f.diffs.saveSelf(latest, f.attr, f.length)
	}
	return f, nil
}

func (f *File) CleanSubtree(toDelete, prior *Snapshot, batch *BlockDeletionBatch) (QuotaCounts, error) {
	if toDelete == nil {
		// deleting the current file
		if f.diffs == nil {
			if prior == nil {
				// no snapshot needs it, destroy outright
				usage := *f.ComputeQuotaUsage(&QuotaCounts{}, false)
				f.DestroyAndCollectBlocks(batch)
				return usage.Negate(), nil
			}
			// the current state is retained as prior's copy
			f.deleted = true
			return QuotaCounts{}, nil
		}
		// snapshot-tracking: capture current state, then mark deleted
		if _, err := f.RecordModification(prior); err != nil {
			return QuotaCounts{}, err
		}
		f.deleted = true
		return QuotaCounts{}, nil
	}
	// deleting a named snapshot
	if f.diffs == nil {
		return QuotaCounts{}, nil
	}
	f.diffs.deleteDiff(toDelete.id, prior)
	if f.deleted && f.diffs.empty() {
		// no snapshot refers to the file anymore
		usage := *f.ComputeQuotaUsage(&QuotaCounts{}, false)
		f.DestroyAndCollectBlocks(batch)
		return usage.Negate(), nil
	}
	return QuotaCounts{}, nil
}

func (f *File) DestroyAndCollectBlocks(batch *BlockDeletionBatch) {
	if f.destroyed {
		return
	}
	f.destroyed = true
	batch.AddRemovedNode(f.id)
	for _, blk := range f.blocks {
		batch.Add(blk)
	}
	f.blocks = nil
	f.diffs = nil
	f.history = nil
	f.deleted = true
	f.clearParent()
}

func (f *File) ComputeQuotaUsage(counts *QuotaCounts, useCache bool) *QuotaCounts {
	counts.Namespace++
	counts.Diskspace += f.diskspaceConsumed()
	return counts
}

func (f *File) ComputeContentCounts(c *ContentCounts) *ContentCounts {
	c.FileCount++
	c.Length += f.length
	c.Diskspace += f.diskspaceConsumed()
	return c
}

func (f *File) ComputeContentSummary(m *ContentCountsMap) *ContentCountsMap {
	key := ContentCurrent
	if f.deleted {
		key = ContentSnapshot
	}
	f.ComputeContentCounts(m.Counts(key))
	return m
}

// fileDiff captures a file's state under one snapshot: the attribute family
// plus the length at capture time.
type fileDiff struct {
	snapshotID int
	attr       attributes
	length     int64
}

// fileDiffList stores fileDiff records in ascending snapshot-id order.
type fileDiffList struct {
	diffs []fileDiff
}

func (l *fileDiffList) diffAt(s *Snapshot) *fileDiff {
	if s == nil || l == nil {
		return nil
	}
	i := sort.Search(len(l.diffs), func(i int) bool {
		return l.diffs[i].snapshotID >= s.id
	})
	if i == len(l.diffs) {
		return nil
	}
	return &l.diffs[i]
}

func (l *fileDiffList) attrAt(s *Snapshot) *attributes {
	d := l.diffAt(s)
	if d == nil {
		return nil
	}
	return &d.attr
}

func (l *fileDiffList) saveSelf(latest *Snapshot, cur attributes, length int64) {
	if latest == nil {
		return
	}
	n := len(l.diffs)
	if n > 0 && l.diffs[n-1].snapshotID >= latest.id {
		return
	}
	l.diffs = append(l.diffs, fileDiff{snapshotID: latest.id, attr: cur, length: length})
}

func (l *fileDiffList) deleteDiff(sid int, prior *Snapshot) bool {
	for i := range l.diffs {
		if l.diffs[i].snapshotID != sid {
			continue
		}
		if prior != nil && (i == 0 || l.diffs[i-1].snapshotID < prior.id) {
			// re-attribute the captured state to the prior snapshot
			l.diffs[i].snapshotID = prior.id
		} else {
			l.diffs = append(l.diffs[:i], l.diffs[i+1:]...)
		}
		return true
	}
	return false
}

func (l *fileDiffList) empty() bool {
	return l == nil || len(l.diffs) == 0
}
