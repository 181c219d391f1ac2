package namespace

// Reference is the rename indirection: a node standing in for a renamed
// target so the target can logically live under both its pre-rename and
// post-rename ancestry. Attribute reads and writes pass through to the
// referred node; only the parent link (and, in the named variants, the
// rename bookkeeping) belongs to the reference itself.
//
// The wiring mirrors the rename protocol: the renamed node hangs under a
// shared *WithCount; the source directory's snapshot diff retains a
// *WithName carrying the pre-rename name; the destination directory holds a
// *DstReference carrying the destination-side snapshot id. WithName and
// DstReference each hold one retain on the WithCount, and the target is
// destroyed only when the last holder releases it.
type Reference struct {
	inode
	referred Node
}

func (r *Reference) initRef(self Node, referred Node) {
	r.init(self, referred.ID(), nil, attributes{})
	r.referred = referred
}

// Referred returns the immediate referred node, which may itself be a
// reference.
func (r *Reference) Referred() Node { return r.referred }

// ReferredNode resolves through nested references to the underlying tree
// node.
func (r *Reference) ReferredNode() Node {
	cur := r.referred
	for cur != nil && cur.IsReference() {
		ref, err := cur.AsReference()
		if err != nil {
			break
		}
		cur = ref.referred
	}
	return cur
}

func (r *Reference) IsReference() bool { return true }

func (r *Reference) AsReference() (*Reference, error) { return r, nil }

// The remaining capability probes and casts pass through to the target, so
// a reference can be used wherever its target's variant is expected.

func (r *Reference) IsFile() bool      { return r.referred.IsFile() }
func (r *Reference) IsDirectory() bool { return r.referred.IsDirectory() }
func (r *Reference) IsSymlink() bool   { return r.referred.IsSymlink() }

func (r *Reference) AsFile() (*File, error)           { return r.referred.AsFile() }
func (r *Reference) AsDirectory() (*Directory, error) { return r.referred.AsDirectory() }
func (r *Reference) AsSymlink() (*Symlink, error)     { return r.referred.AsSymlink() }

func (r *Reference) ID() uint64 { return r.referred.ID() }

func (r *Reference) Key() []byte { return r.referred.Key() }

func (r *Reference) LocalNameBytes() []byte { return r.referred.LocalNameBytes() }

func (r *Reference) SetLocalName(name []byte) { r.referred.SetLocalName(name) }

func (r *Reference) Owner(s *Snapshot) string { return r.referred.Owner(s) }

func (r *Reference) Group(s *Snapshot) string { return r.referred.Group(s) }

func (r *Reference) Perm(s *Snapshot) Permission { return r.referred.Perm(s) }

func (r *Reference) ModificationTime(s *Snapshot) int64 { return r.referred.ModificationTime(s) }

func (r *Reference) AccessTime(s *Snapshot) int64 { return r.referred.AccessTime(s) }

func (r *Reference) SetOwner(owner string, latest *Snapshot) (Node, error) {
	if _, err := r.referred.SetOwner(owner, latest); err != nil {
		return nil, err
	}
	return r.self, nil
}

func (r *Reference) SetGroup(group string, latest *Snapshot) (Node, error) {
	if _, err := r.referred.SetGroup(group, latest); err != nil {
		return nil, err
	}
	return r.self, nil
}

func (r *Reference) SetPerm(perm Permission, latest *Snapshot) (Node, error) {
	if _, err := r.referred.SetPerm(perm, latest); err != nil {
		return nil, err
	}
	return r.self, nil
}

func (r *Reference) SetModificationTime(mtime int64, latest *Snapshot) (Node, error) {
	if _, err := r.referred.SetModificationTime(mtime, latest); err != nil {
		return nil, err
	}
	return r.self, nil
}

func (r *Reference) UpdateModificationTime(mtime int64, latest *Snapshot) (Node, error) {
	if _, err := r.referred.UpdateModificationTime(mtime, latest); err != nil {
		return nil, err
	}
	return r.self, nil
}

func (r *Reference) SetAccessTime(atime int64, latest *Snapshot) (Node, error) {
	if _, err := r.referred.SetAccessTime(atime, latest); err != nil {
		return nil, err
	}
	return r.self, nil
}

func (r *Reference) RecordModification(latest *Snapshot) (Node, error) {
	if _, err := r.referred.RecordModification(latest); err != nil {
		return nil, err
	}
	return r.self, nil
}

func (r *Reference) NsQuota() int64 { return r.referred.NsQuota() }

func (r *Reference) DsQuota() int64 { return r.referred.DsQuota() }

func (r *Reference) CleanSubtree(toDelete, prior *Snapshot, batch *BlockDeletionBatch) (QuotaCounts, error) {
	if toDelete == nil && prior == nil {
		// deleting the current state with no snapshot anywhere: release the
		// target outright
		usage := *r.ComputeQuotaUsage(&QuotaCounts{}, true)
		r.self.DestroyAndCollectBlocks(batch)
		return usage.Negate(), nil
	}
	return r.referred.CleanSubtree(toDelete, prior, batch)
}

func (r *Reference) DestroyAndCollectBlocks(batch *BlockDeletionBatch) {
	if r.destroyed {
		return
	}
	r.destroyed = true
	r.clearParent()
	if wc, ok := r.referred.(*WithCount); ok {
		wc.Release(batch)
		return
	}
	r.referred.DestroyAndCollectBlocks(batch)
}

func (r *Reference) ComputeQuotaUsage(counts *QuotaCounts, useCache bool) *QuotaCounts {
	return r.referred.ComputeQuotaUsage(counts, useCache)
}

func (r *Reference) ComputeContentCounts(c *ContentCounts) *ContentCounts {
	return r.referred.ComputeContentCounts(c)
}

func (r *Reference) ComputeContentSummary(m *ContentCountsMap) *ContentCountsMap {
	return r.referred.ComputeContentSummary(m)
}

// WithCount is the shared-ownership wrapper around a renamed node. Each
// reference sharing the node holds one retain; Release destroys the node
// when the last holder lets go. Scoped strictly to the rename mechanism.
type WithCount struct {
	Reference
	count int
}

// NewWithCount wraps referred for shared ownership and points its parent
// link at the wrapper. The count starts at zero; holders retain explicitly.
func NewWithCount(referred Node) *WithCount {
	wc := &WithCount{}
	wc.initRef(wc, referred)
	referred.SetParentReference(wc)
	return wc
}

// Count returns the number of live holders.
func (wc *WithCount) Count() int { return wc.count }

// Retain adds a holder.
func (wc *WithCount) Retain() { wc.count++ }

// Release drops a holder; the last release destroys the referred node and
// collects its blocks.
func (wc *WithCount) Release(batch *BlockDeletionBatch) {
	if wc.destroyed {
		return
	}
	wc.count--
	if wc.count > 0 {
		return
	}
	wc.destroyed = true
	wc.clearParent()
	wc.referred.DestroyAndCollectBlocks(batch)
}

func (wc *WithCount) DestroyAndCollectBlocks(batch *BlockDeletionBatch) {
	if wc.destroyed {
		return
	}
	wc.destroyed = true
	wc.clearParent()
	wc.referred.DestroyAndCollectBlocks(batch)
}

// WithName is the reference retained on the rename source side: it carries
// the node's pre-rename name and the id of the last snapshot taken in the
// source tree before the rename.
type WithName struct {
	Reference
	name           []byte
	lastSnapshotID int
}

// NewWithName creates the source-side reference and retains the shared
// wrapper.
func NewWithName(wc *WithCount, name []byte, lastSnapshotID int) *WithName {
	wn := &WithName{name: name, lastSnapshotID: lastSnapshotID}
	wn.initRef(wn, wc)
	wc.Retain()
	return wn
}

// LastSnapshotID returns the id of the last source-side snapshot taken
// before the rename.
func (wn *WithName) LastSnapshotID() int { return wn.lastSnapshotID }

func (wn *WithName) Key() []byte { return wn.name }

func (wn *WithName) LocalNameBytes() []byte { return wn.name }

func (wn *WithName) SetLocalName(name []byte) { wn.name = name }

// DstReference is the reference placed in the rename destination directory.
// It records the latest destination-side snapshot id at rename time, which
// decides whether later modifications under the reference belong to the
// source or the destination history.
type DstReference struct {
	Reference
	dstSnapshotID int
}

// NewDstReference creates the destination-side reference, retains the shared
// wrapper, and makes it the wrapper's parent so the referred node's ancestry
// continues into the destination tree.
func NewDstReference(wc *WithCount, dstSnapshotID int) *DstReference {
	dr := &DstReference{dstSnapshotID: dstSnapshotID}
	dr.initRef(dr, wc)
	wc.Retain()
	wc.SetParentReference(dr)
	return dr
}

// DstSnapshotID returns the destination-side snapshot id recorded at rename
// time.
func (dr *DstReference) DstSnapshotID() int { return dr.dstSnapshotID }
