package namespace

import (
	"bytes"
	"fmt"
)

// Node is the contract shared by every entry in the namespace tree. The
// variant set is closed: *File, *Directory, *Symlink and the reference
// variants (*WithCount, *WithName, *DstReference) are the only
// implementations; the unexported asInode method keeps it that way.
//
// Attribute getters take an optional snapshot: nil reads the current value, a
// concrete snapshot reads the value visible at that point in time. Setters
// taking a snapshot run the copy-on-write protocol first and return the node
// that now carries the current state; callers must keep operating on the
// returned node.
type Node interface {
	// ID returns the immutable 64-bit identifier of the node.
	ID() uint64

	LocalName() string
	LocalNameBytes() []byte
	SetLocalName(name []byte)
	// Key is the ordering/equality key: the local-name bytes.
	Key() []byte
	// Equals is name-bytes equality, independent of id. Two distinct nodes
	// with the same name in different directories compare equal, so
	// identity-sensitive callers must also check parentage.
	Equals(other Node) bool
	// Compare orders the node against a name by unsigned lexicographic byte
	// comparison.
	Compare(name []byte) int
	IsRoot() bool

	// Parent returns the parent directory, resolving a reference link to the
	// reference's own parent. Nil for the root and for detached nodes.
	Parent() *Directory
	// ParentReference returns the reference this node hangs under, or nil if
	// the parent link is a plain directory link.
	ParentReference() Node
	SetParent(dir *Directory)
	SetParentReference(ref Node)

	Owner(s *Snapshot) string
	Group(s *Snapshot) string
	Perm(s *Snapshot) Permission
	ModificationTime(s *Snapshot) int64
	AccessTime(s *Snapshot) int64

	SetOwner(owner string, latest *Snapshot) (Node, error)
	SetGroup(group string, latest *Snapshot) (Node, error)
	SetPerm(perm Permission, latest *Snapshot) (Node, error)
	SetModificationTime(mtime int64, latest *Snapshot) (Node, error)
	// UpdateModificationTime only moves the timestamp forward; it is a no-op
	// if mtime is not later than the current value.
	UpdateModificationTime(mtime int64, latest *Snapshot) (Node, error)
	SetAccessTime(atime int64, latest *Snapshot) (Node, error)

	// RecordModification is the sole copy-on-write transition: given the
	// latest snapshot taken (nil if none), it captures the pre-mutation
	// state where required and returns the node subsequent mutation must be
	// applied to.
	RecordModification(latest *Snapshot) (Node, error)
	IsInLatestSnapshot(latest *Snapshot) bool
	IsInSrcSnapshot(latest *Snapshot) bool

	IsFile() bool
	IsDirectory() bool
	IsSymlink() bool
	IsReference() bool
	AsFile() (*File, error)
	AsDirectory() (*Directory, error)
	AsSymlink() (*Symlink, error)
	AsReference() (*Reference, error)

	// CleanSubtree removes the effects of one snapshot (or of the current
	// tree state when toDelete is nil) and returns the quota delta, negative
	// when space is freed. prior is the latest snapshot before toDelete, or
	// the latest snapshot overall when deleting current state.
	CleanSubtree(toDelete, prior *Snapshot, batch *BlockDeletionBatch) (QuotaCounts, error)
	// DestroyAndCollectBlocks unconditionally destroys the subtree, adding
	// every owned block to batch. Idempotent: a second call on an already
	// destroyed node contributes nothing.
	DestroyAndCollectBlocks(batch *BlockDeletionBatch)

	ComputeQuotaUsage(counts *QuotaCounts, useCache bool) *QuotaCounts
	ComputeContentSummary(m *ContentCountsMap) *ContentCountsMap
	// ComputeContentCounts aggregates this subtree into a single bucket,
	// regardless of view.
	ComputeContentCounts(c *ContentCounts) *ContentCounts
	// AddSpaceConsumed propagates a space delta up the ancestor chain,
	// all-or-nothing: a quota violation anywhere leaves every counter
	// unchanged.
	AddSpaceConsumed(nsDelta, dsDelta int64) error
	NsQuota() int64
	DsQuota() int64
	IsQuotaSet() bool

	ContentSummary() ContentSummary

	// DetailString describes the node (name, variant, parent) for
	// diagnostics.
	DetailString() string

	asInode() *inode
}

// ParentLink is the ownership-free association from a node to its parent:
// either a directory (normal case) or a reference node (when the node is the
// target of an in-flight rename). At most one case is set.
type ParentLink struct {
	dir *Directory
	ref Node
}

// IsEmpty reports whether no parent is linked (root or detached node).
func (l ParentLink) IsEmpty() bool { return l.dir == nil && l.ref == nil }

// Directory returns the directory case.
func (l ParentLink) Directory() (*Directory, bool) { return l.dir, l.dir != nil }

// Reference returns the reference case.
func (l ParentLink) Reference() (Node, bool) { return l.ref, l.ref != nil }

// inode carries the identity and attribute state common to every variant.
// Variants embed it and keep self pointed at themselves so promoted methods
// can dispatch back through the Node interface.
type inode struct {
	self      Node
	id        uint64
	name      []byte
	parent    ParentLink
	attr      attributes
	history   attrHistory // nil until the variant starts tracking snapshots
	destroyed bool
}

func (n *inode) init(self Node, id uint64, name []byte, attr attributes) {
	n.self = self
	n.id = id
	n.name = name
	n.attr = attr
}

func (n *inode) asInode() *inode { return n }

func (n *inode) ID() uint64 { return n.id }

func (n *inode) LocalName() string { return string(n.self.Key()) }

func (n *inode) LocalNameBytes() []byte { return n.name }

func (n *inode) SetLocalName(name []byte) { n.name = name }

func (n *inode) Key() []byte { return n.name }

// IsRoot reports whether this is the tree root: the only node allowed an
// empty local name.
func (n *inode) IsRoot() bool { return len(n.self.Key()) == 0 }

func (n *inode) Equals(other Node) bool {
	if other == nil {
		return false
	}
	return bytes.Equal(n.self.Key(), other.Key())
}

func (n *inode) Compare(name []byte) int {
	return CompareBytes(n.self.Key(), name)
}

func (n *inode) Parent() *Directory {
	if n.parent.ref != nil {
		// a referred node's ancestry continues at the reference's own parent
		return n.parent.ref.Parent()
	}
	return n.parent.dir
}

func (n *inode) ParentReference() Node {
	return n.parent.ref
}

func (n *inode) SetParent(dir *Directory) {
	n.parent = ParentLink{dir: dir}
}

func (n *inode) SetParentReference(ref Node) {
	n.parent = ParentLink{ref: ref}
}

// clearParent drops the parent link on destruction.
func (n *inode) clearParent() {
	n.parent = ParentLink{}
}

// attrAt resolves the attribute family visible at s: a captured diff record
// when one covers s, the current state otherwise.
func (n *inode) attrAt(s *Snapshot) *attributes {
	if s != nil && n.history != nil {
		if a := n.history.attrAt(s); a != nil {
			return a
		}
	}
	return &n.attr
}

func (n *inode) Owner(s *Snapshot) string { return n.attrAt(s).owner }

func (n *inode) Group(s *Snapshot) string { return n.attrAt(s).group }

func (n *inode) Perm(s *Snapshot) Permission { return n.attrAt(s).perm }

func (n *inode) ModificationTime(s *Snapshot) int64 { return n.attrAt(s).mtime }

func (n *inode) AccessTime(s *Snapshot) int64 { return n.attrAt(s).atime }

// The snapshot-taking setters are all record-then-mutate: capture the
// pre-mutation state in the latest snapshot, mutate the returned node,
// return it.

func (n *inode) SetOwner(owner string, latest *Snapshot) (Node, error) {
	nodeToUpdate, err := n.self.RecordModification(latest)
	if err != nil {
		return nil, err
	}
	nodeToUpdate.asInode().attr.owner = owner
	return nodeToUpdate, nil
}

func (n *inode) SetGroup(group string, latest *Snapshot) (Node, error) {
	nodeToUpdate, err := n.self.RecordModification(latest)
	if err != nil {
		return nil, err
	}
	nodeToUpdate.asInode().attr.group = group
	return nodeToUpdate, nil
}

func (n *inode) SetPerm(perm Permission, latest *Snapshot) (Node, error) {
	nodeToUpdate, err := n.self.RecordModification(latest)
	if err != nil {
		return nil, err
	}
	nodeToUpdate.asInode().attr.perm = perm
	return nodeToUpdate, nil
}

func (n *inode) SetModificationTime(mtime int64, latest *Snapshot) (Node, error) {
	nodeToUpdate, err := n.self.RecordModification(latest)
	if err != nil {
		return nil, err
	}
	nodeToUpdate.asInode().attr.mtime = mtime
	return nodeToUpdate, nil
}

func (n *inode) UpdateModificationTime(mtime int64, latest *Snapshot) (Node, error) {
	if mtime <= n.attr.mtime {
		return n.self, nil
	}
	return n.self.SetModificationTime(mtime, latest)
}

func (n *inode) SetAccessTime(atime int64, latest *Snapshot) (Node, error) {
	nodeToUpdate, err := n.self.RecordModification(latest)
	if err != nil {
		return nil, err
	}
	nodeToUpdate.asInode().attr.atime = atime
	return nodeToUpdate, nil
}

// IsInLatestSnapshot reports whether this node is part of the given latest
// snapshot's view.
func (n *inode) IsInLatestSnapshot(latest *Snapshot) bool {
	if latest == nil {
		return false
	}
	// A renamed node hangs under a reference; it is part of every snapshot
	// taken after the rename by construction.
	if n.parent.ref != nil {
		return true
	}
	parentDir := n.Parent()
	if parentDir == nil { // root
		return true
	}
	if !parentDir.IsInLatestSnapshot(latest) {
		return false
	}
	child := parentDir.Child(n.self.Key(), latest)
	if child == nil {
		return false
	}
	if child.asInode() == n {
		return true
	}
	if !child.IsReference() {
		return false
	}
	ref, err := child.AsReference()
	if err != nil {
		return false
	}
	return ref.Referred() != nil && ref.Referred().asInode() == n
}

// IsInSrcSnapshot decides, for a node under a rename reference, whether a
// modification belongs to the pre-rename (source) history: true when no
// snapshot context exists at all, or when the destination-side snapshot id
// recorded at rename time is at least the queried snapshot's id.
func (n *inode) IsInSrcSnapshot(latest *Snapshot) bool {
	if latest == nil {
		return true
	}
	withCount := n.ParentReference()
	if withCount != nil {
		if pr := withCount.ParentReference(); pr != nil {
			if dst, ok := pr.(*DstReference); ok && dst.DstSnapshotID() >= latest.id {
				return true
			}
		}
	}
	return false
}

// Capability probes default to false; each variant overrides its own.

func (n *inode) IsFile() bool      { return false }
func (n *inode) IsDirectory() bool { return false }
func (n *inode) IsSymlink() bool   { return false }
func (n *inode) IsReference() bool { return false }

func (n *inode) AsFile() (*File, error) {
	return nil, &InvalidVariantError{Want: "file", Detail: n.self.DetailString()}
}

func (n *inode) AsDirectory() (*Directory, error) {
	return nil, &InvalidVariantError{Want: "directory", Detail: n.self.DetailString()}
}

func (n *inode) AsSymlink() (*Symlink, error) {
	return nil, &InvalidVariantError{Want: "symlink", Detail: n.self.DetailString()}
}

func (n *inode) AsReference() (*Reference, error) {
	return nil, &InvalidVariantError{Want: "reference", Detail: n.self.DetailString()}
}

// Quota defaults; only Directory carries quota fields.

func (n *inode) NsQuota() int64 { return QuotaUnset }

func (n *inode) DsQuota() int64 { return QuotaUnset }

func (n *inode) IsQuotaSet() bool {
	return n.self.NsQuota() >= 0 || n.self.DsQuota() >= 0
}

// AddSpaceConsumed propagates a space delta from this node up through every
// directory on its ancestor chain. The whole chain is verified before any
// counter commits, so a QuotaExceededError leaves all usage unchanged.
func (n *inode) AddSpaceConsumed(nsDelta, dsDelta int64) error {
	var chain []*Directory
	if d, ok := n.self.(*Directory); ok {
		chain = append(chain, d)
	}
	for p := n.Parent(); p != nil; p = p.Parent() {
		chain = append(chain, p)
	}
	for _, d := range chain {
		if err := d.verifyQuota(nsDelta, dsDelta); err != nil {
			return err
		}
	}
	for _, d := range chain {
		d.nsCount += nsDelta
		d.dsCount += dsDelta
	}
	return nil
}

// ContentSummary computes the flattened live-view summary of this subtree.
func (n *inode) ContentSummary() ContentSummary {
	cur := n.self.ComputeContentSummary(NewContentCountsMap()).Counts(ContentCurrent)
	return ContentSummary{
		Length:         cur.Length,
		FileCount:      cur.FileCount,
		DirectoryCount: cur.DirectoryCount,
		SymlinkCount:   cur.SymlinkCount,
		Diskspace:      cur.Diskspace,
		NsQuota:        n.self.NsQuota(),
		DsQuota:        n.self.DsQuota(),
	}
}

func (n *inode) variantName() string {
	switch {
	case n.self.IsReference():
		return "reference"
	case n.self.IsDirectory():
		return "directory"
	case n.self.IsSymlink():
		return "symlink"
	case n.self.IsFile():
		return "file"
	default:
		return "node"
	}
}

// parentString summarizes the parent link for diagnostics.
func (n *inode) parentString() string {
	if ref, ok := n.parent.Reference(); ok {
		return "parentRef=" + ref.LocalName() + "->"
	}
	if dir, ok := n.parent.Directory(); ok {
		return "parentDir=" + dir.LocalName() + "/"
	}
	return "parent=nil"
}

func (n *inode) DetailString() string {
	return fmt.Sprintf("%s(%s@%d), %s",
		n.self.LocalName(), n.variantName(), n.id, n.parentString())
}
