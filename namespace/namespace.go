package namespace

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brettbedarf/namefs/config"
	"github.com/brettbedarf/namefs/internal/util"
	"github.com/puzpuzpuz/xsync/v4"
)

// RootID is the node id of the namespace root.
const RootID = 1

// Namespace is the metadata service around the node tree. It owns the single
// coarse lock that serializes every mutation and traversal: the node types
// themselves carry no locking and rely entirely on this critical-section
// discipline.
//
// The registry is the owned-slot store for node identity: it maps a node id
// to the node object currently backing it, so id-based callers keep a stable
// logical handle even when the copy-on-write protocol substitutes the
// backing object.
type Namespace struct {
	mu       sync.RWMutex
	cfg      *config.Config
	root     *Directory
	lastID   atomic.Uint64
	registry *xsync.Map[uint64, Node]

	snapshots      []*Snapshot // ascending by id
	lastSnapshotID int
}

// NewNamespace creates an empty namespace holding only the root directory.
func NewNamespace(cfg *config.Config) *Namespace {
	now := nowMillis()
	root := newDirectory(RootID, []byte{}, attributes{
		owner: cfg.RootOwner,
		group: cfg.RootGroup,
		perm:  Permission(cfg.RootPerm),
		mtime: now,
		atime: now,
	})

	ns := &Namespace{cfg: cfg, root: root}
	ns.lastID.Store(RootID)
	ns.registry = xsync.NewMap[uint64, Node]()
	ns.registry.Store(RootID, root)
	return ns
}

// Root returns the root directory.
func (ns *Namespace) Root() *Directory { return ns.root }

// NodeByID returns the node currently backing id.
func (ns *Namespace) NodeByID(id uint64) (Node, bool) {
	return ns.registry.Load(id)
}

// LatestSnapshot returns the most recently taken snapshot, or nil if none
// exists.
func (ns *Namespace) LatestSnapshot() *Snapshot {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	return ns.latestLocked()
}

func (ns *Namespace) latestLocked() *Snapshot {
	if len(ns.snapshots) == 0 {
		return nil
	}
	return ns.snapshots[len(ns.snapshots)-1]
}

// TakeSnapshot records a new point-in-time view of the whole tree.
func (ns *Namespace) TakeSnapshot(name string) *Snapshot {
	logger := util.GetLogger("Namespace.TakeSnapshot")

	ns.mu.Lock()
	defer ns.mu.Unlock()

	ns.lastSnapshotID++
	if name == "" {
		name = fmt.Sprintf("s%d", ns.lastSnapshotID)
	}
	s := newSnapshot(ns.lastSnapshotID, name)
	ns.snapshots = append(ns.snapshots, s)
	logger.Info().Int("id", s.id).Str("name", s.name).Msg("Snapshot taken")
	return s
}

// Snapshot returns the snapshot with the given name.
func (ns *Namespace) Snapshot(name string) (*Snapshot, bool) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	for _, s := range ns.snapshots {
		if s.name == name {
			return s, true
		}
	}
	return nil, false
}

// DeleteSnapshot removes a snapshot and frees whatever only it retained. The
// returned batch carries the blocks to hand to the block-reclamation
// collaborator.
func (ns *Namespace) DeleteSnapshot(name string) (*BlockDeletionBatch, error) {
	logger := util.GetLogger("Namespace.DeleteSnapshot")

	ns.mu.Lock()
	defer ns.mu.Unlock()

	idx := -1
	for i, s := range ns.snapshots {
		if s.name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("snapshot does not exist: %s", name)
	}
	s := ns.snapshots[idx]
	var prior *Snapshot
	if idx > 0 {
		prior = ns.snapshots[idx-1]
	}

	batch := NewBlockDeletionBatch()
	delta, err := ns.root.CleanSubtree(s, prior, batch)
	if err != nil {
		return nil, err
	}
	ns.snapshots = append(ns.snapshots[:idx], ns.snapshots[idx+1:]...)
	ns.dropRemoved(batch)
	logger.Info().Int("id", s.id).Str("name", s.name).
		Int64("freedNamespace", -delta.Namespace).Int64("freedDiskspace", -delta.Diskspace).
		Int("blocks", batch.Len()).Msg("Snapshot deleted")
	return batch, nil
}

// Mkdirs creates every missing directory along path and returns the leaf.
// It is equivalent to `mkdir -p`: existing directories are reused and an
// existing leaf is not an error.
func (ns *Namespace) Mkdirs(path string) (*Directory, error) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	return ns.mkdirsLocked(path)
}

func (ns *Namespace) mkdirsLocked(path string) (*Directory, error) {
	logger := util.GetLogger("Namespace.Mkdirs")

	names, err := GetPathNames(path)
	if err != nil {
		return nil, err
	}
	latest := ns.latestLocked()
	now := nowMillis()

	cur := ns.root
	newCnt := 0
	for _, name := range names {
		if child := cur.Child([]byte(name), nil); child != nil {
			dir, err := child.AsDirectory()
			if err != nil {
				return nil, err
			}
			cur = dir
			continue
		}
		if err := cur.AddSpaceConsumed(1, 0); err != nil {
			return nil, err
		}
		dir := newDirectory(ns.lastID.Add(1), []byte(name), attributes{
			owner: ns.cfg.RootOwner,
			group: ns.cfg.RootGroup,
			perm:  Permission(ns.cfg.DirPerm),
			mtime: now,
			atime: now,
		})
		if err := cur.AddChild(dir, latest); err != nil {
			return nil, err
		}
		if _, err := cur.UpdateModificationTime(now, latest); err != nil {
			return nil, err
		}
		ns.registry.Store(dir.ID(), dir)
		newCnt++
		cur = dir
	}
	if newCnt > 0 {
		logger.Debug().Str("path", path).Msg(fmt.Sprintf("Created %d new dir(s)", newCnt))
	}
	return cur, nil
}

// CreateFile creates a file of the given length at path, creating missing
// ancestor directories. Blocks are allocated from the configured block size
// and the file is charged against every quota on its ancestor chain before
// it is linked in.
func (ns *Namespace) CreateFile(path string, length int64) (*File, error) {
	logger := util.GetLogger("Namespace.CreateFile")

	ns.mu.Lock()
	defer ns.mu.Unlock()

	dirPath, name, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	parent, err := ns.mkdirsLocked(dirPath)
	if err != nil {
		logger.Error().Err(err).Str("path", path).Msg("Failed to create file's ancestor directory(s)")
		return nil, err
	}
	if parent.Child([]byte(name), nil) != nil {
		return nil, fmt.Errorf("file already exists at path %s", path)
	}

	replication := ns.cfg.Replication
	if err := parent.AddSpaceConsumed(1, length*int64(replication)); err != nil {
		logger.Debug().Err(err).Str("path", path).Msg("Quota rejected file create")
		return nil, err
	}

	numBlocks := int(length / ns.cfg.BlockSize)
	if length%ns.cfg.BlockSize != 0 || length == 0 {
		numBlocks++
	}
	blocks := make([]Block, 0, numBlocks)
	for range numBlocks {
		blocks = append(blocks, NewBlock())
	}

	now := nowMillis()
	latest := ns.latestLocked()
	file := newFile(ns.lastID.Add(1), []byte(name), attributes{
		owner: ns.cfg.RootOwner,
		group: ns.cfg.RootGroup,
		perm:  Permission(ns.cfg.FilePerm),
		mtime: now,
		atime: now,
	}, length, replication, blocks)
	if err := parent.AddChild(file, latest); err != nil {
		return nil, err
	}
	if _, err := parent.UpdateModificationTime(now, latest); err != nil {
		return nil, err
	}
	ns.registry.Store(file.ID(), file)
	logger.Debug().Str("path", path).Int64("length", length).Msg("Added new file node")
	return file, nil
}

// CreateSymlink creates a symbolic link at path pointing at target.
func (ns *Namespace) CreateSymlink(path, target string) (*Symlink, error) {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	dirPath, name, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	parent, err := ns.mkdirsLocked(dirPath)
	if err != nil {
		return nil, err
	}
	if parent.Child([]byte(name), nil) != nil {
		return nil, fmt.Errorf("node already exists at path %s", path)
	}
	if err := parent.AddSpaceConsumed(1, 0); err != nil {
		return nil, err
	}

	now := nowMillis()
	latest := ns.latestLocked()
	link := newSymlink(ns.lastID.Add(1), []byte(name), attributes{
		owner: ns.cfg.RootOwner,
		group: ns.cfg.RootGroup,
		perm:  Permission(ns.cfg.FilePerm),
		mtime: now,
		atime: now,
	}, target)
	if err := parent.AddChild(link, latest); err != nil {
		return nil, err
	}
	if _, err := parent.UpdateModificationTime(now, latest); err != nil {
		return nil, err
	}
	ns.registry.Store(link.ID(), link)
	return link, nil
}

// Resolve returns the node at path, as stored in its parent: a rename leaves
// a reference there, and Resolve does not unwrap it.
func (ns *Namespace) Resolve(path string) (Node, error) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	return ns.resolveLocked(path)
}

func (ns *Namespace) resolveLocked(path string) (Node, error) {
	names, err := GetPathNames(path)
	if err != nil {
		return nil, err
	}
	var cur Node = ns.root
	for _, name := range names {
		dir, err := cur.AsDirectory()
		if err != nil {
			return nil, err
		}
		child := dir.Child([]byte(name), nil)
		if child == nil {
			return nil, &PathNotFoundError{Path: path}
		}
		cur = child
	}
	return cur, nil
}

// Delete removes the node at path from the current tree, tombstoning it when
// the latest snapshot still needs it. The returned batch carries reclaimed
// blocks; it is empty when everything was retained.
func (ns *Namespace) Delete(path string) (*BlockDeletionBatch, error) {
	logger := util.GetLogger("Namespace.Delete")

	ns.mu.Lock()
	defer ns.mu.Unlock()

	node, err := ns.resolveLocked(path)
	if err != nil {
		return nil, err
	}
	if node.IsRoot() {
		return nil, fmt.Errorf("cannot delete the namespace root")
	}
	parent := node.Parent()
	latest := ns.latestLocked()

	retained, err := parent.RemoveChild(node, latest)
	if err != nil {
		return nil, err
	}
	var prior *Snapshot
	if retained {
		prior = latest
	}

	batch := NewBlockDeletionBatch()
	delta, err := node.CleanSubtree(nil, prior, batch)
	if err != nil {
		return nil, err
	}
	if err := parent.AddSpaceConsumed(delta.Namespace, delta.Diskspace); err != nil {
		return nil, err
	}
	ns.dropRemoved(batch)
	if _, err := parent.UpdateModificationTime(nowMillis(), latest); err != nil {
		return nil, err
	}
	logger.Debug().Str("path", path).Bool("retained", retained).
		Int("blocks", batch.Len()).Msg("Deleted node")
	return batch, nil
}

// Rename moves the node at src to dst. When the latest snapshot still covers
// the source, the move is expressed through the reference mechanism: the
// source directory's snapshot retains a WithName, the destination gains a
// DstReference, and both share the node through a WithCount.
func (ns *Namespace) Rename(src, dst string) error {
	logger := util.GetLogger("Namespace.Rename")

	ns.mu.Lock()
	defer ns.mu.Unlock()

	srcNode, err := ns.resolveLocked(src)
	if err != nil {
		return err
	}
	if srcNode.IsRoot() {
		return fmt.Errorf("cannot rename the namespace root")
	}
	srcParent := srcNode.Parent()

	dstDirPath, dstName, err := splitPath(dst)
	if err != nil {
		return err
	}
	dstParentNode, err := ns.resolveLocked(dstDirPath)
	if err != nil {
		return err
	}
	dstParent, err := dstParentNode.AsDirectory()
	if err != nil {
		return err
	}
	if dstParent.Child([]byte(dstName), nil) != nil {
		return fmt.Errorf("node already exists at path %s", dst)
	}

	// verify the destination chain before mutating anything so a quota
	// rejection aborts the whole rename
	usage := *srcNode.ComputeQuotaUsage(&QuotaCounts{}, false)
	for d := dstParent; d != nil; d = d.Parent() {
		if err := d.verifyQuota(usage.Namespace, usage.Diskspace); err != nil {
			return err
		}
	}

	latest := ns.latestLocked()
	now := nowMillis()

	if latest != nil && srcNode.IsInLatestSnapshot(latest) {
		// the snapshot still needs the pre-rename ancestry
		wc := NewWithCount(srcNode)
		srcName := append([]byte(nil), srcNode.LocalNameBytes()...)
		wn := NewWithName(wc, srcName, latest.id)
		retained, err := srcParent.removeChild(srcNode, latest, wn)
		if err != nil {
			return err
		}
		if !retained {
			// IsInLatestSnapshot held, so the parent must have retained it
			panic(fmt.Sprintf("rename source %s not retained by %s", srcNode.DetailString(), srcParent.DetailString()))
		}
		wn.SetParent(srcParent)

		dr := NewDstReference(wc, latest.id)
		srcNode.SetLocalName([]byte(dstName))
		if err := dstParent.AddChild(dr, latest); err != nil {
			return err
		}
		if err := dstParent.AddSpaceConsumed(usage.Namespace, usage.Diskspace); err != nil {
			return err
		}
	} else {
		if _, err := srcParent.RemoveChild(srcNode, latest); err != nil {
			return err
		}
		if err := srcParent.AddSpaceConsumed(-usage.Namespace, -usage.Diskspace); err != nil {
			return err
		}
		srcNode.SetLocalName([]byte(dstName))
		if err := dstParent.AddChild(srcNode, latest); err != nil {
			return err
		}
		if err := dstParent.AddSpaceConsumed(usage.Namespace, usage.Diskspace); err != nil {
			return err
		}
	}

	if _, err := srcParent.UpdateModificationTime(now, latest); err != nil {
		return err
	}
	if _, err := dstParent.UpdateModificationTime(now, latest); err != nil {
		return err
	}
	logger.Debug().Str("src", src).Str("dst", dst).Msg("Renamed node")
	return nil
}

// SetOwner changes the owner and group of the node at path through the
// copy-on-write protocol.
func (ns *Namespace) SetOwner(path, owner, group string) error {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	node, err := ns.resolveLocked(path)
	if err != nil {
		return err
	}
	latest := ns.latestLocked()
	updated, err := node.SetOwner(owner, latest)
	if err != nil {
		return err
	}
	if updated, err = updated.SetGroup(group, latest); err != nil {
		return err
	}
	ns.registry.Store(updated.ID(), updated)
	return nil
}

// SetPermission changes the permission bits of the node at path.
func (ns *Namespace) SetPermission(path string, perm Permission) error {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	node, err := ns.resolveLocked(path)
	if err != nil {
		return err
	}
	updated, err := node.SetPerm(perm, ns.latestLocked())
	if err != nil {
		return err
	}
	ns.registry.Store(updated.ID(), updated)
	return nil
}

// SetTimes sets modification and access times of the node at path. A
// negative value leaves the corresponding time unchanged.
func (ns *Namespace) SetTimes(path string, mtime, atime int64) error {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	node, err := ns.resolveLocked(path)
	if err != nil {
		return err
	}
	latest := ns.latestLocked()
	updated := node
	if mtime >= 0 {
		if updated, err = updated.SetModificationTime(mtime, latest); err != nil {
			return err
		}
	}
	if atime >= 0 {
		if updated, err = updated.SetAccessTime(atime, latest); err != nil {
			return err
		}
	}
	ns.registry.Store(updated.ID(), updated)
	return nil
}

// SetQuota configures the namespace/diskspace quotas of the directory at
// path. QuotaUnset clears a quota.
func (ns *Namespace) SetQuota(path string, nsQuota, dsQuota int64) error {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	node, err := ns.resolveLocked(path)
	if err != nil {
		return err
	}
	dir, err := node.AsDirectory()
	if err != nil {
		return err
	}
	if _, err := dir.SetQuota(nsQuota, dsQuota, ns.latestLocked()); err != nil {
		return err
	}
	return nil
}

// ContentSummary computes the live-view summary of the subtree at path.
func (ns *Namespace) ContentSummary(path string) (ContentSummary, error) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	node, err := ns.resolveLocked(path)
	if err != nil {
		return ContentSummary{}, err
	}
	return node.ContentSummary(), nil
}

// dropRemoved releases the registry slots of every node destroyed into the
// batch.
func (ns *Namespace) dropRemoved(batch *BlockDeletionBatch) {
	for _, id := range batch.RemovedNodeIDs() {
		ns.registry.Delete(id)
	}
}

// splitPath separates an absolute path into its parent directory path and
// leaf name.
func splitPath(path string) (dir, name string, err error) {
	names, err := GetPathNames(path)
	if err != nil {
		return "", "", err
	}
	if len(names) == 0 {
		return "", "", &InvalidPathError{Path: path, Reason: "path has no leaf component"}
	}
	name = names[len(names)-1]
	components := make([][]byte, 0, len(names))
	components = append(components, []byte{})
	for _, n := range names[:len(names)-1] {
		components = append(components, []byte(n))
	}
	dir = ConstructPath(components, 0, len(components))
	if dir == "" {
		dir = Separator
	}
	return dir, name, nil
}

// FullPathName rebuilds the absolute path of a node by walking parent links
// to the root. A renamed node reports its post-rename ancestry, since parent
// resolution follows the reference to its destination.
func FullPathName(n Node) string {
	if n == nil {
		return ""
	}
	var components [][]byte
	for cur := n; cur != nil; {
		components = append(components, cur.LocalNameBytes())
		parent := cur.Parent()
		if parent == nil {
			break
		}
		cur = parent
	}
	// reverse into root-first order
	for i, j := 0, len(components)-1; i < j; i, j = i+1, j-1 {
		components[i], components[j] = components[j], components[i]
	}
	path := ConstructPath(components, 0, len(components))
	if path == "" {
		return Separator
	}
	return path
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
