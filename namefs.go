// Package namefs is the request-facing surface over the versioned namespace
// core. Entrypoints (cli, api layers) build create requests and hand them to
// a NameFS; the namespace package underneath owns the tree, snapshots, and
// quota accounting.
package namefs

import (
	"github.com/brettbedarf/namefs/config"
	"github.com/brettbedarf/namefs/namespace"
)

// NameFS binds the namespace core to a block reclaimer and applies typed
// create requests to it.
type NameFS struct {
	*namespace.Namespace
	cfg       *config.Config
	reclaimer BlockReclaimer
}

// New creates a NameFS instance given your config. Freed blocks are
// discarded; use NewWithReclaimer to hand them to block storage.
func New(cfg *config.Config) *NameFS {
	return NewWithReclaimer(cfg, NoopReclaimer{})
}

// NewWithReclaimer creates a NameFS whose deletions feed the given reclaimer.
func NewWithReclaimer(cfg *config.Config, r BlockReclaimer) *NameFS {
	return &NameFS{
		namespace.NewNamespace(cfg),
		cfg,
		r,
	}
}

// AddDirNode creates the directory described by the request, including any
// missing ancestors, and applies its attributes and quotas.
func (f *NameFS) AddDirNode(req *DirCreateRequest) (*namespace.Directory, error) {
	dir, err := f.Mkdirs(req.Path)
	if err != nil {
		return nil, err
	}
	if err := f.applyAttrs(req.Path, req.GetAttr()); err != nil {
		return nil, err
	}
	if req.NsQuota != nil || req.DsQuota != nil {
		nsQuota := namespace.QuotaUnset
		dsQuota := namespace.QuotaUnset
		if req.NsQuota != nil {
			nsQuota = *req.NsQuota
		}
		if req.DsQuota != nil {
			dsQuota = *req.DsQuota
		}
		if err := f.SetQuota(req.Path, nsQuota, dsQuota); err != nil {
			return nil, err
		}
	}
	return dir, nil
}

// AddFileNode creates the file described by the request.
func (f *NameFS) AddFileNode(req *FileCreateRequest) (*namespace.File, error) {
	file, err := f.CreateFile(req.Path, req.Length)
	if err != nil {
		return nil, err
	}
	if err := f.applyAttrs(req.Path, req.GetAttr()); err != nil {
		return nil, err
	}
	return file, nil
}

// AddSymlinkNode creates the symlink described by the request.
func (f *NameFS) AddSymlinkNode(req *SymlinkCreateRequest) (*namespace.Symlink, error) {
	link, err := f.CreateSymlink(req.Path, req.Target)
	if err != nil {
		return nil, err
	}
	if err := f.applyAttrs(req.Path, req.GetAttr()); err != nil {
		return nil, err
	}
	return link, nil
}

// AddNode dispatches a request to the matching Add method.
func (f *NameFS) AddNode(req NodeRequestor) (namespace.Node, error) {
	switch r := req.(type) {
	case *DirCreateRequest:
		return f.AddDirNode(r)
	case *FileCreateRequest:
		return f.AddFileNode(r)
	case *SymlinkCreateRequest:
		return f.AddSymlinkNode(r)
	default:
		return nil, &namespace.InvalidPathError{
			Path:   req.GetPath(),
			Reason: "unsupported request type " + string(req.GetType()),
		}
	}
}

// Remove deletes the node at path and hands any freed blocks to the
// reclaimer.
func (f *NameFS) Remove(path string) error {
	batch, err := f.Delete(path)
	if err != nil {
		return err
	}
	return f.reclaim(batch)
}

// RemoveSnapshot deletes a snapshot by name and hands any freed blocks to
// the reclaimer.
func (f *NameFS) RemoveSnapshot(name string) error {
	batch, err := f.DeleteSnapshot(name)
	if err != nil {
		return err
	}
	return f.reclaim(batch)
}

func (f *NameFS) reclaim(batch *namespace.BlockDeletionBatch) error {
	if batch.Len() == 0 {
		return nil
	}
	if err := f.reclaimer.Reclaim(batch.Blocks()); err != nil {
		return err
	}
	batch.Clear()
	return nil
}

func (f *NameFS) applyAttrs(path string, attr *AttrCreateRequest) error {
	if attr == nil {
		return nil
	}
	if attr.Owner != nil || attr.Group != nil {
		node, err := f.Resolve(path)
		if err != nil {
			return err
		}
		owner := node.Owner(nil)
		group := node.Group(nil)
		if attr.Owner != nil {
			owner = *attr.Owner
		}
		if attr.Group != nil {
			group = *attr.Group
		}
		if err := f.SetOwner(path, owner, group); err != nil {
			return err
		}
	}
	if attr.Perm != nil {
		if err := f.SetPermission(path, namespace.Permission(*attr.Perm)); err != nil {
			return err
		}
	}
	if attr.Mtime != nil || attr.Atime != nil {
		mtime := int64(-1)
		atime := int64(-1)
		if attr.Mtime != nil {
			mtime = *attr.Mtime
		}
		if attr.Atime != nil {
			atime = *attr.Atime
		}
		if err := f.SetTimes(path, mtime, atime); err != nil {
			return err
		}
	}
	return nil
}
