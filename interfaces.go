package namefs

import "github.com/brettbedarf/namefs/namespace"

// NodeRequestor is an interface implemented by all node create request types
type NodeRequestor interface {
	GetType() NodeCreateRequestType
	GetPath() string
	GetAttr() *AttrCreateRequest
}

// BlockReclaimer receives the blocks freed by deletions. The namespace core
// only tracks block identity; an implementation would hand the batch to
// whatever owns block placement (a block map, an object store, a local
// volume).
type BlockReclaimer interface {
	// Reclaim disposes of every block in the batch. The batch is cleared by
	// the caller after a successful return.
	Reclaim(blocks []namespace.Block) error
}

// NoopReclaimer discards freed blocks. Used when no block storage backs the
// namespace, e.g. in the nsdump tool.
type NoopReclaimer struct{}

func (NoopReclaimer) Reclaim(blocks []namespace.Block) error { return nil }
