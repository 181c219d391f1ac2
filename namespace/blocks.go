package namespace

import "github.com/google/uuid"

// Block is an opaque unit of file data storage. The namespace core only
// tracks block identity; placement and replication live in the external
// block map.
type Block struct {
	ID uuid.UUID
}

// NewBlock allocates a block with a fresh identity.
func NewBlock() Block {
	return Block{ID: uuid.New()}
}

func (b Block) String() string {
	return b.ID.String()
}

// BlockDeletionBatch accumulates blocks slated for reclamation. A single
// batch is threaded through a whole deletion call tree; callers add to it,
// never replace it, so one top-level deletion yields one complete list for
// the block-reclamation collaborator. Every block transitively owned by a
// destroyed subtree appears exactly once.
type BlockDeletionBatch struct {
	toDelete   []Block
	removedIDs []uint64
}

// NewBlockDeletionBatch returns an empty batch.
func NewBlockDeletionBatch() *BlockDeletionBatch {
	return &BlockDeletionBatch{}
}

// Add appends a block to the batch.
func (b *BlockDeletionBatch) Add(blk Block) {
	b.toDelete = append(b.toDelete, blk)
}

// Blocks returns the accumulated blocks.
func (b *BlockDeletionBatch) Blocks() []Block {
	return b.toDelete
}

// Len returns the number of accumulated blocks.
func (b *BlockDeletionBatch) Len() int {
	return len(b.toDelete)
}

// AddRemovedNode records the id of a destroyed node so its registry slot can
// be dropped. References never record their id here: they share their
// target's, and the target may outlive them.
func (b *BlockDeletionBatch) AddRemovedNode(id uint64) {
	b.removedIDs = append(b.removedIDs, id)
}

// RemovedNodeIDs returns the ids of every node destroyed into this batch.
func (b *BlockDeletionBatch) RemovedNodeIDs() []uint64 {
	return b.removedIDs
}

// Clear empties the batch after the blocks have been handed off.
func (b *BlockDeletionBatch) Clear() {
	b.toDelete = nil
}
