package namespace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteSnapshot_FreesRetainedFile(t *testing.T) {
	t.Parallel()

	ns := createTestNS(t)
	f := createFile(t, ns, "/d/f", 2048)
	blocks := append([]Block(nil), f.Blocks()...)

	ns.TakeSnapshot("s1")
	batch, err := ns.Delete("/d/f")
	require.NoError(t, err)
	assert.Zero(t, batch.Len())

	usage := ns.Root().SpaceConsumed()
	assert.Equal(t, int64(3), usage.Namespace, "retained file still consumes quota")
	assert.Equal(t, int64(2048*2), usage.Diskspace)

	batch, err = ns.DeleteSnapshot("s1")
	require.NoError(t, err)
	assert.ElementsMatch(t, blocks, batch.Blocks(), "nothing retains the file anymore")

	usage = ns.Root().SpaceConsumed()
	assert.Equal(t, int64(2), usage.Namespace, "root and /d remain")
	assert.Zero(t, usage.Diskspace)
}

func TestDeleteSnapshot_EarlierSnapshotStillRetains(t *testing.T) {
	t.Parallel()

	ns := createTestNS(t)
	f := createFile(t, ns, "/d/f", 1000)
	dir, err := ns.Mkdirs("/d")
	require.NoError(t, err)

	s1 := ns.TakeSnapshot("s1")
	ns.TakeSnapshot("s2")
	_, err = ns.Delete("/d/f")
	require.NoError(t, err)

	// deleting s2 re-attributes its retained state to s1
	batch, err := ns.DeleteSnapshot("s2")
	require.NoError(t, err)
	assert.Zero(t, batch.Len(), "s1 still needs the file")

	retained := dir.Child([]byte("f"), s1)
	require.NotNil(t, retained)
	assert.Same(t, Node(f), retained)

	// dropping the last snapshot finally frees it
	batch, err = ns.DeleteSnapshot("s1")
	require.NoError(t, err)
	assert.Equal(t, 1, batch.Len())
}

func TestDeleteSnapshot_MiddleSnapshotMergesHistory(t *testing.T) {
	t.Parallel()

	ns := createTestNS(t)
	f := createFile(t, ns, "/f", 10)
	require.NoError(t, ns.SetOwner("/f", "v0", "g"))

	s1 := ns.TakeSnapshot("s1")
	require.NoError(t, ns.SetOwner("/f", "v1", "g"))
	ns.TakeSnapshot("s2")
	require.NoError(t, ns.SetOwner("/f", "v2", "g"))

	// s1 already holds its own capture, so s2's record is simply dropped
	_, err := ns.DeleteSnapshot("s2")
	require.NoError(t, err)

	assert.Equal(t, "v0", f.Owner(s1), "view at s1 is unchanged by deleting s2")
	assert.Equal(t, "v2", f.Owner(nil))
}

func TestDeleteSnapshot_MergeCancelsCreateThenDelete(t *testing.T) {
	t.Parallel()

	ns := createTestNS(t)
	dir, err := ns.Mkdirs("/d")
	require.NoError(t, err)

	s1 := ns.TakeSnapshot("s1")
	f := createFile(t, ns, "/d/f", 2048)
	blocks := append([]Block(nil), f.Blocks()...)
	ns.TakeSnapshot("s2")

	batch, err := ns.Delete("/d/f")
	require.NoError(t, err)
	assert.Zero(t, batch.Len(), "s2 still retains the file")

	// the file exists only in the span s1..s2, so dropping s2 leaves no view
	// containing it
	batch, err = ns.DeleteSnapshot("s2")
	require.NoError(t, err)
	assert.ElementsMatch(t, blocks, batch.Blocks())

	assert.Nil(t, dir.Child([]byte("f"), s1), "created after s1, it must not appear in s1's view")
	assert.Nil(t, dir.Child([]byte("f"), nil))

	usage := ns.Root().SpaceConsumed()
	assert.Equal(t, int64(2), usage.Namespace, "root and /d remain")
	assert.Zero(t, usage.Diskspace)

	_, ok := ns.NodeByID(f.ID())
	assert.False(t, ok)
}

func TestDeleteCurrent_DestroysEntriesCreatedAfterSnapshot(t *testing.T) {
	t.Parallel()

	ns := createTestNS(t)
	old := createFile(t, ns, "/d/old", 1000)
	oldBlocks := append([]Block(nil), old.Blocks()...)

	ns.TakeSnapshot("s1")
	late := createFile(t, ns, "/d/late", 1000)
	lateBlocks := append([]Block(nil), late.Blocks()...)

	batch, err := ns.Delete("/d")
	require.NoError(t, err)
	assert.ElementsMatch(t, lateBlocks, batch.Blocks(),
		"only the entry created after the snapshot is freed now")

	usage := ns.Root().SpaceConsumed()
	assert.Equal(t, int64(3), usage.Namespace, "root, /d, and old remain for the snapshot")
	assert.Equal(t, int64(1000*2), usage.Diskspace)

	batch, err = ns.DeleteSnapshot("s1")
	require.NoError(t, err)
	assert.ElementsMatch(t, oldBlocks, batch.Blocks())

	usage = ns.Root().SpaceConsumed()
	assert.Equal(t, int64(1), usage.Namespace, "only root remains")
	assert.Zero(t, usage.Diskspace)
}

func TestDeleteSnapshot_OnlySnapshotOfTombstonedDir(t *testing.T) {
	t.Parallel()

	ns := createTestNS(t)
	createFile(t, ns, "/d/sub/f", 1000)

	ns.TakeSnapshot("s1")
	_, err := ns.Delete("/d")
	require.NoError(t, err)

	batch, err := ns.DeleteSnapshot("s1")
	require.NoError(t, err)
	assert.Equal(t, 1, batch.Len(), "the whole retained subtree is freed")

	usage := ns.Root().SpaceConsumed()
	assert.Equal(t, int64(1), usage.Namespace)
	assert.Zero(t, usage.Diskspace)
}

func TestDestroyAndCollectBlocks_Idempotent(t *testing.T) {
	t.Parallel()

	f := newFile(1, []byte("f"), testAttr(), 100, 2, []Block{NewBlock(), NewBlock()})

	first := NewBlockDeletionBatch()
	f.DestroyAndCollectBlocks(first)
	assert.Equal(t, 2, first.Len())

	second := NewBlockDeletionBatch()
	f.DestroyAndCollectBlocks(second)
	assert.Zero(t, second.Len(), "second destroy contributes nothing")
}

func TestDestroyDirectory_CollectsWholeSubtree(t *testing.T) {
	t.Parallel()

	d := newDirectory(1, []byte("d"), testAttr())
	sub := newDirectory(2, []byte("sub"), testAttr())
	f1 := newFile(3, []byte("f1"), testAttr(), 10, 1, []Block{NewBlock()})
	f2 := newFile(4, []byte("f2"), testAttr(), 10, 1, []Block{NewBlock()})
	require.NoError(t, d.AddChild(sub, nil))
	require.NoError(t, d.AddChild(f1, nil))
	require.NoError(t, sub.AddChild(f2, nil))

	batch := NewBlockDeletionBatch()
	d.DestroyAndCollectBlocks(batch)
	assert.Equal(t, 2, batch.Len())
	assert.Nil(t, f1.Parent(), "destroyed nodes drop their parent link")
}

func TestSymlink_RetainedAndFreed(t *testing.T) {
	t.Parallel()

	ns := createTestNS(t)
	link, err := ns.CreateSymlink("/d/l", "/x")
	require.NoError(t, err)
	dir, err := ns.Mkdirs("/d")
	require.NoError(t, err)

	s1 := ns.TakeSnapshot("s1")
	require.NoError(t, ns.SetOwner("/d/l", "a", "g"))
	_, err = ns.Delete("/d/l")
	require.NoError(t, err)

	retained := dir.Child([]byte("l"), s1)
	require.NotNil(t, retained)
	assert.Same(t, Node(link), retained)

	_, err = ns.DeleteSnapshot("s1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), ns.Root().SpaceConsumed().Namespace)
}
