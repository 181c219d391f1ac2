package namespace

import (
	"strings"
	"testing"

	"github.com/brettbedarf/namefs/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	// small blocks so short files span several of them
	cfg.BlockSize = 1024
	cfg.Replication = 2
	return cfg
}

func createTestNS(t *testing.T) *Namespace {
	t.Helper()
	return NewNamespace(createTestConfig())
}

// createFile is a shorthand that fails the test on error.
func createFile(t *testing.T, ns *Namespace, path string, length int64) *File {
	t.Helper()
	f, err := ns.CreateFile(path, length)
	require.NoError(t, err)
	return f
}

func TestNewNamespace_Root(t *testing.T) {
	t.Parallel()

	ns := createTestNS(t)
	root := ns.Root()

	assert.True(t, root.IsRoot())
	assert.Equal(t, uint64(RootID), root.ID())
	assert.Equal(t, "hdfs", root.Owner(nil))
	assert.Equal(t, "supergroup", root.Group(nil))
	assert.Nil(t, root.Parent())

	got, ok := ns.NodeByID(RootID)
	require.True(t, ok)
	assert.Same(t, root, got)
}

func TestMkdirs_CreatesMissingAncestors(t *testing.T) {
	t.Parallel()

	ns := createTestNS(t)
	leaf, err := ns.Mkdirs("/a/b/c")
	require.NoError(t, err)

	assert.Equal(t, "c", leaf.LocalName())
	assert.Equal(t, "/a/b/c", FullPathName(leaf))

	// idempotent
	again, err := ns.Mkdirs("/a/b/c")
	require.NoError(t, err)
	assert.Same(t, leaf, again)

	// root usage counts the three new directories
	assert.Equal(t, int64(4), ns.Root().SpaceConsumed().Namespace)
}

func TestMkdirs_FileInTheWay(t *testing.T) {
	t.Parallel()

	ns := createTestNS(t)
	createFile(t, ns, "/a/f", 10)

	_, err := ns.Mkdirs("/a/f/b")
	var verr *InvalidVariantError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "directory", verr.Want)
}

func TestCreateFile_BlocksAndUsage(t *testing.T) {
	t.Parallel()

	ns := createTestNS(t)
	f := createFile(t, ns, "/data/f1", 2500)

	// 2500 bytes over 1024-byte blocks
	assert.Len(t, f.Blocks(), 3)
	assert.Equal(t, int64(2500), f.Length(nil))

	usage := ns.Root().SpaceConsumed()
	assert.Equal(t, int64(3), usage.Namespace, "root, /data, and the file")
	assert.Equal(t, int64(2500*2), usage.Diskspace, "length times replication")
}

func TestCreateFile_ZeroLengthGetsOneBlock(t *testing.T) {
	t.Parallel()

	ns := createTestNS(t)
	f := createFile(t, ns, "/empty", 0)
	assert.Len(t, f.Blocks(), 1)
}

func TestCreateFile_Duplicate(t *testing.T) {
	t.Parallel()

	ns := createTestNS(t)
	createFile(t, ns, "/a/f", 10)
	_, err := ns.CreateFile("/a/f", 20)
	assert.Error(t, err)
}

func TestCreateSymlink(t *testing.T) {
	t.Parallel()

	ns := createTestNS(t)
	link, err := ns.CreateSymlink("/a/link", "/a/target")
	require.NoError(t, err)

	assert.Equal(t, "/a/target", link.Target())
	assert.True(t, link.IsSymlink())

	resolved, err := ns.Resolve("/a/link")
	require.NoError(t, err)
	assert.Same(t, Node(link), resolved)
}

func TestResolve_NotFound(t *testing.T) {
	t.Parallel()

	ns := createTestNS(t)
	_, err := ns.Resolve("/nope")
	var nferr *PathNotFoundError
	require.ErrorAs(t, err, &nferr)
	assert.Equal(t, "/nope", nferr.Path)
}

func TestDelete_NoSnapshot_FreesBlocks(t *testing.T) {
	t.Parallel()

	ns := createTestNS(t)
	f := createFile(t, ns, "/a/f", 2048)
	blocks := append([]Block(nil), f.Blocks()...)

	batch, err := ns.Delete("/a/f")
	require.NoError(t, err)
	assert.ElementsMatch(t, blocks, batch.Blocks())

	_, err = ns.Resolve("/a/f")
	assert.Error(t, err)

	usage := ns.Root().SpaceConsumed()
	assert.Equal(t, int64(2), usage.Namespace, "root and /a remain")
	assert.Zero(t, usage.Diskspace)

	_, ok := ns.NodeByID(f.ID())
	assert.False(t, ok, "destroyed node leaves the registry")
}

func TestDelete_Subtree(t *testing.T) {
	t.Parallel()

	ns := createTestNS(t)
	createFile(t, ns, "/a/b/f1", 1000)
	createFile(t, ns, "/a/b/f2", 1000)
	_, err := ns.CreateSymlink("/a/b/l", "/x")
	require.NoError(t, err)

	batch, err := ns.Delete("/a/b")
	require.NoError(t, err)
	assert.Equal(t, 2, batch.Len(), "one block per file")

	usage := ns.Root().SpaceConsumed()
	assert.Equal(t, int64(2), usage.Namespace)
	assert.Zero(t, usage.Diskspace)
}

func TestDelete_Root(t *testing.T) {
	t.Parallel()

	ns := createTestNS(t)
	_, err := ns.Delete("/")
	assert.Error(t, err)
}

func TestSetOwnerAndPermission(t *testing.T) {
	t.Parallel()

	ns := createTestNS(t)
	createFile(t, ns, "/a/f", 10)

	require.NoError(t, ns.SetOwner("/a/f", "alice", "staff"))
	require.NoError(t, ns.SetPermission("/a/f", 0o600))

	node, err := ns.Resolve("/a/f")
	require.NoError(t, err)
	assert.Equal(t, "alice", node.Owner(nil))
	assert.Equal(t, "staff", node.Group(nil))
	assert.Equal(t, Permission(0o600), node.Perm(nil))
}

func TestSetTimes(t *testing.T) {
	t.Parallel()

	ns := createTestNS(t)
	createFile(t, ns, "/f", 10)

	require.NoError(t, ns.SetTimes("/f", 1234, -1))
	node, err := ns.Resolve("/f")
	require.NoError(t, err)
	assert.Equal(t, int64(1234), node.ModificationTime(nil))
	assert.Positive(t, node.AccessTime(nil), "atime untouched")
}

func TestContentSummary(t *testing.T) {
	t.Parallel()

	ns := createTestNS(t)
	createFile(t, ns, "/a/f1", 100)
	createFile(t, ns, "/a/b/f2", 200)
	_, err := ns.CreateSymlink("/a/l", "/x")
	require.NoError(t, err)

	cs, err := ns.ContentSummary("/a")
	require.NoError(t, err)
	assert.Equal(t, int64(2), cs.FileCount)
	assert.Equal(t, int64(2), cs.DirectoryCount, "/a and /a/b")
	assert.Equal(t, int64(1), cs.SymlinkCount)
	assert.Equal(t, int64(300), cs.Length)
	assert.Equal(t, int64(600), cs.Diskspace)
}

func TestFullPathName(t *testing.T) {
	t.Parallel()

	ns := createTestNS(t)
	f := createFile(t, ns, "/a/b/f", 10)

	assert.Equal(t, "/a/b/f", FullPathName(f))
	assert.Equal(t, "/", FullPathName(ns.Root()))
}

func TestDumpTree(t *testing.T) {
	t.Parallel()

	ns := createTestNS(t)
	createFile(t, ns, "/a/f", 10)

	var sb strings.Builder
	ns.DumpTree(&sb)
	out := sb.String()
	assert.Contains(t, out, "a(directory@")
	assert.Contains(t, out, "f(file@")
}

func TestSnapshotLifecycle(t *testing.T) {
	t.Parallel()

	ns := createTestNS(t)
	assert.Nil(t, ns.LatestSnapshot())

	s1 := ns.TakeSnapshot("s1")
	s2 := ns.TakeSnapshot("")

	assert.Equal(t, 1, s1.ID())
	assert.Equal(t, "s2", s2.Name(), "generated name follows the id")
	assert.Same(t, s2, ns.LatestSnapshot())

	got, ok := ns.Snapshot("s1")
	require.True(t, ok)
	assert.Same(t, s1, got)

	_, err := ns.DeleteSnapshot("missing")
	assert.Error(t, err)
}
