package namefs

import (
	"testing"

	"github.com/brettbedarf/namefs/config"
	"github.com/brettbedarf/namefs/internal/util"
	"github.com/brettbedarf/namefs/namespace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureReclaimer records every batch handed to it.
type captureReclaimer struct {
	blocks []namespace.Block
}

func (c *captureReclaimer) Reclaim(blocks []namespace.Block) error {
	c.blocks = append(c.blocks, blocks...)
	return nil
}

func createTestFS(t *testing.T) (*NameFS, *captureReclaimer) {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.BlockSize = 1024
	rec := &captureReclaimer{}
	return NewWithReclaimer(cfg, rec), rec
}

func TestAddDirNode_WithQuotaAndAttrs(t *testing.T) {
	t.Parallel()

	fs, _ := createTestFS(t)
	dir, err := fs.AddDirNode(&DirCreateRequest{
		NodeCreateRequest: NodeCreateRequest{
			Path: "/data",
			Type: DirNodeType,
			AttrCreateRequest: AttrCreateRequest{
				Owner: util.Pointer("alice"),
				Group: util.Pointer("staff"),
				Perm:  util.Pointer(uint16(0o700)),
			},
		},
		NsQuota: util.Pointer(int64(100)),
	})
	require.NoError(t, err)

	assert.Equal(t, "alice", dir.Owner(nil))
	assert.Equal(t, "staff", dir.Group(nil))
	assert.Equal(t, namespace.Permission(0o700), dir.Perm(nil))
	assert.Equal(t, int64(100), dir.NsQuota())
	assert.Equal(t, namespace.QuotaUnset, dir.DsQuota())
}

func TestAddFileNode(t *testing.T) {
	t.Parallel()

	fs, _ := createTestFS(t)
	file, err := fs.AddFileNode(&FileCreateRequest{
		NodeCreateRequest: NodeCreateRequest{Path: "/data/f", Type: FileNodeType},
		Length:            3000,
	})
	require.NoError(t, err)
	assert.Len(t, file.Blocks(), 3)
	assert.Equal(t, "/data/f", namespace.FullPathName(file))
}

func TestAddSymlinkNode(t *testing.T) {
	t.Parallel()

	fs, _ := createTestFS(t)
	link, err := fs.AddSymlinkNode(&SymlinkCreateRequest{
		NodeCreateRequest: NodeCreateRequest{Path: "/l", Type: SymlinkNodeType},
		Target:            "/data",
	})
	require.NoError(t, err)
	assert.Equal(t, "/data", link.Target())
}

func TestAddNode_Dispatch(t *testing.T) {
	t.Parallel()

	fs, _ := createTestFS(t)
	node, err := fs.AddNode(&DirCreateRequest{
		NodeCreateRequest: NodeCreateRequest{Path: "/d", Type: DirNodeType},
	})
	require.NoError(t, err)
	assert.True(t, node.IsDirectory())
}

func TestRemove_FeedsReclaimer(t *testing.T) {
	t.Parallel()

	fs, rec := createTestFS(t)
	file, err := fs.AddFileNode(&FileCreateRequest{
		NodeCreateRequest: NodeCreateRequest{Path: "/f", Type: FileNodeType},
		Length:            2048,
	})
	require.NoError(t, err)
	blocks := append([]namespace.Block(nil), file.Blocks()...)

	require.NoError(t, fs.Remove("/f"))
	assert.ElementsMatch(t, blocks, rec.blocks)
}

func TestRemoveSnapshot_FeedsReclaimer(t *testing.T) {
	t.Parallel()

	fs, rec := createTestFS(t)
	file, err := fs.AddFileNode(&FileCreateRequest{
		NodeCreateRequest: NodeCreateRequest{Path: "/f", Type: FileNodeType},
		Length:            1024,
	})
	require.NoError(t, err)
	blocks := append([]namespace.Block(nil), file.Blocks()...)

	fs.TakeSnapshot("s1")
	require.NoError(t, fs.Remove("/f"))
	assert.Empty(t, rec.blocks, "the snapshot still retains the file")

	require.NoError(t, fs.RemoveSnapshot("s1"))
	assert.ElementsMatch(t, blocks, rec.blocks)
}
