package rootfs

import (
	"context"
	"testing"
	"weak"

	"github.com/gokernel/vfscore/pkg/simplefs"
	"github.com/gokernel/vfscore/pkg/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type RootFSTest struct {
	suite.Suite
	ctx context.Context
}

func TestRootFSSuite(t *testing.T) {
	suite.Run(t, new(RootFSTest))
}

func (ts *RootFSTest) SetupTest() {
	ts.ctx = context.Background()
}

// newMountedTree builds a parent RootFS with a directory "mnt" at which a
// second, independent RootFS is mounted, and returns both root containers
// plus the parent's "mnt" container (pre-mount-crossing).
func (ts *RootFSTest) newMountedTree() (parentRoot *Container, childRoot *Container, mnt *Container) {
	t := ts.T()

	parentFS := simplefs.New(512, 1024)
	parent := New(parentFS)
	parentRoot, err := parent.RootContainer(ts.ctx)
	require.NoError(t, err)

	mntInode, err := parentRoot.Inode.Create(ts.ctx, "mnt", vfs.Dir, 0o755, 0)
	require.NoError(t, err)
	mnt = parent.Wrap(mntInode)

	childFS := simplefs.New(512, 1024)
	child := New(childFS)
	childRoot, err = child.RootContainer(ts.ctx)
	require.NoError(t, err)

	md, err := mntInode.Metadata(ts.ctx)
	require.NoError(t, err)
	parent.Mount(md.InodeNo, child, mnt)

	return parentRoot, childRoot, mnt
}

// TestMountCrossingDescendsIntoChild verifies that resolving the mounted
// directory name returns the child RootFS's root, not the parent's plain
// "mnt" directory inode.
func (ts *RootFSTest) TestMountCrossingDescendsIntoChild() {
	parentRoot, childRoot, _ := ts.newMountedTree()

	crossed, err := parentRoot.Find(ts.ctx, false, "mnt")
	require.NoError(ts.T(), err)

	same, err := SameLocation(ts.ctx, crossed, childRoot)
	require.NoError(ts.T(), err)
	assert.True(ts.T(), same, "expected descent through the mount point to land on the child RootFS's root")
	assert.Equal(ts.T(), childRoot.VFS(), crossed.VFS())
}

// TestDotDotAscendsBackThroughMountPoint verifies that ".." from a child
// RootFS's root climbs back into the parent filesystem, landing on the
// directory that contains the mount point (here the parent's root), and
// that crossing back up releases the live-container claim Unmount checks.
func (ts *RootFSTest) TestDotDotAscendsBackThroughMountPoint() {
	parentRoot, childRoot, _ := ts.newMountedTree()

	crossed, err := parentRoot.Find(ts.ctx, false, "mnt")
	require.NoError(ts.T(), err)
	same, err := SameLocation(ts.ctx, crossed, childRoot)
	require.NoError(ts.T(), err)
	require.True(ts.T(), same)

	back, err := crossed.Find(ts.ctx, false, "..")
	require.NoError(ts.T(), err)

	sameAsParentRoot, err := SameLocation(ts.ctx, back, parentRoot)
	require.NoError(ts.T(), err)
	assert.True(ts.T(), sameAsParentRoot, "expected .. from the child root to land on the parent directory of the mount point")
}

// TestUnmountRefusesWhileContainersAreLive verifies the liveContainers
// bookkeeping: a descent that hasn't been matched by an ascent (Release)
// keeps Unmount from succeeding, and an ascent that balances it lets
// Unmount proceed.
func (ts *RootFSTest) TestUnmountRefusesWhileContainersAreLive() {
	t := ts.T()

	parentFS := simplefs.New(512, 1024)
	parent := New(parentFS)
	parentRoot, err := parent.RootContainer(ts.ctx)
	require.NoError(t, err)

	mntInode, err := parentRoot.Inode.Create(ts.ctx, "mnt", vfs.Dir, 0o755, 0)
	require.NoError(t, err)
	mnt := parent.Wrap(mntInode)

	childFS := simplefs.New(512, 1024)
	child := New(childFS)
	md, err := mntInode.Metadata(ts.ctx)
	require.NoError(t, err)
	parent.Mount(md.InodeNo, child, mnt)

	crossed, err := parentRoot.Find(ts.ctx, false, "mnt")
	require.NoError(t, err)

	err = parent.Unmount(md.InodeNo)
	assert.ErrorIs(t, err, ErrMountBusy)

	back, err := crossed.Find(ts.ctx, false, "..")
	require.NoError(t, err)
	sameAsParentRoot, err := SameLocation(ts.ctx, back, parentRoot)
	require.NoError(t, err)
	require.True(t, sameAsParentRoot)

	err = parent.Unmount(md.InodeNo)
	assert.NoError(t, err, "Unmount should succeed once the crossed container has ascended back out")
}

// TestWeakSelfReferenceInvariantPanics exercises the structural invariant
// a RootFS's weak self-reference protects: minting a container from a
// RootFS value that has become otherwise unreachable panics rather than
// handing back a container pointing at a collected object.
func (ts *RootFSTest) TestWeakSelfReferenceInvariantPanics() {
	fs := simplefs.New(512, 1024)
	r := New(fs)
	r.self = weak.Pointer[RootFS]{}

	assert.Panics(ts.T(), func() {
		_, _ = r.RootContainer(ts.ctx)
	})
}
