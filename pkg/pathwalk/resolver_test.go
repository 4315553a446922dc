package pathwalk

import (
	"context"
	"testing"

	"github.com/gokernel/vfscore/pkg/rootfs"
	"github.com/gokernel/vfscore/pkg/simplefs"
	"github.com/gokernel/vfscore/pkg/vfs"
	"github.com/gokernel/vfscore/pkg/vfserr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type ResolverTest struct {
	suite.Suite
	ctx context.Context
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverTest))
}

func (ts *ResolverTest) SetupTest() {
	ts.ctx = context.Background()
}

// TestDotDotCannotEscapeChrootedRoot confines a PathConfig to a
// subdirectory of the real root and verifies that ".." climbed past it
// stays pinned at the chroot boundary instead of reaching the real root's
// other children.
func (ts *ResolverTest) TestDotDotCannotEscapeChrootedRoot() {
	t := ts.T()
	fs := simplefs.New(512, 1024)
	r := rootfs.New(fs)
	realRoot, err := r.RootContainer(ts.ctx)
	require.NoError(t, err)

	jailInode, err := realRoot.Inode.Create(ts.ctx, "jail", vfs.Dir, 0o755, 0)
	require.NoError(t, err)
	jail := r.Wrap(jailInode)
	_, err = realRoot.Inode.Create(ts.ctx, "outside-secret", vfs.Dir, 0o755, 0)
	require.NoError(t, err)

	pc, err := NewPathConfig(ts.ctx, jail, jail)
	require.NoError(t, err)

	res, err := Resolve(ts.ctx, pc, pc.Cwd, "../../../outside-secret", true)
	require.NoError(t, err)

	assert.Equal(t, NotExist, res.Kind, "escaping .. past a chroot must stay pinned at the jail root, never reach the real root's children")
}

// TestResolveIntoSubdirectoryAndBackUpOneLevel confirms ordinary multi-
// component resolution from the real root, and that ".." from "a/b"
// lands back on "a".
func (ts *ResolverTest) TestResolveIntoSubdirectoryAndBackUpOneLevel() {
	t := ts.T()
	fs := simplefs.New(512, 1024)
	r := rootfs.New(fs)
	root, err := r.RootContainer(ts.ctx)
	require.NoError(t, err)

	_, err = root.Inode.Create(ts.ctx, "a", vfs.Dir, 0o755, 0)
	require.NoError(t, err)
	aInode, err := root.Inode.Find(ts.ctx, "a")
	require.NoError(t, err)
	_, err = aInode.Create(ts.ctx, "b", vfs.Dir, 0o755, 0)
	require.NoError(t, err)

	pc, err := NewPathConfig(ts.ctx, root, root)
	require.NoError(t, err)

	res, err := Resolve(ts.ctx, pc, pc.Cwd, "a/b", true)
	require.NoError(t, err)
	require.Equal(t, IsDir, res.Kind)

	back, err := Resolve(ts.ctx, pc, res.Container, "..", true)
	require.NoError(t, err)
	require.Equal(t, IsDir, back.Kind)

	same, err := rootfs.SameLocation(ts.ctx, back.Container, r.Wrap(aInode))
	require.NoError(t, err)
	assert.True(t, same)
}

// makeSymlinkCycle builds link1 -> "link2" and link2 -> "link1" in
// the filesystem's root directory, a two-node cycle that never bottoms
// out at a non-symlink.
func (ts *ResolverTest) makeSymlinkCycle() (*PathConfig, error) {
	fs := simplefs.New(512, 1024)
	r := rootfs.New(fs)
	root, err := r.RootContainer(ts.ctx)
	if err != nil {
		return nil, err
	}

	link1, err := root.Inode.Create(ts.ctx, "link1", vfs.SymLink, 0o777, 0)
	if err != nil {
		return nil, err
	}
	if _, err := link1.WriteAt(ts.ctx, 0, []byte("link2")); err != nil {
		return nil, err
	}

	link2, err := root.Inode.Create(ts.ctx, "link2", vfs.SymLink, 0o777, 0)
	if err != nil {
		return nil, err
	}
	if _, err := link2.WriteAt(ts.ctx, 0, []byte("link1")); err != nil {
		return nil, err
	}

	return NewPathConfig(ts.ctx, root, root)
}

// TestSymlinkCycleIsBounded verifies that a two-node symlink cycle never
// recurses forever: resolving it eventually fails with SymLoop after
// exactly DefaultFollowBudget hops. Each hop in the chain consumes one
// unit of the follow budget; the depth budget is held constant across the
// chain (it only bounds nested multi-component target resolution within a
// single hop), so a tight cycle is caught by the follow budget running
// out, never by depth.
func (ts *ResolverTest) TestSymlinkCycleIsBounded() {
	t := ts.T()
	pc, err := ts.makeSymlinkCycle()
	require.NoError(t, err)

	budget := DefaultFollowBudget
	_, err = ResolveWithBudget(ts.ctx, pc, pc.Cwd, "link1", true, &budget, DefaultDepth)

	require.Error(t, err)
	assert.True(t, vfserr.Is(err, vfserr.SymLoop))
	assert.Equal(t, 0, budget, "a tight cycle should be caught by the follow budget after exactly DefaultFollowBudget hops")
}

// TestSymlinkResolvesToRealFile verifies the non-cyclic, common case: a
// single symlink pointing at an ordinary file resolves to that file.
func (ts *ResolverTest) TestSymlinkResolvesToRealFile() {
	t := ts.T()
	fs := simplefs.New(512, 1024)
	r := rootfs.New(fs)
	root, err := r.RootContainer(ts.ctx)
	require.NoError(t, err)

	_, err = root.Inode.Create(ts.ctx, "target.txt", vfs.File, 0o644, 0)
	require.NoError(t, err)

	link, err := root.Inode.Create(ts.ctx, "link", vfs.SymLink, 0o777, 0)
	require.NoError(t, err)
	_, err = link.WriteAt(ts.ctx, 0, []byte("target.txt"))
	require.NoError(t, err)

	pc, err := NewPathConfig(ts.ctx, root, root)
	require.NoError(t, err)

	res, err := Resolve(ts.ctx, pc, pc.Cwd, "link", true)
	require.NoError(t, err)
	require.Equal(t, IsFile, res.Kind)
	assert.Equal(t, "link", res.Name)
	md, err := res.File.Inode.Metadata(ts.ctx)
	require.NoError(t, err)
	assert.Equal(t, vfs.File, md.Type)
}

// TestUnfollowedSymlinkReportsAsFile confirms followFinal=false leaves the
// final symlink component unresolved, reporting it as a plain (non-dir)
// entry rather than chasing its target.
func (ts *ResolverTest) TestUnfollowedSymlinkReportsAsFile() {
	t := ts.T()
	fs := simplefs.New(512, 1024)
	r := rootfs.New(fs)
	root, err := r.RootContainer(ts.ctx)
	require.NoError(t, err)

	link, err := root.Inode.Create(ts.ctx, "link", vfs.SymLink, 0o777, 0)
	require.NoError(t, err)
	_, err = link.WriteAt(ts.ctx, 0, []byte("nonexistent-target"))
	require.NoError(t, err)

	pc, err := NewPathConfig(ts.ctx, root, root)
	require.NoError(t, err)

	res, err := Resolve(ts.ctx, pc, pc.Cwd, "link", false)
	require.NoError(t, err)
	assert.Equal(t, IsFile, res.Kind)
}
