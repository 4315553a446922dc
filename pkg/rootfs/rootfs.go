// Package rootfs implements the mountable RootFS wrapper and the
// INodeContainer currency used throughout path resolution. A RootFS
// wraps exactly one vfs.Filesystem and keeps a mount table keyed by inode
// number; crossing a mount point substitutes the child RootFS's root
// inode for the inode found at the mount point, transparently to every
// caller that walks a path.
package rootfs

import (
	"context"
	"sync"
	"sync/atomic"
	"weak"

	"github.com/gokernel/vfscore/internal/metrics"
	"github.com/gokernel/vfscore/pkg/vfs"
	"github.com/gokernel/vfscore/pkg/vfserr"
)

// RootFS wraps one Filesystem with a mount table. The zero value is not
// usable; construct with New.
type RootFS struct {
	fs vfs.Filesystem

	mu          sync.RWMutex
	mountpoints map[uint64]*RootFS // keyed by inode number in fs's root filesystem

	// selfMountpoint is the container in the parent RootFS at which this
	// one is mounted. Nil for the root RootFS of the whole tree.
	selfMountpoint *Container

	// liveContainers counts containers minted by this RootFS for inodes
	// reached by crossing into it from its parent. Unmount refuses while
	// this is non-zero.
	liveContainers atomic.Int64

	// self is a weak handle a RootFS uses to mint containers that carry a
	// reference back to itself, without the RootFS holding a strong
	// self-reference that would otherwise keep it alive forever.
	self weak.Pointer[RootFS]
}

// New wraps fs as a freshly mounted RootFS with no mount table entries and
// no parent (it is the root of its own tree until Mount is called on it
// from elsewhere).
func New(fs vfs.Filesystem) *RootFS {
	r := &RootFS{
		fs:          fs,
		mountpoints: make(map[uint64]*RootFS),
	}
	r.self = weak.Make(r)
	return r
}

// Filesystem returns the wrapped filesystem.
func (r *RootFS) Filesystem() vfs.Filesystem { return r.fs }

// strongSelf upgrades the weak self-reference. This can only fail if the
// RootFS has become unreachable except through this pointer, which would
// mean a container is being minted for an object already collected — a
// structural invariant violation the design prevents (
// "Fatal (panic): violation of the RootFS weak-reference invariant").
func (r *RootFS) strongSelf() *RootFS {
	s := r.self.Value()
	if s == nil {
		panic("rootfs: weak self-reference invariant violated: RootFS collected while still in use")
	}
	return s
}

// RootContainer returns the container addressing this RootFS's root inode.
func (r *RootFS) RootContainer(ctx context.Context) (*Container, error) {
	root, err := r.fs.RootInode(ctx)
	if err != nil {
		return nil, err
	}
	return r.Wrap(root), nil
}

// Wrap builds a container for in within this RootFS.
func (r *RootFS) Wrap(in vfs.INode) *Container {
	return &Container{Inode: in, vfs: r.strongSelf()}
}

// isRootInode reports whether in is this RootFS's own root inode.
func (r *RootFS) isRootInode(ctx context.Context, in vfs.INode) (bool, error) {
	root, err := r.fs.RootInode(ctx)
	if err != nil {
		return false, err
	}
	rootMD, err := root.Metadata(ctx)
	if err != nil {
		return false, err
	}
	inMD, err := in.Metadata(ctx)
	if err != nil {
		return false, err
	}
	return rootMD.InodeNo == inMD.InodeNo, nil
}

// Mount registers child as mounted at the inode numbered ino within r's
// underlying filesystem, and records parentContainer (a container in r
// addressing that same inode) as child's mount point.
func (r *RootFS) Mount(ino uint64, child *RootFS, parentContainer *Container) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mountpoints[ino] = child
	child.selfMountpoint = parentContainer
}

// ErrMountBusy is returned by Unmount when containers minted past the
// mount boundary are still outstanding.
var ErrMountBusy = vfserr.New("rootfs.Unmount", vfserr.DirNotEmpty)

// Unmount removes the mount table entry for ino, refusing if the child
// mounted there still has live containers outstanding.
func (r *RootFS) Unmount(ino uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	child, ok := r.mountpoints[ino]
	if !ok {
		return vfserr.New("rootfs.Unmount", vfserr.NotFound)
	}
	if child.liveContainers.Load() != 0 {
		return ErrMountBusy
	}
	delete(r.mountpoints, ino)
	return nil
}

// OverlaidMountPoint takes a just-resolved container and, if its inode
// number is a mount table key, returns the root container of the mounted
// child RootFS instead — making mounts transparent to descent.
func (r *RootFS) OverlaidMountPoint(ctx context.Context, c *Container) (*Container, error) {
	md, err := c.Inode.Metadata(ctx)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	child, ok := r.mountpoints[md.InodeNo]
	r.mu.RUnlock()
	if !ok {
		return c, nil
	}

	root, err := child.RootContainer(ctx)
	if err != nil {
		return nil, err
	}
	child.liveContainers.Add(1)
	metrics.MountCrossings.WithLabelValues("down").Inc()
	return root, nil
}

// Container pairs an inode with the RootFS it was reached through: the
// currency of all path operations.
type Container struct {
	Inode vfs.INode
	vfs   *RootFS
}

// VFS returns the RootFS this container was reached through.
func (c *Container) VFS() *RootFS { return c.vfs }

// Release drops this container's claim on having crossed into its RootFS
// from a parent mount point. Go's garbage collector reclaims the
// underlying objects regardless; Release exists so Unmount's liveness
// check has something concrete to count, standing in for "no
// live INodeContainer references remain" in a language without
// deterministic destructors.
func (c *Container) Release() {
	if c.vfs.selfMountpoint != nil {
		c.vfs.liveContainers.Add(-1)
	}
}

// SameLocation reports whether a and b address the same logical location:
// the same RootFS handle and the same inode number.
func SameLocation(ctx context.Context, a, b *Container) (bool, error) {
	if a.vfs != b.vfs {
		return false, nil
	}
	am, err := a.Inode.Metadata(ctx)
	if err != nil {
		return false, err
	}
	bm, err := b.Inode.Metadata(ctx)
	if err != nil {
		return false, err
	}
	return am.InodeNo == bm.InodeNo, nil
}

// IsRoot reports whether c addresses the root inode of its RootFS.
func (c *Container) IsRoot(ctx context.Context) (bool, error) {
	return c.vfs.isRootInode(ctx, c.Inode)
}

// Find implements the INodeContainer walk primitive.
// rootBound tells Find that the path resolver has determined this step
// would escape the process's chroot, so ".." must be a no-op.
func (c *Container) Find(ctx context.Context, rootBound bool, name string) (*Container, error) {
	switch name {
	case "", ".":
		return c, nil

	case "..":
		if rootBound {
			return c, nil
		}

		atRoot, err := c.IsRoot(ctx)
		if err != nil {
			return nil, err
		}

		if atRoot && c.vfs.selfMountpoint != nil {
			parent := c.vfs.selfMountpoint
			up, err := parent.Find(ctx, rootBound, "..")
			if err != nil {
				if vfserr.Is(err, vfserr.NotFound) {
					// The mount point must exist in its parent by
					// construction; seeing NotFound here means the mount
					// table and the parent filesystem have diverged.
					panic("rootfs: mount point missing from parent during ascent: " + err.Error())
				}
				return nil, err
			}
			metrics.MountCrossings.WithLabelValues("up").Inc()
			c.Release()
			return up, nil
		}

		parentInode, err := c.Inode.Find(ctx, "..")
		if err != nil {
			return nil, err
		}
		return c.vfs.Wrap(parentInode), nil

	default:
		found, err := c.Inode.Find(ctx, name)
		if err != nil {
			return nil, err
		}
		candidate := c.vfs.Wrap(found)
		return c.vfs.OverlaidMountPoint(ctx, candidate)
	}
}
