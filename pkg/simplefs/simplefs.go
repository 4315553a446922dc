// Package simplefs is the one concrete, in-memory Filesystem implementation
// in this module: every inode lives in a map, directories are name-to-inode
// tables, and file contents are plain byte slices. It exists to give the
// rest of the tree (rootfs, pathwalk, chardev, filehandle) something real
// to mount and walk, the way a from-scratch kernel ships a ramfs to bring
// up its VFS before a real block-backed filesystem exists.
package simplefs

import (
	"context"
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/gokernel/vfscore/clock"
	"github.com/gokernel/vfscore/pkg/vfs"
)

const op = "simplefs"

const rootIno = 1

// FS is an in-memory Filesystem. The zero value is not usable; build one
// with New.
type FS struct {
	mu      sync.RWMutex
	inodes  map[uint64]*inode
	nextIno atomic.Uint64
	clk     clock.Clock

	deviceID    uint64
	blockSize   uint32
	totalBlocks uint64
}

// New creates an empty filesystem with a single root directory, sized as
// if it sat on a device with the given block geometry (used only to answer
// Info's statfs-style aggregate; simplefs never actually blocks data in
// units of blockSize).
func New(blockSize uint32, totalBlocks uint64) *FS {
	return NewWithClock(blockSize, totalBlocks, clock.RealClock{})
}

// NewWithClock is New with an injected clock, for tests that need
// deterministic inode timestamps.
func NewWithClock(blockSize uint32, totalBlocks uint64, clk clock.Clock) *FS {
	fs := &FS{
		inodes:      make(map[uint64]*inode),
		blockSize:   blockSize,
		totalBlocks: totalBlocks,
		deviceID:    deviceIDFromUUID(),
		clk:         clk,
	}
	fs.nextIno.Store(rootIno + 1)

	now := fs.clk.Now()
	root := &inode{
		fs:        fs,
		ino:       rootIno,
		typ:       vfs.Dir,
		mode:      0o755,
		linkCount: 2,
		atime:     now,
		mtime:     now,
		ctime:     now,
		children:  make(map[string]uint64),
		parentIno: rootIno,
	}
	fs.inodes[rootIno] = root
	return fs
}

func deviceIDFromUUID() uint64 {
	id := uuid.New()
	b, _ := id.MarshalBinary()
	return binary.BigEndian.Uint64(b[:8])
}

// RootInode implements vfs.Filesystem.
func (fs *FS) RootInode(ctx context.Context) (vfs.INode, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.inodes[rootIno], nil
}

// Sync implements vfs.Filesystem. simplefs has nothing to flush.
func (fs *FS) Sync(ctx context.Context) error { return nil }

// Info implements vfs.Filesystem, reporting the configured geometry and the
// live inode count.
func (fs *FS) Info(ctx context.Context) (vfs.FSInfo, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	used := uint64(len(fs.inodes))
	const capacity = 1 << 20 // nominal inode ceiling for a FreeInodes figure
	free := uint64(0)
	if capacity > used {
		free = capacity - used
	}

	return vfs.FSInfo{
		BlockSize:   fs.blockSize,
		TotalBlocks: fs.totalBlocks,
		FreeBlocks:  fs.totalBlocks, // simplefs never actually consumes blocks
		TotalInodes: capacity,
		FreeInodes:  free,
	}, nil
}

var _ vfs.Filesystem = (*FS)(nil)

func (fs *FS) allocInode(typ vfs.Type, mode uint32, rdev uint32, parentIno uint64) *inode {
	ino := fs.nextIno.Add(1) - 1
	now := fs.clk.Now()
	n := &inode{
		fs:        fs,
		ino:       ino,
		typ:       typ,
		mode:      mode,
		rdev:      rdev,
		linkCount: 1,
		atime:     now,
		mtime:     now,
		ctime:     now,
		parentIno: parentIno,
	}
	if typ == vfs.Dir {
		n.children = make(map[string]uint64)
		n.linkCount = 2
	}
	fs.inodes[ino] = n
	return n
}
