// Package vfs declares the Filesystem and INode trait-object interfaces
// that every concrete filesystem implementation and every inode decorator
// (OverlaidINode, simplefs) satisfies.
// It owns nothing mutable itself; it is the narrow contract the rest of the
// module programs against.
package vfs

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Type is the closed set of inode types the kernel recognizes.
type Type int

const (
	File Type = iota
	Dir
	SymLink
	CharDevice
	BlockDevice
	NamedPipe
	Socket
)

func (t Type) String() string {
	switch t {
	case File:
		return "File"
	case Dir:
		return "Dir"
	case SymLink:
		return "SymLink"
	case CharDevice:
		return "CharDevice"
	case BlockDevice:
		return "BlockDevice"
	case NamedPipe:
		return "NamedPipe"
	case Socket:
		return "Socket"
	default:
		return "Unknown"
	}
}

// RDev packs a 7-bit major and 8-bit minor into the legacy encoding used
// throughout: (major & 0x7F) << 8 | (minor & 0xFF).
func RDev(major, minor uint8) uint32 {
	return uint32(major&0x7F)<<8 | uint32(minor)
}

// SplitRDev recovers the major/minor pair from a packed rdev value.
func SplitRDev(rdev uint32) (major, minor uint8) {
	return uint8((rdev >> 8) & 0x7F), uint8(rdev & 0xFF)
}

// Metadata mirrors an INode's attribute set.
type Metadata struct {
	DeviceID   uint64
	InodeNo    uint64
	Size       uint64
	BlockSize  uint32
	BlockCount uint64
	ATime      time.Time
	MTime      time.Time
	CTime      time.Time
	Type       Type
	Mode       uint32
	LinkCount  uint32
	UID        uint32
	GID        uint32
	RDev       uint32
}

// PollStatus reports the three readiness flags a poll can report.
type PollStatus struct {
	Read  bool
	Write bool
	Error bool
}

// INode is the abstract file object every filesystem and decorator
// implements: data access, metadata, directory-tree operations, ioctl and
// sync.
type INode interface {
	ReadAt(ctx context.Context, off int64, buf []byte) (int, error)
	WriteAt(ctx context.Context, off int64, buf []byte) (int, error)
	Poll(ctx context.Context) (PollStatus, error)
	Metadata(ctx context.Context) (Metadata, error)
	SetMetadata(ctx context.Context, attrs MetadataUpdate) error
	Resize(ctx context.Context, size uint64) error

	Create(ctx context.Context, name string, typ Type, mode uint32, rdev uint32) (INode, error)
	Link(ctx context.Context, name string, target INode) error
	Unlink(ctx context.Context, name string) error
	Move(ctx context.Context, oldName string, target INode, newName string) error
	Find(ctx context.Context, name string) (INode, error)
	GetEntry(ctx context.Context, index int) (string, error)

	IOControl(ctx context.Context, cmd uint32, arg uintptr) error

	SyncAll(ctx context.Context) error
	SyncData(ctx context.Context) error
}

// MetadataUpdate carries the subset of Metadata an inode's SetMetadata
// accepts; nil fields are left unchanged.
type MetadataUpdate struct {
	Mode  *uint32
	UID   *uint32
	GID   *uint32
	ATime *time.Time
	MTime *time.Time
}

// LinkReader is implemented by inodes that want to answer a symlink read
// directly rather than through ReadAt — used by OverlaidINode to expose a
// driver's optional symlink_override hook (the CharDev
// registry entry).
type LinkReader interface {
	ReadLink(ctx context.Context) (string, error)
}

// Lister is implemented by inodes that want to provide their own List
// rather than use DefaultList. Directory inodes normally don't need to:
// DefaultList's get_entry loop is the blanket behavior
// names.
type Lister interface {
	List(ctx context.Context) ([]string, error)
}

// listFanoutThreshold is the entry count above which DefaultList fans its
// get_entry(i) calls out across a bounded worker pool instead of issuing
// them one at a time; below it the goroutine/errgroup overhead isn't worth
// paying.
const listFanoutThreshold = 32

// listFanoutLimit bounds how many get_entry calls DefaultList has in
// flight at once, mirroring the bounded concurrency a directory listing
// over a real backing store (rather than simplefs's in-memory map) would
// need to avoid overwhelming it.
const listFanoutLimit = 8

// DefaultList implements the blanket directory-listing behavior shared by
// filesystems with no native listing call: read metadata().size entries
// via get_entry(0..size). Once a directory is large enough to make it
// worthwhile, the get_entry calls are fanned out across a bounded pool of
// workers rather than issued strictly one at a time; callers see the same
// ordered result either way.
func DefaultList(ctx context.Context, in INode) ([]string, error) {
	if l, ok := in.(Lister); ok {
		return l.List(ctx)
	}

	md, err := in.Metadata(ctx)
	if err != nil {
		return nil, err
	}

	n := int(md.Size)
	names := make([]string, n)

	if n < listFanoutThreshold {
		for i := 0; i < n; i++ {
			name, err := in.GetEntry(ctx, i)
			if err != nil {
				return nil, err
			}
			names[i] = name
		}
		return names, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(listFanoutLimit)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			name, err := in.GetEntry(gctx, i)
			if err != nil {
				return err
			}
			names[i] = name
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return names, nil
}

// FSInfo is the aggregate filesystem information returned by
// Filesystem.Info(), a statfs-shaped summary of a mounted filesystem.
type FSInfo struct {
	BlockSize   uint32
	TotalBlocks uint64
	FreeBlocks  uint64
	TotalInodes uint64
	FreeInodes  uint64
}

// Filesystem owns a tree of inodes and is mounted into exactly one RootFS.
// It exposes only the root inode, sync and stat; everything else is
// reached by walking from the root via INode.Find.
type Filesystem interface {
	RootInode(ctx context.Context) (INode, error)
	Sync(ctx context.Context) error
	Info(ctx context.Context) (FSInfo, error)
}
