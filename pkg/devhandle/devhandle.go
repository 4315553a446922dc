// Package devhandle declares the trait-object boundary shared by every
// driver that overlays its own I/O behavior on top of a backing inode: the
// character-device manager's registered drivers and the
// MBR partition decorator's per-minor handles both
// implement DeviceHandle. Keeping the interface in its own leaf package
// lets pkg/mbr and pkg/chardev share it without importing each other.
package devhandle

import (
	"context"

	"github.com/gokernel/vfscore/pkg/vfs"
)

// PollStatus reports the three readiness flags callers combine with their
// own event masks.
type PollStatus struct {
	Read  bool
	Write bool
	Error bool
}

// DeviceHandle is the driver side of an open device file. Every method
// receives the overlaid inode it is backing, so a driver can read the
// metadata or rdev of the file it's serving without the manager having to
// thread that context through separately.
type DeviceHandle interface {
	ReadAt(ctx context.Context, in vfs.INode, off int64, buf []byte) (int, error)
	WriteAt(ctx context.Context, in vfs.INode, off int64, buf []byte) (int, error)
	Poll(ctx context.Context, in vfs.INode) (PollStatus, error)
	SyncData(ctx context.Context, in vfs.INode) error
	IOControl(ctx context.Context, in vfs.INode, cmd uint32, arg uintptr) error

	// Mmap is present for interface parity with the source driver model;
	// most drivers (and every one in this module) return vfserr.NotSupported.
	Mmap(ctx context.Context, in vfs.INode, offset int64, length int) ([]byte, error)
}

// SymlinkOverride lets a driver answer ReadLink itself instead of
// deferring to the backing inode's stored link text. Optional: a driver
// that doesn't implement it is treated as having no override.
type SymlinkOverride interface {
	ReadLink(ctx context.Context, in vfs.INode) (string, error)
}

// DeviceFileProvider maps a minor number to a DeviceHandle. One provider is
// registered per major number with the character-device manager, and the
// MBR decorator is itself a DeviceFileProvider over its source device's
// partitions.
type DeviceFileProvider interface {
	// Open returns the handle for minor, or ok=false if no such minor
	// exists under this provider.
	Open(ctx context.Context, minor uint8) (handle DeviceHandle, ok bool, err error)
}

// Opener is implemented by providers whose handles carry open/close
// lifecycle state (FileHandle.user_data). Providers
// that don't need per-open state may skip this; callers treat a provider
// that doesn't implement Opener as handing back handle.UserData() == nil.
type Opener interface {
	OpenUserData(ctx context.Context, minor uint8) (userData any, err error)
	Close(ctx context.Context, minor uint8, userData any) error
}
