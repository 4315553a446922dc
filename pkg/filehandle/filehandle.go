// Package filehandle implements the open-file object:
// an INodeContainer, a current offset, the open options it was created
// with, and an optional driver user_data slot surrendered back to the
// provider exactly once on Close.
package filehandle

import (
	"context"
	"sync"

	"github.com/gokernel/vfscore/pkg/devhandle"
	"github.com/gokernel/vfscore/pkg/rootfs"
	"github.com/gokernel/vfscore/pkg/vfs"
	"github.com/gokernel/vfscore/pkg/vfserr"
)

const op = "filehandle.FileHandle"

// OpenOptions mirrors the open-mode flags a caller passes when creating a
// FileHandle.
type OpenOptions struct {
	Read   bool
	Write  bool
	Append bool
}

// SeekWhence selects the reference point for Seek.
type SeekWhence int

const (
	SeekSet SeekWhence = iota
	SeekCur
	SeekEnd
)

// cdevCloser is satisfied by a provider that wants its OpenUserData's
// result surrendered back through Close; kept private since callers only
// ever get it via NewWithCdev.
type cdevCloser struct {
	provider devhandle.Opener
	minor    uint8
}

// FileHandle is the kernel's open-file object: a container, an offset, and
// the options the file was opened with.
type FileHandle struct {
	mu      sync.Mutex
	C       *rootfs.Container
	Offset  int64
	Options OpenOptions

	userData any
	closer   *cdevCloser
	closed   bool
}

// New creates a FileHandle over c with no driver user_data.
func New(c *rootfs.Container, opts OpenOptions) *FileHandle {
	return &FileHandle{C: c, Options: opts}
}

// NewWithCdev creates a FileHandle and, if provider implements
// devhandle.Opener, asks it for per-open user data to be surrendered back
// via Close.
func NewWithCdev(ctx context.Context, c *rootfs.Container, opts OpenOptions, provider devhandle.DeviceFileProvider, minor uint8) (*FileHandle, error) {
	fh := New(c, opts)
	if o, ok := provider.(devhandle.Opener); ok {
		ud, err := o.OpenUserData(ctx, minor)
		if err != nil {
			return nil, err
		}
		fh.userData = ud
		fh.closer = &cdevCloser{provider: o, minor: minor}
	}
	return fh, nil
}

// UserData returns the driver-private open state, if any.
func (fh *FileHandle) UserData() any {
	fh.mu.Lock()
	defer fh.mu.Unlock()
	return fh.userData
}

// Close surrenders any driver user_data exactly once. Calling Close more
// than once is a no-op past the first call.
func (fh *FileHandle) Close(ctx context.Context) error {
	fh.mu.Lock()
	defer fh.mu.Unlock()
	if fh.closed {
		return nil
	}
	fh.closed = true
	if fh.closer != nil {
		return fh.closer.provider.Close(ctx, fh.closer.minor, fh.userData)
	}
	return nil
}

// Read reads up to len(buf) bytes at the current offset and advances it by
// the number of bytes actually read.
func (fh *FileHandle) Read(ctx context.Context, buf []byte) (int, error) {
	fh.mu.Lock()
	defer fh.mu.Unlock()

	if !fh.Options.Read {
		return 0, vfserr.New(op, vfserr.BadFd)
	}

	n, err := fh.C.Inode.ReadAt(ctx, fh.Offset, buf)
	fh.Offset += int64(n)
	return n, err
}

// Write writes buf at the current offset (or at end-of-file, if opened
// with Append) and advances the offset by the number of bytes actually
// written: in append mode the offset
// advances by the return value of the underlying write, not by len(buf).
func (fh *FileHandle) Write(ctx context.Context, buf []byte) (int, error) {
	fh.mu.Lock()
	defer fh.mu.Unlock()

	if !fh.Options.Write {
		return 0, vfserr.New(op, vfserr.BadFd)
	}

	off := fh.Offset
	if fh.Options.Append {
		md, err := fh.C.Inode.Metadata(ctx)
		if err != nil {
			return 0, err
		}
		off = int64(md.Size)
	}

	n, err := fh.C.Inode.WriteAt(ctx, off, buf)
	fh.Offset = off + int64(n)
	return n, err
}

// Seek repositions the handle's offset per the given whence, returning the
// new absolute offset. A resulting negative offset is rejected.
func (fh *FileHandle) Seek(ctx context.Context, delta int64, whence SeekWhence) (int64, error) {
	fh.mu.Lock()
	defer fh.mu.Unlock()

	var base int64
	switch whence {
	case SeekSet:
		base = 0
	case SeekCur:
		base = fh.Offset
	case SeekEnd:
		md, err := fh.C.Inode.Metadata(ctx)
		if err != nil {
			return 0, err
		}
		base = int64(md.Size)
	default:
		return 0, vfserr.New(op, vfserr.InvalidParam)
	}

	newOff := base + delta
	if newOff < 0 {
		return 0, vfserr.New(op, vfserr.InvalidParam)
	}
	fh.Offset = newOff
	return newOff, nil
}

// SetLen resizes the underlying inode via Resize. It does not move the
// handle's current offset, matching truncate()'s POSIX semantics rather
// than ftell-relative seek semantics.
func (fh *FileHandle) SetLen(ctx context.Context, size uint64) error {
	if !fh.Options.Write {
		return vfserr.New(op, vfserr.BadFd)
	}
	return fh.C.Inode.Resize(ctx, size)
}

// Metadata is a convenience passthrough to the handle's underlying inode.
func (fh *FileHandle) Metadata(ctx context.Context) (vfs.Metadata, error) {
	return fh.C.Inode.Metadata(ctx)
}
