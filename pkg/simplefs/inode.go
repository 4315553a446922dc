package simplefs

import (
	"context"
	"time"

	"github.com/gokernel/vfscore/pkg/vfs"
	"github.com/gokernel/vfscore/pkg/vfserr"
)

// inode is the in-memory backing of every file, directory, symlink and
// device node simplefs hands out. All mutation goes through fs.mu, kept
// simple rather than fine-grained: simplefs exists to exercise the VFS
// contract, not to be a high-throughput filesystem.
type inode struct {
	fs  *FS
	ino uint64
	typ vfs.Type

	mode      uint32
	uid, gid  uint32
	linkCount uint32
	rdev      uint32

	atime, mtime, ctime time.Time

	data []byte // File, SymLink (link target text)

	children  map[string]uint64 // Dir: name -> inode number
	order     []string          // Dir: insertion order, for GetEntry
	parentIno uint64            // Dir: inode number of ".."
}

func (n *inode) fsOp(name string) string { return op + "." + name }

func (n *inode) Metadata(ctx context.Context) (vfs.Metadata, error) {
	n.fs.mu.RLock()
	defer n.fs.mu.RUnlock()

	size := uint64(len(n.data))
	if n.typ == vfs.Dir {
		size = uint64(len(n.order))
	}

	return vfs.Metadata{
		DeviceID:   n.fs.deviceID,
		InodeNo:    n.ino,
		Size:       size,
		BlockSize:  n.fs.blockSize,
		BlockCount: (size + uint64(n.fs.blockSize) - 1) / uint64(n.fs.blockSize),
		ATime:      n.atime,
		MTime:      n.mtime,
		CTime:      n.ctime,
		Type:       n.typ,
		Mode:       n.mode,
		LinkCount:  n.linkCount,
		UID:        n.uid,
		GID:        n.gid,
		RDev:       n.rdev,
	}, nil
}

func (n *inode) SetMetadata(ctx context.Context, attrs vfs.MetadataUpdate) error {
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()

	if attrs.Mode != nil {
		n.mode = *attrs.Mode
	}
	if attrs.UID != nil {
		n.uid = *attrs.UID
	}
	if attrs.GID != nil {
		n.gid = *attrs.GID
	}
	if attrs.ATime != nil {
		n.atime = *attrs.ATime
	}
	if attrs.MTime != nil {
		n.mtime = *attrs.MTime
	}
	n.ctime = n.fs.clk.Now()
	return nil
}

func (n *inode) ReadAt(ctx context.Context, off int64, buf []byte) (int, error) {
	n.fs.mu.RLock()
	defer n.fs.mu.RUnlock()

	if n.typ == vfs.Dir {
		return 0, vfserr.New(n.fsOp("ReadAt"), vfserr.IsDir)
	}
	src := n.data
	if off < 0 {
		return 0, vfserr.New(n.fsOp("ReadAt"), vfserr.InvalidParam)
	}
	if off >= int64(len(src)) {
		return 0, nil
	}
	cnt := copy(buf, src[off:])
	n.atime = n.fs.clk.Now()
	return cnt, nil
}

func (n *inode) WriteAt(ctx context.Context, off int64, buf []byte) (int, error) {
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()

	if n.typ != vfs.File && n.typ != vfs.SymLink {
		return 0, vfserr.New(n.fsOp("WriteAt"), vfserr.NotFile)
	}
	if off < 0 {
		return 0, vfserr.New(n.fsOp("WriteAt"), vfserr.InvalidParam)
	}

	end := off + int64(len(buf))
	if end > int64(len(n.data)) {
		grown := make([]byte, end)
		copy(grown, n.data)
		n.data = grown
	}
	copy(n.data[off:end], buf)
	n.mtime = n.fs.clk.Now()
	return len(buf), nil
}

func (n *inode) Resize(ctx context.Context, size uint64) error {
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()

	if n.typ != vfs.File {
		return vfserr.New(n.fsOp("Resize"), vfserr.NotFile)
	}
	switch {
	case size < uint64(len(n.data)):
		n.data = n.data[:size]
	case size > uint64(len(n.data)):
		grown := make([]byte, size)
		copy(grown, n.data)
		n.data = grown
	}
	n.mtime = n.fs.clk.Now()
	return nil
}

func (n *inode) Poll(ctx context.Context) (vfs.PollStatus, error) {
	return vfs.PollStatus{Read: true, Write: true}, nil
}

func (n *inode) IOControl(ctx context.Context, cmd uint32, arg uintptr) error {
	return vfserr.New(n.fsOp("IOControl"), vfserr.NotSupported)
}

func (n *inode) SyncAll(ctx context.Context) error  { return nil }
func (n *inode) SyncData(ctx context.Context) error { return nil }

// ReadLink implements vfs.LinkReader directly for symlink inodes, so the
// path resolver never has to guess at a link's stored-content encoding.
func (n *inode) ReadLink(ctx context.Context) (string, error) {
	n.fs.mu.RLock()
	defer n.fs.mu.RUnlock()
	if n.typ != vfs.SymLink {
		return "", vfserr.New(n.fsOp("ReadLink"), vfserr.NotFile)
	}
	return string(n.data), nil
}

// List implements vfs.Lister directly for directory inodes.
func (n *inode) List(ctx context.Context) ([]string, error) {
	n.fs.mu.RLock()
	defer n.fs.mu.RUnlock()
	if n.typ != vfs.Dir {
		return nil, vfserr.New(n.fsOp("List"), vfserr.NotDir)
	}
	out := make([]string, len(n.order))
	copy(out, n.order)
	return out, nil
}

func (n *inode) GetEntry(ctx context.Context, index int) (string, error) {
	n.fs.mu.RLock()
	defer n.fs.mu.RUnlock()
	if n.typ != vfs.Dir {
		return "", vfserr.New(n.fsOp("GetEntry"), vfserr.NotDir)
	}
	if index < 0 || index >= len(n.order) {
		return "", vfserr.New(n.fsOp("GetEntry"), vfserr.NotFound)
	}
	return n.order[index], nil
}

var _ vfs.INode = (*inode)(nil)
var _ vfs.LinkReader = (*inode)(nil)
var _ vfs.Lister = (*inode)(nil)
