package chardev

import (
	"context"

	"github.com/gokernel/vfscore/pkg/devhandle"
	"github.com/gokernel/vfscore/pkg/vfs"
)

// OverlaidINode routes each INode operation to either the driver's
// DeviceHandle or the backing inode, per the routing table below:
// data-path operations (read, write, poll, io_control, sync_data) go to the
// driver; everything about the file's place in the tree (metadata, resize,
// create, link, unlink, move, find, get_entry) goes to the backing inode;
// sync_all does both, driver first.
type OverlaidINode struct {
	backing vfs.INode
	handle  devhandle.DeviceHandle
}

func (o *OverlaidINode) ReadAt(ctx context.Context, off int64, buf []byte) (int, error) {
	return o.handle.ReadAt(ctx, o.backing, off, buf)
}

func (o *OverlaidINode) WriteAt(ctx context.Context, off int64, buf []byte) (int, error) {
	return o.handle.WriteAt(ctx, o.backing, off, buf)
}

func (o *OverlaidINode) Poll(ctx context.Context) (vfs.PollStatus, error) {
	ps, err := o.handle.Poll(ctx, o.backing)
	if err != nil {
		return vfs.PollStatus{}, err
	}
	return vfs.PollStatus{Read: ps.Read, Write: ps.Write, Error: ps.Error}, nil
}

func (o *OverlaidINode) Metadata(ctx context.Context) (vfs.Metadata, error) {
	return o.backing.Metadata(ctx)
}

func (o *OverlaidINode) SetMetadata(ctx context.Context, attrs vfs.MetadataUpdate) error {
	return o.backing.SetMetadata(ctx, attrs)
}

func (o *OverlaidINode) Resize(ctx context.Context, size uint64) error {
	return o.backing.Resize(ctx, size)
}

func (o *OverlaidINode) Create(ctx context.Context, name string, typ vfs.Type, mode uint32, rdev uint32) (vfs.INode, error) {
	return o.backing.Create(ctx, name, typ, mode, rdev)
}

func (o *OverlaidINode) Link(ctx context.Context, name string, target vfs.INode) error {
	return o.backing.Link(ctx, name, target)
}

func (o *OverlaidINode) Unlink(ctx context.Context, name string) error {
	return o.backing.Unlink(ctx, name)
}

func (o *OverlaidINode) Move(ctx context.Context, oldName string, target vfs.INode, newName string) error {
	return o.backing.Move(ctx, oldName, target, newName)
}

func (o *OverlaidINode) Find(ctx context.Context, name string) (vfs.INode, error) {
	return o.backing.Find(ctx, name)
}

func (o *OverlaidINode) GetEntry(ctx context.Context, index int) (string, error) {
	return o.backing.GetEntry(ctx, index)
}

func (o *OverlaidINode) IOControl(ctx context.Context, cmd uint32, arg uintptr) error {
	return o.handle.IOControl(ctx, o.backing, cmd, arg)
}

func (o *OverlaidINode) SyncAll(ctx context.Context) error {
	if err := o.handle.SyncData(ctx, o.backing); err != nil {
		return err
	}
	return o.backing.SyncAll(ctx)
}

func (o *OverlaidINode) SyncData(ctx context.Context) error {
	return o.handle.SyncData(ctx, o.backing)
}

// ReadLink lets an OverlaidINode stand in for a symlink whose target text
// the driver computes dynamically via devhandle.SymlinkOverride, rather
// than one stored as ordinary file content.
func (o *OverlaidINode) ReadLink(ctx context.Context) (string, error) {
	if so, ok := o.handle.(devhandle.SymlinkOverride); ok {
		return so.ReadLink(ctx, o.backing)
	}
	buf := make([]byte, 256)
	n, err := o.backing.ReadAt(ctx, 0, buf)
	if err != nil {
		return "", err
	}
	return string(buf[:n]), nil
}

var _ vfs.INode = (*OverlaidINode)(nil)
var _ vfs.LinkReader = (*OverlaidINode)(nil)
