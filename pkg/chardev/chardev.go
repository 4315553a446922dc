// Package chardev implements the character-device manager: a major-number
// registry of devhandle.DeviceFileProvider values, path lookups that
// resolve to an rdev, and the anonymous-open path used when a driver
// wants a kernel-internal file descriptor with no backing inode.
package chardev

import (
	"context"
	"fmt"
	"sync"

	"github.com/gokernel/vfscore/internal/metrics"
	"github.com/gokernel/vfscore/pkg/devhandle"
	"github.com/gokernel/vfscore/pkg/pathwalk"
	"github.com/gokernel/vfscore/pkg/rootfs"
	"github.com/gokernel/vfscore/pkg/vfs"
	"github.com/gokernel/vfscore/pkg/vfserr"
)

const op = "chardev.Manager"

// Manager is the dev_map: major number to registered
// provider. Registration is monotonic — re-registering a major is an error.
type Manager struct {
	mu  sync.RWMutex
	dev map[uint8]devhandle.DeviceFileProvider
}

// NewManager returns an empty manager.
func NewManager() *Manager {
	return &Manager{dev: make(map[uint8]devhandle.DeviceFileProvider)}
}

// Register installs provider under major. It is an error to register a
// major number that already has a provider.
func (m *Manager) Register(major uint8, provider devhandle.DeviceFileProvider) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.dev[major]; exists {
		return vfserr.Newf(op, fmt.Sprintf("major=%d", major), vfserr.EntryExists)
	}
	m.dev[major] = provider
	return nil
}

func (m *Manager) providerFor(major uint8) (devhandle.DeviceFileProvider, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.dev[major]
	return p, ok
}

// FindDevice resolves path (under pc, rooted at cwd) and asserts that the
// result names a character device, returning its container and rdev.
func FindDevice(ctx context.Context, pc *pathwalk.PathConfig, cwd *rootfs.Container, path string) (*rootfs.Container, uint32, error) {
	res, err := pathwalk.Resolve(ctx, pc, cwd, path, true)
	if err != nil {
		return nil, 0, err
	}
	if res.Kind != pathwalk.IsFile {
		return nil, 0, vfserr.Newf(op, path, vfserr.NotFound)
	}

	md, err := res.File.Inode.Metadata(ctx)
	if err != nil {
		return nil, 0, err
	}
	if md.Type != vfs.CharDevice {
		return nil, 0, vfserr.Newf(op, path, vfserr.NotFile)
	}
	return res.File, md.RDev, nil
}

// OpenDeviceHandle consults the provider registered for major and asks it
// to open minor. ok is false if no provider is registered for major, or
// the provider has no such minor.
func (m *Manager) OpenDeviceHandle(ctx context.Context, major, minor uint8) (devhandle.DeviceHandle, bool, error) {
	provider, ok := m.providerFor(major)
	if !ok {
		return nil, false, nil
	}
	handle, ok, err := provider.Open(ctx, minor)
	if err != nil {
		return nil, false, err
	}
	if ok {
		metrics.CharDeviceOpens.WithLabelValues(fmt.Sprintf("%d", major)).Inc()
	}
	return handle, ok, nil
}

// OpenINode opens the device backing container c (whose inode must already
// be known to be a CharDevice) and wraps it in an OverlaidINode that routes
// data operations to the driver and metadata/tree operations to c.Inode.
func (m *Manager) OpenINode(ctx context.Context, c *rootfs.Container) (*OverlaidINode, error) {
	md, err := c.Inode.Metadata(ctx)
	if err != nil {
		return nil, err
	}
	if md.Type != vfs.CharDevice {
		return nil, vfserr.New(op, vfserr.NotFile)
	}

	major, minor := vfs.SplitRDev(md.RDev)
	handle, ok, err := m.OpenDeviceHandle(ctx, major, minor)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, vfserr.New(op, vfserr.NoDevice)
	}

	return &OverlaidINode{backing: c.Inode, handle: handle}, nil
}

// kernelDevice is a minimal synthetic backing inode for OpenKernelDevice:
// an anonymous character-device file with no place in any directory tree.
// Metadata returns a synthetic CharDevice record carrying the device's
// rdev; tree operations return NotDir; data operations, SetMetadata,
// Resize and IOControl return NotSupported.
type kernelDevice struct {
	rdev uint32
}

const kernelDeviceOp = "chardev.kernelDevice"

func (k *kernelDevice) ReadAt(ctx context.Context, off int64, buf []byte) (int, error) {
	return 0, vfserr.New(kernelDeviceOp, vfserr.NotSupported)
}
func (k *kernelDevice) WriteAt(ctx context.Context, off int64, buf []byte) (int, error) {
	return 0, vfserr.New(kernelDeviceOp, vfserr.NotSupported)
}
func (k *kernelDevice) Poll(ctx context.Context) (vfs.PollStatus, error) {
	return vfs.PollStatus{}, nil
}
func (k *kernelDevice) Metadata(ctx context.Context) (vfs.Metadata, error) {
	return vfs.Metadata{Type: vfs.CharDevice, RDev: k.rdev, LinkCount: 1}, nil
}
func (k *kernelDevice) SetMetadata(ctx context.Context, attrs vfs.MetadataUpdate) error {
	return vfserr.New(kernelDeviceOp, vfserr.NotSupported)
}
func (k *kernelDevice) Resize(ctx context.Context, size uint64) error {
	return vfserr.New(kernelDeviceOp, vfserr.NotSupported)
}
func (k *kernelDevice) Create(ctx context.Context, name string, typ vfs.Type, mode uint32, rdev uint32) (vfs.INode, error) {
	return nil, vfserr.New(kernelDeviceOp, vfserr.NotDir)
}
func (k *kernelDevice) Link(ctx context.Context, name string, target vfs.INode) error {
	return vfserr.New(kernelDeviceOp, vfserr.NotDir)
}
func (k *kernelDevice) Unlink(ctx context.Context, name string) error {
	return vfserr.New(kernelDeviceOp, vfserr.NotDir)
}
func (k *kernelDevice) Move(ctx context.Context, oldName string, target vfs.INode, newName string) error {
	return vfserr.New(kernelDeviceOp, vfserr.NotDir)
}
func (k *kernelDevice) Find(ctx context.Context, name string) (vfs.INode, error) {
	return nil, vfserr.New(kernelDeviceOp, vfserr.NotDir)
}
func (k *kernelDevice) GetEntry(ctx context.Context, index int) (string, error) {
	return "", vfserr.New(kernelDeviceOp, vfserr.NotDir)
}
func (k *kernelDevice) IOControl(ctx context.Context, cmd uint32, arg uintptr) error {
	return vfserr.New(kernelDeviceOp, vfserr.NotSupported)
}
func (k *kernelDevice) SyncAll(ctx context.Context) error { return nil }
func (k *kernelDevice) SyncData(ctx context.Context) error { return nil }

var _ vfs.INode = (*kernelDevice)(nil)

// OpenKernelDevice opens major/minor with no backing directory entry at
// all: the anonymous-open path used by in-kernel
// callers that mint a file descriptor for a device without it ever having
// a path. It returns the OverlaidINode itself over a kernelDevice backing
// inode; no INodeContainer or RootFS is created for it.
func (m *Manager) OpenKernelDevice(ctx context.Context, major, minor uint8) (*OverlaidINode, error) {
	handle, ok, err := m.OpenDeviceHandle(ctx, major, minor)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, vfserr.New(op, vfserr.NoDevice)
	}
	backing := &kernelDevice{rdev: vfs.RDev(major, minor)}
	return &OverlaidINode{backing: backing, handle: handle}, nil
}
