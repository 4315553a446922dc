// Package mbr implements the legacy MBR partition decorator: it parses
// the partition table out of block 0 of a source BlockDevice and exposes
// up to four partitions, plus the whole disk, as minors behind a
// devhandle.DeviceFileProvider.
package mbr

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/gokernel/vfscore/pkg/blockdev"
	"github.com/gokernel/vfscore/pkg/devhandle"
	"github.com/gokernel/vfscore/pkg/vfs"
	"github.com/gokernel/vfscore/pkg/vfserr"
)

const (
	sigOffset       = 510
	sig0, sig1      = 0x55, 0xAA
	entryBase       = 446
	entrySize       = 16
	entryTypeOffset = 4
	entryLBAOffset  = 8
	entryCntOffset  = 12
	numEntries      = 4
)

// Partition describes one parsed MBR entry.
type Partition struct {
	Type       byte
	StartBlock uint32
	EndBlock   uint32 // inclusive
}

// Table is the parsed state of block 0: valid iff the 0x55AA signature was
// present. Entries are nil for empty (type-0) slots.
type Table struct {
	Valid   bool
	Entries [numEntries]*Partition
}

// Decorator wraps a source BlockDevice, parses its MBR, and serves minors
// 0 (whole disk), 1..=4 (the four partition table entries) and 5 (a second
// alias for the whole disk — resolved in
// favor of exposing both numberings; see DESIGN.md).
type Decorator struct {
	source *blockdev.ByteDevice
	dev    blockdev.BlockDevice

	mu    sync.RWMutex
	table Table
}

// NewDecorator wraps dev. The table starts invalid; call LoadPartitions to
// populate it (also safe to call again on media change).
func NewDecorator(dev blockdev.BlockDevice) *Decorator {
	return &Decorator{
		source: blockdev.NewByteDevice(dev),
		dev:    dev,
	}
}

const mbrOp = "mbr.Decorator"

// LoadPartitions reads block 0 and parses the partition table. A missing
// or invalid signature leaves the decorator serving only the whole-disk
// minors — it is not itself an error.
func (d *Decorator) LoadPartitions(ctx context.Context) error {
	block := make([]byte, d.dev.BlockSize())
	if err := d.dev.ReadBlock(ctx, 0, block); err != nil {
		return err
	}

	var t Table
	if block[sigOffset] == sig0 && block[sigOffset+1] == sig1 {
		t.Valid = true
		for i := 0; i < numEntries; i++ {
			base := entryBase + i*entrySize
			typ := block[base+entryTypeOffset]
			if typ == 0 {
				continue
			}
			start := binary.LittleEndian.Uint32(block[base+entryLBAOffset : base+entryLBAOffset+4])
			count := binary.LittleEndian.Uint32(block[base+entryCntOffset : base+entryCntOffset+4])
			if count == 0 {
				continue
			}
			t.Entries[i] = &Partition{
				Type:       typ,
				StartBlock: start,
				EndBlock:   start + count - 1,
			}
		}
	}

	d.mu.Lock()
	d.table = t
	d.mu.Unlock()
	return nil
}

// Table returns a copy of the currently loaded partition table.
func (d *Decorator) Table() Table {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.table
}

// partitionFor returns the entry backing minor m (1..=4), or nil if there
// is none.
func (d *Decorator) partitionFor(minor uint8) *Partition {
	if minor < 1 || minor > numEntries {
		return nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.table.Entries[minor-1]
}

// Open implements devhandle.DeviceFileProvider.
func (d *Decorator) Open(ctx context.Context, minor uint8) (devhandle.DeviceHandle, bool, error) {
	switch {
	case minor == 0 || minor == 5:
		return &wholeDiskHandle{d: d}, true, nil
	case minor >= 1 && minor <= numEntries:
		p := d.partitionFor(minor)
		if p == nil {
			return nil, false, nil
		}
		return &partitionHandle{d: d, p: p}, true, nil
	default:
		return nil, false, nil
	}
}

var _ devhandle.DeviceFileProvider = (*Decorator)(nil)

// wholeDiskHandle serves minor 0 (and its alias, minor 5): unrestricted
// byte access over the whole source device.
type wholeDiskHandle struct {
	d *Decorator
}

func (h *wholeDiskHandle) ReadAt(ctx context.Context, in vfs.INode, off int64, buf []byte) (int, error) {
	return h.d.source.ReadAt(ctx, off, buf)
}

func (h *wholeDiskHandle) WriteAt(ctx context.Context, in vfs.INode, off int64, buf []byte) (int, error) {
	return h.d.source.WriteAt(ctx, off, buf)
}

func (h *wholeDiskHandle) Poll(ctx context.Context, in vfs.INode) (devhandle.PollStatus, error) {
	return devhandle.PollStatus{Read: true, Write: true}, nil
}

func (h *wholeDiskHandle) SyncData(ctx context.Context, in vfs.INode) error {
	return h.d.source.Sync(ctx)
}

func (h *wholeDiskHandle) IOControl(ctx context.Context, in vfs.INode, cmd uint32, arg uintptr) error {
	// This decorator has no ioctls of its own, so every command forwards
	// straight through to the source device.
	if ic, ok := h.d.dev.(blockdev.IOControllable); ok {
		return ic.IOControl(ctx, cmd, arg)
	}
	return vfserr.New(mbrOp, vfserr.NotSupported)
}

func (h *wholeDiskHandle) Mmap(ctx context.Context, in vfs.INode, offset int64, length int) ([]byte, error) {
	return nil, vfserr.New(mbrOp, vfserr.NotSupported)
}

var _ devhandle.DeviceHandle = (*wholeDiskHandle)(nil)

// partitionHandle serves minors 1..=4: byte access translated into the
// partition's block range, with alignment and bounds enforced rather
// than silently clipped.
type partitionHandle struct {
	d *Decorator
	p *Partition
}

func (h *partitionHandle) translate(off int64, buf []byte) (uint64, error) {
	bs := int64(h.d.dev.BlockSize())
	if off%bs != 0 {
		return 0, vfserr.New(mbrOp, vfserr.InvalidParam)
	}
	if int64(len(buf)) != bs {
		return 0, vfserr.New(mbrOp, vfserr.InvalidParam)
	}

	block := uint64(h.p.StartBlock) + uint64(off/bs)
	if block < uint64(h.p.StartBlock) || block > uint64(h.p.EndBlock) {
		return 0, vfserr.New(mbrOp, vfserr.InvalidParam)
	}
	return block, nil
}

func (h *partitionHandle) ReadAt(ctx context.Context, in vfs.INode, off int64, buf []byte) (int, error) {
	block, err := h.translate(off, buf)
	if err != nil {
		return 0, err
	}
	if err := h.d.dev.ReadBlock(ctx, block, buf); err != nil {
		return 0, err
	}
	return len(buf), nil
}

func (h *partitionHandle) WriteAt(ctx context.Context, in vfs.INode, off int64, buf []byte) (int, error) {
	block, err := h.translate(off, buf)
	if err != nil {
		return 0, err
	}
	if err := h.d.dev.WriteBlock(ctx, block, buf); err != nil {
		return 0, err
	}
	return len(buf), nil
}

func (h *partitionHandle) Poll(ctx context.Context, in vfs.INode) (devhandle.PollStatus, error) {
	return devhandle.PollStatus{Read: true, Write: true}, nil
}

func (h *partitionHandle) SyncData(ctx context.Context, in vfs.INode) error {
	return h.d.dev.Sync(ctx)
}

func (h *partitionHandle) IOControl(ctx context.Context, in vfs.INode, cmd uint32, arg uintptr) error {
	// Ioctls carry no block offset, so there is no partition range to
	// translate; forward straight to the source device, same as the
	// whole-disk handle.
	if ic, ok := h.d.dev.(blockdev.IOControllable); ok {
		return ic.IOControl(ctx, cmd, arg)
	}
	return vfserr.New(mbrOp, vfserr.NotSupported)
}

func (h *partitionHandle) Mmap(ctx context.Context, in vfs.INode, offset int64, length int) ([]byte, error) {
	return nil, vfserr.New(mbrOp, vfserr.NotSupported)
}

var _ devhandle.DeviceHandle = (*partitionHandle)(nil)
