// Package blockdev defines the lowest layer of the storage stack: a fixed
// block-size BlockDevice and a byte-addressable wrapper over it. Everything
// above this package (the MBR decorator, the filesystem implementations)
// only ever sees whole blocks or the byte window the wrapper splices for
// them.
package blockdev

import (
	"context"

	"github.com/gokernel/vfscore/pkg/vfserr"
)

// BlockDevice is a logical device with a fixed, power-of-two block size.
// Every ReadBlock/WriteBlock buffer must be exactly BlockSize() bytes long;
// callers that violate this get vfserr.InvalidParam. Sync is idempotent.
type BlockDevice interface {
	// BlockSize returns B = 2^k, typically 512.
	BlockSize() uint32

	// BlockCount returns the device capacity in blocks.
	BlockCount() uint64

	// ReadBlock reads exactly one block at index idx into buf.
	ReadBlock(ctx context.Context, idx uint64, buf []byte) error

	// WriteBlock writes exactly one block at index idx from buf.
	WriteBlock(ctx context.Context, idx uint64, buf []byte) error

	// Sync flushes any buffered state. Idempotent.
	Sync(ctx context.Context) error
}

// IOControllable is implemented by a BlockDevice that understands
// driver-defined ioctl commands. Most block devices have none; callers
// that want to forward an ioctl to a source device (the MBR decorator's
// whole-disk and partition handles, per spec §4.2) type-assert for this
// interface and report NotSupported when the underlying device doesn't
// implement it.
type IOControllable interface {
	IOControl(ctx context.Context, cmd uint32, arg uintptr) error
}

const op = "blockdev"

// checkBuf validates that buf is exactly one block long for dev.
func checkBuf(dev BlockDevice, buf []byte) error {
	if uint32(len(buf)) != dev.BlockSize() {
		return vfserr.Wrap(op, vfserr.InvalidParam, nil)
	}
	return nil
}

// checkIndex validates idx is within dev's capacity.
func checkIndex(dev BlockDevice, idx uint64) error {
	if idx >= dev.BlockCount() {
		return vfserr.Wrap(op, vfserr.InvalidParam, nil)
	}
	return nil
}
