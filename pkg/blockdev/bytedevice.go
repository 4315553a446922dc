package blockdev

import (
	"context"

	"github.com/gokernel/vfscore/internal/metrics"
	"github.com/gokernel/vfscore/pkg/vfserr"
)

// ByteDevice is a byte-addressable view over a BlockDevice. Reads and
// writes that land on whole blocks go straight through; anything that
// touches a partial block goes through a read-modify-write on a scratch
// block buffer.
type ByteDevice struct {
	dev BlockDevice
}

// NewByteDevice wraps dev for byte-addressable access.
func NewByteDevice(dev BlockDevice) *ByteDevice {
	return &ByteDevice{dev: dev}
}

const byteDeviceOp = "blockdev.ByteDevice"

// ReadAt reads len(buf) bytes starting at byte offset off. It returns the
// number of bytes read before the first error, never larger than the true
// transferred count. A read that reaches past the last block returns the
// block device's error together with the bytes transferred before it;
// there is no zero-length, nil-error result at end of device.
func (d *ByteDevice) ReadAt(ctx context.Context, off int64, buf []byte) (int, error) {
	return d.transfer(ctx, off, buf, false)
}

// WriteAt writes len(buf) bytes starting at byte offset off, using
// read-modify-write for any partial block touched.
func (d *ByteDevice) WriteAt(ctx context.Context, off int64, buf []byte) (int, error) {
	return d.transfer(ctx, off, buf, true)
}

// Sync forwards to the underlying block device.
func (d *ByteDevice) Sync(ctx context.Context) error {
	return d.dev.Sync(ctx)
}

func (d *ByteDevice) transfer(ctx context.Context, off int64, buf []byte, write bool) (int, error) {
	if off < 0 {
		return 0, vfserr.Wrap(byteDeviceOp, vfserr.InvalidParam, nil)
	}

	bs := int64(d.dev.BlockSize())
	var done int
	remaining := buf

	for len(remaining) > 0 {
		pos := off + int64(done)
		blockIdx := uint64(pos / bs)
		blockOff := int(pos % bs)
		spanLen := int(bs) - blockOff
		if spanLen > len(remaining) {
			spanLen = len(remaining)
		}

		if blockOff == 0 && spanLen == int(bs) {
			// Whole block: go straight into/out of the caller's slice.
			var err error
			if write {
				err = d.dev.WriteBlock(ctx, blockIdx, remaining[:spanLen])
				if err == nil {
					metrics.BlockWrites.Inc()
				}
			} else {
				err = d.dev.ReadBlock(ctx, blockIdx, remaining[:spanLen])
				if err == nil {
					metrics.BlockReads.Inc()
				}
			}
			if err != nil {
				return done, err
			}
		} else {
			// Partial block: read-modify-(write).
			scratch := make([]byte, bs)
			if err := d.dev.ReadBlock(ctx, blockIdx, scratch); err != nil {
				return done, err
			}
			metrics.BlockReads.Inc()

			if write {
				copy(scratch[blockOff:blockOff+spanLen], remaining[:spanLen])
				if err := d.dev.WriteBlock(ctx, blockIdx, scratch); err != nil {
					return done, err
				}
				metrics.BlockWrites.Inc()
			} else {
				copy(remaining[:spanLen], scratch[blockOff:blockOff+spanLen])
			}
		}

		done += spanLen
		remaining = remaining[spanLen:]
	}

	return done, nil
}
