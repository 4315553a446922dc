package blockdev

import (
	"context"
	"sync"
)

// MemDevice is a BlockDevice backed by a byte slice held in process memory.
// It stands in for the frame-allocator-backed RAM disk the kernel would use
// in early boot, or for a loopback device over a host file in the cmd/
// demo; tests use it as the source device for the MBR decorator and for
// simplefs.
type MemDevice struct {
	mu        sync.Mutex
	blockSize uint32
	data      []byte
}

// NewMemDevice allocates a MemDevice of the given capacity in blocks.
// blockSize must be a power of two.
func NewMemDevice(blockSize uint32, blockCount uint64) *MemDevice {
	if blockSize == 0 || blockSize&(blockSize-1) != 0 {
		panic("blockdev: block size must be a power of two")
	}
	return &MemDevice{
		blockSize: blockSize,
		data:      make([]byte, uint64(blockSize)*blockCount),
	}
}

func (m *MemDevice) BlockSize() uint32 { return m.blockSize }

func (m *MemDevice) BlockCount() uint64 {
	return uint64(len(m.data)) / uint64(m.blockSize)
}

const memDeviceOp = "blockdev.MemDevice"

func (m *MemDevice) ReadBlock(ctx context.Context, idx uint64, buf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := checkBuf(m, buf); err != nil {
		return err
	}
	if err := checkIndex(m, idx); err != nil {
		return err
	}

	off := idx * uint64(m.blockSize)
	copy(buf, m.data[off:off+uint64(m.blockSize)])
	return nil
}

func (m *MemDevice) WriteBlock(ctx context.Context, idx uint64, buf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := checkBuf(m, buf); err != nil {
		return err
	}
	if err := checkIndex(m, idx); err != nil {
		return err
	}

	off := idx * uint64(m.blockSize)
	copy(m.data[off:off+uint64(m.blockSize)], buf)
	return nil
}

func (m *MemDevice) Sync(ctx context.Context) error {
	return nil
}

var _ BlockDevice = (*MemDevice)(nil)
