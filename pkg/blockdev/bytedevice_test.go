package blockdev

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type ByteDeviceTest struct {
	suite.Suite
	ctx context.Context
}

func TestByteDeviceSuite(t *testing.T) {
	suite.Run(t, new(ByteDeviceTest))
}

func (ts *ByteDeviceTest) SetupTest() {
	ts.ctx = context.Background()
}

// TestWriteThenReadRoundTripsAcrossUnalignedSpan writes a buffer that
// starts and ends mid-block and verifies a subsequent read recovers it
// byte for byte, exercising the read-modify-write splice on both the
// leading and trailing partial blocks while passing straight through the
// whole block in between.
func (ts *ByteDeviceTest) TestWriteThenReadRoundTripsAcrossUnalignedSpan() {
	t := ts.T()
	dev := NewMemDevice(64, 16)
	bd := NewByteDevice(dev)

	payload := make([]byte, 150)
	for i := range payload {
		payload[i] = byte(i)
	}

	off := int64(20) // mid-block: block 0 offset 20
	n, err := bd.WriteAt(ts.ctx, off, payload)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)

	readBack := make([]byte, len(payload))
	n, err = bd.ReadAt(ts.ctx, off, readBack)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)
	assert.Equal(t, payload, readBack)
}

// TestWriteDoesNotDisturbBytesOutsideSpan verifies the read-modify-write
// path preserves the untouched portion of a partially written block.
func (ts *ByteDeviceTest) TestWriteDoesNotDisturbBytesOutsideSpan() {
	t := ts.T()
	dev := NewMemDevice(64, 4)
	bd := NewByteDevice(dev)

	full := make([]byte, 64)
	for i := range full {
		full[i] = 0xAA
	}
	_, err := bd.WriteAt(ts.ctx, 0, full)
	require.NoError(t, err)

	patch := []byte{0x01, 0x02, 0x03}
	_, err = bd.WriteAt(ts.ctx, 10, patch)
	require.NoError(t, err)

	readBack := make([]byte, 64)
	_, err = bd.ReadAt(ts.ctx, 0, readBack)
	require.NoError(t, err)

	want := make([]byte, 64)
	for i := range want {
		want[i] = 0xAA
	}
	copy(want[10:13], patch)
	assert.Equal(t, want, readBack)
}

// TestReadPastEndOfDeviceFailsOnOutOfRangeBlock verifies a read whose
// span crosses past the device's last block surfaces the underlying
// out-of-range error instead of silently truncating or zero-filling.
func (ts *ByteDeviceTest) TestReadPastEndOfDeviceFailsOnOutOfRangeBlock() {
	t := ts.T()
	dev := NewMemDevice(64, 2) // 128 bytes total
	bd := NewByteDevice(dev)

	buf := make([]byte, 64)
	n, err := bd.ReadAt(ts.ctx, 100, buf)

	assert.Error(t, err, "a read whose span crosses past the device's capacity must fail")
	assert.Less(t, n, len(buf), "bytes transferred before the failing block should be less than the requested length")
}

// TestNegativeOffsetIsRejected verifies the byte device validates its
// offset argument before touching the underlying block device.
func (ts *ByteDeviceTest) TestNegativeOffsetIsRejected() {
	t := ts.T()
	dev := NewMemDevice(64, 2)
	bd := NewByteDevice(dev)

	_, err := bd.ReadAt(ts.ctx, -1, make([]byte, 10))
	assert.Error(t, err)
}
