package filehandle

import (
	"context"
	"testing"

	"github.com/gokernel/vfscore/pkg/devhandle"
	"github.com/gokernel/vfscore/pkg/rootfs"
	"github.com/gokernel/vfscore/pkg/simplefs"
	"github.com/gokernel/vfscore/pkg/vfs"
	"github.com/gokernel/vfscore/pkg/vfserr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type FileHandleTest struct {
	suite.Suite
	ctx  context.Context
	fs   *simplefs.FS
	root *rootfs.Container
	vfs  *rootfs.RootFS
}

func TestFileHandleSuite(t *testing.T) {
	suite.Run(t, new(FileHandleTest))
}

func (ts *FileHandleTest) SetupTest() {
	ts.ctx = context.Background()
	ts.fs = simplefs.New(512, 1024)
	ts.vfs = rootfs.New(ts.fs)
	root, err := ts.vfs.RootContainer(ts.ctx)
	require.NoError(ts.T(), err)
	ts.root = root
}

func (ts *FileHandleTest) newFile(name string) *rootfs.Container {
	in, err := ts.root.Inode.Create(ts.ctx, name, vfs.File, 0o644, 0)
	require.NoError(ts.T(), err)
	return ts.vfs.Wrap(in)
}

// TestReadRequiresReadOption verifies a FileHandle opened write-only
// refuses Read with BadFd rather than silently permitting it.
func (ts *FileHandleTest) TestReadRequiresReadOption() {
	c := ts.newFile("a")
	fh := New(c, OpenOptions{Write: true})

	buf := make([]byte, 4)
	_, err := fh.Read(ts.ctx, buf)
	require.Error(ts.T(), err)
	assert.True(ts.T(), vfserr.Is(err, vfserr.BadFd))
}

// TestWriteAdvancesOffsetByReturnValue verifies that a plain (non-append)
// write advances the handle's offset by the number of bytes written (the
// returned count),
// and a subsequent read picks up from there.
func (ts *FileHandleTest) TestWriteAdvancesOffsetByReturnValue() {
	c := ts.newFile("b")
	fh := New(c, OpenOptions{Read: true, Write: true})

	n, err := fh.Write(ts.ctx, []byte("hello"))
	require.NoError(ts.T(), err)
	assert.Equal(ts.T(), 5, n)
	assert.Equal(ts.T(), int64(5), fh.Offset)

	_, err = fh.Seek(ts.ctx, 0, SeekSet)
	require.NoError(ts.T(), err)

	buf := make([]byte, 5)
	rn, err := fh.Read(ts.ctx, buf)
	require.NoError(ts.T(), err)
	assert.Equal(ts.T(), 5, rn)
	assert.Equal(ts.T(), "hello", string(buf))
}

// TestAppendWriteSeeksToEndFirst verifies append-mode writes land at the
// current end-of-file regardless of the handle's prior offset.
func (ts *FileHandleTest) TestAppendWriteSeeksToEndFirst() {
	c := ts.newFile("c")
	fh := New(c, OpenOptions{Write: true, Append: true})

	_, err := fh.Write(ts.ctx, []byte("abc"))
	require.NoError(ts.T(), err)

	fh.Offset = 0 // simulate an unrelated prior seek

	n, err := fh.Write(ts.ctx, []byte("de"))
	require.NoError(ts.T(), err)
	assert.Equal(ts.T(), 2, n)
	assert.Equal(ts.T(), int64(5), fh.Offset)

	md, err := fh.Metadata(ts.ctx)
	require.NoError(ts.T(), err)
	assert.Equal(ts.T(), uint64(5), md.Size)
}

// TestSeekWhences covers Start/Current/End arithmetic and rejects a
// resulting negative offset.
func (ts *FileHandleTest) TestSeekWhences() {
	c := ts.newFile("d")
	fh := New(c, OpenOptions{Read: true, Write: true})

	_, err := fh.Write(ts.ctx, []byte("0123456789"))
	require.NoError(ts.T(), err)

	off, err := fh.Seek(ts.ctx, 3, SeekSet)
	require.NoError(ts.T(), err)
	assert.Equal(ts.T(), int64(3), off)

	off, err = fh.Seek(ts.ctx, 2, SeekCur)
	require.NoError(ts.T(), err)
	assert.Equal(ts.T(), int64(5), off)

	off, err = fh.Seek(ts.ctx, -1, SeekEnd)
	require.NoError(ts.T(), err)
	assert.Equal(ts.T(), int64(9), off)

	_, err = fh.Seek(ts.ctx, -100, SeekSet)
	require.Error(ts.T(), err)
	assert.True(ts.T(), vfserr.Is(err, vfserr.InvalidParam))
}

// TestSetLenRequiresWriteOption verifies SetLen rejects a read-only
// handle before touching the inode.
func (ts *FileHandleTest) TestSetLenRequiresWriteOption() {
	c := ts.newFile("e")
	fh := New(c, OpenOptions{Read: true})

	err := fh.SetLen(ts.ctx, 10)
	require.Error(ts.T(), err)
	assert.True(ts.T(), vfserr.Is(err, vfserr.BadFd))
}

// cdevProvider is a minimal devhandle.Opener used to exercise
// NewWithCdev's user_data plumbing and Close's exactly-once surrender.
type cdevProvider struct {
	opened []uint8
	closed []uint8
	nextUD int
}

func (p *cdevProvider) Open(ctx context.Context, minor uint8) (devhandle.DeviceHandle, bool, error) {
	return nil, false, nil
}

func (p *cdevProvider) OpenUserData(ctx context.Context, minor uint8) (any, error) {
	p.opened = append(p.opened, minor)
	p.nextUD++
	return p.nextUD, nil
}

func (p *cdevProvider) Close(ctx context.Context, minor uint8, userData any) error {
	p.closed = append(p.closed, minor)
	return nil
}

var (
	_ devhandle.DeviceFileProvider = (*cdevProvider)(nil)
	_ devhandle.Opener             = (*cdevProvider)(nil)
)

// TestNewWithCdevSurrendersUserDataExactlyOnce verifies the open/close
// cookie contract: OpenUserData populates UserData(), and a second Close
// call is a no-op rather than surrendering the cookie twice.
func (ts *FileHandleTest) TestNewWithCdevSurrendersUserDataExactlyOnce() {
	c := ts.newFile("f")
	provider := &cdevProvider{}

	fh, err := NewWithCdev(ts.ctx, c, OpenOptions{Read: true}, provider, 3)
	require.NoError(ts.T(), err)
	assert.Equal(ts.T(), []uint8{3}, provider.opened)
	assert.Equal(ts.T(), 1, fh.UserData())

	require.NoError(ts.T(), fh.Close(ts.ctx))
	require.NoError(ts.T(), fh.Close(ts.ctx))
	assert.Equal(ts.T(), []uint8{3}, provider.closed, "Close should surrender user_data exactly once")
}
