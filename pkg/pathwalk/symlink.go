package pathwalk

import (
	"context"

	"github.com/gokernel/vfscore/internal/metrics"
	"github.com/gokernel/vfscore/pkg/rootfs"
	"github.com/gokernel/vfscore/pkg/vfs"
	"github.com/gokernel/vfscore/pkg/vfserr"
)

const symlinkOp = "pathwalk.resolveSymlink"

// maxLinkTextBytes bounds how much of a symlink inode's contents are read
// and interpreted as path text.
const maxLinkTextBytes = 256

// readLinkTarget returns the UTF-8 path text stored in a symlink inode. An
// inode may implement vfs.LinkReader to answer this directly (used by
// OverlaidINode to expose a driver's symlink override); otherwise the raw
// inode contents are read.
func readLinkTarget(ctx context.Context, in vfs.INode) (string, error) {
	if lr, ok := in.(vfs.LinkReader); ok {
		return lr.ReadLink(ctx)
	}

	buf := make([]byte, maxLinkTextBytes)
	n, err := in.ReadAt(ctx, 0, buf)
	if err != nil {
		return "", err
	}
	return string(buf[:n]), nil
}

// resolveSymlink resolves a symlink target. budget is shared across the
// whole chain of symlinks this top-level resolution may cross (initially
// 40); depth bounds recursive resolutions triggered while resolving a
// single symlink's own target path (initially 10) and is not further
// decremented merely for following a chain of distinct symlinks — that
// chain length is what the follow budget bounds.
func resolveSymlink(ctx context.Context, pc *PathConfig, link *rootfs.Container, budget *int, depth int) (*rootfs.Container, error) {
	if depth <= 0 {
		return nil, vfserr.New(symlinkOp, vfserr.SymLoop)
	}

	for {
		if *budget <= 0 {
			return nil, vfserr.New(symlinkOp, vfserr.SymLoop)
		}
		*budget--
		metrics.SymlinkFollows.Inc()

		target, err := readLinkTarget(ctx, link.Inode)
		if err != nil {
			return nil, err
		}

		rootBound, err := isRootReached(ctx, pc, link)
		if err != nil {
			return nil, err
		}
		parent, err := link.Find(ctx, rootBound, "..")
		if err != nil {
			return nil, err
		}

		res, err := resolveInternal(ctx, pc, parent, target, false, budget, depth-1)
		if err != nil {
			return nil, err
		}

		switch res.Kind {
		case NotExist:
			// A not-found terminal result propagates as NotFound so callers
			// implementing creat()-style semantics can proceed.
			return nil, vfserr.Newf(symlinkOp, target, vfserr.NotFound)

		case IsDir:
			return res.Container, nil

		case IsFile:
			md, err := res.File.Inode.Metadata(ctx)
			if err != nil {
				return nil, err
			}
			if md.Type != vfs.SymLink {
				return res.File, nil
			}
			// Still a symlink: iterate.
			link = res.File

		default:
			return nil, vfserr.New(symlinkOp, vfserr.IOError)
		}
	}
}
