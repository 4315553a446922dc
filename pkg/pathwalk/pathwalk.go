// Package pathwalk implements the per-process path resolver: PathConfig,
// the component walker with chroot confinement and mount crossing, and
// symlink resolution with a follow budget and depth budget.
package pathwalk

import (
	"context"
	"strings"

	"github.com/gokernel/vfscore/internal/metrics"
	"github.com/gokernel/vfscore/pkg/rootfs"
	"github.com/gokernel/vfscore/pkg/vfs"
	"github.com/gokernel/vfscore/pkg/vfserr"
)

// DefaultFollowBudget and DefaultDepth are the initial values named in
// the resolver's initial budgets: 40 symlink follows, depth 10.
const (
	DefaultFollowBudget = 40
	DefaultDepth        = 10
)

const op = "pathwalk.Resolve"

// PathConfig is the per-process {root, cwd} pair that defines chroot
// confinement for every resolution performed against it.
type PathConfig struct {
	Root *rootfs.Container
	Cwd  *rootfs.Container
}

// NewPathConfig builds a PathConfig, verifying both containers address
// directories.
func NewPathConfig(ctx context.Context, root, cwd *rootfs.Container) (*PathConfig, error) {
	for _, c := range []*rootfs.Container{root, cwd} {
		md, err := c.Inode.Metadata(ctx)
		if err != nil {
			return nil, err
		}
		if md.Type != vfs.Dir {
			return nil, vfserr.New(op, vfserr.NotDir)
		}
	}
	return &PathConfig{Root: root, Cwd: cwd}, nil
}

// ResultKind distinguishes the three terminal shapes a resolution can
// produce.
type ResultKind int

const (
	// IsDir: the resolved path names a directory.
	IsDir ResultKind = iota
	// IsFile: the resolved path names a non-directory that exists.
	IsFile
	// NotExist: the final component does not exist; Parent/Name let a
	// creator proceed.
	NotExist
)

// Result is the outcome of a Resolve call.
type Result struct {
	Kind ResultKind

	// Container is set for IsDir: the resolved directory.
	Container *rootfs.Container

	// Parent is set for IsFile and NotExist: the directory the final
	// component was (or would be) looked up in.
	Parent *rootfs.Container

	// File is set for IsFile: the resolved non-directory.
	File *rootfs.Container

	// Name is the final path component, set for IsFile and NotExist.
	Name string
}

// isRootReached is the chroot guard: it compares c
// against pc.Root and also prevents ".." from escaping an unprivileged
// root.
func isRootReached(ctx context.Context, pc *PathConfig, c *rootfs.Container) (bool, error) {
	return rootfs.SameLocation(ctx, c, pc.Root)
}

// splitComponents splits path on "/", dropping empty components (leading
// slash, trailing slash, repeated slashes all collapse).
func splitComponents(path string) []string {
	parts := strings.Split(path, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Resolve resolves path starting from cwd (or pc.Root if path is
// absolute), using fresh follow and depth budgets.
func Resolve(ctx context.Context, pc *PathConfig, cwd *rootfs.Container, path string, followFinal bool) (Result, error) {
	budget := DefaultFollowBudget
	return resolveInternal(ctx, pc, cwd, path, followFinal, &budget, DefaultDepth)
}

// ResolveWithBudget is Resolve with caller-supplied budgets, for tests that
// want to drive a resolution to the edge of SymLoop deterministically.
func ResolveWithBudget(ctx context.Context, pc *PathConfig, cwd *rootfs.Container, path string, followFinal bool, followBudget *int, depth int) (Result, error) {
	return resolveInternal(ctx, pc, cwd, path, followFinal, followBudget, depth)
}

func resolveInternal(ctx context.Context, pc *PathConfig, cwd *rootfs.Container, path string, followFinal bool, budget *int, depth int) (Result, error) {
	start := cwd
	if strings.HasPrefix(path, "/") {
		start = pc.Root
	}

	startMD, err := start.Inode.Metadata(ctx)
	if err != nil {
		return Result{}, err
	}
	if startMD.Type != vfs.Dir {
		metrics.PathResolutions.WithLabelValues("error").Inc()
		return Result{}, vfserr.New(op, vfserr.NotDir)
	}

	comps := splitComponents(path)
	if len(comps) == 0 {
		metrics.PathResolutions.WithLabelValues("dir").Inc()
		return Result{Kind: IsDir, Container: start}, nil
	}

	cur := start
	for _, comp := range comps[:len(comps)-1] {
		rootBound, err := isRootReached(ctx, pc, cur)
		if err != nil {
			return Result{}, err
		}

		next, err := cur.Find(ctx, rootBound, comp)
		if err != nil {
			metrics.PathResolutions.WithLabelValues("error").Inc()
			return Result{}, err
		}

		md, err := next.Inode.Metadata(ctx)
		if err != nil {
			return Result{}, err
		}

		if md.Type == vfs.SymLink {
			next, err = resolveSymlink(ctx, pc, next, budget, depth)
			if err != nil {
				metrics.PathResolutions.WithLabelValues("error").Inc()
				return Result{}, err
			}
			md, err = next.Inode.Metadata(ctx)
			if err != nil {
				return Result{}, err
			}
		}

		if md.Type != vfs.Dir {
			metrics.PathResolutions.WithLabelValues("error").Inc()
			return Result{}, vfserr.New(op, vfserr.NotDir)
		}

		cur = next
	}

	last := comps[len(comps)-1]
	rootBound, err := isRootReached(ctx, pc, cur)
	if err != nil {
		return Result{}, err
	}

	final, err := cur.Find(ctx, rootBound, last)
	if err != nil {
		if vfserr.Is(err, vfserr.NotFound) {
			metrics.PathResolutions.WithLabelValues("not_exist").Inc()
			return Result{Kind: NotExist, Parent: cur, Name: last}, nil
		}
		metrics.PathResolutions.WithLabelValues("error").Inc()
		return Result{}, err
	}

	md, err := final.Inode.Metadata(ctx)
	if err != nil {
		return Result{}, err
	}

	if followFinal && md.Type == vfs.SymLink {
		final, err = resolveSymlink(ctx, pc, final, budget, depth)
		if err != nil {
			if vfserr.Is(err, vfserr.NotFound) {
				metrics.PathResolutions.WithLabelValues("not_exist").Inc()
				return Result{Kind: NotExist, Parent: cur, Name: last}, nil
			}
			metrics.PathResolutions.WithLabelValues("error").Inc()
			return Result{}, err
		}
		md, err = final.Inode.Metadata(ctx)
		if err != nil {
			return Result{}, err
		}
	}

	if md.Type == vfs.Dir {
		metrics.PathResolutions.WithLabelValues("dir").Inc()
		return Result{Kind: IsDir, Container: final}, nil
	}

	metrics.PathResolutions.WithLabelValues("file").Inc()
	return Result{Kind: IsFile, Parent: cur, File: final, Name: last}, nil
}
