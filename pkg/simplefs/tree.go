package simplefs

import (
	"context"

	"github.com/gokernel/vfscore/pkg/vfs"
	"github.com/gokernel/vfscore/pkg/vfserr"
)

// Find implements vfs.INode's directory-lookup operation, including the
// ".." case: a directory inode tracks its own parent inode number directly
// rather than storing a literal ".." entry.
func (n *inode) Find(ctx context.Context, name string) (vfs.INode, error) {
	n.fs.mu.RLock()
	defer n.fs.mu.RUnlock()

	if n.typ != vfs.Dir {
		return nil, vfserr.New(n.fsOp("Find"), vfserr.NotDir)
	}

	switch name {
	case "", ".":
		return n, nil
	case "..":
		parent, ok := n.fs.inodes[n.parentIno]
		if !ok {
			return nil, vfserr.Newf(n.fsOp("Find"), name, vfserr.NotFound)
		}
		return parent, nil
	default:
		ino, ok := n.children[name]
		if !ok {
			return nil, vfserr.Newf(n.fsOp("Find"), name, vfserr.NotFound)
		}
		return n.fs.inodes[ino], nil
	}
}

// asInode asserts target belongs to this same FS, the precondition Link
// and Move share: an inode cannot be linked across filesystem boundaries
// without going through a mount (vfserr.NotSameFs exists for exactly this
// check).
func (n *inode) asInode(op string, target vfs.INode) (*inode, error) {
	t, ok := target.(*inode)
	if !ok || t.fs != n.fs {
		return nil, vfserr.New(n.fsOp(op), vfserr.NotSameFs)
	}
	return t, nil
}

func (n *inode) Create(ctx context.Context, name string, typ vfs.Type, mode uint32, rdev uint32) (vfs.INode, error) {
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()

	if n.typ != vfs.Dir {
		return nil, vfserr.New(n.fsOp("Create"), vfserr.NotDir)
	}
	if _, exists := n.children[name]; exists {
		return nil, vfserr.Newf(n.fsOp("Create"), name, vfserr.EntryExists)
	}

	child := n.fs.allocInode(typ, mode, rdev, n.ino)
	n.children[name] = child.ino
	n.order = append(n.order, name)
	if typ == vfs.Dir {
		n.linkCount++
	}
	n.mtime = n.fs.clk.Now()
	return child, nil
}

func (n *inode) Link(ctx context.Context, name string, target vfs.INode) error {
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()

	if n.typ != vfs.Dir {
		return vfserr.New(n.fsOp("Link"), vfserr.NotDir)
	}
	t, err := n.asInode("Link", target)
	if err != nil {
		return err
	}
	if t.typ == vfs.Dir {
		return vfserr.New(n.fsOp("Link"), vfserr.IsDir)
	}
	if _, exists := n.children[name]; exists {
		return vfserr.Newf(n.fsOp("Link"), name, vfserr.EntryExists)
	}

	n.children[name] = t.ino
	n.order = append(n.order, name)
	t.linkCount++
	n.mtime = n.fs.clk.Now()
	return nil
}

func (n *inode) Unlink(ctx context.Context, name string) error {
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()
	return n.unlinkLocked(name)
}

// unlinkLocked assumes fs.mu is already held for writing; Move uses it to
// remove the source entry as part of a single atomic rename.
func (n *inode) unlinkLocked(name string) error {
	if n.typ != vfs.Dir {
		return vfserr.New(n.fsOp("Unlink"), vfserr.NotDir)
	}
	ino, ok := n.children[name]
	if !ok {
		return vfserr.Newf(n.fsOp("Unlink"), name, vfserr.NotFound)
	}

	child := n.fs.inodes[ino]
	if child.typ == vfs.Dir && len(child.order) > 0 {
		return vfserr.Newf(n.fsOp("Unlink"), name, vfserr.DirNotEmpty)
	}

	delete(n.children, name)
	n.order = removeOne(n.order, name)
	if child.typ == vfs.Dir {
		n.linkCount--
	}

	child.linkCount--
	if child.linkCount == 0 {
		delete(n.fs.inodes, ino)
	}
	n.mtime = n.fs.clk.Now()
	return nil
}

// Move implements vfs.INode's rename operation, including across two
// different directory inodes within the same filesystem.
func (n *inode) Move(ctx context.Context, oldName string, target vfs.INode, newName string) error {
	n.fs.mu.Lock()
	defer n.fs.mu.Unlock()

	if n.typ != vfs.Dir {
		return vfserr.New(n.fsOp("Move"), vfserr.NotDir)
	}
	destDir, err := n.asInode("Move", target)
	if err != nil {
		return err
	}
	if destDir.typ != vfs.Dir {
		return vfserr.New(n.fsOp("Move"), vfserr.NotDir)
	}

	ino, ok := n.children[oldName]
	if !ok {
		return vfserr.Newf(n.fsOp("Move"), oldName, vfserr.NotFound)
	}
	if _, exists := destDir.children[newName]; exists {
		return vfserr.Newf(n.fsOp("Move"), newName, vfserr.EntryExists)
	}

	child := n.fs.inodes[ino]

	delete(n.children, oldName)
	n.order = removeOne(n.order, oldName)
	destDir.children[newName] = ino
	destDir.order = append(destDir.order, newName)

	if child.typ == vfs.Dir {
		child.parentIno = destDir.ino
		if destDir != n {
			n.linkCount--
			destDir.linkCount++
		}
	}

	ts := n.fs.clk.Now()
	n.mtime = ts
	destDir.mtime = ts
	return nil
}

func removeOne(s []string, v string) []string {
	for i, e := range s {
		if e == v {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}
