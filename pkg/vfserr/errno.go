package vfserr

import "golang.org/x/sys/unix"

// ToErrno translates a VFS error Kind to the errno a syscall-layer
// implementation should surface to user space: a caller-facing syscall
// layer translates VFS errors to the process-visible error code, and the
// VFS itself never touches unix.Errno outside of this table.
func ToErrno(k Kind) unix.Errno {
	switch k {
	case NotSupported:
		return unix.ENOSYS
	case NotFile:
		return unix.EISDIR
	case IsDir:
		return unix.EISDIR
	case NotDir:
		return unix.ENOTDIR
	case NotFound:
		return unix.ENOENT
	case EntryExists:
		return unix.EEXIST
	case NotSameFs:
		return unix.EXDEV
	case InvalidParam:
		return unix.EINVAL
	case NoSpace:
		return unix.ENOSPC
	case DirRemoved:
		return unix.ENOENT
	case DirNotEmpty:
		return unix.ENOTEMPTY
	case WrongFs:
		return unix.EINVAL
	case IOError:
		return unix.EIO
	case SymLoop:
		return unix.ELOOP
	case NoDevice:
		return unix.ENODEV
	case IOCTLError:
		return unix.ENOTTY
	case Again:
		return unix.EAGAIN
	case BadFd:
		return unix.EBADF
	default:
		return unix.EIO
	}
}

// Errno translates err (if it is an *FsError) to the syscall errno a
// process-facing layer should return. Non-VFS errors translate to EIO,
// since by this point in the stack an unannotated error is itself a bug.
func Errno(err error) unix.Errno {
	if err == nil {
		return 0
	}
	k, ok := KindOf(err)
	if !ok {
		return unix.EIO
	}
	return ToErrno(k)
}
