// Package vfserr defines the error vocabulary shared by every layer of the
// virtual filesystem: the block device, the MBR decorator, the path
// resolver, the character-device manager and the file handle. All of them
// return a *FsError (or nil) rather than ad-hoc error values, so that a
// syscall layer above the VFS can translate failures to the errno the
// calling process expects.
package vfserr

import "fmt"

// Kind identifies one of the recoverable or surfaced failure modes listed
// in the VFS error taxonomy. The zero value is never returned by a well
// behaved operation.
type Kind int

const (
	_ Kind = iota
	NotSupported
	NotFile
	IsDir
	NotDir
	NotFound
	EntryExists
	NotSameFs
	InvalidParam
	NoSpace
	DirRemoved
	DirNotEmpty
	WrongFs
	IOError
	SymLoop
	NoDevice
	IOCTLError
	Again
	BadFd
)

func (k Kind) String() string {
	switch k {
	case NotSupported:
		return "NotSupported"
	case NotFile:
		return "NotFile"
	case IsDir:
		return "IsDir"
	case NotDir:
		return "NotDir"
	case NotFound:
		return "NotFound"
	case EntryExists:
		return "EntryExists"
	case NotSameFs:
		return "NotSameFs"
	case InvalidParam:
		return "InvalidParam"
	case NoSpace:
		return "NoSpace"
	case DirRemoved:
		return "DirRemoved"
	case DirNotEmpty:
		return "DirNotEmpty"
	case WrongFs:
		return "WrongFs"
	case IOError:
		return "IOError"
	case SymLoop:
		return "SymLoop"
	case NoDevice:
		return "NoDevice"
	case IOCTLError:
		return "IOCTLError"
	case Again:
		return "Again"
	case BadFd:
		return "BadFd"
	default:
		return "Unknown"
	}
}

// FsError is the concrete error type returned across the VFS. Op and Path
// are best-effort context for logging; Err carries an underlying cause
// when the failure originated below the VFS (e.g. a real I/O error).
type FsError struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *FsError) Error() string {
	switch {
	case e.Path != "" && e.Err != nil:
		return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Path, e.Kind, e.Err)
	case e.Path != "":
		return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Kind)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
}

func (e *FsError) Unwrap() error { return e.Err }

// New constructs an *FsError for the given operation and kind.
func New(op string, kind Kind) *FsError {
	return &FsError{Op: op, Kind: kind}
}

// Newf constructs an *FsError carrying path context.
func Newf(op, path string, kind Kind) *FsError {
	return &FsError{Op: op, Path: path, Kind: kind}
}

// Wrap constructs an *FsError carrying an underlying cause.
func Wrap(op string, kind Kind, err error) *FsError {
	return &FsError{Op: op, Kind: kind, Err: err}
}

// Is reports whether err is an *FsError of the given kind.
func Is(err error, kind Kind) bool {
	fe, ok := err.(*FsError)
	return ok && fe.Kind == kind
}

// KindOf extracts the Kind from err, returning ok=false if err is not an
// *FsError (e.g. it is nil or some lower-level error that was never
// annotated).
func KindOf(err error) (Kind, bool) {
	fe, ok := err.(*FsError)
	if !ok {
		return 0, false
	}
	return fe.Kind, true
}
