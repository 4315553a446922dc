package cmd

import (
	"os"
)

// CrashWriter appends raw bytes to a fixed file path, opening and closing
// it on every Write. Execute's recover hook writes a panic's message and
// stack trace through one so a kernel panic (the weak-reference invariant
// violation in pkg/rootfs, for instance) leaves a dump on disk next to the
// regular rotated log instead of only on a terminal that may already be
// gone.
type CrashWriter struct {
	fileName string
}

func (w *CrashWriter) Write(p []byte) (n int, err error) {
	f, err := os.OpenFile(w.fileName, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return
	}
	defer f.Close()

	n, err = f.Write(p)

	return
}
