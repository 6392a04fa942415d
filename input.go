package fcbatch

import (
	"io"
)

// Input represents a storage that holds the metadata sheet and the sibling
// binary files referenced by it. The Input interface is used to read the
// sheet and to access binaries by the filename a row points at.
type Input interface {
	Storage
	// Metadata opens the metadata sheet for reading.
	Metadata() (io.ReadCloser, error)
	// StatBinary returns the size of the named binary. A missing binary is
	// an explicit error, never a silent skip.
	StatBinary(name string) (int64, error)
	// OpenBinary opens the named binary for reading.
	OpenBinary(name string) (io.ReadCloser, error)
}
