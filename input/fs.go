package input

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/archivelab/fcbatch"
)

// FSInputConfig represents the FSInput configurable fields model.
type FSInputConfig struct {
	// Dir is the directory holding the metadata sheet and the binaries.
	Dir string `validate:"required"`
	// MetadataFile is the sheet filename inside Dir.
	MetadataFile string `validate:"required"`
}

// NewFSInput returns a new instance of the FSInput.
func NewFSInput(cfg FSInputConfig) *FSInput {
	return &FSInput{Cfg: cfg}
}

// FSInput represents an input that reads the metadata sheet and the binaries
// from a local directory.
type FSInput struct {
	fcbatch.BaseStorage
	Cfg FSInputConfig
}

// Setup contains the storage preparations. As for the FSInput, it checks that
// the directory and the metadata sheet are accessible.
func (i *FSInput) Setup() error {
	info, err := os.Stat(i.Cfg.Dir)
	if err != nil {
		return fmt.Errorf("failed to access input directory %s: %v", i.Cfg.Dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("input path %s is not a directory", i.Cfg.Dir)
	}
	if _, err := os.Stat(i.metadataPath()); err != nil {
		return fmt.Errorf("failed to access metadata sheet %s: %v", i.metadataPath(), err)
	}
	return nil
}

// Metadata opens the metadata sheet for reading.
func (i *FSInput) Metadata() (io.ReadCloser, error) {
	return os.Open(i.metadataPath())
}

// StatBinary returns the size of the named binary. A missing or unreadable
// file is an explicit error.
func (i *FSInput) StatBinary(name string) (int64, error) {
	info, err := os.Stat(i.binaryPath(name))
	if err != nil {
		return 0, fmt.Errorf("cannot access file %s: %v", i.binaryPath(name), err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("binary path %s is a directory", i.binaryPath(name))
	}
	return info.Size(), nil
}

// OpenBinary opens the named binary for reading.
func (i *FSInput) OpenBinary(name string) (io.ReadCloser, error) {
	return os.Open(i.binaryPath(name))
}

func (i *FSInput) metadataPath() string {
	return filepath.Join(i.Cfg.Dir, i.Cfg.MetadataFile)
}

func (i *FSInput) binaryPath(name string) string {
	return filepath.Join(i.Cfg.Dir, filepath.Base(name))
}
