package fcbatch

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// LoadEntry is the load protocol record of one successfully created
// container/binary pair.
type LoadEntry struct {
	Row       int
	Label     string
	ObjectURI string
	FileURI   string
	Checksum  string
	Duration  time.Duration
	Created   time.Time
}

// Tracker represents a storage that acts as the protocol of a load run. The
// Tracker interface is used to record loaded row pairs and row issues.
type Tracker interface {
	Storage
	// TrackLoad records one successfully loaded row pair.
	TrackLoad(entry *LoadEntry) error
	// TrackIssue records a row failure.
	TrackIssue(issue *Issue) error
}

// FileTrackerConfig represents the FileTracker configurable fields model.
type FileTrackerConfig struct {
	// Path is the protocol file location, conventionally load.log next to
	// the metadata sheet.
	Path string `validate:"required"`
}

// NewFileTracker returns a new instance of the FileTracker.
func NewFileTracker(cfg FileTrackerConfig) *FileTracker {
	return &FileTracker{Cfg: cfg}
}

// FileTracker represents a tracker that appends the load protocol to a local
// TSV file, one line per loaded pair.
type FileTracker struct {
	BaseStorage
	Cfg  FileTrackerConfig
	file *os.File
}

// Setup contains the storage preparations. As for the FileTracker, it opens
// the protocol file for appending, creating it if needed.
func (t *FileTracker) Setup() error {
	file, err := os.OpenFile(t.Cfg.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open protocol file %s: %v", t.Cfg.Path, err)
	}
	t.file = file
	return nil
}

// Shutdown closes the protocol file.
func (t *FileTracker) Shutdown() {
	if t.file != nil {
		t.file.Close()
	}
}

// TrackLoad appends one TSV line with the pair label, URIs and checksum.
func (t *FileTracker) TrackLoad(entry *LoadEntry) error {
	line := strings.Join([]string{
		fmt.Sprintf("%d", entry.Row),
		entry.Label,
		entry.ObjectURI,
		entry.FileURI,
		entry.Checksum,
	}, "\t")
	if _, err := fmt.Fprintln(t.file, line); err != nil {
		return fmt.Errorf("failed to write protocol line: %v", err)
	}
	return nil
}

// TrackIssue appends one TSV line marking the row as failed.
func (t *FileTracker) TrackIssue(issue *Issue) error {
	line := strings.Join([]string{
		fmt.Sprintf("%d", issue.Row),
		issue.Label,
		"ERROR",
		issue.Step.String(),
		issue.Note,
	}, "\t")
	if _, err := fmt.Fprintln(t.file, line); err != nil {
		return fmt.Errorf("failed to write protocol line: %v", err)
	}
	return nil
}
