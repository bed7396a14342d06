package csvfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/quentinrf/light-analyzer/internal/domain"
)

const (
	// DirName is the log directory created under the storage root
	DirName = "LightAnalyzer"
	// FileName is the reading log inside DirName
	FileName = "Light.csv"
)

// ReadingLog appends readings to <root>/LightAnalyzer/Light.csv.
// Each append is synced to the device before it returns.
type ReadingLog struct {
	root string
	loc  *time.Location

	mu   sync.Mutex
	file *os.File
}

// NewReadingLog creates a closed log rooted at the given storage root.
// The human-readable column is rendered in loc (time.Local when nil).
func NewReadingLog(root string, loc *time.Location) *ReadingLog {
	if loc == nil {
		loc = time.Local
	}
	return &ReadingLog{root: root, loc: loc}
}

// Path returns the log file location.
func (l *ReadingLog) Path() string {
	return filepath.Join(l.root, DirName, FileName)
}

// IsOpen reports whether the file handle is held.
func (l *ReadingLog) IsOpen() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file != nil
}

// Open makes the log ready for appends. Existing content is preserved.
func (l *ReadingLog) Open() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return domain.ErrLoggerAlreadyOpen
	}

	if err := checkWritable(l.root); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrStorageUnavailable, l.root, err)
	}

	dir := filepath.Join(l.root, DirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDirectoryCreateFailed, err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", domain.ErrDirectoryCreateFailed, dir)
	}

	f, err := os.OpenFile(filepath.Join(dir, FileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open reading log: %w", domain.ErrStorageUnavailable, err)
	}

	l.file = f
	return nil
}

// Append writes one line for reading and syncs it to disk.
func (l *ReadingLog) Append(reading domain.Reading) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return fmt.Errorf("%w: %w", domain.ErrWriteFailed, domain.ErrLoggerNotOpen)
	}

	line := domain.FormatLine(reading, l.loc) + "\n"
	if _, err := l.file.WriteString(line); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrWriteFailed, err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("%w: sync: %w", domain.ErrWriteFailed, err)
	}
	return nil
}

// Close syncs and releases the file. It is a no-op when not open, and
// the handle is released even if the sync fails.
func (l *ReadingLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}

	f := l.file
	l.file = nil

	var err error
	if syncErr := f.Sync(); syncErr != nil && !errors.Is(syncErr, os.ErrClosed) {
		err = multierr.Append(err, fmt.Errorf("sync reading log: %w", syncErr))
	}
	if closeErr := f.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
		err = multierr.Append(err, fmt.Errorf("close reading log: %w", closeErr))
	}
	return err
}
