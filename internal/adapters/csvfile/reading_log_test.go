package csvfile

import (
	"bufio"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/quentinrf/light-analyzer/internal/domain"
)

func newOpenLog(t *testing.T, root string) *ReadingLog {
	t.Helper()
	l := NewReadingLog(root, time.UTC)
	if err := l.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	content := string(data)
	if content == "" {
		return nil
	}
	if !strings.HasSuffix(content, "\n") {
		t.Fatalf("log does not end with a line terminator: %q", content)
	}
	return strings.Split(strings.TrimSuffix(content, "\n"), "\n")
}

func TestOpen_CreatesDirectory(t *testing.T) {
	root := t.TempDir()
	l := newOpenLog(t, root)

	want := filepath.Join(root, "LightAnalyzer", "Light.csv")
	if l.Path() != want {
		t.Errorf("expected path %q, got %q", want, l.Path())
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("expected log file to exist: %v", err)
	}
	if !l.IsOpen() {
		t.Error("expected log to be open")
	}
}

func TestAppend_WritesFormattedLines(t *testing.T) {
	l := newOpenLog(t, t.TempDir())

	readings := []domain.Reading{
		{Sequence: 1, TimestampMillis: 1000, Lux: 10.5},
		{Sequence: 2, TimestampMillis: 2000, Lux: 0.0},
		{Sequence: 3, TimestampMillis: 3000, Lux: 1200.3},
	}
	for _, r := range readings {
		if err := l.Append(r); err != nil {
			t.Fatalf("Append(%+v) failed: %v", r, err)
		}
	}

	want := []string{
		"1,1000,1970-01-01-12-00-01AM,10.5",
		"2,2000,1970-01-01-12-00-02AM,0.0",
		"3,3000,1970-01-01-12-00-03AM,1200.3",
	}
	got := readLines(t, l.Path())
	if len(got) != len(want) {
		t.Fatalf("expected %d lines, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestAppend_LinesParseBack(t *testing.T) {
	l := newOpenLog(t, t.TempDir())

	want := []domain.Reading{
		{Sequence: 1, TimestampMillis: 1709989507250, Lux: 0.25},
		{Sequence: 2, TimestampMillis: 1709989507450, Lux: 1e-5},
		{Sequence: 3, TimestampMillis: 1709989507650, Lux: 88000.125},
	}
	for _, r := range want {
		if err := l.Append(r); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	f, err := os.Open(l.Path())
	if err != nil {
		t.Fatalf("failed to open log: %v", err)
	}
	defer f.Close()

	var got []domain.Reading
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		r, err := domain.ParseLine(scanner.Text())
		if err != nil {
			t.Fatalf("ParseLine(%q) failed: %v", scanner.Text(), err)
		}
		got = append(got, r)
	}

	if len(got) != len(want) {
		t.Fatalf("expected %d readings, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("reading %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestOpen_AppendsAcrossRuns(t *testing.T) {
	root := t.TempDir()

	first := NewReadingLog(root, time.UTC)
	if err := first.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := first.Append(domain.Reading{Sequence: 1, TimestampMillis: 1000, Lux: 1}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second := newOpenLog(t, root)
	if err := second.Append(domain.Reading{Sequence: 1, TimestampMillis: 5000, Lux: 2}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	lines := readLines(t, second.Path())
	if len(lines) != 2 {
		t.Fatalf("expected history to be preserved, got %v", lines)
	}
	if !strings.HasPrefix(lines[0], "1,1000,") || !strings.HasPrefix(lines[1], "1,5000,") {
		t.Errorf("unexpected lines %v", lines)
	}
}

func TestOpen_StorageUnavailable(t *testing.T) {
	root := filepath.Join(t.TempDir(), "unmounted")

	l := NewReadingLog(root, time.UTC)
	err := l.Open()
	if !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
	if l.IsOpen() {
		t.Error("expected log to stay closed")
	}
	if _, err := os.Stat(root); !os.IsNotExist(err) {
		t.Error("expected storage root not to be created")
	}
}

func TestOpen_StorageReadOnly(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	root := t.TempDir()
	if err := os.Chmod(root, 0o555); err != nil {
		t.Fatalf("chmod failed: %v", err)
	}
	t.Cleanup(func() { os.Chmod(root, 0o755) })

	err := NewReadingLog(root, time.UTC).Open()
	if !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}

func TestOpen_DirectoryCreateFailed(t *testing.T) {
	root := t.TempDir()
	// a regular file squatting on the directory name
	if err := os.WriteFile(filepath.Join(root, DirName), []byte("x"), 0o644); err != nil {
		t.Fatalf("failed to create blocker: %v", err)
	}

	err := NewReadingLog(root, time.UTC).Open()
	if !errors.Is(err, domain.ErrDirectoryCreateFailed) {
		t.Fatalf("expected ErrDirectoryCreateFailed, got %v", err)
	}
}

func TestOpen_FileUnopenable(t *testing.T) {
	root := t.TempDir()
	// a directory squatting on the file name
	if err := os.MkdirAll(filepath.Join(root, DirName, FileName), 0o755); err != nil {
		t.Fatalf("failed to create blocker: %v", err)
	}

	l := NewReadingLog(root, time.UTC)
	err := l.Open()
	if !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
	if l.IsOpen() {
		t.Error("expected log to stay closed")
	}
}

func TestOpen_Twice(t *testing.T) {
	l := newOpenLog(t, t.TempDir())

	if err := l.Open(); !errors.Is(err, domain.ErrLoggerAlreadyOpen) {
		t.Errorf("expected ErrLoggerAlreadyOpen, got %v", err)
	}
}

func TestAppend_BeforeOpen(t *testing.T) {
	l := NewReadingLog(t.TempDir(), time.UTC)

	err := l.Append(domain.Reading{Sequence: 1})
	if !errors.Is(err, domain.ErrWriteFailed) || !errors.Is(err, domain.ErrLoggerNotOpen) {
		t.Errorf("expected ErrWriteFailed wrapping ErrLoggerNotOpen, got %v", err)
	}
}

func TestAppend_WriteFailure(t *testing.T) {
	l := newOpenLog(t, t.TempDir())

	// pull the handle out from under the logger
	l.file.Close()

	err := l.Append(domain.Reading{Sequence: 1, TimestampMillis: 1000, Lux: 1})
	if !errors.Is(err, domain.ErrWriteFailed) {
		t.Fatalf("expected ErrWriteFailed, got %v", err)
	}

	if err := l.Close(); err != nil {
		t.Errorf("expected Close to release the handle quietly, got %v", err)
	}
	if l.IsOpen() {
		t.Error("expected log to be closed")
	}
}

func TestClose_NotOpen(t *testing.T) {
	l := NewReadingLog(t.TempDir(), time.UTC)

	if err := l.Close(); err != nil {
		t.Errorf("expected no-op close, got %v", err)
	}

	if err := l.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("expected second close to be a no-op, got %v", err)
	}
}
