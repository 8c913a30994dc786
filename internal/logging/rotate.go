package logging

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
)

// RotatingFile is a size-capped log file. Once a write would push the file
// past MaxBytes it is renamed to "<path>.1", older backups shift up by one
// and the oldest beyond the backup count is discarded.
type RotatingFile struct {
	mu       sync.Mutex
	path     string
	maxBytes int64
	backups  int
	file     *os.File
	size     int64
}

// OpenRotatingFile opens path for appending. maxBytes <= 0 disables rotation.
func OpenRotatingFile(path string, maxBytes int64, backups int) (*RotatingFile, error) {
	if backups < 0 {
		backups = 0
	}
	f := &RotatingFile{path: path, maxBytes: maxBytes, backups: backups}
	if err := f.open(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *RotatingFile) Path() string { return f.path }

func (f *RotatingFile) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return 0, fs.ErrClosed
	}

	if f.maxBytes > 0 && f.size > 0 && f.size+int64(len(p)) > f.maxBytes {
		if err := f.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := f.file.Write(p)
	f.size += int64(n)
	return n, err
}

func (f *RotatingFile) Sync() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return nil
	}
	return f.file.Sync()
}

func (f *RotatingFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}

func (f *RotatingFile) open() error {
	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("stat log file: %w", err)
	}
	f.file = file
	f.size = info.Size()
	return nil
}

func (f *RotatingFile) backupName(i int) string {
	return fmt.Sprintf("%s.%d", f.path, i)
}

// rotate must be called with mu held.
func (f *RotatingFile) rotate() error {
	if err := f.file.Close(); err != nil {
		return fmt.Errorf("close log file: %w", err)
	}
	f.file = nil

	if f.backups == 0 {
		if err := os.Truncate(f.path, 0); err != nil {
			return fmt.Errorf("truncate log file: %w", err)
		}
		return f.open()
	}

	for i := f.backups - 1; i >= 1; i-- {
		if err := os.Rename(f.backupName(i), f.backupName(i+1)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("shift log backup: %w", err)
		}
	}
	if err := os.Rename(f.path, f.backupName(1)); err != nil {
		return fmt.Errorf("rotate log file: %w", err)
	}
	return f.open()
}
