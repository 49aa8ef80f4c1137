package snapshot

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/Iron-Ham/tasktree/internal/errors"
)

// DefaultFileName is the snapshot file name inside the storage directory.
const DefaultFileName = "all_tasks.json"

// Storage persists full snapshots. Implementations replace the whole
// document on every Save.
type Storage interface {
	// Load returns every stored top-level record. A missing snapshot is
	// not an error and yields no records.
	Load() ([]Record, error)

	// Save replaces the stored snapshot.
	Save(records []Record) error

	// Location describes where snapshots live, for logs and errors.
	Location() string
}

// File stores snapshots as a single JSON document on an afero filesystem.
type File struct {
	fs   afero.Fs
	path string
	lock bool
}

// FileOption configures a File.
type FileOption func(*File)

// WithLock guards reads and writes with a flock(2) lock file next to the
// snapshot. It only takes effect on the OS filesystem.
func WithLock(enabled bool) FileOption {
	return func(f *File) {
		f.lock = enabled
	}
}

// NewFile returns a File storing the snapshot at path on fs.
func NewFile(fs afero.Fs, path string, opts ...FileOption) *File {
	f := &File{fs: fs, path: path}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewOSFile returns a File on the OS filesystem at dir/name.
func NewOSFile(dir, name string, opts ...FileOption) *File {
	if name == "" {
		name = DefaultFileName
	}
	return NewFile(afero.NewOsFs(), filepath.Join(dir, name), opts...)
}

// Location returns the snapshot path.
func (f *File) Location() string {
	return f.path
}

// Fs returns the backing filesystem.
func (f *File) Fs() afero.Fs {
	return f.fs
}

// Load reads and decodes the snapshot.
func (f *File) Load() ([]Record, error) {
	unlock, err := f.acquire()
	if err != nil {
		return nil, errors.NewPersistenceError(f.path, err).WithMessage("snapshot lock failed")
	}
	defer unlock()

	data, err := afero.ReadFile(f.fs, f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Record{}, nil
		}
		return nil, errors.NewPersistenceError(f.path, err).WithMessage("snapshot read failed")
	}
	records, err := Decode(data)
	if err != nil {
		return nil, errors.NewPersistenceError(f.path, err).WithMessage("snapshot decode failed")
	}
	return records, nil
}

// Save encodes records and writes them atomically: data goes to a
// temporary file that is then renamed over the snapshot.
func (f *File) Save(records []Record) error {
	data, err := Encode(records)
	if err != nil {
		return errors.NewPersistenceError(f.path, err)
	}

	unlock, err := f.acquire()
	if err != nil {
		return errors.NewPersistenceError(f.path, err).WithMessage("snapshot lock failed")
	}
	defer unlock()

	if err := f.fs.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return errors.NewPersistenceError(f.path, fmt.Errorf("create dir: %w", err))
	}

	tmp := f.path + ".tmp"
	if err := afero.WriteFile(f.fs, tmp, data, 0o644); err != nil {
		return errors.NewPersistenceError(f.path, fmt.Errorf("write temp file: %w", err))
	}
	if err := f.fs.Rename(tmp, f.path); err != nil {
		_ = f.fs.Remove(tmp) // best-effort cleanup
		return errors.NewPersistenceError(f.path, fmt.Errorf("rename temp file: %w", err))
	}
	return nil
}

func (f *File) acquire() (func(), error) {
	if !f.lock {
		return func() {}, nil
	}
	if _, ok := f.fs.(*afero.OsFs); !ok {
		return func() {}, nil
	}
	fl := NewFileLock(filepath.Dir(f.path))
	if err := fl.Lock(); err != nil {
		return nil, err
	}
	return func() { _ = fl.Unlock() }, nil
}
