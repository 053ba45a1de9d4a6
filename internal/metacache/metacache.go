// Package metacache stores the metadata of a finished build so that a later
// session can import its classes, and remembers build fingerprints so an
// unchanged project is not compiled twice.
package metacache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"rescomp/internal/project"
	"rescomp/internal/script"
)

// Current schema version - increment when Payload format changes
const SchemaVersion uint16 = 1

// ErrSchemaMismatch is returned for payloads written by another schema version.
var ErrSchemaMismatch = errors.New("metadata schema mismatch")

// Payload is what a build leaves behind.
type Payload struct {
	Schema      uint16
	Package     string
	Fingerprint project.Digest
	Created     time.Time
	Resources   []string

	Metadata *script.Metadata
	Assembly *script.Assembly
}

// WriteFile encodes p to path atomically, creating parent directories.
func WriteFile(path string, p *Payload) (err error) {
	if p.Schema == 0 {
		p.Schema = SchemaVersion
	}
	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(path), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if rmErr := os.Remove(f.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
			err = rmErr
		}
	}()

	if err = msgpack.NewEncoder(f).Encode(p); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err = f.Close(); err != nil {
		return err
	}
	// Атомарная замена
	return os.Rename(f.Name(), path)
}

// ReadFile decodes the payload at path.
func ReadFile(path string) (*Payload, error) {
	// #nosec G304 -- path is provided by the caller
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var p Payload
	if err := msgpack.NewDecoder(f).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if p.Schema != SchemaVersion {
		return nil, fmt.Errorf("%s: %w: got %d, want %d", path, ErrSchemaMismatch, p.Schema, SchemaVersion)
	}
	return &p, nil
}

// DiskCache keeps payloads by build fingerprint.
// Thread-safe for concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// Open initializes a cache under the user cache directory.
func Open(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return OpenDir(filepath.Join(base, app))
}

// OpenDir initializes a cache rooted at dir.
func OpenDir(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) pathFor(key project.Digest) string {
	// подкаталог "builds" удобно чистить руками
	return filepath.Join(c.dir, "builds", key.String()+".mp")
}

// Put stores p under key. A nil cache ignores the call.
func (c *DiskCache) Put(key project.Digest, p *Payload) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return WriteFile(c.pathFor(key), p)
}

// Get loads the payload stored under key. Payloads of another schema count as misses.
func (c *DiskCache) Get(key project.Digest) (*Payload, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, err := ReadFile(c.pathFor(key))
	switch {
	case errors.Is(err, os.ErrNotExist), errors.Is(err, ErrSchemaMismatch):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}
	return p, true, nil
}

// DropAll removes every cached payload.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	// тривиально: переименуем каталог и удалим
	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0o755)
}
