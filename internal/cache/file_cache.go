// Package cache persists JSON-encodable values between CLI invocations so
// reprocessing an unchanged cube can be skipped.
package cache

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// entry wraps a cached value with its write time and a payload checksum.
// The checksum guards against truncated or hand-edited files; a mismatch
// reads as a miss, never as an error.
type entry[T any] struct {
	Data      T         `json:"data"`
	CreatedAt time.Time `json:"created_at"`
	Checksum  string    `json:"checksum"`
}

// FileCache stores one JSON file per key under a directory. The zero value
// is not usable; construct with NewFileCache.
type FileCache[T any] struct {
	dir string
}

func NewFileCache[T any](dir string) *FileCache[T] {
	return &FileCache[T]{dir: dir}
}

// GenerateKey derives a stable cache key from the identifying parameters of
// a computation. Any change to a parameter changes the key.
func (fc *FileCache[T]) GenerateKey(params ...any) string {
	h := sha1.New()
	for _, param := range params {
		fmt.Fprintf(h, "%v_", param)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get looks the key up. Absent, unreadable, corrupt and tampered entries all
// report a miss.
func (fc *FileCache[T]) Get(key string) (T, bool) {
	var zero T
	raw, err := os.ReadFile(fc.path(key))
	if err != nil {
		return zero, false
	}
	var e entry[T]
	if err := json.Unmarshal(raw, &e); err != nil {
		return zero, false
	}
	if e.Checksum != checksum(e.Data) {
		return zero, false
	}
	return e.Data, true
}

// Set stores data under key. The entry goes through a temp file and a
// rename, so concurrent readers never see a torn entry.
func (fc *FileCache[T]) Set(key string, data T) error {
	if err := os.MkdirAll(fc.dir, 0o755); err != nil {
		return fmt.Errorf("create cache directory %s: %w", fc.dir, err)
	}
	raw, err := json.Marshal(entry[T]{
		Data:      data,
		CreatedAt: time.Now(),
		Checksum:  checksum(data),
	})
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	path := fc.path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

func (fc *FileCache[T]) path(key string) string {
	return filepath.Join(fc.dir, key+".json")
}

func checksum[T any](data T) string {
	raw, _ := json.Marshal(data)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
