package cache

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// nowFunc is the clock used for expiry (injectable for tests)
var nowFunc = time.Now

// DiskCache keeps pages across runs, one file per key in a two-level tree.
// A file is an expiry line followed by the raw page bytes.
type DiskCache struct {
	dir string
	ttl time.Duration
}

// NewDiskCache creates a disk cache rooted at dir
func NewDiskCache(dir string, ttl time.Duration) *DiskCache {
	return &DiskCache{dir: dir, ttl: ttl}
}

// Get reads a page; expired or unreadable files are removed
func (c *DiskCache) Get(key string) ([]byte, bool) {
	path := c.path(key)

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	expires, body, err := decodeEntry(raw)
	if err != nil || nowFunc().After(expires) {
		_ = os.Remove(path)
		return nil, false
	}
	return body, true
}

// Set writes a page through a temp file and rename. A zero ttl uses the cache default.
func (c *DiskCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.ttl
	}

	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, encodeEntry(nowFunc().Add(ttl), value), 0o644); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename cache file: %w", err)
	}
	return nil
}

// Delete removes a page; a missing file is not an error
func (c *DiskCache) Delete(key string) error {
	if err := os.Remove(c.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Clear removes the whole cache directory
func (c *DiskCache) Clear() error {
	return os.RemoveAll(c.dir)
}

// path shards by the last two characters of the key, which for PageKey
// are hex digits of the URL hash
func (c *DiskCache) path(key string) string {
	name := strings.NewReplacer(":", "_", "/", "_", `\`, "_").Replace(key)
	shard := "00"
	if len(name) >= 2 {
		shard = name[len(name)-2:]
	}
	return filepath.Join(c.dir, shard, name+".page")
}

func encodeEntry(expires time.Time, body []byte) []byte {
	var b bytes.Buffer
	b.WriteString(expires.UTC().Format(time.RFC3339Nano))
	b.WriteByte('\n')
	b.Write(body)
	return b.Bytes()
}

func decodeEntry(raw []byte) (time.Time, []byte, error) {
	r := bufio.NewReader(bytes.NewReader(raw))
	line, err := r.ReadString('\n')
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("read expiry: %w", err)
	}
	expires, err := time.Parse(time.RFC3339Nano, strings.TrimSuffix(line, "\n"))
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("parse expiry: %w", err)
	}
	return expires, raw[len(line):], nil
}
