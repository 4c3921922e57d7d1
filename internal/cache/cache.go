package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const fileExt = ".json"

type Entry struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	CreatedAt time.Time       `json:"created_at"`
}

// Cache is a directory of JSON files, one per key, that expire after ttl.
type Cache struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// NewCache opens (creating if needed) the cache in dir and drops expired
// entries.
func NewCache(dir string, ttl time.Duration) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating cache directory: %w", err)
	}

	c := &Cache{dir: dir, ttl: ttl, now: time.Now}
	_, _ = c.CleanExpired()
	return c, nil
}

func (c *Cache) Dir() string {
	return c.dir
}

// Key hashes parts into a stable file-safe key. Parts are separated so that
// ("ab","c") and ("a","bc") differ.
func Key(parts ...string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(h[:])
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key+fileExt)
}

// Get decodes the entry for key into out. found is false for missing or
// expired entries; expired files are removed.
func (c *Cache) Get(key string, out interface{}) (found bool, err error) {
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("error reading cache entry: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return false, fmt.Errorf("error decoding cache entry: %w", err)
	}

	if c.now().Sub(entry.CreatedAt) > c.ttl {
		_ = os.Remove(c.path(key))
		return false, nil
	}

	if out != nil {
		if err := json.Unmarshal(entry.Value, out); err != nil {
			return false, fmt.Errorf("error decoding cached value: %w", err)
		}
	}
	return true, nil
}

func (c *Cache) Set(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("error encoding cached value: %w", err)
	}

	data, err := json.MarshalIndent(Entry{Key: key, Value: raw, CreatedAt: c.now()}, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding cache entry: %w", err)
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("error creating cache directory: %w", err)
	}
	if err := os.WriteFile(c.path(key), data, 0o644); err != nil {
		return fmt.Errorf("error writing cache entry: %w", err)
	}
	return nil
}

// CleanExpired removes entries whose file is older than ttl and returns how
// many were removed.
func (c *Cache) CleanExpired() (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("error reading cache directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != fileExt {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if c.now().Sub(info.ModTime()) > c.ttl {
			if os.Remove(filepath.Join(c.dir, entry.Name())) == nil {
				removed++
			}
		}
	}
	return removed, nil
}

// Clean removes the whole cache directory.
func (c *Cache) Clean() error {
	if err := os.RemoveAll(c.dir); err != nil {
		return fmt.Errorf("error removing cache directory: %w", err)
	}
	return nil
}
