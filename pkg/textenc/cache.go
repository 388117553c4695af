package textenc

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Cache persists computed embeddings on disk, keyed by a content hash of
// the (repository, text-version, text) tuple, per §9's design note: "the
// pragmatic route is to precompute text embeddings offline once... and
// cache them on disk; runtime inference then reads only the embedding."
type Cache struct {
	dir string
}

// NewCache returns a Cache rooted at dir, creating it if necessary.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("text embedding cache: %w", err)
	}
	return &Cache{dir: dir}, nil
}

type cacheEntry struct {
	Vector [OutputWidth]float64 `json:"vector"`
	Absent bool                 `json:"absent"`
}

func (c *Cache) keyPath(repo, textVersion, text string) string {
	h := sha256.Sum256([]byte(repo + "\x00" + textVersion + "\x00" + text))
	return filepath.Join(c.dir, hex.EncodeToString(h[:])+".json")
}

// Get returns a previously cached embedding, if present.
func (c *Cache) Get(repo, textVersion, text string) (vector [OutputWidth]float64, absent bool, ok bool) {
	data, err := os.ReadFile(c.keyPath(repo, textVersion, text))
	if err != nil {
		return vector, false, false
	}
	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return vector, false, false
	}
	return entry.Vector, entry.Absent, true
}

// Put persists a computed embedding for later reuse.
func (c *Cache) Put(repo, textVersion, text string, vector [OutputWidth]float64, absent bool) error {
	data, err := json.Marshal(cacheEntry{Vector: vector, Absent: absent})
	if err != nil {
		return fmt.Errorf("text embedding cache: %w", err)
	}
	path := c.keyPath(repo, textVersion, text)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("text embedding cache: %w", err)
	}
	return os.Rename(tmp, path)
}

// EncodeCached computes (or retrieves) the embedding for text, writing
// through to the cache on a miss.
func EncodeCached(enc *Encoder, cache *Cache, repo, textVersion, text string) ([OutputWidth]float64, bool, error) {
	if cache != nil {
		if vector, absent, ok := cache.Get(repo, textVersion, text); ok {
			return vector, absent, nil
		}
	}
	vector, absent := enc.Encode(text)
	if cache != nil {
		if err := cache.Put(repo, textVersion, text, vector, absent); err != nil {
			return vector, absent, err
		}
	}
	return vector, absent, nil
}
