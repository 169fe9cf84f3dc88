package randomx

import (
	"fmt"

	"github.com/opd-ai/go-randomx/internal"
)

const (
	// cacheSize is the full RandomX cache size: 256 MiB, filled by Argon2d.
	cacheSize = 256 * 1024 * 1024

	// cacheItems is the number of 64-byte rows addressable in the cache.
	cacheItems = cacheSize / 64
)

// cache holds the RandomX cache, the Argon2d-filled 256 MiB memory block
// from which dataset items are derived (light mode) or the full dataset is
// built (fast mode).
type cache struct {
	data []byte // raw Argon2d memory, 256 MiB
	key  []byte // seed used to generate this cache
	prog *superscalarProgram
}

// newCache creates a new RandomX cache from the given seed.
func newCache(seed []byte) (*cache, error) {
	if len(seed) == 0 {
		return nil, fmt.Errorf("randomx: cache seed must not be empty")
	}

	cacheData := internal.Argon2dCache(seed)
	if len(cacheData) != cacheSize {
		return nil, fmt.Errorf("randomx: argon2 output size mismatch: got %d, want %d",
			len(cacheData), cacheSize)
	}

	c := &cache{
		key:  append([]byte(nil), seed...),
		data: cacheData,
	}
	c.prog = generateSuperscalarProgram(seed)

	return c, nil
}

// release frees the cache resources.
func (c *cache) release() {
	if c.data != nil {
		zeroBytes(c.data)
		c.data = nil
	}
	c.key = nil
}

// getItem returns the 64-byte cache row at the given index.
func (c *cache) getItem(index uint32) []byte {
	index %= cacheItems
	offset := uint64(index) * 64
	return c.data[offset : offset+64]
}
