package pipeline

import (
	"sync"

	"squish/internal/quantize"
)

// paletteKey fingerprints the inputs palette construction depends on.
// Quality, rotation, and resize target deliberately do not participate: the
// palette is built from the source-resolution buffer and is reusable across
// them.
type paletteKey struct {
	source     uint64
	colorCount int
}

type paletteEntry struct {
	once sync.Once
	pal  *quantize.Palette
}

// paletteCache holds built palettes per (source, colorCount). Construction
// for a given key runs at most once even under concurrent runs; later
// callers block on the entry's once and then share the result read-only.
type paletteCache struct {
	mu      sync.Mutex
	entries map[paletteKey]*paletteEntry
}

func newPaletteCache() *paletteCache {
	return &paletteCache{entries: make(map[paletteKey]*paletteEntry)}
}

// contains reports whether a palette for key has already been requested.
func (c *paletteCache) contains(key paletteKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// get returns the palette for key, building it with build on first use.
// The second return reports whether the entry pre-existed.
func (c *paletteCache) get(key paletteKey, build func() *quantize.Palette) (*quantize.Palette, bool) {
	c.mu.Lock()
	entry, hit := c.entries[key]
	if !hit {
		entry = &paletteEntry{}
		c.entries[key] = entry
	}
	c.mu.Unlock()

	entry.once.Do(func() {
		entry.pal = build()
	})
	return entry.pal, hit
}

// evict drops every entry. Called when a new source image is loaded.
func (c *paletteCache) evict() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[paletteKey]*paletteEntry)
}

func (c *paletteCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
