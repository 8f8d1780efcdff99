// Package iconcache implements the adaptive icon cache: a bounded LRU
// texture cache fed by a load queue (high-priority names go to the front,
// low-priority names to the back), resolved at an FPS-adaptive rate off
// the UI goroutine.
package iconcache

import (
	"image"
	_ "image/png" // registers PNG decoding used by resolve
	"os"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "golang.org/x/image/bmp" // registers BMP decoding for legacy icon sets
)

// TextureHandle is whatever the host environment's renderer needs to draw
// an icon; the cache itself is renderer-agnostic and just carries the
// decoded image plus an access timestamp.
type TextureHandle struct {
	Image        image.Image
	LastAccessed time.Time
}

// DefaultStaleAge is how old an entry must be before explicit cleanup
// removes it, per spec.md §4.6.
const DefaultStaleAge = 120 * time.Second

// Band-dependent adaptive throttle, per spec.md §4.6.
const (
	rateHighFPS = 8
	rateMidFPS  = 4
	rateLowFPS  = 2
)

// Resolver loads and decodes the icon for name from wherever the host
// environment's icon directory is. It is expected to do real I/O and is
// always called off the UI goroutine.
type Resolver func(name string) (image.Image, error)

// Cache is the C7 Icon Cache.
type Cache struct {
	maxCached int
	resolver  Resolver
	decode    func(name string) (image.Image, error)

	mu       sync.Mutex
	textures *lru.Cache[string, *TextureHandle]

	queueMu sync.Mutex
	queue   []string
	queued  map[string]bool

	resultsMu sync.Mutex
	results   chan resolveResult

	placeholder *TextureHandle
}

type resolveResult struct {
	name    string
	texture *TextureHandle
}

// New creates a Cache bounded to maxCachedIcons entries, using resolver to
// load icons not yet cached and placeholder for entries pending or failed.
func New(maxCachedIcons int, resolver Resolver, placeholder image.Image) *Cache {
	c := &Cache{
		maxCached:   maxCachedIcons,
		resolver:    resolver,
		queued:      make(map[string]bool),
		results:     make(chan resolveResult, maxCachedIcons),
		placeholder: &TextureHandle{Image: placeholder},
	}
	textures, _ := lru.New[string, *TextureHandle](maxCachedIcons)
	c.textures = textures
	return c
}

// DefaultResolver opens a PNG file at path per call; it is the production
// Resolver used when icons live on local disk rather than a remote
// thumbnail repository, the local analogue of the teacher's HTTP-based
// DownloadArtwork.
func DefaultResolver(pathFor func(name string) string) Resolver {
	return func(name string) (image.Image, error) {
		f, err := os.Open(pathFor(name))
		if err != nil {
			return nil, err
		}
		defer f.Close()
		img, _, err := image.Decode(f)
		return img, err
	}
}

// Get returns the cached texture for name, or the placeholder if it has
// not resolved yet (in which case name is enqueued for loading unless
// already queued or cached).
func (c *Cache) Get(name string) *TextureHandle {
	c.mu.Lock()
	if t, ok := c.textures.Get(name); ok {
		t.LastAccessed = time.Now()
		c.mu.Unlock()
		return t
	}
	c.mu.Unlock()

	c.enqueue(name, false)
	return c.placeholder
}

func (c *Cache) enqueue(name string, lowPriority bool) {
	c.queueMu.Lock()
	defer c.queueMu.Unlock()
	if c.queued[name] {
		return
	}
	c.queued[name] = true
	if lowPriority {
		c.queue = append(c.queue, name)
	} else {
		c.queue = append([]string{name}, c.queue...)
	}
}

// Prefetch enqueues the two-band prefetch set for the currently visible
// row range [visibleStart, visibleEnd): the visible band at high priority
// followed by a low-priority band extending `margin` rows on each side.
func (c *Cache) Prefetch(names []string, visibleStart, visibleEnd, margin int) {
	for i := visibleStart; i < visibleEnd && i < len(names); i++ {
		if i >= 0 {
			c.enqueue(names[i], false)
		}
	}
	lowStart := visibleStart - margin
	lowEnd := visibleEnd + margin
	for i := lowStart; i < visibleStart; i++ {
		if i >= 0 && i < len(names) {
			c.enqueue(names[i], true)
		}
	}
	for i := visibleEnd; i < lowEnd; i++ {
		if i >= 0 && i < len(names) {
			c.enqueue(names[i], true)
		}
	}
}

// Tick resolves up to K queued names, where K scales with fps per
// spec.md §4.6's adaptive-rate table, and drains any completed background
// decodes into the texture cache. Call once per UI frame.
func (c *Cache) Tick(fps float64) {
	c.drainResults()

	k := throttleFor(fps)
	for i := 0; i < k; i++ {
		name, ok := c.popQueue()
		if !ok {
			break
		}
		go c.resolveAsync(name)
	}
}

func throttleFor(fps float64) int {
	switch {
	case fps >= 55:
		return rateHighFPS
	case fps >= 30:
		return rateMidFPS
	default:
		return rateLowFPS
	}
}

func (c *Cache) popQueue() (string, bool) {
	c.queueMu.Lock()
	defer c.queueMu.Unlock()
	if len(c.queue) == 0 {
		return "", false
	}
	name := c.queue[0]
	c.queue = c.queue[1:]
	return name, true
}

// resolveAsync performs the single filesystem/decode operation off the UI
// goroutine and posts the result back for Tick to drain, matching the
// teacher's off-thread-download-then-channel-drain idiom. A resolve
// failure caches the placeholder under name, so Get does not enqueue name
// again while that entry stays cached; once LRU eviction or Cleanup removes
// the entry, the next Get for name enqueues it again.
func (c *Cache) resolveAsync(name string) {
	defer func() {
		c.queueMu.Lock()
		delete(c.queued, name)
		c.queueMu.Unlock()
	}()

	img, err := c.resolver(name)
	if err != nil {
		c.results <- resolveResult{name: name, texture: c.placeholder}
		return
	}
	c.results <- resolveResult{name: name, texture: &TextureHandle{Image: img, LastAccessed: time.Now()}}
}

func (c *Cache) drainResults() {
	for {
		select {
		case r := <-c.results:
			c.mu.Lock()
			c.textures.Add(r.name, r.texture)
			c.mu.Unlock()
		default:
			return
		}
	}
}

// Cleanup removes entries whose LastAccessed is older than maxAge.
func (c *Cache) Cleanup(maxAge time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for _, name := range c.textures.Keys() {
		t, ok := c.textures.Peek(name)
		if !ok {
			continue
		}
		if now.Sub(t.LastAccessed) > maxAge {
			c.textures.Remove(name)
		}
	}
}

// Len returns the number of currently cached textures.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.textures.Len()
}
