package audio

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// pcmEntry is a fully decoded file kept around so repeated FileSource
// instances pointing at the same path don't re-run the decoder.
type pcmEntry struct {
	format Format
	data   []byte
}

// PCMCache holds fully decoded PCM payloads keyed by "path:sampletype".
// Shared across FileSource instances within one engine; safe for
// concurrent use since go-cache internally locks.
type PCMCache struct {
	cache *gocache.Cache
}

// NewPCMCache creates a cache whose entries expire ttl after they were
// stored, whether or not they were read since, checking for expired entries
// every cleanupInterval. A ttl of 0 keeps entries until Clear.
func NewPCMCache(ttl, cleanupInterval time.Duration) *PCMCache {
	return &PCMCache{cache: gocache.New(ttl, cleanupInterval)}
}

func pcmKey(path string, sampleType SampleType) string {
	return path + ":" + sampleType.String()
}

// Get returns the cached decode of path at sampleType, if present.
func (c *PCMCache) Get(path string, sampleType SampleType) (Format, []byte, bool) {
	v, ok := c.cache.Get(pcmKey(path, sampleType))
	if !ok {
		return Format{}, nil, false
	}
	e := v.(pcmEntry)
	return e.format, e.data, true
}

// Put stores a decode of path at sampleType.
func (c *PCMCache) Put(path string, sampleType SampleType, format Format, data []byte) {
	c.cache.SetDefault(pcmKey(path, sampleType), pcmEntry{format: format, data: data})
}

// Clear evicts every cached decode.
func (c *PCMCache) Clear() { c.cache.Flush() }

// FileInfoCache holds probed FileInfo results keyed by path, which are
// much cheaper to keep indefinitely than a full PCM decode.
type FileInfoCache struct {
	cache *gocache.Cache
}

// NewFileInfoCache creates a cache with the given TTL and cleanup cadence.
func NewFileInfoCache(ttl, cleanupInterval time.Duration) *FileInfoCache {
	return &FileInfoCache{cache: gocache.New(ttl, cleanupInterval)}
}

// Get returns the cached FileInfo for path, if present.
func (c *FileInfoCache) Get(path string) (FileInfo, bool) {
	v, ok := c.cache.Get(path)
	if !ok {
		return FileInfo{}, false
	}
	return v.(FileInfo), true
}

// Put stores the FileInfo for path.
func (c *FileInfoCache) Put(path string, info FileInfo) {
	c.cache.SetDefault(path, info)
}

// Clear evicts every cached entry.
func (c *FileInfoCache) Clear() { c.cache.Flush() }
