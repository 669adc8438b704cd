package features

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
)

// Store persists computed feature images keyed by the extraction
// parameters. A failed or missing read is a cache miss, never fatal;
// the extractor recomputes and writes the result back.
type Store interface {
	// Get returns the cached feature image for a key, or false if the
	// key is absent or the stored data is unreadable.
	Get(key string) (*FeatureImage, bool)

	// Put stores a feature image under a key, replacing any previous
	// value.
	Put(key string, img *FeatureImage) error
}

// CacheKey derives the cache key for a set of extraction parameters.
// The three integers uniquely determine the key; there is no content
// hashing or further invalidation.
func CacheKey(cutIn, cutBack, neighborRadius int) string {
	return fmt.Sprintf("features-in%d-back%d-neigh%d", cutIn, cutBack, neighborRadius)
}

// DiskStore is a Store writing each feature image as a little-endian
// binary blob in a directory, one file per key.
type DiskStore struct {
	// Dir is the cache directory. It is created on the first Put.
	Dir string
}

// NewDiskStore creates a disk-backed store rooted at dir.
func NewDiskStore(dir string) *DiskStore {
	return &DiskStore{Dir: dir}
}

func (s *DiskStore) path(key string) string {
	return filepath.Join(s.Dir, key+".bin")
}

// Get reads a cached feature image. Any read or decode failure is
// reported as a miss.
func (s *DiskStore) Get(key string) (*FeatureImage, bool) {
	file, err := os.Open(s.path(key))
	if err != nil {
		return nil, false
	}
	defer file.Close()

	var dims [3]int64
	if err := binary.Read(file, binary.LittleEndian, &dims); err != nil {
		return nil, false
	}
	if dims[0] <= 0 || dims[1] <= 0 || dims[2] <= 0 {
		return nil, false
	}

	// The header must account for the file's payload exactly. The
	// per-factor division checks keep the product from overflowing
	// before it is compared.
	const headerSize = 3 * 8
	info, err := file.Stat()
	if err != nil || info.Size() < headerSize || (info.Size()-headerSize)%8 != 0 {
		return nil, false
	}
	elems := (info.Size() - headerSize) / 8
	if dims[0] > elems/dims[1] || dims[0]*dims[1] > elems/dims[2] {
		return nil, false
	}
	if dims[0]*dims[1]*dims[2] != elems {
		return nil, false
	}

	img := NewFeatureImage(int(dims[0]), int(dims[1]), int(dims[2]))
	if err := binary.Read(file, binary.LittleEndian, img.Data); err != nil {
		return nil, false
	}
	return img, true
}

// Put writes a feature image to the cache directory.
func (s *DiskStore) Put(key string, img *FeatureImage) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	file, err := os.Create(s.path(key))
	if err != nil {
		return fmt.Errorf("creating cache file: %w", err)
	}
	defer file.Close()

	dims := [3]int64{int64(img.Rows), int64(img.Cols), int64(img.Channels)}
	if err := binary.Write(file, binary.LittleEndian, dims); err != nil {
		return fmt.Errorf("writing cache header: %w", err)
	}
	if err := binary.Write(file, binary.LittleEndian, img.Data); err != nil {
		return fmt.Errorf("writing cache data: %w", err)
	}
	return nil
}
