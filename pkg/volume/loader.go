package volume

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"

	// Register the decoders for the slice formats scanners produce.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/tiff"
)

// Load builds a volume from a directory of 2D grayscale slice images.
// Non-hidden files are sorted lexicographically by name and stacked along
// the first axis, so the volume is indexed (z, y, x) with z the slice
// index. Filenames must be zero-padded for the lexicographic order to
// match the depth order. All slices must share one shape, and every
// non-hidden file must decode as an image.
func Load(dir string) (*Volume, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading slice directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		names = append(names, entry.Name())
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no slice images found in %s", dir)
	}
	sort.Strings(names)

	var vol *Volume
	for z, name := range names {
		img, err := loadImage(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("loading slice %s: %w", name, err)
		}

		bounds := img.Bounds()
		width := bounds.Dx()
		height := bounds.Dy()

		if vol == nil {
			vol = New([3]int{len(names), height, width})
		} else if height != vol.shape[1] || width != vol.shape[2] {
			return nil, fmt.Errorf("slice %s has shape %dx%d, want %dx%d",
				name, width, height, vol.shape[2], vol.shape[1])
		}

		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				r, _, _, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
				// Convert 16-bit color to float64 (0-1 range)
				vol.Set(z, y, x, float64(r)/65535.0)
			}
		}
	}

	return vol, nil
}

// loadImage loads and decodes a single slice image.
func loadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, err
	}
	return img, nil
}
