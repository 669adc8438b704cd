// Package visualization exports volumes and feature images for
// inspection: single slices along any axis, numbered slice stacks, and
// per-channel feature images.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/image/tiff"

	"gonum.org/v1/gonum/floats"

	"scrollink/pkg/features"
	"scrollink/pkg/volume"
)

// Viewer extracts and saves 2D views of a (z, y, x) volume.
type Viewer struct {
	vol *volume.Volume
}

// NewViewer creates a viewer over a volume.
func NewViewer(vol *volume.Volume) *Viewer {
	return &Viewer{vol: vol}
}

// ExtractSlice extracts a 2D slice from the volume along the specified
// axis at the given position. Intensities are scaled from the 0-1 range
// to 16-bit grayscale.
func (v *Viewer) ExtractSlice(axis string, position int) (image.Image, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}

	shape := v.vol.Shape()
	depth, height, width := shape[0], shape[1], shape[2]

	var img *image.Gray16

	switch axis {
	case "x", "X":
		// Extract slice along YZ plane
		if position >= width {
			return nil, fmt.Errorf("position %d exceeds width %d", position, width)
		}
		img = image.NewGray16(image.Rect(0, 0, depth, height))
		for y := 0; y < height; y++ {
			for z := 0; z < depth; z++ {
				img.SetGray16(z, y, gray16(v.vol.At(z, y, position)))
			}
		}

	case "y", "Y":
		// Extract slice along XZ plane
		if position >= height {
			return nil, fmt.Errorf("position %d exceeds height %d", position, height)
		}
		img = image.NewGray16(image.Rect(0, 0, width, depth))
		for z := 0; z < depth; z++ {
			for x := 0; x < width; x++ {
				img.SetGray16(x, z, gray16(v.vol.At(z, position, x)))
			}
		}

	case "z", "Z":
		// Extract slice along XY plane
		if position >= depth {
			return nil, fmt.Errorf("position %d exceeds depth %d", position, depth)
		}
		img = image.NewGray16(image.Rect(0, 0, width, height))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				img.SetGray16(x, y, gray16(v.vol.At(position, y, x)))
			}
		}

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	return img, nil
}

// SaveSliceSequence extracts and saves a JPEG sequence of slices along
// the specified axis.
func (v *Viewer) SaveSliceSequence(axis string, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	shape := v.vol.Shape()
	var maxPos int
	switch axis {
	case "x", "X":
		maxPos = shape[2]
	case "y", "Y":
		maxPos = shape[1]
	case "z", "Z":
		maxPos = shape[0]
	default:
		return fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	for pos := 0; pos < maxPos; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.jpg", axis, pos))
		if err := saveJPEG(img, filename); err != nil {
			return err
		}
	}

	return nil
}

// SaveVolumeToStack writes the volume as one 16-bit grayscale TIFF per
// depth index, named by the zero-based index ("0.tif", "1.tif", ...),
// so the stack can be reloaded as a volume.
func (v *Viewer) SaveVolumeToStack(outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	shape := v.vol.Shape()
	for z := 0; z < shape[0]; z++ {
		img, err := v.ExtractSlice("z", z)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, strconv.Itoa(z)+".tif")
		if err := saveTIFF(img, filename); err != nil {
			return fmt.Errorf("saving slice %d: %w", z, err)
		}
	}

	return nil
}

// SaveFeatureChannel writes one channel of a feature image as a 16-bit
// grayscale TIFF, remapping the channel's value range onto the full
// grayscale range.
func SaveFeatureChannel(f *features.FeatureImage, ch int, filename string) error {
	if ch < 0 || ch >= f.Channels {
		return fmt.Errorf("channel %d out of range (%d channels)", ch, f.Channels)
	}

	data := f.Channel(ch)
	lo := floats.Min(data)
	hi := floats.Max(data)

	img := image.NewGray16(image.Rect(0, 0, f.Cols, f.Rows))
	for row := 0; row < f.Rows; row++ {
		for col := 0; col < f.Cols; col++ {
			val := Remap(data[row*f.Cols+col], lo, hi, 0, 65535)
			img.SetGray16(col, row, color.Gray16{Y: uint16(val)})
		}
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}
	return saveTIFF(img, filename)
}

// Remap linearly maps a value from one range onto another. A NaN result
// (degenerate input range) maps to zero.
func Remap(x, inMin, inMax, outMin, outMax float64) float64 {
	val := (x-inMin)*(outMax-outMin)/(inMax-inMin) + outMin
	if math.IsNaN(val) {
		return 0
	}
	return val
}

func gray16(intensity float64) color.Gray16 {
	return color.Gray16{Y: uint16(math.Max(0, math.Min(65535, intensity*65535)))}
}

func saveJPEG(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
}

func saveTIFF(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return tiff.Encode(file, img, &tiff.Options{Compression: tiff.Uncompressed})
}
