package volume

import (
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// writeGrayPNG writes a width x height 8-bit grayscale PNG where every
// pixel has the given gray value.
func writeGrayPNG(t *testing.T, path string, width, height int, gray uint8) {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Pix[y*img.Stride+x] = gray
		}
	}

	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create %s: %v", path, err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		t.Fatalf("Failed to encode %s: %v", path, err)
	}
}

// TestLoadSliceStack verifies that slices are stacked in lexicographic
// filename order with hidden files ignored
func TestLoadSliceStack(t *testing.T) {
	dir := t.TempDir()

	// Written out of order on purpose; the loader must sort by name.
	writeGrayPNG(t, filepath.Join(dir, "02.png"), 4, 3, 200)
	writeGrayPNG(t, filepath.Join(dir, "00.png"), 4, 3, 0)
	writeGrayPNG(t, filepath.Join(dir, "01.png"), 4, 3, 100)

	// Hidden files must be skipped.
	if err := os.WriteFile(filepath.Join(dir, ".hidden"), []byte("junk"), 0644); err != nil {
		t.Fatalf("Failed to write hidden file: %v", err)
	}

	vol, err := Load(dir)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if vol.Shape() != [3]int{3, 3, 4} {
		t.Fatalf("Expected shape [3 3 4], got %v", vol.Shape())
	}

	// 8-bit gray g maps to g/255 after the 16-bit conversion.
	wants := []float64{0, 100.0 / 255.0, 200.0 / 255.0}
	for z, want := range wants {
		if got := vol.At(z, 1, 2); math.Abs(got-want) > 1e-9 {
			t.Errorf("Expected slice %d intensity %v, got %v", z, want, got)
		}
	}
}

// TestLoadInconsistentShapes verifies that slices of differing shapes
// are rejected
func TestLoadInconsistentShapes(t *testing.T) {
	dir := t.TempDir()
	writeGrayPNG(t, filepath.Join(dir, "00.png"), 4, 3, 10)
	writeGrayPNG(t, filepath.Join(dir, "01.png"), 5, 3, 10)

	if _, err := Load(dir); err == nil {
		t.Errorf("Expected error for inconsistent slice shapes, got none")
	}
}

// TestLoadNonImageFile verifies that a non-image file in the directory
// fails the load
func TestLoadNonImageFile(t *testing.T) {
	dir := t.TempDir()
	writeGrayPNG(t, filepath.Join(dir, "00.png"), 4, 3, 10)
	if err := os.WriteFile(filepath.Join(dir, "01.txt"), []byte("not an image"), 0644); err != nil {
		t.Fatalf("Failed to write text file: %v", err)
	}

	if _, err := Load(dir); err == nil {
		t.Errorf("Expected error for non-image file, got none")
	}
}

// TestLoadEmptyDirectory verifies that a directory without images fails
func TestLoadEmptyDirectory(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Errorf("Expected error for empty directory, got none")
	}
}
