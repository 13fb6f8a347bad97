package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// writeLotFile writes a uniform w x h PNG named name into dir.
func writeLotFile(t *testing.T, dir, name string, w, h int, c color.Color) string {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

func TestImageCache_LoadCaches(t *testing.T) {
	asphalt := color.NRGBA{R: 60, G: 60, B: 64, A: 255}
	path := writeLotFile(t, t.TempDir(), "lot.png", 64, 48, asphalt)
	cache := NewImageCache()

	first, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if b := first.Bounds(); b.Dx() != 64 || b.Dy() != 48 {
		t.Errorf("dimensions = %dx%d, want 64x48", b.Dx(), b.Dy())
	}

	// A cached image survives removal of the file.
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	second, err := cache.Load(path)
	if err != nil {
		t.Fatalf("cached Load failed: %v", err)
	}
	if first != second {
		t.Error("second Load did not return the cached image")
	}

	cache.Evict(path)
	if _, err := cache.Load(path); err == nil {
		t.Error("Load after Evict should read the (removed) file again and fail")
	}
}

func TestImageCache_LoadErrors(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "lot.png")
	if err := os.WriteFile(garbage, []byte("not a png"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	tests := []struct {
		name        string
		path        string
		wantInvalid bool
	}{
		{"missing file", filepath.Join(dir, "missing.png"), false},
		{"undecodable", garbage, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := NewImageCache()
			_, err := cache.Load(tt.path)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, ErrInvalidImage); got != tt.wantInvalid {
				t.Errorf("errors.Is(err, ErrInvalidImage) = %v, want %v (%v)", got, tt.wantInvalid, err)
			}
			if len(cache.images) != 0 {
				t.Error("failed load should not be cached")
			}
		})
	}
}

func TestImageCache_Clear(t *testing.T) {
	dir := t.TempDir()
	cache := NewImageCache()
	for _, name := range []string{"a.png", "b.png"} {
		if _, err := cache.Load(writeLotFile(t, dir, name, 4, 4, color.White)); err != nil {
			t.Fatalf("Load %s: %v", name, err)
		}
	}
	cache.Clear()
	if n := len(cache.images); n != 0 {
		t.Errorf("Clear left %d images", n)
	}
	cache.Evict("never-loaded.png")
}

func TestImageCache_Concurrent(t *testing.T) {
	path := writeLotFile(t, t.TempDir(), "lot.png", 32, 32, color.Black)
	cache := NewImageCache()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Load(path); err != nil {
				t.Errorf("concurrent Load: %v", err)
			}
		}()
	}
	wg.Wait()
}

func TestLoadImageInfo(t *testing.T) {
	dir := t.TempDir()
	cache := NewImageCache()

	tests := []struct {
		name   string
		format string
	}{
		{"lot.png", "png"},
		{"lot.JPG", "jpeg"},
		{"lot.gif", "gif"},
		{"lot.raw", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// PNG bytes under every name; the format comes from the extension.
			path := writeLotFile(t, dir, tt.name, 20, 15, color.White)
			info, err := LoadImageInfo(cache, path)
			if err != nil {
				t.Fatalf("LoadImageInfo: %v", err)
			}
			if info.Width != 20 || info.Height != 15 {
				t.Errorf("size = %dx%d, want 20x15", info.Width, info.Height)
			}
			if info.Format != tt.format {
				t.Errorf("Format = %q, want %q", info.Format, tt.format)
			}
			if info.FileSizeBytes <= 0 {
				t.Error("FileSizeBytes should be positive")
			}
		})
	}

	if _, err := LoadImageInfo(cache, filepath.Join(dir, "missing.png")); err == nil {
		t.Error("LoadImageInfo should fail for a missing file")
	}
}

func TestDecodeBytes(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 7, 3))); err != nil {
		t.Fatalf("encode: %v", err)
	}

	tests := []struct {
		name    string
		data    []byte
		wantErr bool
	}{
		{"png", buf.Bytes(), false},
		{"empty", nil, true},
		{"garbage", []byte("not an image"), true},
		{"truncated", buf.Bytes()[:buf.Len()/2], true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := DecodeBytes(tt.data)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidImage) {
					t.Errorf("expected ErrInvalidImage, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeBytes: %v", err)
			}
			if b := img.Bounds(); b.Dx() != 7 || b.Dy() != 3 {
				t.Errorf("bounds = %v", b)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		img     image.Image
		wantErr bool
	}{
		{"nil", nil, true},
		{"zero height", image.NewGray(image.Rect(0, 0, 5, 0)), true},
		{"zero width", image.NewGray(image.Rect(3, 3, 3, 9)), true},
		{"offset bounds", image.NewGray(image.Rect(2, 2, 5, 5)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.img)
			if tt.wantErr != (err != nil) {
				t.Fatalf("Validate = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidImage) {
				t.Errorf("expected ErrInvalidImage, got %v", err)
			}
		})
	}
}
