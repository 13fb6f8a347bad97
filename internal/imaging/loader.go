package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
)

// ErrInvalidImage is returned for input that cannot be decoded or that has
// zero width or height.
var ErrInvalidImage = errors.New("invalid image")

// ImageCache provides thread-safe caching of decoded images keyed by path.
//
// The cache is used by the long-running tool servers so that repeated calls
// on the same aerial image (analyze, then overlay, then crop) decode it once.
// Analysis results themselves are never cached; each run recomputes every
// stage from the decoded pixels.
//
// Cached images remain in memory until explicitly removed via Evict() or
// Clear().
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]image.Image
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]image.Image),
	}
}

// Load retrieves an image from the cache or loads it from disk if not cached.
//
// Supported formats are those registered by github.com/disintegration/imaging
// (JPEG, PNG, GIF, TIFF, BMP). JPEG EXIF orientation is applied so that the
// pixel grid matches what a viewer shows.
//
// # Errors
//
//   - Returns error if the file does not exist or cannot be read
//   - Returns an error wrapping ErrInvalidImage if the file cannot be decoded
//     or has a zero dimension
func (c *ImageCache) Load(path string) (image.Image, error) {
	c.mu.RLock()
	if img, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, err := Decode(f)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.images[path] = img
	c.mu.Unlock()

	return img, nil
}

// Clear removes all images from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]image.Image)
	c.mu.Unlock()
}

// Evict removes a specific image from the cache by its path.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// Decode reads and validates an image from r.
func Decode(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode image: %v", ErrInvalidImage, err)
	}
	if err := Validate(img); err != nil {
		return nil, err
	}
	return img, nil
}

// DecodeBytes is Decode over an in-memory buffer.
func DecodeBytes(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: image data is empty", ErrInvalidImage)
	}
	return Decode(bytes.NewReader(data))
}

// Validate checks that img is non-nil and has positive dimensions.
func Validate(img image.Image) error {
	if img == nil {
		return fmt.Errorf("%w: image is nil", ErrInvalidImage)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return fmt.Errorf("%w: zero dimension %dx%d", ErrInvalidImage, b.Dx(), b.Dy())
	}
	return nil
}

// ImageInfo contains metadata about a loaded image file.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the format guessed from the file extension: "png", "jpeg",
	// "gif", "tiff", "bmp", or "unknown".
	Format string `json:"format"`

	// HasAlpha indicates whether the decoded image carries an alpha channel.
	HasAlpha bool `json:"has_alpha"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadImageInfo loads an image into the cache and returns its metadata.
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	formatName := "unknown"
	if format, err := imaging.FormatFromFilename(path); err == nil {
		formatName = strings.ToLower(format.String())
	}

	hasAlpha := false
	switch img.(type) {
	case *image.RGBA, *image.NRGBA, *image.RGBA64, *image.NRGBA64:
		hasAlpha = true
	}

	bounds := img.Bounds()
	return &ImageInfo{
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Format:        formatName,
		HasAlpha:      hasAlpha,
		FileSizeBytes: stat.Size(),
	}, nil
}
