package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/parkscan/internal/geometry"
)

// CropResult contains the cropped image data
type CropResult struct {
	Width       int                `json:"width"`
	Height      int                `json:"height"`
	Region      geometry.Rectangle `json:"region"`
	ImageBase64 string             `json:"image_base64"`
	MimeType    string             `json:"mime_type"`
}

// Crop extracts region r (0-based, relative to the image bounds) from img,
// optionally scaled with Lanczos resampling.
func Crop(img image.Image, r geometry.Rectangle, scale float64) (*CropResult, error) {
	bounds := img.Bounds()

	if r.Empty() {
		return nil, fmt.Errorf("invalid crop region %v: width and height must be positive", r)
	}
	if r.X < 0 || r.Y < 0 || r.Right() > bounds.Dx() || r.Bottom() > bounds.Dy() {
		return nil, fmt.Errorf("crop region %v outside image bounds %dx%d", r, bounds.Dx(), bounds.Dy())
	}

	rect := image.Rect(r.X, r.Y, r.Right(), r.Bottom()).Add(bounds.Min)
	cropped := imaging.Crop(img, rect)

	if scale != 1.0 && scale > 0 {
		newWidth := max(int(float64(cropped.Bounds().Dx())*scale), 1)
		newHeight := max(int(float64(cropped.Bounds().Dy())*scale), 1)
		cropped = imaging.Resize(cropped, newWidth, newHeight, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, cropped); err != nil {
		return nil, fmt.Errorf("failed to encode cropped image: %w", err)
	}

	return &CropResult{
		Width:       cropped.Bounds().Dx(),
		Height:      cropped.Bounds().Dy(),
		Region:      r,
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// CropPadded crops r grown by padding pixels on every side, clipped to the
// image. It is used to zoom into a single slot with some surrounding context.
func CropPadded(img image.Image, r geometry.Rectangle, padding int, scale float64) (*CropResult, error) {
	if padding < 0 {
		return nil, fmt.Errorf("padding must be >= 0, got %d", padding)
	}
	b := img.Bounds()
	x1 := max(r.X-padding, 0)
	y1 := max(r.Y-padding, 0)
	x2 := min(r.Right()+padding, b.Dx())
	y2 := min(r.Bottom()+padding, b.Dy())
	return Crop(img, geometry.FromCorners(x1, y1, x2, y2), scale)
}
