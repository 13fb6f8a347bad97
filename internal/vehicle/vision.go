package vehicle

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"math"
	"strings"

	gvision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"
)

// imageAnnotator is the part of the Cloud Vision client the detector uses.
type imageAnnotator interface {
	BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error)
}

// visionClasses maps Cloud Vision object names to COCO class identifiers.
var visionClasses = map[string]int{
	"car":        ClassCar,
	"motorcycle": ClassMotorcycle,
	"bus":        ClassBus,
	"truck":      ClassTruck,
	"van":        ClassCar,
}

// VisionDetector detects vehicles with Google Cloud Vision object
// localization.
//
// Objects whose name has no vehicle mapping are reported with ClassID -1 so
// the class filter drops them.
type VisionDetector struct {
	client    imageAnnotator
	closer    func() error
	maxResult int32
}

// NewVisionDetector creates a detector using Application Default
// Credentials.
func NewVisionDetector(ctx context.Context) (*VisionDetector, error) {
	client, err := gvision.NewImageAnnotatorClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", err)
	}
	return &VisionDetector{client: client, closer: client.Close, maxResult: 100}, nil
}

// Close releases the Vision API client.
func (v *VisionDetector) Close() error {
	if v.closer == nil {
		return nil
	}
	return v.closer()
}

// Detect implements Detector.
func (v *VisionDetector) Detect(ctx context.Context, img image.Image) ([]Detection, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("%w: encode image: %v", ErrUnavailable, err)
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: buf.Bytes()},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_OBJECT_LOCALIZATION, MaxResults: v.maxResult},
				},
			},
		},
	}

	resp, err := v.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: vision API request failed: %v", ErrUnavailable, err)
	}
	if len(resp.Responses) == 0 {
		return nil, nil
	}
	if resp.Responses[0].Error != nil {
		return nil, fmt.Errorf("%w: vision API error: %s", ErrUnavailable, resp.Responses[0].Error.Message)
	}

	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())

	objects := resp.Responses[0].LocalizedObjectAnnotations
	dets := make([]Detection, 0, len(objects))
	for _, obj := range objects {
		poly := obj.GetBoundingPoly()
		if poly == nil || len(poly.NormalizedVertices) == 0 {
			continue
		}
		x1, y1 := math.Inf(1), math.Inf(1)
		x2, y2 := math.Inf(-1), math.Inf(-1)
		for _, vtx := range poly.NormalizedVertices {
			x1 = math.Min(x1, float64(vtx.X)*w)
			y1 = math.Min(y1, float64(vtx.Y)*h)
			x2 = math.Max(x2, float64(vtx.X)*w)
			y2 = math.Max(y2, float64(vtx.Y)*h)
		}

		classID, ok := visionClasses[strings.ToLower(obj.Name)]
		if !ok {
			classID = -1
		}
		dets = append(dets, Detection{
			ClassID:    classID,
			Label:      obj.Name,
			Confidence: float64(obj.Score),
			Box:        BoxFromCorners(x1, y1, x2, y2),
		})
	}
	return dets, nil
}
