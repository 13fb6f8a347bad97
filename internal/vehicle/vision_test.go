package vehicle

import (
	"context"
	"errors"
	"image"
	"testing"

	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	statuspb "google.golang.org/genproto/googleapis/rpc/status"
)

type fakeAnnotator struct {
	BatchAnnotateImagesFunc func(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error)
}

func (f *fakeAnnotator) BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, _ ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error) {
	return f.BatchAnnotateImagesFunc(ctx, req)
}

func object(name string, score float32, x1, y1, x2, y2 float32) *visionpb.LocalizedObjectAnnotation {
	return &visionpb.LocalizedObjectAnnotation{
		Name:  name,
		Score: score,
		BoundingPoly: &visionpb.BoundingPoly{
			NormalizedVertices: []*visionpb.NormalizedVertex{
				{X: x1, Y: y1}, {X: x2, Y: y1}, {X: x2, Y: y2}, {X: x1, Y: y2},
			},
		},
	}
}

func TestVisionDetector_Detect(t *testing.T) {
	fake := &fakeAnnotator{
		BatchAnnotateImagesFunc: func(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error) {
			require.Len(t, req.Requests, 1)
			assert.NotEmpty(t, req.Requests[0].Image.Content)
			assert.Equal(t, visionpb.Feature_OBJECT_LOCALIZATION, req.Requests[0].Features[0].Type)
			return &visionpb.BatchAnnotateImagesResponse{
				Responses: []*visionpb.AnnotateImageResponse{{
					LocalizedObjectAnnotations: []*visionpb.LocalizedObjectAnnotation{
						object("Car", 0.9, 0.1, 0.25, 0.5, 0.75),
						object("Person", 0.8, 0, 0, 0.1, 0.1),
						{Name: "Truck"},
					},
				}},
			}, nil
		},
	}
	d := &VisionDetector{client: fake, maxResult: 10}

	dets, err := d.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 200, 100)))
	require.NoError(t, err)
	require.Len(t, dets, 2, "objects without a bounding polygon are skipped")

	assert.Equal(t, ClassCar, dets[0].ClassID)
	assert.Equal(t, "Car", dets[0].Label)
	assert.Equal(t, 20, dets[0].Box.X)
	assert.Equal(t, 25, dets[0].Box.Y)
	assert.Equal(t, 80, dets[0].Box.W)
	assert.Equal(t, 50, dets[0].Box.H)
	assert.Equal(t, -1, dets[1].ClassID)

	assert.Len(t, FilterClasses(dets, DefaultClasses), 1)
	assert.NoError(t, d.Close())
}

func TestVisionDetector_Errors(t *testing.T) {
	tests := []struct {
		name string
		resp *visionpb.BatchAnnotateImagesResponse
		err  error
	}{
		{"transport", nil, errors.New("connection reset")},
		{"image error", &visionpb.BatchAnnotateImagesResponse{
			Responses: []*visionpb.AnnotateImageResponse{{Error: &statuspb.Status{Code: 3, Message: "bad image"}}},
		}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &VisionDetector{client: &fakeAnnotator{
				BatchAnnotateImagesFunc: func(context.Context, *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error) {
					return tt.resp, tt.err
				},
			}}
			_, err := d.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 4, 4)))
			assert.ErrorIs(t, err, ErrUnavailable)
		})
	}
}

func TestVisionDetector_EmptyResponse(t *testing.T) {
	d := &VisionDetector{client: &fakeAnnotator{
		BatchAnnotateImagesFunc: func(context.Context, *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error) {
			return &visionpb.BatchAnnotateImagesResponse{}, nil
		},
	}}
	dets, err := d.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 4, 4)))
	require.NoError(t, err)
	assert.Empty(t, dets)
}
