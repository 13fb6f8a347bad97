package vehicle

import (
	"context"
	"image"
	"math"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPDetector_Detect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/predict", r.URL.Path)

		file, _, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		defer file.Close()
		img, err := png.Decode(file)
		if !assert.NoError(t, err) {
			http.Error(w, "bad image", http.StatusBadRequest)
			return
		}
		assert.Equal(t, 8, img.Bounds().Dx())

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"detections":[{"class_id":2,"confidence":0.88,"xyxy":[1.5,2.5,6.9,7.1]}]}`))
	}))
	defer srv.Close()

	d := NewHTTPDetector(srv.URL+"/predict", 5*time.Second)
	dets, err := d.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 8, 8)))

	require.NoError(t, err)
	require.Len(t, dets, 1)
	assert.Equal(t, ClassCar, dets[0].ClassID)
	assert.Equal(t, 1, dets[0].Box.X)
	assert.Equal(t, 5, dets[0].Box.W)
}

func TestHTTPDetector_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"detections":[`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewHTTPDetector(srv.URL, time.Second).Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 2, 2)))
			assert.ErrorIs(t, err, ErrUnavailable)
		})
	}
}

func TestHTTPDetector_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPDetector(url, time.Second).Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 2, 2)))
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestHTTPDetector_CheckHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	assert.NoError(t, NewHTTPDetector(srv.URL+"/predict", time.Second).CheckHealth(context.Background()))
	assert.NoError(t, NewHTTPDetector(srv.URL, time.Second).CheckHealth(context.Background()))
}

func TestNewHTTPDetector_DefaultURL(t *testing.T) {
	d := NewHTTPDetector("", 0)
	assert.Equal(t, DefaultInferenceURL, d.url)
}

func TestHTTPDetector_RateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"detections":[]}`))
	}))
	defer srv.Close()

	d := NewHTTPDetector(srv.URL, time.Second).WithRateLimit(0.001, 1)
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))

	_, err := d.Detect(context.Background(), img)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = d.Detect(ctx, img)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorContains(t, err, "rate limit")
	assert.Equal(t, int32(1), calls.Load())

	assert.Nil(t, d.WithRateLimit(0, 0).limiter)
	assert.Nil(t, d.WithRateLimit(math.NaN(), 1).limiter)
}
