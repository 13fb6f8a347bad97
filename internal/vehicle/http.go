package vehicle

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultInferenceURL is where the HTTP detector looks for a model server
// when none is configured.
const DefaultInferenceURL = "http://localhost:5000/predict"

// HTTPDetector sends the image to an external inference service.
//
// The request is a multipart POST with the image as a PNG in the "file"
// field. The service answers 200 with a JSON body in the format accepted by
// ParseDetections.
type HTTPDetector struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPDetector returns a detector for the service at url. A zero timeout
// means no client-side timeout beyond the caller's context.
func NewHTTPDetector(url string, timeout time.Duration) *HTTPDetector {
	if url == "" {
		url = DefaultInferenceURL
	}
	return &HTTPDetector{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// WithRateLimit caps requests to perSecond with the given burst. Detect
// waits for a token, so a slow service is not flooded by batch runs.
func (d *HTTPDetector) WithRateLimit(perSecond float64, burst int) *HTTPDetector {
	if !(perSecond > 0) {
		d.limiter = nil
		return d
	}
	if burst < 1 {
		burst = 1
	}
	d.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	return d
}

// Detect implements Detector.
func (d *HTTPDetector) Detect(ctx context.Context, img image.Image) ([]Detection, error) {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limit: %v", ErrUnavailable, err)
		}
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "image.png")
	if err != nil {
		return nil, fmt.Errorf("%w: create form file: %v", ErrUnavailable, err)
	}
	if err := png.Encode(part, img); err != nil {
		return nil, fmt.Errorf("%w: encode image: %v", ErrUnavailable, err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("%w: close multipart body: %v", ErrUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, body)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: send request: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: inference failed with status %d", ErrUnavailable, resp.StatusCode)
	}

	dets, err := ParseDetections(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return dets, nil
}

// CheckHealth calls the service health endpoint, derived from the
// inference URL by replacing its last path element with "health".
func (d *HTTPDetector) CheckHealth(ctx context.Context) error {
	url := d.url
	if i := strings.LastIndex(url, "/"); i > len("https://") {
		url = url[:i]
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+"/health", nil)
	if err != nil {
		return fmt.Errorf("%w: create request: %v", ErrUnavailable, err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: inference service unhealthy: %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}
