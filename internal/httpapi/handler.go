package httpapi

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ironsheep/parkscan/internal/imaging"
	"github.com/ironsheep/parkscan/internal/occupancy"
	"github.com/ironsheep/parkscan/internal/pipeline"
	"github.com/ironsheep/parkscan/internal/report"
	"github.com/ironsheep/parkscan/internal/store"
)

// DefaultMaxUploadBytes bounds the uploaded image size.
const DefaultMaxUploadBytes = 32 << 20

// uploadOverhead is the room allowed on top of the image limit for
// multipart headers and form fields.
const uploadOverhead = 1 << 20

// ErrUploadTooLarge marks an upload rejected for its size.
var ErrUploadTooLarge = errors.New("upload too large")

// Handler serves the /api/v1 routes.
type Handler struct {
	analyzer  *pipeline.Analyzer
	store     store.Store
	maxUpload int64
	log       zerolog.Logger
}

// NewHandler creates a Handler. maxUpload <= 0 uses DefaultMaxUploadBytes.
func NewHandler(analyzer *pipeline.Analyzer, st store.Store, maxUpload int64, log zerolog.Logger) *Handler {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	return &Handler{analyzer: analyzer, store: st, maxUpload: maxUpload, log: log}
}

// Register mounts the handler's routes on r.
func (h *Handler) Register(r *gin.Engine) {
	v1 := r.Group("/api/v1")
	v1.POST("/analyze", h.Analyze)
	v1.GET("/analyses/:id", h.GetAnalysis)
	v1.GET("/analyses/:id/report.csv", h.GetReport)
}

// AnalyzeForm is the non-file part of an analyze upload.
type AnalyzeForm struct {
	pipeline.Overrides
	Overlay bool `form:"overlay"`
}

// Results are the aggregate counts of an analysis.
type Results struct {
	TotalSlots     int     `json:"total_slots"`
	OccupiedSlots  int     `json:"occupied_slots"`
	AvailableSlots int     `json:"available_slots"`
	OccupancyRate  float64 `json:"occupancy_rate"`
}

func resultsFrom(s occupancy.Summary) Results {
	return Results{
		TotalSlots:     s.Total,
		OccupiedSlots:  s.Occupied,
		AvailableSlots: s.Available,
		OccupancyRate:  s.OccupancyRatePercent,
	}
}

// AnalyzeResponse is returned by POST /api/v1/analyze.
type AnalyzeResponse struct {
	Success       bool            `json:"success"`
	ID            string          `json:"id"`
	Results       Results         `json:"results"`
	Slots         []pipeline.Slot `json:"slots"`
	Degraded      bool            `json:"degraded"`
	DetectorError string          `json:"detector_error,omitempty"`
	ImageBase64   string          `json:"image_base64,omitempty"`
}

// AnalysisResponse is returned by GET /api/v1/analyses/:id.
type AnalysisResponse struct {
	Success  bool          `json:"success"`
	Analysis *store.Record `json:"analysis"`
}

func invalidImage(err error) error {
	return &pipeline.StageError{Stage: pipeline.StageInput, Kind: pipeline.ErrInvalidImage, Err: err}
}

// Analyze runs the pipeline on an uploaded image and stores the result.
func (h *Handler) Analyze(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+uploadOverhead)
	file, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(c, invalidImage(fmt.Errorf("%w: request body exceeds %d bytes", ErrUploadTooLarge, tooLarge.Limit)))
			return
		}
		h.fail(c, invalidImage(fmt.Errorf("image file is required: %w", err)))
		return
	}
	if file.Size > h.maxUpload {
		h.fail(c, invalidImage(fmt.Errorf("%w: image is %d bytes, limit is %d", ErrUploadTooLarge, file.Size, h.maxUpload)))
		return
	}

	var form AnalyzeForm
	if err := c.ShouldBind(&form); err != nil {
		h.fail(c, &pipeline.StageError{Stage: pipeline.StageConfig, Kind: pipeline.ErrConfiguration, Err: err})
		return
	}

	analyzer, err := h.analyzer.WithOverrides(form.Overrides)
	if err != nil {
		h.fail(c, err)
		return
	}

	f, err := file.Open()
	if err != nil {
		h.fail(c, fmt.Errorf("failed to open upload: %w", err))
		return
	}
	defer f.Close()

	img, err := imaging.Decode(f)
	if err != nil {
		h.fail(c, invalidImage(err))
		return
	}

	res, err := analyzer.Analyze(c.Request.Context(), img)
	if err != nil {
		h.fail(c, err)
		return
	}

	rec := store.NewRecord(file.Filename, res)
	if err := h.store.Save(c.Request.Context(), rec); err != nil {
		h.fail(c, fmt.Errorf("failed to save analysis: %w", err))
		return
	}

	resp := AnalyzeResponse{
		Success:       true,
		ID:            rec.ID,
		Results:       resultsFrom(res.Summary),
		Slots:         res.Slots,
		Degraded:      res.Degraded,
		DetectorError: res.DetectorError,
	}
	if form.Overlay {
		overlay, err := report.EncodeOverlay(img, res, report.DefaultStyle())
		if err != nil {
			h.fail(c, err)
			return
		}
		resp.ImageBase64 = overlay.ImageBase64
	}

	h.log.Info().
		Str("id", rec.ID).
		Str("source", rec.Source).
		Int("slots", res.Summary.Total).
		Int("occupied", res.Summary.Occupied).
		Bool("degraded", res.Degraded).
		Msg("analysis complete")

	c.JSON(http.StatusOK, resp)
}

// GetAnalysis returns a stored analysis.
func (h *Handler) GetAnalysis(c *gin.Context) {
	rec, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, AnalysisResponse{Success: true, Analysis: rec})
}

// GetReport returns the summary CSV of a stored analysis as an attachment.
func (h *Handler) GetReport(c *gin.Context) {
	rec, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteSummaryCSV(&buf, rec.Result.Summary); err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "parking_report_"+rec.ID+".csv"))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
