package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"

	"github.com/ironsheep/parkscan/internal/imaging"
	"github.com/ironsheep/parkscan/internal/ocr"
	"github.com/ironsheep/parkscan/internal/pipeline"
	"github.com/ironsheep/parkscan/internal/report"
	"github.com/ironsheep/parkscan/internal/store"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "parking_analyze").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// errTextZonesDisabled is returned by parking_text_zones when no reader
// was configured.
var errTextZonesDisabled = errors.New("text zone detection is not enabled")

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
// Analysis failures carry the failing stage in the log entry.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.log.Error().
			Err(err).
			Str("tool", params.Name).
			Str("stage", string(pipeline.StageOf(err))).
			Msg("tool failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Image inspection
	case "image_load":
		return s.handleImageLoad(args)
	case "image_sample_hsv":
		return s.handleImageSampleHSV(args)

	// Analysis
	case "parking_analyze":
		return s.handleParkingAnalyze(ctx, args)
	case "parking_analyze_batch":
		return s.handleParkingAnalyzeBatch(ctx, args)
	case "parking_get_result":
		return s.handleParkingGetResult(ctx, args)

	// Debug views
	case "parking_line_mask":
		return s.handleParkingLineMask(args)
	case "parking_exclusion_mask":
		return s.handleParkingExclusionMask(args)
	case "parking_text_zones":
		return s.handleParkingTextZones(ctx, args)

	// Reports
	case "parking_overlay":
		return s.handleParkingOverlay(ctx, args)
	case "parking_crop_slot":
		return s.handleParkingCropSlot(ctx, args)
	case "parking_report":
		return s.handleParkingReport(ctx, args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// loadImage reads path through the cache. Decode failures are reported as
// invalid input.
func (s *Server) loadImage(path string) (image.Image, error) {
	if path == "" {
		return nil, &pipeline.StageError{Stage: pipeline.StageInput, Kind: pipeline.ErrInvalidImage, Err: errors.New("path is required")}
	}
	img, err := s.cache.Load(path)
	if err != nil {
		return nil, &pipeline.StageError{Stage: pipeline.StageInput, Kind: pipeline.ErrInvalidImage, Err: err}
	}
	return img, nil
}

// === Image Inspection Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

type imageSampleHSVArgs struct {
	Path string `json:"path"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

func (s *Server) handleImageSampleHSV(args json.RawMessage) (interface{}, error) {
	var a imageSampleHSVArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.SampleHSV(img, a.X, a.Y, s.analyzer.Config().Exclusion.Range)
}

// === Analysis Handlers ===

type parkingAnalyzeArgs struct {
	Path      string             `json:"path"`
	Overrides pipeline.Overrides `json:"overrides"`
}

// AnalysisResult is a stored analysis returned by the analysis tools.
type AnalysisResult struct {
	ID     string           `json:"id"`
	Source string           `json:"source"`
	Result *pipeline.Result `json:"result"`
}

func (s *Server) handleParkingAnalyze(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a parkingAnalyzeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	analyzer, err := s.analyzer.WithOverrides(a.Overrides)
	if err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}
	res, err := analyzer.Analyze(ctx, img)
	if err != nil {
		return nil, err
	}
	return s.save(ctx, a.Path, res)
}

func (s *Server) save(ctx context.Context, source string, res *pipeline.Result) (*AnalysisResult, error) {
	rec := store.NewRecord(source, res)
	if err := s.store.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to store analysis: %w", err)
	}
	return &AnalysisResult{ID: rec.ID, Source: rec.Source, Result: rec.Result}, nil
}

type parkingAnalyzeBatchArgs struct {
	Paths     []string           `json:"paths"`
	Overrides pipeline.Overrides `json:"overrides"`
}

// BatchEntry summarizes one image of a batch.
type BatchEntry struct {
	Source   string `json:"source"`
	ID       string `json:"id,omitempty"`
	Total    int    `json:"total,omitempty"`
	Occupied int    `json:"occupied,omitempty"`
	Degraded bool   `json:"degraded,omitempty"`
	Error    string `json:"error,omitempty"`
}

// BatchResult reports a whole batch in input order.
type BatchResult struct {
	Results []BatchEntry `json:"results"`
	Failed  int          `json:"failed"`
}

func (s *Server) handleParkingAnalyzeBatch(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a parkingAnalyzeBatchArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if len(a.Paths) == 0 {
		return nil, errors.New("paths must not be empty")
	}
	analyzer, err := s.analyzer.WithOverrides(a.Overrides)
	if err != nil {
		return nil, err
	}

	items := make([]pipeline.BatchItem, len(a.Paths))
	for i, path := range a.Paths {
		items[i] = pipeline.BatchItem{
			Name: path,
			Load: func() (image.Image, error) { return s.cache.Load(path) },
		}
	}

	out := &BatchResult{Results: make([]BatchEntry, len(items))}
	for i, br := range analyzer.AnalyzeBatch(ctx, items, s.workers) {
		entry := BatchEntry{Source: br.Name}
		if br.Err == nil {
			var saved *AnalysisResult
			saved, br.Err = s.save(ctx, br.Name, br.Result)
			if br.Err == nil {
				entry.ID = saved.ID
				entry.Total = br.Result.Summary.Total
				entry.Occupied = br.Result.Summary.Occupied
				entry.Degraded = br.Result.Degraded
			}
		}
		if br.Err != nil {
			entry.Error = br.Err.Error()
			out.Failed++
		}
		out.Results[i] = entry
	}
	return out, nil
}

type parkingResultArgs struct {
	ID string `json:"id"`
}

func (s *Server) handleParkingGetResult(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a parkingResultArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	rec, err := s.store.Get(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	return &AnalysisResult{ID: rec.ID, Source: rec.Source, Result: rec.Result}, nil
}

// === Debug View Handlers ===

func (s *Server) handleParkingLineMask(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}
	m, err := s.analyzer.LineMask(img)
	if err != nil {
		return nil, err
	}
	return imaging.EncodeMask(m)
}

func (s *Server) handleParkingExclusionMask(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}
	m, err := s.analyzer.ExclusionMask(img)
	if err != nil {
		return nil, err
	}
	return imaging.EncodeMask(m)
}

// TextZonesResult lists the zones found by reading painted text.
type TextZonesResult struct {
	Zones []ocr.TextZone `json:"zones"`
	Count int            `json:"count"`
}

func (s *Server) handleParkingTextZones(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if s.zones == nil {
		return nil, errTextZonesDisabled
	}
	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}
	zones, err := s.zones.Zones(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("failed to read text zones: %w", err)
	}
	if zones == nil {
		zones = []ocr.TextZone{}
	}
	return &TextZonesResult{Zones: zones, Count: len(zones)}, nil
}

// === Report Handlers ===

type parkingOverlayArgs struct {
	Path string `json:"path"`
	ID   string `json:"id"`
}

// handleParkingOverlay draws a stored analysis when id is given, otherwise
// it analyzes path first and stores the result.
func (s *Server) handleParkingOverlay(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a parkingOverlayArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	var res *pipeline.Result
	if a.ID != "" {
		rec, err := s.store.Get(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		if a.Path == "" {
			a.Path = rec.Source
		}
		res = rec.Result
	}

	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}
	if res == nil {
		res, err = s.analyzer.Analyze(ctx, img)
		if err != nil {
			return nil, err
		}
		if _, err := s.save(ctx, a.Path, res); err != nil {
			return nil, err
		}
	}
	return report.EncodeOverlay(img, res, report.DefaultStyle())
}

type parkingCropSlotArgs struct {
	ID      string  `json:"id"`
	SlotID  int     `json:"slot_id"`
	Padding *int    `json:"padding"`
	Scale   float64 `json:"scale"`
}

func (s *Server) handleParkingCropSlot(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a parkingCropSlotArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 2.0
	}
	padding := 10
	if a.Padding != nil {
		padding = *a.Padding
	}

	rec, err := s.store.Get(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	var slot *pipeline.Slot
	for i := range rec.Result.Slots {
		if rec.Result.Slots[i].ID == a.SlotID {
			slot = &rec.Result.Slots[i]
			break
		}
	}
	if slot == nil {
		return nil, fmt.Errorf("slot %d not found in analysis %s", a.SlotID, a.ID)
	}

	img, err := s.loadImage(rec.Source)
	if err != nil {
		return nil, err
	}
	return imaging.CropPadded(img, slot.Rect(), padding, a.Scale)
}

type parkingReportArgs struct {
	ID     string `json:"id"`
	Format string `json:"format"`
}

// ReportResult carries a CSV report.
type ReportResult struct {
	ID     string `json:"id"`
	Format string `json:"format"`
	CSV    string `json:"csv"`
}

func (s *Server) handleParkingReport(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a parkingReportArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Format == "" {
		a.Format = "summary"
	}

	rec, err := s.store.Get(ctx, a.ID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	switch a.Format {
	case "summary":
		err = report.WriteSummaryCSV(&buf, rec.Result.Summary)
	case "slots":
		err = report.WriteSlotsCSV(&buf, rec.Result.Slots)
	default:
		return nil, fmt.Errorf("unknown report format %q: want summary or slots", a.Format)
	}
	if err != nil {
		return nil, err
	}
	return &ReportResult{ID: rec.ID, Format: a.Format, CSV: buf.String()}, nil
}
