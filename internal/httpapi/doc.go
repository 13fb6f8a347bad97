// Package httpapi serves parking analyses over HTTP.
//
// # Endpoints
//
//	POST /api/v1/analyze                  multipart upload, field "image"
//	GET  /api/v1/analyses/:id             stored analysis as JSON
//	GET  /api/v1/analyses/:id/report.csv  summary CSV of a stored analysis
//	GET  /health                          liveness check
//
// The analyze form may carry min_area, max_area, min_aspect_ratio,
// max_aspect_ratio and iou_threshold to override the configured thresholds
// for that request, and overlay=true to embed the annotated image as base64
// PNG in the response.
//
// # Errors
//
// Failures are returned as {"success": false, "error": "..."} with a status
// chosen from the pipeline error kind:
//
//	ErrInvalidImage         400
//	ErrConfiguration        422
//	ErrDetectorUnavailable  502
//	ErrCanceled             408 on deadline, 499 when the client went away
//	store.ErrNotFound       404
//	anything else           500
package httpapi
