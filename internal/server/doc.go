// Package server implements the MCP (Model Context Protocol) server for
// parking lot analysis.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Image inspection:
//   - image_load: Load image and get metadata
//   - image_sample_hsv: HSV color at a pixel, tested against the restricted range
//
// Analysis:
//   - parking_analyze: Detect slots and classify occupancy; stores the result
//   - parking_analyze_batch: Analyze many images with bounded concurrency
//   - parking_get_result: Fetch a stored analysis
//
// Debug views:
//   - parking_line_mask: Painted-line mask as PNG
//   - parking_exclusion_mask: Restricted-zone mask as PNG
//   - parking_text_zones: Zones marked by painted words (OCR builds only)
//
// Reports:
//   - parking_overlay: Annotated image as PNG
//   - parking_crop_slot: Zoomed crop of one slot
//   - parking_report: CSV summary or per-slot report
//
// # State
//
// Images are cached by path for the lifetime of the process. Analyses are
// kept in a store.Store (in memory unless one is injected) and referenced
// by ID from the report tools. parking_crop_slot reloads the analyzed image
// from the stored source path.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string, including the failing stage for analyses
//
// Logs go to the injected zerolog logger, never to stdout.
//
// # Usage
//
//	srv := server.New(analyzer, server.WithLogger(log))
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal().Err(err).Msg("mcp server stopped")
//	}
package server
