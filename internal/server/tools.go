package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

var pathProperty = map[string]interface{}{
	"type":        "string",
	"description": "Absolute path to the parking lot image",
}

var idProperty = map[string]interface{}{
	"type":        "string",
	"description": "Analysis ID returned by parking_analyze",
}

var overridesProperty = map[string]interface{}{
	"type":        "object",
	"description": "Optional threshold overrides for this call only",
	"properties": map[string]interface{}{
		"min_area": map[string]interface{}{
			"type":        "number",
			"description": "Minimum slot bounding-box area in pixels. Default 2500",
		},
		"max_area": map[string]interface{}{
			"type":        "number",
			"description": "Maximum slot bounding-box area in pixels. Default 7000",
		},
		"min_aspect_ratio": map[string]interface{}{
			"type":        "number",
			"description": "Minimum width/height ratio. Default 0.2",
		},
		"max_aspect_ratio": map[string]interface{}{
			"type":        "number",
			"description": "Maximum width/height ratio. Default 0.7",
		},
		"iou_threshold": map[string]interface{}{
			"type":        "number",
			"description": "Vehicle/slot IoU above which a slot is occupied. Default 0.10",
		},
	},
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Image inspection
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions and format.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_sample_hsv",
			Description: "Get the HSV color (OpenCV 8-bit scale) at a pixel and whether it falls inside the restricted-paint range. Use this to tune the exclusion color range.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"x": map[string]interface{}{
						"type":        "integer",
						"description": "X coordinate (0-based, from left)",
					},
					"y": map[string]interface{}{
						"type":        "integer",
						"description": "Y coordinate (0-based, from top)",
					},
				},
				"required": []string{"path", "x", "y"},
			},
		},

		// Analysis
		{
			Name:        "parking_analyze",
			Description: "Detect parking slots in an image, classify each as OCCUPIED or AVAILABLE and return the slots with a summary. The result is stored and can be referenced by its id.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":      pathProperty,
					"overrides": overridesProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "parking_analyze_batch",
			Description: "Analyze several images concurrently. Returns one summary per image in input order; a failing image does not stop the others.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"paths": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Absolute paths to the images",
					},
					"overrides": overridesProperty,
				},
				"required": []string{"paths"},
			},
		},
		{
			Name:        "parking_get_result",
			Description: "Fetch a stored analysis by id.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"id": idProperty,
				},
				"required": []string{"id"},
			},
		},

		// Debug views
		{
			Name:        "parking_line_mask",
			Description: "Return the painted-line mask (white = line) used for slot detection as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "parking_exclusion_mask",
			Description: "Return the restricted-zone mask (white = restricted) as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "parking_text_zones",
			Description: "Find restricted zones marked by painted words such as RESERVED or NO PARKING. Requires a build with OCR support.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},

		// Reports
		{
			Name:        "parking_overlay",
			Description: "Draw slot outlines (red = occupied, green = available) and the slot counts on the image and return it as base64-encoded PNG. Pass id to draw a stored analysis, or path to analyze first.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"id":   idProperty,
				},
			},
		},
		{
			Name:        "parking_crop_slot",
			Description: "Crop one slot of a stored analysis, with some surrounding context, and return it as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"id": idProperty,
					"slot_id": map[string]interface{}{
						"type":        "integer",
						"description": "Slot ID (1-based) from the analysis",
					},
					"padding": map[string]interface{}{
						"type":        "integer",
						"description": "Context pixels around the slot. Default 10",
						"default":     10,
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor. Default 2.0",
						"default":     2.0,
					},
				},
				"required": []string{"id", "slot_id"},
			},
		},
		{
			Name:        "parking_report",
			Description: "Return the CSV report of a stored analysis: the summary row or one row per slot.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"id": idProperty,
					"format": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"summary", "slots"},
						"description": "Report layout. Default summary",
						"default":     "summary",
					},
				},
				"required": []string{"id"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
