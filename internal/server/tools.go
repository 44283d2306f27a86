package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// pathProperty describes the image path argument shared by every tool.
var pathProperty = map[string]interface{}{
	"type":        "string",
	"description": "Absolute path to the image file",
}

// paramProperties returns the schema for the optional removal parameter
// overrides. Omitted values come from the server configuration.
func paramProperties() map[string]interface{} {
	return map[string]interface{}{
		"path": pathProperty,
		"mask_path": map[string]interface{}{
			"type":        "string",
			"description": "Optional user mask image. Any non-black pixel is added to the removal mask.",
		},
		"alpha_threshold": map[string]interface{}{
			"type":        "integer",
			"description": "Pixels with alpha strictly below this are removed (4-channel images only). 0-255, default 250",
		},
		"white_threshold": map[string]interface{}{
			"type":        "integer",
			"description": "Pixels whose whiteness is at or above this are removed. 0-255, default 240",
		},
		"white_metric": map[string]interface{}{
			"type":        "string",
			"enum":        []string{"luma", "min", "lightness"},
			"description": "How whiteness is measured. Default luma",
		},
		"inpaint_radius": map[string]interface{}{
			"type":        "integer",
			"description": "Neighborhood radius used to fill each pixel. Default 3",
		},
		"dilate": map[string]interface{}{
			"type":        "boolean",
			"description": "Grow the mask by half the inpaint radius to catch anti-aliased edges",
		},
		"resize_mask": map[string]interface{}{
			"type":        "boolean",
			"description": "Resize a mismatched user mask instead of failing",
		},
		"min_region_area": map[string]interface{}{
			"type":        "integer",
			"description": "Drop detected regions smaller than this many pixels. 0 keeps all",
		},
		"text_hint": map[string]interface{}{
			"type":        "boolean",
			"description": "Add OCR word boxes to the mask (requires Tesseract)",
		},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	detectProps := paramProperties()

	removeProps := paramProperties()
	removeProps["output_path"] = map[string]interface{}{
		"type":        "string",
		"description": "Where to write the cleaned image. The extension selects the format",
	}
	removeProps["mask_output_path"] = map[string]interface{}{
		"type":        "string",
		"description": "Optional path for the effective mask as a grayscale PNG",
	}
	removeProps["filler"] = map[string]interface{}{
		"type":        "string",
		"description": "Fill strategy (telea, diffusion, opencv when built with gocv). Default from server config",
	}

	return []Tool{
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions, format and channel count.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_sample_color",
			Description: "Get the exact color at a pixel together with the luma, min-channel and lightness values the near-white rule compares against.",
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
		{
			Name:        "watermark_detect",
			Description: "Build the removal mask for an image without modifying it. Returns the masked pixel count, coverage and the connected regions found.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": detectProps,
				"required":   []string{"path"},
			},
		},
		{
			Name:        "watermark_remove",
			Description: "Detect the watermark, fill it from its surroundings and write the result to output_path.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": removeProps,
				"required":   []string{"path", "output_path"},
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
