package server

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ironsheep/watermark-remover/internal/detection"
	"github.com/ironsheep/watermark-remover/internal/imaging"
	"github.com/ironsheep/watermark-remover/internal/inpaint"
	"github.com/ironsheep/watermark-remover/internal/ocr"
	"github.com/ironsheep/watermark-remover/internal/watermark"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "watermark_remove").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	start := time.Now()
	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.log.Warn().Err(err).Str("tool", params.Name).Msg("tool failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}
	s.log.Debug().Str("tool", params.Name).Dur("duration", time.Since(start)).Msg("tool done")

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
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	switch name {
	case "image_load":
		return s.handleImageLoad(args)
	case "image_sample_color":
		return s.handleImageSampleColor(args)
	case "watermark_detect":
		return s.handleWatermarkDetect(args)
	case "watermark_remove":
		return s.handleWatermarkRemove(args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

type imageSampleColorArgs struct {
	Path string `json:"path"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

func (s *Server) handleImageSampleColor(args json.RawMessage) (interface{}, error) {
	var a imageSampleColorArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.SampleColor(imaging.FromImage(img), a.X, a.Y)
}

// === Watermark Handlers ===

// maskArgs are the arguments shared by watermark_detect and watermark_remove.
// Nil pointers keep the server's configured value.
type maskArgs struct {
	Path           string  `json:"path"`
	MaskPath       string  `json:"mask_path"`
	AlphaThreshold *int    `json:"alpha_threshold"`
	WhiteThreshold *int    `json:"white_threshold"`
	WhiteMetric    *string `json:"white_metric"`
	InpaintRadius  *int    `json:"inpaint_radius"`
	Dilate         *bool   `json:"dilate"`
	ResizeMask     *bool   `json:"resize_mask"`
	MinRegionArea  *int    `json:"min_region_area"`
	TextHint       *bool   `json:"text_hint"`
}

func (a maskArgs) params(base watermark.Params) (watermark.Params, error) {
	p := base
	if a.AlphaThreshold != nil {
		p.AlphaThreshold = *a.AlphaThreshold
	}
	if a.WhiteThreshold != nil {
		p.WhiteThreshold = *a.WhiteThreshold
	}
	if a.WhiteMetric != nil {
		m, ok := watermark.ParseWhiteMetric(*a.WhiteMetric)
		if !ok {
			return p, fmt.Errorf("unknown white_metric %q", *a.WhiteMetric)
		}
		p.WhiteMetric = m
	}
	if a.InpaintRadius != nil {
		p.InpaintRadius = *a.InpaintRadius
	}
	if a.Dilate != nil {
		p.Dilate = *a.Dilate
	}
	if a.ResizeMask != nil {
		p.ResizeUserMask = *a.ResizeMask
	}
	if a.MinRegionArea != nil {
		p.MinRegionArea = *a.MinRegionArea
	}
	return p.Normalize(), nil
}

// job is a decoded source with its hint layers and parameters.
type job struct {
	src    *imaging.Buffer
	user   watermark.UserMask
	params watermark.Params
	words  int
}

func (s *Server) prepare(a maskArgs) (*job, error) {
	if a.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	p, err := a.params(s.cfg.Params)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	j := &job{src: imaging.FromImage(img), user: watermark.NoUserMask(), params: p}
	if a.MaskPath != "" {
		m, err := s.cache.Load(a.MaskPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load mask: %w", err)
		}
		j.user = j.user.With(m)
	}

	textHint := s.cfg.OCR.Enabled
	if a.TextHint != nil {
		textHint = *a.TextHint
	}
	if textHint {
		hint, words, err := ocr.TextMask(img, s.cfg.OCR.Options)
		if err != nil {
			return nil, fmt.Errorf("text hint: %w", err)
		}
		j.user = j.user.With(hint)
		j.words = len(words)
	}
	return j, nil
}

// DetectResult describes the mask that a removal would fill.
type DetectResult struct {
	Width        int                      `json:"width"`
	Height       int                      `json:"height"`
	Channels     int                      `json:"channels"`
	MaskedPixels int                      `json:"masked_pixels"`
	Coverage     float64                  `json:"coverage"`
	TextWords    int                      `json:"text_words,omitempty"`
	Regions      *detection.RegionsResult `json:"regions"`
	Params       watermark.Params         `json:"params"`
}

func (s *Server) handleWatermarkDetect(args json.RawMessage) (interface{}, error) {
	var a maskArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	j, err := s.prepare(a)
	if err != nil {
		return nil, err
	}

	mask, err := watermark.NewRemover(j.params).Mask(j.src, j.user)
	if err != nil {
		return nil, err
	}
	masked := mask.Count()
	return &DetectResult{
		Width:        j.src.Width,
		Height:       j.src.Height,
		Channels:     j.src.Channels,
		MaskedPixels: masked,
		Coverage:     coverage(masked, j.src),
		TextWords:    j.words,
		Regions:      detection.FindRegions(mask.Gray(), 0),
		Params:       j.params,
	}, nil
}

type watermarkRemoveArgs struct {
	maskArgs
	OutputPath     string `json:"output_path"`
	MaskOutputPath string `json:"mask_output_path"`
	Filler         string `json:"filler"`
}

// RemoveResult reports a completed removal.
type RemoveResult struct {
	OutputPath     string  `json:"output_path"`
	MaskOutputPath string  `json:"mask_output_path,omitempty"`
	MaskedPixels   int     `json:"masked_pixels"`
	Coverage       float64 `json:"coverage"`
	Filler         string  `json:"filler"`
	DurationMS     int64   `json:"duration_ms"`
}

func (s *Server) handleWatermarkRemove(args json.RawMessage) (interface{}, error) {
	var a watermarkRemoveArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.OutputPath == "" {
		return nil, fmt.Errorf("output_path is required")
	}
	if !imaging.SupportedOutput(a.OutputPath) {
		return nil, fmt.Errorf("unsupported output format: %s", a.OutputPath)
	}
	if a.Filler == "" {
		a.Filler = s.cfg.Filler
	}
	filler, err := inpaint.New(a.Filler)
	if err != nil {
		return nil, err
	}

	j, err := s.prepare(a.maskArgs)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := watermark.NewRemover(j.params, watermark.WithFiller(filler)).Remove(j.src, j.user)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	if err := imaging.Save(res.Image.Image(), a.OutputPath); err != nil {
		return nil, err
	}
	s.cache.Evict(a.OutputPath)
	if a.MaskOutputPath != "" {
		if err := imaging.Save(res.Mask.Gray(), a.MaskOutputPath); err != nil {
			return nil, err
		}
		s.cache.Evict(a.MaskOutputPath)
	}

	masked := res.Mask.Count()
	s.log.Info().
		Str("path", a.Path).
		Str("output", a.OutputPath).
		Int("masked", masked).
		Dur("duration", elapsed).
		Msg("watermark removed")

	return &RemoveResult{
		OutputPath:     a.OutputPath,
		MaskOutputPath: a.MaskOutputPath,
		MaskedPixels:   masked,
		Coverage:       coverage(masked, j.src),
		Filler:         a.Filler,
		DurationMS:     elapsed.Milliseconds(),
	}, nil
}

func coverage(masked int, src *imaging.Buffer) float64 {
	total := src.Width * src.Height
	if total == 0 {
		return 0
	}
	return float64(masked) / float64(total)
}
