package server

import (
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ironsheep/watermark-remover/internal/imaging"
)

// createTestImageFile writes a gray image with a white block at
// (blockX, blockY) of the given size and returns its path.
func createTestImageFile(t *testing.T, width, height int, block image.Rectangle) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.RGBA{100, 110, 120, 255}
			if image.Pt(x, y).In(block) {
				c = color.RGBA{255, 255, 255, 255}
			}
			img.Set(x, y, c)
		}
	}

	path := filepath.Join(t.TempDir(), "source.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

func callTool(t *testing.T, s *Server, name string, args map[string]interface{}) *MCPResponse {
	t.Helper()
	paramsJSON, err := json.Marshal(map[string]interface{}{"name": name, "arguments": args})
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	resp := s.handleRequest(&MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: paramsJSON})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// decodeToolResult unpacks the JSON text of a successful tool response.
func decodeToolResult(t *testing.T, resp *MCPResponse, v interface{}) {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}
	result := resp.Result.(map[string]interface{})
	content := result["content"].([]map[string]interface{})
	if len(content) != 1 || content[0]["type"] != "text" {
		t.Fatalf("unexpected content: %v", content)
	}
	if err := json.Unmarshal([]byte(content[0]["text"].(string)), v); err != nil {
		t.Fatalf("decode tool result: %v", err)
	}
}

func TestHandleToolsCall_ImageLoad(t *testing.T) {
	s := newTestServer()
	path := createTestImageFile(t, 30, 20, image.Rectangle{})

	var info imaging.ImageInfo
	decodeToolResult(t, callTool(t, s, "image_load", map[string]interface{}{"path": path}), &info)

	if info.Width != 30 || info.Height != 20 {
		t.Errorf("dimensions: got %dx%d, want 30x20", info.Width, info.Height)
	}
	if info.Channels != 3 || info.HasAlpha {
		t.Errorf("opaque RGBA should report 3 channels without alpha, got %d/%v", info.Channels, info.HasAlpha)
	}
	if info.Format != "png" {
		t.Errorf("format: got %q, want png", info.Format)
	}
}

func TestHandleToolsCall_SampleColor(t *testing.T) {
	s := newTestServer()
	path := createTestImageFile(t, 10, 10, image.Rect(0, 0, 1, 1))

	var c imaging.ColorResult
	decodeToolResult(t, callTool(t, s, "image_sample_color", map[string]interface{}{"path": path, "x": 0, "y": 0}), &c)
	if c.Hex != "#FFFFFF" || c.Luma != 255 {
		t.Errorf("white pixel: got %s luma %d", c.Hex, c.Luma)
	}

	resp := callTool(t, s, "image_sample_color", map[string]interface{}{"path": path, "x": 10, "y": 0})
	if resp.Error == nil {
		t.Error("expected error for out-of-bounds sample")
	}
}

func TestHandleToolsCall_WatermarkDetect(t *testing.T) {
	s := newTestServer()
	block := image.Rect(5, 6, 9, 9)
	path := createTestImageFile(t, 20, 16, block)

	var res DetectResult
	decodeToolResult(t, callTool(t, s, "watermark_detect", map[string]interface{}{"path": path}), &res)

	if res.MaskedPixels != 12 {
		t.Errorf("masked pixels: got %d, want 12", res.MaskedPixels)
	}
	if res.Regions == nil || res.Regions.Count != 1 {
		t.Fatalf("regions: got %+v, want one", res.Regions)
	}
	b := res.Regions.Regions[0].Bounds
	if b.X1 != 5 || b.Y1 != 6 || b.X2 != 9 || b.Y2 != 9 {
		t.Errorf("region bounds: got %+v, want %v", b, block)
	}
	if res.Params.WhiteThreshold != 240 {
		t.Errorf("params should carry the configured defaults, got %+v", res.Params)
	}
}

func TestHandleToolsCall_WatermarkDetect_Overrides(t *testing.T) {
	s := newTestServer()
	path := createTestImageFile(t, 20, 16, image.Rect(0, 0, 2, 2))

	// Raising the threshold above 255 is clamped; white (255) still matches.
	var res DetectResult
	decodeToolResult(t, callTool(t, s, "watermark_detect", map[string]interface{}{
		"path":            path,
		"white_threshold": 400,
	}), &res)
	if res.Params.WhiteThreshold != 255 || res.MaskedPixels != 4 {
		t.Errorf("got threshold %d masked %d, want 255 and 4", res.Params.WhiteThreshold, res.MaskedPixels)
	}

	// Lowering it to 100 also flags the gray background (luma ~108).
	decodeToolResult(t, callTool(t, s, "watermark_detect", map[string]interface{}{
		"path":            path,
		"white_threshold": 100,
	}), &res)
	if res.MaskedPixels != 20*16 {
		t.Errorf("masked: got %d, want every pixel", res.MaskedPixels)
	}

	resp := callTool(t, s, "watermark_detect", map[string]interface{}{
		"path":         path,
		"white_metric": "brightness",
	})
	if resp.Error == nil {
		t.Error("expected error for unknown white_metric")
	}
}

func TestHandleToolsCall_WatermarkRemove(t *testing.T) {
	s := newTestServer()
	block := image.Rect(8, 8, 11, 11)
	path := createTestImageFile(t, 24, 24, block)
	dir := t.TempDir()
	out := filepath.Join(dir, "clean.png")
	maskOut := filepath.Join(dir, "mask.png")

	var res RemoveResult
	decodeToolResult(t, callTool(t, s, "watermark_remove", map[string]interface{}{
		"path":             path,
		"output_path":      out,
		"mask_output_path": maskOut,
	}), &res)

	if res.MaskedPixels != 9 {
		t.Errorf("masked pixels: got %d, want 9", res.MaskedPixels)
	}
	if res.Filler != "telea" {
		t.Errorf("filler: got %q, want telea", res.Filler)
	}

	cleaned, err := imaging.Open(out)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	r, g, b, _ := cleaned.At(9, 9).RGBA()
	if r>>8 != 100 || g>>8 != 110 || b>>8 != 120 {
		t.Errorf("filled pixel: got (%d,%d,%d), want the surrounding (100,110,120)", r>>8, g>>8, b>>8)
	}

	mask, err := imaging.Open(maskOut)
	if err != nil {
		t.Fatalf("open mask: %v", err)
	}
	if _, ok := mask.(*image.Gray); !ok {
		t.Errorf("mask should decode as gray, got %T", mask)
	}
}

func TestHandleToolsCall_WatermarkRemove_Errors(t *testing.T) {
	s := newTestServer()
	path := createTestImageFile(t, 10, 10, image.Rect(0, 0, 2, 2))
	dir := t.TempDir()

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"missing output", map[string]interface{}{"path": path}},
		{"unsupported format", map[string]interface{}{"path": path, "output_path": filepath.Join(dir, "out.xyz")}},
		{"unknown filler", map[string]interface{}{"path": path, "output_path": filepath.Join(dir, "out.png"), "filler": "magic"}},
		{"missing source", map[string]interface{}{"path": filepath.Join(dir, "nope.png"), "output_path": filepath.Join(dir, "out.png")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := callTool(t, s, "watermark_remove", tt.args)
			if resp.Error == nil {
				t.Fatal("expected error")
			}
			if resp.Error.Code != -32000 {
				t.Errorf("code: got %d, want -32000", resp.Error.Code)
			}
		})
	}
}

func TestHandleToolsCall_UnknownTool(t *testing.T) {
	s := newTestServer()
	resp := callTool(t, s, "image_crop", map[string]interface{}{})
	if resp.Error == nil || resp.Error.Code != -32000 {
		t.Errorf("unknown tool: got %+v", resp.Error)
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := newTestServer()
	resp := s.handleRequest(&MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: json.RawMessage(`[1,2]`)})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("invalid params: got %+v", resp.Error)
	}
}
