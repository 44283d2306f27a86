package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/otiai10/gosseract/v2"
)

// Bounds represents a rectangular bounding box in pixel coordinates.
type Bounds struct {
	X1 int `json:"x1"` // Left edge
	Y1 int `json:"y1"` // Top edge
	X2 int `json:"x2"` // Right edge
	Y2 int `json:"y2"` // Bottom edge
}

// TextRegion represents a word with its location and OCR confidence.
type TextRegion struct {
	// Text is the recognized word.
	Text string `json:"text"`

	// Confidence is the OCR confidence score (0.0 to 1.0).
	Confidence float64 `json:"confidence"`

	// Bounds is the bounding box around this word in the image.
	Bounds Bounds `json:"bounds"`
}

// Options controls text hint extraction.
type Options struct {
	// Language is the Tesseract language code, e.g. "eng".
	Language string `yaml:"language"`

	// MinConfidence drops words below this score (0.0 to 1.0).
	MinConfidence float64 `yaml:"min_confidence"`

	// Padding grows every word box on each side, in pixels, so glyph
	// anti-aliasing is covered.
	Padding int `yaml:"padding"`
}

// DefaultOptions returns English, 0.5 confidence and 2 pixels of padding.
func DefaultOptions() Options {
	return Options{Language: "eng", MinConfidence: 0.5, Padding: 2}
}

// TextRegions performs word-level OCR on an in-memory image.
//
// Parameters:
//   - img: The image to analyze.
//   - language: Tesseract language code. The language data must be installed.
//   - minConfidence: Words scoring below this (0.0 to 1.0) are dropped.
//
// Returns:
//   - []TextRegion: Recognized non-empty words in reading order.
//   - error: Non-nil if encoding the image or running Tesseract fails.
func TextRegions(img image.Image, language string, minConfidence float64) ([]TextRegion, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image for OCR: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(language); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("failed to get text regions: %w", err)
	}

	origin := img.Bounds().Min
	regions := make([]TextRegion, 0, len(boxes))
	for _, box := range boxes {
		confidence := box.Confidence / 100.0
		if box.Word == "" || confidence < minConfidence {
			continue
		}
		r := box.Box.Add(origin)
		regions = append(regions, TextRegion{
			Text:       box.Word,
			Confidence: confidence,
			Bounds:     Bounds{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y},
		})
	}
	return regions, nil
}

// TextMask finds words in img and returns them as a gray hint layer the
// size of img (255 inside padded word boxes, 0 elsewhere), along with the
// words themselves.
func TextMask(img image.Image, opts Options) (*image.Gray, []TextRegion, error) {
	regions, err := TextRegions(img, opts.Language, opts.MinConfidence)
	if err != nil {
		return nil, nil, err
	}
	return Rasterize(img.Bounds(), regions, opts.Padding), regions, nil
}

// Rasterize paints padded region boxes, clipped to bounds, into a new gray image.
func Rasterize(bounds image.Rectangle, regions []TextRegion, padding int) *image.Gray {
	mask := image.NewGray(bounds)
	white := image.NewUniform(color.Gray{Y: 255})
	for _, r := range regions {
		box := image.Rect(r.Bounds.X1, r.Bounds.Y1, r.Bounds.X2, r.Bounds.Y2).
			Inset(-padding).
			Intersect(bounds)
		if box.Empty() {
			continue
		}
		draw.Draw(mask, box, white, image.Point{}, draw.Src)
	}
	return mask
}
