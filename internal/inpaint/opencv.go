//go:build gocv

package inpaint

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/ironsheep/watermark-remover/internal/imaging"
)

func init() {
	register("opencv", func() Filler { return OpenCV{} })
}

// OpenCV delegates to cv::inpaint with the Telea method. Only built with
// the gocv tag, since it links against the OpenCV shared libraries.
type OpenCV struct{}

// Fill implements Filler.
func (OpenCV) Fill(src *imaging.Buffer, mask []uint8, radius int) (*imaging.Buffer, error) {
	if err := validate(src, mask, radius); err != nil {
		return nil, err
	}
	radius = clampRadius(src, radius)
	out := src.Clone()
	masked := countMasked(mask)
	if masked == 0 {
		return out, nil
	}
	if masked == len(mask) {
		return nil, ErrNoKnownPixels
	}

	typ := gocv.MatTypeCV8UC3
	if src.Channels == 1 {
		typ = gocv.MatTypeCV8UC1
	}
	img, err := gocv.NewMatFromBytes(src.Height, src.Width, typ, src.Pix)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap image: %w", err)
	}
	defer img.Close()

	m, err := gocv.NewMatFromBytes(src.Height, src.Width, gocv.MatTypeCV8UC1, mask)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap mask: %w", err)
	}
	defer m.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.Inpaint(img, m, &dst, float32(radius), gocv.Telea)

	filled := dst.ToBytes()
	if len(filled) != len(out.Pix) {
		return nil, fmt.Errorf("%w: opencv returned %d bytes, want %d", ErrNumerical, len(filled), len(out.Pix))
	}

	// cv::inpaint may touch unmasked pixels; only masked ones are taken.
	ch := src.Channels
	for i, v := range mask {
		if v != 0 {
			copy(out.Pix[i*ch:(i+1)*ch], filled[i*ch:(i+1)*ch])
		}
	}
	return out, nil
}
