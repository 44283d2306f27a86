package watermark

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Mask values.
const (
	MaskKeep   uint8 = 0
	MaskRemove uint8 = 255
)

// Mask is a single-channel binary map the size of its image. Every value is
// MaskKeep or MaskRemove.
type Mask struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewMask allocates an all-MaskKeep mask.
func NewMask(width, height int) *Mask {
	return &Mask{Width: width, Height: height, Pix: make([]uint8, width*height)}
}

// Set marks (x, y) for removal.
func (m *Mask) Set(x, y int) {
	m.Pix[y*m.Width+x] = MaskRemove
}

// IsSet reports whether (x, y) is marked for removal.
func (m *Mask) IsSet(x, y int) bool {
	return m.Pix[y*m.Width+x] != MaskKeep
}

// Count returns the number of pixels marked for removal.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v != MaskKeep {
			n++
		}
	}
	return n
}

// Empty reports whether no pixel is marked.
func (m *Mask) Empty() bool {
	for _, v := range m.Pix {
		if v != MaskKeep {
			return false
		}
	}
	return true
}

// Bounds returns the smallest rectangle containing every marked pixel, or
// the zero rectangle for an empty mask.
func (m *Mask) Bounds() image.Rectangle {
	r := image.Rectangle{}
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.Pix[y*m.Width+x] != MaskKeep {
				r = r.Union(image.Rect(x, y, x+1, y+1))
			}
		}
	}
	return r
}

// Or marks every pixel that is marked in o. The masks must be the same size.
func (m *Mask) Or(o *Mask) error {
	if o.Width != m.Width || o.Height != m.Height {
		return fmt.Errorf("%w: %dx%d vs %dx%d", ErrMaskSize, o.Width, o.Height, m.Width, m.Height)
	}
	for i, v := range o.Pix {
		if v != MaskKeep {
			m.Pix[i] = MaskRemove
		}
	}
	return nil
}

// Clone returns an independent copy.
func (m *Mask) Clone() *Mask {
	pix := make([]uint8, len(m.Pix))
	copy(pix, m.Pix)
	return &Mask{Width: m.Width, Height: m.Height, Pix: pix}
}

// Gray returns the mask as a gray image (0 keep, 255 remove).
func (m *Mask) Gray() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		copy(g.Pix[y*g.Stride:y*g.Stride+m.Width], m.Pix[y*m.Width:(y+1)*m.Width])
	}
	return g
}

// MaskFromImage binarizes an arbitrary image: it is converted to gray and
// any value above zero marks removal.
func MaskFromImage(img image.Image) *Mask {
	gray := imaging.Grayscale(img)
	w, h := gray.Bounds().Dx(), gray.Bounds().Dy()
	m := NewMask(w, h)
	for y := 0; y < h; y++ {
		row := gray.Pix[y*gray.Stride:]
		for x := 0; x < w; x++ {
			if row[x*4] > 0 {
				m.Pix[y*w+x] = MaskRemove
			}
		}
	}
	return m
}

// MaskFromRects marks every pixel inside the given rectangles, clipped to
// the mask size.
func MaskFromRects(width, height int, rects []image.Rectangle) *Mask {
	m := NewMask(width, height)
	bounds := image.Rect(0, 0, width, height)
	for _, r := range rects {
		r = r.Intersect(bounds)
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				m.Pix[y*width+x] = MaskRemove
			}
		}
	}
	return m
}
