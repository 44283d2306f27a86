package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Buffer is a decoded 8-bit pixel buffer with interleaved channels.
//
// Channels is 1 (gray), 3 (color) or 4 (color + straight alpha). Pixel (x, y)
// starts at Pix[(y*Width+x)*Channels].
type Buffer struct {
	Width    int
	Height   int
	Channels int
	Pix      []uint8
}

// NewBuffer allocates a zeroed buffer.
func NewBuffer(width, height, channels int) *Buffer {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Buffer{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]uint8, width*height*channels),
	}
}

// Empty reports whether the buffer has no pixels to work with.
func (b *Buffer) Empty() bool {
	return b == nil || b.Width <= 0 || b.Height <= 0
}

// Validate checks that the channel count is supported and Pix has the
// length implied by the dimensions.
func (b *Buffer) Validate() error {
	if b.Empty() {
		return fmt.Errorf("empty buffer")
	}
	switch b.Channels {
	case 1, 3, 4:
	default:
		return fmt.Errorf("unsupported channel count %d", b.Channels)
	}
	if want := b.Width * b.Height * b.Channels; len(b.Pix) != want {
		return fmt.Errorf("pixel data length %d, want %d for %dx%dx%d",
			len(b.Pix), want, b.Width, b.Height, b.Channels)
	}
	return nil
}

// HasAlpha reports whether the buffer carries an alpha channel.
func (b *Buffer) HasAlpha() bool {
	return b.Channels == 4
}

// Offset returns the index of the first channel of pixel (x, y).
func (b *Buffer) Offset(x, y int) int {
	return (y*b.Width + x) * b.Channels
}

// PixelAt returns the channel values of pixel (x, y). The slice aliases Pix.
func (b *Buffer) PixelAt(x, y int) []uint8 {
	i := b.Offset(x, y)
	return b.Pix[i : i+b.Channels : i+b.Channels]
}

// Clone returns an independent copy of the buffer.
func (b *Buffer) Clone() *Buffer {
	pix := make([]uint8, len(b.Pix))
	copy(pix, b.Pix)
	return &Buffer{Width: b.Width, Height: b.Height, Channels: b.Channels, Pix: pix}
}

// SplitAlpha separates a 4-channel buffer into a 3-channel color buffer and
// its alpha plane. Buffers without alpha are cloned and a nil plane is
// returned.
func (b *Buffer) SplitAlpha() (*Buffer, []uint8) {
	if !b.HasAlpha() {
		return b.Clone(), nil
	}
	n := b.Width * b.Height
	color := NewBuffer(b.Width, b.Height, 3)
	alpha := make([]uint8, n)
	for i := 0; i < n; i++ {
		copy(color.Pix[i*3:i*3+3], b.Pix[i*4:i*4+3])
		alpha[i] = b.Pix[i*4+3]
	}
	return color, alpha
}

// MergeAlpha recomposes a 3-channel color buffer with an alpha plane into a
// new 4-channel buffer.
func MergeAlpha(color *Buffer, alpha []uint8) (*Buffer, error) {
	n := color.Width * color.Height
	if color.Channels != 3 {
		return nil, fmt.Errorf("alpha can only be merged onto 3 channels, got %d", color.Channels)
	}
	if len(alpha) != n {
		return nil, fmt.Errorf("alpha plane length %d, want %d", len(alpha), n)
	}
	out := NewBuffer(color.Width, color.Height, 4)
	for i := 0; i < n; i++ {
		copy(out.Pix[i*4:i*4+3], color.Pix[i*3:i*3+3])
		out.Pix[i*4+3] = alpha[i]
	}
	return out, nil
}

// ChannelsOf reports how many channels a decoded image carries: 1 for gray
// models, 4 for models with a non-opaque alpha channel, 3 otherwise.
func ChannelsOf(img image.Image) int {
	switch m := img.(type) {
	case *image.Gray, *image.Gray16:
		return 1
	case *image.NRGBA, *image.RGBA, *image.NRGBA64, *image.RGBA64, *image.Paletted:
		if o, ok := m.(interface{ Opaque() bool }); ok && o.Opaque() {
			return 3
		}
		return 4
	}
	return 3
}

// FromImage converts a decoded image into a Buffer whose channel count
// follows ChannelsOf. Alpha is stored unpremultiplied.
func FromImage(img image.Image) *Buffer {
	if img == nil {
		return &Buffer{}
	}
	channels := ChannelsOf(img)
	src := imaging.Clone(img)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	dst := NewBuffer(w, h, channels)

	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]
		for x := 0; x < w; x++ {
			s := row[x*4 : x*4+4]
			d := dst.Pix[(y*w+x)*channels:]
			switch channels {
			case 1:
				d[0] = s[0]
			case 3:
				copy(d[:3], s[:3])
			case 4:
				copy(d[:4], s)
			}
		}
	}
	return dst
}

// Image converts the buffer back to a standard image: *image.Gray for one
// channel, *image.NRGBA otherwise (opaque for three channels).
func (b *Buffer) Image() image.Image {
	rect := image.Rect(0, 0, b.Width, b.Height)
	if b.Channels == 1 {
		g := image.NewGray(rect)
		for y := 0; y < b.Height; y++ {
			copy(g.Pix[y*g.Stride:y*g.Stride+b.Width], b.Pix[y*b.Width:(y+1)*b.Width])
		}
		return g
	}

	dst := image.NewNRGBA(rect)
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			s := b.PixelAt(x, y)
			d := dst.Pix[y*dst.Stride+x*4 : y*dst.Stride+x*4+4]
			copy(d[:3], s[:3])
			if b.Channels == 4 {
				d[3] = s[3]
			} else {
				d[3] = 0xff
			}
		}
	}
	return dst
}
