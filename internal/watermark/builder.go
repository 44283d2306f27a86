package watermark

import (
	"fmt"
	"image"
	"runtime"

	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/watermark-remover/internal/detection"
	wmimaging "github.com/ironsheep/watermark-remover/internal/imaging"
)

// UserMask is an optional set of externally supplied hint layers. The zero
// value holds no layers and means "no user mask". Each layer is any image
// interpretable as gray; a value above zero forces removal. Layers only ever
// add to the computed mask.
type UserMask struct {
	layers []image.Image
}

// NoUserMask returns the absent user mask.
func NoUserMask() UserMask {
	return UserMask{}
}

// UserMaskFrom wraps a single hint image. Nil or empty images yield an
// absent mask.
func UserMaskFrom(img image.Image) UserMask {
	return NoUserMask().With(img)
}

// With returns a copy that also carries img. Nil or empty images are ignored.
func (u UserMask) With(img image.Image) UserMask {
	if img == nil || img.Bounds().Empty() {
		return u
	}
	layers := make([]image.Image, 0, len(u.layers)+1)
	layers = append(layers, u.layers...)
	return UserMask{layers: append(layers, img)}
}

// Present reports whether at least one layer participates.
func (u UserMask) Present() bool {
	return len(u.layers) > 0
}

// Builder computes the effective removal mask of an image.
type Builder struct {
	params Params
}

// NewBuilder returns a Builder using normalized copies of p.
func NewBuilder(p Params) *Builder {
	return &Builder{params: p.Normalize()}
}

// Params returns the normalized parameters in use.
func (b *Builder) Params() Params {
	return b.params
}

// Computed applies the alpha and near-white rules to every pixel of src.
// Rows are scanned in parallel bands; each band writes only its own rows.
func (b *Builder) Computed(src *wmimaging.Buffer) *Mask {
	if src.Empty() {
		return NewMask(0, 0)
	}
	rule := DetectionRule(b.params, src.Channels)
	mask := NewMask(src.Width, src.Height)

	bands := runtime.GOMAXPROCS(0)
	if bands > src.Height {
		bands = src.Height
	}
	rowsPer := (src.Height + bands - 1) / bands

	var g errgroup.Group
	for y0 := 0; y0 < src.Height; y0 += rowsPer {
		y0 := y0
		y1 := min(y0+rowsPer, src.Height)
		g.Go(func() error {
			for y := y0; y < y1; y++ {
				for x := 0; x < src.Width; x++ {
					if rule(src.PixelAt(x, y)) {
						mask.Pix[y*src.Width+x] = MaskRemove
					}
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	if b.params.MinRegionArea > 0 {
		mask = dropSmallRegions(mask, b.params.MinRegionArea)
	}
	return mask
}

// Build returns the effective mask: the computed mask OR-ed with every user
// layer, optionally dilated.
//
// A user layer whose size differs from src is resized with nearest-neighbor
// sampling when ResizeUserMask is set; otherwise Build fails with
// ErrMaskSize.
func (b *Builder) Build(src *wmimaging.Buffer, user UserMask) (*Mask, error) {
	mask := b.Computed(src)

	for i, layer := range user.layers {
		lb := layer.Bounds()
		if lb.Dx() != src.Width || lb.Dy() != src.Height {
			if !b.params.ResizeUserMask {
				return nil, fmt.Errorf("%w: user mask %d is %dx%d, image is %dx%d",
					ErrMaskSize, i, lb.Dx(), lb.Dy(), src.Width, src.Height)
			}
			layer = imaging.Resize(layer, src.Width, src.Height, imaging.NearestNeighbor)
		}
		if err := mask.Or(MaskFromImage(layer)); err != nil {
			return nil, err
		}
	}

	if b.params.Dilate && !mask.Empty() {
		mask = dilate(mask, min(b.params.DilateMargin(), src.Width+src.Height))
	}
	return mask, nil
}

// dilate grows every marked region by margin pixels.
func dilate(m *Mask, margin int) *Mask {
	grown := effect.Dilate(m.Gray(), float64(margin))
	out := NewMask(m.Width, m.Height)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if grown.Pix[y*grown.Stride+x*4] > 0 {
				out.Pix[y*m.Width+x] = MaskRemove
			}
		}
	}
	// Dilation never clears a pixel.
	_ = out.Or(m)
	return out
}

func dropSmallRegions(m *Mask, minArea int) *Mask {
	regions := detection.FindRegions(m.Gray(), minArea)
	out := NewMask(m.Width, m.Height)
	for _, r := range regions.Regions {
		for _, p := range r.Pixels {
			out.Set(p.X, p.Y)
		}
	}
	return out
}
