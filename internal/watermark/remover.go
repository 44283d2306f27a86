package watermark

import (
	"fmt"

	"github.com/ironsheep/watermark-remover/internal/imaging"
	"github.com/ironsheep/watermark-remover/internal/inpaint"
)

// Result is the outcome of a successful removal.
type Result struct {
	// Image has the source's dimensions and channel count. Pixels outside
	// Mask equal the source; alpha is copied unchanged.
	Image *imaging.Buffer

	// Mask is the effective mask that was filled.
	Mask *Mask
}

// Remover runs mask construction followed by region filling.
//
// A Remover holds only read-only configuration and may be shared between
// goroutines.
type Remover struct {
	builder *Builder
	filler  inpaint.Filler
}

// Option customizes a Remover.
type Option func(*Remover)

// WithFiller selects the fill strategy. The default is inpaint.Telea.
func WithFiller(f inpaint.Filler) Option {
	return func(r *Remover) {
		r.filler = f
	}
}

// NewRemover returns a Remover for the given parameters.
func NewRemover(p Params, opts ...Option) *Remover {
	r := &Remover{
		builder: NewBuilder(p),
		filler:  inpaint.Telea{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Params returns the normalized parameters in use.
func (r *Remover) Params() Params {
	return r.builder.Params()
}

// Mask validates src and returns its effective mask without filling.
func (r *Remover) Mask(src *imaging.Buffer, user UserMask) (*Mask, error) {
	if err := src.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmptyImage, err)
	}
	return r.builder.Build(src, user)
}

// Remove detects the watermark in src, merges the user mask and fills the
// resulting region.
//
// src is not modified. On error the returned Result is nil:
//   - ErrEmptyImage: src is nil, zero-area or inconsistent
//   - ErrMaskSize: a user layer does not match and resizing is off
//   - ErrFill: the fill strategy failed
//
// An empty effective mask is not an error; the result is a copy of src.
func (r *Remover) Remove(src *imaging.Buffer, user UserMask) (*Result, error) {
	mask, err := r.Mask(src, user)
	if err != nil {
		return nil, err
	}
	if mask.Empty() {
		return &Result{Image: src.Clone(), Mask: mask}, nil
	}

	color, alpha := src.SplitAlpha()
	filled, err := r.filler.Fill(color, mask.Pix, r.builder.params.InpaintRadius)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFill, err)
	}

	out := filled
	if alpha != nil {
		out, err = imaging.MergeAlpha(filled, alpha)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFill, err)
		}
	}
	return &Result{Image: out, Mask: mask}, nil
}

// Remove runs a one-off removal with the default fill strategy.
func Remove(src *imaging.Buffer, user UserMask, p Params) (*Result, error) {
	return NewRemover(p).Remove(src, user)
}
