package inpaint

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ironsheep/watermark-remover/internal/imaging"
)

var (
	// ErrUnsupported is returned for buffers the fillers cannot operate on:
	// alpha-carrying or invalid buffers, mismatched masks, radius below 1.
	ErrUnsupported = errors.New("unsupported fill input")

	// ErrNoKnownPixels is returned when every pixel is masked and there is
	// nothing to propagate from.
	ErrNoKnownPixels = errors.New("mask covers the entire image")

	// ErrNumerical is returned when a synthesized value is not finite.
	ErrNumerical = errors.New("numerical failure while filling")
)

// DefaultName is the strategy used when none is configured.
const DefaultName = "telea"

// Filler synthesizes values for masked pixels of a 1- or 3-channel buffer.
//
// mask has one byte per pixel, non-zero meaning "replace". Implementations
// return a new buffer in which every unmasked pixel is byte-identical to
// src, and must not modify src.
type Filler interface {
	Fill(src *imaging.Buffer, mask []uint8, radius int) (*imaging.Buffer, error)
}

// Factory creates a Filler.
type Factory func() Filler

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = f
}

// New returns the named strategy.
func New(name string) (Filler, error) {
	if name == "" {
		name = DefaultName
	}
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown fill strategy %q (available: %v)", name, Names())
	}
	return f(), nil
}

// Names lists the registered strategies in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func validate(src *imaging.Buffer, mask []uint8, radius int) error {
	if err := src.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	if src.Channels != 1 && src.Channels != 3 {
		return fmt.Errorf("%w: %d channels", ErrUnsupported, src.Channels)
	}
	if len(mask) != src.Width*src.Height {
		return fmt.Errorf("%w: mask has %d values for %dx%d pixels",
			ErrUnsupported, len(mask), src.Width, src.Height)
	}
	if radius < 1 {
		return fmt.Errorf("%w: radius %d", ErrUnsupported, radius)
	}
	return nil
}

// clampRadius bounds radius by the image extent. No two pixels are
// Width+Height apart, so a larger radius reaches nothing more.
func clampRadius(src *imaging.Buffer, radius int) int {
	return min(radius, src.Width+src.Height)
}

// countMasked returns how many pixels are masked.
func countMasked(mask []uint8) int {
	n := 0
	for _, v := range mask {
		if v != 0 {
			n++
		}
	}
	return n
}

// toByte rounds and clamps a synthesized value.
func toByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
