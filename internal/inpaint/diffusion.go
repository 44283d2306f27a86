package inpaint

import (
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/watermark-remover/internal/imaging"
)

func init() {
	register("diffusion", func() Filler { return NewDiffusion() })
}

// Diffusion fills the mask with a smooth membrane: every masked pixel is
// relaxed toward the inverse-square weighted mean of its neighbors within
// the radius until the largest update falls below Tolerance.
//
// Each sweep reads only the previous sweep's values, so splitting the
// masked pixels across goroutines cannot change the result.
type Diffusion struct {
	MaxSweeps int
	Tolerance float64
}

// NewDiffusion returns a Diffusion filler with default limits.
func NewDiffusion() *Diffusion {
	return &Diffusion{MaxSweeps: 2000, Tolerance: 0.05}
}

type tap struct {
	dx, dy int
	w      float64
}

// Fill implements Filler.
func (d *Diffusion) Fill(src *imaging.Buffer, mask []uint8, radius int) (*imaging.Buffer, error) {
	if err := validate(src, mask, radius); err != nil {
		return nil, err
	}
	radius = clampRadius(src, radius)
	masked := countMasked(mask)
	out := src.Clone()
	if masked == 0 {
		return out, nil
	}
	if masked == len(mask) {
		return nil, ErrNoKnownPixels
	}

	w, h, ch := src.Width, src.Height, src.Channels
	taps := make([]tap, 0)
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			d2 := dx*dx + dy*dy
			if d2 == 0 || d2 > radius*radius {
				continue
			}
			taps = append(taps, tap{dx: dx, dy: dy, w: 1 / float64(d2)})
		}
	}

	// Masked pixels in row-major order.
	holes := make([]int, 0, masked)
	for i, v := range mask {
		if v != 0 {
			holes = append(holes, i)
		}
	}

	cur := make([]float64, len(src.Pix))
	for i, v := range src.Pix {
		cur[i] = float64(v)
	}
	seed := boundaryMean(src, mask)
	for _, i := range holes {
		copy(cur[i*ch:(i+1)*ch], seed)
	}
	next := make([]float64, len(cur))
	copy(next, cur)

	bands := runtime.GOMAXPROCS(0)
	if bands > len(holes) {
		bands = len(holes)
	}
	per := (len(holes) + bands - 1) / bands
	deltas := make([]float64, bands)

	for sweep := 0; sweep < d.MaxSweeps; sweep++ {
		var g errgroup.Group
		for b := 0; b < bands; b++ {
			b := b
			lo := b * per
			hi := min(lo+per, len(holes))
			g.Go(func() error {
				deltas[b] = relax(cur, next, holes[lo:hi], taps, w, h, ch)
				return nil
			})
		}
		_ = g.Wait()
		cur, next = next, cur

		maxDelta := 0.0
		for _, v := range deltas {
			maxDelta = math.Max(maxDelta, v)
		}
		if math.IsNaN(maxDelta) {
			return nil, ErrNumerical
		}
		if maxDelta < d.Tolerance {
			break
		}
	}

	for _, i := range holes {
		for c := 0; c < ch; c++ {
			v := cur[i*ch+c]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, ErrNumerical
			}
			out.Pix[i*ch+c] = toByte(v)
		}
	}
	return out, nil
}

// relax writes one Jacobi update for each hole into next and returns the
// largest change.
func relax(cur, next []float64, holes []int, taps []tap, w, h, ch int) float64 {
	maxDelta := 0.0
	var acc [3]float64
	for _, i := range holes {
		x, y := i%w, i/w
		acc = [3]float64{}
		wsum := 0.0
		for _, t := range taps {
			nx, ny := x+t.dx, y+t.dy
			if nx < 0 || nx >= w || ny < 0 || ny >= h {
				continue
			}
			j := (ny*w + nx) * ch
			for c := 0; c < ch; c++ {
				acc[c] += t.w * cur[j+c]
			}
			wsum += t.w
		}
		for c := 0; c < ch; c++ {
			v := acc[c] / wsum
			if delta := math.Abs(v - cur[i*ch+c]); delta > maxDelta || math.IsNaN(delta) {
				maxDelta = delta
			}
			next[i*ch+c] = v
		}
	}
	return maxDelta
}

// boundaryMean averages the unmasked pixels that touch the mask.
func boundaryMean(src *imaging.Buffer, mask []uint8) []float64 {
	w, h, ch := src.Width, src.Height, src.Channels
	sum := make([]float64, ch)
	n := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			if mask[i] != 0 {
				continue
			}
			for _, d := range neighbors4 {
				nx, ny := x+d[0], y+d[1]
				if nx < 0 || nx >= w || ny < 0 || ny >= h || mask[ny*w+nx] == 0 {
					continue
				}
				px := src.PixelAt(x, y)
				for c := 0; c < ch; c++ {
					sum[c] += float64(px[c])
				}
				n++
				break
			}
		}
	}
	for c := range sum {
		sum[c] /= float64(n)
	}
	return sum
}
