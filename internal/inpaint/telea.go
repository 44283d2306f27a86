package inpaint

import (
	"container/heap"
	"math"

	"github.com/ironsheep/watermark-remover/internal/imaging"
)

func init() {
	register("telea", func() Filler { return Telea{} })
}

// Pixel states during fast marching.
const (
	known uint8 = iota
	band
	inside
)

// Telea fills the mask by fast marching inward from its boundary.
//
// Each pixel reached by the front receives a weighted average of
// first-order estimates taken from every already-known pixel within the
// radius. Weights grow with alignment to the front normal, with proximity
// and with similar arrival time.
type Telea struct{}

// Fill implements Filler.
func (Telea) Fill(src *imaging.Buffer, mask []uint8, radius int) (*imaging.Buffer, error) {
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

	m := newMarch(src, mask, radius)
	if err := m.run(); err != nil {
		return nil, err
	}

	ch := src.Channels
	for i, v := range mask {
		if v == 0 {
			continue
		}
		for c := 0; c < ch; c++ {
			out.Pix[i*ch+c] = toByte(m.vals[i*ch+c])
		}
	}
	return out, nil
}

type march struct {
	w, h, ch int
	radius   int
	flags    []uint8
	dist     []float64
	vals     []float64
	queue    frontQueue
	seq      int
}

func newMarch(src *imaging.Buffer, mask []uint8, radius int) *march {
	n := src.Width * src.Height
	m := &march{
		w:      src.Width,
		h:      src.Height,
		ch:     src.Channels,
		radius: radius,
		flags:  make([]uint8, n),
		dist:   make([]float64, n),
		vals:   make([]float64, len(src.Pix)),
	}
	for i, v := range src.Pix {
		m.vals[i] = float64(v)
	}
	for i, v := range mask {
		if v != 0 {
			m.flags[i] = inside
			m.dist[i] = math.Inf(1)
		}
	}

	// The initial front is every known pixel touching the mask.
	for y := 0; y < m.h; y++ {
		for x := 0; x < m.w; x++ {
			i := y*m.w + x
			if m.flags[i] != known {
				continue
			}
			for _, d := range neighbors4 {
				j, ok := m.index(x+d[0], y+d[1])
				if ok && m.flags[j] == inside {
					m.flags[i] = band
					m.push(i, 0)
					break
				}
			}
		}
	}
	return m
}

var neighbors4 = [4][2]int{{0, -1}, {-1, 0}, {1, 0}, {0, 1}}

func (m *march) index(x, y int) (int, bool) {
	if x < 0 || x >= m.w || y < 0 || y >= m.h {
		return 0, false
	}
	return y*m.w + x, true
}

func (m *march) push(i int, t float64) {
	heap.Push(&m.queue, frontItem{t: t, idx: i, seq: m.seq})
	m.seq++
}

func (m *march) run() error {
	for m.queue.Len() > 0 {
		p := heap.Pop(&m.queue).(frontItem)
		m.flags[p.idx] = known
		px, py := p.idx%m.w, p.idx/m.w

		for _, d := range neighbors4 {
			x, y := px+d[0], py+d[1]
			j, ok := m.index(x, y)
			if !ok || m.flags[j] != inside {
				continue
			}
			t := math.Min(
				math.Min(m.solve(x, y-1, x-1, y), m.solve(x, y+1, x-1, y)),
				math.Min(m.solve(x, y-1, x+1, y), m.solve(x, y+1, x+1, y)),
			)
			m.dist[j] = t
			if err := m.inpaint(x, y); err != nil {
				return err
			}
			m.flags[j] = band
			m.push(j, t)
		}
	}
	return nil
}

// solve returns the arrival time at the pixel adjacent to both (x1, y1) and
// (x2, y2) from the discrete eikonal equation |grad T| = 1.
func (m *march) solve(x1, y1, x2, y2 int) float64 {
	i1, ok1 := m.index(x1, y1)
	i2, ok2 := m.index(x2, y2)
	k1 := ok1 && m.flags[i1] == known
	k2 := ok2 && m.flags[i2] == known

	switch {
	case k1 && k2:
		t1, t2 := m.dist[i1], m.dist[i2]
		r := math.Sqrt(2 - (t1-t2)*(t1-t2))
		if s := (t1 + t2 - r) / 2; s >= t1 && s >= t2 {
			return s
		}
		if s := (t1 + t2 + r) / 2; s >= t1 && s >= t2 {
			return s
		}
		return math.Inf(1)
	case k1:
		return 1 + m.dist[i1]
	case k2:
		return 1 + m.dist[i2]
	}
	return math.Inf(1)
}

// inpaint assigns the value of pixel (x, y) from known pixels within the radius.
func (m *march) inpaint(x, y int) error {
	q := y*m.w + x
	gx, gy := m.gradient(m.dist, 1, 0, x, y)
	gl := math.Hypot(gx, gy)

	var sum [3]float64
	var wsum float64
	r := m.radius

	for ky := y - r; ky <= y+r; ky++ {
		for kx := x - r; kx <= x+r; kx++ {
			k, ok := m.index(kx, ky)
			if !ok || m.flags[k] == inside {
				continue
			}
			rx, ry := float64(x-kx), float64(y-ky)
			d2 := rx*rx + ry*ry
			if d2 == 0 || d2 > float64(r*r) {
				continue
			}
			d := math.Sqrt(d2)

			dir := 1.0
			if gl > 0 {
				dir = math.Abs(rx*gx+ry*gy) / (d * gl)
			}
			if dir < 0.01 {
				dir = 1e-6
			}
			lev := 1 / (1 + math.Abs(m.dist[k]-m.dist[q]))
			wgt := dir * lev / d2

			for c := 0; c < m.ch; c++ {
				ix, iy := m.gradient(m.vals, m.ch, c, kx, ky)
				sum[c] += wgt * (m.vals[k*m.ch+c] + ix*rx + iy*ry)
			}
			wsum += wgt
		}
	}

	if wsum == 0 {
		return ErrNumerical
	}
	for c := 0; c < m.ch; c++ {
		v := sum[c] / wsum
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrNumerical
		}
		m.vals[q*m.ch+c] = v
	}
	return nil
}

// gradient returns central differences of field (stride values per pixel,
// offset c) at (x, y), falling back to one-sided differences where a
// neighbor is still unknown.
func (m *march) gradient(field []float64, stride, c, x, y int) (float64, float64) {
	center := field[(y*m.w+x)*stride+c]
	axis := func(dx, dy int) float64 {
		f, fok := m.index(x+dx, y+dy)
		b, bok := m.index(x-dx, y-dy)
		fok = fok && m.flags[f] != inside
		bok = bok && m.flags[b] != inside
		switch {
		case fok && bok:
			return (field[f*stride+c] - field[b*stride+c]) / 2
		case fok:
			return field[f*stride+c] - center
		case bok:
			return center - field[b*stride+c]
		}
		return 0
	}
	return axis(1, 0), axis(0, 1)
}

type frontItem struct {
	t   float64
	idx int
	seq int
}

// frontQueue is a min-heap on arrival time, insertion order breaking ties.
type frontQueue []frontItem

func (q frontQueue) Len() int { return len(q) }
func (q frontQueue) Less(i, j int) bool {
	if q[i].t != q[j].t {
		return q[i].t < q[j].t
	}
	return q[i].seq < q[j].seq
}
func (q frontQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *frontQueue) Push(x any)   { *q = append(*q, x.(frontItem)) }
func (q *frontQueue) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	*q = old[:n-1]
	return it
}
