package watermark

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math/rand"
	"sync"
	"testing"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/watermark-remover/internal/imaging"
	"github.com/ironsheep/watermark-remover/internal/inpaint"
)

// fillers lists the strategies every property must hold for.
func fillers() map[string]inpaint.Filler {
	return map[string]inpaint.Filler{
		"telea":     inpaint.Telea{},
		"diffusion": inpaint.NewDiffusion(),
	}
}

type failingFiller struct{}

func (failingFiller) Fill(*imaging.Buffer, []uint8, int) (*imaging.Buffer, error) {
	return nil, errors.New("boom")
}

// randomBuffer fills a buffer with values that no rule flags: colors below
// the white threshold and, for 4 channels, opaque alpha.
func randomBuffer(rng *rand.Rand, w, h, ch int) *imaging.Buffer {
	b := imaging.NewBuffer(w, h, ch)
	for i := range b.Pix {
		b.Pix[i] = uint8(rng.Intn(200))
		if ch == 4 && i%4 == 3 {
			b.Pix[i] = 255
		}
	}
	return b
}

// changedOutside returns the first pixel outside mask whose value differs.
func changedOutside(src, out *imaging.Buffer, m *Mask) (image.Point, bool) {
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			if m.IsSet(x, y) {
				continue
			}
			if !bytes.Equal(src.PixelAt(x, y), out.PixelAt(x, y)) {
				return image.Pt(x, y), true
			}
		}
	}
	return image.Point{}, false
}

func alphaPlane(b *imaging.Buffer) []uint8 {
	_, a := b.SplitAlpha()
	return a
}

func TestRemove_NoOpIsIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, ch := range []int{1, 3, 4} {
		t.Run(fmt.Sprintf("%d channels", ch), func(t *testing.T) {
			src := randomBuffer(rng, 17, 9, ch)
			res, err := Remove(src, NoUserMask(), DefaultParams())
			if err != nil {
				t.Fatalf("Remove: %v", err)
			}
			if !res.Mask.Empty() {
				t.Fatalf("mask should be empty, has %d pixels", res.Mask.Count())
			}
			if !bytes.Equal(src.Pix, res.Image.Pix) {
				t.Error("output differs from source")
			}
			if &res.Image.Pix[0] == &src.Pix[0] {
				t.Error("output aliases the source")
			}
		})
	}
}

func TestRemove_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for name, f := range fillers() {
		for _, ch := range []int{1, 3, 4} {
			t.Run(fmt.Sprintf("%s/%d channels", name, ch), func(t *testing.T) {
				src := randomBuffer(rng, 24, 20, ch)
				white := []uint8{255, 255, 255, 255}[:ch]
				fillRect(src, image.Rect(3, 4, 9, 6), white...)
				fillRect(src, image.Rect(15, 10, 17, 17), white...)
				if ch == 4 {
					fillRect(src, image.Rect(20, 1, 22, 3), 30, 40, 50, 10)
				}
				orig := src.Clone()

				res, err := NewRemover(DefaultParams(), WithFiller(f)).Remove(src, NoUserMask())
				if err != nil {
					t.Fatalf("Remove: %v", err)
				}

				if !bytes.Equal(orig.Pix, src.Pix) {
					t.Fatal("source was modified")
				}
				out := res.Image
				if out.Width != src.Width || out.Height != src.Height || out.Channels != src.Channels {
					t.Fatalf("shape: got %dx%dx%d, want %dx%dx%d",
						out.Width, out.Height, out.Channels, src.Width, src.Height, src.Channels)
				}
				if p, changed := changedOutside(src, out, res.Mask); changed {
					t.Errorf("pixel %v outside the mask changed", p)
				}
				if ch == 4 && !bytes.Equal(alphaPlane(src), alphaPlane(out)) {
					t.Error("alpha plane changed")
				}
				if !res.Mask.IsSet(5, 5) || res.Mask.IsSet(0, 0) {
					t.Error("mask does not match the white blocks")
				}
				if out.PixelAt(5, 5)[0] == 255 {
					t.Error("white block was not filled")
				}
			})
		}
	}
}

func TestRemove_MaskMonotonicity(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	src := randomBuffer(rng, 20, 20, 3)
	fillRect(src, image.Rect(2, 2, 5, 5), 250, 250, 250)
	fillRect(src, image.Rect(12, 12, 15, 15), 255, 0, 0)

	r := NewRemover(DefaultParams())
	base, err := r.Remove(src, NoUserMask())
	if err != nil {
		t.Fatal(err)
	}

	user := UserMaskFrom(grayLayer(20, 20, image.Rect(12, 12, 15, 15)))
	more, err := r.Remove(src, user)
	if err != nil {
		t.Fatal(err)
	}

	for i, v := range base.Mask.Pix {
		if v == MaskRemove && more.Mask.Pix[i] != MaskRemove {
			t.Fatalf("user mask removed pixel %d from the effective mask", i)
		}
	}
	if more.Mask.Count() != base.Mask.Count()+9 {
		t.Errorf("mask count: got %d, want %d", more.Mask.Count(), base.Mask.Count()+9)
	}

	altered := func(out *imaging.Buffer) int {
		n := 0
		for y := 0; y < 20; y++ {
			for x := 0; x < 20; x++ {
				if !bytes.Equal(src.PixelAt(x, y), out.PixelAt(x, y)) {
					n++
				}
			}
		}
		return n
	}
	if a, b := altered(base.Image), altered(more.Image); b < a {
		t.Errorf("altered pixels decreased from %d to %d", a, b)
	}
	if p, changed := changedOutside(src, more.Image, more.Mask); changed {
		t.Errorf("pixel %v outside the mask changed", p)
	}
}

// Mid-gray 10x10 with a 2x2 block at luminance 250.
func TestRemove_NearWhiteBlock(t *testing.T) {
	src := uniformBuffer(10, 10, 128, 128, 128)
	block := image.Rect(4, 4, 6, 6)
	fillRect(src, block, 250, 250, 250)

	p := DefaultParams()
	p.WhiteThreshold = 240
	res, err := Remove(src, NoUserMask(), p)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}

	want := MaskFromRects(10, 10, []image.Rectangle{block})
	if !bytes.Equal(want.Pix, res.Mask.Pix) {
		t.Errorf("mask: got %v", res.Mask.Pix)
	}

	identical := 0
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			same := bytes.Equal(src.PixelAt(x, y), res.Image.PixelAt(x, y))
			if image.Pt(x, y).In(block) {
				if same {
					t.Errorf("block pixel (%d,%d) not filled", x, y)
				}
				continue
			}
			if same {
				identical++
			}
		}
	}
	if identical != 96 {
		t.Errorf("identical pixels outside the block: got %d, want 96", identical)
	}
	if got := res.Image.PixelAt(4, 4); !bytes.Equal(got, []uint8{128, 128, 128}) {
		t.Errorf("fill from a uniform surround: got %v, want [128 128 128]", got)
	}
}

// Uniform color with a fully transparent 3x3 block. The background alpha is
// at or above the threshold so only the block is flagged.
func TestRemove_TransparentBlock(t *testing.T) {
	tests := []struct {
		name      string
		alpha     uint8
		threshold int
	}{
		{"default threshold", 250, 250},
		{"alpha 200", 200, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := uniformBuffer(10, 10, 40, 90, 160, tt.alpha)
			block := image.Rect(3, 3, 6, 6)
			fillRect(src, block, 0, 0, 0, 0)

			p := DefaultParams()
			p.AlphaThreshold = tt.threshold
			res, err := Remove(src, NoUserMask(), p)
			if err != nil {
				t.Fatalf("Remove: %v", err)
			}

			want := MaskFromRects(10, 10, []image.Rectangle{block})
			if !bytes.Equal(want.Pix, res.Mask.Pix) {
				t.Fatalf("mask: got %d pixels, want the 3x3 block", res.Mask.Count())
			}
			if !bytes.Equal(alphaPlane(src), alphaPlane(res.Image)) {
				t.Error("alpha plane changed")
			}
			if got := res.Image.PixelAt(4, 4); !bytes.Equal(got, []uint8{40, 90, 160, 0}) {
				t.Errorf("block center: got %v, want color filled and alpha kept at 0", got)
			}
		})
	}
}

func TestRemove_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  *imaging.Buffer
	}{
		{"nil", nil},
		{"zero size", &imaging.Buffer{}},
		{"zero width", imaging.NewBuffer(0, 5, 3)},
		{"bad channel count", imaging.NewBuffer(2, 2, 2)},
		{"short pixel data", &imaging.Buffer{Width: 2, Height: 2, Channels: 3, Pix: make([]uint8, 3)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Remove(tt.src, NoUserMask(), DefaultParams())
			if !errors.Is(err, ErrEmptyImage) {
				t.Errorf("got %v, want ErrEmptyImage", err)
			}
			if res != nil {
				t.Error("result must be nil on failure")
			}
		})
	}

	src := uniformBuffer(4, 4, 10, 10, 10)
	res, err := Remove(src, UserMaskFrom(grayLayer(3, 4)), DefaultParams())
	if !errors.Is(err, ErrMaskSize) || res != nil {
		t.Errorf("mismatched user mask: got %v, %v", res, err)
	}

	fillRect(src, image.Rect(0, 0, 1, 1), 255, 255, 255)
	res, err = NewRemover(DefaultParams(), WithFiller(failingFiller{})).Remove(src, NoUserMask())
	if !errors.Is(err, ErrFill) || res != nil {
		t.Errorf("failing filler: got %v, %v", res, err)
	}

	white := uniformBuffer(4, 4, 255, 255, 255)
	res, err = Remove(white, NoUserMask(), DefaultParams())
	if !errors.Is(err, ErrFill) || !errors.Is(err, inpaint.ErrNoKnownPixels) {
		t.Errorf("fully masked image: got %v", err)
	}
	if res != nil {
		t.Error("result must be nil on failure")
	}
}

func TestRemove_TextWatermark(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 90, 24))
	for y := 0; y < 24; y++ {
		for x := 0; x < 90; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(60 + x), uint8(80 + y), 100, 255})
		}
	}
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.White),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(8, 16),
	}
	d.DrawString("SAMPLE")

	src := imaging.FromImage(img)
	if src.Channels != 3 {
		t.Fatalf("opaque image should load as 3 channels, got %d", src.Channels)
	}

	p := DefaultParams()
	p.Dilate = true
	res, err := Remove(src, NoUserMask(), p)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}

	glyphs := 0
	for y := 0; y < 24; y++ {
		for x := 0; x < 90; x++ {
			px := src.PixelAt(x, y)
			if px[0] != 255 || px[1] != 255 || px[2] != 255 {
				continue
			}
			glyphs++
			if !res.Mask.IsSet(x, y) {
				t.Fatalf("glyph pixel (%d,%d) not masked", x, y)
			}
			if bytes.Equal(res.Image.PixelAt(x, y), px) {
				t.Errorf("glyph pixel (%d,%d) still white", x, y)
			}
		}
	}
	if glyphs == 0 {
		t.Fatal("no text was drawn")
	}
	if p, changed := changedOutside(src, res.Image, res.Mask); changed {
		t.Errorf("pixel %v outside the mask changed", p)
	}
}

func TestRemover_ConcurrentParams(t *testing.T) {
	src := uniformBuffer(16, 16, 100, 100, 100)
	fillRect(src, image.Rect(2, 2, 6, 6), 245, 245, 245)
	fillRect(src, image.Rect(10, 10, 12, 12), 235, 235, 235)

	thresholds := []int{230, 240, 250}
	want := make(map[int]int)
	for _, th := range thresholds {
		p := DefaultParams()
		p.WhiteThreshold = th
		m, err := NewRemover(p).Mask(src, NoUserMask())
		if err != nil {
			t.Fatal(err)
		}
		want[th] = m.Count()
	}
	if want[230] != 20 || want[240] != 16 || want[250] != 0 {
		t.Fatalf("serial counts: %v", want)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 30)
	for i := 0; i < 30; i++ {
		th := thresholds[i%len(thresholds)]
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := DefaultParams()
			p.WhiteThreshold = th
			res, err := Remove(src, NoUserMask(), p)
			if err != nil {
				errs <- err
				return
			}
			if res.Mask.Count() != want[th] {
				errs <- fmt.Errorf("threshold %d: got %d masked, want %d", th, res.Mask.Count(), want[th])
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestRemover_Params(t *testing.T) {
	r := NewRemover(Params{InpaintRadius: 0, WhiteThreshold: 999})
	p := r.Params()
	if p.InpaintRadius != 1 || p.WhiteThreshold != 255 {
		t.Errorf("Params should be normalized, got %+v", p)
	}
}

func TestRemove_HugeRadius(t *testing.T) {
	src := uniformBuffer(10, 10, 90, 90, 90)
	fillRect(src, image.Rect(4, 4, 6, 6), 255, 255, 255)

	p := DefaultParams()
	p.InpaintRadius = 1 << 30
	res, err := Remove(src, NoUserMask(), p)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if res.Mask.Count() != 4 {
		t.Errorf("masked: got %d, want 4", res.Mask.Count())
	}
	if got := res.Image.PixelAt(4, 4); !bytes.Equal(got, []uint8{90, 90, 90}) {
		t.Errorf("filled pixel: got %v", got)
	}

	// The dilation margin is bounded too; here it grows over the whole image.
	p.Dilate = true
	if _, err := Remove(src, NoUserMask(), p); !errors.Is(err, inpaint.ErrNoKnownPixels) {
		t.Errorf("dilated: got %v, want ErrNoKnownPixels", err)
	}
}

func TestRemove_MaskHoldsOnlyMaskValues(t *testing.T) {
	src := uniformBuffer(8, 8, 90, 90, 90)
	fillRect(src, image.Rect(2, 2, 5, 4), 250, 250, 250)

	res, err := Remove(src, UserMaskFrom(grayLayer(8, 8, image.Rect(6, 6, 8, 8))), DefaultParams())
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	for i, v := range res.Mask.Pix {
		if v != MaskKeep && v != MaskRemove {
			t.Fatalf("mask value %d at %d", v, i)
		}
	}
	if got := res.Mask.Count(); got != 6+4 {
		t.Errorf("masked: got %d, want 10", got)
	}
}
