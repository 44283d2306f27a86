package watermark

import "strings"

// Default parameter values.
const (
	DefaultInpaintRadius  = 3
	DefaultAlphaThreshold = 250
	DefaultWhiteThreshold = 240
)

// WhiteMetric selects how the near-white rule measures a pixel.
type WhiteMetric string

const (
	// MetricLuma compares BT.601 luminance.
	MetricLuma WhiteMetric = "luma"
	// MetricMin compares the smallest color component, which ignores tint.
	MetricMin WhiteMetric = "min"
	// MetricLightness compares CIE L* scaled to 0-255.
	MetricLightness WhiteMetric = "lightness"
)

// ParseWhiteMetric maps a name to a WhiteMetric. Unknown names report false.
func ParseWhiteMetric(s string) (WhiteMetric, bool) {
	switch m := WhiteMetric(strings.ToLower(strings.TrimSpace(s))); m {
	case MetricLuma, MetricMin, MetricLightness:
		return m, true
	}
	return "", false
}

// Params configures a single removal. It is passed by value and never
// mutated by the builder or filler, so concurrent calls with different
// parameters do not interfere.
type Params struct {
	// InpaintRadius bounds the neighborhood the filler reads per step. Must be >= 1.
	InpaintRadius int `yaml:"inpaint_radius" json:"inpaint_radius"`

	// AlphaThreshold flags pixels whose alpha is strictly below it (4-channel sources only).
	AlphaThreshold int `yaml:"alpha_threshold" json:"alpha_threshold"`

	// WhiteThreshold flags pixels whose WhiteMetric value is at or above it.
	WhiteThreshold int `yaml:"white_threshold" json:"white_threshold"`

	// WhiteMetric selects the measure used by the near-white rule.
	WhiteMetric WhiteMetric `yaml:"white_metric" json:"white_metric"`

	// Dilate grows the effective mask by (InpaintRadius+1)/2 pixels.
	Dilate bool `yaml:"dilate" json:"dilate"`

	// ResizeUserMask resizes a user mask of different size with
	// nearest-neighbor sampling instead of failing with ErrMaskSize.
	ResizeUserMask bool `yaml:"resize_user_mask" json:"resize_user_mask"`

	// MinRegionArea drops connected regions of the computed mask smaller
	// than this many pixels. Zero keeps everything.
	MinRegionArea int `yaml:"min_region_area" json:"min_region_area"`
}

// DefaultParams returns the process-wide defaults.
func DefaultParams() Params {
	return Params{
		InpaintRadius:  DefaultInpaintRadius,
		AlphaThreshold: DefaultAlphaThreshold,
		WhiteThreshold: DefaultWhiteThreshold,
		WhiteMetric:    MetricLuma,
	}
}

// Normalize returns a copy with every field clamped into its valid range.
func (p Params) Normalize() Params {
	if p.InpaintRadius < 1 {
		p.InpaintRadius = 1
	}
	p.AlphaThreshold = clampByte(p.AlphaThreshold)
	p.WhiteThreshold = clampByte(p.WhiteThreshold)
	if m, ok := ParseWhiteMetric(string(p.WhiteMetric)); ok {
		p.WhiteMetric = m
	} else {
		p.WhiteMetric = MetricLuma
	}
	if p.MinRegionArea < 0 {
		p.MinRegionArea = 0
	}
	return p
}

// DilateMargin is the number of pixels the mask grows by when Dilate is set.
func (p Params) DilateMargin() int {
	m := (p.InpaintRadius + 1) / 2
	if m < 1 {
		m = 1
	}
	return m
}

func clampByte(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
