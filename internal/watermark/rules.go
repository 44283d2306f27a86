package watermark

import "github.com/ironsheep/watermark-remover/internal/imaging"

// PixelRule reports whether a pixel belongs to a watermark. px holds the
// pixel's channel values: gray, RGB or RGBA.
type PixelRule func(px []uint8) bool

// AlphaBelow flags pixels whose alpha is strictly below threshold. Pixels
// without an alpha channel are never flagged.
func AlphaBelow(threshold int) PixelRule {
	return func(px []uint8) bool {
		return len(px) == 4 && int(px[3]) < threshold
	}
}

// NearWhite flags pixels whose color value, measured by metric, is at or
// above threshold. Alpha is ignored.
func NearWhite(threshold int, metric WhiteMetric) PixelRule {
	measure := measureFor(metric)
	return func(px []uint8) bool {
		if len(px) < 3 {
			return int(px[0]) >= threshold
		}
		return int(measure(px[0], px[1], px[2])) >= threshold
	}
}

// AnyOf flags a pixel when at least one rule does.
func AnyOf(rules ...PixelRule) PixelRule {
	return func(px []uint8) bool {
		for _, r := range rules {
			if r(px) {
				return true
			}
		}
		return false
	}
}

// DetectionRule composes the heuristics that apply to an image with the
// given channel count.
func DetectionRule(p Params, channels int) PixelRule {
	rules := []PixelRule{NearWhite(p.WhiteThreshold, p.WhiteMetric)}
	if channels == 4 {
		rules = append(rules, AlphaBelow(p.AlphaThreshold))
	}
	return AnyOf(rules...)
}

func measureFor(metric WhiteMetric) func(r, g, b uint8) uint8 {
	switch metric {
	case MetricMin:
		return imaging.MinChannel
	case MetricLightness:
		return imaging.Lightness
	default:
		return imaging.Luma
	}
}
