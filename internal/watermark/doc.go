// Package watermark locates near-white and semi-transparent overlays in a
// decoded image and replaces them with content synthesized from their
// surroundings.
//
// # Pipeline
//
// A removal runs two stages strictly in sequence:
//
//  1. Mask building: two independent per-pixel rules flag candidates. The
//     alpha rule flags pixels whose alpha is below AlphaThreshold (4-channel
//     images only); the near-white rule flags pixels whose luminance (or the
//     configured WhiteMetric) is at or above WhiteThreshold. Their OR forms
//     the computed mask, which is then OR-ed with any user-supplied layers
//     and optionally dilated.
//
//  2. Region filling: the color planes are handed to an inpaint.Filler
//     together with the mask. Alpha is split off beforehand and recomposed
//     unchanged afterwards.
//
// # Guarantees
//
//   - Output dimensions and channel count equal the source's.
//   - Pixels outside the effective mask are byte-identical to the source.
//   - The alpha plane of a 4-channel source is copied unchanged.
//   - User layers can only add pixels to the mask, never remove them.
//
// # Parameters
//
// Params travels by value into every call; there is no package-level
// mutable state, so concurrent removals with different parameters are
// independent.
package watermark
