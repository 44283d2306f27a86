// Package inpaint synthesizes pixel values inside a masked region from the
// surrounding unmasked content.
//
// Strategies implement Filler and are selected by name with New:
//
//   - "telea": fast marching from the mask boundary inward (default)
//   - "diffusion": radius-bounded membrane relaxation, parallel per sweep
//   - "opencv": cv::inpaint via gocv, only when built with -tags gocv
//
// Every strategy operates on 1- or 3-channel buffers only; callers split
// off alpha first. Unmasked pixels are always returned unchanged.
package inpaint
