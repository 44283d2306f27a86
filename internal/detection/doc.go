// Package detection labels connected regions of a binary mask.
//
// Watermarks usually show up as a handful of compact blobs (a logo, a line
// of glyphs) while false positives from the near-white rule in photographs
// tend to be scattered specks. FindRegions groups marked pixels with
// 8-connectivity and reports each group's bounding box, area and centroid,
// which callers use both for reporting and for dropping specks below a
// minimum area.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//   - Bounding boxes use inclusive top-left and exclusive bottom-right
package detection
