// Package imaging provides the pixel buffer and file plumbing used around
// watermark removal.
//
// Buffer is the decoded form every other package works on: width, height,
// 1, 3 or 4 interleaved 8-bit channels, alpha stored unpremultiplied.
// FromImage and Buffer.Image convert to and from the standard library's
// image types; ImageCache, Open, Save and Encode move images between files,
// streams and memory.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//
// # Channel Detection
//
// FromImage keeps the channel layout of the decoded file: gray models give
// one channel, models with a non-opaque alpha channel give four, and every
// other model gives three. Fully opaque RGBA images are treated as color
// images so that the alpha rule never applies to them.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Buffers are plain values;
// callers synchronize access to a buffer they share.
package imaging
