// Package server implements the MCP (Model Context Protocol) front end of
// wmremove.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0, one request per
// line. Supported methods are initialize, tools/list, tools/call and ping.
// Unparseable lines get a -32700 error; unknown methods get -32601.
//
// # Tools
//
//   - image_load: dimensions, format and channel count of an image
//   - image_sample_color: color at a pixel with the luma, min-channel and
//     lightness values the near-white rule compares against
//   - watermark_detect: the removal mask's size, coverage and connected
//     regions, without touching the image
//   - watermark_remove: fill the mask and write the result (and optionally
//     the mask) to disk
//
// The watermark tools accept optional parameter overrides; anything omitted
// falls back to the config.Config the server was created with.
//
// # Image Caching
//
// Decoded images are cached by path for the lifetime of the process, so
// detecting and then removing on the same file decodes it once. Files the
// server writes are evicted from the cache.
//
// # Error Handling
//
// Tool failures are returned as JSON-RPC errors with code -32000 and the Go
// error string as data. Diagnostics are logged with zerolog to the logger
// passed to New; stdout carries only protocol traffic.
package server
