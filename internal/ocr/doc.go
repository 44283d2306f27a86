// Package ocr turns text found by Tesseract into a removal hint.
//
// Many watermarks are words ("SAMPLE", a site name, a copyright line).
// When their color is not near-white the pixel rules miss them; TextMask
// locates words with gosseract and rasterizes their padded bounding boxes
// into a gray image that the watermark package accepts as a user mask
// layer. Like any user layer it can only add to the mask.
//
// # Requirements
//
// Tesseract and its language data must be installed on the host
// (libtesseract, plus e.g. eng.traineddata under TESSDATA_PREFIX).
package ocr
