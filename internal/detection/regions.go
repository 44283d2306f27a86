package detection

import (
	"image"
	"sort"
)

// Bounds represents a rectangular bounding box in pixel coordinates.
//
// (X1, Y1) is the top-left corner (inclusive) and (X2, Y2) the bottom-right
// corner (exclusive).
type Bounds struct {
	X1 int `json:"x1"` // Left edge (inclusive)
	Y1 int `json:"y1"` // Top edge (inclusive)
	X2 int `json:"x2"` // Right edge (exclusive)
	Y2 int `json:"y2"` // Bottom edge (exclusive)
}

// Rect converts the bounds to an image.Rectangle.
func (b Bounds) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

// Point represents a 2D coordinate in pixel space.
type Point struct {
	X int `json:"x"` // Horizontal position (0 = leftmost)
	Y int `json:"y"` // Vertical position (0 = topmost)
}

// Region is one 8-connected group of marked mask pixels.
type Region struct {
	// Bounds is the bounding box enclosing the region.
	Bounds Bounds `json:"bounds"`

	// Area is the number of marked pixels in the region.
	Area int `json:"area"`

	// Centroid is the mean position of the region's pixels, truncated.
	Centroid Point `json:"centroid"`

	// Pixels lists every member pixel. Not serialized.
	Pixels []Point `json:"-"`
}

// RegionsResult contains the regions found in a mask.
type RegionsResult struct {
	// Regions is sorted by area, largest first.
	Regions []Region `json:"regions"`

	// Count is the number of regions returned.
	Count int `json:"count"`

	// TotalArea is the number of marked pixels across returned regions.
	TotalArea int `json:"total_area"`
}

// FindRegions labels the connected regions of a binary mask.
//
// Parameters:
//   - mask: Gray image where any non-zero value is a marked pixel.
//   - minArea: Regions with fewer pixels are dropped. Zero keeps all.
//
// # Algorithm
//
//  1. Scan the mask row by row for unvisited marked pixels
//  2. Flood-fill each one with an explicit stack using 8-connectivity
//  3. Accumulate bounds, area and centroid per region
//  4. Drop regions below minArea and sort the rest by area
//
// Ties in area keep scan order (top-most, then left-most first).
func FindRegions(mask *image.Gray, minArea int) *RegionsResult {
	b := mask.Bounds()
	width, height := b.Dx(), b.Dy()

	marked := func(x, y int) bool {
		return mask.Pix[y*mask.Stride+x] != 0
	}

	visited := make([]bool, width*height)
	regions := make([]Region, 0)
	total := 0

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if visited[y*width+x] || !marked(x, y) {
				continue
			}
			pixels := floodFill(marked, visited, x, y, width, height)
			if len(pixels) < minArea {
				continue
			}
			regions = append(regions, summarize(pixels, b.Min))
			total += len(pixels)
		}
	}

	sort.SliceStable(regions, func(i, j int) bool {
		return regions[i].Area > regions[j].Area
	})

	return &RegionsResult{
		Regions:   regions,
		Count:     len(regions),
		TotalArea: total,
	}
}

// floodFill collects the 8-connected component containing (startX, startY).
//
// Uses a stack-based approach (not recursive) to avoid stack overflow on
// large watermarks.
func floodFill(marked func(x, y int) bool, visited []bool, startX, startY, width, height int) []Point {
	stack := []Point{{X: startX, Y: startY}}
	pixels := make([]Point, 0)

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < 0 || p.X >= width || p.Y < 0 || p.Y >= height {
			continue
		}
		i := p.Y*width + p.X
		if visited[i] || !marked(p.X, p.Y) {
			continue
		}

		visited[i] = true
		pixels = append(pixels, p)

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				stack = append(stack, Point{X: p.X + dx, Y: p.Y + dy})
			}
		}
	}

	return pixels
}

// summarize computes bounds and centroid, then shifts everything by origin
// so regions are reported in the mask's coordinate space.
func summarize(pixels []Point, origin image.Point) Region {
	minX, minY := pixels[0].X, pixels[0].Y
	maxX, maxY := minX, minY
	var sumX, sumY int

	for _, p := range pixels {
		minX = min(minX, p.X)
		maxX = max(maxX, p.X)
		minY = min(minY, p.Y)
		maxY = max(maxY, p.Y)
		sumX += p.X
		sumY += p.Y
	}
	for i := range pixels {
		pixels[i].X += origin.X
		pixels[i].Y += origin.Y
	}

	n := len(pixels)
	return Region{
		Bounds: Bounds{
			X1: minX + origin.X,
			Y1: minY + origin.Y,
			X2: maxX + origin.X + 1,
			Y2: maxY + origin.Y + 1,
		},
		Area:     n,
		Centroid: Point{X: sumX/n + origin.X, Y: sumY/n + origin.Y},
		Pixels:   pixels,
	}
}
