package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/san-kum/springsim/internal/analysis"
	"github.com/san-kum/springsim/internal/dynamo"
)

// Trajectory picks the curve worth drawing for a run: x0 against x1 for
// multi-axis runs, x0 against time otherwise.
func Trajectory(times []float64, states []dynamo.State) []analysis.Point {
	x0 := analysis.Axis(states, 0)
	points := make([]analysis.Point, len(x0))
	if len(states) > 0 && len(states[0]) >= 4 {
		x1 := analysis.Axis(states, 1)
		for i := range points {
			points[i] = analysis.Point{X: x0[i], Y: x1[i]}
		}
		return points
	}
	for i := range points {
		points[i] = analysis.Point{X: times[i], Y: x0[i]}
	}
	return points
}

// WriteSVG draws points as a single polyline scaled to width by height with
// ten percent padding on each side.
func WriteSVG(w io.Writer, points []analysis.Point, width, height int, strokeColor string) error {
	if len(points) < 2 {
		return fmt.Errorf("need at least 2 points, got %d", len(points))
	}

	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points {
		minX = min(minX, p.X)
		maxX = max(maxX, p.X)
		minY = min(minY, p.Y)
		maxY = max(maxY, p.Y)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	minY -= rangeY * 0.1
	rangeX *= 1.2
	rangeY *= 1.2

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, strokeColor)

	for i, p := range points {
		x := (p.X - minX) / rangeX * float64(width)
		y := float64(height) - (p.Y-minY)/rangeY*float64(height)
		if i == 0 {
			fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
		}
	}
	sb.WriteString("\"/>\n</svg>\n")

	_, err := io.WriteString(w, sb.String())
	return err
}
