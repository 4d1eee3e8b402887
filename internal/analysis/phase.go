package analysis

import (
	"strings"

	"github.com/san-kum/springsim/internal/dynamo"
)

type Point struct{ X, Y float64 }

// PhasePortrait is the (position, velocity) trajectory of one axis.
type PhasePortrait struct {
	Axis   int
	Points []Point
}

// NewPhasePortrait extracts one axis from states laid out as [x..., v...].
func NewPhasePortrait(states []dynamo.State, axis int) *PhasePortrait {
	portrait := &PhasePortrait{Axis: axis, Points: make([]Point, 0, len(states))}
	for _, x := range states {
		half := len(x) / 2
		if axis < 0 || axis >= half {
			return nil
		}
		portrait.Points = append(portrait.Points, Point{X: x[axis], Y: x[half+axis]})
	}
	return portrait
}

// Axis extracts the position series of one axis.
func Axis(states []dynamo.State, axis int) []float64 {
	out := make([]float64, 0, len(states))
	for _, x := range states {
		if axis >= len(x)/2 {
			return nil
		}
		out = append(out, x[axis])
	}
	return out
}

// ToASCII draws the portrait on a width x height character grid with the
// axes through the origin when visible.
func (p *PhasePortrait) ToASCII(width, height int) string {
	if p == nil || len(p.Points) == 0 || width < 2 || height < 2 {
		return ""
	}

	minX, maxX := p.Points[0].X, p.Points[0].X
	minY, maxY := p.Points[0].Y, p.Points[0].Y
	for _, pt := range p.Points {
		minX, maxX = min(minX, pt.X), max(maxX, pt.X)
		minY, maxY = min(minY, pt.Y), max(maxY, pt.Y)
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
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", width))
	}

	for _, pt := range p.Points {
		col := int((pt.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((pt.Y-minY)/rangeY*float64(height-1))
		if row >= 0 && row < height && col >= 0 && col < width {
			grid[row][col] = '•'
		}
	}

	if minX <= 0 && maxX >= 0 {
		col := int(-minX / rangeX * float64(width-1))
		for row := 0; row < height; row++ {
			if grid[row][col] == ' ' {
				grid[row][col] = '│'
			}
		}
	}
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int(-minY/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			if grid[row][col] == ' ' {
				grid[row][col] = '─'
			}
		}
	}

	var sb strings.Builder
	for _, row := range grid {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
