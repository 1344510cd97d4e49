package engine

import (
	"fmt"
	"math"
	"strings"
)

// ManhattanDistance calculates the Manhattan distance between two positions
func ManhattanDistance(from, to GridPos) int {
	dx := from.X - to.X
	if dx < 0 {
		dx = -dx
	}
	dy := from.Y - to.Y
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

// Clamp bounds v to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// ParseFacilityType maps a user-supplied name onto a facility type
func ParseFacilityType(name string) (FacilityType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "food", "food_stall", "stall":
		return Food, nil
	case "carousel":
		return Carousel, nil
	case "ferris", "ferris_wheel", "ferriswheel", "wheel":
		return FerrisWheel, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFacilityType, name)
}

// FacilityGlyph is the single-character map symbol for a facility type
func FacilityGlyph(t FacilityType) byte {
	switch t {
	case Food:
		return 'F'
	case Carousel:
		return 'C'
	case FerrisWheel:
		return 'W'
	}
	return '#'
}

// RenderGrid draws the park as rows of characters:
// '.' empty, 'E' entrance, 'X' exit, facility glyphs and 'o' for walking visitors.
func RenderGrid(s *ParkSnapshot) []string {
	rows := make([][]byte, s.Height)
	for y := range rows {
		rows[y] = []byte(strings.Repeat(".", s.Width))
	}
	set := func(x, y int, c byte) {
		if y >= 0 && y < s.Height && x >= 0 && x < s.Width {
			rows[y][x] = c
		}
	}
	for _, f := range s.Facilities {
		for dy := 0; dy < f.Height; dy++ {
			for dx := 0; dx < f.Width; dx++ {
				set(f.X+dx, f.Y+dy, FacilityGlyph(f.Type))
			}
		}
	}
	set(s.Entrance.X, s.Entrance.Y, 'E')
	set(s.Exit.X, s.Exit.Y, 'X')
	for _, v := range s.Visitors {
		if v.State == Playing {
			continue
		}
		set(v.Cell.X, v.Cell.Y, 'o')
	}

	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = string(r)
	}
	return out
}
