package domain

// Position is the top-left corner of a node on the canvas
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// CenteredAt converts a layout centre point into a top-left position for a box of the given size
func CenteredAt(cx, cy, width, height float64) Position {
	return Position{
		X: cx - width/2,
		Y: cy - height/2,
	}
}
