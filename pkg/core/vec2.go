package core

// Vec2 represents a 2D vector, used for screen-space and lens sample pairs.
type Vec2 struct {
	X, Y float64
}

// NewVec2 creates a new Vec2.
func NewVec2(x, y float64) Vec2 {
	return Vec2{X: x, Y: y}
}
