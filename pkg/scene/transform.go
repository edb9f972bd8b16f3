package scene

// Vec3 is a position in world space.
type Vec3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Quat is a rotation quaternion.
type Quat struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
	W float64 `json:"w" yaml:"w"`
}

// Identity is the no-rotation quaternion.
var Identity = Quat{X: 0, Y: 0, Z: 0, W: 1}

// IsZero reports whether every component is zero, which is not a valid rotation.
func (q Quat) IsZero() bool {
	return q == Quat{}
}

// Normalized returns Identity for the zero quaternion and q otherwise.
func (q Quat) Normalized() Quat {
	if q.IsZero() {
		return Identity
	}
	return q
}

// Transform places an object in world space.
type Transform struct {
	Position Vec3 `json:"position" yaml:"position"`
	Rotation Quat `json:"rotation" yaml:"rotation"`
}

// Origin is the transform at the world origin with identity rotation.
func Origin() Transform {
	return Transform{Position: Vec3{}, Rotation: Identity}
}

// At returns a transform at pos with identity rotation.
func At(pos Vec3) Transform {
	return Transform{Position: pos, Rotation: Identity}
}

// Normalized returns t with a zero rotation replaced by Identity.
func (t Transform) Normalized() Transform {
	t.Rotation = t.Rotation.Normalized()
	return t
}
