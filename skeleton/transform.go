package skeleton

import "github.com/go-gl/mathgl/mgl64"

// Transform is a rigid transform: rotation followed by translation.
type Transform struct {
	Translation mgl64.Vec3
	Rotation    mgl64.Quat
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{Rotation: mgl64.QuatIdent()}
}

// NewTransform builds a transform from a translation and Euler XYZ angles in degrees.
func NewTransform(t mgl64.Vec3, eulerDeg mgl64.Vec3) Transform {
	q := mgl64.AnglesToQuat(
		mgl64.DegToRad(eulerDeg[0]),
		mgl64.DegToRad(eulerDeg[1]),
		mgl64.DegToRad(eulerDeg[2]),
		mgl64.XYZ,
	)
	return Transform{Translation: t, Rotation: q.Normalize()}
}

// Translate returns a pure translation.
func Translate(t mgl64.Vec3) Transform {
	return Transform{Translation: t, Rotation: mgl64.QuatIdent()}
}

// Mul returns t ∘ local: local is expressed in t's space.
func (t Transform) Mul(local Transform) Transform {
	return Transform{
		Translation: t.Translation.Add(t.rot().Rotate(local.Translation)),
		Rotation:    t.rot().Mul(local.rot()).Normalize(),
	}
}

// Inverse returns the transform that undoes t.
func (t Transform) Inverse() Transform {
	inv := t.rot().Inverse()
	return Transform{
		Translation: inv.Rotate(t.Translation.Mul(-1)),
		Rotation:    inv,
	}
}

// Apply transforms a point.
func (t Transform) Apply(p mgl64.Vec3) mgl64.Vec3 {
	return t.rot().Rotate(p).Add(t.Translation)
}

// Rotate transforms a direction (no translation).
func (t Transform) Rotate(v mgl64.Vec3) mgl64.Vec3 {
	return t.rot().Rotate(v)
}

// ApproxEqual compares translation and orientation within eps.
// q and -q describe the same orientation.
func (t Transform) ApproxEqual(o Transform, eps float64) bool {
	if !t.Translation.ApproxEqualThreshold(o.Translation, eps) {
		return false
	}
	a, b := t.rot(), o.rot()
	if a.ApproxEqualThreshold(b, eps) {
		return true
	}
	return a.ApproxEqualThreshold(b.Scale(-1), eps)
}

// rot treats the zero quaternion as identity so zero-value Transforms are usable.
func (t Transform) rot() mgl64.Quat {
	if t.Rotation.W == 0 && t.Rotation.V == (mgl64.Vec3{}) {
		return mgl64.QuatIdent()
	}
	return t.Rotation
}
