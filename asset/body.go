package asset

import "fmt"

// BodyID identifies a body within one PhysicsAsset.
type BodyID uint32

func (id BodyID) String() string { return fmt.Sprintf("body:%d", uint32(id)) }

// Properties holds per-body physical settings.
type Properties struct {
	MassOverride   float64 // 0 = derive from volume and density
	LinearDamping  float64
	AngularDamping float64
	CollisionGroup uint32
}

// Body is a rigid body bound to one bone by name.
type Body struct {
	ID         BodyID
	Bone       string
	Primitives []Primitive
	Props      Properties
}

// Complete reports whether the body owns at least one primitive.
func (b *Body) Complete() bool { return len(b.Primitives) > 0 }

// Volume sums the volume of all primitives.
func (b *Body) Volume() float64 {
	var v float64
	for _, p := range b.Primitives {
		v += p.Volume()
	}
	return v
}

// Mass returns MassOverride when set, else volume * density.
func (b *Body) Mass(density float64) float64 {
	if b.Props.MassOverride > 0 {
		return b.Props.MassOverride
	}
	return b.Volume() * density
}

// Clone returns a deep copy.
func (b *Body) Clone() *Body {
	c := *b
	c.Primitives = make([]Primitive, len(b.Primitives))
	for i, p := range b.Primitives {
		c.Primitives[i] = p.Clone()
	}
	return &c
}
