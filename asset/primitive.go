// Package asset holds the physics-asset data model: bodies bound to bones,
// their collision primitives, and the constraints joining them.
package asset

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/pthm-cable/ragdoll/skeleton"
)

// Kind identifies the shape of a collision primitive.
type Kind uint8

const (
	KindSphere Kind = iota
	KindCapsule
	KindBox
	KindConvex
)

var kindNames = [...]string{"sphere", "capsule", "box", "convex"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// ParseKind converts a name like "capsule" to a Kind.
func ParseKind(s string) (Kind, error) {
	for i, n := range kindNames {
		if n == s {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown primitive kind %q", s)
}

// ErrInvalidPrimitive is returned by Primitive.Validate.
var ErrInvalidPrimitive = errors.New("invalid collision primitive")

// Primitive is a collision shape placed relative to its owning body.
// Only the fields of its Kind are meaningful:
//
//	sphere:  Radius
//	capsule: Radius, Length (segment along local +Z, caps excluded)
//	box:     HalfExtents
//	convex:  Vertices
type Primitive struct {
	Kind        Kind
	Local       skeleton.Transform
	Radius      float64
	Length      float64
	HalfExtents mgl64.Vec3
	Vertices    []mgl64.Vec3
}

// NewSphere creates a sphere primitive.
func NewSphere(local skeleton.Transform, radius float64) Primitive {
	return Primitive{Kind: KindSphere, Local: local, Radius: radius}
}

// NewCapsule creates a capsule primitive.
func NewCapsule(local skeleton.Transform, radius, length float64) Primitive {
	return Primitive{Kind: KindCapsule, Local: local, Radius: radius, Length: length}
}

// NewBox creates a box primitive.
func NewBox(local skeleton.Transform, halfExtents mgl64.Vec3) Primitive {
	return Primitive{Kind: KindBox, Local: local, HalfExtents: halfExtents}
}

// NewConvex creates a convex hull primitive. The vertex slice is copied.
func NewConvex(local skeleton.Transform, verts []mgl64.Vec3) Primitive {
	return Primitive{Kind: KindConvex, Local: local, Vertices: append([]mgl64.Vec3(nil), verts...)}
}

// Clone returns a deep copy.
func (p Primitive) Clone() Primitive {
	if p.Vertices != nil {
		p.Vertices = append([]mgl64.Vec3(nil), p.Vertices...)
	}
	return p
}

// Volume returns the enclosed volume. Convex volume uses the bounding box
// of its vertices, which is an upper bound.
func (p Primitive) Volume() float64 {
	switch p.Kind {
	case KindSphere:
		return 4.0 / 3.0 * math.Pi * p.Radius * p.Radius * p.Radius
	case KindCapsule:
		r := p.Radius
		return math.Pi*r*r*p.Length + 4.0/3.0*math.Pi*r*r*r
	case KindBox:
		h := p.HalfExtents
		return 8 * h[0] * h[1] * h[2]
	case KindConvex:
		if len(p.Vertices) == 0 {
			return 0
		}
		lo, hi := p.Vertices[0], p.Vertices[0]
		for _, v := range p.Vertices[1:] {
			for i := 0; i < 3; i++ {
				lo[i] = math.Min(lo[i], v[i])
				hi[i] = math.Max(hi[i], v[i])
			}
		}
		d := hi.Sub(lo)
		return d[0] * d[1] * d[2]
	}
	return 0
}

// Validate checks that shape parameters are finite and non-degenerate.
func (p Primitive) Validate() error {
	bad := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s: %s", ErrInvalidPrimitive, p.Kind, fmt.Sprintf(format, args...))
	}
	if !finiteVec(p.Local.Translation) {
		return bad("non-finite placement")
	}
	switch p.Kind {
	case KindSphere:
		if !(p.Radius > 0) || math.IsInf(p.Radius, 0) {
			return bad("radius %v must be positive", p.Radius)
		}
	case KindCapsule:
		if !(p.Radius > 0) || math.IsInf(p.Radius, 0) {
			return bad("radius %v must be positive", p.Radius)
		}
		if !(p.Length >= 0) || math.IsInf(p.Length, 0) {
			return bad("length %v must be >= 0", p.Length)
		}
	case KindBox:
		for i, h := range p.HalfExtents {
			if !(h > 0) || math.IsInf(h, 0) {
				return bad("half extent %d = %v must be positive", i, h)
			}
		}
	case KindConvex:
		if len(p.Vertices) < 4 {
			return bad("needs at least 4 vertices, got %d", len(p.Vertices))
		}
		for _, v := range p.Vertices {
			if !finiteVec(v) {
				return bad("non-finite vertex")
			}
		}
	default:
		return bad("unknown kind")
	}
	return nil
}

func finiteVec(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
