package skeleton

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Hint carries optional geometry for one bone, in that bone's local space.
// Points take precedence over Extent; an empty hint means "use bone length".
type Hint struct {
	Center mgl64.Vec3
	Extent mgl64.Vec3 // full box size
	Points []mgl64.Vec3
}

// Empty reports whether the hint carries no geometry.
func (h Hint) Empty() bool {
	return len(h.Points) == 0 && h.Extent == (mgl64.Vec3{})
}

// Hints maps bone names to geometry hints.
type Hints map[string]Hint

// WeightMode selects which skin influences contribute a vertex to a bone.
type WeightMode uint8

const (
	// WeightDominant assigns each vertex only to its strongest influence.
	WeightDominant WeightMode = iota
	// WeightAny assigns a vertex to every influence at or above the threshold.
	WeightAny
)

// ParseWeightMode converts a config string to a WeightMode.
func ParseWeightMode(s string) (WeightMode, error) {
	switch s {
	case "dominant", "":
		return WeightDominant, nil
	case "any":
		return WeightAny, nil
	}
	return 0, fmt.Errorf("unknown weight mode %q", s)
}

// Influence is one bone weight of a skinned vertex.
type Influence struct {
	Bone   string
	Weight float64
}

// SkinnedVertex is a bind-pose vertex in model space.
type SkinnedVertex struct {
	Position   mgl64.Vec3
	Influences []Influence
}

// HintsFromSkin builds per-bone point clouds from skinned vertices.
// Each contributing vertex is moved into the bone's local frame.
func HintsFromSkin(s *Skeleton, verts []SkinnedVertex, mode WeightMode, threshold float64) (Hints, error) {
	hints := make(Hints)
	if s.Len() == 0 || len(verts) == 0 {
		return hints, nil
	}

	worlds := s.WorldTransforms()
	inverse := make([]Transform, len(worlds))
	for i, w := range worlds {
		inverse[i] = w.Inverse()
	}

	add := func(bone int, p mgl64.Vec3) {
		name := s.bones[bone].Name
		h := hints[name]
		h.Points = append(h.Points, inverse[bone].Apply(p))
		hints[name] = h
	}

	for vi, v := range verts {
		best, bestWeight := -1, 0.0
		for _, inf := range v.Influences {
			bone, ok := s.Lookup(inf.Bone)
			if !ok {
				return nil, fmt.Errorf("vertex %d: influence on unknown bone %q", vi, inf.Bone)
			}
			if inf.Weight <= 0 {
				continue
			}
			if mode == WeightAny && inf.Weight >= threshold {
				add(bone, v.Position)
			}
			if inf.Weight > bestWeight {
				best, bestWeight = bone, inf.Weight
			}
		}
		if mode == WeightDominant && best >= 0 {
			add(best, v.Position)
		}
	}
	return hints, nil
}
