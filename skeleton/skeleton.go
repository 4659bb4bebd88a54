// Package skeleton provides the read-only bone hierarchy that physics assets bind to.
package skeleton

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// NoParent marks a root bone.
const NoParent = -1

// Bone is one node of the hierarchy. Parent is an index into the owning Skeleton.
type Bone struct {
	Name   string
	Parent int
	Local  Transform // bind pose relative to the parent
}

// Skeleton is an immutable bone list with a name index.
// Construction never fails; call Validate before trusting parent indices.
type Skeleton struct {
	name     string
	bones    []Bone
	byName   map[string]int
	children [][]int
}

// StructuralError reports bones that make the hierarchy unusable.
type StructuralError struct {
	Reason string
	Bones  []string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("skeleton: %s: %s", e.Reason, strings.Join(e.Bones, ", "))
}

// New builds a skeleton from bones. The slice is copied.
func New(name string, bones []Bone) *Skeleton {
	s := &Skeleton{
		name:     name,
		bones:    append([]Bone(nil), bones...),
		byName:   make(map[string]int, len(bones)),
		children: make([][]int, len(bones)),
	}
	for i, b := range s.bones {
		if _, dup := s.byName[b.Name]; !dup {
			s.byName[b.Name] = i
		}
		if b.Parent >= 0 && b.Parent < len(bones) && b.Parent != i {
			s.children[b.Parent] = append(s.children[b.Parent], i)
		}
	}
	return s
}

// Name returns the skeleton name.
func (s *Skeleton) Name() string { return s.name }

// Len returns the number of bones.
func (s *Skeleton) Len() int {
	if s == nil {
		return 0
	}
	return len(s.bones)
}

// Bone returns the bone at index i.
func (s *Skeleton) Bone(i int) Bone { return s.bones[i] }

// Bones returns a copy of the bone list.
func (s *Skeleton) Bones() []Bone { return append([]Bone(nil), s.bones...) }

// Lookup returns the index of the named bone.
func (s *Skeleton) Lookup(name string) (int, bool) {
	if s == nil {
		return 0, false
	}
	i, ok := s.byName[name]
	return i, ok
}

// Has reports whether the named bone exists.
func (s *Skeleton) Has(name string) bool {
	_, ok := s.Lookup(name)
	return ok
}

// Children returns the child indices of bone i.
func (s *Skeleton) Children(i int) []int { return s.children[i] }

// Roots returns all bones without a parent.
func (s *Skeleton) Roots() []int {
	var roots []int
	for i, b := range s.bones {
		if b.Parent == NoParent {
			roots = append(roots, i)
		}
	}
	return roots
}

// Validate checks names, parent indices and parent cycles.
func (s *Skeleton) Validate() error {
	var empty, dup, dangling []string
	seen := make(map[string]bool, len(s.bones))
	for i, b := range s.bones {
		label := b.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i)
			empty = append(empty, label)
		} else if seen[b.Name] {
			dup = append(dup, b.Name)
		}
		seen[b.Name] = true
		if b.Parent != NoParent && (b.Parent < 0 || b.Parent >= len(s.bones) || b.Parent == i) {
			dangling = append(dangling, label)
		}
	}
	switch {
	case len(empty) > 0:
		return &StructuralError{Reason: "unnamed bones", Bones: empty}
	case len(dup) > 0:
		return &StructuralError{Reason: "duplicate bone names", Bones: dup}
	case len(dangling) > 0:
		return &StructuralError{Reason: "dangling parent index", Bones: dangling}
	}

	if cyclic := s.cyclicBones(); len(cyclic) > 0 {
		return &StructuralError{Reason: "parent cycle", Bones: cyclic}
	}
	return nil
}

// cyclicBones returns bones not reachable from any root.
func (s *Skeleton) cyclicBones() []string {
	reached := make([]bool, len(s.bones))
	for _, i := range s.Order() {
		reached[i] = true
	}
	var out []string
	for i, ok := range reached {
		if !ok {
			out = append(out, s.bones[i].Name)
		}
	}
	sort.Strings(out)
	return out
}

// Order returns bone indices with every parent before its children.
// Bones caught in parent cycles are omitted.
func (s *Skeleton) Order() []int {
	order := make([]int, 0, len(s.bones))
	queue := s.Roots()
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		order = append(order, i)
		queue = append(queue, s.children[i]...)
	}
	return order
}

// WorldTransforms composes bind transforms from the roots down.
// Returns a slice indexed by bone index.
func (s *Skeleton) WorldTransforms() []Transform {
	worlds := make([]Transform, len(s.bones))
	for i := range worlds {
		worlds[i] = Identity()
	}
	for _, i := range s.Order() {
		b := s.bones[i]
		if b.Parent == NoParent {
			worlds[i] = b.Local
		} else {
			worlds[i] = worlds[b.Parent].Mul(b.Local)
		}
	}
	return worlds
}

// BoneLength returns the distance from bone i to its farthest child origin.
// Leaf bones have length 0.
func (s *Skeleton) BoneLength(i int) float64 {
	var length float64
	for _, c := range s.children[i] {
		if l := s.bones[c].Local.Translation.Len(); l > length {
			length = l
		}
	}
	return length
}

// BoneDirection returns the mean direction towards the children of bone i in
// bone-local space, or the zero vector for leaves.
func (s *Skeleton) BoneDirection(i int) mgl64.Vec3 {
	var sum mgl64.Vec3
	for _, c := range s.children[i] {
		sum = sum.Add(s.bones[c].Local.Translation)
	}
	if sum.Len() < 1e-12 {
		return mgl64.Vec3{}
	}
	return sum.Normalize()
}

// RelativeTransform returns bone to's bind frame expressed in bone from's frame.
func (s *Skeleton) RelativeTransform(worlds []Transform, from, to int) Transform {
	return worlds[from].Inverse().Mul(worlds[to])
}
