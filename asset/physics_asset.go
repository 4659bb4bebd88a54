package asset

import "sort"

// PhysicsAsset is the body registry plus constraint graph for one skeleton.
//
// The Insert/Delete methods perform no validation. Interactive code should
// mutate through the edit package, which checks every change.
type PhysicsAsset struct {
	Skeleton string

	bodies      map[BodyID]*Body
	constraints map[ConstraintID]*Constraint

	nextBody       BodyID
	nextConstraint ConstraintID
}

// New creates an empty asset bound to the named skeleton.
func New(skeletonName string) *PhysicsAsset {
	return &PhysicsAsset{
		Skeleton:       skeletonName,
		bodies:         make(map[BodyID]*Body),
		constraints:    make(map[ConstraintID]*Constraint),
		nextBody:       1,
		nextConstraint: 1,
	}
}

// NumBodies returns the number of bodies.
func (a *PhysicsAsset) NumBodies() int { return len(a.bodies) }

// NumConstraints returns the number of constraints.
func (a *PhysicsAsset) NumConstraints() int { return len(a.constraints) }

// Body returns the body with the given id.
func (a *PhysicsAsset) Body(id BodyID) (*Body, bool) {
	b, ok := a.bodies[id]
	return b, ok
}

// Constraint returns the constraint with the given id.
func (a *PhysicsAsset) Constraint(id ConstraintID) (*Constraint, bool) {
	c, ok := a.constraints[id]
	return c, ok
}

// Bodies returns all bodies ordered by id.
func (a *PhysicsAsset) Bodies() []*Body {
	out := make([]*Body, 0, len(a.bodies))
	for _, b := range a.bodies {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Constraints returns all constraints ordered by id.
func (a *PhysicsAsset) Constraints() []*Constraint {
	out := make([]*Constraint, 0, len(a.constraints))
	for _, c := range a.constraints {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// BodyForBone returns the lowest-id body bound to the named bone.
func (a *PhysicsAsset) BodyForBone(bone string) (*Body, bool) {
	var found *Body
	for _, b := range a.bodies {
		if b.Bone == bone && (found == nil || b.ID < found.ID) {
			found = b
		}
	}
	return found, found != nil
}

// ConstraintsOf returns constraints referencing the body, ordered by id.
func (a *PhysicsAsset) ConstraintsOf(id BodyID) []*Constraint {
	var out []*Constraint
	for _, c := range a.constraints {
		if c.Involves(id) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// InsertBody stores b under a fresh id and returns it. b.ID is overwritten.
func (a *PhysicsAsset) InsertBody(b *Body) BodyID {
	b.ID = a.nextBody
	a.nextBody++
	a.bodies[b.ID] = b
	return b.ID
}

// DeleteBody removes a body. Constraints referencing it are left alone.
func (a *PhysicsAsset) DeleteBody(id BodyID) bool {
	if _, ok := a.bodies[id]; !ok {
		return false
	}
	delete(a.bodies, id)
	return true
}

// InsertConstraint stores c under a fresh id and returns it. c.ID is overwritten.
func (a *PhysicsAsset) InsertConstraint(c *Constraint) ConstraintID {
	c.ID = a.nextConstraint
	a.nextConstraint++
	a.constraints[c.ID] = c
	return c.ID
}

// DeleteConstraint removes a constraint.
func (a *PhysicsAsset) DeleteConstraint(id ConstraintID) bool {
	if _, ok := a.constraints[id]; !ok {
		return false
	}
	delete(a.constraints, id)
	return true
}

// Clone returns a deep copy, including id counters.
func (a *PhysicsAsset) Clone() *PhysicsAsset {
	c := &PhysicsAsset{
		Skeleton:       a.Skeleton,
		bodies:         make(map[BodyID]*Body, len(a.bodies)),
		constraints:    make(map[ConstraintID]*Constraint, len(a.constraints)),
		nextBody:       a.nextBody,
		nextConstraint: a.nextConstraint,
	}
	for id, b := range a.bodies {
		c.bodies[id] = b.Clone()
	}
	for id, k := range a.constraints {
		c.constraints[id] = k.Clone()
	}
	return c
}
