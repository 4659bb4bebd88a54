package edit

import "github.com/pthm-cable/ragdoll/asset"

// Op identifies the operation that produced a Change.
type Op uint8

const (
	OpAddBody Op = iota
	OpRemoveBody
	OpMergeBodies
	OpAddConstraint
	OpRemoveConstraint
	OpReparentConstraint
	OpAddPrimitive
	OpRemovePrimitive
	OpReweldPrimitive
	OpSetBodyProperties
	OpSetConstraintLimits
	OpSetBreakThreshold
	OpRegenerate
	OpRestore
)

var opNames = [...]string{
	"add_body",
	"remove_body",
	"merge_bodies",
	"add_constraint",
	"remove_constraint",
	"reparent_constraint",
	"add_primitive",
	"remove_primitive",
	"reweld_primitive",
	"set_body_properties",
	"set_constraint_limits",
	"set_break_threshold",
	"regenerate",
	"restore",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return "unknown"
}

// Change is the structural diff of one committed edit, for undo/history
// collaborators.
type Change struct {
	Revision uint64
	Op       Op

	AddedBodies    []asset.BodyID
	RemovedBodies  []asset.BodyID
	ModifiedBodies []asset.BodyID

	AddedConstraints    []asset.ConstraintID
	RemovedConstraints  []asset.ConstraintID
	ModifiedConstraints []asset.ConstraintID
}

// Empty reports whether the change touches no entity.
func (c Change) Empty() bool {
	return len(c.AddedBodies)+len(c.RemovedBodies)+len(c.ModifiedBodies)+
		len(c.AddedConstraints)+len(c.RemovedConstraints)+len(c.ModifiedConstraints) == 0
}

func newAddBodyChange(id asset.BodyID) Change {
	return Change{Op: OpAddBody, AddedBodies: []asset.BodyID{id}}
}

func newRemoveBodyChange(id asset.BodyID) Change {
	return Change{Op: OpRemoveBody, RemovedBodies: []asset.BodyID{id}}
}

func newAddConstraintChange(id asset.ConstraintID) Change {
	return Change{Op: OpAddConstraint, AddedConstraints: []asset.ConstraintID{id}}
}

func newRemoveConstraintChange(id asset.ConstraintID) Change {
	return Change{Op: OpRemoveConstraint, RemovedConstraints: []asset.ConstraintID{id}}
}

// newModifyBodiesChange covers operations that only rewrite body contents.
func newModifyBodiesChange(op Op, ids ...asset.BodyID) Change {
	return Change{Op: op, ModifiedBodies: ids}
}

func newModifyConstraintChange(op Op, id asset.ConstraintID) Change {
	return Change{Op: op, ModifiedConstraints: []asset.ConstraintID{id}}
}

// newReplaceChange lists every entity of before as removed and every
// entity of after as added.
func newReplaceChange(op Op, before, after *asset.PhysicsAsset) Change {
	c := Change{Op: op}
	for _, b := range before.Bodies() {
		c.RemovedBodies = append(c.RemovedBodies, b.ID)
	}
	for _, k := range before.Constraints() {
		c.RemovedConstraints = append(c.RemovedConstraints, k.ID)
	}
	for _, b := range after.Bodies() {
		c.AddedBodies = append(c.AddedBodies, b.ID)
	}
	for _, k := range after.Constraints() {
		c.AddedConstraints = append(c.AddedConstraints, k.ID)
	}
	return c
}
