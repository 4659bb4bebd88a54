// Package edit is the validated editing layer over a physics asset.
//
// Every operation is atomic: it either commits fully and notifies
// subscribers with a Change, or returns an *Error and leaves the asset
// untouched. The Editor is not safe for concurrent use.
package edit

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/pthm-cable/ragdoll/asset"
	"github.com/pthm-cable/ragdoll/config"
	"github.com/pthm-cable/ragdoll/generate"
	"github.com/pthm-cable/ragdoll/skeleton"
	"github.com/pthm-cable/ragdoll/validate"
)

// Options configures an Editor.
type Options struct {
	// VerifyCommits runs the validator on each candidate state and
	// rejects edits that introduce issues not present before.
	VerifyCommits bool
	// Hints feed RegenerateFromSkeleton and PreviewRegenerate.
	Hints skeleton.Hints
}

// OptionsFromConfig reads the editing section of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{VerifyCommits: cfg.Editing.VerifyCommits}
}

// Editor owns a live physics asset and the skeleton it is bound to.
type Editor struct {
	asset  *asset.PhysicsAsset
	skel   *skeleton.Skeleton
	hints  skeleton.Hints
	worlds []skeleton.Transform // nil when skel is missing or broken

	opts     Options
	forest   *forest
	revision uint64

	subs    map[int]func(Change)
	nextSub int
}

// New wraps a. A nil asset starts empty.
func New(a *asset.PhysicsAsset, skel *skeleton.Skeleton, opts Options) *Editor {
	e := &Editor{
		opts:   opts,
		forest: newForest(),
		subs:   make(map[int]func(Change)),
	}
	e.setSkeleton(skel, opts.Hints)
	if a == nil {
		a = asset.New(e.skeletonName())
	}
	e.asset = a
	return e
}

// Asset returns the live asset. RegenerateFromSkeleton and Restore replace
// it, so callers should not hold on to it across those calls.
func (e *Editor) Asset() *asset.PhysicsAsset { return e.asset }

// Skeleton returns the bound skeleton.
func (e *Editor) Skeleton() *skeleton.Skeleton { return e.skel }

// Revision counts committed changes.
func (e *Editor) Revision() uint64 { return e.revision }

// Subscribe registers fn to receive every committed Change, in order.
// The returned function unregisters it.
func (e *Editor) Subscribe(fn func(Change)) (cancel func()) {
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	return func() { delete(e.subs, id) }
}

// Validate runs the validator against the live asset and skeleton.
func (e *Editor) Validate() []validate.Issue {
	return validate.Asset(e.asset, e.skel)
}

// Snapshot returns a deep copy of the live asset for later Restore.
func (e *Editor) Snapshot() *asset.PhysicsAsset {
	return e.asset.Clone()
}

// SetSkeleton rebinds the editor after a skeleton reload and returns the
// issues the live asset has against the new skeleton. The asset is not
// modified; bodies on vanished bones must be fixed by the caller.
func (e *Editor) SetSkeleton(skel *skeleton.Skeleton, hints skeleton.Hints) []validate.Issue {
	e.setSkeleton(skel, hints)
	issues := e.Validate()
	slog.Debug("skeleton rebound", "skeleton", e.skeletonName(), "bones", skel.Len(), "issues", len(issues))
	return issues
}

func (e *Editor) setSkeleton(skel *skeleton.Skeleton, hints skeleton.Hints) {
	e.skel = skel
	e.hints = hints
	e.worlds = nil
	if skel.Len() > 0 && skel.Validate() == nil {
		e.worlds = skel.WorldTransforms()
	}
}

func (e *Editor) skeletonName() string {
	if e.skel == nil {
		return ""
	}
	return e.skel.Name()
}

// relative returns bone to's frame expressed in bone from's frame, or
// identity when either bone cannot be resolved.
func (e *Editor) relative(from, to string) skeleton.Transform {
	if e.worlds == nil {
		return skeleton.Identity()
	}
	i, okFrom := e.skel.Lookup(from)
	j, okTo := e.skel.Lookup(to)
	if !okFrom || !okTo {
		return skeleton.Identity()
	}
	return e.skel.RelativeTransform(e.worlds, i, j)
}

// apply runs fn against the live asset. With VerifyCommits it first runs
// fn on a clone and rejects the edit if validation gets worse. fn must not
// fail: callers check preconditions before calling apply.
func (e *Editor) apply(op Op, id string, fn func(a *asset.PhysicsAsset)) error {
	if e.opts.VerifyCommits {
		before := make(map[string]bool)
		for _, is := range validate.Asset(e.asset, e.skel) {
			before[is.Key()] = true
		}
		candidate := e.asset.Clone()
		fn(candidate)
		var added validate.Issues
		for _, is := range validate.Asset(candidate, e.skel) {
			if !before[is.Key()] {
				added = append(added, is)
			}
		}
		if len(added) > 0 {
			return opError(op, id, fmt.Errorf("%w: %w", ErrValidationFailed, added))
		}
	}
	fn(e.asset)
	return nil
}

func (e *Editor) emit(c Change) {
	e.revision++
	c.Revision = e.revision
	slog.Debug("edit committed",
		"op", c.Op.String(),
		"revision", c.Revision,
		"bodies", e.asset.NumBodies(),
		"constraints", e.asset.NumConstraints(),
	)
	ids := make([]int, 0, len(e.subs))
	for id := range e.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if fn, ok := e.subs[id]; ok {
			fn(c)
		}
	}
}

// AddBody creates a body on bone with one primitive.
func (e *Editor) AddBody(bone string, p asset.Primitive) (asset.BodyID, error) {
	if !e.skel.Has(bone) {
		return 0, opError(OpAddBody, bone, ErrUnknownBone)
	}
	if err := p.Validate(); err != nil {
		return 0, opError(OpAddBody, bone, err)
	}
	var id asset.BodyID
	err := e.apply(OpAddBody, bone, func(a *asset.PhysicsAsset) {
		id = a.InsertBody(&asset.Body{Bone: bone, Primitives: []asset.Primitive{p.Clone()}})
	})
	if err != nil {
		return 0, err
	}
	e.emit(newAddBodyChange(id))
	return id, nil
}

// RemoveBody deletes a body. It is refused while constraints reference it.
func (e *Editor) RemoveBody(id asset.BodyID) error {
	if _, ok := e.asset.Body(id); !ok {
		return opError(OpRemoveBody, id.String(), ErrUnknownBody)
	}
	if deps := e.asset.ConstraintsOf(id); len(deps) > 0 {
		return opError(OpRemoveBody, id.String(),
			fmt.Errorf("%w: %d constraint(s), first %s", ErrHasDependentConstraints, len(deps), deps[0].ID))
	}
	if err := e.apply(OpRemoveBody, id.String(), func(a *asset.PhysicsAsset) { a.DeleteBody(id) }); err != nil {
		return err
	}
	e.emit(newRemoveBodyChange(id))
	return nil
}

// AddConstraint joins parent to child. Joint frames come from the bind
// pose when both bones resolve.
func (e *Editor) AddConstraint(parent, child asset.BodyID, limits asset.Limits) (asset.ConstraintID, error) {
	label := fmt.Sprintf("%s->%s", parent, child)
	pb, ok := e.asset.Body(parent)
	if !ok {
		return 0, opError(OpAddConstraint, label, fmt.Errorf("%w: %s", ErrUnknownBody, parent))
	}
	cb, ok := e.asset.Body(child)
	if !ok {
		return 0, opError(OpAddConstraint, label, fmt.Errorf("%w: %s", ErrUnknownBody, child))
	}
	if parent == child {
		return 0, opError(OpAddConstraint, label, ErrSelfConstraint)
	}
	if err := limits.Validate(); err != nil {
		return 0, opError(OpAddConstraint, label, err)
	}
	e.forest.sync(e.asset)
	if e.forest.connected(parent, child) {
		return 0, opError(OpAddConstraint, label, ErrWouldCreateCycle)
	}

	frame := e.relative(pb.Bone, cb.Bone)
	var id asset.ConstraintID
	err := e.apply(OpAddConstraint, label, func(a *asset.PhysicsAsset) {
		id = a.InsertConstraint(&asset.Constraint{
			Parent:      parent,
			Child:       child,
			Limits:      limits,
			ParentFrame: frame,
			ChildFrame:  skeleton.Identity(),
		})
	})
	if err != nil {
		return 0, err
	}
	e.forest.union(parent, child)
	e.emit(newAddConstraintChange(id))
	return id, nil
}

// RemoveConstraint deletes a constraint.
func (e *Editor) RemoveConstraint(id asset.ConstraintID) error {
	if _, ok := e.asset.Constraint(id); !ok {
		return opError(OpRemoveConstraint, id.String(), ErrUnknownConstraint)
	}
	if err := e.apply(OpRemoveConstraint, id.String(), func(a *asset.PhysicsAsset) { a.DeleteConstraint(id) }); err != nil {
		return err
	}
	e.forest.invalidate()
	e.emit(newRemoveConstraintChange(id))
	return nil
}

// MergeBodies moves absorb's primitives into keep, re-targets absorb's
// constraints to keep, drops any constraint between the two, and deletes
// absorb. Merging two bodies already joined through other bodies would
// close a cycle and is refused.
func (e *Editor) MergeBodies(keep, absorb asset.BodyID) error {
	label := fmt.Sprintf("%s<-%s", keep, absorb)
	kb, ok := e.asset.Body(keep)
	if !ok {
		return opError(OpMergeBodies, label, fmt.Errorf("%w: %s", ErrUnknownBody, keep))
	}
	ab, ok := e.asset.Body(absorb)
	if !ok {
		return opError(OpMergeBodies, label, fmt.Errorf("%w: %s", ErrUnknownBody, absorb))
	}
	if keep == absorb {
		return opError(OpMergeBodies, label, ErrSameBody)
	}

	change := Change{
		Op:             OpMergeBodies,
		RemovedBodies:  []asset.BodyID{absorb},
		ModifiedBodies: []asset.BodyID{keep},
	}
	for _, c := range e.asset.ConstraintsOf(absorb) {
		if c.Other(absorb) == keep {
			change.RemovedConstraints = append(change.RemovedConstraints, c.ID)
		} else {
			change.ModifiedConstraints = append(change.ModifiedConstraints, c.ID)
		}
	}
	e.forest.sync(e.asset)
	if len(change.RemovedConstraints) == 0 && e.forest.connected(keep, absorb) {
		return opError(OpMergeBodies, label, ErrWouldCreateCycle)
	}

	rel := e.relative(kb.Bone, ab.Bone)
	err := e.apply(OpMergeBodies, label, func(a *asset.PhysicsAsset) {
		k, _ := a.Body(keep)
		x, _ := a.Body(absorb)
		for _, p := range x.Primitives {
			p = p.Clone()
			p.Local = rel.Mul(p.Local)
			k.Primitives = append(k.Primitives, p)
		}
		for _, c := range a.ConstraintsOf(absorb) {
			switch {
			case c.Other(absorb) == keep:
				a.DeleteConstraint(c.ID)
			case c.Parent == absorb:
				c.Parent = keep
				c.ParentFrame = rel.Mul(c.ParentFrame)
			default:
				c.Child = keep
				c.ChildFrame = rel.Mul(c.ChildFrame)
			}
		}
		a.DeleteBody(absorb)
	})
	if err != nil {
		return err
	}
	e.forest.invalidate()
	e.emit(change)
	return nil
}

// ReparentConstraint moves the parent end of a constraint to newParent.
func (e *Editor) ReparentConstraint(id asset.ConstraintID, newParent asset.BodyID) error {
	c, ok := e.asset.Constraint(id)
	if !ok {
		return opError(OpReparentConstraint, id.String(), ErrUnknownConstraint)
	}
	pb, ok := e.asset.Body(newParent)
	if !ok {
		return opError(OpReparentConstraint, id.String(), fmt.Errorf("%w: %s", ErrUnknownBody, newParent))
	}
	if newParent == c.Child {
		return opError(OpReparentConstraint, id.String(), ErrSelfConstraint)
	}
	if newParent == c.Parent {
		return nil
	}
	without := newForest()
	without.build(e.asset, id)
	if without.connected(newParent, c.Child) {
		return opError(OpReparentConstraint, id.String(), ErrWouldCreateCycle)
	}

	frame := skeleton.Identity()
	if cb, ok := e.asset.Body(c.Child); ok {
		frame = e.relative(pb.Bone, cb.Bone)
	}
	err := e.apply(OpReparentConstraint, id.String(), func(a *asset.PhysicsAsset) {
		k, _ := a.Constraint(id)
		k.Parent = newParent
		k.ParentFrame = frame
	})
	if err != nil {
		return err
	}
	e.forest.invalidate()
	e.emit(newModifyConstraintChange(OpReparentConstraint, id))
	return nil
}

// AddPrimitive appends p to a body and returns its index.
func (e *Editor) AddPrimitive(id asset.BodyID, p asset.Primitive) (int, error) {
	b, ok := e.asset.Body(id)
	if !ok {
		return 0, opError(OpAddPrimitive, id.String(), ErrUnknownBody)
	}
	if err := p.Validate(); err != nil {
		return 0, opError(OpAddPrimitive, id.String(), err)
	}
	index := len(b.Primitives)
	err := e.apply(OpAddPrimitive, id.String(), func(a *asset.PhysicsAsset) {
		b, _ := a.Body(id)
		b.Primitives = append(b.Primitives, p.Clone())
	})
	if err != nil {
		return 0, err
	}
	e.emit(newModifyBodiesChange(OpAddPrimitive, id))
	return index, nil
}

// RemovePrimitive deletes the primitive at index. The body may be left
// with no primitives.
func (e *Editor) RemovePrimitive(id asset.BodyID, index int) error {
	b, ok := e.asset.Body(id)
	if !ok {
		return opError(OpRemovePrimitive, id.String(), ErrUnknownBody)
	}
	if index < 0 || index >= len(b.Primitives) {
		return opError(OpRemovePrimitive, id.String(), fmt.Errorf("%w: index %d of %d", ErrUnknownPrimitive, index, len(b.Primitives)))
	}
	err := e.apply(OpRemovePrimitive, id.String(), func(a *asset.PhysicsAsset) {
		b, _ := a.Body(id)
		b.Primitives = append(b.Primitives[:index:index], b.Primitives[index+1:]...)
	})
	if err != nil {
		return err
	}
	e.emit(newModifyBodiesChange(OpRemovePrimitive, id))
	return nil
}

// ReweldPrimitive moves a primitive between bodies, keeping its bind-pose
// placement by re-expressing it in the target bone's frame.
func (e *Editor) ReweldPrimitive(from asset.BodyID, index int, to asset.BodyID) (int, error) {
	label := fmt.Sprintf("%s->%s", from, to)
	fb, ok := e.asset.Body(from)
	if !ok {
		return 0, opError(OpReweldPrimitive, label, fmt.Errorf("%w: %s", ErrUnknownBody, from))
	}
	tb, ok := e.asset.Body(to)
	if !ok {
		return 0, opError(OpReweldPrimitive, label, fmt.Errorf("%w: %s", ErrUnknownBody, to))
	}
	if from == to {
		return 0, opError(OpReweldPrimitive, label, ErrSameBody)
	}
	if index < 0 || index >= len(fb.Primitives) {
		return 0, opError(OpReweldPrimitive, label, fmt.Errorf("%w: index %d of %d", ErrUnknownPrimitive, index, len(fb.Primitives)))
	}

	rel := e.relative(tb.Bone, fb.Bone)
	newIndex := len(tb.Primitives)
	err := e.apply(OpReweldPrimitive, label, func(a *asset.PhysicsAsset) {
		src, _ := a.Body(from)
		dst, _ := a.Body(to)
		p := src.Primitives[index].Clone()
		p.Local = rel.Mul(p.Local)
		src.Primitives = append(src.Primitives[:index:index], src.Primitives[index+1:]...)
		dst.Primitives = append(dst.Primitives, p)
	})
	if err != nil {
		return 0, err
	}
	e.emit(newModifyBodiesChange(OpReweldPrimitive, from, to))
	return newIndex, nil
}

// SetBodyProperties replaces a body's physical properties.
func (e *Editor) SetBodyProperties(id asset.BodyID, props asset.Properties) error {
	if _, ok := e.asset.Body(id); !ok {
		return opError(OpSetBodyProperties, id.String(), ErrUnknownBody)
	}
	for name, v := range map[string]float64{
		"mass override":   props.MassOverride,
		"linear damping":  props.LinearDamping,
		"angular damping": props.AngularDamping,
	} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return opError(OpSetBodyProperties, id.String(), fmt.Errorf("%w: %s %v", ErrInvalidProperties, name, v))
		}
	}
	err := e.apply(OpSetBodyProperties, id.String(), func(a *asset.PhysicsAsset) {
		b, _ := a.Body(id)
		b.Props = props
	})
	if err != nil {
		return err
	}
	e.emit(newModifyBodiesChange(OpSetBodyProperties, id))
	return nil
}

// SetConstraintLimits replaces a constraint's motion limits.
func (e *Editor) SetConstraintLimits(id asset.ConstraintID, limits asset.Limits) error {
	if _, ok := e.asset.Constraint(id); !ok {
		return opError(OpSetConstraintLimits, id.String(), ErrUnknownConstraint)
	}
	if err := limits.Validate(); err != nil {
		return opError(OpSetConstraintLimits, id.String(), err)
	}
	err := e.apply(OpSetConstraintLimits, id.String(), func(a *asset.PhysicsAsset) {
		c, _ := a.Constraint(id)
		c.Limits = limits
	})
	if err != nil {
		return err
	}
	e.emit(newModifyConstraintChange(OpSetConstraintLimits, id))
	return nil
}

// SetBreakThreshold sets the force at which a constraint breaks; nil makes
// it unbreakable.
func (e *Editor) SetBreakThreshold(id asset.ConstraintID, threshold *float64) error {
	if _, ok := e.asset.Constraint(id); !ok {
		return opError(OpSetBreakThreshold, id.String(), ErrUnknownConstraint)
	}
	var v float64
	if threshold != nil {
		v = *threshold
		if !(v > 0) || math.IsInf(v, 0) {
			return opError(OpSetBreakThreshold, id.String(), fmt.Errorf("%w: break threshold %v", ErrInvalidLimits, v))
		}
	}
	err := e.apply(OpSetBreakThreshold, id.String(), func(a *asset.PhysicsAsset) {
		c, _ := a.Constraint(id)
		c.BreakThreshold = nil
		if threshold != nil {
			t := v
			c.BreakThreshold = &t
		}
	})
	if err != nil {
		return err
	}
	e.emit(newModifyConstraintChange(OpSetBreakThreshold, id))
	return nil
}

// PreviewRegenerate runs generation against the live skeleton without
// committing. Safe to call from another goroutine only if the skeleton is
// not rebound concurrently.
func (e *Editor) PreviewRegenerate(opts generate.Options) (*asset.PhysicsAsset, error) {
	a, err := generate.Generate(e.skel, e.hints, opts)
	if err != nil {
		return nil, opError(OpRegenerate, e.skeletonName(), err)
	}
	return a, nil
}

// RegenerateFromSkeleton replaces the asset with a freshly generated one.
// Manual edits are discarded; take a Snapshot first to keep them.
func (e *Editor) RegenerateFromSkeleton(opts generate.Options) (*asset.PhysicsAsset, error) {
	a, err := e.PreviewRegenerate(opts)
	if err != nil {
		return nil, err
	}
	before := e.asset
	e.asset = a
	e.forest.invalidate()
	e.emit(newReplaceChange(OpRegenerate, before, a))
	return a, nil
}

// Restore replaces the asset with a copy of snap after validating it
// against the live skeleton. Use it to commit background generation
// results or to roll back to a Snapshot.
func (e *Editor) Restore(snap *asset.PhysicsAsset) error {
	if snap == nil {
		return opError(OpRestore, "", fmt.Errorf("%w: nil snapshot", ErrValidationFailed))
	}
	if issues := validate.Asset(snap, e.skel); len(issues) > 0 {
		return opError(OpRestore, "", fmt.Errorf("%w: %w", ErrValidationFailed, validate.Issues(issues)))
	}
	before := e.asset
	e.asset = snap.Clone()
	e.forest.invalidate()
	e.emit(newReplaceChange(OpRestore, before, e.asset))
	return nil
}
