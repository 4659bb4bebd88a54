package edit

import (
	"errors"
	"reflect"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/pthm-cable/ragdoll/asset"
	"github.com/pthm-cable/ragdoll/config"
	"github.com/pthm-cable/ragdoll/generate"
	"github.com/pthm-cable/ragdoll/skeleton"
	"github.com/pthm-cable/ragdoll/validate"
)

func up(z float64) skeleton.Transform { return skeleton.Translate(mgl64.Vec3{0, 0, z}) }

func testSkeleton() *skeleton.Skeleton {
	return skeleton.New("biped", []skeleton.Bone{
		{Name: "root", Parent: skeleton.NoParent, Local: skeleton.Identity()},
		{Name: "spine", Parent: 0, Local: up(1)},
		{Name: "head", Parent: 1, Local: up(1)},
		{Name: "arm", Parent: 1, Local: skeleton.Translate(mgl64.Vec3{0.5, 0, 0.8})},
	})
}

func sphere() asset.Primitive { return asset.NewSphere(skeleton.Identity(), 0.1) }

func angular() asset.Limits {
	return asset.Limits{Angular: [3]asset.AxisLimit{asset.Limited(-30, 30), asset.Limited(-30, 30), asset.Free()}}
}

func generateOptions(t *testing.T) generate.Options {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load failed: %v", err)
	}
	opts, err := generate.OptionsFromConfig(cfg)
	if err != nil {
		t.Fatalf("OptionsFromConfig failed: %v", err)
	}
	return opts
}

type fixture struct {
	ed                     *Editor
	root, spine, head, arm asset.BodyID
	changes                []Change
}

// newFixture builds root-spine-head plus an unconnected arm body.
func newFixture(t *testing.T, verify bool) *fixture {
	t.Helper()
	f := &fixture{ed: New(nil, testSkeleton(), Options{VerifyCommits: verify})}
	f.ed.Subscribe(func(c Change) { f.changes = append(f.changes, c) })
	must := func(id asset.BodyID, err error) asset.BodyID {
		t.Helper()
		if err != nil {
			t.Fatalf("AddBody failed: %v", err)
		}
		return id
	}
	f.root = must(f.ed.AddBody("root", sphere()))
	f.spine = must(f.ed.AddBody("spine", sphere()))
	f.head = must(f.ed.AddBody("head", sphere()))
	f.arm = must(f.ed.AddBody("arm", sphere()))
	if _, err := f.ed.AddConstraint(f.root, f.spine, angular()); err != nil {
		t.Fatalf("AddConstraint failed: %v", err)
	}
	if _, err := f.ed.AddConstraint(f.spine, f.head, angular()); err != nil {
		t.Fatalf("AddConstraint failed: %v", err)
	}
	f.changes = nil
	return f
}

func document(a *asset.PhysicsAsset) *asset.Document { return asset.ToDocument(a) }

// assertUnchanged fails if the asset differs from before or a change was emitted.
func (f *fixture) assertUnchanged(t *testing.T, before *asset.Document) {
	t.Helper()
	if got := document(f.ed.Asset()); !reflect.DeepEqual(got, before) {
		t.Errorf("asset modified by rejected edit")
	}
	if len(f.changes) != 0 {
		t.Errorf("rejected edit emitted %d change(s)", len(f.changes))
	}
}

func TestAddBody(t *testing.T) {
	f := newFixture(t, true)
	before := document(f.ed.Asset())

	_, err := f.ed.AddBody("tail", sphere())
	if !errors.Is(err, ErrUnknownBone) {
		t.Errorf("AddBody(tail) = %v, want ErrUnknownBone", err)
	}
	var ee *Error
	if !errors.As(err, &ee) || ee.Op != OpAddBody || ee.ID != "tail" {
		t.Errorf("error = %#v, want *Error{Op: add_body, ID: tail}", err)
	}
	_, err = f.ed.AddBody("head", asset.NewSphere(skeleton.Identity(), -1))
	if !errors.Is(err, ErrInvalidPrimitive) {
		t.Errorf("AddBody(bad primitive) = %v, want ErrInvalidPrimitive", err)
	}
	f.assertUnchanged(t, before)

	id, err := f.ed.AddBody("head", sphere())
	if err != nil {
		t.Fatalf("AddBody failed: %v", err)
	}
	if len(f.changes) != 1 || !reflect.DeepEqual(f.changes[0].AddedBodies, []asset.BodyID{id}) {
		t.Errorf("changes = %+v, want one adding %s", f.changes, id)
	}
}

func TestRemoveBodyWithDependents(t *testing.T) {
	f := newFixture(t, false)
	before := document(f.ed.Asset())

	if err := f.ed.RemoveBody(f.spine); !errors.Is(err, ErrHasDependentConstraints) {
		t.Errorf("RemoveBody(spine) = %v, want ErrHasDependentConstraints", err)
	}
	if err := f.ed.RemoveBody(99); !errors.Is(err, ErrUnknownBody) {
		t.Errorf("RemoveBody(99) = %v, want ErrUnknownBody", err)
	}
	f.assertUnchanged(t, before)

	if err := f.ed.RemoveBody(f.arm); err != nil {
		t.Fatalf("RemoveBody(arm) failed: %v", err)
	}
	if _, ok := f.ed.Asset().Body(f.arm); ok {
		t.Error("arm still present")
	}
	if len(f.changes) != 1 || f.changes[0].Op != OpRemoveBody {
		t.Errorf("changes = %+v", f.changes)
	}
}

func TestAddRemoveConstraintRoundtrip(t *testing.T) {
	f := newFixture(t, true)
	before := f.ed.Asset().Constraints()
	var want []asset.Constraint
	for _, c := range before {
		want = append(want, *c.Clone())
	}

	id, err := f.ed.AddConstraint(f.spine, f.arm, angular())
	if err != nil {
		t.Fatalf("AddConstraint failed: %v", err)
	}
	c, _ := f.ed.Asset().Constraint(id)
	if !c.ParentFrame.ApproxEqual(skeleton.Translate(mgl64.Vec3{0.5, 0, 0.8}), 1e-9) {
		t.Errorf("parent frame = %+v, want the arm's bind offset", c.ParentFrame)
	}
	if err := f.ed.RemoveConstraint(id); err != nil {
		t.Fatalf("RemoveConstraint failed: %v", err)
	}

	var got []asset.Constraint
	for _, c := range f.ed.Asset().Constraints() {
		got = append(got, *c.Clone())
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("constraints after round trip = %+v, want %+v", got, want)
	}
	if len(f.changes) != 2 || f.changes[0].Revision+1 != f.changes[1].Revision {
		t.Errorf("changes = %+v", f.changes)
	}

	// The cycle check must see the removal.
	if _, err := f.ed.AddConstraint(f.arm, f.spine, angular()); err != nil {
		t.Errorf("re-adding after removal failed: %v", err)
	}
}

func TestAddConstraintErrors(t *testing.T) {
	tests := []struct {
		name   string
		parent func(f *fixture) asset.BodyID
		child  func(f *fixture) asset.BodyID
		limits asset.Limits
		want   error
	}{
		{"self", func(f *fixture) asset.BodyID { return f.head }, func(f *fixture) asset.BodyID { return f.head }, angular(), ErrSelfConstraint},
		{"cycle via ancestor", func(f *fixture) asset.BodyID { return f.head }, func(f *fixture) asset.BodyID { return f.root }, angular(), ErrWouldCreateCycle},
		{"duplicate pair", func(f *fixture) asset.BodyID { return f.spine }, func(f *fixture) asset.BodyID { return f.root }, angular(), ErrWouldCreateCycle},
		{"unknown parent", func(f *fixture) asset.BodyID { return 42 }, func(f *fixture) asset.BodyID { return f.arm }, angular(), ErrUnknownBody},
		{"unknown child", func(f *fixture) asset.BodyID { return f.arm }, func(f *fixture) asset.BodyID { return 42 }, angular(), ErrUnknownBody},
		{"bad limits", func(f *fixture) asset.BodyID { return f.spine }, func(f *fixture) asset.BodyID { return f.arm },
			asset.Limits{Angular: [3]asset.AxisLimit{asset.Limited(5, -5)}}, ErrInvalidLimits},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, true)
			before := document(f.ed.Asset())
			_, err := f.ed.AddConstraint(tt.parent(f), tt.child(f), tt.limits)
			if !errors.Is(err, tt.want) {
				t.Errorf("AddConstraint = %v, want %v", err, tt.want)
			}
			f.assertUnchanged(t, before)
		})
	}
}

func TestRemoveConstraintUnknown(t *testing.T) {
	f := newFixture(t, false)
	if err := f.ed.RemoveConstraint(77); !errors.Is(err, ErrUnknownConstraint) {
		t.Errorf("RemoveConstraint(77) = %v, want ErrUnknownConstraint", err)
	}
}

func TestMergeBodies(t *testing.T) {
	f := newFixture(t, true)
	if _, err := f.ed.AddConstraint(f.spine, f.arm, angular()); err != nil {
		t.Fatalf("AddConstraint failed: %v", err)
	}
	f.changes = nil

	// Merge spine into root: spine's constraints to head and arm move to root.
	if err := f.ed.MergeBodies(f.root, f.spine); err != nil {
		t.Fatalf("MergeBodies failed: %v", err)
	}
	a := f.ed.Asset()
	if _, ok := a.Body(f.spine); ok {
		t.Error("absorbed body still present")
	}
	root, _ := a.Body(f.root)
	if len(root.Primitives) != 2 {
		t.Fatalf("root has %d primitives, want 2", len(root.Primitives))
	}
	if !root.Primitives[1].Local.Translation.ApproxEqualThreshold(mgl64.Vec3{0, 0, 1}, 1e-9) {
		t.Errorf("merged primitive at %v, want spine origin (0,0,1) in root space", root.Primitives[1].Local.Translation)
	}
	for _, c := range a.Constraints() {
		if c.Parent != f.root {
			t.Errorf("%s parent = %s, want root", c.ID, c.Parent)
		}
	}
	if a.NumConstraints() != 2 {
		t.Errorf("got %d constraints, want 2", a.NumConstraints())
	}
	if err := validate.Check(a, f.ed.Skeleton()); err != nil {
		t.Errorf("asset invalid after merge: %v", err)
	}
	if len(f.changes) != 1 {
		t.Fatalf("got %d changes, want 1", len(f.changes))
	}
	c := f.changes[0]
	if len(c.RemovedBodies) != 1 || len(c.RemovedConstraints) != 1 || len(c.ModifiedConstraints) != 2 {
		t.Errorf("change = %+v", c)
	}
}

func TestMergeBodiesRefusesCycle(t *testing.T) {
	f := newFixture(t, true)
	before := document(f.ed.Asset())
	if err := f.ed.MergeBodies(f.root, f.head); !errors.Is(err, ErrWouldCreateCycle) {
		t.Errorf("MergeBodies(root, head) = %v, want ErrWouldCreateCycle", err)
	}
	if err := f.ed.MergeBodies(f.root, f.root); !errors.Is(err, ErrSameBody) {
		t.Errorf("MergeBodies(root, root) = %v, want ErrSameBody", err)
	}
	f.assertUnchanged(t, before)
}

func TestReparentConstraint(t *testing.T) {
	f := newFixture(t, true)
	head := f.ed.Asset().ConstraintsOf(f.head)[0]
	before := document(f.ed.Asset())

	if err := f.ed.ReparentConstraint(head.ID, f.head); !errors.Is(err, ErrSelfConstraint) {
		t.Errorf("reparent onto child = %v, want ErrSelfConstraint", err)
	}
	f.assertUnchanged(t, before)

	if err := f.ed.ReparentConstraint(head.ID, f.root); err != nil {
		t.Fatalf("ReparentConstraint failed: %v", err)
	}
	c, _ := f.ed.Asset().Constraint(head.ID)
	if c.Parent != f.root {
		t.Errorf("parent = %s, want root", c.Parent)
	}
	if !c.ParentFrame.ApproxEqual(up(2), 1e-9) {
		t.Errorf("parent frame = %+v, want (0,0,2)", c.ParentFrame)
	}

	// Moving root-spine's parent onto a body hanging below spine would
	// close a loop.
	rootSpine := f.ed.Asset().ConstraintsOf(f.spine)[0]
	if _, err := f.ed.AddConstraint(f.spine, f.arm, angular()); err != nil {
		t.Fatalf("AddConstraint failed: %v", err)
	}
	if err := f.ed.ReparentConstraint(rootSpine.ID, f.arm); !errors.Is(err, ErrWouldCreateCycle) {
		t.Errorf("reparent onto descendant = %v, want ErrWouldCreateCycle", err)
	}
}

func TestPrimitiveEdits(t *testing.T) {
	f := newFixture(t, true)

	box := asset.NewBox(up(0.5), mgl64.Vec3{0.1, 0.1, 0.5})
	idx, err := f.ed.AddPrimitive(f.spine, box)
	if err != nil || idx != 1 {
		t.Fatalf("AddPrimitive = %d, %v", idx, err)
	}
	if _, err := f.ed.AddPrimitive(f.spine, asset.NewBox(skeleton.Identity(), mgl64.Vec3{})); !errors.Is(err, ErrInvalidPrimitive) {
		t.Errorf("AddPrimitive(empty box) = %v, want ErrInvalidPrimitive", err)
	}

	// Move the box to root; it keeps its bind-pose placement.
	to, err := f.ed.ReweldPrimitive(f.spine, 1, f.root)
	if err != nil {
		t.Fatalf("ReweldPrimitive failed: %v", err)
	}
	root, _ := f.ed.Asset().Body(f.root)
	if got := root.Primitives[to].Local.Translation; !got.ApproxEqualThreshold(mgl64.Vec3{0, 0, 1.5}, 1e-9) {
		t.Errorf("rewelded box at %v, want (0,0,1.5)", got)
	}
	spine, _ := f.ed.Asset().Body(f.spine)
	if len(spine.Primitives) != 1 {
		t.Errorf("spine has %d primitives, want 1", len(spine.Primitives))
	}

	if err := f.ed.RemovePrimitive(f.root, 5); !errors.Is(err, ErrUnknownPrimitive) {
		t.Errorf("RemovePrimitive(5) = %v, want ErrUnknownPrimitive", err)
	}
	if _, err := f.ed.ReweldPrimitive(f.root, 0, f.root); !errors.Is(err, ErrSameBody) {
		t.Errorf("ReweldPrimitive onto itself = %v, want ErrSameBody", err)
	}
	if err := f.ed.RemovePrimitive(f.root, 0); err != nil {
		t.Fatalf("RemovePrimitive failed: %v", err)
	}
	root, _ = f.ed.Asset().Body(f.root)
	if len(root.Primitives) != 1 || root.Primitives[0].Kind != asset.KindBox {
		t.Errorf("root primitives = %+v, want just the box", root.Primitives)
	}

	var ops []Op
	for _, c := range f.changes {
		ops = append(ops, c.Op)
	}
	want := []Op{OpAddPrimitive, OpReweldPrimitive, OpRemovePrimitive}
	if !reflect.DeepEqual(ops, want) {
		t.Errorf("ops = %v, want %v", ops, want)
	}
	if !reflect.DeepEqual(f.changes[1].ModifiedBodies, []asset.BodyID{f.spine, f.root}) {
		t.Errorf("reweld modified %v", f.changes[1].ModifiedBodies)
	}
}

func TestPropertyAndLimitEdits(t *testing.T) {
	f := newFixture(t, true)
	props := asset.Properties{MassOverride: 3, LinearDamping: 0.2, CollisionGroup: 4}
	if err := f.ed.SetBodyProperties(f.head, props); err != nil {
		t.Fatalf("SetBodyProperties failed: %v", err)
	}
	b, _ := f.ed.Asset().Body(f.head)
	if b.Props != props {
		t.Errorf("props = %+v, want %+v", b.Props, props)
	}
	if err := f.ed.SetBodyProperties(f.head, asset.Properties{LinearDamping: -1}); !errors.Is(err, ErrInvalidProperties) {
		t.Errorf("negative damping = %v, want ErrInvalidProperties", err)
	}

	id := f.ed.Asset().Constraints()[0].ID
	lim := asset.Limits{Angular: [3]asset.AxisLimit{asset.Free(), asset.Free(), asset.Free()}}
	if err := f.ed.SetConstraintLimits(id, lim); err != nil {
		t.Fatalf("SetConstraintLimits failed: %v", err)
	}
	if err := f.ed.SetConstraintLimits(id, asset.Limits{Linear: [3]asset.AxisLimit{asset.Limited(1, 0)}}); !errors.Is(err, ErrInvalidLimits) {
		t.Errorf("bad limits = %v, want ErrInvalidLimits", err)
	}
	v := 500.0
	if err := f.ed.SetBreakThreshold(id, &v); err != nil {
		t.Fatalf("SetBreakThreshold failed: %v", err)
	}
	c, _ := f.ed.Asset().Constraint(id)
	if c.Limits != lim || !c.Breakable() || *c.BreakThreshold != 500 {
		t.Errorf("constraint = %+v", c)
	}
	v = 1 // caller's variable must not alias the stored threshold
	if *c.BreakThreshold != 500 {
		t.Error("break threshold aliases caller memory")
	}
	if err := f.ed.SetBreakThreshold(id, nil); err != nil || c.Breakable() {
		t.Errorf("clearing threshold: err %v, breakable %v", err, c.Breakable())
	}
	neg := -5.0
	if err := f.ed.SetBreakThreshold(id, &neg); !errors.Is(err, ErrInvalidLimits) {
		t.Errorf("negative threshold = %v, want ErrInvalidLimits", err)
	}
}

func TestRegenerateFromSkeleton(t *testing.T) {
	f := newFixture(t, true)
	snap := f.ed.Snapshot()
	old := f.ed.Asset()

	a, err := f.ed.RegenerateFromSkeleton(generateOptions(t))
	if err != nil {
		t.Fatalf("RegenerateFromSkeleton failed: %v", err)
	}
	if f.ed.Asset() != a {
		t.Error("live asset not replaced")
	}
	if err := validate.Check(a, f.ed.Skeleton()); err != nil {
		t.Errorf("regenerated asset invalid: %v", err)
	}
	if len(f.changes) != 1 {
		t.Fatalf("got %d changes, want 1", len(f.changes))
	}
	c := f.changes[0]
	if c.Op != OpRegenerate || len(c.RemovedBodies) != old.NumBodies() || len(c.AddedBodies) != a.NumBodies() {
		t.Errorf("change = %+v", c)
	}

	// Roll back to the snapshot.
	if err := f.ed.Restore(snap); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if !reflect.DeepEqual(document(f.ed.Asset()), document(snap)) {
		t.Error("restore did not reproduce the snapshot")
	}
	// The restored state still enforces the forest.
	if _, err := f.ed.AddConstraint(f.head, f.root, angular()); !errors.Is(err, ErrWouldCreateCycle) {
		t.Errorf("AddConstraint after restore = %v, want ErrWouldCreateCycle", err)
	}
}

func TestPreviewRegenerateDoesNotCommit(t *testing.T) {
	f := newFixture(t, true)
	live := f.ed.Asset()
	before := document(live)
	rev := f.ed.Revision()

	preview, err := f.ed.PreviewRegenerate(generateOptions(t))
	if err != nil {
		t.Fatalf("PreviewRegenerate failed: %v", err)
	}
	if preview == live || preview.NumBodies() == 0 {
		t.Fatalf("preview = %p with %d bodies, live = %p", preview, preview.NumBodies(), live)
	}
	if f.ed.Asset() != live || f.ed.Revision() != rev || len(f.changes) != 0 {
		t.Error("preview changed editor state")
	}
	if !reflect.DeepEqual(document(live), before) {
		t.Error("preview mutated the live asset")
	}

	// Committing the preview goes through Restore.
	if err := f.ed.Restore(preview); err != nil {
		t.Fatalf("Restore(preview) failed: %v", err)
	}
	if len(f.changes) != 1 || f.changes[0].Op != OpRestore {
		t.Errorf("changes = %+v, want one restore", f.changes)
	}
}

func TestRegenerateStructuralError(t *testing.T) {
	broken := skeleton.New("broken", []skeleton.Bone{
		{Name: "root", Parent: skeleton.NoParent},
		{Name: "loose", Parent: 9},
	})
	ed := New(nil, broken, Options{})
	_, err := ed.RegenerateFromSkeleton(generateOptions(t))
	var se *skeleton.StructuralError
	if !errors.As(err, &se) || se.Bones[0] != "loose" {
		t.Errorf("err = %v, want structural error naming loose", err)
	}
	if ed.Revision() != 0 {
		t.Error("failed regenerate advanced the revision")
	}
}

func TestRegenerateRejectsInvalidResult(t *testing.T) {
	f := newFixture(t, false)
	live := f.ed.Asset()
	before := document(live)

	opts := generateOptions(t)
	opts.RadiusRatio = -1
	if _, err := f.ed.RegenerateFromSkeleton(opts); !errors.As(err, new(validate.Issues)) {
		t.Fatalf("RegenerateFromSkeleton = %v, want validation issues", err)
	}
	if f.ed.Asset() != live {
		t.Error("live asset replaced by an invalid one")
	}
	f.assertUnchanged(t, before)
}

func TestRegenerateEmptySkeleton(t *testing.T) {
	ed := New(nil, skeleton.New("empty", nil), Options{VerifyCommits: true})
	var changes []Change
	ed.Subscribe(func(c Change) { changes = append(changes, c) })
	a, err := ed.RegenerateFromSkeleton(generateOptions(t))
	if err != nil {
		t.Fatalf("RegenerateFromSkeleton failed: %v", err)
	}
	if a.NumBodies() != 0 || a.NumConstraints() != 0 {
		t.Errorf("got %d bodies, %d constraints", a.NumBodies(), a.NumConstraints())
	}
	if len(changes) != 1 || !changes[0].Empty() {
		t.Errorf("changes = %+v, want one empty change", changes)
	}
	if _, err := ed.AddBody("missing", sphere()); err == nil {
		t.Fatal("AddBody on unknown bone succeeded")
	}
	if len(changes) != 1 {
		t.Errorf("rejected edit emitted a change")
	}
}

func TestRestoreRejectsInvalid(t *testing.T) {
	f := newFixture(t, true)
	before := document(f.ed.Asset())
	bad := f.ed.Snapshot()
	bad.InsertConstraint(&asset.Constraint{Parent: f.head, Child: f.root})

	err := f.ed.Restore(bad)
	if !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("Restore = %v, want ErrValidationFailed", err)
	}
	var issues validate.Issues
	if !errors.As(err, &issues) || !issues.Has(validate.KindCycle) {
		t.Errorf("Restore issues = %v, want a cycle", issues)
	}
	f.assertUnchanged(t, before)
}

func TestVerifyCommitsRejectsNewIssues(t *testing.T) {
	f := newFixture(t, true)
	before := document(f.ed.Asset())
	err := f.ed.apply(OpAddConstraint, "", func(a *asset.PhysicsAsset) {
		a.InsertConstraint(&asset.Constraint{Parent: f.root, Child: f.root})
	})
	if !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("apply = %v, want ErrValidationFailed", err)
	}
	f.assertUnchanged(t, before)
}

func TestSetSkeletonReportsOrphans(t *testing.T) {
	f := newFixture(t, true)
	smaller := skeleton.New("biped", []skeleton.Bone{
		{Name: "root", Parent: skeleton.NoParent},
		{Name: "spine", Parent: 0, Local: up(1)},
		{Name: "head", Parent: 1, Local: up(1)},
	})
	issues := validate.Issues(f.ed.SetSkeleton(smaller, nil))
	if len(issues) != 1 || !issues.Has(validate.KindUnknownBone) || issues[0].Bone != "arm" {
		t.Errorf("issues = %v, want arm unknown", issues)
	}
	// Edits that leave the orphan alone still commit.
	if _, err := f.ed.AddPrimitive(f.head, sphere()); err != nil {
		t.Errorf("AddPrimitive with pre-existing issue failed: %v", err)
	}
	if err := f.ed.RemoveBody(f.arm); err != nil {
		t.Errorf("RemoveBody(arm) failed: %v", err)
	}
	if len(f.ed.Validate()) != 0 {
		t.Errorf("issues remain: %v", f.ed.Validate())
	}
}

func TestSubscribeCancel(t *testing.T) {
	ed := New(nil, testSkeleton(), Options{})
	var a, b int
	cancel := ed.Subscribe(func(Change) { a++ })
	ed.Subscribe(func(Change) { b++ })
	if _, err := ed.AddBody("root", sphere()); err != nil {
		t.Fatal(err)
	}
	cancel()
	if _, err := ed.AddBody("head", sphere()); err != nil {
		t.Fatal(err)
	}
	if a != 1 || b != 2 {
		t.Errorf("deliveries = %d, %d; want 1, 2", a, b)
	}
	if ed.Revision() != 2 {
		t.Errorf("Revision = %d, want 2", ed.Revision())
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	if !OptionsFromConfig(cfg).VerifyCommits {
		t.Error("VerifyCommits should default to true")
	}
}
