package report

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/ragdoll/asset"
	"github.com/pthm-cable/ragdoll/config"
	"github.com/pthm-cable/ragdoll/skeleton"
)

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"empty slice", []float64{}, 0.5, 0},
		{"single element", []float64{5.0}, 0.5, 5.0},
		{"p0", []float64{1, 2, 3, 4, 5}, 0.0, 1.0},
		{"p100", []float64{1, 2, 3, 4, 5}, 1.0, 5.0},
		{"p50 even", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"p90", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.9, 9.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percentile(tt.sorted, tt.p)
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("Percentile(%v, %v) = %v, want %v", tt.sorted, tt.p, got, tt.want)
			}
		})
	}
}

func sampleAsset() (*asset.PhysicsAsset, *skeleton.Skeleton) {
	skel := skeleton.New("pair", []skeleton.Bone{
		{Name: "root", Parent: skeleton.NoParent},
		{Name: "arm", Parent: 0, Local: skeleton.Translate(mgl64.Vec3{1, 0, 0})},
	})
	a := asset.New("pair")
	root := a.InsertBody(&asset.Body{
		Bone:       "root",
		Primitives: []asset.Primitive{asset.NewBox(skeleton.Identity(), mgl64.Vec3{0.5, 0.5, 0.5})},
	})
	arm := a.InsertBody(&asset.Body{
		Bone:       "arm",
		Primitives: []asset.Primitive{asset.NewSphere(skeleton.Identity(), 0.1), asset.NewBox(skeleton.Identity(), mgl64.Vec3{0.1, 0.1, 0.1})},
		Props:      asset.Properties{MassOverride: 3},
	})
	a.InsertBody(&asset.Body{Bone: "arm"})
	brk := 100.0
	a.InsertConstraint(&asset.Constraint{
		Parent:         root,
		Child:          arm,
		Limits:         asset.Limits{Angular: [3]asset.AxisLimit{asset.Limited(-10, 10), asset.Free(), asset.Locked()}},
		BreakThreshold: &brk,
	})
	return a, skel
}

func TestBuild(t *testing.T) {
	a, skel := sampleAsset()
	r := Build(a, skel, 1000)

	if len(r.Bodies) != 3 || len(r.Constraints) != 1 {
		t.Fatalf("got %d body rows, %d constraint rows", len(r.Bodies), len(r.Constraints))
	}
	root := r.Bodies[0]
	if root.Mass != 1000 || root.MassOverride || root.Degree != 1 {
		t.Errorf("root row = %+v", root)
	}
	arm := r.Bodies[1]
	if arm.Kinds != "sphere+box" || arm.Mass != 3 || !arm.MassOverride || arm.Tree != root.Tree {
		t.Errorf("arm row = %+v", arm)
	}
	if r.Bodies[2].Tree == root.Tree {
		t.Error("lone body shares a tree with root")
	}

	c := r.Constraints[0]
	if c.ParentBone != "root" || c.ChildBone != "arm" || c.Swing1 != "limited[-10,10]" || c.Swing2 != "free" || c.BreakThreshold != 100 {
		t.Errorf("constraint row = %+v", c)
	}

	s := r.Summary
	if s.Bones != 2 || s.Bodies != 3 || s.Trees != 2 || s.Incomplete != 1 || s.Issues != 0 {
		t.Errorf("summary = %+v", s)
	}
	if math.Abs(s.TotalMass-1003) > 1e-9 {
		t.Errorf("total mass = %v, want 1003", s.TotalMass)
	}
}

func TestNilWriterIsNoop(t *testing.T) {
	w, err := NewWriter("")
	if err != nil || w != nil {
		t.Fatalf("NewWriter(\"\") = %v, %v", w, err)
	}
	if err := w.WriteReport(&Report{}); err != nil {
		t.Error(err)
	}
	if err := w.Close(); err != nil {
		t.Error(err)
	}
}

func TestWriterOutputs(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	w, err := NewWriter(dir)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}

	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteConfig(cfg); err != nil {
		t.Fatalf("WriteConfig failed: %v", err)
	}

	a, skel := sampleAsset()
	r := Build(a, skel, cfg.Body.Density)
	for rev := uint64(1); rev <= 2; rev++ {
		r.Summary.Revision = rev
		if err := w.WriteReport(r); err != nil {
			t.Fatalf("WriteReport failed: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, "bodies.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	var bodies []BodyRow
	if err := gocsv.UnmarshalFile(f, &bodies); err != nil {
		t.Fatalf("reading bodies.csv: %v", err)
	}
	if len(bodies) != 3 || bodies[1].Bone != "arm" {
		t.Errorf("bodies.csv = %+v", bodies)
	}

	data, err := os.ReadFile(filepath.Join(dir, "summary.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "revision,") {
		t.Errorf("summary.csv = %q, want header plus 2 rows", data)
	}

	if _, err := config.Load(filepath.Join(dir, "config.yaml")); err != nil {
		t.Errorf("written config does not load: %v", err)
	}
}
