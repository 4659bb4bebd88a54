// Package report summarizes physics assets as CSV-ready rows.
package report

import (
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/pthm-cable/ragdoll/asset"
	"github.com/pthm-cable/ragdoll/skeleton"
	"github.com/pthm-cable/ragdoll/validate"
)

// BodyRow is one line of bodies.csv.
type BodyRow struct {
	ID             uint32  `csv:"id"`
	Bone           string  `csv:"bone"`
	Primitives     int     `csv:"primitives"`
	Kinds          string  `csv:"kinds"`
	Volume         float64 `csv:"volume"`
	Mass           float64 `csv:"mass"`
	MassOverride   bool    `csv:"mass_override"`
	LinearDamping  float64 `csv:"linear_damping"`
	AngularDamping float64 `csv:"angular_damping"`
	CollisionGroup uint32  `csv:"collision_group"`
	Degree         int     `csv:"constraints"`
	Tree           int     `csv:"tree"`
}

// ConstraintRow is one line of constraints.csv.
type ConstraintRow struct {
	ID             uint32  `csv:"id"`
	Parent         uint32  `csv:"parent"`
	ParentBone     string  `csv:"parent_bone"`
	Child          uint32  `csv:"child"`
	ChildBone      string  `csv:"child_bone"`
	LinearX        string  `csv:"linear_x"`
	LinearY        string  `csv:"linear_y"`
	LinearZ        string  `csv:"linear_z"`
	Swing1         string  `csv:"swing1"`
	Swing2         string  `csv:"swing2"`
	Twist          string  `csv:"twist"`
	BreakThreshold float64 `csv:"break_threshold"` // 0 = unbreakable
}

// Summary is one line of summary.csv.
type Summary struct {
	Revision    uint64 `csv:"revision"`
	Skeleton    string `csv:"skeleton"`
	Bones       int    `csv:"bones"`
	Bodies      int    `csv:"bodies"`
	Constraints int    `csv:"constraints"`
	Trees       int    `csv:"trees"`
	Incomplete  int    `csv:"incomplete"`
	Issues      int    `csv:"issues"`

	TotalMass float64 `csv:"total_mass"`
	MassMean  float64 `csv:"mass_mean"`
	MassP10   float64 `csv:"mass_p10"`
	MassP50   float64 `csv:"mass_p50"`
	MassP90   float64 `csv:"mass_p90"`
}

// Report holds every row derived from one asset.
type Report struct {
	Bodies      []BodyRow
	Constraints []ConstraintRow
	Summary     Summary
}

// Build derives a report. Mass uses density where a body has no override.
// skel may be nil.
func Build(a *asset.PhysicsAsset, skel *skeleton.Skeleton, density float64) *Report {
	r := &Report{}

	tree := make(map[asset.BodyID]int)
	components := validate.Components(a)
	for i, ids := range components {
		for _, id := range ids {
			tree[id] = i
		}
	}

	var masses []float64
	for _, b := range a.Bodies() {
		kinds := make([]string, len(b.Primitives))
		for i, p := range b.Primitives {
			kinds[i] = p.Kind.String()
		}
		mass := b.Mass(density)
		masses = append(masses, mass)
		r.Bodies = append(r.Bodies, BodyRow{
			ID:             uint32(b.ID),
			Bone:           b.Bone,
			Primitives:     len(b.Primitives),
			Kinds:          strings.Join(kinds, "+"),
			Volume:         b.Volume(),
			Mass:           mass,
			MassOverride:   b.Props.MassOverride > 0,
			LinearDamping:  b.Props.LinearDamping,
			AngularDamping: b.Props.AngularDamping,
			CollisionGroup: b.Props.CollisionGroup,
			Degree:         len(a.ConstraintsOf(b.ID)),
			Tree:           tree[b.ID],
		})
		if !b.Complete() {
			r.Summary.Incomplete++
		}
	}

	bone := func(id asset.BodyID) string {
		if b, ok := a.Body(id); ok {
			return b.Bone
		}
		return ""
	}
	for _, c := range a.Constraints() {
		row := ConstraintRow{
			ID:         uint32(c.ID),
			Parent:     uint32(c.Parent),
			ParentBone: bone(c.Parent),
			Child:      uint32(c.Child),
			ChildBone:  bone(c.Child),
			LinearX:    c.Limits.Linear[asset.AxisX].String(),
			LinearY:    c.Limits.Linear[asset.AxisY].String(),
			LinearZ:    c.Limits.Linear[asset.AxisZ].String(),
			Swing1:     c.Limits.Angular[asset.Swing1].String(),
			Swing2:     c.Limits.Angular[asset.Swing2].String(),
			Twist:      c.Limits.Angular[asset.Twist].String(),
		}
		if c.BreakThreshold != nil {
			row.BreakThreshold = *c.BreakThreshold
		}
		r.Constraints = append(r.Constraints, row)
	}

	s := &r.Summary
	s.Skeleton = a.Skeleton
	s.Bones = skel.Len()
	s.Bodies = a.NumBodies()
	s.Constraints = a.NumConstraints()
	s.Trees = len(components)
	s.Issues = len(validate.Asset(a, skel))
	s.TotalMass, s.MassMean, s.MassP10, s.MassP50, s.MassP90 = ComputeMassStats(masses)
	return r
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeMassStats returns total, mean and percentiles of body masses.
func ComputeMassStats(values []float64) (total, mean, p10, p50, p90 float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0, 0, 0
	}
	for _, v := range values {
		total += v
	}
	mean = total / float64(n)

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	return total, mean, Percentile(sorted, 0.10), Percentile(sorted, 0.50), Percentile(sorted, 0.90)
}

// LogValue implements slog.LogValuer for structured logging.
func (s Summary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("revision", s.Revision),
		slog.String("skeleton", s.Skeleton),
		slog.Int("bones", s.Bones),
		slog.Int("bodies", s.Bodies),
		slog.Int("constraints", s.Constraints),
		slog.Int("trees", s.Trees),
		slog.Int("incomplete", s.Incomplete),
		slog.Int("issues", s.Issues),
		slog.Float64("total_mass", roundMass(s.TotalMass)),
	)
}

func roundMass(m float64) float64 { return math.Round(m*1000) / 1000 }
