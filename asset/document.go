package asset

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/ragdoll/skeleton"
)

// DocumentVersion is incremented when the format changes.
const DocumentVersion = 1

// Document is the stable serialized form of a PhysicsAsset.
type Document struct {
	Version          int             `json:"version" yaml:"version"`
	Skeleton         string          `json:"skeleton" yaml:"skeleton"`
	NextBodyID       uint32          `json:"next_body_id,omitempty" yaml:"next_body_id,omitempty"`
	NextConstraintID uint32          `json:"next_constraint_id,omitempty" yaml:"next_constraint_id,omitempty"`
	Bodies           []BodyDoc       `json:"bodies" yaml:"bodies"`
	Constraints      []ConstraintDoc `json:"constraints" yaml:"constraints"`
}

// TransformDoc stores a translation and an (x, y, z, w) quaternion.
type TransformDoc struct {
	Translation [3]float64 `json:"translation" yaml:"translation,flow"`
	Rotation    [4]float64 `json:"rotation" yaml:"rotation,flow"`
}

// PrimitiveDoc is the serialized form of Primitive.
type PrimitiveDoc struct {
	Kind        string       `json:"kind" yaml:"kind"`
	Transform   TransformDoc `json:"transform" yaml:"transform"`
	Radius      float64      `json:"radius,omitempty" yaml:"radius,omitempty"`
	Length      float64      `json:"length,omitempty" yaml:"length,omitempty"`
	HalfExtents *[3]float64  `json:"half_extents,omitempty" yaml:"half_extents,flow,omitempty"`
	Vertices    [][3]float64 `json:"vertices,omitempty" yaml:"vertices,flow,omitempty"`
}

// BodyDoc is the serialized form of Body.
type BodyDoc struct {
	ID             uint32         `json:"id" yaml:"id"`
	Bone           string         `json:"bone" yaml:"bone"`
	Primitives     []PrimitiveDoc `json:"primitives" yaml:"primitives"`
	MassOverride   float64        `json:"mass_override,omitempty" yaml:"mass_override,omitempty"`
	LinearDamping  float64        `json:"linear_damping" yaml:"linear_damping"`
	AngularDamping float64        `json:"angular_damping" yaml:"angular_damping"`
	CollisionGroup uint32         `json:"collision_group" yaml:"collision_group"`
}

// AxisDoc is the serialized form of AxisLimit.
type AxisDoc struct {
	Motion string  `json:"motion" yaml:"motion"`
	Min    float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max    float64 `json:"max,omitempty" yaml:"max,omitempty"`
}

// ConstraintDoc is the serialized form of Constraint.
type ConstraintDoc struct {
	ID             uint32       `json:"id" yaml:"id"`
	Parent         uint32       `json:"parent" yaml:"parent"`
	Child          uint32       `json:"child" yaml:"child"`
	Linear         [3]AxisDoc   `json:"linear" yaml:"linear"`
	Angular        [3]AxisDoc   `json:"angular" yaml:"angular"`
	BreakThreshold *float64     `json:"break_threshold,omitempty" yaml:"break_threshold,omitempty"`
	ParentFrame    TransformDoc `json:"parent_frame" yaml:"parent_frame"`
	ChildFrame     TransformDoc `json:"child_frame" yaml:"child_frame"`
}

// ToDocument converts an asset to its serialized form. Entries are id-ordered.
func ToDocument(a *PhysicsAsset) *Document {
	doc := &Document{
		Version:          DocumentVersion,
		Skeleton:         a.Skeleton,
		NextBodyID:       uint32(a.nextBody),
		NextConstraintID: uint32(a.nextConstraint),
		Bodies:           []BodyDoc{},
		Constraints:      []ConstraintDoc{},
	}
	for _, b := range a.Bodies() {
		bd := BodyDoc{
			ID:             uint32(b.ID),
			Bone:           b.Bone,
			Primitives:     make([]PrimitiveDoc, 0, len(b.Primitives)),
			MassOverride:   b.Props.MassOverride,
			LinearDamping:  b.Props.LinearDamping,
			AngularDamping: b.Props.AngularDamping,
			CollisionGroup: b.Props.CollisionGroup,
		}
		for _, p := range b.Primitives {
			bd.Primitives = append(bd.Primitives, primitiveDoc(p))
		}
		doc.Bodies = append(doc.Bodies, bd)
	}
	for _, c := range a.Constraints() {
		cd := ConstraintDoc{
			ID:          uint32(c.ID),
			Parent:      uint32(c.Parent),
			Child:       uint32(c.Child),
			ParentFrame: transformDoc(c.ParentFrame),
			ChildFrame:  transformDoc(c.ChildFrame),
		}
		for i := 0; i < 3; i++ {
			cd.Linear[i] = axisDoc(c.Limits.Linear[i])
			cd.Angular[i] = axisDoc(c.Limits.Angular[i])
		}
		if c.BreakThreshold != nil {
			v := *c.BreakThreshold
			cd.BreakThreshold = &v
		}
		doc.Constraints = append(doc.Constraints, cd)
	}
	return doc
}

// Asset rebuilds a PhysicsAsset. It checks ids and enum names only;
// structural checks belong to the validate package.
func (d *Document) Asset() (*PhysicsAsset, error) {
	if d.Version > DocumentVersion {
		return nil, fmt.Errorf("document version %d is newer than supported %d", d.Version, DocumentVersion)
	}
	a := New(d.Skeleton)

	var maxBody BodyID
	for _, bd := range d.Bodies {
		id := BodyID(bd.ID)
		if id == 0 {
			return nil, fmt.Errorf("body on bone %q: id must be non-zero", bd.Bone)
		}
		if _, dup := a.bodies[id]; dup {
			return nil, fmt.Errorf("duplicate %s", id)
		}
		b := &Body{
			ID:   id,
			Bone: bd.Bone,
			Props: Properties{
				MassOverride:   bd.MassOverride,
				LinearDamping:  bd.LinearDamping,
				AngularDamping: bd.AngularDamping,
				CollisionGroup: bd.CollisionGroup,
			},
			Primitives: make([]Primitive, 0, len(bd.Primitives)),
		}
		for i, pd := range bd.Primitives {
			p, err := pd.primitive()
			if err != nil {
				return nil, fmt.Errorf("%s primitive %d: %w", id, i, err)
			}
			b.Primitives = append(b.Primitives, p)
		}
		a.bodies[id] = b
		if id > maxBody {
			maxBody = id
		}
	}

	var maxConstraint ConstraintID
	for _, cd := range d.Constraints {
		id := ConstraintID(cd.ID)
		if id == 0 {
			return nil, fmt.Errorf("constraint between body %d and %d: id must be non-zero", cd.Parent, cd.Child)
		}
		if _, dup := a.constraints[id]; dup {
			return nil, fmt.Errorf("duplicate %s", id)
		}
		c := &Constraint{
			ID:          id,
			Parent:      BodyID(cd.Parent),
			Child:       BodyID(cd.Child),
			ParentFrame: cd.ParentFrame.transform(),
			ChildFrame:  cd.ChildFrame.transform(),
		}
		for i := 0; i < 3; i++ {
			lin, err := cd.Linear[i].axis()
			if err != nil {
				return nil, fmt.Errorf("%s linear axis %d: %w", id, i, err)
			}
			ang, err := cd.Angular[i].axis()
			if err != nil {
				return nil, fmt.Errorf("%s angular axis %d: %w", id, i, err)
			}
			c.Limits.Linear[i] = lin
			c.Limits.Angular[i] = ang
		}
		if cd.BreakThreshold != nil {
			v := *cd.BreakThreshold
			c.BreakThreshold = &v
		}
		a.constraints[id] = c
		if id > maxConstraint {
			maxConstraint = id
		}
	}

	a.nextBody = BodyID(d.NextBodyID)
	if a.nextBody <= maxBody {
		a.nextBody = maxBody + 1
	}
	a.nextConstraint = ConstraintID(d.NextConstraintID)
	if a.nextConstraint <= maxConstraint {
		a.nextConstraint = maxConstraint + 1
	}
	return a, nil
}

func transformDoc(t skeleton.Transform) TransformDoc {
	q := t.Rotation
	return TransformDoc{
		Translation: [3]float64(t.Translation),
		Rotation:    [4]float64{q.V[0], q.V[1], q.V[2], q.W},
	}
}

func (td TransformDoc) transform() skeleton.Transform {
	r := td.Rotation
	return skeleton.Transform{
		Translation: mgl64.Vec3(td.Translation),
		Rotation:    mgl64.Quat{W: r[3], V: mgl64.Vec3{r[0], r[1], r[2]}},
	}
}

func primitiveDoc(p Primitive) PrimitiveDoc {
	pd := PrimitiveDoc{
		Kind:      p.Kind.String(),
		Transform: transformDoc(p.Local),
		Radius:    p.Radius,
		Length:    p.Length,
	}
	if p.HalfExtents != (mgl64.Vec3{}) {
		h := [3]float64(p.HalfExtents)
		pd.HalfExtents = &h
	}
	for _, v := range p.Vertices {
		pd.Vertices = append(pd.Vertices, [3]float64(v))
	}
	return pd
}

func (pd PrimitiveDoc) primitive() (Primitive, error) {
	kind, err := ParseKind(pd.Kind)
	if err != nil {
		return Primitive{}, err
	}
	p := Primitive{
		Kind:   kind,
		Local:  pd.Transform.transform(),
		Radius: pd.Radius,
		Length: pd.Length,
	}
	if pd.HalfExtents != nil {
		p.HalfExtents = mgl64.Vec3(*pd.HalfExtents)
	}
	for _, v := range pd.Vertices {
		p.Vertices = append(p.Vertices, mgl64.Vec3(v))
	}
	return p, nil
}

func axisDoc(a AxisLimit) AxisDoc {
	ad := AxisDoc{Motion: a.Motion.String()}
	if a.Motion == MotionLimited {
		ad.Min, ad.Max = a.Min, a.Max
	}
	return ad
}

func (ad AxisDoc) axis() (AxisLimit, error) {
	m, err := ParseMotion(ad.Motion)
	if err != nil {
		return AxisLimit{}, err
	}
	return AxisLimit{Motion: m, Min: ad.Min, Max: ad.Max}, nil
}

// Format selects a document encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatForPath picks a format from a file extension, defaulting to YAML.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Encode writes the asset in the given format.
func Encode(w io.Writer, a *PhysicsAsset, format Format) error {
	doc := ToDocument(a)
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode asset json: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode asset yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("encode asset yaml: %w", err)
		}
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	return nil
}

// Decode reads an asset in the given format.
func Decode(r io.Reader, format Format) (*PhysicsAsset, error) {
	var doc Document
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode asset json: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode asset yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
	return doc.Asset()
}

// Save writes an asset to disk, choosing the format from the extension.
func Save(path string, a *PhysicsAsset) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create asset dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create asset file: %w", err)
	}
	if err := Encode(f, a, FormatForPath(path)); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close asset file: %w", err)
	}
	return nil
}

// Load reads an asset from disk, choosing the format from the extension.
func Load(path string) (*PhysicsAsset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open asset: %w", err)
	}
	defer f.Close()
	return Decode(f, FormatForPath(path))
}
