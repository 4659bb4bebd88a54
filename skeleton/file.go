package skeleton

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

// Document is the on-disk YAML form of a skeleton plus optional geometry.
type Document struct {
	Name  string             `yaml:"name"`
	Bones []BoneDoc          `yaml:"bones"`
	Hints map[string]HintDoc `yaml:"hints,omitempty"`
	Skin  []VertexDoc        `yaml:"skin,omitempty"`
}

// BoneDoc describes one bone. Parent is referenced by name ("" = root).
// Quat (x, y, z, w) takes precedence over Rotation (Euler XYZ degrees).
type BoneDoc struct {
	Name        string      `yaml:"name"`
	Parent      string      `yaml:"parent,omitempty"`
	Translation [3]float64  `yaml:"translation,flow"`
	Rotation    [3]float64  `yaml:"rotation,flow,omitempty"`
	Quat        *[4]float64 `yaml:"quat,flow,omitempty"`
}

// HintDoc is the YAML form of Hint.
type HintDoc struct {
	Center [3]float64   `yaml:"center,flow,omitempty"`
	Extent [3]float64   `yaml:"extent,flow,omitempty"`
	Points [][3]float64 `yaml:"points,flow,omitempty"`
}

// VertexDoc is the YAML form of SkinnedVertex.
type VertexDoc struct {
	Position [3]float64         `yaml:"position,flow"`
	Weights  map[string]float64 `yaml:"weights,flow"`
}

// File is a decoded skeleton document.
type File struct {
	Skeleton *Skeleton
	Hints    Hints
	Skin     []SkinnedVertex
}

// Load reads a skeleton document from disk.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open skeleton: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses a skeleton document. Unknown parent names become dangling
// parent indices so Validate can report them together with other faults.
func Decode(r io.Reader) (*File, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode skeleton: %w", err)
	}
	return doc.File(), nil
}

// File converts the document to runtime types.
func (d *Document) File() *File {
	index := make(map[string]int, len(d.Bones))
	for i, b := range d.Bones {
		if _, dup := index[b.Name]; !dup {
			index[b.Name] = i
		}
	}

	bones := make([]Bone, len(d.Bones))
	for i, b := range d.Bones {
		parent := NoParent
		if b.Parent != "" {
			p, ok := index[b.Parent]
			if !ok {
				p = len(d.Bones) // dangling
			}
			parent = p
		}
		local := NewTransform(mgl64.Vec3(b.Translation), mgl64.Vec3(b.Rotation))
		if b.Quat != nil {
			q := mgl64.Quat{W: b.Quat[3], V: mgl64.Vec3{b.Quat[0], b.Quat[1], b.Quat[2]}}
			local.Rotation = q.Normalize()
		}
		bones[i] = Bone{Name: b.Name, Parent: parent, Local: local}
	}

	hints := make(Hints, len(d.Hints))
	for name, h := range d.Hints {
		hint := Hint{Center: mgl64.Vec3(h.Center), Extent: mgl64.Vec3(h.Extent)}
		for _, p := range h.Points {
			hint.Points = append(hint.Points, mgl64.Vec3(p))
		}
		hints[name] = hint
	}

	skin := make([]SkinnedVertex, 0, len(d.Skin))
	for _, v := range d.Skin {
		sv := SkinnedVertex{Position: mgl64.Vec3(v.Position)}
		names := make([]string, 0, len(v.Weights))
		for bone := range v.Weights {
			names = append(names, bone)
		}
		sort.Strings(names)
		for _, bone := range names {
			sv.Influences = append(sv.Influences, Influence{Bone: bone, Weight: v.Weights[bone]})
		}
		skin = append(skin, sv)
	}

	return &File{Skeleton: New(d.Name, bones), Hints: hints, Skin: skin}
}

// ResolveHints merges explicit hints with hints derived from skinned vertices.
// Explicit hints win for bones that have both.
func (f *File) ResolveHints(mode WeightMode, threshold float64) (Hints, error) {
	out := make(Hints, len(f.Hints))
	if len(f.Skin) > 0 {
		skin, err := HintsFromSkin(f.Skeleton, f.Skin, mode, threshold)
		if err != nil {
			return nil, err
		}
		for name, h := range skin {
			out[name] = h
		}
	}
	for name, h := range f.Hints {
		out[name] = h
	}
	return out, nil
}

// NewDocument converts a skeleton and hints back to document form.
// Rotations are written as quaternions so the round trip is exact.
func NewDocument(s *Skeleton, hints Hints) *Document {
	doc := &Document{Name: s.Name()}
	for _, b := range s.bones {
		bd := BoneDoc{Name: b.Name, Translation: [3]float64(b.Local.Translation)}
		if b.Parent >= 0 && b.Parent < len(s.bones) {
			bd.Parent = s.bones[b.Parent].Name
		}
		q := b.Local.rot()
		bd.Quat = &[4]float64{q.V[0], q.V[1], q.V[2], q.W}
		doc.Bones = append(doc.Bones, bd)
	}
	if len(hints) > 0 {
		doc.Hints = make(map[string]HintDoc, len(hints))
		for name, h := range hints {
			hd := HintDoc{Center: [3]float64(h.Center), Extent: [3]float64(h.Extent)}
			for _, p := range h.Points {
				hd.Points = append(hd.Points, [3]float64(p))
			}
			doc.Hints[name] = hd
		}
	}
	return doc
}

// Save writes a skeleton document to disk.
func Save(path string, s *Skeleton, hints Hints) error {
	data, err := yaml.Marshal(NewDocument(s, hints))
	if err != nil {
		return fmt.Errorf("marshal skeleton: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write skeleton: %w", err)
	}
	return nil
}
