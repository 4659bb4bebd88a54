// Package generate derives an initial physics asset from a skeleton and
// optional per-bone geometry hints.
package generate

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/pthm-cable/ragdoll/asset"
	"github.com/pthm-cable/ragdoll/skeleton"
	"github.com/pthm-cable/ragdoll/validate"
)

type source uint8

const (
	sourceNone source = iota
	sourceSegment
	sourceExtent
	sourcePoints
)

// measure is a bone's own geometry in its local space.
type measure struct {
	src    source
	size   float64
	points []mgl64.Vec3 // what the bone contributes when folded
}

// cluster collects the geometry for one body.
type cluster struct {
	bone   int
	own    measure
	folded []mgl64.Vec3 // geometry of folded bones in this bone's space
	body   asset.BodyID
}

// Generate builds a physics asset with one body per significant bone and
// one constraint from each body to its nearest ancestor body.
//
// A skeleton with no bones gives an empty asset. A structurally broken
// skeleton returns its *skeleton.StructuralError wrapped; no partial
// asset is returned. Hint geometry that is not finite, and extents that
// are not positive on every axis, are ignored. The result is checked with
// validate.Check and its issues are returned as an error instead.
func Generate(skel *skeleton.Skeleton, hints skeleton.Hints, opts Options) (*asset.PhysicsAsset, error) {
	if skel.Len() == 0 {
		name := ""
		if skel != nil {
			name = skel.Name()
		}
		return asset.New(name), nil
	}
	if err := skel.Validate(); err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	hints = usableHints(hints)
	worlds := skel.WorldTransforms()
	owner := make([]int, skel.Len())
	clusters := make(map[int]*cluster)
	order := skel.Order()

	for _, i := range order {
		m := measureBone(skel, i, hints, opts)
		parent := skel.Bone(i).Parent

		if significant(m, opts) {
			owner[i] = i
			clusters[i] = &cluster{bone: i, own: m}
			continue
		}
		owner[i] = skeleton.NoParent
		if parent == skeleton.NoParent || owner[parent] == skeleton.NoParent {
			slog.Debug("skipping bone without ancestor body", "bone", skel.Bone(i).Name, "size", m.size)
			continue
		}
		host := owner[parent]
		owner[i] = host
		rel := skel.RelativeTransform(worlds, host, i)
		c := clusters[host]
		for _, p := range m.points {
			c.folded = append(c.folded, rel.Apply(p))
		}
		slog.Debug("folded bone", "bone", skel.Bone(i).Name, "into", skel.Bone(host).Name, "size", m.size)
	}

	a := asset.New(skel.Name())
	for _, i := range order {
		c, ok := clusters[i]
		if !ok {
			continue
		}
		b := fitCluster(skel, i, c, hints, opts)
		body := &asset.Body{
			Bone:       skel.Bone(i).Name,
			Primitives: []asset.Primitive{b.primitive(opts.Primitive, opts.MaxHullVerts)},
			Props:      opts.Body,
		}
		c.body = a.InsertBody(body)

		parent := skel.Bone(i).Parent
		if parent == skeleton.NoParent || owner[parent] == skeleton.NoParent {
			continue
		}
		host := clusters[owner[parent]]
		k := &asset.Constraint{
			Parent:      host.body,
			Child:       c.body,
			Limits:      opts.Limits,
			ParentFrame: skel.RelativeTransform(worlds, host.bone, i),
			ChildFrame:  skeleton.Identity(),
		}
		if opts.BreakThreshold > 0 {
			v := opts.BreakThreshold
			k.BreakThreshold = &v
		}
		a.InsertConstraint(k)
	}

	slog.Debug("generated physics asset",
		"skeleton", skel.Name(),
		"bones", skel.Len(),
		"bodies", a.NumBodies(),
		"constraints", a.NumConstraints(),
	)
	if err := validate.Check(a, skel); err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	return a, nil
}

// usableHints drops hint geometry no primitive can be fit to.
func usableHints(hints skeleton.Hints) skeleton.Hints {
	out := make(skeleton.Hints, len(hints))
	for name, h := range hints {
		var pts []mgl64.Vec3
		for _, p := range h.Points {
			if finite(p) {
				pts = append(pts, p)
			}
		}
		if len(pts) < len(h.Points) {
			slog.Debug("dropping non-finite hint points", "bone", name, "dropped", len(h.Points)-len(pts))
		}
		h.Points = pts
		if h.Extent != (mgl64.Vec3{}) && !(finite(h.Center) && finite(h.Extent) && min(h.Extent[0], h.Extent[1], h.Extent[2]) > 0) {
			slog.Debug("dropping unusable hint extent", "bone", name, "center", h.Center, "extent", h.Extent)
			h.Center, h.Extent = mgl64.Vec3{}, mgl64.Vec3{}
		}
		if !h.Empty() {
			out[name] = h
		}
	}
	return out
}

func finite(v mgl64.Vec3) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func significant(m measure, opts Options) bool {
	if m.size <= 0 {
		return false
	}
	return opts.BodyForAll || m.size >= opts.MinBoneSize
}

// measureBone sizes bone i from, in order of preference, hint points, hint
// extent, or the bone's length.
func measureBone(skel *skeleton.Skeleton, i int, hints skeleton.Hints, opts Options) measure {
	h := hints[skel.Bone(i).Name]
	switch {
	case len(h.Points) > 0:
		return measure{src: sourcePoints, size: aabbSize(h.Points), points: h.Points}
	case h.Extent != (mgl64.Vec3{}):
		b := boundsFromExtent(h.Center, h.Extent)
		return measure{
			src:    sourceExtent,
			size:   max(h.Extent[0], h.Extent[1], h.Extent[2]),
			points: b.corners(),
		}
	}
	length := skel.BoneLength(i)
	if length <= 0 {
		// A leaf's origin is already the end of its parent's segment.
		return measure{src: sourceNone}
	}
	pts := []mgl64.Vec3{{}}
	for _, c := range skel.Children(i) {
		pts = append(pts, skel.Bone(c).Local.Translation)
	}
	return measure{src: sourceSegment, size: length, points: pts}
}

// fitCluster fits bounds to a body's geometry. Bones with nothing folded
// into them keep the exact shape of their source.
func fitCluster(skel *skeleton.Skeleton, i int, c *cluster, hints skeleton.Hints, opts Options) bounds {
	if len(c.folded) == 0 {
		switch c.own.src {
		case sourceExtent:
			h := hints[skel.Bone(i).Name]
			return boundsFromExtent(h.Center, h.Extent)
		case sourceSegment:
			length := skel.BoneLength(i)
			return boundsFromSegment(skel.BoneDirection(i), length, length*opts.RadiusRatio)
		}
	}
	cloud := make([]mgl64.Vec3, 0, len(c.own.points)+len(c.folded))
	cloud = append(cloud, c.own.points...)
	cloud = append(cloud, c.folded...)
	return boundsFromCloud(cloud, opts.RadiusRatio)
}
