package generate

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/mat"

	"github.com/pthm-cable/ragdoll/asset"
	"github.com/pthm-cable/ragdoll/skeleton"
)

const minHalf = 1e-4

// bounds is an oriented box in bone space. The frame's local Z is the
// longest axis.
type bounds struct {
	frame skeleton.Transform
	half  mgl64.Vec3
	cloud []mgl64.Vec3 // source points for convex fitting; nil = use corners
}

func (b bounds) corners() []mgl64.Vec3 {
	out := make([]mgl64.Vec3, 0, 8)
	for _, sx := range []float64{-1, 1} {
		for _, sy := range []float64{-1, 1} {
			for _, sz := range []float64{-1, 1} {
				out = append(out, b.frame.Apply(mgl64.Vec3{sx * b.half[0], sy * b.half[1], sz * b.half[2]}))
			}
		}
	}
	return out
}

// aabbSize returns the largest dimension of the axis-aligned box around pts.
func aabbSize(pts []mgl64.Vec3) float64 {
	if len(pts) == 0 {
		return 0
	}
	lo, hi := pts[0], pts[0]
	for _, p := range pts[1:] {
		for i := 0; i < 3; i++ {
			lo[i] = math.Min(lo[i], p[i])
			hi[i] = math.Max(hi[i], p[i])
		}
	}
	d := hi.Sub(lo)
	return math.Max(d[0], math.Max(d[1], d[2]))
}

// boundsFromExtent places an axis-aligned box of full size ext at center,
// turning the frame so the longest side lies on local Z.
func boundsFromExtent(center, ext mgl64.Vec3) bounds {
	h := ext.Mul(0.5)
	b := bounds{frame: skeleton.Translate(center)}
	switch {
	case ext[0] > ext[1] && ext[0] > ext[2]:
		// +90 about Y takes local Z to X and local X to -Z.
		b.frame.Rotation = mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 1, 0})
		b.half = mgl64.Vec3{h[2], h[1], h[0]}
	case ext[1] > ext[2]:
		// -90 about X takes local Z to Y and local Y to -Z.
		b.frame.Rotation = mgl64.QuatRotate(-math.Pi/2, mgl64.Vec3{1, 0, 0})
		b.half = mgl64.Vec3{h[0], h[2], h[1]}
	default:
		b.half = h
	}
	return b
}

// boundsFromSegment wraps the segment from the bone origin along dir with
// a tube of the given radius. half includes the end caps.
func boundsFromSegment(dir mgl64.Vec3, length, radius float64) bounds {
	rot := mgl64.QuatIdent()
	if dir.Len() > 1e-12 {
		rot = mgl64.QuatBetweenVectors(mgl64.Vec3{0, 0, 1}, dir)
	}
	return bounds{
		frame: skeleton.Transform{Translation: dir.Mul(length / 2), Rotation: rot},
		half:  mgl64.Vec3{radius, radius, length/2 + radius},
	}
}

// boundsFromCloud fits an oriented box to pts along their principal axes.
// Axes thinner than thickness × longest side are padded to that thickness.
func boundsFromCloud(pts []mgl64.Vec3, thickness float64) bounds {
	var c mgl64.Vec3
	for _, p := range pts {
		c = c.Add(p)
	}
	c = c.Mul(1 / float64(len(pts)))

	var cov [9]float64
	for _, p := range pts {
		d := p.Sub(c)
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				cov[i*3+j] += d[i] * d[j]
			}
		}
	}
	for i := range cov {
		cov[i] /= float64(len(pts))
	}

	axes := [3]mgl64.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	var eig mat.EigenSym
	if eig.Factorize(mat.NewSymDense(3, cov[:]), true) {
		var vecs mat.Dense
		eig.VectorsTo(&vecs)
		// Eigenvalues ascend, so column 2 is the principal axis.
		for k := 0; k < 3; k++ {
			axes[k] = mgl64.Vec3{vecs.At(0, k), vecs.At(1, k), vecs.At(2, k)}.Normalize()
		}
		axes[1] = axes[2].Cross(axes[0]).Normalize()
	}

	var lo, hi mgl64.Vec3
	for k := 0; k < 3; k++ {
		lo[k], hi[k] = math.Inf(1), math.Inf(-1)
	}
	for _, p := range pts {
		d := p.Sub(c)
		for k := 0; k < 3; k++ {
			v := d.Dot(axes[k])
			lo[k] = math.Min(lo[k], v)
			hi[k] = math.Max(hi[k], v)
		}
	}

	var half mgl64.Vec3
	center := c
	for k := 0; k < 3; k++ {
		half[k] = (hi[k] - lo[k]) / 2
		center = center.Add(axes[k].Mul((hi[k] + lo[k]) / 2))
	}

	// PCA ordering follows variance, not extent. Swap so Z is the longest.
	if half[0] > half[2] {
		axes[0], axes[2] = axes[2], axes[0].Mul(-1)
		half[0], half[2] = half[2], half[0]
	}
	if half[1] > half[2] {
		axes[1], axes[2] = axes[2], axes[1].Mul(-1)
		half[1], half[2] = half[2], half[1]
	}

	floor := math.Max(2*half[2]*thickness, minHalf)
	for k := 0; k < 3; k++ {
		if half[k] < floor {
			half[k] = floor
		}
	}

	rot := mgl64.Mat4ToQuat(mgl64.Mat3FromCols(axes[0], axes[1], axes[2]).Mat4()).Normalize()
	return bounds{
		frame: skeleton.Transform{Translation: center, Rotation: rot},
		half:  half,
		cloud: pts,
	}
}

// primitive converts bounds to the requested shape.
func (b bounds) primitive(kind asset.Kind, maxHullVerts int) asset.Primitive {
	switch kind {
	case asset.KindSphere:
		r := math.Max(b.half[0], math.Max(b.half[1], b.half[2]))
		return asset.NewSphere(skeleton.Translate(b.frame.Translation), r)
	case asset.KindCapsule:
		r := math.Max(b.half[0], b.half[1])
		return asset.NewCapsule(b.frame, r, math.Max(0, 2*(b.half[2]-r)))
	case asset.KindConvex:
		src := b.cloud
		if len(src) < 4 {
			src = b.corners()
		}
		verts := supportHull(src, maxHullVerts)
		if len(verts) < 4 {
			verts = supportHull(b.corners(), maxHullVerts)
		}
		if len(verts) < 4 {
			return asset.NewBox(b.frame, b.half)
		}
		return asset.NewConvex(skeleton.Identity(), verts)
	default:
		return asset.NewBox(b.frame, b.half)
	}
}

// hullDirections are the 26 directions to the faces, edges and corners of a cube.
var hullDirections = func() []mgl64.Vec3 {
	var dirs []mgl64.Vec3
	for _, n := range []int{1, 2, 3} {
		for x := -1; x <= 1; x++ {
			for y := -1; y <= 1; y++ {
				for z := -1; z <= 1; z++ {
					if abs(x)+abs(y)+abs(z) != n {
						continue
					}
					dirs = append(dirs, mgl64.Vec3{float64(x), float64(y), float64(z)}.Normalize())
				}
			}
		}
	}
	return dirs
}()

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// supportHull returns the distinct extreme points of pts along each of
// hullDirections, faces first, stopping at limit vertices.
func supportHull(pts []mgl64.Vec3, limit int) []mgl64.Vec3 {
	if limit < 4 {
		limit = 4
	}
	var out []mgl64.Vec3
	seen := make(map[int]bool)
	for _, d := range hullDirections {
		best, bestDot := -1, math.Inf(-1)
		for i, p := range pts {
			if v := p.Dot(d); v > bestDot+1e-12 {
				best, bestDot = i, v
			}
		}
		if best < 0 || seen[best] {
			continue
		}
		dup := false
		for _, o := range out {
			if o.ApproxEqualThreshold(pts[best], 1e-9) {
				dup = true
				break
			}
		}
		seen[best] = true
		if dup {
			continue
		}
		out = append(out, pts[best])
		if len(out) == limit {
			break
		}
	}
	return out
}
