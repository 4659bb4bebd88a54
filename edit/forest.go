package edit

import "github.com/pthm-cable/ragdoll/asset"

// forest is a union-find over body ids mirroring the constraint graph.
// Unions are incremental; removals cannot be undone in place, so they mark
// the forest stale and the next query rebuilds it.
type forest struct {
	parent map[asset.BodyID]asset.BodyID
	rank   map[asset.BodyID]uint8
	stale  bool
}

func newForest() *forest {
	return &forest{stale: true}
}

// build resets the forest from a, skipping the excluded constraint.
func (f *forest) build(a *asset.PhysicsAsset, exclude asset.ConstraintID) {
	f.parent = make(map[asset.BodyID]asset.BodyID, a.NumBodies())
	f.rank = make(map[asset.BodyID]uint8, a.NumBodies())
	for _, c := range a.Constraints() {
		if c.ID == exclude || c.Parent == c.Child {
			continue
		}
		f.union(c.Parent, c.Child)
	}
	f.stale = false
}

func (f *forest) sync(a *asset.PhysicsAsset) {
	if f.stale {
		f.build(a, 0)
	}
}

func (f *forest) find(x asset.BodyID) asset.BodyID {
	p, ok := f.parent[x]
	if !ok {
		return x
	}
	if p == x {
		return x
	}
	root := f.find(p)
	f.parent[x] = root
	return root
}

// union joins the trees of x and y and reports false when they were
// already joined.
func (f *forest) union(x, y asset.BodyID) bool {
	rx, ry := f.find(x), f.find(y)
	if rx == ry {
		return false
	}
	if _, ok := f.parent[rx]; !ok {
		f.parent[rx] = rx
	}
	if _, ok := f.parent[ry]; !ok {
		f.parent[ry] = ry
	}
	switch {
	case f.rank[rx] < f.rank[ry]:
		f.parent[rx] = ry
	case f.rank[rx] > f.rank[ry]:
		f.parent[ry] = rx
	default:
		f.parent[ry] = rx
		f.rank[rx]++
	}
	return true
}

func (f *forest) connected(x, y asset.BodyID) bool {
	return f.find(x) == f.find(y)
}

func (f *forest) invalidate() { f.stale = true }
