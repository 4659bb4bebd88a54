// Package validate checks the structural invariants of a physics asset:
// constraints join two distinct existing bodies, the constraint graph is a
// forest, and every body is bound to a bone of its skeleton.
package validate

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/pthm-cable/ragdoll/asset"
	"github.com/pthm-cable/ragdoll/skeleton"
)

// Kind classifies an Issue.
type Kind uint8

const (
	KindDanglingBody Kind = iota
	KindSelfConstraint
	KindCycle
	KindUnknownBone
	KindInvalidPrimitive
	KindInvalidLimits
)

var kindNames = [...]string{
	"dangling_body",
	"self_constraint",
	"cycle",
	"unknown_bone",
	"invalid_primitive",
	"invalid_limits",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Issue is one violated invariant. Constraint, Body, Bone and Primitive
// are set where they apply and zero otherwise.
type Issue struct {
	Kind       Kind
	Constraint asset.ConstraintID
	Body       asset.BodyID
	Bone       string
	Primitive  int
	Message    string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Kind, i.Message)
}

// Key identifies an issue independently of its message.
func (i Issue) Key() string {
	return fmt.Sprintf("%d/%d/%d/%s/%d", i.Kind, i.Constraint, i.Body, i.Bone, i.Primitive)
}

// Issues is the error returned by Check.
type Issues []Issue

func (is Issues) Error() string {
	if len(is) == 1 {
		return "invalid asset: " + is[0].String()
	}
	parts := make([]string, len(is))
	for i, issue := range is {
		parts[i] = issue.String()
	}
	return fmt.Sprintf("invalid asset: %d issues: %s", len(is), strings.Join(parts, "; "))
}

// Has reports whether any issue is of kind k.
func (is Issues) Has(k Kind) bool {
	for _, i := range is {
		if i.Kind == k {
			return true
		}
	}
	return false
}

// Check returns nil when a is valid, else Issues.
func Check(a *asset.PhysicsAsset, skel *skeleton.Skeleton) error {
	if issues := Asset(a, skel); len(issues) > 0 {
		return Issues(issues)
	}
	return nil
}

// Asset lists every issue in a. Bone checks are skipped when skel is nil.
// Constraints are visited in id order, so when a cycle exists the
// constraint that closes it (the newest) is the one reported.
func Asset(a *asset.PhysicsAsset, skel *skeleton.Skeleton) []Issue {
	var issues []Issue

	g := simple.NewUndirectedGraph()
	for _, b := range a.Bodies() {
		g.AddNode(simple.Node(b.ID))
	}

	for _, c := range a.Constraints() {
		if is, ok := edgeIssue(a, g, c); ok {
			issues = append(issues, is)
		}
		if err := c.Limits.Validate(); err != nil {
			issues = append(issues, Issue{
				Kind:       KindInvalidLimits,
				Constraint: c.ID,
				Message:    fmt.Sprintf("%s: %v", c.ID, err),
			})
		}
	}

	for _, b := range a.Bodies() {
		if skel != nil && !skel.Has(b.Bone) {
			issues = append(issues, Issue{
				Kind:    KindUnknownBone,
				Body:    b.ID,
				Bone:    b.Bone,
				Message: fmt.Sprintf("%s bound to unknown bone %q", b.ID, b.Bone),
			})
		}
		for i, p := range b.Primitives {
			if err := p.Validate(); err != nil {
				issues = append(issues, Issue{
					Kind:      KindInvalidPrimitive,
					Body:      b.ID,
					Bone:      b.Bone,
					Primitive: i,
					Message:   fmt.Sprintf("%s primitive %d: %v", b.ID, i, err),
				})
			}
		}
	}
	return issues
}

// edgeIssue checks one constraint for a dangling body, a self joint or a
// cycle, in that order. A sound constraint is added to g.
func edgeIssue(a *asset.PhysicsAsset, g *simple.UndirectedGraph, c *asset.Constraint) (Issue, bool) {
	_, okParent := a.Body(c.Parent)
	_, okChild := a.Body(c.Child)
	if !okParent || !okChild {
		missing := c.Parent
		if okParent {
			missing = c.Child
		}
		return Issue{
			Kind:       KindDanglingBody,
			Constraint: c.ID,
			Body:       missing,
			Message:    fmt.Sprintf("%s references missing %s", c.ID, missing),
		}, true
	}
	if c.Parent == c.Child {
		return Issue{
			Kind:       KindSelfConstraint,
			Constraint: c.ID,
			Body:       c.Parent,
			Message:    fmt.Sprintf("%s joins %s to itself", c.ID, c.Parent),
		}, true
	}
	p, ch := simple.Node(c.Parent), simple.Node(c.Child)
	if g.HasEdgeBetween(p.ID(), ch.ID()) || topo.PathExistsIn(g, p, ch) {
		return Issue{
			Kind:       KindCycle,
			Constraint: c.ID,
			Message:    fmt.Sprintf("%s between %s and %s closes a cycle", c.ID, c.Parent, c.Child),
		}, true
	}
	g.SetEdge(simple.Edge{F: p, T: ch})
	return Issue{}, false
}

// Components groups bodies into the connected trees of the constraint
// graph. Bodies in each tree and the trees themselves are id-ordered.
// Dangling and self constraints are ignored.
func Components(a *asset.PhysicsAsset) [][]asset.BodyID {
	g := simple.NewUndirectedGraph()
	for _, b := range a.Bodies() {
		g.AddNode(simple.Node(b.ID))
	}
	for _, c := range a.Constraints() {
		if c.Parent == c.Child {
			continue
		}
		if _, ok := a.Body(c.Parent); !ok {
			continue
		}
		if _, ok := a.Body(c.Child); !ok {
			continue
		}
		g.SetEdge(simple.Edge{F: simple.Node(c.Parent), T: simple.Node(c.Child)})
	}

	var out [][]asset.BodyID
	for _, cc := range topo.ConnectedComponents(g) {
		ids := make([]asset.BodyID, len(cc))
		for i, n := range cc {
			ids[i] = asset.BodyID(n.ID())
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		out = append(out, ids)
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}
