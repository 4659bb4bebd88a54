package asset

import (
	"errors"
	"fmt"
	"math"

	"github.com/pthm-cable/ragdoll/skeleton"
)

// ConstraintID identifies a constraint within one PhysicsAsset.
type ConstraintID uint32

func (id ConstraintID) String() string { return fmt.Sprintf("constraint:%d", uint32(id)) }

// Motion describes the freedom of one constraint axis.
type Motion uint8

const (
	MotionLocked Motion = iota
	MotionLimited
	MotionFree
)

var motionNames = [...]string{"locked", "limited", "free"}

func (m Motion) String() string {
	if int(m) < len(motionNames) {
		return motionNames[m]
	}
	return fmt.Sprintf("motion(%d)", m)
}

// ParseMotion converts "locked", "limited" or "free" to a Motion.
func ParseMotion(s string) (Motion, error) {
	for i, n := range motionNames {
		if n == s {
			return Motion(i), nil
		}
	}
	return 0, fmt.Errorf("unknown motion %q", s)
}

// AxisLimit is the motion of a single axis. Min and Max apply only when limited.
type AxisLimit struct {
	Motion Motion
	Min    float64
	Max    float64
}

// Locked returns a locked axis.
func Locked() AxisLimit { return AxisLimit{Motion: MotionLocked} }

// Free returns an unconstrained axis.
func Free() AxisLimit { return AxisLimit{Motion: MotionFree} }

// Limited returns an axis limited to [min, max].
func Limited(min, max float64) AxisLimit { return AxisLimit{Motion: MotionLimited, Min: min, Max: max} }

func (a AxisLimit) String() string {
	if a.Motion == MotionLimited {
		return fmt.Sprintf("limited[%g,%g]", a.Min, a.Max)
	}
	return a.Motion.String()
}

// Axis indices for Limits.Linear and Limits.Angular.
const (
	AxisX = 0
	AxisY = 1
	AxisZ = 2

	Swing1 = 0
	Swing2 = 1
	Twist  = 2
)

// Limits holds linear (X, Y, Z) and angular (swing1, swing2, twist) motion.
// Angular ranges are in degrees.
type Limits struct {
	Linear  [3]AxisLimit
	Angular [3]AxisLimit
}

// ErrInvalidLimits is returned by Limits.Validate.
var ErrInvalidLimits = errors.New("invalid constraint limits")

// Validate checks motions are known and every limited range is ordered and finite.
func (l Limits) Validate() error {
	check := func(kind string, i int, a AxisLimit) error {
		if a.Motion > MotionFree {
			return fmt.Errorf("%w: %s axis %d: unknown motion %d", ErrInvalidLimits, kind, i, a.Motion)
		}
		if a.Motion != MotionLimited {
			return nil
		}
		if math.IsNaN(a.Min) || math.IsNaN(a.Max) || math.IsInf(a.Min, 0) || math.IsInf(a.Max, 0) {
			return fmt.Errorf("%w: %s axis %d: non-finite range", ErrInvalidLimits, kind, i)
		}
		if a.Min > a.Max {
			return fmt.Errorf("%w: %s axis %d: min %g > max %g", ErrInvalidLimits, kind, i, a.Min, a.Max)
		}
		return nil
	}
	for i, a := range l.Linear {
		if err := check("linear", i, a); err != nil {
			return err
		}
	}
	for i, a := range l.Angular {
		if err := check("angular", i, a); err != nil {
			return err
		}
	}
	return nil
}

// Constraint joins a parent body to a child body.
// ParentFrame and ChildFrame place the joint in each body's space.
type Constraint struct {
	ID             ConstraintID
	Parent         BodyID
	Child          BodyID
	Limits         Limits
	BreakThreshold *float64 // nil = unbreakable
	ParentFrame    skeleton.Transform
	ChildFrame     skeleton.Transform
}

// Breakable reports whether the constraint has a break threshold.
func (c *Constraint) Breakable() bool { return c.BreakThreshold != nil }

// Involves reports whether the constraint references body id.
func (c *Constraint) Involves(id BodyID) bool { return c.Parent == id || c.Child == id }

// Other returns the body on the opposite end from id.
func (c *Constraint) Other(id BodyID) BodyID {
	if c.Parent == id {
		return c.Child
	}
	return c.Parent
}

// Clone returns a deep copy.
func (c *Constraint) Clone() *Constraint {
	cc := *c
	if c.BreakThreshold != nil {
		v := *c.BreakThreshold
		cc.BreakThreshold = &v
	}
	return &cc
}
