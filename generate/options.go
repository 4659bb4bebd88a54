package generate

import (
	"fmt"

	"github.com/pthm-cable/ragdoll/asset"
	"github.com/pthm-cable/ragdoll/config"
)

// Options controls body selection and primitive fitting.
type Options struct {
	// MinBoneSize is the size below which a bone folds into its nearest
	// ancestor body.
	MinBoneSize float64
	// Primitive is the shape fit to each body.
	Primitive asset.Kind
	// BodyForAll gives every bone with non-zero size its own body.
	BodyForAll bool
	// RadiusRatio sets capsule radius relative to bone length when a bone
	// has no geometry hints, and the minimum thickness of fitted clouds.
	RadiusRatio float64
	// MaxHullVerts caps convex hull vertices.
	MaxHullVerts int

	Limits         asset.Limits
	BreakThreshold float64 // 0 = unbreakable
	Body           asset.Properties
}

// OptionsFromConfig builds Options from the generation, body and
// constraint sections of cfg.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	kind, err := asset.ParseKind(cfg.Generation.Primitive)
	if err != nil {
		return Options{}, fmt.Errorf("generation.primitive: %w", err)
	}
	opts := Options{
		MinBoneSize:    cfg.Generation.MinBoneSize,
		Primitive:      kind,
		BodyForAll:     cfg.Generation.BodyForAll,
		RadiusRatio:    cfg.Generation.RadiusRatio,
		MaxHullVerts:   cfg.Generation.MaxHullVerts,
		BreakThreshold: cfg.Constraint.BreakThreshold,
		Body: asset.Properties{
			LinearDamping:  cfg.Body.LinearDamping,
			AngularDamping: cfg.Body.AngularDamping,
			CollisionGroup: cfg.Body.CollisionGroup,
		},
	}

	lin := cfg.Constraint.Linear
	ang := cfg.Constraint.Angular
	axes := []struct {
		name string
		src  config.AxisConfig
		dst  *asset.AxisLimit
	}{
		{"linear.x", lin.X, &opts.Limits.Linear[asset.AxisX]},
		{"linear.y", lin.Y, &opts.Limits.Linear[asset.AxisY]},
		{"linear.z", lin.Z, &opts.Limits.Linear[asset.AxisZ]},
		{"angular.swing1", ang.Swing1, &opts.Limits.Angular[asset.Swing1]},
		{"angular.swing2", ang.Swing2, &opts.Limits.Angular[asset.Swing2]},
		{"angular.twist", ang.Twist, &opts.Limits.Angular[asset.Twist]},
	}
	for _, ax := range axes {
		m, err := asset.ParseMotion(ax.src.Motion)
		if err != nil {
			return Options{}, fmt.Errorf("constraint.%s: %w", ax.name, err)
		}
		*ax.dst = asset.AxisLimit{Motion: m}
		if m == asset.MotionLimited {
			ax.dst.Min, ax.dst.Max = ax.src.Min, ax.src.Max
		}
	}
	if err := opts.Limits.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}
