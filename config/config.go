// Package config provides configuration loading for physics-asset generation and editing.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all generation, editing and tooling parameters.
type Config struct {
	Generation GenerationConfig `yaml:"generation"`
	Body       BodyConfig       `yaml:"body"`
	Constraint ConstraintConfig `yaml:"constraint"`
	Editing    EditingConfig    `yaml:"editing"`
	Logging    LoggingConfig    `yaml:"logging"`
	Output     OutputConfig     `yaml:"output"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// GenerationConfig holds auto-generation thresholds and fitting parameters.
type GenerationConfig struct {
	MinBoneSize     float64 `yaml:"min_bone_size"`    // Bones smaller than this fold into an ancestor
	Primitive       string  `yaml:"primitive"`        // capsule, box, sphere or convex
	BodyForAll      bool    `yaml:"body_for_all"`     // Ignore MinBoneSize for non-degenerate bones
	RadiusRatio     float64 `yaml:"radius_ratio"`     // Capsule radius / bone length without hints
	MaxHullVerts    int     `yaml:"max_hull_verts"`   // Convex hull vertex cap
	VertWeight      string  `yaml:"vert_weight"`      // dominant or any
	WeightThreshold float64 `yaml:"weight_threshold"` // Minimum weight in "any" mode
}

// BodyConfig holds physical defaults for generated bodies.
type BodyConfig struct {
	Density        float64 `yaml:"density"` // Mass per unit volume when no override is set
	LinearDamping  float64 `yaml:"linear_damping"`
	AngularDamping float64 `yaml:"angular_damping"`
	CollisionGroup uint32  `yaml:"collision_group"`
}

// AxisConfig describes the motion of one constraint axis.
type AxisConfig struct {
	Motion string  `yaml:"motion"` // locked, limited or free
	Min    float64 `yaml:"min,omitempty"`
	Max    float64 `yaml:"max,omitempty"`
}

// LinearConfig holds per-axis linear motion.
type LinearConfig struct {
	X AxisConfig `yaml:"x"`
	Y AxisConfig `yaml:"y"`
	Z AxisConfig `yaml:"z"`
}

// AngularConfig holds per-axis angular motion in degrees.
type AngularConfig struct {
	Swing1 AxisConfig `yaml:"swing1"`
	Swing2 AxisConfig `yaml:"swing2"`
	Twist  AxisConfig `yaml:"twist"`
}

// ConstraintConfig holds defaults for generated constraints.
type ConstraintConfig struct {
	Linear         LinearConfig  `yaml:"linear"`
	Angular        AngularConfig `yaml:"angular"`
	BreakThreshold float64       `yaml:"break_threshold"` // 0 = unbreakable
}

// EditingConfig holds editing-session behavior.
type EditingConfig struct {
	VerifyCommits bool `yaml:"verify_commits"`
}

// LoggingConfig holds slog settings for the CLI.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// OutputConfig holds asset serialization settings.
type OutputConfig struct {
	Format string `yaml:"format"` // yaml or json
	Dir    string `yaml:"dir"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	LogLevel slog.Level
}

var (
	primitiveNames = map[string]bool{"capsule": true, "box": true, "sphere": true, "convex": true}
	motionNames    = map[string]bool{"locked": true, "limited": true, "free": true}
)

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()
	if err := cfg.check(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// computeDerived normalizes enum strings and parses the log level.
func (c *Config) computeDerived() {
	c.Generation.Primitive = normalize(c.Generation.Primitive)
	c.Generation.VertWeight = normalize(c.Generation.VertWeight)
	c.Output.Format = normalize(c.Output.Format)
	c.Logging.Format = normalize(c.Logging.Format)

	for _, ax := range c.axes() {
		ax.Motion = normalize(ax.Motion)
	}

	switch normalize(c.Logging.Level) {
	case "debug":
		c.Derived.LogLevel = slog.LevelDebug
	case "warn":
		c.Derived.LogLevel = slog.LevelWarn
	case "error":
		c.Derived.LogLevel = slog.LevelError
	default:
		c.Derived.LogLevel = slog.LevelInfo
	}
}

// check rejects values no component can interpret.
func (c *Config) check() error {
	if !primitiveNames[c.Generation.Primitive] {
		return fmt.Errorf("generation.primitive: unknown primitive %q", c.Generation.Primitive)
	}
	if c.Generation.VertWeight != "dominant" && c.Generation.VertWeight != "any" {
		return fmt.Errorf("generation.vert_weight: unknown mode %q", c.Generation.VertWeight)
	}
	if c.Generation.MinBoneSize < 0 {
		return fmt.Errorf("generation.min_bone_size: must be >= 0, got %v", c.Generation.MinBoneSize)
	}
	if c.Body.Density < 0 {
		return fmt.Errorf("body.density: must be >= 0, got %v", c.Body.Density)
	}
	for name, ax := range c.namedAxes() {
		if !motionNames[ax.Motion] {
			return fmt.Errorf("constraint.%s: unknown motion %q", name, ax.Motion)
		}
		if ax.Motion == "limited" && ax.Min > ax.Max {
			return fmt.Errorf("constraint.%s: min %v exceeds max %v", name, ax.Min, ax.Max)
		}
	}
	if c.Output.Format != "yaml" && c.Output.Format != "json" {
		return fmt.Errorf("output.format: unknown format %q", c.Output.Format)
	}
	return nil
}

func (c *Config) axes() []*AxisConfig {
	return []*AxisConfig{
		&c.Constraint.Linear.X, &c.Constraint.Linear.Y, &c.Constraint.Linear.Z,
		&c.Constraint.Angular.Swing1, &c.Constraint.Angular.Swing2, &c.Constraint.Angular.Twist,
	}
}

func (c *Config) namedAxes() map[string]*AxisConfig {
	return map[string]*AxisConfig{
		"linear.x":       &c.Constraint.Linear.X,
		"linear.y":       &c.Constraint.Linear.Y,
		"linear.z":       &c.Constraint.Linear.Z,
		"angular.swing1": &c.Constraint.Angular.Swing1,
		"angular.swing2": &c.Constraint.Angular.Swing2,
		"angular.twist":  &c.Constraint.Angular.Twist,
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
