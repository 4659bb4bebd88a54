package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pthm-cable/ragdoll/asset"
	"github.com/pthm-cable/ragdoll/config"
	"github.com/pthm-cable/ragdoll/edit"
	"github.com/pthm-cable/ragdoll/generate"
	"github.com/pthm-cable/ragdoll/report"
	"github.com/pthm-cable/ragdoll/skeleton"
	"github.com/pthm-cable/ragdoll/validate"
	"github.com/pthm-cable/ragdoll/watch"
)

// loadSkeleton reads a skeleton document and resolves its geometry hints
// with the configured skin weighting.
func loadSkeleton(path string, cfg *config.Config) (*skeleton.Skeleton, skeleton.Hints, error) {
	f, err := skeleton.Load(path)
	if err != nil {
		return nil, nil, err
	}
	mode, err := skeleton.ParseWeightMode(cfg.Generation.VertWeight)
	if err != nil {
		return nil, nil, fmt.Errorf("generation.vert_weight: %w", err)
	}
	hints, err := f.ResolveHints(mode, cfg.Generation.WeightThreshold)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving hints: %w", err)
	}
	return f.Skeleton, hints, nil
}

// writeAsset saves to path, or encodes to stdout in the configured format
// when path is empty.
func writeAsset(path string, a *asset.PhysicsAsset, cfg *config.Config) error {
	if path == "" {
		return asset.Encode(os.Stdout, a, asset.Format(cfg.Output.Format))
	}
	return asset.Save(path, a)
}

func runGenerate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	skelPath := fs.String("skeleton", "", "Skeleton YAML file (required)")
	outPath := fs.String("out", "", "Asset output file, .yaml or .json (empty = stdout)")
	primitive := fs.String("primitive", "", "Override generation.primitive")
	bodyForAll := fs.Bool("body-for-all", false, "Create a body for every bone with non-zero size")
	fs.Parse(args)

	cfg, err := common.setup()
	if err != nil {
		return err
	}
	if *skelPath == "" {
		return errors.New("-skeleton is required")
	}
	if *primitive != "" {
		cfg.Generation.Primitive = *primitive
	}
	if *bodyForAll {
		cfg.Generation.BodyForAll = true
	}

	skel, hints, err := loadSkeleton(*skelPath, cfg)
	if err != nil {
		return err
	}
	opts, err := generate.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	a, err := generate.Generate(skel, hints, opts)
	if err != nil {
		return err
	}
	slog.Info("generated asset",
		"skeleton", skel.Name(),
		"bones", skel.Len(),
		"bodies", a.NumBodies(),
		"constraints", a.NumConstraints(),
	)
	return writeAsset(*outPath, a, cfg)
}

func runValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	assetPath := fs.String("asset", "", "Asset file (required)")
	skelPath := fs.String("skeleton", "", "Skeleton YAML file (empty = skip bone checks)")
	fs.Parse(args)

	cfg, err := common.setup()
	if err != nil {
		return err
	}
	if *assetPath == "" {
		return errors.New("-asset is required")
	}
	a, err := asset.Load(*assetPath)
	if err != nil {
		return err
	}
	var skel *skeleton.Skeleton
	if *skelPath != "" {
		if skel, _, err = loadSkeleton(*skelPath, cfg); err != nil {
			return err
		}
	}

	issues := validate.Asset(a, skel)
	for _, is := range issues {
		slog.Warn("validation issue", "kind", is.Kind.String(), "message", is.Message)
	}
	if len(issues) > 0 {
		return fmt.Errorf("%s: %d issues", *assetPath, len(issues))
	}
	slog.Info("asset is valid", "path", *assetPath, "bodies", a.NumBodies(), "constraints", a.NumConstraints())
	return nil
}

func runReport(args []string) error {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	assetPath := fs.String("asset", "", "Asset file (required)")
	skelPath := fs.String("skeleton", "", "Skeleton YAML file (optional)")
	outputDir := fs.String("output-dir", "", "Directory for CSV tables (empty = output.dir)")
	fs.Parse(args)

	cfg, err := common.setup()
	if err != nil {
		return err
	}
	if *assetPath == "" {
		return errors.New("-asset is required")
	}
	dir := cfg.Output.Dir
	if *outputDir != "" {
		dir = *outputDir
	}

	a, err := asset.Load(*assetPath)
	if err != nil {
		return err
	}
	var skel *skeleton.Skeleton
	if *skelPath != "" {
		if skel, _, err = loadSkeleton(*skelPath, cfg); err != nil {
			return err
		}
	}

	w, err := report.NewWriter(dir)
	if err != nil {
		return err
	}
	defer w.Close()

	r := report.Build(a, skel, cfg.Body.Density)
	slog.Info("report", "dir", w.Dir(), "summary", r.Summary)
	if err := w.WriteConfig(cfg); err != nil {
		return err
	}
	return w.WriteReport(r)
}

// session is the state the watch command keeps between reloads.
type session struct {
	skelPath   string
	configPath string
	assetPath  string

	cfg    *config.Config
	editor *edit.Editor
	out    *report.Writer
}

func runWatch(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	skelPath := fs.String("skeleton", "", "Skeleton YAML file (required)")
	outPath := fs.String("out", "", "Asset file rewritten after every regeneration (required)")
	outputDir := fs.String("output-dir", "", "Directory for CSV tables (empty = output.dir)")
	fs.Parse(args)

	cfg, err := common.setup()
	if err != nil {
		return err
	}
	if *skelPath == "" || *outPath == "" {
		return errors.New("-skeleton and -out are required")
	}
	dir := cfg.Output.Dir
	if *outputDir != "" {
		dir = *outputDir
	}

	out, err := report.NewWriter(dir)
	if err != nil {
		return err
	}
	defer out.Close()

	s := &session{
		skelPath:   *skelPath,
		configPath: common.configPath,
		assetPath:  *outPath,
		cfg:        cfg,
		out:        out,
	}
	if err := s.start(); err != nil {
		return err
	}

	files := []string{s.skelPath}
	if s.configPath != "" {
		files = append(files, s.configPath)
	}
	w, err := watch.New(files...)
	if err != nil {
		return err
	}
	defer w.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("watching", "skeleton", s.skelPath, "config", s.configPath, "asset", s.assetPath)
	return w.Run(ctx, s.reload)
}

// start builds the editor from the existing asset file if one loads,
// otherwise from a fresh generation.
func (s *session) start() error {
	skel, hints, err := loadSkeleton(s.skelPath, s.cfg)
	if err != nil {
		return err
	}
	opts := edit.OptionsFromConfig(s.cfg)
	opts.Hints = hints

	existing, err := asset.Load(s.assetPath)
	if err != nil {
		slog.Debug("no usable asset, generating", "path", s.assetPath, "error", err)
		existing = nil
	}
	s.editor = edit.New(existing, skel, opts)
	s.editor.Subscribe(func(c edit.Change) {
		if c.Empty() {
			return
		}
		slog.Info("asset changed",
			"revision", c.Revision,
			"op", c.Op.String(),
			"added_bodies", len(c.AddedBodies),
			"removed_bodies", len(c.RemovedBodies),
			"added_constraints", len(c.AddedConstraints),
			"removed_constraints", len(c.RemovedConstraints),
		)
	})
	if existing != nil && len(s.editor.Validate()) == 0 {
		return s.publish()
	}
	return s.regenerate()
}

func (s *session) reload(path string) error {
	abs := func(p string) string {
		if a, err := filepath.Abs(p); err == nil {
			return a
		}
		return p
	}
	if s.configPath != "" && path == abs(s.configPath) {
		cfg, err := config.Load(s.configPath)
		if err != nil {
			return fmt.Errorf("reloading config: %w", err)
		}
		s.cfg = cfg
		slog.Info("config reloaded", "path", path)
	}

	skel, hints, err := loadSkeleton(s.skelPath, s.cfg)
	if err != nil {
		return err
	}
	for _, is := range s.editor.SetSkeleton(skel, hints) {
		slog.Warn("asset no longer matches skeleton", "kind", is.Kind.String(), "message", is.Message)
	}
	return s.regenerate()
}

func (s *session) regenerate() error {
	opts, err := generate.OptionsFromConfig(s.cfg)
	if err != nil {
		return err
	}
	if _, err := s.editor.RegenerateFromSkeleton(opts); err != nil {
		return err
	}
	return s.publish()
}

// publish saves the current asset and appends a report.
func (s *session) publish() error {
	a := s.editor.Asset()
	if err := asset.Save(s.assetPath, a); err != nil {
		return err
	}
	r := report.Build(a, s.editor.Skeleton(), s.cfg.Body.Density)
	r.Summary.Revision = s.editor.Revision()
	slog.Info("asset written", "path", s.assetPath, "report_dir", s.out.Dir(), "summary", r.Summary)
	return s.out.WriteReport(r)
}
