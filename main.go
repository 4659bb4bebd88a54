package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/pthm-cable/ragdoll/config"
)

const usage = `usage: ragdoll <command> [flags]

commands:
  generate   build a physics asset from a skeleton
  validate   check an asset against a skeleton
  report     write CSV tables describing an asset
  watch      regenerate an asset whenever its skeleton changes
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "generate":
		err = runGenerate(args)
	case "validate":
		err = runValidate(args)
	case "report":
		err = runReport(args)
	case "watch":
		err = runWatch(args)
	case "-h", "-help", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// commonFlags are shared by every subcommand.
type commonFlags struct {
	configPath string
	logLevel   string
	logJSON    bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "Path to config.yaml (empty = use defaults)")
	fs.StringVar(&c.logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")
	fs.BoolVar(&c.logJSON, "log-json", false, "Log JSON to stderr regardless of logging.format")
}

// setup loads the config and installs the default logger.
func (c *commonFlags) setup() (*config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if c.logLevel != "" {
		if err := cfg.Derived.LogLevel.UnmarshalText([]byte(c.logLevel)); err != nil {
			return nil, fmt.Errorf("-log-level: %w", err)
		}
	}
	slog.SetDefault(newLogger(os.Stderr, cfg, c.logJSON))
	return cfg, nil
}

func newLogger(w io.Writer, cfg *config.Config, forceJSON bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Derived.LogLevel}
	if forceJSON || cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
