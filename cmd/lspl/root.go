package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lspl-lang/lspl/pkgs/bridge"
	"github.com/lspl-lang/lspl/pkgs/config"
	"github.com/lspl-lang/lspl/pkgs/engine"
)

// debugEnv switches debug logging on without the --debug flag
const debugEnv = "LSPL_DEBUG"

// options holds the persistent flags shared by every subcommand
type options struct {
	configPath    string
	debug         bool
	maxIterations int
	maxDepth      int
	dir           string
	noColor       bool
}

// session is the resolved configuration for one command invocation
type session struct {
	config config.Config
	dir    string
	logger *slog.Logger
	bridge *bridge.Bridge
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "lspl",
		Short:         "Interpret legal-style LSPL scripts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to config file (default: "+config.FileName+" in the working directory)")
	flags.BoolVar(&opts.debug, "debug", false, "Enable debug output (also "+debugEnv+")")
	flags.IntVar(&opts.maxIterations, "max-iterations", config.DefaultMaxLoopIterations, "Iterations per loophole before it is stopped")
	flags.IntVar(&opts.maxDepth, "max-depth", config.DefaultMaxDepth, "Maximum nesting of statute calls and evidence includes")
	flags.StringVar(&opts.dir, "dir", "", "Working directory for evidence and verdict files (default: current directory)")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		newRunCommand(opts),
		newParseCommand(opts),
		newWatchCommand(opts),
	)
	return rootCmd
}

// newSession loads the config file and applies flag overrides on top of it
func (o *options) newSession(cmd *cobra.Command) (*session, error) {
	dir := o.dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		dir = wd
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving working directory: %w", err)
	}

	cfg := config.Default()
	configPath := o.configPath
	if configPath == "" {
		configPath, _ = config.Find(dir)
	}
	if configPath != "" {
		cfg, err = config.Load(configPath)
		if err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("max-iterations") {
		cfg.MaxLoopIterations = o.maxIterations
	}
	if flags.Changed("max-depth") {
		cfg.MaxDepth = o.maxDepth
	}
	if o.debug || os.Getenv(debugEnv) != "" {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.Debug)
	logger.Debug("session", "dir", dir, "config", configPath, "max_loop_iterations", cfg.MaxLoopIterations, "max_depth", cfg.MaxDepth)

	return &session{
		config: cfg,
		dir:    dir,
		logger: logger,
		bridge: bridge.New(dir, logger),
	}, nil
}

// newEngine creates a fresh engine that shares the session's bridge
func (s *session) newEngine(out io.Writer) *engine.Engine {
	return engine.New(engine.Config{
		WorkDir:           s.dir,
		MaxLoopIterations: s.config.MaxLoopIterations,
		MaxDepth:          s.config.MaxDepth,
		Output:            out,
		Logger:            s.logger,
		Bridge:            s.bridge,
	})
}

// entry returns the file argument or the configured entry name
func (s *session) entry(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return s.config.Entry
}

// newLogger creates the stderr handler: no timestamp or level attributes,
// debug records only when enabled.
func newLogger(w io.Writer, debug bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if debug {
		logLevel = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}

func noColorRequested(cmd *cobra.Command) bool {
	noColor, err := cmd.PersistentFlags().GetBool("no-color")
	return err == nil && noColor
}
