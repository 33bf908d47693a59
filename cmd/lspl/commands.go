package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lspl-lang/lspl/pkgs/ast"
	"github.com/lspl-lang/lspl/pkgs/bridge"
	"github.com/lspl-lang/lspl/pkgs/engine"
	"github.com/lspl-lang/lspl/pkgs/parser"
	"github.com/lspl-lang/lspl/pkgs/watch"
)

// stdinName selects standard input instead of a file
const stdinName = "-"

func newRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run [file]",
		Short: "Run a script (default: LICENSE, or - for stdin)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.newSession(cmd)
			if err != nil {
				return err
			}

			_, err = s.run(cmd.Context(), cmd, s.entry(args))
			return err
		},
	}
}

func newParseCommand(opts *options) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Print the statement outline of a script",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			encode, ok := encoders[format]
			if !ok {
				return &CLIError{
					Type:    "usage",
					Message: fmt.Sprintf("unsupported format '%s'", format),
					Hint:    "Use one of: yaml, json, cbor",
				}
			}

			s, err := opts.newSession(cmd)
			if err != nil {
				return err
			}

			name, source, err := readSource(cmd, s, s.entry(args))
			if err != nil {
				return err
			}

			prog, err := parser.Parse(source, parser.WithName(name), parser.WithLogger(s.logger))
			if err != nil {
				return err
			}

			return encode(cmd.OutOrStdout(), outlineDocument{
				Source:     name,
				Statements: ast.Outline(prog),
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", "yaml", "Output format: yaml, json or cbor")
	return cmd
}

func newWatchCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [file]",
		Short: "Run a script and re-run it whenever it or its evidence changes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.newSession(cmd)
			if err != nil {
				return err
			}

			path, err := bridge.Resolve(s.dir, s.entry(args))
			if err != nil {
				return err
			}

			return watch.Watch(cmd.Context(), path, func(ctx context.Context) error {
				result, err := s.run(ctx, cmd, path)
				if result != nil {
					s.logger.Info("run complete", "file", path, "verdict", len(result.Verdict), "diagnostics", len(result.Diagnostics))
				}
				return err
			}, watch.Options{Logger: s.logger, Dependencies: s.bridge.EvidencePaths})
		},
	}
}

// run executes name (or stdin) on a fresh engine
func (s *session) run(ctx context.Context, cmd *cobra.Command, name string) (*engine.Result, error) {
	eng := s.newEngine(cmd.OutOrStdout())

	if name == stdinName {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return eng.Run(ctx, string(data))
	}
	return eng.RunFile(ctx, name)
}

// readSource returns the display name and content of name or stdin
func readSource(cmd *cobra.Command, s *session, name string) (string, string, error) {
	if name == stdinName {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", "", fmt.Errorf("reading stdin: %w", err)
		}
		return "<stdin>", string(data), nil
	}
	return s.bridge.ReadSource(name)
}

// outlineDocument is the top-level shape printed by the parse command
type outlineDocument struct {
	Source     string            `json:"source" yaml:"source" cbor:"source"`
	Statements []ast.OutlineNode `json:"statements" yaml:"statements" cbor:"statements"`
}

var encoders = map[string]func(io.Writer, outlineDocument) error{
	"yaml": encodeYAML,
	"json": encodeJSON,
	"cbor": encodeCBOR,
}

func encodeYAML(w io.Writer, doc outlineDocument) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	return enc.Close()
}

func encodeJSON(w io.Writer, doc outlineDocument) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	return nil
}

// encodeCBOR writes canonical CBOR so equal programs encode to equal bytes
func encodeCBOR(w io.Writer, doc outlineDocument) error {
	encMode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return fmt.Errorf("creating cbor encoder: %w", err)
	}
	data, err := encMode.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding cbor: %w", err)
	}
	_, err = w.Write(data)
	return err
}
