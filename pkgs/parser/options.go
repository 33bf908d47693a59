package parser

import "log/slog"

// ParserOpt represents a parser configuration option
type ParserOpt func(*ParserConfig)

// ParserConfig holds parser configuration
type ParserConfig struct {
	name   string
	logger *slog.Logger
}

// WithName sets the source name used in error messages and on the Program
func WithName(name string) ParserOpt {
	return func(c *ParserConfig) {
		c.name = name
	}
}

// WithLogger enables debug tracing of block structure through logger
func WithLogger(logger *slog.Logger) ParserOpt {
	return func(c *ParserConfig) {
		c.logger = logger
	}
}
