// Package bridge connects the interpreter to the file system: it resolves
// source names, loads and parses evidence files, and persists verdicts.
package bridge

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/crypto/blake2b"

	"github.com/lspl-lang/lspl/pkgs/ast"
	lerrors "github.com/lspl-lang/lspl/pkgs/errors"
	"github.com/lspl-lang/lspl/pkgs/parser"
)

const (
	// Extension is tried after the exact name when resolving a source
	Extension = ".lspl"
	// EntryName is the source loaded when no file is given
	EntryName = "LICENSE"
)

// Resolve finds name relative to dir (unless absolute), trying the exact
// name first and then name with Extension appended.
func Resolve(dir, name string) (string, error) {
	tried := candidates(dir, name)
	for _, path := range tried {
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", lerrors.NewFileNotFoundError(name, tried)
}

func candidates(dir, name string) []string {
	paths := []string{name, name + Extension}
	for i, path := range paths {
		if !filepath.IsAbs(path) {
			paths[i] = filepath.Join(dir, path)
		}
	}
	return paths
}

// Bridge reads and writes files for one working directory. Parsed evidence
// is cached by content hash; a Bridge may be reused across runs.
type Bridge struct {
	dir    string
	logger *slog.Logger

	mu       sync.Mutex
	cache    map[[blake2b.Size256]byte]*ast.Program
	evidence map[string]bool
	hits     int
	misses   int
}

// New creates a Bridge rooted at dir
func New(dir string, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Bridge{
		dir:      dir,
		logger:   logger,
		cache:    make(map[[blake2b.Size256]byte]*ast.Program),
		evidence: make(map[string]bool),
	}
}

// Dir returns the working directory names are resolved against
func (b *Bridge) Dir() string {
	return b.dir
}

// ReadSource resolves name and returns the path it was found at with its content
func (b *Bridge) ReadSource(name string) (string, string, error) {
	path, err := Resolve(b.dir, name)
	if err != nil {
		return "", "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("reading %s: %w", path, err)
	}
	return path, string(data), nil
}

// LoadEvidence reads and parses an evidence file. Programs are immutable, so
// identical content at the same path is parsed once.
func (b *Bridge) LoadEvidence(name string) (*ast.Program, error) {
	path, content, err := b.ReadSource(name)
	if err != nil {
		if lerrors.IsErrorType(err, lerrors.ErrFileNotFound) {
			b.track(candidates(b.dir, name)...)
		}
		return nil, err
	}
	b.track(path)

	key := cacheKey(path, content)

	b.mu.Lock()
	prog, ok := b.cache[key]
	if ok {
		b.hits++
	}
	b.mu.Unlock()

	if ok {
		b.logger.Debug("evidence cache hit", "file", path)
		return prog, nil
	}

	prog, err = parser.Parse(content, parser.WithName(path), parser.WithLogger(b.logger))
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.cache[key] = prog
	b.misses++
	b.mu.Unlock()

	b.logger.Debug("evidence parsed", "file", path, "statements", len(prog.Statements))
	return prog, nil
}

// EvidencePaths returns every path evidence was loaded from, or looked for
// and not found, since the Bridge was created. The result is sorted.
func (b *Bridge) EvidencePaths() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	paths := make([]string, 0, len(b.evidence))
	for path := range b.evidence {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

func (b *Bridge) track(paths ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, path := range paths {
		b.evidence[path] = true
	}
}

// WriteVerdict writes lines joined by newlines to name and returns the path written
func (b *Bridge) WriteVerdict(name string, lines []string) (string, error) {
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(b.dir, name)
	}

	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// CacheStats reports evidence cache hits and misses
func (b *Bridge) CacheStats() (hits, misses int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits, b.misses
}

func cacheKey(path, content string) [blake2b.Size256]byte {
	return blake2b.Sum256([]byte(path + "\x00" + content))
}
