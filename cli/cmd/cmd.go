// Package cmd implements the subcommands of the engine's command-line
// interface.
package cmd

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/ardnew/parembnet/lisp"
)

type contextKey struct{}

type engineKey struct{}

// WithEngine returns a new context.Context carrying the shared
// [lisp.Context] used by every subcommand.
func WithEngine(ctx context.Context, engine *lisp.Context) context.Context {
	return context.WithValue(ctx, engineKey{}, engine)
}

// EngineFrom retrieves the [lisp.Context] stored in ctx by [WithEngine].
// Returns nil if none was stored.
func EngineFrom(ctx context.Context) *lisp.Context {
	e, _ := ctx.Value(engineKey{}).(*lisp.Context)

	return e
}

// WithContext returns a new context.Context containing the given
// kong.Context.
func WithContext(ctx context.Context, ktx *kong.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ktx)
}

// sourceFiles is a concatenation of one or more input sources, with stdin
// (if present) always read last.
type sourceFiles struct {
	read     []io.Reader
	hasStdin bool
}

// IsZero reports whether there are no source files.
func (s *sourceFiles) IsZero() bool { return len(s.read) == 0 && !s.hasStdin }

// Read implements io.Reader by reading from all source files in order,
// including stdin if present.
func (s *sourceFiles) Read(p []byte) (n int, err error) {
	readers := s.read
	if s.hasStdin {
		readers = append(readers, os.Stdin)
	}

	return io.MultiReader(readers...).Read(p)
}

// fileKey uniquely identifies a file by its device and inode numbers,
// handling deduplication across symlinks and absolute/relative paths.
type fileKey struct {
	dev uint64
	ino uint64
}

// stdinSource is the special source indicator for reading from stdin.
const stdinSource = "-"

// buildSourceFiles constructs a reader over the given source paths.
//
// Occurrences of "-" are replaced with a single stdin reader placed last so
// it reads after all named files. Duplicate files, detected by resolved
// device/inode, are read only once.
func buildSourceFiles(sources []string) *sourceFiles {
	if len(sources) == 0 {
		return nil
	}

	var srcs sourceFiles

	srcs.read = make([]io.Reader, 0, len(sources))
	seen := make(map[fileKey]struct{})

	stdinInfo, _ := os.Stdin.Stat()
	stdinKey, _ := makeFileKey(stdinInfo)

	for _, src := range sources {
		if src == stdinSource {
			seen[stdinKey] = struct{}{}

			continue
		}

		reader, ok := openUniqueFile(src, seen)
		if !ok {
			continue
		}

		srcs.read = append(srcs.read, reader)
	}

	_, srcs.hasStdin = seen[stdinKey]
	delete(seen, stdinKey)

	if len(srcs.read) == 0 && !srcs.hasStdin {
		return nil
	}

	return &srcs
}

func openUniqueFile(path string, seen map[fileKey]struct{}) (io.Reader, bool) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, false
	}

	resolved, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		return nil, false
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return nil, false
	}

	key, ok := makeFileKey(info)
	if !ok {
		return nil, false
	}

	if _, exists := seen[key]; exists {
		return nil, false
	}

	seen[key] = struct{}{}

	file, err := os.Open(resolved)
	if err != nil {
		return nil, false
	}

	return file, true
}

func makeFileKey(info os.FileInfo) (key fileKey, ok bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return key, false
	}

	return fileKey{dev: stat.Dev, ino: stat.Ino}, true
}
