// Package pathutil provides the small set of path helpers the parser
// needs: absolute/relative conversion and DWARF-style directory joins.
//
// Every function here returns a newly allocated string, mirroring the
// ownership contract of the original dwarf_pathConcatenate.
package pathutil

import (
	"os"
	"path/filepath"
)

// Absolute returns a weakly canonical absolute form of path: symlinks
// are resolved where possible, but a path that does not (yet) exist on
// disk is still returned, with its non-existent components kept
// literal.
func Absolute(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

// Relative returns path relative to the process's current working
// directory. If no relative path can be constructed, the absolute form
// is returned instead.
func Relative(path string) string {
	abs := Absolute(path)
	cwd, err := os.Getwd()
	if err != nil {
		return abs
	}
	rel, err := filepath.Rel(cwd, abs)
	if err != nil {
		return abs
	}
	return rel
}

// Join concatenates a directory and a file name the way DWARF line
// programs do: if name is already absolute it is returned unchanged,
// otherwise dir and name are joined with exactly one separator.
func Join(dir, name string) string {
	if name == "" {
		return dir
	}
	if filepath.IsAbs(name) {
		return name
	}
	if dir == "" {
		return name
	}
	return filepath.Join(dir, name)
}
