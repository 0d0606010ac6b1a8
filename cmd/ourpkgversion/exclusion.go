// cmd/ourpkgversion/exclusion.go
package main

import (
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
)

// PathInfo describes a path being considered for exclusion.
type PathInfo struct {
	AbsPath  string // Absolute path on the filesystem
	RelPath  string // Path relative to the distribution root, using slashes
	BaseName string // Final component of the path
	IsDir    bool
}

// Excluder decides whether a discovered path is left alone.
type Excluder interface {
	IsExcluded(info PathInfo) (excluded bool, reason string, pattern string)
}

// DefaultExcluder matches basenames anywhere in the tree and root-relative
// globs, and excludes everything below an excluded directory.
type DefaultExcluder struct {
	basenamePatterns []string
	relativePatterns []string
	excludedDirs     map[string]string // root-relative dir -> causing pattern
	mu               sync.RWMutex
}

// NewDefaultExcluder creates and initializes a DefaultExcluder.
func NewDefaultExcluder(basenamePatterns, relativePatterns []string) *DefaultExcluder {
	return &DefaultExcluder{
		basenamePatterns: basenamePatterns,
		relativePatterns: relativePatterns,
		excludedDirs:     make(map[string]string),
	}
}

// IsExcluded implements Excluder. Ancestors are checked before the item itself.
func (e *DefaultExcluder) IsExcluded(info PathInfo) (excluded bool, reason string, pattern string) {
	for parent := path.Dir(info.RelPath); parent != "." && parent != "/" && parent != ""; parent = path.Dir(parent) {
		e.mu.RLock()
		causing, known := e.excludedDirs[parent]
		e.mu.RUnlock()
		if known {
			return true, fmt.Sprintf("ancestor %s excluded", parent), causing
		}
		if match, p := matchesGlob(path.Base(parent), e.basenamePatterns); match {
			e.remember(parent, p)
			return true, fmt.Sprintf("ancestor %s basename match", parent), p
		}
		if match, p := e.matchRelative(parent); match {
			e.remember(parent, p)
			return true, fmt.Sprintf("ancestor %s relative match", parent), p
		}
	}

	if match, p := matchesGlob(info.BaseName, e.basenamePatterns); match {
		if info.IsDir {
			e.remember(info.RelPath, p)
		}
		return true, "basename match", p
	}
	if match, p := e.matchRelative(info.RelPath); match {
		if info.IsDir {
			e.remember(info.RelPath, p)
		}
		return true, "relative match", p
	}

	slog.Debug("Exclusion check: path not excluded", "path", info.RelPath)
	return false, "", ""
}

// matchRelative matches rel against the root-relative globs, treating a
// pattern that names a directory as a prefix.
func (e *DefaultExcluder) matchRelative(rel string) (bool, string) {
	if match, p := matchesGlob(rel, e.relativePatterns); match {
		return true, p
	}
	for _, p := range e.relativePatterns {
		clean := strings.TrimRight(p, `\/`)
		if clean != "" && (rel == clean || strings.HasPrefix(rel, clean+"/")) {
			return true, p
		}
	}
	return false, ""
}

func (e *DefaultExcluder) remember(dir, pattern string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.excludedDirs[dir]; !exists {
		slog.Debug("Adding dir to excluded map.", "path", dir, "pattern", pattern)
		e.excludedDirs[dir] = pattern
	}
}
