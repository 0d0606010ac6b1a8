// cmd/ourpkgversion/helpers.go
package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// processExtensions processes a list of extension strings into a set for quick lookup.
func processExtensions(extList []string) map[string]struct{} {
	processed := make(map[string]struct{})
	for _, ext := range extList {
		parts := strings.Split(ext, ",")
		for _, part := range parts {
			cleaned := strings.TrimSpace(strings.ToLower(part))
			if cleaned == "" {
				continue
			}
			if !strings.HasPrefix(cleaned, ".") {
				cleaned = "." + cleaned
			}
			processed[cleaned] = struct{}{}
		}
	}
	return processed
}

// mapsKeys Helper to get map keys for logging set contents
func mapsKeys[M ~map[K]V, K comparable, V any](m M) []K {
	r := make([]K, 0, len(m))
	for k := range m {
		r = append(r, k)
	}
	sort.Slice(r, func(i, j int) bool {
		return fmt.Sprint(r[i]) < fmt.Sprint(r[j])
	})
	return r
}

func tern[T any](cond bool, a, b T) T {
	if cond {
		return a
	}
	return b
}

// matchesGlob reports the first pattern that matches name.
func matchesGlob(name string, patterns []string) (bool, string) {
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, name); ok {
			return true, p
		}
	}
	return false, ""
}

// validGlobs drops patterns with bad syntax, logging each one.
func validGlobs(patterns []string, warn func(pattern string, err error)) []string {
	valid := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		if _, err := filepath.Match(pattern, "a"); err != nil {
			warn(pattern, err)
			continue
		}
		valid = append(valid, pattern)
	}
	return valid
}

// inDir reports whether the slash-separated relPath lies below dir, which
// may span several path elements.
func inDir(relPath, dir string) bool {
	clean := filepath.ToSlash(filepath.Clean(dir))
	return clean != "." && strings.HasPrefix(relPath, clean+"/")
}
