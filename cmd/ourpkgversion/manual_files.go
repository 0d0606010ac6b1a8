// cmd/ourpkgversion/manual_files.go
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gagin/ourpkgversion/internal/munge"
)

// processManualFiles turns the paths given with -f into candidates. They
// bypass every exclusion rule and the scan directories; a .pod extension
// still makes them documentation-only.
func processManualFiles(root string, manualFilePaths []string, exts map[string]struct{}, errorFiles map[string]error) []Candidate {
	if len(manualFilePaths) == 0 {
		return nil
	}

	slog.Debug("Processing manually specified files (-f overrides excludes).", "count", len(manualFilePaths))
	seen := make(map[string]bool)
	var candidates []Candidate
	for _, raw := range manualFilePaths {
		absPath := raw
		if !filepath.IsAbs(raw) {
			absPath = filepath.Join(root, raw)
		}
		absPath = filepath.Clean(absPath)

		relPath, errRel := filepath.Rel(root, absPath)
		if errRel != nil || strings.HasPrefix(relPath, "..") {
			relPath = absPath
		}
		relPath = filepath.ToSlash(relPath)

		if seen[absPath] {
			slog.Debug("Skipping duplicate manual file.", "path", relPath)
			continue
		}
		seen[absPath] = true

		info, errStat := os.Stat(absPath)
		if errStat != nil {
			slog.Warn(tern(os.IsNotExist(errStat), "Manual file not found.", "Cannot stat manual file."),
				"path", relPath, "error", errStat)
			errorFiles[relPath] = errStat
			continue
		}
		if info.IsDir() {
			slog.Warn("Manual path points to a directory, skipping.", "path", relPath)
			errorFiles[relPath] = fmt.Errorf("path is a directory")
			continue
		}

		role := munge.RoleModule
		if strings.EqualFold(filepath.Ext(absPath), ".pod") {
			role = munge.RoleDocOnly
		} else if _, listed := exts[strings.ToLower(filepath.Ext(absPath))]; !listed {
			role = munge.RoleExecutable
		}
		slog.Debug("Including manual file (bypassing excludes).", "path", relPath, "role", role)
		candidates = append(candidates, Candidate{AbsPath: absPath, RelPath: relPath, Role: role, IsManual: true})
	}
	return candidates
}
