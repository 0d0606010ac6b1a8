// cmd/ourpkgversion/discover.go
package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	gocodewalker "github.com/boyter/gocodewalker"

	"github.com/gagin/ourpkgversion/internal/munge"
)

// Candidate is a file selected for munging.
type Candidate struct {
	AbsPath  string
	RelPath  string // relative to the distribution root, slash separated
	Role     munge.Role
	IsManual bool
}

// Discovery is the outcome of selecting files.
type Discovery struct {
	Candidates []Candidate
	Skipped    map[string]string // RelPath -> reason
	ErrorFiles map[string]error
}

const reasonMainModule = "main module"

var perlShebang = regexp.MustCompile(`^#!.*\bperl`)

// discoverFiles walks the scan directories of s.Root and classifies every
// file that should receive a version. Files named with -f are added
// regardless of the exclusion rules.
func discoverFiles(s runSettings) (Discovery, error) {
	d := Discovery{
		Skipped:    make(map[string]string),
		ErrorFiles: make(map[string]error),
	}
	seen := make(map[string]bool)

	mainModule := ""
	if s.SkipMainModule {
		mainModule = mainModulePath(s.Root, s.MainModule)
		slog.Debug("Main module will be skipped.", "path", mainModule)
	}

	basenameExcludes := validGlobs(s.ExcludeBasenames, func(p string, err error) {
		slog.Warn("Invalid exclude basename pattern syntax, ignoring.", "pattern", p, "error", err)
	})
	relativeExcludes := validGlobs(s.ExcludePatterns, func(p string, err error) {
		slog.Warn("Invalid exclude pattern syntax, ignoring.", "pattern", p, "error", err)
	})

	for _, c := range processManualFiles(s.Root, s.ManualFiles, s.Extensions, d.ErrorFiles) {
		seen[c.AbsPath] = true
		d.Candidates = append(d.Candidates, c)
	}

	var scanDirs []string
	for _, dir := range s.ScanDirs {
		abs := filepath.Join(s.Root, dir)
		info, err := os.Stat(abs)
		if err != nil || !info.IsDir() {
			slog.Debug("Scan directory not present, skipping.", "path", dir)
			continue
		}
		scanDirs = append(scanDirs, abs)
	}
	if len(scanDirs) == 0 {
		slog.Info("No scan directories found.", "scan_dirs", s.ScanDirs)
		sortCandidates(d.Candidates)
		return d, nil
	}

	var excluder Excluder = NewDefaultExcluder(basenameExcludes, relativeExcludes)
	slog.Info("Starting file scan.", "root", s.Root, "scanDirs", s.ScanDirs, "useGitignore", s.UseGitignore)

	// Walk from the root so that its .gitignore applies, then keep only
	// what lies under a scan directory.
	fileListQueue := make(chan *gocodewalker.File, 100)
	fileWalker := gocodewalker.NewFileWalker(s.Root, fileListQueue)
	fileWalker.IgnoreGitIgnore = !s.UseGitignore
	fileWalker.IgnoreIgnoreFile = !s.UseGitignore

	var walkErr, firstWalkError error
	processingDone := make(chan struct{})
	go func() {
		defer close(processingDone)
		fileWalker.SetErrorHandler(func(e error) bool {
			slog.Warn("Error reported by file walker.", "root", s.Root, "error", e)
			if firstWalkError == nil {
				firstWalkError = e
			}
			return true
		})
		walkErr = fileWalker.Start()
	}()

	for f := range fileListQueue {
		absPath := f.Location
		if seen[absPath] || !underAny(absPath, scanDirs) {
			continue
		}
		seen[absPath] = true

		relPath, err := filepath.Rel(s.Root, absPath)
		if err != nil {
			d.ErrorFiles[filepath.ToSlash(absPath)] = err
			continue
		}
		relPath = filepath.ToSlash(relPath)

		info, err := os.Stat(absPath)
		if err != nil {
			d.ErrorFiles[relPath] = err
			continue
		}
		pathInfo := PathInfo{AbsPath: absPath, RelPath: relPath, BaseName: filepath.Base(absPath), IsDir: info.IsDir()}
		if excluded, reason, pattern := excluder.IsExcluded(pathInfo); excluded {
			slog.Debug(tern(pathInfo.IsDir, "Excluding directory and its contents.", "Excluding file."),
				"path", relPath, "reason", reason, "pattern", pattern)
			continue
		}
		if pathInfo.IsDir {
			continue
		}

		role, ok := classify(absPath, relPath, s)
		if !ok {
			continue
		}
		if relPath == mainModule {
			d.Skipped[relPath] = reasonMainModule
			continue
		}
		d.Candidates = append(d.Candidates, Candidate{AbsPath: absPath, RelPath: relPath, Role: role})
	}
	<-processingDone

	sortCandidates(d.Candidates)
	if walkErr == nil {
		walkErr = firstWalkError
	}
	if walkErr != nil {
		slog.Error("File scan finished with errors.", "error", walkErr)
		return d, fmt.Errorf("file walk operation failed for '%s': %w", s.Root, walkErr)
	}
	slog.Info("File scan completed.", "candidates", len(d.Candidates))
	return d, nil
}

// classify decides whether the file is a candidate and which role it has.
// POD-only modules are detected later, once the content is read.
func classify(absPath, relPath string, s runSettings) (munge.Role, bool) {
	ext := strings.ToLower(filepath.Ext(relPath))
	inExecDir := false
	for _, dir := range s.ExecutableDirs {
		if inDir(relPath, dir) {
			inExecDir = true
			break
		}
	}

	if _, ok := s.Extensions[ext]; ok {
		switch {
		case ext == ".pod":
			return munge.RoleDocOnly, true
		case inExecDir:
			return munge.RoleExecutable, true
		default:
			return munge.RoleModule, true
		}
	}
	if inExecDir && ext == "" && hasPerlShebang(absPath) {
		return munge.RoleExecutable, true
	}
	return munge.RoleModule, false
}

func hasPerlShebang(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	return perlShebang.MatchString(line)
}

var distVersionSuffix = regexp.MustCompile(`-v?[0-9][0-9._]*$`)

// mainModulePath returns the root-relative path of the distribution's main
// module: the configured one, or the one named after the root directory
// (Foo-Bar-1.02 gives lib/Foo/Bar.pm).
func mainModulePath(root, configured string) string {
	if configured != "" {
		return filepath.ToSlash(filepath.Clean(configured))
	}
	name := distVersionSuffix.ReplaceAllString(filepath.Base(root), "")
	if name == "" || name == "." {
		return ""
	}
	return "lib/" + strings.ReplaceAll(name, "-", "/") + ".pm"
}

func underAny(absPath string, dirs []string) bool {
	for _, dir := range dirs {
		if absPath == dir || strings.HasPrefix(absPath, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func sortCandidates(c []Candidate) {
	sort.Slice(c, func(i, j int) bool { return c[i].RelPath < c[j].RelPath })
}
