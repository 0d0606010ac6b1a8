// cmd/ourpkgversion/discover_test.go
package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gagin/ourpkgversion/internal/munge"
)

func setupTestDir(t *testing.T, structure map[string]string) string {
	t.Helper()
	tempDir := t.TempDir()
	paths := make([]string, 0, len(structure))
	for p := range structure {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, relPath := range paths {
		content := structure[relPath]
		absPath := filepath.Join(tempDir, relPath)
		require.NoError(t, os.MkdirAll(filepath.Dir(absPath), 0755))
		if strings.HasSuffix(relPath, "/") {
			require.NoError(t, os.MkdirAll(absPath, 0755))
			continue
		}
		err := os.WriteFile(absPath, []byte(content), 0644)
		require.NoError(t, err, "Failed to write file: %s", absPath)
	}
	return tempDir
}

func setupTestLogger(t *testing.T) (*slog.Logger, *bytes.Buffer) {
	t.Helper()
	var logBuf bytes.Buffer
	handler := slog.NewTextHandler(&logBuf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(handler)
	prev := slog.Default()
	slog.SetDefault(logger)
	t.Cleanup(func() { slog.SetDefault(prev) })
	return logger, &logBuf
}

// testSettings returns the default settings for a distribution at root.
func testSettings(root string) runSettings {
	return runSettings{
		Root:             root,
		Options:          munge.Options{Version: "1.23"},
		ScanDirs:         defaultConfig.ScanDirs,
		ExecutableDirs:   defaultConfig.ExecutableDirs,
		Extensions:       processExtensions(defaultConfig.IncludeExtensions),
		ExcludeBasenames: defaultConfig.ExcludeBasenames,
		UseGitignore:     false,
	}
}

func candidatePaths(c []Candidate) []string {
	paths := make([]string, len(c))
	for i, f := range c {
		paths[i] = f.RelPath
	}
	return paths
}

func candidateRoles(c []Candidate) map[string]munge.Role {
	roles := make(map[string]munge.Role, len(c))
	for _, f := range c {
		roles[f.RelPath] = f.Role
	}
	return roles
}

func TestDiscoverFiles_Roles(t *testing.T) {
	structure := map[string]string{
		"lib/Foo.pm":          "package Foo;\n# VERSION\n1;\n",
		"lib/Foo/Bar.pm":      "package Foo::Bar;\n1;\n",
		"lib/Foo/Manual.pod":  "=head1 NAME\n\n=cut\n",
		"lib/Foo/notes.txt":   "not perl",
		"bin/foo":             "#!/usr/bin/env perl\n# VERSION\n",
		"bin/foo-shell":       "#!/bin/sh\necho hi\n",
		"bin/helper.pl":       "#!perl\n",
		"script/run":          "#!/usr/bin/perl -w\n",
		"t/basic.t":           "use Test::More;\n",
		"Makefile.PL":         "use ExtUtils::MakeMaker;\n",
		"lib/Foo/Empty.pm":    "",
		"lib/Foo/Deep/Baz.pm": "package Foo::Deep::Baz;\n",
	}
	tempDir := setupTestDir(t, structure)
	setupTestLogger(t)

	d, err := discoverFiles(testSettings(tempDir))
	require.NoError(t, err)
	assert.Empty(t, d.ErrorFiles)

	assert.Equal(t, []string{
		"bin/foo",
		"bin/helper.pl",
		"lib/Foo.pm",
		"lib/Foo/Bar.pm",
		"lib/Foo/Deep/Baz.pm",
		"lib/Foo/Empty.pm",
		"lib/Foo/Manual.pod",
		"script/run",
	}, candidatePaths(d.Candidates))

	roles := candidateRoles(d.Candidates)
	assert.Equal(t, munge.RoleExecutable, roles["bin/foo"])
	assert.Equal(t, munge.RoleExecutable, roles["bin/helper.pl"])
	assert.Equal(t, munge.RoleExecutable, roles["script/run"])
	assert.Equal(t, munge.RoleModule, roles["lib/Foo.pm"])
	assert.Equal(t, munge.RoleDocOnly, roles["lib/Foo/Manual.pod"])
}

func TestDiscoverFiles_NestedExecutableDir(t *testing.T) {
	structure := map[string]string{
		"script/tools/gen":    "#!/usr/bin/perl\n# VERSION\n",
		"script/tools/gen.pl": "#!/usr/bin/perl\n",
		"script/run":          "#!/usr/bin/perl\n",
		"script/helper.pl":    "#!/usr/bin/perl\n",
	}
	tempDir := setupTestDir(t, structure)
	setupTestLogger(t)

	s := testSettings(tempDir)
	s.ExecutableDirs = []string{"script/tools"}
	d, err := discoverFiles(s)
	require.NoError(t, err)

	assert.Equal(t, []string{"script/helper.pl", "script/tools/gen", "script/tools/gen.pl"}, candidatePaths(d.Candidates))
	roles := candidateRoles(d.Candidates)
	assert.Equal(t, munge.RoleExecutable, roles["script/tools/gen"])
	assert.Equal(t, munge.RoleExecutable, roles["script/tools/gen.pl"])
	assert.Equal(t, munge.RoleModule, roles["script/helper.pl"])
}

func TestDiscoverFiles_Excludes(t *testing.T) {
	structure := map[string]string{
		"lib/Foo.pm":           "package Foo;\n",
		"lib/Foo.pm.bak":       "package Foo;\n",
		"lib/Foo/Generated.pm": "package Foo::Generated;\n",
		"lib/Foo/Gen/A.pm":     "package Foo::Gen::A;\n",
		"lib/Foo/Gen/B.pm":     "package Foo::Gen::B;\n",
		"lib/local/X.pm":       "package X;\n",
		"lib/Foo/Keep.pm":      "package Foo::Keep;\n",
	}
	tempDir := setupTestDir(t, structure)
	_, logBuf := setupTestLogger(t)

	s := testSettings(tempDir)
	s.ExcludePatterns = []string{"lib/Foo/Gen", "lib/Foo/Generated.pm", "[invalid"}

	d, err := discoverFiles(s)
	require.NoError(t, err)
	assert.Equal(t, []string{"lib/Foo.pm", "lib/Foo/Keep.pm"}, candidatePaths(d.Candidates))
	assert.Contains(t, logBuf.String(), "Invalid exclude pattern syntax, ignoring.")
}

func TestDiscoverFiles_Gitignore(t *testing.T) {
	structure := map[string]string{
		".gitignore":       "lib/Ignored.pm\nblib2/\n",
		"lib/Kept.pm":      "package Kept;\n",
		"lib/Ignored.pm":   "package Ignored;\n",
		"lib/blib2/Old.pm": "package Old;\n",
	}
	tempDir := setupTestDir(t, structure)
	setupTestLogger(t)

	s := testSettings(tempDir)
	s.UseGitignore = true
	d, err := discoverFiles(s)
	require.NoError(t, err)
	assert.Equal(t, []string{"lib/Kept.pm"}, candidatePaths(d.Candidates))

	s.UseGitignore = false
	d, err = discoverFiles(s)
	require.NoError(t, err)
	assert.Equal(t, []string{"lib/Ignored.pm", "lib/Kept.pm", "lib/blib2/Old.pm"}, candidatePaths(d.Candidates))
}

func TestDiscoverFiles_MissingScanDirs(t *testing.T) {
	tempDir := setupTestDir(t, map[string]string{"README": "hello"})
	_, logBuf := setupTestLogger(t)

	d, err := discoverFiles(testSettings(tempDir))
	require.NoError(t, err)
	assert.Empty(t, d.Candidates)
	assert.Empty(t, d.ErrorFiles)
	assert.Contains(t, logBuf.String(), "Scan directory not present, skipping.")
}

func TestDiscoverFiles_ManualFiles(t *testing.T) {
	structure := map[string]string{
		"lib/Foo.pm":     "package Foo;\n",
		"lib/Foo.pm.bak": "package Foo;\n",
		"tools/gen":      "#!/usr/bin/perl\n",
		"docs/Guide.pod": "=pod\n",
		"somedir/":       "",
	}
	tempDir := setupTestDir(t, structure)
	setupTestLogger(t)

	s := testSettings(tempDir)
	s.ManualFiles = []string{
		"lib/Foo.pm.bak",
		"tools/gen",
		filepath.Join(tempDir, "docs", "Guide.pod"),
		"lib/Foo.pm",
		"missing.pm",
		"somedir",
		"tools/gen",
	}

	d, err := discoverFiles(s)
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/Guide.pod", "lib/Foo.pm", "lib/Foo.pm.bak", "tools/gen"}, candidatePaths(d.Candidates))

	roles := candidateRoles(d.Candidates)
	assert.Equal(t, munge.RoleDocOnly, roles["docs/Guide.pod"])
	assert.Equal(t, munge.RoleModule, roles["lib/Foo.pm"])
	assert.Equal(t, munge.RoleExecutable, roles["tools/gen"])
	for _, c := range d.Candidates {
		if c.RelPath == "lib/Foo.pm" {
			assert.True(t, c.IsManual, "manual entry should win over the scan")
		}
	}

	require.Len(t, d.ErrorFiles, 2)
	assert.Contains(t, d.ErrorFiles, "missing.pm")
	assert.Contains(t, d.ErrorFiles, "somedir")
}

func TestDiscoverFiles_SkipMainModule(t *testing.T) {
	root := filepath.Join(t.TempDir(), "Foo-Bar-1.02")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "lib", "Foo", "Bar"), 0755))
	for _, p := range []string{"lib/Foo/Bar.pm", "lib/Foo/Bar/Util.pm"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, p), []byte("# VERSION\n"), 0644))
	}
	setupTestLogger(t)

	s := testSettings(root)
	s.SkipMainModule = true
	d, err := discoverFiles(s)
	require.NoError(t, err)
	assert.Equal(t, []string{"lib/Foo/Bar/Util.pm"}, candidatePaths(d.Candidates))
	assert.Equal(t, map[string]string{"lib/Foo/Bar.pm": reasonMainModule}, d.Skipped)

	s.MainModule = "lib/Foo/Bar/Util.pm"
	d, err = discoverFiles(s)
	require.NoError(t, err)
	assert.Equal(t, []string{"lib/Foo/Bar.pm"}, candidatePaths(d.Candidates))
}

func TestMainModulePath(t *testing.T) {
	testCases := []struct {
		name       string
		root       string
		configured string
		want       string
	}{
		{name: "Plain dist", root: "/src/Foo-Bar", want: "lib/Foo/Bar.pm"},
		{name: "Versioned dist", root: "/src/Foo-Bar-1.02", want: "lib/Foo/Bar.pm"},
		{name: "v-string dist", root: "/src/Acme-v0.1.2", want: "lib/Acme.pm"},
		{name: "Underscore version", root: "/src/Foo-0.01_02", want: "lib/Foo.pm"},
		{name: "Configured", root: "/src/whatever", configured: "lib/Main.pm", want: "lib/Main.pm"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, mainModulePath(tc.root, tc.configured))
		})
	}
}

func TestHasPerlShebang(t *testing.T) {
	tempDir := setupTestDir(t, map[string]string{
		"a": "#!/usr/bin/perl\nprint 1;\n",
		"b": "#!/usr/bin/env perl",
		"c": "#!/bin/bash\n",
		"d": "print 1;\n#!/usr/bin/perl\n",
		"e": "",
	})
	assert.True(t, hasPerlShebang(filepath.Join(tempDir, "a")))
	assert.True(t, hasPerlShebang(filepath.Join(tempDir, "b")))
	assert.False(t, hasPerlShebang(filepath.Join(tempDir, "c")))
	assert.False(t, hasPerlShebang(filepath.Join(tempDir, "d")))
	assert.False(t, hasPerlShebang(filepath.Join(tempDir, "e")))
	assert.False(t, hasPerlShebang(filepath.Join(tempDir, "missing")))
}
