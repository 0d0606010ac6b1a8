// cmd/ourpkgversion/process.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/gagin/ourpkgversion/internal/munge"
)

// FileResult is what happened to one candidate.
type FileResult struct {
	Path      string
	Role      munge.Role
	IsManual  bool
	Status    munge.Status
	Reason    string
	Mutations int
	Changed   bool // rewritten text differs from the original
	Written   bool
	Err       error
}

// processOptions controls persistence of munged files.
type processOptions struct {
	Jobs   int
	DryRun bool
}

// processCandidates munges every candidate with at most opts.Jobs files in
// flight. Results are returned in candidate order. A cancelled context stops
// new files from being started; files already being processed finish.
func processCandidates(ctx context.Context, m *munge.Munger, candidates []Candidate, opts processOptions) ([]FileResult, error) {
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	results := make([]FileResult, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, c := range candidates {
		if gctx.Err() != nil {
			break
		}
		i, c := i, c
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = processFile(m, c, opts.DryRun)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, fmt.Errorf("processing interrupted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return results, fmt.Errorf("processing interrupted: %w", err)
	}
	return results, nil
}

func processFile(m *munge.Munger, c Candidate, dryRun bool) FileResult {
	res := FileResult{Path: c.RelPath, Role: c.Role, IsManual: c.IsManual}

	content, err := os.ReadFile(c.AbsPath)
	if err != nil {
		slog.Warn("Error reading file.", "path", c.RelPath, "error", err)
		res.Err = fmt.Errorf("reading file: %w", err)
		return res
	}
	text := string(content)

	role := c.Role
	if role == munge.RoleModule && munge.PodOnly(text) {
		slog.Debug("Module contains only POD.", "path", c.RelPath)
		role = munge.RoleDocOnly
	}
	res.Role = role

	out := m.Munge(c.RelPath, text, role)
	res.Status = out.Status
	res.Reason = out.Reason
	res.Mutations = out.Mutations
	res.Changed = out.Munged() && out.Text != text
	for _, p := range out.Plans {
		slog.Debug("Planned rewrite.", "path", c.RelPath, "line", p.Site.Line, "action", p.Action, "eval", p.Eval)
	}
	if !res.Changed || dryRun {
		return res
	}

	if err := writeFileAtomic(c.AbsPath, []byte(out.Text)); err != nil {
		slog.Error("Error writing file.", "path", c.RelPath, "error", err)
		res.Err = err
		return res
	}
	res.Written = true
	return res
}

// writeFileAtomic replaces path with data through a temporary file in the
// same directory, keeping the original permissions.
func writeFileAtomic(path string, data []byte) (err error) {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat '%s': %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary file for '%s': %w", path, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing temporary file for '%s': %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing temporary file for '%s': %w", path, err)
	}
	if err = os.Chmod(tmpName, info.Mode().Perm()); err != nil {
		return fmt.Errorf("setting permissions on '%s': %w", tmpName, err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing '%s': %w", path, err)
	}
	return nil
}

// isInterrupted reports whether err comes from a cancelled run.
func isInterrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
