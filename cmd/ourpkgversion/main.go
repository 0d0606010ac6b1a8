// cmd/ourpkgversion/main.go
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	pflag "github.com/spf13/pflag"

	"github.com/gagin/ourpkgversion/internal/munge"
)

const Version = "0.1.0"

// Exit codes.
const (
	exitOK         = 0
	exitFileErrors = 1
	exitConfig     = 2
	exitWouldMunge = 3
)

// flagValues holds the parsed command line.
type flagValues struct {
	directory      string
	setVersion     string
	trial          bool
	overwrite      bool
	underscoreEval bool
	manualFiles    []string
	exclude        []string
	noGitignore    bool
	skipMainModule bool
	jobs           int
	dryRun         bool
	check          bool
	noColor        bool
	quiet          bool
	configFile     string
	logLevel       string
	version        bool
}

var flags flagValues

func init() {
	pflag.StringVarP(&flags.directory, "directory", "d", ".", "Distribution root directory.")
	pflag.StringVarP(&flags.setVersion, "set-version", "V", "", "Version to embed (overrides $V and config).")
	pflag.BoolVar(&flags.trial, "trial", false, "Mark the release as a trial release.")
	pflag.BoolVar(&flags.overwrite, "overwrite", false, "Replace the value of existing $VERSION assignments.")
	pflag.BoolVar(&flags.underscoreEval, "underscore-eval-version", false, "Add '$VERSION = eval $VERSION;' for underscore versions.")
	pflag.StringSliceVarP(&flags.manualFiles, "files", "f", []string{}, "Comma-separated specific file paths (bypass excludes).")
	pflag.StringSliceVarP(&flags.exclude, "exclude", "x", []string{}, "Comma-separated glob patterns to exclude (adds to config).")
	pflag.BoolVar(&flags.noGitignore, "no-gitignore", false, "Disable .gitignore processing.")
	pflag.BoolVar(&flags.skipMainModule, "skip-main-module", false, "Leave the distribution's main module untouched.")
	pflag.IntVarP(&flags.jobs, "jobs", "j", 0, "Number of files processed in parallel (default: number of CPUs).")
	pflag.BoolVarP(&flags.dryRun, "dry-run", "n", false, "Report what would change without writing files.")
	pflag.BoolVar(&flags.check, "check", false, "Like --dry-run, but exit with status 3 when a file would change.")
	pflag.BoolVar(&flags.noColor, "no-color", false, "Disable coloured output.")
	pflag.BoolVarP(&flags.quiet, "quiet", "q", false, "Do not print the summary.")
	pflag.StringVarP(&flags.configFile, "config", "c", "", "Path to a custom configuration file.")
	pflag.StringVar(&flags.logLevel, "loglevel", "info", "Set logging verbosity (debug, info, warn, error).")
	pflag.BoolVarP(&flags.version, "version", "v", false, "Print version and exit.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: %s [flags] [directory]

Insert "our $VERSION = '...';" at "# VERSION" comments in the Perl
sources of a distribution.

The version comes from --set-version, the V environment variable or the
config file, in that order. TRIAL=1 in the environment marks a trial release.

Flags:
`, os.Args[0])
		pflag.PrintDefaults()
	}
}

// runSettings is the fully resolved configuration of one run.
type runSettings struct {
	Root             string
	Options          munge.Options
	ScanDirs         []string
	ExecutableDirs   []string
	Extensions       map[string]struct{}
	ExcludeBasenames []string
	ExcludePatterns  []string
	UseGitignore     bool
	SkipMainModule   bool
	MainModule       string
	ManualFiles      []string
	Jobs             int
	DryRun           bool
	Check            bool
	Quiet            bool
}

// resolveSettings layers flags and environment over the loaded config.
// changed reports whether a flag was given on the command line.
func resolveSettings(cfg Config, fv flagValues, root string, changed func(string) bool, getenv func(string) string) runSettings {
	s := runSettings{
		Root:             root,
		ScanDirs:         cfg.ScanDirs,
		ExecutableDirs:   cfg.ExecutableDirs,
		Extensions:       processExtensions(cfg.IncludeExtensions),
		ExcludeBasenames: cfg.ExcludeBasenames,
		ExcludePatterns:  append([]string{}, cfg.ExcludePatterns...),
		UseGitignore:     deref(cfg.UseGitignore, *defaultConfig.UseGitignore),
		SkipMainModule:   deref(cfg.SkipMainModule, false),
		MainModule:       deref(cfg.MainModule, ""),
		ManualFiles:      fv.manualFiles,
		Jobs:             deref(cfg.Jobs, 0),
		DryRun:           fv.dryRun || fv.check,
		Check:            fv.check,
		Quiet:            fv.quiet,
	}

	s.Options.Version = deref(cfg.Version, "")
	if v := getenv("V"); v != "" {
		slog.Debug("Using version from environment.", "V", v)
		s.Options.Version = v
	}
	if changed("set-version") {
		s.Options.Version = fv.setVersion
	}

	s.Options.Trial = deref(cfg.Trial, false)
	if t := getenv("TRIAL"); t != "" {
		s.Options.Trial = t != "0"
	}
	if changed("trial") {
		s.Options.Trial = fv.trial
	}

	s.Options.Overwrite = deref(cfg.Overwrite, false)
	if changed("overwrite") {
		s.Options.Overwrite = fv.overwrite
	}
	s.Options.UnderscoreEval = deref(cfg.UnderscoreEvalVersion, false)
	if changed("underscore-eval-version") {
		s.Options.UnderscoreEval = fv.underscoreEval
	}
	if changed("no-gitignore") {
		s.UseGitignore = !fv.noGitignore
	}
	if changed("skip-main-module") {
		s.SkipMainModule = fv.skipMainModule
	}
	if changed("jobs") {
		s.Jobs = fv.jobs
	}
	if changed("exclude") {
		slog.Debug("Adding exclude patterns from command line flag.", "patterns", fv.exclude)
		s.ExcludePatterns = append(s.ExcludePatterns, fv.exclude...)
	}
	slog.Debug("Final extension set prepared", "set_keys", mapsKeys(s.Extensions))
	return s
}

func deref[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}

func main() {
	pflag.Parse()

	if flags.version {
		fmt.Printf("ourpkgversion version %s\n", Version)
		os.Exit(exitOK)
	}

	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(flags.logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log level %q, defaulting to 'info'.\n", flags.logLevel)
		logLevel = slog.LevelInfo
	}
	logOpts := &slog.HandlerOptions{Level: logLevel, AddSource: logLevel <= slog.LevelDebug}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, logOpts)))

	if flags.noColor {
		color.NoColor = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, pflag.Args(), pflag.CommandLine.Changed, os.Getenv, os.Stdout)
	stop()
	os.Exit(code)
}

// execute runs one invocation and returns the process exit code.
func execute(ctx context.Context, args []string, changed func(string) bool, getenv func(string) string, stdout io.Writer) int {
	root := flags.directory
	if len(args) > 1 {
		fmt.Fprintf(os.Stderr, "Refusing execution: Multiple positional arguments provided: %v.\n", args)
		return exitConfig
	}
	if len(args) == 1 {
		if changed("directory") {
			fmt.Fprintf(os.Stderr, "Refusing execution: Cannot mix positional argument '%s' with flag '--directory'.\n", args[0])
			return exitConfig
		}
		root = args[0]
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Invalid directory path '%s': %v\n", root, err)
		return exitConfig
	}
	dirInfo, err := os.Stat(absRoot)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error: Directory '%s' not found.\n", absRoot)
		} else {
			fmt.Fprintf(os.Stderr, "Error accessing directory '%s': %v\n", absRoot, err)
		}
		return exitConfig
	}
	if !dirInfo.IsDir() {
		fmt.Fprintf(os.Stderr, "Error: Specified path '%s' is not a directory.\n", absRoot)
		return exitConfig
	}

	cfg, err := loadConfig(flags.configFile, absRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return exitConfig
	}
	settings := resolveSettings(cfg, flags, absRoot, changed, getenv)

	if settings.Options.Version == "" {
		fmt.Fprintln(os.Stderr, "Error: No version given (use --set-version, the V environment variable or the config file).")
		return exitConfig
	}
	m, err := munge.New(settings.Options, munge.NewLogReporter(slog.Default()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitConfig
	}

	return run(ctx, m, settings, stdout)
}

// run discovers, munges and reports. It is separate from execute so that
// tests can drive it with explicit settings.
func run(ctx context.Context, m *munge.Munger, s runSettings, stdout io.Writer) int {
	opts := m.Options()
	slog.Info("Resolved run settings.", "version", opts.Version, "trial", opts.Trial,
		"overwrite", opts.Overwrite, "underscoreEval", opts.UnderscoreEval, "dryRun", s.DryRun)

	discovery, err := discoverFiles(s)
	if err != nil {
		slog.Error("Error during file discovery.", "error", err)
		fmt.Fprintf(os.Stderr, "Error during discovery: %v\n", err)
		return exitFileErrors
	}
	if len(discovery.Candidates) == 0 {
		slog.Warn("No candidate files found.", "root", s.Root)
	}

	results, procErr := processCandidates(ctx, m, discovery.Candidates, processOptions{Jobs: s.Jobs, DryRun: s.DryRun})
	if procErr != nil {
		if isInterrupted(procErr) {
			slog.Warn("Run interrupted, files already started were finished.")
		} else {
			slog.Error("Error during processing.", "error", procErr)
		}
	}

	if !s.Quiet {
		printSummary(results, discovery.Skipped, discovery.ErrorFiles, s.Root, s.DryRun, stdout)
	}
	slog.Debug("Execution finished.")

	return exitCode(results, discovery.ErrorFiles, procErr, s.Check)
}

func exitCode(results []FileResult, errorFiles map[string]error, procErr error, check bool) int {
	if procErr != nil || len(errorFiles) > 0 {
		return exitFileErrors
	}
	wouldChange := false
	for _, r := range results {
		if r.Err != nil {
			return exitFileErrors
		}
		if r.Changed {
			wouldChange = true
		}
	}
	if check && wouldChange {
		return exitWouldMunge
	}
	return exitOK
}
