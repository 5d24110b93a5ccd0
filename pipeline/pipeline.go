// Package pipeline builds two branches of a work tree, collects the
// compiler diagnostics of each and turns them into a published report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"diagcompare/collector"
	"diagcompare/compare"
	"diagcompare/diagnostics"
	"diagcompare/logger"
	"diagcompare/publish"
	"diagcompare/report"
)

// Options is everything one run needs. It replaces any ambient CI state.
type Options struct {
	WorkDir            string
	BaseBranch         string
	HeadBranch         string // empty means the branch checked out when Run starts
	DiagnosticsCommand string
	ContractMarker     string // text the diagnostics output must contain; empty disables the check
	ThresholdMillis    int
	SkipInstall        bool
	Fetch              bool

	Runner    collector.Runner  // nil means collector.ExecRunner
	Publisher publish.Publisher // nil skips publishing
	Log       *zap.Logger
}

// Result is the outcome of one run.
type Result struct {
	RunID     string
	Previous  *diagnostics.Snapshot
	Current   *diagnostics.Snapshot
	Deltas    []compare.Delta
	Report    string
	Published *publish.Result
}

// Run checks out the base branch and then the head branch, collecting
// diagnostics for each, and restores the original checkout afterwards.
func Run(ctx context.Context, opts Options) (res *Result, err error) {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	log, runID := logger.WithRunID(opts.Log)
	if opts.Runner == nil {
		opts.Runner = collector.ExecRunner{Log: log}
	}
	command := strings.Fields(opts.DiagnosticsCommand)
	if len(command) == 0 {
		return nil, fmt.Errorf("no diagnostics command configured")
	}

	g := git{runner: opts.Runner, dir: opts.WorkDir, log: log}
	original, err := g.currentRef(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve current checkout: %w", err)
	}
	head := opts.HeadBranch
	if head == "" {
		head = original
	}
	log.Info("comparison started",
		zap.String("base", opts.BaseBranch), zap.String("head", head), zap.String("work_dir", opts.WorkDir))

	defer func() {
		if restoreErr := g.checkout(context.WithoutCancel(ctx), original); restoreErr != nil {
			log.Error("restoring checkout failed", zap.String("ref", original), zap.Error(restoreErr))
			err = errors.Join(err, fmt.Errorf("restore %s: %w", original, restoreErr))
		}
	}()

	previousText, err := collectBranch(ctx, g, opts, command, opts.BaseBranch, log)
	if err != nil {
		return nil, err
	}
	currentText, err := collectBranch(ctx, g, opts, command, head, log)
	if err != nil {
		return nil, err
	}

	res = &Result{
		RunID:    runID,
		Previous: diagnostics.Parse(previousText),
		Current:  diagnostics.Parse(currentText),
	}
	res.Deltas = compare.Classify(res.Previous, res.Current, float64(opts.ThresholdMillis))
	res.Report = report.Render(res.Deltas)
	log.Info("comparison finished", zap.Int("metrics", len(res.Deltas)))

	if opts.Publisher != nil {
		published, err := opts.Publisher.Upsert(ctx, res.Report)
		if err != nil {
			return res, fmt.Errorf("publish report: %w", err)
		}
		res.Published = &published
	}
	return res, nil
}

func collectBranch(ctx context.Context, g git, opts Options, command []string, branch string, log *zap.Logger) (string, error) {
	log = log.With(zap.String("branch", branch))

	if opts.Fetch {
		if err := g.fetch(ctx, branch); err != nil {
			return "", err
		}
	}
	if err := g.checkout(ctx, branch); err != nil {
		return "", err
	}

	if !opts.SkipInstall {
		installer, err := DetectInstaller(opts.WorkDir)
		if err != nil {
			return "", fmt.Errorf("branch %s: %w", branch, err)
		}
		log.Info("installing dependencies", zap.String("installer", installer.Name))
		if _, err := opts.Runner.Run(ctx, opts.WorkDir, installer.Command[0], installer.Command[1:]...); err != nil {
			return "", fmt.Errorf("install dependencies on %s: %w", branch, err)
		}
	}

	c := &collector.CommandCollector{Dir: opts.WorkDir, Command: command, Runner: opts.Runner}
	out, err := c.Collect(ctx)
	hasMarker := opts.ContractMarker == "" || strings.Contains(out, opts.ContractMarker)
	if err != nil {
		// tsc exits non-zero on type errors but still prints its diagnostics.
		if !hasMarker || opts.ContractMarker == "" {
			return "", fmt.Errorf("diagnostics on %s: %w", branch, err)
		}
		log.Warn("diagnostics command failed but produced diagnostics", zap.Error(err))
	}
	if !hasMarker {
		return "", fmt.Errorf("output of %q on %s lacks %q: %w",
			strings.Join(command, " "), branch, opts.ContractMarker, ErrContractViolation)
	}
	log.Debug("diagnostics collected", zap.Int("bytes", len(out)))
	return out, nil
}
