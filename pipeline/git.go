package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"diagcompare/collector"
)

// git drives the git binary inside one work tree.
type git struct {
	runner collector.Runner
	dir    string
	log    *zap.Logger
}

func (g git) run(ctx context.Context, args ...string) (string, error) {
	g.log.Debug("> git " + strings.Join(args, " "))
	out, err := g.runner.Run(ctx, g.dir, "git", args...)
	if err != nil {
		return out, fmt.Errorf("git %s: %w", args[0], err)
	}
	return strings.TrimSpace(out), nil
}

// currentRef returns the checked out branch, or the commit when HEAD is
// detached.
func (g git) currentRef(ctx context.Context) (string, error) {
	ref, err := g.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	if ref != "HEAD" {
		return ref, nil
	}
	return g.run(ctx, "rev-parse", "HEAD")
}

func (g git) fetch(ctx context.Context, branch string) error {
	_, err := g.run(ctx, "fetch", "origin", branch)
	return err
}

func (g git) checkout(ctx context.Context, ref string) error {
	_, err := g.run(ctx, "checkout", ref)
	return err
}
