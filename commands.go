package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"diagcompare/collector"
	"diagcompare/compare"
	"diagcompare/config"
	"diagcompare/diagnostics"
	"diagcompare/logger"
	"diagcompare/pipeline"
	"diagcompare/publish"
	"diagcompare/report"
	"diagcompare/server"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "diagcompare",
		Short:         "Compare compiler build diagnostics between two runs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file (default ./configs/config.yaml)")
	pf.String("log-level", "info", "debug|info|warn|error")
	pf.Int("threshold", compare.DefaultThresholdMillis, "tolerance for time metrics in milliseconds")
	pf.String("format", report.FormatMarkdown, "markdown|json|yaml")
	pf.StringP("output", "o", "", "write the report to this file instead of stdout")
	pf.String("publish", config.PublishNone, "none|github|board")
	pf.String("repository", "", "owner/name of the GitHub repository")
	pf.Int("pull-request", 0, "pull request number to comment on")
	pf.String("github-api-url", "https://api.github.com", "GitHub REST API base URL")
	pf.String("board-path", "./data/reports.db", "SQLite file used by --publish=board")
	pf.String("board-context", "local", "board key that holds one report")

	root.AddCommand(newCompareCmd(), newRunCmd(), newServeCmd())
	return root
}

func newCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <previous> <current>",
		Short: "Compare two saved diagnostics outputs",
		Long: `Compare the diagnostics of a baseline run with those of a new run.

Each source is a file path, "-" for stdin, an http(s) URL, an
ssh://user@host/path URL, or exec:<command>.

Example:
  diagcompare compare base.txt head.txt --threshold 250`,
		Args: cobra.ExactArgs(2),
		RunE: runCompare,
	}
	cmd.Flags().String("ssh-user", "", "default user for ssh:// sources")
	cmd.Flags().String("ssh-key-path", "", "private key for ssh:// sources")
	cmd.Flags().String("ssh-known-hosts", "", "known_hosts file for ssh:// sources")
	return cmd
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build the base and head branches and compare their diagnostics",
		Args:  cobra.NoArgs,
		RunE:  runPipeline,
	}
	f := cmd.Flags()
	f.String("work-dir", ".", "git work tree to build")
	f.String("base-branch", "main", "baseline branch")
	f.String("head-branch", "", "branch with the change (default: current checkout)")
	f.String("diagnostics-command", config.DefaultDiagnosticsCommand, "command printing key: value diagnostics")
	f.String("contract-marker", "Check time", "text the diagnostics output must contain")
	f.Bool("skip-install", false, "do not install dependencies before building")
	f.Bool("fetch", false, "git fetch each branch from origin first")
	return cmd
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve POST /compare over HTTP",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().String("listen-addr", ":8080", "address to listen on")
	return cmd
}

func setup(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("set up logger: %w", err)
	}
	return cfg, log.Logger, nil
}

func runCompare(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Flush(log)
	ctx := logger.WithContext(cmd.Context(), log)

	opts := collector.Options{
		SSHUser:       cfg.SSHUser,
		SSHKeyPath:    cfg.SSHKeyPath,
		SSHKnownHosts: cfg.SSHKnownHosts,
		Runner:        collector.ExecRunner{Log: log},
		Log:           log,
	}
	previous, err := collector.FromSource(args[0], opts)
	if err != nil {
		return err
	}
	current, err := collector.FromSource(args[1], opts)
	if err != nil {
		return err
	}
	if args[0] == "-" && args[1] == "-" {
		return errors.New("only one source can read stdin")
	}

	prevText, curText, err := collector.CollectPair(ctx, previous, current, log)
	if err != nil {
		return err
	}

	deltas := compare.Classify(diagnostics.Parse(prevText), diagnostics.Parse(curText), float64(cfg.Threshold))
	log.Info("diagnostics compared", zap.Int("metrics", len(deltas)), zap.Int("threshold_ms", cfg.Threshold))

	if err := emit(cfg, deltas); err != nil {
		return err
	}
	return publishReport(ctx, cfg, report.Render(deltas))
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Flush(log)
	ctx := logger.WithContext(cmd.Context(), log)

	pub, closePub, err := newPublisher(cfg, log)
	if err != nil {
		return err
	}
	defer closePub()

	res, err := pipeline.Run(ctx, pipeline.Options{
		WorkDir:            cfg.WorkDir,
		BaseBranch:         cfg.BaseBranch,
		HeadBranch:         cfg.HeadBranch,
		DiagnosticsCommand: cfg.DiagnosticsCommand,
		ContractMarker:     cfg.ContractMarker,
		ThresholdMillis:    cfg.Threshold,
		SkipInstall:        cfg.SkipInstall,
		Fetch:              cfg.Fetch,
		Publisher:          pub,
		Log:                log,
	})
	if err != nil {
		return err
	}
	return emit(cfg, res.Deltas)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Flush(log)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.NewHandler(log),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.ListenAddr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-cmd.Context().Done():
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info("shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// emit writes the deltas in the configured format to stdout or the
// output file.
func emit(cfg *config.Config, deltas []compare.Delta) error {
	var buf bytes.Buffer
	if err := report.Encode(&buf, deltas, cfg.Format); err != nil {
		return err
	}
	if cfg.Output == "" {
		_, err := os.Stdout.Write(buf.Bytes())
		return err
	}
	return writeToFile(cfg.Output, buf.Bytes())
}

func writeToFile(path string, content []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func publishReport(ctx context.Context, cfg *config.Config, body string) error {
	log := logger.FromContext(ctx, nil)
	pub, closePub, err := newPublisher(cfg, log)
	if err != nil || pub == nil {
		return err
	}
	defer closePub()
	if _, err := pub.Upsert(ctx, body); err != nil {
		return fmt.Errorf("publish report: %w", err)
	}
	return nil
}

// newPublisher returns nil when publishing is off.
func newPublisher(cfg *config.Config, log *zap.Logger) (publish.Publisher, func(), error) {
	noop := func() {}
	switch cfg.Publish {
	case config.PublishGitHub:
		owner, repo, err := cfg.RepositoryParts()
		if err != nil {
			return nil, noop, err
		}
		gh, err := publish.NewGitHub(cfg.GitHubAPIURL, cfg.GitHubToken, owner, repo, cfg.PullRequest, log)
		if err != nil {
			return nil, noop, err
		}
		return gh, noop, nil
	case config.PublishBoard:
		board, err := publish.OpenBoard(cfg.BoardPath, cfg.BoardContext, log)
		if err != nil {
			return nil, noop, err
		}
		return board, func() { _ = board.Close() }, nil
	default:
		return nil, noop, nil
	}
}
