package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	var fs = pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("threshold", 300, "")
	fs.String("format", "markdown", "")
	fs.String("base-branch", "main", "")
	fs.String("config", "", "")
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return fs
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Threshold != 300 || cfg.Format != "markdown" || cfg.Publish != PublishNone {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.DiagnosticsCommand != DefaultDiagnosticsCommand || cfg.ContractMarker != "Check time" {
		t.Fatalf("unexpected pipeline defaults %+v", cfg)
	}
	if cfg.GitHubAPIURL != "https://api.github.com" || cfg.LogLevel != "info" {
		t.Fatalf("unexpected service defaults %+v", cfg)
	}
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("DIAGCOMPARE_THRESHOLD", "450")
	t.Setenv("DIAGCOMPARE_BASE_BRANCH", "develop")
	t.Setenv("GITHUB_TOKEN", "secret")
	t.Setenv("GITHUB_REPOSITORY", "acme/widgets")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Threshold != 450 || cfg.BaseBranch != "develop" {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.GitHubToken != "secret" || cfg.Repository != "acme/widgets" {
		t.Fatalf("CI variables not applied: %+v", cfg)
	}
}

func TestLoadFlagsBeatEnvironment(t *testing.T) {
	t.Setenv("DIAGCOMPARE_THRESHOLD", "450")
	cfg, err := Load(newFlags(t, "--threshold=120", "--base-branch=release"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Threshold != 120 || cfg.BaseBranch != "release" {
		t.Fatalf("flags not applied: %+v", cfg)
	}
}

func TestLoadUnsetFlagsKeepEnvironment(t *testing.T) {
	t.Setenv("DIAGCOMPARE_THRESHOLD", "450")
	cfg, err := Load(newFlags(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Threshold != 450 {
		t.Fatalf("expected env threshold, got %d", cfg.Threshold)
	}
}

func TestLoadConfigFile(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "diag.yaml")
	var content = "threshold: 800\nformat: yaml\npublish: board\nboard_context: pr-7\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(newFlags(t, "--config="+path))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Threshold != 800 || cfg.Format != "yaml" || cfg.Publish != PublishBoard || cfg.BoardContext != "pr-7" {
		t.Fatalf("config file not applied: %+v", cfg)
	}
}

func TestLoadMissingConfigFileFails(t *testing.T) {
	if _, err := Load(newFlags(t, "--config="+filepath.Join(t.TempDir(), "nope.yaml"))); err == nil {
		t.Fatalf("expected error for explicit missing config")
	}
}

func TestValidate(t *testing.T) {
	var cases = []struct {
		name string
		cfg  Config
		want string
	}{
		{"negative threshold", Config{Threshold: -1, Format: "markdown", Publish: PublishNone}, "negative"},
		{"bad format", Config{Format: "csv", Publish: PublishNone}, "unknown format"},
		{"bad publish", Config{Format: "json", Publish: "slack"}, "unknown publish"},
		{"bad repository", Config{Format: "json", Publish: PublishGitHub, Repository: "widgets", PullRequest: 1}, "owner/name"},
		{"missing pr", Config{Format: "json", Publish: PublishGitHub, Repository: "acme/widgets"}, "pull request"},
	}
	for _, tc := range cases {
		var err = tc.cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected error containing %q, got %v", tc.name, tc.want, err)
		}
	}

	var ok = Config{Format: "markdown", Publish: PublishGitHub, Repository: "acme/widgets", PullRequest: 9}
	if err := ok.Validate(); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	owner, repo, _ := ok.RepositoryParts()
	if owner != "acme" || repo != "widgets" {
		t.Fatalf("unexpected parts %s %s", owner, repo)
	}
}
