package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"diagcompare/compare"
	"diagcompare/report"
)

// Publish modes.
const (
	PublishNone   = "none"
	PublishGitHub = "github"
	PublishBoard  = "board"
)

// Config holds every configurable value of diagcompare.
type Config struct {
	// Comparison
	Threshold int    `mapstructure:"threshold"` // tolerance for time metrics, in milliseconds
	Format    string `mapstructure:"format"`    // markdown|json|yaml
	Output    string `mapstructure:"output"`    // report file; empty means stdout

	// Pipeline
	BaseBranch         string `mapstructure:"base_branch"`
	HeadBranch         string `mapstructure:"head_branch"`
	WorkDir            string `mapstructure:"work_dir"`
	DiagnosticsCommand string `mapstructure:"diagnostics_command"`
	ContractMarker     string `mapstructure:"contract_marker"`
	SkipInstall        bool   `mapstructure:"skip_install"`
	Fetch              bool   `mapstructure:"fetch"`

	// Publishing
	Publish      string `mapstructure:"publish"` // none|github|board
	GitHubToken  string `mapstructure:"github_token"`
	Repository   string `mapstructure:"repository"` // owner/name
	PullRequest  int    `mapstructure:"pull_request"`
	GitHubAPIURL string `mapstructure:"github_api_url"`
	BoardPath    string `mapstructure:"board_path"`
	BoardContext string `mapstructure:"board_context"`

	// Remote sources
	SSHUser       string `mapstructure:"ssh_user"`
	SSHKeyPath    string `mapstructure:"ssh_key_path"`
	SSHKnownHosts string `mapstructure:"ssh_known_hosts"`

	// Server
	ListenAddr string `mapstructure:"listen_addr"`

	LogLevel string `mapstructure:"log_level"` // debug|info|warn|error
}

// DefaultDiagnosticsCommand asks the TypeScript compiler for its
// extended diagnostics without emitting output.
const DefaultDiagnosticsCommand = "npx tsc --noEmit --extendedDiagnostics"

// Load reads configuration from (in decreasing priority):
//  1. flags in fs that were set on the command line
//  2. environment variables (DIAGCOMPARE_THRESHOLD, GITHUB_TOKEN, ...)
//  3. a yaml file (./configs/config.yaml, or the --config flag) if it exists
//  4. defaults.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault("threshold", compare.DefaultThresholdMillis)
	v.SetDefault("format", report.FormatMarkdown)
	v.SetDefault("output", "")
	v.SetDefault("base_branch", "main")
	v.SetDefault("head_branch", "")
	v.SetDefault("work_dir", ".")
	v.SetDefault("diagnostics_command", DefaultDiagnosticsCommand)
	v.SetDefault("contract_marker", "Check time")
	v.SetDefault("skip_install", false)
	v.SetDefault("fetch", false)
	v.SetDefault("publish", PublishNone)
	v.SetDefault("pull_request", 0)
	v.SetDefault("board_path", "./data/reports.db")
	v.SetDefault("board_context", "local")
	v.SetDefault("ssh_user", "")
	v.SetDefault("ssh_key_path", "")
	v.SetDefault("ssh_known_hosts", "")
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix("DIAGCOMPARE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	// CI runners export these without our prefix.
	_ = v.BindEnv("github_token", "DIAGCOMPARE_GITHUB_TOKEN", "GITHUB_TOKEN")
	_ = v.BindEnv("repository", "DIAGCOMPARE_REPOSITORY", "GITHUB_REPOSITORY")
	_ = v.BindEnv("github_api_url", "DIAGCOMPARE_GITHUB_API_URL", "GITHUB_API_URL")
	v.SetDefault("github_api_url", "https://api.github.com")

	if fs != nil {
		var bindErr error
		fs.VisitAll(func(f *pflag.Flag) {
			if f.Name == "config" {
				return
			}
			if err := v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return nil, fmt.Errorf("bind flags: %w", bindErr)
		}
	}

	if path := configPath(fs); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cannot decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func configPath(fs *pflag.FlagSet) string {
	if fs == nil {
		return ""
	}
	f := fs.Lookup("config")
	if f == nil {
		return ""
	}
	return f.Value.String()
}

// Validate checks values that the rest of the program relies on.
func (c *Config) Validate() error {
	if c.Threshold < 0 {
		return fmt.Errorf("threshold must not be negative, got %d", c.Threshold)
	}
	if !report.ValidFormat(c.Format) {
		return fmt.Errorf("unknown format %q", c.Format)
	}
	switch c.Publish {
	case PublishNone, PublishBoard:
	case PublishGitHub:
		if _, _, err := c.RepositoryParts(); err != nil {
			return err
		}
		if c.PullRequest <= 0 {
			return fmt.Errorf("publishing to github needs a pull request number")
		}
	default:
		return fmt.Errorf("unknown publish mode %q", c.Publish)
	}
	return nil
}

// RepositoryParts splits Repository into owner and name.
func (c *Config) RepositoryParts() (string, string, error) {
	owner, name, ok := strings.Cut(c.Repository, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("repository must look like owner/name, got %q", c.Repository)
	}
	return owner, name, nil
}
