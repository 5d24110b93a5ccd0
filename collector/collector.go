package collector

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Collector is the public contract any diagnostics source must satisfy.
type Collector interface {
	// Collect returns the raw diagnostics text of one build.
	Collect(ctx context.Context) (string, error)
}

// CollectPair fetches the baseline and the current diagnostics at the same
// time. Both sources must be independent of each other.
func CollectPair(ctx context.Context, previous, current Collector, log *zap.Logger) (string, string, error) {
	var prevText, curText string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		text, err := previous.Collect(gctx)
		if err != nil {
			return fmt.Errorf("collect previous: %w", err)
		}
		prevText = text
		return nil
	})
	g.Go(func() error {
		text, err := current.Collect(gctx)
		if err != nil {
			return fmt.Errorf("collect current: %w", err)
		}
		curText = text
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Error("collector failed", zap.Error(err))
		return "", "", err
	}
	log.Debug("diagnostics collected", zap.Int("previous_bytes", len(prevText)), zap.Int("current_bytes", len(curText)))
	return prevText, curText, nil
}

// FileCollector reads diagnostics saved to a local file. "-" reads stdin.
type FileCollector struct {
	Path  string
	Stdin io.Reader // used for "-"; nil means os.Stdin
}

func (f *FileCollector) Collect(ctx context.Context) (string, error) {
	if f.Path == "-" {
		in := f.Stdin
		if in == nil {
			in = os.Stdin
		}
		b, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(f.Path) // #nosec G304 -- path comes from the operator
	if err != nil {
		return "", fmt.Errorf("read %s: %w", f.Path, err)
	}
	return string(b), nil
}

// Runner executes a command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) (string, error)
}

// ExecRunner runs commands as local processes.
type ExecRunner struct {
	Log *zap.Logger
}

func (r ExecRunner) Run(ctx context.Context, dir, name string, args ...string) (string, error) {
	if r.Log != nil {
		r.Log.Debug("exec", zap.String("dir", dir), zap.String("cmd", name), zap.Strings("args", args))
	}
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return out.String(), fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return out.String(), nil
}

// CommandCollector runs a local command that prints diagnostics.
type CommandCollector struct {
	Dir     string
	Command []string
	Runner  Runner // nil means ExecRunner
}

func (c *CommandCollector) Collect(ctx context.Context) (string, error) {
	if len(c.Command) == 0 {
		return "", fmt.Errorf("no diagnostics command configured")
	}
	runner := c.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	return runner.Run(ctx, c.Dir, c.Command[0], c.Command[1:]...)
}

// HTTPCollector downloads diagnostics text, e.g. a CI artifact.
type HTTPCollector struct {
	URL       string
	HTTP      *http.Client // injected for testability (may be nil -> default client)
	UserAgent string
}

// NewHTTPCollector returns a ready-to-use collector.
func NewHTTPCollector(url string) *HTTPCollector {
	return &HTTPCollector{
		URL:       url,
		HTTP:      &http.Client{Timeout: 30 * time.Second},
		UserAgent: "diagcompare/0.1",
	}
}

func (h *HTTPCollector) Collect(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	if h.UserAgent != "" {
		req.Header.Set("User-Agent", h.UserAgent)
	}
	client := h.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%s returned %d: %s", h.URL, resp.StatusCode, strings.TrimSpace(string(b)))
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(b), nil
}
