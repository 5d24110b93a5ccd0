package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"diagcompare/logger"
	"diagcompare/pipeline"
	"diagcompare/publish"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(logFailure(os.Stderr, err))
	}
}

// logFailure writes err as a single error entry to w and returns the exit
// status for it.
func logFailure(w io.Writer, err error) int {
	code := exitCode(err)
	log, lerr := logger.NewWithWriter("error", w)
	if lerr != nil {
		fmt.Fprintf(w, "diagcompare: %v\n", err)
		return code
	}
	log.Logger.Error("diagcompare failed", zap.Error(err), zap.Int("exit_code", code))
	logger.Flush(log.Logger)
	return code
}

// exitCode maps error kinds to distinct exit statuses so CI scripts can
// tell a broken setup from a failed run.
func exitCode(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrUnsupportedEnvironment):
		return 3
	case errors.Is(err, publish.ErrMissingCredential):
		return 4
	case errors.Is(err, pipeline.ErrContractViolation):
		return 5
	default:
		return 1
	}
}
