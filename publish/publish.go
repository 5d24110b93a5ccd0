// Package publish stores a rendered report so that each pull request (or
// local context) holds exactly one report, updated in place on every run.
package publish

import (
	"context"
	"errors"
	"strings"

	"diagcompare/report"
)

// ErrMissingCredential is returned when publishing needs a token that was
// not configured.
var ErrMissingCredential = errors.New("missing credential")

// Result describes what Upsert did.
type Result struct {
	ID      int64
	Created bool // false when an earlier report was updated
	URL     string
}

// Publisher is the contract any report destination must satisfy.
type Publisher interface {
	// Upsert replaces the earlier report carrying report.Marker, or
	// creates one if there is none.
	Upsert(ctx context.Context, body string) (Result, error)
}

// IsReport reports whether body is a rendered diagnostics report.
func IsReport(body string) bool {
	return strings.Contains(body, report.Marker)
}
