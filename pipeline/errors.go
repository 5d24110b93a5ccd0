package pipeline

import "errors"

var (
	// ErrUnsupportedEnvironment means the work tree has no dependency
	// install mechanism we know how to drive.
	ErrUnsupportedEnvironment = errors.New("unsupported environment")

	// ErrContractViolation means the diagnostics command did not print
	// the expected marker, so its output cannot be compared.
	ErrContractViolation = errors.New("diagnostics contract violation")
)
