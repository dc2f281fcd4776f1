// Package errs holds the error taxonomy shared by the whiteboard packages.
//
// Call sites wrap one of these sentinels with fmt.Errorf("%w: ...") so callers can
// classify failures with errors.Is without caring which component raised them.
package errs

import "errors"

var (
	// ErrInvalidInstruction is returned for empty or non-string instructions.
	ErrInvalidInstruction = errors.New("invalid instruction")

	// ErrUnrecognizedInstruction is returned when no interpreter rule matched.
	ErrUnrecognizedInstruction = errors.New("unrecognized instruction")

	// ErrInvalidGeometry is returned for non-finite or out-of-range shape fields.
	ErrInvalidGeometry = errors.New("invalid geometry")

	// ErrTransport covers chat, LLM and computation network failures.
	ErrTransport = errors.New("transport error")

	// ErrComputationTimeout is returned when the symbolic backend exceeds its wait.
	ErrComputationTimeout = errors.New("computation timeout")
)
