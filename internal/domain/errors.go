package domain

import "errors"

var (
	// ErrJobNotFound is returned when a job cannot be found by ID.
	ErrJobNotFound = errors.New("job not found")

	// ErrTaskNotFound is returned when a tracked task cannot be found by its remote id.
	ErrTaskNotFound = errors.New("task not found")

	// ErrInvalidJobType is returned when an unsupported job type is submitted.
	ErrInvalidJobType = errors.New("invalid or unsupported job type")

	// ErrInvalidEngine is returned when an unknown analysis engine is requested.
	ErrInvalidEngine = errors.New("invalid or unsupported analysis engine")

	// ErrNoCredential is returned by remote calls attempted without a session
	// credential. Job advancement treats this as "retry later", not failure.
	ErrNoCredential = errors.New("no session credential available")

	// ErrTerminalJob is returned when a mutation targets a job that already
	// reached a terminal status.
	ErrTerminalJob = errors.New("job already in terminal status")

	// ErrRegistryClosed is returned when operating on a registry after Shutdown.
	ErrRegistryClosed = errors.New("registry is shut down")
)
