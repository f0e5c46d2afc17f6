package domain

import "errors"

// Pipeline error taxonomy. Negotiation and profile errors are recoverable:
// the caller may retry with adjusted hints or reject the request. Process and
// container errors terminate only the affected job.
var (
	// ErrNoEligibleCodec is returned when negotiation finds no codec present
	// in source, client and target sets at once.
	ErrNoEligibleCodec = errors.New("no eligible codec")

	// ErrInsufficientData is returned when a media element or client
	// capability list required for profile resolution is absent.
	ErrInsufficientData = errors.New("insufficient data to build profile")

	// ErrProcessStartFailed is returned when the encoder subprocess could not
	// be spawned. The job is marked ended without ever running.
	ErrProcessStartFailed = errors.New("encoder process start failed")

	// ErrSegmentUnavailable is returned when an adaptive segment source file
	// is missing or unreadable. Only the affected segment is aborted.
	ErrSegmentUnavailable = errors.New("segment unavailable")

	// ErrJobNotFound is returned when a job id has no live process.
	ErrJobNotFound = errors.New("job not found")
)
