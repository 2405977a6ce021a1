package domain

import "errors"

var (
	// ErrNotFound is returned when the requested resource does not exist.
	// Keeping this sentinel in domain allows adapters to map it consistently to 404/NOT_FOUND.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidInput covers submit-time validation failures other than filter keys:
	// unknown export type, blank requester, malformed field list.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnsupportedFormat is rejected at validation time; the encoder keeps a
	// defensive check so a bad format can never reach the disk.
	ErrUnsupportedFormat = errors.New("unsupported export format")
	// ErrInvalidFilter names a filter key outside the allow-list of the export type.
	// Disallowed keys are rejected at submit time, never silently dropped.
	ErrInvalidFilter = errors.New("filter key not allowed")
	// ErrQueueFull signals admission rejection; the caller should retry later.
	ErrQueueFull = errors.New("export queue at capacity")
	// ErrJobTimeout marks a job that exceeded its wall-clock budget.
	ErrJobTimeout = errors.New("export exceeded time budget")
	// ErrCancelled is the internal signal a worker observes at a checkpoint
	// after a cancellation request; it never surfaces to callers.
	ErrCancelled = errors.New("export cancelled")
	// ErrConflict is returned when a claimed record is no longer in the expected state.
	ErrConflict = errors.New("conflict")
	// ErrDatastore wraps collaborator read failures so the worker can record a
	// short cause without leaking driver internals.
	ErrDatastore = errors.New("datastore error")
)
