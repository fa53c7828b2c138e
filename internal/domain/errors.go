package domain

import (
	"errors"
	"fmt"
)

// The pipeline surfaces four failure classes. Each is fatal for the job it
// occurs in; Retryable marks transport-level conditions a caller could
// reasonably try again, as opposed to structural ones (bad JSON, empty
// manifest) that will fail the same way every time.

// ResolutionError means the token exchange failed or returned nothing usable.
type ResolutionError struct {
	PageID    string
	Retryable bool
	Err       error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolving %s: %v", e.PageID, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// ManifestError means the playlist document was empty or yielded no segments.
type ManifestError struct {
	URL       string
	Retryable bool
	Err       error
}

func (e *ManifestError) Error() string {
	return fmt.Sprintf("manifest %s: %v", e.URL, e.Err)
}

func (e *ManifestError) Unwrap() error { return e.Err }

// FetchError means the segment set could not be retrieved. Individual
// segment failures are warnings; this fires when coverage is incomplete
// or nothing came back at all.
type FetchError struct {
	Missing   int
	Total     int
	Retryable bool
	Err       error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetching segments: %v", e.Err)
	}
	return fmt.Sprintf("fetching segments: %d of %d missing", e.Missing, e.Total)
}

func (e *FetchError) Unwrap() error { return e.Err }

// AssemblyError means concatenation of the downloaded segments failed.
type AssemblyError struct {
	OutputPath string
	Err        error
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("assembling %s: %v", e.OutputPath, e.Err)
}

func (e *AssemblyError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is a pipeline error caused by a
// transient network condition rather than a structural one.
func IsRetryable(err error) bool {
	var re *ResolutionError
	if errors.As(err, &re) {
		return re.Retryable
	}
	var me *ManifestError
	if errors.As(err, &me) {
		return me.Retryable
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Retryable
	}
	return false
}
