package content

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every storage layer. Callers match with errors.Is;
// concrete failures wrap one of these with %w.
var (
	// ErrStorageUnavailable means the local store could not be read or written.
	ErrStorageUnavailable = errors.New("local storage unavailable")
	// ErrRemoteUnavailable covers network, auth and 5xx failures of a configured backend.
	ErrRemoteUnavailable = errors.New("remote backend unavailable")
	// ErrRemoteConflict is returned when a revision marker no longer matches the remote.
	ErrRemoteConflict = errors.New("remote revision conflict")
	// ErrRemoteNotConfigured is returned when an operation needs a backend and none is set up.
	ErrRemoteNotConfigured = errors.New("remote backend not configured")

	ErrBlobTooLarge       = errors.New("file too large")
	ErrBlobUploadRejected = errors.New("upload rejected")
	ErrBlobNotConfigured  = errors.New("file hosting not configured")

	ErrNotFound    = errors.New("record not found")
	ErrInvalid     = errors.New("invalid record")
	ErrUnsupported = errors.New("not supported by the active backend")
)

// BlobTooLargeError reports a file rejected by the size limit.
type BlobTooLargeError struct {
	Size  int64
	Limit int64
}

func (e *BlobTooLargeError) Error() string {
	return fmt.Sprintf("file too large: %s exceeds the %s limit", HumanSize(e.Size), HumanSize(e.Limit))
}

func (e *BlobTooLargeError) Is(target error) bool {
	return target == ErrBlobTooLarge
}

// HumanSize formats n bytes as B, KB or MB (binary units).
func HumanSize(n int64) string {
	switch {
	case n >= 1<<20:
		if n%(1<<20) == 0 {
			return fmt.Sprintf("%dMB", n>>20)
		}
		return fmt.Sprintf("%.1fMB", float64(n)/float64(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%dKB", n>>10)
	default:
		return fmt.Sprintf("%dB", n)
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}
