package models

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel outcomes for stream resolution. Both mean the channel cannot be
// played on this device; callers may offer to hide the channel permanently.
var (
	ErrNoStream       = errors.New("channel has no playable stream")
	ErrUnsupportedDRM = errors.New("stream is protected by an unsupported drm system")
)

// AuthError indicates the service rejected a login or token validation.
// Persisted identity is always cleared before this error propagates.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return "authentication failed"
	}
	return fmt.Sprintf("authentication failed: %s", e.Message)
}

// PlaybackError indicates a playback token or URL exchange returned no
// usable result
type PlaybackError struct {
	Message string
}

func (e *PlaybackError) Error() string {
	if e.Message == "" {
		return "playback request failed"
	}
	return fmt.Sprintf("playback request failed: %s", e.Message)
}

// DataIntegrityError indicates a catalog or detail response is missing a
// mandatory field
type DataIntegrityError struct {
	Message string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("malformed service response: %s", e.Message)
}

// NetworkError wraps a transport-level failure. No retries happen below
// this point; the caller decides retry policy.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
