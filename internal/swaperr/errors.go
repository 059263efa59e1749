// Package swaperr defines the sentinel error kinds surfaced by the swap
// core (spec §7). Callers wrap these with fmt.Errorf("...: %w", err) so
// errors.Is still matches at any layer.
package swaperr

import "errors"

var (
	// ErrAnalysisFailed is returned when a swap-data analyzer rejects a
	// keyRequest because of invalid meta or an impossible state.
	ErrAnalysisFailed = errors.New("swap: analysis failed")

	// ErrDecodeMismatch is returned when a decoded meta value or data row
	// does not match its expected shape.
	ErrDecodeMismatch = errors.New("swap: decode mismatch")

	// ErrIOFailure wraps an error returned by the underlying engine on
	// get/put/del/iterate/flush/checkpoint.
	ErrIOFailure = errors.New("swap: io failure")

	// ErrOOMCheckFailed is returned when admitting a swap-in would exceed
	// the configured in-flight memory budget.
	ErrOOMCheckFailed = errors.New("swap: oom check failed")

	// ErrRocksDegraded is returned for all writes while the engine is in
	// degraded (unwritable-disk) mode.
	ErrRocksDegraded = errors.New("swap: rocks is in degraded mode, disk may be unwritable")

	// ErrUnsupportedUtil is returned for an unrecognized util-task intention.
	ErrUnsupportedUtil = errors.New("swap: unsupported util task")

	// ErrKeyNotFound mirrors the host store's "no such key" semantics for
	// rocks-layer lookups (teacher: ethdb.ErrKeyNotFound).
	ErrKeyNotFound = errors.New("swap: key not found")

	// ErrListenerClosed is returned when a proceed callback runs against a
	// client that is already deferred-closing.
	ErrListenerClosed = errors.New("swap: listener client closed")

	// ErrProtocol is returned when a client frame doesn't parse as a
	// well-formed RESP multi-bulk or inline command.
	ErrProtocol = errors.New("swap: protocol error")
)
