// Package errs defines the reporter's error taxonomy (§7). Components wrap
// these sentinels with errors.Is-compatible context rather than matching on
// error strings.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel errors for the top-level taxonomy.
var (
	// ErrInput marks malformed configuration, an invalid date range, or an
	// unreadable repository path.
	ErrInput = errors.New("input error")

	// ErrReader marks a failure reading VCS data that could not be
	// contained to a single file or commit.
	ErrReader = errors.New("repository reader error")

	// ErrLLMTransient marks a retryable LLM failure (network, 5xx,
	// rate-limit rejection, timeout).
	ErrLLMTransient = errors.New("transient LLM failure")

	// ErrLLMPermanent marks a non-retryable LLM failure that terminates a
	// pipeline branch without failing the whole run.
	ErrLLMPermanent = errors.New("permanent LLM failure")

	// ErrDecode marks a TolerantDecoder failure after all repair attempts.
	ErrDecode = errors.New("decode error")

	// ErrOversizedRecord marks an atomic record that exceeds the token
	// budget on its own; PromptFitter cannot chunk it further.
	ErrOversizedRecord = errors.New("oversized record")

	// ErrCanceled marks run cancellation.
	ErrCanceled = errors.New("canceled")
)

// OversizedRecordError carries the identifier of the offending record.
type OversizedRecordError struct {
	RecordID string
}

func (e *OversizedRecordError) Error() string {
	return fmt.Sprintf("record %q exceeds token budget", e.RecordID)
}

func (e *OversizedRecordError) Unwrap() error {
	return ErrOversizedRecord
}

// DecodeErrorKind distinguishes why a TolerantDecoder pass failed.
type DecodeErrorKind string

const (
	DecodeKindUnparsable   DecodeErrorKind = "unparsable"
	DecodeKindSchemaInvalid DecodeErrorKind = "schema_invalid"
	DecodeKindNoCandidate  DecodeErrorKind = "no_candidate"
)

// DecodeError reports a TolerantDecoder failure with enough context for the
// caller to decide whether to retry with a stricter prompt.
type DecodeError struct {
	Kind    DecodeErrorKind
	Excerpt string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error (%s): %s", e.Kind, e.Excerpt)
}

func (e *DecodeError) Unwrap() error {
	return ErrDecode
}

// ReaderFileError marks a single file within a commit that could not be
// diffed; the commit is still returned with that file marked unreadable.
type ReaderFileError struct {
	Path string
	Err  error
}

func (e *ReaderFileError) Error() string {
	return fmt.Sprintf("reader: file %q: %v", e.Path, e.Err)
}

func (e *ReaderFileError) Unwrap() error {
	return e.Err
}
