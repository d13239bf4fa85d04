package domain

import (
	"errors"
	"fmt"
)

// Common domain errors that can occur during evaluation operations.
var (
	// ErrNoJSONFound indicates that a model response contained no JSON
	// object to extract.
	ErrNoJSONFound = errors.New("no JSON found in response")

	// ErrEmptyResponse indicates that the model returned an empty response.
	ErrEmptyResponse = errors.New("empty response from AI")

	// ErrNoMetricScores indicates that a parsed response yielded no usable
	// metric scores.
	ErrNoMetricScores = errors.New("no valid metric scores found in response")

	// ErrInvalidValidationFormat indicates that a validation-protocol
	// response lacked the required proceed/reason fields.
	ErrInvalidValidationFormat = errors.New("invalid response format from validation agent")
)

// MalformedJSONError reports a JSON substring that was extracted from a
// model response but failed to decode. It carries the offending substring
// for diagnostics.
type MalformedJSONError struct {
	// Snippet is the substring that failed to decode.
	Snippet string

	// Err is the underlying decoder error.
	Err error
}

// Error implements the error interface for MalformedJSONError.
func (e *MalformedJSONError) Error() string {
	return fmt.Sprintf("JSON parsing error: %v", e.Err)
}

// Unwrap returns the underlying decoder error.
func (e *MalformedJSONError) Unwrap() error { return e.Err }

// GatewayError reports that all retry attempts against the LLM gateway
// were exhausted. Attempts counts the total calls made, including the
// initial one.
type GatewayError struct {
	// Attempts is the total number of calls made before giving up.
	Attempts int

	// Err is the error from the final attempt.
	Err error
}

// Error implements the error interface for GatewayError.
func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway call failed after %d attempts: %v", e.Attempts, e.Err)
}

// Unwrap returns the error from the final attempt.
func (e *GatewayError) Unwrap() error { return e.Err }
