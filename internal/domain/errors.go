// Package domain holds the conversion pipeline's error taxonomy.
// Every stage returns one of these classifications instead of an
// unstructured fault; the HTTP layer is the only consumer that turns
// them into wire responses.
package domain

import (
	"errors"
	"fmt"
)

// The sentinel messages double as the client-facing reason strings; the
// response composer sends them verbatim. Keep them short and free of any
// internal detail.
var (
	// ErrMissingFile signals that the request carried no file payload.
	ErrMissingFile = errors.New("No file uploaded")
	// ErrInvalidFormat signals that the upload is not a ZIP-based spreadsheet.
	ErrInvalidFormat = errors.New("Invalid file type, expected an .xlsx spreadsheet")
	// ErrFileTooLarge signals that the upload exceeds the configured ceiling.
	ErrFileTooLarge = errors.New("File too large")
	// ErrOverloaded signals that the admission guard rejected the request
	// under memory pressure.
	ErrOverloaded = errors.New("Server overloaded, try again later")
	// ErrMalformedDocument signals that the spreadsheet library could not
	// parse or serialize the document. The composer hides it behind a
	// generic internal error.
	ErrMalformedDocument = errors.New("malformed spreadsheet document")
	// ErrRenderTimeout signals that the renderer call exceeded its budget
	// or failed at the transport level.
	ErrRenderTimeout = errors.New("PDF rendering took too long")
)

// UpstreamError is a non-success HTTP reply from the renderer. StatusCode is
// the status the client should see (5xx from the renderer collapses to 502
// before this is constructed). Message is a generic string; the renderer's
// response body is never carried here.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("renderer returned status %d: %s", e.StatusCode, e.Message)
}

// AsUpstream returns the UpstreamError in err's chain, if any.
func AsUpstream(err error) (*UpstreamError, bool) {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}
