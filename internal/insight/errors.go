package insight

import "errors"

// Errors returned by narrators. Compare with errors.Is.
var (
	// ErrAuthentication reports a missing or rejected credential.
	ErrAuthentication = errors.New("authentication failed")

	// ErrTransport reports that the chat endpoint could not be reached.
	ErrTransport = errors.New("transport failure")

	// ErrUnexpectedResponse reports a non-success status or a reply without
	// a message.
	ErrUnexpectedResponse = errors.New("unexpected response")

	// ErrUnknownKind reports a request kind the narrator cannot handle.
	ErrUnknownKind = errors.New("unknown insight kind")
)
