/*
Package errs provides custom error types and application-level error code constants.

These error codes identify protocol and session failures on both the server and the client.
They are never sent to the peer; they only travel through logs and error returns.
*/
package errs

// 1xxx: Framing Errors
const (
	// ErrFrameTooLarge indicates that a declared frame or argument length exceeds the protocol limit.
	ErrFrameTooLarge = 1001

	// ErrMalformedFrame indicates that the declared total length does not match the argument sizes.
	ErrMalformedFrame = 1002

	// ErrEmptyFrame indicates a frame without the mandatory action argument.
	ErrEmptyFrame = 1003
)

// 2xxx: Session Errors
const (
	// ErrHandshakeRejected indicates that the first frame of a connection was not a valid NICK.
	ErrHandshakeRejected = 2001

	// ErrInvalidText indicates that a text field is not valid UTF-8.
	ErrInvalidText = 2002

	// ErrRateLimited indicates that a peer exceeded its configured rate.
	ErrRateLimited = 2003
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified internal error.
	ErrUnknown = 5000
)
