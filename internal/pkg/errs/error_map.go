package errs

// errorMap stores the template CustomError for every application error code.
var errorMap = map[int]CustomError{
	ErrFrameTooLarge:  {Code: ErrFrameTooLarge, Message: "frame exceeds maximum length"},
	ErrMalformedFrame: {Code: ErrMalformedFrame, Message: "declared frame length does not match its arguments"},
	ErrEmptyFrame:     {Code: ErrEmptyFrame, Message: "frame has no action argument"},

	ErrHandshakeRejected: {Code: ErrHandshakeRejected, Message: "handshake rejected"},
	ErrInvalidText:       {Code: ErrInvalidText, Message: "text is not valid UTF-8"},
	ErrRateLimited:       {Code: ErrRateLimited, Message: "rate limit exceeded"},

	ErrUnknown: {Code: ErrUnknown, Message: "internal error"},
}
