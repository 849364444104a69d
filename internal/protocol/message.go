package protocol

import (
	"bytes"
	"io"
)

// Action is the command keyword carried in argument 0 of a frame.
type Action int

const (
	ActionUnknown Action = iota
	ActionNick
	ActionMsg
)

var (
	nickKeyword = []byte("NICK")
	msgKeyword  = []byte("MSG")
	failKeyword = []byte("FAIL")
)

// ParseAction classifies a keyword by exact byte match. It never fails:
// anything unrecognized is ActionUnknown.
func ParseAction(b []byte) Action {
	switch {
	case bytes.Equal(b, nickKeyword):
		return ActionNick
	case bytes.Equal(b, msgKeyword):
		return ActionMsg
	default:
		return ActionUnknown
	}
}

// Bytes returns the wire keyword. ActionUnknown serializes as "FAIL".
func (a Action) Bytes() []byte {
	switch a {
	case ActionNick:
		return nickKeyword
	case ActionMsg:
		return msgKeyword
	default:
		return failKeyword
	}
}

func (a Action) String() string {
	if a == ActionUnknown {
		return "UNKNOWN"
	}
	return string(a.Bytes())
}

// Message is a typed view over a decoded frame. Args aliases the frame's
// remaining arguments and is only valid as long as the frame is.
type Message struct {
	Action Action
	Args   [][]byte
}

// ParseMessage splits f into its action and arguments.
func ParseMessage(f Frame) (Message, error) {
	if len(f) == 0 {
		return Message{}, ErrEmptyFrame
	}
	return Message{
		Action: ParseAction(f[0]),
		Args:   f[1:],
	}, nil
}

// WriteMessage writes a frame made of the action keyword followed by args.
func WriteMessage(w io.Writer, action Action, args ...[]byte) error {
	return WriteFrame(w, append([][]byte{action.Bytes()}, args...)...)
}
