// Package protocol implements the binary framing shared by the chat server and client.
//
// A frame is a sequence of length-prefixed byte arguments; argument 0 is the action keyword.
// All integers are 8-byte little-endian:
//
//	Frame    := TotalLength(u64) Argument*
//	Argument := ArgLength(u64) ArgBytes[ArgLength]
//
// TotalLength is the sum of 8+len(ArgBytes) over all arguments. Both TotalLength and every
// ArgLength are bounded by MaxLen.
package protocol

import (
	"encoding/binary"
	"fmt"
	"io"

	"tcpchat/internal/pkg/errs"
)

// MaxLen bounds both the declared frame length and every argument length.
const MaxLen = 0x10000

const lenSize = 8

var (
	ErrFrameTooLarge  = errs.NewError(errs.ErrFrameTooLarge)
	ErrMalformedFrame = errs.NewError(errs.ErrMalformedFrame)
	ErrEmptyFrame     = errs.NewError(errs.ErrEmptyFrame)
)

// Frame is one decoded protocol message.
type Frame [][]byte

// Encode serializes args into one frame.
func Encode(args ...[]byte) ([]byte, error) {
	if len(args) == 0 {
		return nil, ErrEmptyFrame
	}

	var total uint64
	for i, arg := range args {
		if len(arg) > MaxLen {
			return nil, errs.NewError(errs.ErrFrameTooLarge, "argument", i, "has", len(arg), "bytes")
		}
		total += uint64(lenSize + len(arg))
	}
	if total > MaxLen {
		return nil, errs.NewError(errs.ErrFrameTooLarge, "total", total, "bytes")
	}

	buf := make([]byte, 0, lenSize+total)
	buf = binary.LittleEndian.AppendUint64(buf, total)
	for _, arg := range args {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(len(arg)))
		buf = append(buf, arg...)
	}
	return buf, nil
}

// WriteFrame encodes args and writes the frame to w with a single Write call.
func WriteFrame(w io.Writer, args ...[]byte) error {
	buf, err := Encode(args...)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

// ReadFrame blocks until one complete frame has been read from r.
// It never reads past the boundary declared by the frame header; any error leaves
// the stream unsynchronized and must be treated as fatal for the connection.
func ReadFrame(r io.Reader) (Frame, error) {
	total, err := readLen(r)
	if err != nil {
		return nil, err
	}
	if total > MaxLen {
		return nil, errs.NewError(errs.ErrFrameTooLarge, "declared total", total)
	}
	if total == 0 {
		return nil, ErrEmptyFrame
	}

	var frame Frame
	remaining := total
	for remaining > 0 {
		if remaining < lenSize {
			return nil, errs.NewError(errs.ErrMalformedFrame, remaining, "trailing bytes")
		}

		argLen, err := readLen(r)
		if err != nil {
			return nil, err
		}
		if argLen > MaxLen {
			return nil, errs.NewError(errs.ErrFrameTooLarge, "declared argument", argLen)
		}
		if argLen > remaining-lenSize {
			return nil, errs.NewError(errs.ErrMalformedFrame, "argument of", argLen, "bytes overruns total")
		}

		arg := make([]byte, argLen)
		if _, err := io.ReadFull(r, arg); err != nil {
			return nil, fmt.Errorf("read argument: %w", err)
		}

		remaining -= lenSize + argLen
		frame = append(frame, arg)
	}

	return frame, nil
}

func readLen(r io.Reader) (uint64, error) {
	var b [lenSize]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}
