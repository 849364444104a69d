// Package client implements the terminal chat client session: it joins with a display
// name, then runs a reader activity that renders incoming messages and a writer activity
// that turns key presses into outgoing messages.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"tcpchat/internal/pkg/logx"
	"tcpchat/internal/protocol"
)

// Session is one client connection to the chat server.
type Session struct {
	conn    io.ReadWriter
	surface Surface
	keys    KeySource

	// termMu guards every Surface call. It is never held across socket I/O.
	termMu sync.Mutex

	logger zerolog.Logger
}

// NewSession creates a session over conn rendering to surface and reading keys from keys.
func NewSession(conn io.ReadWriter, surface Surface, keys KeySource) *Session {
	return &Session{
		conn:    conn,
		surface: surface,
		keys:    keys,
		logger:  logx.Component("client"),
	}
}

// Join sends the NICK handshake. The server does not acknowledge it.
func (s *Session) Join(name string) error {
	if err := protocol.WriteMessage(s.conn, protocol.ActionNick, []byte(name)); err != nil {
		return fmt.Errorf("send NICK: %w", err)
	}
	s.logger = s.logger.With().Str("user", name).Logger()
	s.logger.Info().Msg("Joined chat")
	return nil
}

// Run starts the reader and writer activities and returns the error of whichever stops
// first, or ctx.Err() if ctx is cancelled before that. The other activity is left running.
func (s *Session) Run(ctx context.Context) error {
	done := make(chan error, 2)

	go func() { done <- s.readLoop() }()
	go func() { done <- s.writeLoop() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// readLoop renders every MSG frame of the form [from, text] until the connection fails.
func (s *Session) readLoop() error {
	for {
		frame, err := protocol.ReadFrame(s.conn)
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.logger.Info().Msg("Server closed the connection")
			} else {
				s.logger.Error().Err(err).Msg("Failed to read frame")
			}
			return fmt.Errorf("read: %w", err)
		}

		msg, err := protocol.ParseMessage(frame)
		if err != nil || msg.Action != protocol.ActionMsg || len(msg.Args) != 2 {
			s.logger.Debug().Int("args", len(frame)).Msg("Skipping frame")
			continue
		}

		from, text := msg.Args[0], msg.Args[1]
		if !utf8.Valid(from) || !utf8.Valid(text) {
			s.logger.Warn().Msg("Skipping message with invalid UTF-8")
			continue
		}

		s.render(func() {
			s.surface.AppendLine(formatLine(string(from), string(text)))
		})
	}
}

// writeLoop edits the input buffer one key at a time and sends it on Enter.
func (s *Session) writeLoop() error {
	var buf []rune

	for {
		key, err := s.keys.ReadKey()
		if err != nil {
			s.logger.Info().Err(err).Msg("Input closed")
			return fmt.Errorf("input: %w", err)
		}

		switch key.Code {
		case KeyEnter:
			line := string(buf)
			buf = buf[:0]

			if err := protocol.WriteMessage(s.conn, protocol.ActionMsg, []byte(""), []byte(line)); err != nil {
				if !errors.Is(err, protocol.ErrFrameTooLarge) {
					s.logger.Error().Err(err).Msg("Failed to send message")
					return fmt.Errorf("send: %w", err)
				}
				s.logger.Warn().Int("bytes", len(line)).Msg("Message too large. Dropped.")
			}

			s.render(s.surface.ClearInput)

		case KeyBackspace, KeyDelete:
			if len(buf) > 0 {
				buf = buf[:len(buf)-1]
			}
			text := string(buf)
			s.render(func() { s.surface.SetInput(text) })

		case KeyRune:
			if !unicode.IsPrint(key.Rune) {
				continue
			}
			buf = append(buf, key.Rune)
			text := string(buf)
			s.render(func() { s.surface.SetInput(text) })
		}
	}
}

func (s *Session) render(fn func()) {
	s.termMu.Lock()
	defer s.termMu.Unlock()
	fn()
}

// formatLine renders one log line. System notices carry an empty sender.
func formatLine(from, text string) string {
	return from + ": " + text
}
