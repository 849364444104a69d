package server

import (
	"errors"
	"fmt"
	"io"
	"net"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"tcpchat/internal/pkg/errs"
	"tcpchat/internal/pkg/logx"
	"tcpchat/internal/protocol"
)

// SystemSender is the sender name attached to join and leave notices.
const SystemSender = ""

var errHandshakeRejected = errs.NewError(errs.ErrHandshakeRejected)

// Conn is a bidirectional byte stream to one peer. net.Conn satisfies it,
// and so does the WebSocket adapter used by the gateway.
type Conn interface {
	io.ReadWriteCloser
	RemoteAddr() net.Addr
}

// Handler owns one accepted connection for its whole lifetime:
// handshake, receive loop, and cleanup.
type Handler struct {
	conn     Conn
	id       string
	registry *Registry

	// limiter drops MSG frames above the configured rate; nil means unlimited.
	limiter *rate.Limiter

	logger zerolog.Logger
}

// NewHandler creates a handler for conn. A zero msgRate disables message rate limiting.
func NewHandler(conn Conn, registry *Registry, msgRate rate.Limit, msgBurst int) *Handler {
	id := uuid.New().String()

	h := &Handler{
		conn:     conn,
		id:       id,
		registry: registry,
		logger: logx.Component("conn").With().
			Str("conn_id", id).
			Str("remote_addr", conn.RemoteAddr().String()).
			Logger(),
	}
	if msgRate > 0 {
		h.limiter = rate.NewLimiter(msgRate, msgBurst)
	}
	return h
}

// Serve runs the connection until the peer disconnects or sends a frame that cannot
// be decoded, then unregisters the user and closes the connection.
func (h *Handler) Serve() {
	defer func() {
		if err := h.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			h.logger.Debug().Err(err).Msg("Connection close error")
		}
	}()

	name, err := h.handshake()
	if err != nil {
		h.logger.Info().Err(err).Int("error_code", errs.CodeOf(err)).Msg("Handshake failed. Dropping connection.")
		return
	}

	h.logger = h.logger.With().Str("user", name).Logger()

	count := h.registry.Add(name, h.conn)
	joined := fmt.Sprintf("User '%s' connected (%d)", name, count)
	h.logger.Info().Int("total_users", count).Msg(joined)
	h.registry.Broadcast(SystemSender, nil, []byte(joined))

	h.receiveLoop(name)

	count = h.registry.Remove(name)
	left := fmt.Sprintf("User '%s' disconnected (%d)", name, count)
	h.logger.Info().Int("total_users", count).Msg(left)
	h.registry.Broadcast(SystemSender, nil, []byte(left))
}

// handshake reads the first frame, which must be NICK with exactly one valid UTF-8 name.
func (h *Handler) handshake() (string, error) {
	frame, err := protocol.ReadFrame(h.conn)
	if err != nil {
		return "", err
	}

	msg, err := protocol.ParseMessage(frame)
	if err != nil {
		return "", err
	}
	if msg.Action != protocol.ActionNick {
		return "", fmt.Errorf("%w: first action was %s", errHandshakeRejected, msg.Action)
	}
	if len(msg.Args) != 1 {
		return "", fmt.Errorf("%w: NICK with %d arguments", errHandshakeRejected, len(msg.Args))
	}
	if !utf8.Valid(msg.Args[0]) {
		return "", fmt.Errorf("%w: %w", errHandshakeRejected, errs.NewError(errs.ErrInvalidText))
	}

	return string(msg.Args[0]), nil
}

func (h *Handler) receiveLoop(name string) {
	for {
		frame, err := protocol.ReadFrame(h.conn)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				h.logger.Debug().Msg("Peer closed the connection.")
			} else {
				h.logger.Warn().Err(err).Int("error_code", errs.CodeOf(err)).Msg("Failed to read frame. Closing connection.")
			}
			return
		}

		h.dispatch(name, frame)
	}
}

func (h *Handler) dispatch(name string, frame protocol.Frame) {
	msg, err := protocol.ParseMessage(frame)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Ignoring unparsable frame.")
		return
	}

	switch msg.Action {
	case protocol.ActionNick:
		h.logger.Debug().Msg("Ignoring NICK on an active connection.")

	case protocol.ActionMsg:
		if len(msg.Args) == 0 {
			h.logger.Debug().Msg("Ignoring MSG without arguments.")
			return
		}

		text := msg.Args[len(msg.Args)-1]
		if !utf8.Valid(text) {
			h.logger.Warn().Int("error_code", errs.ErrInvalidText).Msg("Dropping message with invalid UTF-8.")
			return
		}
		if h.limiter != nil && !h.limiter.Allow() {
			h.logger.Warn().Int("error_code", errs.ErrRateLimited).Msg("Dropping message over the rate limit.")
			return
		}

		h.logger.Debug().Str("text", string(text)).Msg("Broadcasting message.")
		h.registry.Broadcast(name, nil, text)

	default:
		h.logger.Debug().Str("action", msg.Action.String()).Msg("Ignoring unknown action.")
	}
}
