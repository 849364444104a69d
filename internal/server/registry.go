// Package server implements the chat server: the user registry, the per-connection
// handler and the accept loops for TCP and WebSocket peers.
package server

import (
	"io"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tcpchat/internal/pkg/logx"
	"tcpchat/internal/protocol"
)

// deadlineWriter is implemented by net.Conn and the WebSocket stream.
type deadlineWriter interface {
	SetWriteDeadline(t time.Time) error
}

// Registry maps display names to their connections.
// One mutex covers every read, insert, remove and broadcast.
type Registry struct {
	mu    sync.Mutex
	users map[string]io.WriteCloser

	// bound on each broadcast write when the writer supports deadlines; zero disables it.
	writeTimeout time.Duration

	logger zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(writeTimeout time.Duration) *Registry {
	return &Registry{
		users:        make(map[string]io.WriteCloser),
		writeTimeout: writeTimeout,
		logger:       logx.Component("registry"),
	}
}

// Add registers w under name, replacing any previous entry with the same name,
// and returns the number of users after the insert.
func (r *Registry) Add(name string, w io.WriteCloser) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[name]; exists {
		r.logger.Warn().Str("user", name).Msg("Name already registered. Overwriting previous entry.")
	}
	r.users[name] = w
	return len(r.users)
}

// Remove deletes name if present and returns the number of users after the removal.
func (r *Registry) Remove(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.users, name)
	return len(r.users)
}

// Len returns the number of registered users.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.users)
}

// Names returns a sorted snapshot of the registered names.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.users))
	for name := range r.users {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Broadcast sends one MSG frame [from, payload] to every registered user, or only to
// the users named in targets when it is non-empty. Names in targets that are not
// registered are skipped. A failed write may have sent part of the frame, so that
// user is unregistered and its connection closed; delivery to the remaining users
// continues. It returns the number of successful deliveries.
func (r *Registry) Broadcast(from string, targets []string, payload []byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	frame, err := protocol.Encode(protocol.ActionMsg.Bytes(), []byte(from), payload)
	if err != nil {
		r.logger.Error().Err(err).Str("from", from).Msg("Failed to encode broadcast frame.")
		return 0
	}

	delivered := 0
	for name, w := range r.users {
		if len(targets) > 0 && !slices.Contains(targets, name) {
			continue
		}
		if err := r.write(w, frame); err != nil {
			r.logger.Warn().Err(err).Str("user", name).Msg("Broadcast write failed. Dropping recipient.")
			delete(r.users, name)
			if cerr := w.Close(); cerr != nil {
				r.logger.Debug().Err(cerr).Str("user", name).Msg("Close after failed write")
			}
			continue
		}
		delivered++
	}

	r.logger.Debug().
		Str("from", from).
		Int("delivered", delivered).
		Int("total_users", len(r.users)).
		Msg("Broadcast finished.")

	return delivered
}

func (r *Registry) write(w io.Writer, frame []byte) error {
	if dw, ok := w.(deadlineWriter); ok && r.writeTimeout > 0 {
		if err := dw.SetWriteDeadline(time.Now().Add(r.writeTimeout)); err != nil {
			return err
		}
		defer dw.SetWriteDeadline(time.Time{})
	}
	_, err := w.Write(frame)
	return err
}
