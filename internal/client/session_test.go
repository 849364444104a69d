package client

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"slices"
	"sync"
	"testing"
	"time"

	"tcpchat/internal/pkg/logx"
	"tcpchat/internal/protocol"
)

func TestMain(m *testing.M) {
	logx.Init(io.Discard, false)
	os.Exit(m.Run())
}

// fakeSurface records render calls. It keeps only the latest input to stay cheap on long lines.
type fakeSurface struct {
	mu     sync.Mutex
	lines  []string
	input  string
	clears int
	edits  int
}

func (f *fakeSurface) AppendLine(line string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lines = append(f.lines, line)
}

func (f *fakeSurface) SetInput(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.input = text
	f.edits++
}

func (f *fakeSurface) ClearInput() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.input = ""
	f.clears++
}

func (f *fakeSurface) snapshot() (lines []string, input string, clears int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.lines), f.input, f.clears
}

// chanKeys delivers keys from a channel and reports io.EOF once it is closed.
type chanKeys chan Key

func (c chanKeys) ReadKey() (Key, error) {
	k, ok := <-c
	if !ok {
		return Key{}, io.EOF
	}
	return k, nil
}

func typeString(keys chanKeys, s string) {
	for _, r := range s {
		keys <- RuneKey(r)
	}
}

type sessionHarness struct {
	session *Session
	surface *fakeSurface
	keys    chanKeys
	peer    net.Conn
	done    chan error
}

func startSession(t *testing.T) *sessionHarness {
	t.Helper()

	local, peer := net.Pipe()
	h := &sessionHarness{
		surface: &fakeSurface{},
		keys:    make(chanKeys),
		peer:    peer,
		done:    make(chan error, 1),
	}
	h.session = NewSession(local, h.surface, h.keys)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { h.done <- h.session.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		local.Close()
		peer.Close()
	})
	return h
}

func (h *sessionHarness) readFrame(t *testing.T) protocol.Frame {
	t.Helper()
	h.peer.SetReadDeadline(time.Now().Add(2 * time.Second))
	frame, err := protocol.ReadFrame(h.peer)
	if err != nil {
		t.Fatalf("Failed to read frame from session: %v", err)
	}
	return frame
}

func (h *sessionHarness) writeFrame(t *testing.T, args ...[]byte) {
	t.Helper()
	h.peer.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if err := protocol.WriteFrame(h.peer, args...); err != nil {
		t.Fatalf("Failed to write frame to session: %v", err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestJoinSendsNick(t *testing.T) {
	var buf bytes.Buffer
	s := NewSession(&buf, &fakeSurface{}, make(chanKeys))

	if err := s.Join("alice"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	frame, err := protocol.ReadFrame(&buf)
	if err != nil {
		t.Fatalf("Failed to decode NICK frame: %v", err)
	}
	want := protocol.Frame{[]byte("NICK"), []byte("alice")}
	if !slices.EqualFunc(frame, want, bytes.Equal) {
		t.Errorf("Expected frame %q, got %q", want, frame)
	}
	if buf.Len() != 0 {
		t.Errorf("Expected a single frame, %d bytes left over", buf.Len())
	}
}

func TestReaderRendersMessages(t *testing.T) {
	h := startSession(t)

	msg := []byte("MSG")
	h.writeFrame(t, msg, []byte("bob"), []byte("hi"))
	h.writeFrame(t, msg, []byte(""), []byte("User 'bob' connected (2)"))

	// Each of these is skipped.
	h.writeFrame(t, msg, []byte("bob"))
	h.writeFrame(t, msg, []byte("a"), []byte("b"), []byte("c"))
	h.writeFrame(t, msg, []byte{0xff, 0xfe}, []byte("bad sender"))
	h.writeFrame(t, msg, []byte("bob"), []byte{0xc3, 0x28})
	h.writeFrame(t, []byte("NICK"), []byte("bob"))
	h.writeFrame(t, []byte("PING"), []byte("bob"), []byte("hi"))

	h.writeFrame(t, msg, []byte("carol"), []byte("héllo"))

	want := []string{"bob: hi", ": User 'bob' connected (2)", "carol: héllo"}
	waitFor(t, "rendered lines", func() bool {
		lines, _, _ := h.surface.snapshot()
		return len(lines) >= len(want)
	})

	lines, _, _ := h.surface.snapshot()
	if !slices.Equal(lines, want) {
		t.Errorf("Expected lines %q, got %q", want, lines)
	}
}

func TestReaderStopsOnClose(t *testing.T) {
	h := startSession(t)

	h.peer.Close()

	select {
	case err := <-h.done:
		if !errors.Is(err, io.EOF) {
			t.Errorf("Expected EOF from Run, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after the connection closed")
	}
}

func TestReaderStopsOnMalformedFrame(t *testing.T) {
	h := startSession(t)

	h.peer.SetWriteDeadline(time.Now().Add(2 * time.Second))
	h.peer.Write([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff})

	select {
	case err := <-h.done:
		if !errors.Is(err, protocol.ErrFrameTooLarge) {
			t.Errorf("Expected frame too large error from Run, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after a malformed frame")
	}
}

func TestWriterEditsAndSends(t *testing.T) {
	h := startSession(t)

	typeString(h.keys, "hix")
	h.keys <- Key{Code: KeyBackspace}
	waitFor(t, "input echo", func() bool {
		_, input, _ := h.surface.snapshot()
		return input == "hi"
	})

	typeString(h.keys, "!z")
	h.keys <- Key{Code: KeyDelete}
	h.keys <- Key{Code: KeyEnter}

	frame := h.readFrame(t)
	want := protocol.Frame{[]byte("MSG"), []byte(""), []byte("hi!")}
	if !slices.EqualFunc(frame, want, bytes.Equal) {
		t.Errorf("Expected frame %q, got %q", want, frame)
	}

	waitFor(t, "input cleared", func() bool {
		_, input, clears := h.surface.snapshot()
		return clears == 1 && input == ""
	})
}

func TestWriterBackspaceOnEmptyBuffer(t *testing.T) {
	h := startSession(t)

	h.keys <- Key{Code: KeyBackspace}
	typeString(h.keys, "ok")
	h.keys <- Key{Code: KeyEnter}

	frame := h.readFrame(t)
	if got := string(frame[2]); got != "ok" {
		t.Errorf("Expected text %q, got %q", "ok", got)
	}
}

func TestWriterMultibyteRunes(t *testing.T) {
	h := startSession(t)

	typeString(h.keys, "日本語")
	h.keys <- Key{Code: KeyBackspace}
	h.keys <- Key{Code: KeyEnter}

	frame := h.readFrame(t)
	if got := string(frame[2]); got != "日本" {
		t.Errorf("Expected text %q, got %q", "日本", got)
	}
}

func TestWriterIgnoresControlRunes(t *testing.T) {
	h := startSession(t)

	typeString(h.keys, "a\x07b\x1bc")
	h.keys <- Key{Code: KeyEnter}

	frame := h.readFrame(t)
	if got := string(frame[2]); got != "abc" {
		t.Errorf("Expected text %q, got %q", "abc", got)
	}
}

func TestWriterSendsEmptyLine(t *testing.T) {
	h := startSession(t)

	h.keys <- Key{Code: KeyEnter}

	frame := h.readFrame(t)
	want := protocol.Frame{[]byte("MSG"), []byte(""), []byte("")}
	if !slices.EqualFunc(frame, want, bytes.Equal) {
		t.Errorf("Expected frame %q, got %q", want, frame)
	}
}

func TestWriterDropsOversizedLine(t *testing.T) {
	h := startSession(t)

	// 4-byte runes keep the key count low while overflowing the frame limit.
	long := make([]rune, protocol.MaxLen/4+1)
	for i := range long {
		long[i] = '😀'
	}
	typeString(h.keys, string(long))
	h.keys <- Key{Code: KeyEnter}

	waitFor(t, "input cleared", func() bool {
		_, input, clears := h.surface.snapshot()
		return clears == 1 && input == ""
	})

	// The session keeps running and the buffer starts empty.
	typeString(h.keys, "after")
	h.keys <- Key{Code: KeyEnter}

	frame := h.readFrame(t)
	if got := string(frame[2]); got != "after" {
		t.Errorf("Expected text %q, got %q", "after", got)
	}
}

func TestWriterStopsWhenInputCloses(t *testing.T) {
	h := startSession(t)

	close(h.keys)

	select {
	case err := <-h.done:
		if !errors.Is(err, io.EOF) {
			t.Errorf("Expected EOF from Run, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after input closed")
	}
}

func TestRunReturnsOnCancel(t *testing.T) {
	local, peer := net.Pipe()
	defer local.Close()
	defer peer.Close()

	keys := make(chanKeys)
	s := NewSession(local, &fakeSurface{}, keys)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	close(keys)
}
