// Package tui renders a chat client session in the terminal using gocui.
package tui

import (
	"fmt"
	"io"
	"sync"
	"unicode/utf8"

	"github.com/jroimartin/gocui"

	"tcpchat/internal/client"
	"tcpchat/internal/pkg/logx"
)

// keyBuffer holds key presses typed while the session is busy sending.
const keyBuffer = 256

// ChatUI is a client.Surface and client.KeySource backed by a gocui screen.
type ChatUI struct {
	gui        *gocui.Gui
	msgView    string
	inputView  string
	statusView string
	status     string

	// gocui runs every Update callback on its own goroutine, so rendered state lives here
	// and each callback redraws from it.
	mu      sync.Mutex
	pending []string
	input   string

	keys      chan client.Key
	done      chan struct{}
	closeOnce sync.Once
}

// NewChatUI takes over the terminal. status is shown in the status bar.
func NewChatUI(status string) (*ChatUI, error) {
	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return nil, err
	}

	ui := newChatUI(status)
	ui.gui = g
	g.Cursor = true
	g.SetManagerFunc(ui.layout)
	return ui, nil
}

func newChatUI(status string) *ChatUI {
	return &ChatUI{
		msgView:    "messages",
		inputView:  "input",
		statusView: "status",
		status:     status,
		keys:       make(chan client.Key, keyBuffer),
		done:       make(chan struct{}),
	}
}

func (ui *ChatUI) layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()
	msgHeight := maxY - 7

	// Messages view
	if v, err := g.SetView(ui.msgView, 0, 0, maxX-1, msgHeight); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Messages"
		v.Wrap = true
		v.Autoscroll = true
	}

	// Status bar
	if v, err := g.SetView(ui.statusView, 0, msgHeight+1, maxX-1, msgHeight+3); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Status"
		fmt.Fprint(v, ui.status)
	}

	// Input field
	if v, err := g.SetView(ui.inputView, 0, msgHeight+4, maxX-1, maxY-1); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Input"
		v.Editable = true
		v.Wrap = true
		v.Editor = ui

		if _, err := g.SetCurrentView(ui.inputView); err != nil {
			return err
		}
	}

	return nil
}

func (ui *ChatUI) keybindings() error {
	return ui.gui.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone,
		func(_ *gocui.Gui, _ *gocui.View) error {
			return gocui.ErrQuit
		})
}

// Edit forwards key presses from the input view to ReadKey. It runs on the gocui
// main loop and never blocks it: keys are dropped once keyBuffer is full. The view
// itself is only redrawn through SetInput and ClearInput.
func (ui *ChatUI) Edit(_ *gocui.View, key gocui.Key, ch rune, _ gocui.Modifier) {
	k, ok := translateKey(key, ch)
	if !ok {
		return
	}
	select {
	case ui.keys <- k:
	default:
		logx.Warn("Input buffer full. Key dropped.", "pending", keyBuffer)
	}
}

func translateKey(key gocui.Key, ch rune) (client.Key, bool) {
	if ch != 0 {
		return client.RuneKey(ch), true
	}
	switch key {
	case gocui.KeySpace:
		return client.RuneKey(' '), true
	case gocui.KeyEnter:
		return client.Key{Code: client.KeyEnter}, true
	case gocui.KeyBackspace, gocui.KeyBackspace2:
		return client.Key{Code: client.KeyBackspace}, true
	case gocui.KeyDelete:
		return client.Key{Code: client.KeyDelete}, true
	}
	return client.Key{}, false
}

// ReadKey blocks until a key is pressed. It returns io.EOF once the UI has stopped.
func (ui *ChatUI) ReadKey() (client.Key, error) {
	select {
	case <-ui.done:
		return client.Key{}, io.EOF
	default:
	}
	select {
	case k := <-ui.keys:
		return k, nil
	case <-ui.done:
		return client.Key{}, io.EOF
	}
}

// AppendLine queues line for the messages view.
func (ui *ChatUI) AppendLine(line string) {
	ui.mu.Lock()
	ui.pending = append(ui.pending, line)
	ui.mu.Unlock()
	ui.update(ui.flushMessages)
}

// SetInput redraws the input view with text.
func (ui *ChatUI) SetInput(text string) {
	ui.mu.Lock()
	ui.input = text
	ui.mu.Unlock()
	ui.update(ui.drawInput)
}

// ClearInput empties the input view.
func (ui *ChatUI) ClearInput() {
	ui.SetInput("")
}

func (ui *ChatUI) update(fn func(*gocui.Gui) error) {
	if ui.gui == nil {
		return
	}
	ui.gui.Update(fn)
}

// drainPending returns queued lines in arrival order and resets the queue.
func (ui *ChatUI) drainPending() []string {
	ui.mu.Lock()
	defer ui.mu.Unlock()
	lines := ui.pending
	ui.pending = nil
	return lines
}

func (ui *ChatUI) flushMessages(g *gocui.Gui) error {
	v, err := g.View(ui.msgView)
	if err != nil {
		return err
	}
	for _, line := range ui.drainPending() {
		fmt.Fprintln(v, line)
	}
	return nil
}

func (ui *ChatUI) drawInput(g *gocui.Gui) error {
	v, err := g.View(ui.inputView)
	if err != nil {
		return err
	}
	ui.mu.Lock()
	text := ui.input
	ui.mu.Unlock()

	v.Clear()
	v.SetOrigin(0, 0)
	fmt.Fprint(v, text)
	v.SetCursor(utf8.RuneCountInString(text), 0)
	return nil
}

// Run drives the terminal until Ctrl-C is pressed. ReadKey reports io.EOF afterwards.
func (ui *ChatUI) Run() error {
	defer ui.stop()

	if err := ui.keybindings(); err != nil {
		return err
	}

	if err := ui.gui.MainLoop(); err != nil && err != gocui.ErrQuit {
		return err
	}

	return nil
}

// Quit asks the main loop to return, as if Ctrl-C had been pressed.
func (ui *ChatUI) Quit() {
	select {
	case <-ui.done:
		return
	default:
	}
	ui.update(func(*gocui.Gui) error {
		return gocui.ErrQuit
	})
}

func (ui *ChatUI) stop() {
	ui.closeOnce.Do(func() { close(ui.done) })
}

// Close releases the terminal.
func (ui *ChatUI) Close() {
	ui.stop()
	ui.gui.Close()
}

var (
	_ client.Surface   = (*ChatUI)(nil)
	_ client.KeySource = (*ChatUI)(nil)
)
