package client

// KeyCode classifies one unit of keyboard input.
type KeyCode int

const (
	// KeyRune is a printable character carried in Key.Rune.
	KeyRune KeyCode = iota
	KeyEnter
	KeyBackspace
	KeyDelete
)

// Key is one key press delivered by a KeySource.
type Key struct {
	Code KeyCode
	Rune rune
}

// RuneKey returns the Key for a printable character.
func RuneKey(r rune) Key {
	return Key{Code: KeyRune, Rune: r}
}

// KeySource delivers key presses one at a time. ReadKey blocks until a key is
// available and returns an error once no more input will arrive.
type KeySource interface {
	ReadKey() (Key, error)
}

// Surface is the terminal render target shared by the reader and writer activities.
// A Session serializes every call with its terminal lock.
type Surface interface {
	// AppendLine adds a rendered line to the scrolling log region.
	AppendLine(line string)

	// SetInput redraws the input region with the in-progress line.
	SetInput(text string)

	// ClearInput empties the input region.
	ClearInput()
}
