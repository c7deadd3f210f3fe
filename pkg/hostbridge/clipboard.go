package hostbridge

import (
	"io"

	"github.com/muesli/termenv"
)

// Clipboard copies text to the system clipboard of the terminal that owns
// w, using the OSC52 escape sequence. It works over SSH and inside tmux or
// screen when the terminal allows it.
type Clipboard struct {
	w   *errWriter
	out *termenv.Output
}

// NewClipboard returns a clipboard writing escape sequences to w.
func NewClipboard(w io.Writer) *Clipboard {
	ew := &errWriter{w: w}
	return &Clipboard{w: ew, out: termenv.NewOutput(ew, termenv.WithProfile(termenv.Ascii))}
}

// Copy writes text to the clipboard.
func (c *Clipboard) Copy(text string) error {
	c.w.err = nil
	c.out.Copy(text)
	return c.w.err
}

// errWriter keeps the first write error, which termenv discards.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	n, err := e.w.Write(p)
	if err != nil && e.err == nil {
		e.err = err
	}
	return n, err
}
