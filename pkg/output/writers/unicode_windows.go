//go:build windows

package writers

import (
	"io"
	"os"

	"golang.org/x/sys/windows"
	"golang.org/x/term"
)

// unicodeSupported reports whether box-drawing borders survive on w.
// Piped output and non-UTF-8 console code pages fall back to ASCII.
func unicodeSupported(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return true
	}
	if !term.IsTerminal(int(f.Fd())) {
		return false
	}
	const cpUTF8 = 65001
	cp, err := windows.GetConsoleOutputCP()
	return err == nil && cp == cpUTF8
}
