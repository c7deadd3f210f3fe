package ui

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/term"
)

var (
	unicodeOnce sync.Once
	unicodeOK   bool
)

// StderrIsTerminal reports whether stderr is attached to a terminal.
// Animated output and cursor movement are only written when it is.
func StderrIsTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// StdoutIsTerminal reports whether stdout is attached to a terminal.
func StdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// UnicodeTerminal reports whether stderr can render Unicode glyphs.
// It is false when output is piped, when TERM is "dumb", and on legacy
// Windows consoles, whose default fonts lack braille and emoji. Windows
// Terminal sets WT_SESSION.
func UnicodeTerminal() bool {
	unicodeOnce.Do(func() {
		if os.Getenv("TERM") == "dumb" {
			return
		}
		if !StderrIsTerminal() {
			return
		}
		if runtime.GOOS == "windows" {
			unicodeOK = os.Getenv("WT_SESSION") != ""
			return
		}
		unicodeOK = true
	})
	return unicodeOK
}

// Icon returns unicode when the terminal supports it, ascii otherwise.
func Icon(unicode, ascii string) string {
	if UnicodeTerminal() {
		return unicode
	}
	return ascii
}

// SanitizeString drops the glyphs a non-Unicode terminal cannot draw.
// Latin text passes through.
func SanitizeString(s string) string {
	if UnicodeTerminal() {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r < 0x80:
			b.WriteByte(s[i])
		case isVariationSelector(r):
		case isSafeForLegacy(r):
			b.WriteRune(r)
		}
		i += size
	}
	return b.String()
}

// Fprintf formats and sanitizes in one step.
func Fprintf(w io.Writer, format string, args ...any) {
	fmt.Fprint(w, SanitizeString(fmt.Sprintf(format, args...)))
}

// U+FE00 to U+FE0F select emoji or text presentation of the previous rune.
func isVariationSelector(r rune) bool {
	return r >= 0xFE00 && r <= 0xFE0F
}

func isSafeForLegacy(r rune) bool {
	return r <= 0xFF || unicode.Is(unicode.Latin, r)
}
