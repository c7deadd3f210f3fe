//go:build !windows

package writers

import "io"

// unicodeSupported reports whether box-drawing borders are safe on w.
func unicodeSupported(_ io.Writer) bool {
	return true
}
