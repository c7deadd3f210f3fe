// Package bufpool pools strings.Builder and bytes.Buffer values used by the
// encoders and renderers that build output strings one rune at a time.
package bufpool

import (
	"bytes"
	"strings"
	"sync"
)

// Builders that grew past this size are dropped instead of pooled.
const maxPooled = 64 * 1024

var builders = sync.Pool{
	New: func() any { return new(strings.Builder) },
}

var buffers = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// GetString returns an empty builder. Return it with PutString.
func GetString() *strings.Builder {
	sb := builders.Get().(*strings.Builder)
	sb.Reset()
	return sb
}

// GetStringSized returns an empty builder with room for at least size bytes.
func GetStringSized(size int) *strings.Builder {
	sb := GetString()
	if sb.Cap() < size {
		sb.Grow(size)
	}
	return sb
}

// PutString returns sb to the pool. Nil and oversized builders are ignored.
func PutString(sb *strings.Builder) {
	if sb == nil || sb.Cap() > maxPooled {
		return
	}
	sb.Reset()
	builders.Put(sb)
}

// Get returns an empty buffer. Return it with Put.
func Get() *bytes.Buffer {
	buf := buffers.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// Put returns buf to the pool. Nil and oversized buffers are ignored.
func Put(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > maxPooled {
		return
	}
	buf.Reset()
	buffers.Put(buf)
}
