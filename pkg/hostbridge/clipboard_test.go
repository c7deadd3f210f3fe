package hostbridge

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClipboardCopy(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewClipboard(&buf).Copy("hello"))
	assert.Contains(t, buf.String(), "\x1b]52;c;"+base64.StdEncoding.EncodeToString([]byte("hello")))
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestClipboardWriteError(t *testing.T) {
	assert.Error(t, NewClipboard(failWriter{}).Copy("x"))
}
