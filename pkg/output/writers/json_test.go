package writers

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thecyberx/cyberx/pkg/jsonutil"
	"github.com/thecyberx/cyberx/pkg/output/events"
)

func TestJSONWriter_SingleEventIsObject(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONWriter(&buf, JSONOptions{})
	require.NoError(t, w.Write(headersResult()))
	require.NoError(t, w.Close())

	var doc map[string]any
	require.NoError(t, jsonutil.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "result", doc["type"])
	assert.Equal(t, "medium", doc["severity"])
	assert.NotContains(t, buf.String(), "Strict-Transport-Security", "table must not be serialized")
}

func TestJSONWriter_ManyEventsIsArray(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONWriter(&buf, JSONOptions{Pretty: true})
	require.NoError(t, w.Write(hashResult()))
	require.NoError(t, w.Write(corsError()))
	require.NoError(t, w.Close())

	var docs []map[string]any
	require.NoError(t, jsonutil.Unmarshal(buf.Bytes(), &docs))
	require.Len(t, docs, 2)
	assert.Equal(t, "error", docs[1]["type"])
	assert.Equal(t, "invalid URL", docs[1]["message"])
	assert.True(t, strings.Contains(buf.String(), "\n  "), "expected indentation")
}

func TestJSONWriter_DataOnly(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONWriter(&buf, JSONOptions{DataOnly: true, AlwaysArray: true})
	require.NoError(t, w.Write(hashResult()))
	require.NoError(t, w.Close())

	var docs [][]string
	require.NoError(t, jsonutil.Unmarshal(buf.Bytes(), &docs))
	assert.Equal(t, [][]string{{"5d41402abc4b2a76b9719d911017c592"}}, docs)
}

func TestJSONWriter_SupportsEvent(t *testing.T) {
	w := NewJSONWriter(&bytes.Buffer{}, JSONOptions{})
	assert.False(t, w.SupportsEvent(events.EventTypeStart))
	assert.True(t, w.SupportsEvent(events.EventTypeResult))
	assert.True(t, w.SupportsEvent(events.EventTypeError))
}

func TestJSONLWriter_OneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, JSONLOptions{OmitData: true})
	require.NoError(t, w.Write(events.NewStart("run-h", headersPanel, nil)))
	require.NoError(t, w.Write(headersResult()))
	require.NoError(t, w.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.True(t, jsonutil.Valid([]byte(line)), line)
	}
	assert.Contains(t, lines[1], `"data":null`)
	assert.NotContains(t, lines[1], "score")
}

func TestJSONLWriter_OmitStart(t *testing.T) {
	w := NewJSONLWriter(&bytes.Buffer{}, JSONLOptions{OmitStart: true})
	assert.False(t, w.SupportsEvent(events.EventTypeStart))
	assert.True(t, w.SupportsEvent(events.EventTypeError))
}
