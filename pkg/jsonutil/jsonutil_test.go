package jsonutil

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalRoundTrip(t *testing.T) {
	type panel struct {
		ID    string `json:"id"`
		Label string `json:"label"`
	}
	data, err := Marshal(panel{ID: "jwt", Label: "JWT"})
	require.NoError(t, err)
	assert.Equal(t, `{"id":"jwt","label":"JWT"}`, string(data))

	var got panel
	require.NoError(t, Unmarshal(data, &got))
	assert.Equal(t, "JWT", got.Label)
}

func TestIndent_KeepsMemberOrder(t *testing.T) {
	out, err := Indent([]byte(`{"b":1,"a":[1,2]}`), "  ")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"b\": 1,\n  \"a\": [\n    1,\n    2\n  ]\n}", string(out))
}

func TestCompact(t *testing.T) {
	out, err := Compact([]byte("{\n  \"a\" : 1 ,\n \"b\": \"x y\"\n}\n"))
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":"x y"}`, string(out))
}

func TestIndent_Invalid(t *testing.T) {
	_, err := Indent([]byte(`{"a":`), "  ")
	assert.Error(t, err)
}

func TestValid(t *testing.T) {
	assert.True(t, Valid([]byte(`{"a":1}`)))
	assert.True(t, Valid([]byte(`{"a":1,"a":2}`)))
	assert.False(t, Valid([]byte(`{a:1}`)))
}

func TestStreamEncoderDecoder(t *testing.T) {
	var buf bytes.Buffer
	enc := NewStreamEncoder(&buf)
	require.NoError(t, enc.Encode(map[string]int{"n": 1}))
	require.NoError(t, enc.Encode(map[string]int{"n": 2}))
	assert.Equal(t, 2, strings.Count(buf.String(), "\n"))

	dec := NewStreamDecoder(strings.NewReader("{\"n\":7}\n{\"n\":8}\n"))
	var v map[string]int
	require.NoError(t, dec.Decode(&v))
	assert.Equal(t, 7, v["n"])
	v = nil
	require.NoError(t, dec.Decode(&v))
	assert.Equal(t, 8, v["n"])
}

func TestMarshalSortsMapKeys(t *testing.T) {
	data, err := Marshal(map[string]int{"b": 2, "a": 1, "c": 3})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":2,"c":3}`, string(data))
}

func TestUnmarshalDuplicateNames(t *testing.T) {
	var v map[string]any
	require.NoError(t, Unmarshal([]byte(`{"a":1,"a":2}`), &v))
	assert.Equal(t, float64(2), v["a"])
}
