// Package jsonutil wraps github.com/go-json-experiment/json for the panel
// results, MCP arguments and the JSON beautifier.
//
//	data, err := jsonutil.MarshalIndent(result, "", "  ")
//	pretty, err := jsonutil.Indent(raw, "    ")
package jsonutil

import (
	"bytes"
	"io"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// Unmarshal parses data into v. Duplicate member names are accepted and the
// last one wins, as in browsers.
func Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v, jsontext.AllowDuplicateNames(true))
}

// Marshal returns the compact encoding of v. Map keys are sorted.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v, json.Deterministic(true))
}

// MarshalIndent returns the indented encoding of v. prefix is ignored.
func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return json.Marshal(v, json.Deterministic(true), jsontext.WithIndent(indent))
}

// Valid reports whether data is a single well-formed JSON value.
func Valid(data []byte) bool {
	return jsontext.Value(data).IsValid(jsontext.AllowDuplicateNames(true))
}

// Indent reformats a raw JSON document with the given indent, keeping member
// order and duplicate names as written.
func Indent(data []byte, indent string) ([]byte, error) {
	return reformat(data, jsontext.Multiline(true), jsontext.WithIndent(indent), jsontext.SpaceAfterColon(true))
}

// Compact strips all insignificant whitespace from a raw JSON document.
func Compact(data []byte) ([]byte, error) {
	return reformat(data, jsontext.Multiline(false), jsontext.SpaceAfterColon(false), jsontext.SpaceAfterComma(false))
}

func reformat(data []byte, opts ...jsontext.Options) ([]byte, error) {
	var buf bytes.Buffer
	opts = append(opts, jsontext.AllowDuplicateNames(true), jsontext.AllowInvalidUTF8(true))
	enc := jsontext.NewEncoder(&buf, opts...)
	if err := enc.WriteValue(jsontext.Value(bytes.TrimSpace(data))); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// Encoder writes one JSON value per line, like encoding/json.Encoder.
type Encoder struct {
	w      io.Writer
	indent string
}

// NewStreamEncoder returns an Encoder writing to w.
func NewStreamEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes v followed by a newline.
func (e *Encoder) Encode(v any) error {
	opts := []json.Options{json.Deterministic(true)}
	if e.indent != "" {
		opts = append(opts, jsontext.WithIndent(e.indent))
	}
	if err := json.MarshalWrite(e.w, v, opts...); err != nil {
		return err
	}
	_, err := e.w.Write([]byte{'\n'})
	return err
}

// SetIndent sets the indent for subsequent values. prefix is ignored.
func (e *Encoder) SetIndent(prefix, indent string) {
	e.indent = indent
}

// Decoder reads a sequence of JSON values from a stream.
type Decoder struct {
	dec *jsontext.Decoder
}

// NewStreamDecoder returns a Decoder reading from r.
func NewStreamDecoder(r io.Reader) *Decoder {
	return &Decoder{dec: jsontext.NewDecoder(r)}
}

// Decode reads the next value into v.
func (d *Decoder) Decode(v any) error {
	return json.UnmarshalDecode(d.dec, v)
}
