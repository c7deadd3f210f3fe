// Package encoding implements the Encode/Decode panel: reversible text
// transforms with strict decoders, a name registry and chaining.
package encoding

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrMalformed wraps every decode failure caused by bad input.
var ErrMalformed = errors.New("malformed input")

// Encoder is one reversible transform.
type Encoder interface {
	// Name returns the registry key.
	Name() string
	// Encode transforms text.
	Encode(text string) (string, error)
	// Decode reverses Encode. Malformed input returns an error wrapping
	// ErrMalformed.
	Decode(encoded string) (string, error)
}

// ChainEncoder applies encoders in order and decodes in reverse order.
type ChainEncoder struct {
	name     string
	encoders []Encoder
}

func (c *ChainEncoder) Name() string { return c.name }

func (c *ChainEncoder) Encode(text string) (string, error) {
	result := text
	var err error
	for _, enc := range c.encoders {
		result, err = enc.Encode(result)
		if err != nil {
			return "", fmt.Errorf("encoder %s failed: %w", enc.Name(), err)
		}
	}
	return result, nil
}

func (c *ChainEncoder) Decode(encoded string) (string, error) {
	result := encoded
	var err error
	for i := len(c.encoders) - 1; i >= 0; i-- {
		result, err = c.encoders[i].Decode(result)
		if err != nil {
			return "", fmt.Errorf("decoder %s failed: %w", c.encoders[i].Name(), err)
		}
	}
	return result, nil
}

var (
	mu       sync.RWMutex
	registry = make(map[string]Encoder)
	order    []string
)

// Register adds enc, replacing any encoder with the same name.
func Register(enc Encoder) {
	mu.Lock()
	defer mu.Unlock()
	key := strings.ToLower(enc.Name())
	if _, exists := registry[key]; !exists {
		order = append(order, key)
	}
	registry[key] = enc
}

// Get returns the encoder registered under name, or nil.
func Get(name string) Encoder {
	mu.RLock()
	defer mu.RUnlock()
	return registry[strings.ToLower(name)]
}

// List returns registered names in registration order.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()
	return append([]string(nil), order...)
}

// Chain builds an encoder from names applied left to right. Unknown names
// are an error.
func Chain(names ...string) (Encoder, error) {
	encoders := make([]Encoder, 0, len(names))
	for _, name := range names {
		enc := Get(strings.TrimSpace(name))
		if enc == nil {
			return nil, fmt.Errorf("encoder not found: %s", name)
		}
		encoders = append(encoders, enc)
	}
	if len(encoders) == 0 {
		return nil, errors.New("empty encoder chain")
	}
	if len(encoders) == 1 {
		return encoders[0], nil
	}
	return &ChainEncoder{name: strings.Join(names, "+"), encoders: encoders}, nil
}

// Direction selects Encode or Decode in Transform.
type Direction string

const (
	DirEncode Direction = "encode"
	DirDecode Direction = "decode"
)

// Transform runs text through the named encoder, or a "+"-joined chain,
// in the given direction.
func Transform(text, name string, dir Direction) (string, error) {
	enc, err := Chain(strings.Split(name, "+")...)
	if err != nil {
		return "", err
	}
	switch dir {
	case DirEncode:
		return enc.Encode(text)
	case DirDecode:
		return enc.Decode(text)
	}
	return "", fmt.Errorf("unknown direction %q", dir)
}

// EncodeWithAll applies every registered encoder to text, skipping those
// that fail.
func EncodeWithAll(text string) map[string]string {
	results := make(map[string]string)
	for _, name := range List() {
		if encoded, err := Get(name).Encode(text); err == nil {
			results[name] = encoded
		}
	}
	return results
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrMalformed}, args...)...)
}
