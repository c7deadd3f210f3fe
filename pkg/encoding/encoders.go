package encoding

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"html"
	"net/url"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/thecyberx/cyberx/pkg/bufpool"
)

func init() {
	Register(&Base64Encoder{})
	Register(&URLEncoder{})
	Register(&HTMLEncoder{})
	Register(&HexEncoder{})
	Register(&UnicodeEncoder{})
	Register(&BinaryEncoder{})
	Register(&Base64URLEncoder{})
}

// Standard returns the six panel encodings in display order.
func Standard() []string {
	return []string{"base64", "url", "html", "hex", "unicode", "binary"}
}

func requireUTF8(b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", malformed("decoded bytes are not valid UTF-8")
	}
	return string(b), nil
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// Base64Encoder is standard padded base64 over UTF-8.
type Base64Encoder struct{}

func (e *Base64Encoder) Name() string { return "base64" }
func (e *Base64Encoder) Encode(text string) (string, error) {
	return base64.StdEncoding.EncodeToString([]byte(text)), nil
}
func (e *Base64Encoder) Decode(encoded string) (string, error) {
	s := stripSpace(encoded)
	enc := base64.StdEncoding
	if len(s)%4 != 0 {
		enc = base64.RawStdEncoding
	}
	b, err := enc.Strict().DecodeString(s)
	if err != nil {
		return "", malformed("base64: %v", err)
	}
	return requireUTF8(b)
}

// Base64URLEncoder is unpadded base64url, the JWT segment alphabet.
type Base64URLEncoder struct{}

func (e *Base64URLEncoder) Name() string { return "base64url" }
func (e *Base64URLEncoder) Encode(text string) (string, error) {
	return base64.RawURLEncoding.EncodeToString([]byte(text)), nil
}
func (e *Base64URLEncoder) Decode(encoded string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(stripSpace(encoded), "="))
	if err != nil {
		return "", malformed("base64url: %v", err)
	}
	return requireUTF8(b)
}

// URLEncoder percent-encodes everything outside A-Z a-z 0-9 - _ . ! ~ * ' ( ).
type URLEncoder struct{}

func (e *URLEncoder) Name() string { return "url" }
func (e *URLEncoder) Encode(text string) (string, error) {
	sb := bufpool.GetStringSized(len(text) * 3)
	defer bufpool.PutString(sb)
	for i := 0; i < len(text); i++ {
		c := text[i]
		if isURIUnreserved(c) {
			sb.WriteByte(c)
			continue
		}
		fmt.Fprintf(sb, "%%%02X", c)
	}
	return sb.String(), nil
}
func (e *URLEncoder) Decode(encoded string) (string, error) {
	s, err := url.PathUnescape(encoded)
	if err != nil {
		return "", malformed("url: %v", err)
	}
	return requireUTF8([]byte(s))
}

func isURIUnreserved(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}

// HTMLEncoder escapes & < > " and '. Decoding returns the text content:
// markup is stripped before entities are resolved.
type HTMLEncoder struct{}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

var textOnly = bluemonday.StrictPolicy()

func (e *HTMLEncoder) Name() string { return "html" }
func (e *HTMLEncoder) Encode(text string) (string, error) {
	return htmlEscaper.Replace(text), nil
}
func (e *HTMLEncoder) Decode(encoded string) (string, error) {
	return html.UnescapeString(textOnly.Sanitize(encoded)), nil
}

// HexEncoder writes two lowercase hex digits per UTF-8 byte.
type HexEncoder struct{}

func (e *HexEncoder) Name() string { return "hex" }
func (e *HexEncoder) Encode(text string) (string, error) {
	return hex.EncodeToString([]byte(text)), nil
}
func (e *HexEncoder) Decode(encoded string) (string, error) {
	s := stripSpace(encoded)
	if len(s)%2 != 0 {
		return "", malformed("hex: odd length %d", len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return "", malformed("hex: %v", err)
	}
	return requireUTF8(b)
}

// UnicodeEncoder writes \uXXXX per UTF-16 code unit. Decoding resolves
// escapes and keeps surrounding text.
type UnicodeEncoder struct{}

func (e *UnicodeEncoder) Name() string { return "unicode" }
func (e *UnicodeEncoder) Encode(text string) (string, error) {
	units := utf16.Encode([]rune(text))
	sb := bufpool.GetStringSized(len(units) * 6)
	defer bufpool.PutString(sb)
	for _, u := range units {
		fmt.Fprintf(sb, `\u%04x`, u)
	}
	return sb.String(), nil
}
func (e *UnicodeEncoder) Decode(encoded string) (string, error) {
	sb := bufpool.GetStringSized(len(encoded))
	defer bufpool.PutString(sb)

	var pending []uint16
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		for j := 0; j < len(pending); j++ {
			r := rune(pending[j])
			if !utf16.IsSurrogate(r) {
				sb.WriteRune(r)
				continue
			}
			if j+1 < len(pending) {
				if pair := utf16.DecodeRune(r, rune(pending[j+1])); pair != unicode.ReplacementChar {
					sb.WriteRune(pair)
					j++
					continue
				}
			}
			return malformed("unicode: unpaired surrogate %04x", r)
		}
		pending = pending[:0]
		return nil
	}

	for i := 0; i < len(encoded); {
		if strings.HasPrefix(encoded[i:], `\u`) {
			if i+6 > len(encoded) {
				return "", malformed("unicode: truncated escape at %d", i)
			}
			v, err := strconv.ParseUint(encoded[i+2:i+6], 16, 16)
			if err != nil {
				return "", malformed("unicode: bad escape %q", encoded[i:i+6])
			}
			pending = append(pending, uint16(v))
			i += 6
			continue
		}
		if err := flush(); err != nil {
			return "", err
		}
		r, size := utf8.DecodeRuneInString(encoded[i:])
		sb.WriteRune(r)
		i += size
	}
	if err := flush(); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// BinaryEncoder writes eight bits per UTF-8 byte, space separated.
type BinaryEncoder struct{}

func (e *BinaryEncoder) Name() string { return "binary" }
func (e *BinaryEncoder) Encode(text string) (string, error) {
	sb := bufpool.GetStringSized(len(text) * 9)
	defer bufpool.PutString(sb)
	for i := 0; i < len(text); i++ {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(sb, "%08b", text[i])
	}
	return sb.String(), nil
}
func (e *BinaryEncoder) Decode(encoded string) (string, error) {
	fields := strings.Fields(encoded)
	out := make([]byte, 0, len(fields))
	for _, f := range fields {
		if len(f) > 8 {
			return "", malformed("binary: group %q longer than 8 bits", f)
		}
		v, err := strconv.ParseUint(f, 2, 8)
		if err != nil {
			return "", malformed("binary: bad group %q", f)
		}
		out = append(out, byte(v))
	}
	return requireUTF8(out)
}
