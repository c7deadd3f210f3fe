// Package hasher computes message digests of text and the Shodan-style
// favicon hash.
package hasher

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"hash"
	"strconv"
	"strings"

	"github.com/spaolacci/murmur3"

	"github.com/thecyberx/cyberx/pkg/bufpool"
)

// Algorithms in display order.
var Algorithms = []string{"md5", "sha1", "sha256", "sha384", "sha512", "mmh3"}

func newHash(algorithm string) (hash.Hash, error) {
	switch strings.ToLower(algorithm) {
	case "md5":
		return md5.New(), nil
	case "sha1":
		return sha1.New(), nil
	case "sha256":
		return sha256.New(), nil
	case "sha384":
		return sha512.New384(), nil
	case "sha512":
		return sha512.New(), nil
	}
	return nil, fmt.Errorf("unknown hash algorithm %q", algorithm)
}

// Sum returns the digest of text as lowercase hex. mmh3 is rendered as a
// signed decimal, the way favicon hashes are usually written.
func Sum(algorithm, text string) (string, error) {
	if strings.EqualFold(algorithm, "mmh3") {
		return strconv.FormatInt(int64(int32(murmur3.Sum32([]byte(text)))), 10), nil
	}
	h, err := newHash(algorithm)
	if err != nil {
		return "", err
	}
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Digest is one algorithm's output.
type Digest struct {
	Algorithm string `json:"algorithm"`
	Value     string `json:"value"`
}

// SumAll hashes text with every algorithm.
func SumAll(text string) []Digest {
	out := make([]Digest, 0, len(Algorithms))
	for _, alg := range Algorithms {
		v, _ := Sum(alg, text)
		out = append(out, Digest{Algorithm: alg, Value: v})
	}
	return out
}

// FaviconHash is murmur3-32 over the MIME base64 encoding of the icon
// (76-column lines, each ending in a newline), as a signed int32.
func FaviconHash(icon []byte) int32 {
	return int32(murmur3.Sum32([]byte(mimeBase64(icon))))
}

func mimeBase64(data []byte) string {
	enc := base64.StdEncoding.EncodeToString(data)
	sb := bufpool.GetStringSized(len(enc) + len(enc)/76 + 1)
	defer bufpool.PutString(sb)
	for len(enc) > 76 {
		sb.WriteString(enc[:76])
		sb.WriteByte('\n')
		enc = enc[76:]
	}
	sb.WriteString(enc)
	sb.WriteByte('\n')
	return sb.String()
}
