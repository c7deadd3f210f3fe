package hasher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSum(t *testing.T) {
	tests := []struct {
		alg  string
		want string
	}{
		{"md5", "5d41402abc4b2a76b9719d911017c592"},
		{"sha1", "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"},
		{"sha256", "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"},
		{"SHA256", "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"},
		{"sha384", "59e1748777448c69de6b800d7a33bbfb9ff1b463e44354c3553bcdb9c666fa90125a3c79f90397bdf5f6a13de828684f"},
		{"sha512", "9b71d224bd62f3785d96d46ad3ea3d73319bfbc2890caadae2dff72519673ca72323c3d99ba5c11d7c7acc6e14b8c5da0c4663475c2e5c3adef46f73bcdec043"},
	}
	for _, tt := range tests {
		t.Run(tt.alg, func(t *testing.T) {
			got, err := Sum(tt.alg, "hello")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Sum("crc32", "hello")
	assert.Error(t, err)
}

func TestSumAll(t *testing.T) {
	digests := SumAll("")
	require.Len(t, digests, len(Algorithms))
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", digests[0].Value)
	assert.Equal(t, "mmh3", digests[len(digests)-1].Algorithm)
	assert.Equal(t, "0", digests[len(digests)-1].Value)
}

func TestMimeBase64(t *testing.T) {
	data := make([]byte, 100)
	out := mimeBase64(data)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Len(t, lines[0], 76)
	assert.True(t, strings.HasSuffix(out, "\n"))

	assert.Equal(t, "YQ==\n", mimeBase64([]byte("a")))
}

func TestFaviconHashStable(t *testing.T) {
	icon := []byte("\x00\x00\x01\x00fake-icon-bytes")
	assert.Equal(t, FaviconHash(icon), FaviconHash(icon))
	assert.NotEqual(t, FaviconHash(icon), FaviconHash(append(icon, 'x')))
}
