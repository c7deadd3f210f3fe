package encoding

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"hello world",
		"a b&c/d?e=f#g",
		"ünïcödé ✓ 日本語",
		"emoji 😀 pair",
		"tabs\tand\nnewlines",
		`quotes " and ' and \ backslash`,
	}
	for _, name := range Standard() {
		enc := Get(name)
		require.NotNil(t, enc, name)
		for _, in := range inputs {
			t.Run(name+"/"+in, func(t *testing.T) {
				encoded, err := enc.Encode(in)
				require.NoError(t, err)
				decoded, err := enc.Decode(encoded)
				require.NoError(t, err)
				assert.Equal(t, in, decoded)
			})
		}
	}
}

func TestEncodeKnownValues(t *testing.T) {
	tests := []struct {
		encoder string
		input   string
		want    string
	}{
		{"base64", "hello", "aGVsbG8="},
		{"url", "a b&c/é", "a%20b%26c%2F%C3%A9"},
		{"url", "-_.!~*'()", "-_.!~*'()"},
		{"html", `<a href="x">'&`, "&lt;a href=&quot;x&quot;&gt;&#39;&amp;"},
		{"hex", "Hi", "4869"},
		{"unicode", "hé", `\u0068\u00e9`},
		{"unicode", "😀", `\ud83d\ude00`},
		{"binary", "Hi", "01001000 01101001"},
		{"base64url", "??>", "Pz8-"},
	}
	for _, tt := range tests {
		t.Run(tt.encoder+"/"+tt.input, func(t *testing.T) {
			got, err := Get(tt.encoder).Encode(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeLenient(t *testing.T) {
	tests := []struct {
		encoder string
		input   string
		want    string
	}{
		{"base64", "aGVsbG8", "hello"},
		{"base64", " aGVs\nbG8= ", "hello"},
		{"hex", "48 69", "Hi"},
		{"unicode", `x\u0041y`, "xAy"},
		{"binary", " 01001000   01101001 ", "Hi"},
		{"html", "<b>bold</b> &amp; more", "bold & more"},
		{"url", "%E2%9C%93", "✓"},
		{"base64url", "Pz8-", "??>"},
	}
	for _, tt := range tests {
		t.Run(tt.encoder+"/"+tt.input, func(t *testing.T) {
			got, err := Get(tt.encoder).Decode(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		encoder string
		input   string
	}{
		{"hex", "486"},
		{"hex", "zz"},
		{"hex", "ff"},
		{"base64", "aGV$"},
		{"base64", "a"},
		{"url", "%zz"},
		{"url", "100%"},
		{"binary", "0102"},
		{"binary", "111111111"},
		{"unicode", `\u12`},
		{"unicode", `\uzzzz`},
		{"unicode", `\ud83d`},
		{"unicode", `\ude00\ud83d`},
	}
	for _, tt := range tests {
		t.Run(tt.encoder+"/"+tt.input, func(t *testing.T) {
			_, err := Get(tt.encoder).Decode(tt.input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformed), "want ErrMalformed, got %v", err)
		})
	}
}

func TestUnicodeKeepsReplacementChar(t *testing.T) {
	got, err := Get("unicode").Decode(`\ufffd`)
	require.NoError(t, err)
	assert.Equal(t, "�", got)
}

func TestGetIsCaseInsensitive(t *testing.T) {
	assert.NotNil(t, Get("BASE64"))
	assert.Nil(t, Get("rot13"))
}

func TestChain(t *testing.T) {
	enc, err := Chain("url", "base64")
	require.NoError(t, err)
	assert.Equal(t, "url+base64", enc.Name())

	encoded, err := enc.Encode("a b")
	require.NoError(t, err)
	assert.Equal(t, "YSUyMGI=", encoded)

	decoded, err := enc.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, "a b", decoded)

	_, err = Chain("url", "nope")
	assert.Error(t, err)

	_, err = Chain()
	assert.Error(t, err)

	single, err := Chain("hex")
	require.NoError(t, err)
	assert.Equal(t, "hex", single.Name())
}

func TestTransform(t *testing.T) {
	out, err := Transform("Hi", "hex+base64", DirEncode)
	require.NoError(t, err)
	assert.Equal(t, "NDg2OQ==", out)

	back, err := Transform(out, "hex+base64", DirDecode)
	require.NoError(t, err)
	assert.Equal(t, "Hi", back)

	_, err = Transform("Hi", "hex", Direction("sideways"))
	assert.Error(t, err)

	_, err = Transform("zz", "hex", DirDecode)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestEncodeWithAll(t *testing.T) {
	results := EncodeWithAll("Hi")
	for _, name := range Standard() {
		assert.Contains(t, results, name)
	}
	assert.Equal(t, "4869", results["hex"])
}

type testEncoder struct{ n string }

func (e testEncoder) Name() string                    { return e.n }
func (e testEncoder) Encode(p string) (string, error) { return p, nil }
func (e testEncoder) Decode(p string) (string, error) { return p, nil }

func TestConcurrentRegisterAndList(t *testing.T) {
	t.Parallel()

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(2)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				Register(testEncoder{n: fmt.Sprintf("concurrent-%d-%d", id, i)})
			}
		}(g)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				_ = List()
				_ = Get("base64")
			}
		}()
	}
	wg.Wait()
}

const reverseScript = `
name := "reverse"

encode := func(s) {
	out := ""
	for _, c in s {
		out = string(c) + out
	}
	return out
}

decode := func(s) {
	if s == "" {
		return error("empty input")
	}
	return encode(s)
}
`

func TestScriptEncoder(t *testing.T) {
	se, err := CompileScriptEncoder("inline", []byte(reverseScript))
	require.NoError(t, err)
	assert.Equal(t, "reverse", se.Name())

	out, err := se.Encode("abc")
	require.NoError(t, err)
	assert.Equal(t, "cba", out)

	back, err := se.Decode(out)
	require.NoError(t, err)
	assert.Equal(t, "abc", back)

	_, err = se.Decode("")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformed)
	assert.Contains(t, err.Error(), "empty input")
}

func TestWrapBindsInput(t *testing.T) {
	compiled, err := wrap([]byte(reverseScript), "encode")
	require.NoError(t, err)
	require.True(t, compiled.IsDefined("__input__"))

	c := compiled.Clone()
	require.NoError(t, c.Set("__input__", "xyz"))
	require.NoError(t, c.Run())
	assert.Equal(t, "zyx", c.Get("__result__").String())

	_, err = wrap([]byte(reverseScript), "missing_fn")
	assert.Error(t, err, "calling an undefined function must not compile")
}

func TestScriptEncoderConcurrent(t *testing.T) {
	se, err := CompileScriptEncoder("inline", []byte(reverseScript))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := fmt.Sprintf("input-%d", i)
			out, err := se.Encode(in)
			if assert.NoError(t, err) {
				back, err := se.Decode(out)
				assert.NoError(t, err)
				assert.Equal(t, in, back)
			}
		}(i)
	}
	wg.Wait()
}

func TestScriptEncoderRejectsIncomplete(t *testing.T) {
	tests := map[string]string{
		"no name":   `encode := func(s) { return s }; decode := func(s) { return s }`,
		"no encode": `name := "x"; decode := func(s) { return s }`,
		"no decode": `name := "x"; encode := func(s) { return s }`,
		"syntax":    `name := "x" encode :=`,
		"os import": `os := import("os"); name := "x"; encode := func(s) { return s }; decode := func(s) { return s }`,
	}
	for label, src := range tests {
		t.Run(label, func(t *testing.T) {
			_, err := CompileScriptEncoder(label, []byte(src))
			assert.Error(t, err)
		})
	}
}

func TestRegisterScripts(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "rev.tengo")
	require.NoError(t, os.WriteFile(good, []byte(reverseScript), 0o644))
	bad := filepath.Join(dir, "bad.tengo")
	require.NoError(t, os.WriteFile(bad, []byte(`name := `), 0o644))

	errs := RegisterScripts([]string{dir, filepath.Join(dir, "missing.tengo")}, nil)
	assert.Len(t, errs, 2)

	require.NotNil(t, Get("reverse"))
	out, err := Transform("ab", "reverse+hex", DirEncode)
	require.NoError(t, err)
	assert.Equal(t, "6261", out)
}
