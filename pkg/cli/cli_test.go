package cli

import (
	"flag"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thecyberx/cyberx/pkg/panel"
)

func info(t *testing.T, id string) panel.Info {
	t.Helper()
	in, ok := panel.New(panel.Env{}).Lookup(id)
	require.True(t, ok, id)
	return in
}

func bind(t *testing.T, id string, argv ...string) (panel.Args, error) {
	t.Helper()
	fs := flag.NewFlagSet(id, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	b := BindPanel(fs, info(t, id))
	rest, err := ParseInterleaved(fs, argv)
	if err != nil {
		return nil, err
	}
	return b.Args(rest, strings.NewReader("from stdin\n"))
}

func TestBindPanel_Positional(t *testing.T) {
	args, err := bind(t, "encoder", "hello", "world", "-encoding", "hex")
	require.NoError(t, err)
	assert.Equal(t, panel.Args{"text": "hello world", "encoding": "hex"}, args)
}

func TestBindPanel_TypedFlags(t *testing.T) {
	args, err := bind(t, "uuid", "-count", "3", "-uppercase")
	require.NoError(t, err)
	assert.Equal(t, 3, args["count"])
	assert.Equal(t, true, args["uppercase"])
	_, set := args["version"]
	assert.False(t, set, "unset flags are left to the panel defaults")

	_, err = bind(t, "uuid", "-count", "many")
	assert.Error(t, err)
}

func TestBindPanel_ListFlag(t *testing.T) {
	args, err := bind(t, "payloads", "-category", "xss,sqli", "-category", "lfi")
	require.NoError(t, err)
	assert.Equal(t, []string{"xss", "sqli", "lfi"}, args["category"])
}

func TestBindPanel_Stdin(t *testing.T) {
	args, err := bind(t, "hasher", StdinMarker, "-algorithm", "md5")
	require.NoError(t, err)
	assert.Equal(t, "from stdin", args["text"])
}

func TestBindPanel_PrimaryGivenTwice(t *testing.T) {
	_, err := bind(t, "encoder", "-text", "a", "b")
	assert.ErrorIs(t, err, ErrTooManyArgs)
}

func TestBindPanel_TakenName(t *testing.T) {
	fs := flag.NewFlagSet("timestamp", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	outputFormat := fs.String("format", "table", "output format")
	b := BindPanel(fs, info(t, "timestamp"))

	rest, err := ParseInterleaved(fs, []string{"-format", "json", "1700000000"})
	require.NoError(t, err)
	args, err := b.Args(rest, nil)
	require.NoError(t, err)
	assert.Equal(t, "json", *outputFormat)
	assert.Equal(t, panel.Args{"value": "1700000000"}, args)
}

func TestParseInterleaved(t *testing.T) {
	fs := flag.NewFlagSet("x", flag.ContinueOnError)
	v := fs.Bool("v", false, "")
	rest, err := ParseInterleaved(fs, []string{"a", "-v", "b", "--", "-c", "d"})
	require.NoError(t, err)
	assert.True(t, *v)
	assert.Equal(t, []string{"a", "b", "-c", "d"}, rest)
}

func TestUsage(t *testing.T) {
	p, ok := info(t, "encoder").Param("direction")
	require.True(t, ok)
	assert.Contains(t, Usage(p), "(encode|decode)")

	p, ok = info(t, "jwt").Param("token")
	require.True(t, ok)
	assert.Contains(t, Usage(p), "[required]")
}
