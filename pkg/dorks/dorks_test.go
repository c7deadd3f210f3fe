package dorks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thecyberx/cyberx/pkg/ruleset"
)

func TestFill(t *testing.T) {
	tests := []struct {
		name     string
		template string
		opts     Options
		want     string
	}{
		{"defaults", "site:{domain} inurl:{keyword}", Options{}, "site:example.com inurl:admin"},
		{"ext falls back to pdf", "filetype:{ext}", Options{}, "filetype:pdf"},
		{"ext takes keyword", "filetype:{ext}", Options{Keyword: "xls"}, "filetype:xls"},
		{"url takes domain", "link:{url}", Options{Domain: "target.io"}, "link:target.io"},
		{"first occurrence only", "{domain} {domain}", Options{Domain: "a.com"}, "a.com {domain}"},
		{"whitespace is empty", "site:{domain}", Options{Domain: "  "}, "site:example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Fill(tt.template, tt.opts))
		})
	}
}

func TestGenerate(t *testing.T) {
	g := New(nil)
	require.Len(t, g.Templates(), 10)

	d, err := g.Generate("intitle", Options{Keyword: "index of"})
	require.NoError(t, err)
	assert.Equal(t, "intitle:index of", d.Dork)
	assert.Equal(t, "https://www.google.com/search?q=intitle%3Aindex%20of", d.URL)

	_, err = g.Generate("nope", Options{})
	assert.ErrorIs(t, err, ErrUnknownTemplate)

	all := g.GenerateAll(Options{Domain: "t.com"})
	require.Len(t, all, 10)
	assert.Equal(t, "site:t.com", all[0].Dork)
}

func TestPrebuilt(t *testing.T) {
	g := New(nil)

	plain := g.Prebuilt("")
	require.Len(t, plain, 15)
	assert.Equal(t, "inurl:admin intitle:login", plain[0].Dork)

	scoped := g.Prebuilt("target.io")
	assert.Equal(t, "site:target.io inurl:admin intitle:login", scoped[0].Dork)
	assert.Equal(t, "Admin panels", scoped[0].Name)
}

func TestSearchURL_EncodeURIComponent(t *testing.T) {
	assert.Equal(t,
		`https://www.google.com/search?q=ext%3Atxt%20intext%3A%22pass%22%20%7C%20(x)`,
		SearchURL(`ext:txt intext:"pass" | (x)`))
}

func TestCustomTable(t *testing.T) {
	g := New(&ruleset.Set{Dorks: []ruleset.DorkTemplate{{ID: "x", Name: "X", Template: "inurl:{keyword}.{ext}"}}})
	d, err := g.Generate("X", Options{Keyword: "backup"})
	require.NoError(t, err)
	assert.Equal(t, "inurl:backup.backup", d.Dork)
}
