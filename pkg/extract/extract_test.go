package extract

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thecyberx/cyberx/pkg/finding"
	"github.com/thecyberx/cyberx/pkg/hostbridge"
)

const pageURL = "https://shop.example.com/account/"

func snapshot(t *testing.T, markup string, headers http.Header) *hostbridge.Snapshot {
	t.Helper()
	snap, err := hostbridge.ParseSnapshot(pageURL, markup, headers)
	require.NoError(t, err)
	return snap
}

func detector(t *testing.T) *Detector {
	t.Helper()
	d, err := NewDetector(nil)
	require.NoError(t, err)
	return d
}

func techByName(techs []Technology, name string) (Technology, bool) {
	for _, tt := range techs {
		if tt.Name == name {
			return tt, true
		}
	}
	return Technology{}, false
}

func TestDetect_MarkupMatchIsMedium(t *testing.T) {
	snap := snapshot(t, `<html><body><div data-reactroot=""></div></body></html>`, nil)
	techs := detector(t).Detect(snap)

	react, ok := techByName(techs, "React")
	require.True(t, ok, "React not detected in %+v", techs)
	assert.Equal(t, finding.ConfidenceMedium, react.Confidence)
	assert.Equal(t, "JavaScript Framework", react.Category)
}

func TestDetect_ScriptMatchIsHighWithVersion(t *testing.T) {
	snap := snapshot(t, `<html><head>
		<script src="https://unpkg.com/react-dom@18.2.0/umd/react-dom.production.min.js"></script>
		</head><body data-reactroot></body></html>`, nil)
	techs := detector(t).Detect(snap)

	react, ok := techByName(techs, "React")
	require.True(t, ok)
	assert.Equal(t, finding.ConfidenceHigh, react.Confidence, "script pattern is declared first and wins")
	assert.Equal(t, "18.2", react.Version)
}

func TestDetect_HeadersAndMeta(t *testing.T) {
	snap := snapshot(t,
		`<html><head><meta name="generator" content="WordPress 6.4"></head><body></body></html>`,
		http.Header{"Server": {"nginx/1.25.3"}},
	)
	techs := detector(t).Detect(snap)

	nginx, ok := techByName(techs, "Nginx")
	require.True(t, ok)
	assert.Equal(t, finding.ConfidenceHigh, nginx.Confidence)
	assert.Equal(t, "1.25.3", nginx.Version)

	wp, ok := techByName(techs, "WordPress")
	require.True(t, ok)
	assert.Equal(t, finding.ConfidenceHigh, wp.Confidence)

	_, ok = techByName(techs, "Apache")
	assert.False(t, ok)
}

func TestDetect_EmptyPage(t *testing.T) {
	techs := detector(t).Detect(snapshot(t, `<html><body></body></html>`, nil))
	assert.NotNil(t, techs)
	assert.Empty(t, techs)
}

func TestEndpoints(t *testing.T) {
	script := `
		fetch("/api/users");
		axios.post('/api/orders', body);
		$.post("/submit");
		http.delete("/items/7");
		const cfg = { url: "/graphql", endpoint: '/rpc' };
		fetch(` + "`/api/users/${id}`" + `);
		fetch("/api/users");
	`
	snap := snapshot(t, `<html><head><script>`+script+`</script></head></html>`, nil)
	got := Endpoints(snap)

	want := []Endpoint{
		{Path: "/api/users", Method: "GET", Source: SourceInline},
		{Path: "/api/orders", Method: "GET", Source: SourceInline},
		{Path: "/submit", Method: "POST", Source: SourceInline},
		{Path: "/items/7", Method: "DELETE", Source: SourceInline},
		{Path: "/graphql", Method: "GET", Source: SourceInline},
		{Path: "/rpc", Method: "GET", Source: SourceInline},
	}
	assert.Equal(t, want, got)
}

func TestEndpoints_Dedup(t *testing.T) {
	snap := &hostbridge.Snapshot{InlineScripts: []string{
		`fetch("/api/a"); fetch("/api/a")`,
		`$.post("/api/a")`,
	}}
	got := Endpoints(snap)
	require.Len(t, got, 1)
	assert.Equal(t, "GET", got[0].Method)
}

func TestEndpoints_LengthLimit(t *testing.T) {
	long := "/api/" + strings.Repeat("a", 195)
	snap := &hostbridge.Snapshot{InlineScripts: []string{`fetch("` + long + `")`}}
	assert.Empty(t, Endpoints(snap))

	ok := "/api/" + strings.Repeat("a", 194)
	snap = &hostbridge.Snapshot{InlineScripts: []string{`fetch("` + ok + `")`}}
	assert.Len(t, Endpoints(snap), 1)
}

func TestMethodForPattern(t *testing.T) {
	assert.Equal(t, "POST", methodForPattern(`\.post\s*\(`))
	assert.Equal(t, "PUT", methodForPattern(`\.put\s*\(`))
	assert.Equal(t, "DELETE", methodForPattern(`\.delete\s*\(`))
	assert.Equal(t, "GET", methodForPattern(`axios\.[a-z]+`))
}

func TestComments(t *testing.T) {
	markup := `<!-- before html -->
<html><head><!-- TODO: remove debug panel --></head>
<body>
  <div><!--ok--><!-- build 42 --></div>
  <script>
    // fetch token from storage
    //x
    /*! license */
    /* old admin route */
  </script>
</body></html>`
	got := Comments(snapshot(t, markup, nil))

	want := []Comment{
		{Type: CommentHTML, Content: "TODO: remove debug panel", Context: "HEAD", Sensitive: true},
		{Type: CommentHTML, Content: "build 42", Context: "DIV", Sensitive: false},
		{Type: CommentJS, Content: "// fetch token from storage", Context: ContextInlineScript, Sensitive: true},
		{Type: CommentJS, Content: "/* old admin route */", Context: ContextInlineScript, Sensitive: true},
	}
	assert.Equal(t, want, got)
}

func TestComments_Truncation(t *testing.T) {
	long := strings.Repeat("x", 600)
	got := Comments(snapshot(t, `<html><body><!--`+long+`--><script>//`+long+`</script></body></html>`, nil))
	require.Len(t, got, 2)
	assert.Len(t, got[0].Content, 500)
	assert.Len(t, got[1].Content, 200)
}

func TestLinks(t *testing.T) {
	markup := `<html><body>
		<a href="/orders">  My orders  </a>
		<a href="https://shop.example.com/orders">dup</a>
		<a href="https://twitter.com/shop">Twitter</a>
		<a href="mailto:help@example.com">Mail</a>
		<a href="tel:+100">Call</a>
		<a href="javascript:void(0)">Menu</a>
		<a href="#top">Top</a>
		<a href="settings">` + strings.Repeat("s", 80) + `</a>
		<a>no href</a>
	</body></html>`
	got := Links(snapshot(t, markup, nil))

	require.Len(t, got, 7)
	assert.Equal(t, Link{Href: "https://shop.example.com/orders", Text: "My orders", Type: LinkInternal}, got[0])
	assert.Equal(t, LinkExternal, got[1].Type)
	assert.Equal(t, LinkMailto, got[2].Type)
	assert.Equal(t, LinkTel, got[3].Type)
	assert.Equal(t, LinkJS, got[4].Type)
	assert.Equal(t, Link{Href: "https://shop.example.com/account/#top", Text: "Top", Type: LinkAnchor}, got[5])
	assert.Equal(t, "https://shop.example.com/account/settings", got[6].Href)
	assert.Len(t, got[6].Text, 50)
}

func TestHiddenInputs(t *testing.T) {
	markup := `<html><body>
		<form id="login" action="/session">
			<input type="hidden" name="csrf_token" value="abc">
			<input type="text" name="user">
		</form>
		<form action="/search"><input type="HIDDEN" id="page" value="2"></form>
		<form><input type="hidden" value="` + strings.Repeat("f", 40) + `"></form>
		<input type="hidden" name="tracking" value="1">
	</body></html>`
	got := HiddenInputs(snapshot(t, markup, nil))

	want := []HiddenInput{
		{Name: "csrf_token", Value: "abc", Type: "hidden", Form: "login", Sensitive: true},
		{Name: "page", Value: "2", Type: "hidden", Form: "https://shop.example.com/search", Sensitive: false},
		{Name: "(unnamed)", Value: strings.Repeat("f", 40), Type: "hidden", Form: pageURL, Sensitive: true},
		{Name: "tracking", Value: "1", Type: "hidden", Form: "(unnamed form)", Sensitive: false},
	}
	assert.Equal(t, want, got)
}

func TestHiddenInputs_DocumentOrder(t *testing.T) {
	markup := `<html><body>
		<form id="a"><div><input type="hidden" name="one"></div></form>
		<form id="b"><input type="hidden" name="two"></form>
		<input type="hidden" name="three">
		<form id="c"><p><span><input type="Hidden" name="four"></span></p></form>
	</body></html>`
	got := HiddenInputs(snapshot(t, markup, nil))

	var names, forms []string
	for _, in := range got {
		names = append(names, in.Name)
		forms = append(forms, in.Form)
	}
	assert.Equal(t, []string{"one", "two", "three", "four"}, names)
	assert.Equal(t, []string{"a", "b", "(unnamed form)", "c"}, forms)
}

func TestSensitive(t *testing.T) {
	assert.True(t, SensitiveComment("FIXME later"))
	assert.False(t, SensitiveComment("layout wrapper"))
	assert.True(t, SensitiveInput("SessionID", ""))
	assert.False(t, SensitiveInput("page", strings.Repeat("a", 32)))
	assert.True(t, SensitiveInput("page", strings.Repeat("a", 33)))
}

func TestScan_FailureIsEmpty(t *testing.T) {
	h := hostbridge.NewMemory() // no active tab
	got := Scan(context.Background(), h, nil, Links)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestScan(t *testing.T) {
	h := hostbridge.NewMemory()
	h.SetPage(pageURL, `<html><body><a href="/x">x</a></body></html>`, nil)
	got := Scan(context.Background(), h, nil, Links)
	require.Len(t, got, 1)
	assert.Equal(t, "https://shop.example.com/x", got[0].Href)
}

type failingHost struct{ hostbridge.Host }

func (failingHost) Snapshot(context.Context) (*hostbridge.Snapshot, error) {
	return nil, errors.New("tab crashed")
}

func TestScan_HostError(t *testing.T) {
	assert.Empty(t, Scan(context.Background(), failingHost{}, nil, Comments))
}

func TestAll(t *testing.T) {
	snap := snapshot(t, `<html><head><script src="/libs/jquery-3.7/jquery.min.js"></script>
		<script>fetch("/api/ping") // ping the api</script></head>
		<body><a href="/x">x</a><input type="hidden" name="nonce" value="n"></body></html>`, nil)
	r := detector(t).All(snap)

	assert.Equal(t, pageURL, r.URL)
	assert.Equal(t, []string{"https://shop.example.com/libs/jquery-3.7/jquery.min.js"}, r.Scripts)
	require.Len(t, r.Endpoints, 1)
	assert.Len(t, r.Links, 1)
	require.Len(t, r.HiddenInputs, 1)
	assert.True(t, r.HiddenInputs[0].Sensitive)
	jq, ok := techByName(r.Technologies, "jQuery")
	require.True(t, ok)
	assert.Equal(t, "3.7", jq.Version)
	assert.NotEmpty(t, r.Comments)
}
