package beautify

import (
	"strings"
	"testing"
)

func TestBeautify(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		indent int
		input  string
		want   string
	}{
		{
			name:   "json",
			format: JSON,
			indent: 2,
			input:  `{"a":1,"b":[1,2]}`,
			want:   "{\n  \"a\": 1,\n  \"b\": [\n    1,\n    2\n  ]\n}",
		},
		{
			name:   "json keeps member order",
			format: JSON,
			indent: 4,
			input:  `{"z":true,"a":null}`,
			want:   "{\n    \"z\": true,\n    \"a\": null\n}",
		},
		{
			name:   "json zero indent compacts",
			format: JSON,
			indent: 0,
			input:  "{ \"a\" : 1 }",
			want:   `{"a":1}`,
		},
		{
			name:   "js",
			format: JS,
			indent: 2,
			input:  "function a(){return 1;}",
			want:   "function a(){\nreturn 1;\n}",
		},
		{
			name:   "js commas",
			format: JS,
			indent: 2,
			input:  "f(a, b,c)",
			want:   "f(a,\nb,\nc)",
		},
		{
			name:   "css",
			format: CSS,
			indent: 2,
			input:  "body{color:red;margin:0}",
			want:   "body {\n  color:red;\n  margin:0\n}",
		},
		{
			name:   "css drops blank lines",
			format: CSS,
			indent: 4,
			input:  "a{  }\n\n b{x:1}",
			want:   "a {\n}\nb {\n    x:1\n}",
		},
		{
			name:   "xml",
			format: XML,
			indent: 2,
			input:  "<root><item>x</item><item>y</item></root>",
			want:   "<root>\n  <item>x</item>\n  <item>y</item>\n</root>",
		},
		{
			name:   "html nested",
			format: HTML,
			indent: 2,
			input:  "<html><body><div>hi</div></body></html>",
			want:   "<html>\n  <body>\n    <div>hi</div>\n  </body>\n</html>",
		},
		{
			name:   "unbalanced close never goes negative",
			format: XML,
			indent: 2,
			input:  "</x></y><z/>",
			want:   "</x>\n</y>\n<z/>",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Beautify(tt.input, tt.format, tt.indent)
			if err != nil {
				t.Fatalf("Beautify() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Beautify() =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestBeautifyClampsIndent(t *testing.T) {
	got, err := Beautify(`[1]`, JSON, 40)
	if err != nil {
		t.Fatal(err)
	}
	if want := "[\n" + strings.Repeat(" ", MaxIndent) + "1\n]"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestMinify(t *testing.T) {
	tests := []struct {
		format Format
		input  string
		want   string
	}{
		{JSON, "{\n  \"a\": [1, 2]\n}", `{"a":[1,2]}`},
		{JS, "a = { b : 1 ; }", "a ={b:1;}"},
		{CSS, "body {\n  color: red;\n}\n", "body{color:red;}"},
		{HTML, "<div>\n  <p>hi  there</p>\n</div>", "<div><p>hi there</p></div>"},
		{XML, "  <a>\n\t<b/>\n</a>  ", "<a><b/></a>"},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			got, err := Minify(tt.input, tt.format)
			if err != nil {
				t.Fatalf("Minify() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Minify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInvalidJSON(t *testing.T) {
	for _, in := range []string{"", "{", `{"a":}`, "[1,]"} {
		if _, err := Beautify(in, JSON, 2); err == nil {
			t.Errorf("Beautify(%q) expected error", in)
		}
		if _, err := Minify(in, JSON); err == nil {
			t.Errorf("Minify(%q) expected error", in)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(" CSS "); err != nil || f != CSS {
		t.Errorf("ParseFormat(CSS) = %q, %v", f, err)
	}
	if _, err := ParseFormat("yaml"); err == nil {
		t.Error("expected error for yaml")
	}
	if _, err := Beautify("x", Format("yaml"), 2); err == nil {
		t.Error("expected error for unknown format")
	}
}
