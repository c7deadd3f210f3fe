package main

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/thecyberx/cyberx/pkg/defaults"
	"github.com/thecyberx/cyberx/pkg/panel"
	"github.com/thecyberx/cyberx/pkg/ui"
)

func printUsage() {
	ui.PrintBanner()
	os.Stderr.Sync() // banner goes to stderr, help to stdout

	w := os.Stdout
	prev := ui.SetOutput(w)
	defer ui.SetOutput(prev)

	fmt.Fprintln(w, ui.SectionStyle.Render("USAGE"))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", ui.ConfigValueStyle.Render("cyberx <panel> [text | -] [flags]"))
	fmt.Fprintf(w, "  %s\n", ui.ConfigValueStyle.Render("cyberx <command> [flags]"))

	reg := panel.New(panel.Env{})
	for _, c := range panel.Categories {
		ui.PrintSection(categoryTitle(c) + " PANELS")
		for _, info := range reg.ByCategory(c) {
			ui.PrintCatalogEntry(info.ID, info.Label, info.Description)
		}
	}

	ui.PrintSection("COMMANDS")
	for _, c := range [][2]string{
		{"panels", "List panels; -json includes parameters"},
		{"snapshot", "Capture the active page as Markdown, HTML or JSON"},
		{"mcp", "Serve panels as MCP tools over stdio or HTTP"},
		{"serve", "Serve the JSON API, MCP and metrics over HTTP"},
		{"token", "Issue a bearer token for serve -secret"},
		{"version", "Print version information"},
		{"help", "Show this help"},
	} {
		ui.PrintCatalogEntry(c[0], "", c[1])
	}

	ui.PrintSection("EXAMPLES")
	for _, ex := range []string{
		`cyberx encoder "<script>" -encoding html`,
		`echo -n secret | cyberx hasher - -algorithm sha256 -copy`,
		`cyberx jwt eyJhbGciOiJub25lIn0.e30. -fail-on high`,
		`cyberx cors -url https://api.example.com -scan -output-format json`,
		`cyberx headers -urls https://a.example,https://b.example -pdf-export headers.pdf`,
		`cyberx links -chrome http://127.0.0.1:9222 -type external`,
		`cyberx mcp --http :8080`,
	} {
		fmt.Fprintf(w, "  %s\n", ui.ConfigValueStyle.Render(ex))
	}
	fmt.Fprintln(w)
	ui.PrintHelp("Run cyberx <panel> -h for the panel's flags. Settings are read from " + defaultConfigHint())
	fmt.Fprintln(w)
}

func defaultConfigHint() string {
	return "-config, $CYBERX_CONFIG or the user config dir, then CYBERX_* variables."
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "%s %s (commit %s, built %s, %s %s/%s)\n",
		defaults.ToolName, ui.Version, ui.Commit, ui.BuildDate,
		runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
