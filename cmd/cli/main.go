// Command cyberx runs the CyberX web pentest panels from the terminal, and
// serves them to MCP clients and over a JSON API.
//
//	cyberx encoder "hello world" -encoding base64
//	cyberx jwt eyJhbGciOi...
//	cyberx headers -url https://example.com -output-format json
//	cyberx mcp --stdio
//	cyberx serve -addr :8080
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/thecyberx/cyberx/pkg/cli"
	"github.com/thecyberx/cyberx/pkg/panel"
	"github.com/thecyberx/cyberx/pkg/ui"
)

// shutdownGrace is how long a command may take to stop after Ctrl+C.
const shutdownGrace = 5 * time.Second

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, cancel := cli.SignalContext(context.Background(), shutdownGrace)
	defer cancel()

	cmd, argv := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "panels", "list", "ls":
		err = runPanels(argv, stdStreams())
	case "mcp":
		err = runMCP(ctx, argv)
	case "serve", "server", "api":
		err = runServe(ctx, argv)
	case "snapshot", "page":
		err = runSnapshot(ctx, argv, stdStreams())
	case "token":
		err = runToken(argv, stdStreams())
	case "-h", "--help", "help":
		printUsage()
		return
	case "-v", "--version", "version":
		printVersion(os.Stdout)
		return
	default:
		info, ok := panel.New(panel.Env{}).Lookup(cmd)
		if !ok {
			cancel()
			exitWithUsage(fmt.Sprintf("unknown command %q", cmd), "cyberx <panel|command> [flags]  (see cyberx help)")
		}
		err = runPanel(ctx, info, argv, stdStreams())
	}

	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		cancel()
		var fe *failOnError
		if errors.As(err, &fe) {
			ui.PrintWarning(fe.Error())
			os.Exit(exitFindings)
		}
		exitWithError("%v", err)
	}
}
