// Command mcp-smoke starts "cyberx mcp --http" from the source tree and
// drives it with a real MCP client through a set of scenarios.
//
//	go run ./cmd/mcp-smoke
//	go run ./cmd/mcp-smoke -live -target https://example.com
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/thecyberx/cyberx/pkg/jsonutil"
)

// scenarioResult tracks the outcome of a single scenario.
type scenarioResult struct {
	name    string
	passed  bool
	skipped bool
	err     error
}

// scenario is a named test function that runs against a live MCP session.
type scenario struct {
	name string
	live bool // requires a real target (skipped without -live)
	fn   func(ctx context.Context, s *mcp.ClientSession, target string) error
}

func main() {
	var (
		port    = flag.Int("port", 18080, "MCP HTTP port")
		target  = flag.String("target", "https://example.com", "Target URL for live scenarios")
		timeout = flag.Duration("timeout", 90*time.Second, "Overall timeout")
		live    = flag.Bool("live", false, "Enable live scenarios that hit an external target")
		runOnly = flag.String("scenario", "", "Run only this named scenario")
	)
	flag.Parse()
	log.SetFlags(0)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	serverCmd, err := startServer(ctx, *port)
	if err != nil {
		log.Fatalf("FATAL start_server: %v", err)
	}
	defer stopServer(serverCmd)

	if err := waitForHealth(ctx, *port); err != nil {
		log.Fatalf("FATAL health_check: %v", err)
	}
	fmt.Println("server: healthy")

	client := mcp.NewClient(&mcp.Implementation{Name: "mcp-smoke", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, &mcp.StreamableClientTransport{
		Endpoint: fmt.Sprintf("http://127.0.0.1:%d/mcp", *port),
	}, nil)
	if err != nil {
		log.Fatalf("FATAL connect: %v", err)
	}
	defer session.Close()

	var results []scenarioResult
	for _, sc := range allScenarios() {
		if *runOnly != "" && sc.name != *runOnly {
			continue
		}
		if sc.live && !*live {
			results = append(results, scenarioResult{name: sc.name, skipped: true})
			fmt.Printf("SKIP  %s\n", sc.name)
			continue
		}

		err := sc.fn(ctx, session, *target)
		results = append(results, scenarioResult{name: sc.name, passed: err == nil, err: err})
		if err == nil {
			fmt.Printf("PASS  %s\n", sc.name)
		} else {
			fmt.Printf("FAIL  %s: %v\n", sc.name, err)
		}
	}

	passed, failed, skipped := 0, 0, 0
	for _, r := range results {
		switch {
		case r.skipped:
			skipped++
		case r.passed:
			passed++
		default:
			failed++
		}
	}
	fmt.Printf("\n--- %d passed, %d failed, %d skipped ---\n", passed, failed, skipped)
	if failed > 0 {
		os.Exit(1)
	}
}

// allScenarios returns every smoke scenario in execution order.
func allScenarios() []scenario {
	return []scenario{
		{"tool_discovery", false, scenarioToolDiscovery},
		{"resource_exploration", false, scenarioResourceExploration},
		{"prompt_catalog", false, scenarioPromptCatalog},

		{"offline_tools", false, scenarioOfflineTools},
		{"token_review", false, scenarioTokenReview},
		{"error_handling", false, scenarioErrorHandling},

		{"page_recon", true, scenarioPageRecon},
	}
}

var expectedTools = []string{
	"encoder", "hasher", "jwt", "payloads", "dorks",
	"revshell", "cors", "headers", "cookies",
	"jsextract", "links", "forms", "comments", "tech",
	"regex", "timestamp", "uuid", "ip", "beautify",
}

func scenarioToolDiscovery(ctx context.Context, s *mcp.ClientSession, _ string) error {
	tools, err := s.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		return fmt.Errorf("ListTools: %w", err)
	}

	have := make(map[string]*mcp.Tool, len(tools.Tools))
	for _, t := range tools.Tools {
		have[t.Name] = t
	}
	var missing []string
	for _, name := range expectedTools {
		if have[name] == nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing tools: %v (have %d)", missing, len(tools.Tools))
	}
	if len(tools.Tools) != len(expectedTools) {
		return fmt.Errorf("tool count mismatch: want %d, got %d", len(expectedTools), len(tools.Tools))
	}

	for _, t := range tools.Tools {
		if t.Description == "" {
			return fmt.Errorf("tool %q has empty description", t.Name)
		}
		if t.InputSchema == nil {
			return fmt.Errorf("tool %q has nil input schema", t.Name)
		}
		if t.Annotations == nil {
			return fmt.Errorf("tool %q has no annotations", t.Name)
		}
	}
	if have["cookies"].Annotations.ReadOnlyHint {
		return fmt.Errorf("cookies can add and delete, must not be read-only")
	}
	if !have["encoder"].Annotations.ReadOnlyHint {
		return fmt.Errorf("encoder must be read-only")
	}
	return nil
}

func scenarioResourceExploration(ctx context.Context, s *mcp.ClientSession, _ string) error {
	list, err := s.ListResources(ctx, &mcp.ListResourcesParams{})
	if err != nil {
		return fmt.Errorf("ListResources: %w", err)
	}
	if len(list.Resources) < 2 {
		return fmt.Errorf("want at least 2 resources, got %d", len(list.Resources))
	}

	res, err := s.ReadResource(ctx, &mcp.ReadResourceParams{URI: "cyberx://version"})
	if err != nil {
		return fmt.Errorf("read version: %w", err)
	}
	version, err := resourceJSON(res)
	if err != nil {
		return fmt.Errorf("version: %w", err)
	}
	if version["version"] == "" || version["version"] == nil {
		return fmt.Errorf("version resource has no version")
	}

	res, err = s.ReadResource(ctx, &mcp.ReadResourceParams{URI: "cyberx://panels"})
	if err != nil {
		return fmt.Errorf("read panels: %w", err)
	}
	catalog, err := resourceJSON(res)
	if err != nil {
		return fmt.Errorf("panels: %w", err)
	}
	for _, cat := range []string{"core", "security", "recon", "utils"} {
		if _, ok := catalog[cat]; !ok {
			return fmt.Errorf("panels resource lacks category %q", cat)
		}
	}

	// NEGATIVE: unknown resource.
	if _, err := s.ReadResource(ctx, &mcp.ReadResourceParams{URI: "cyberx://nope"}); err == nil {
		return fmt.Errorf("NEG unknown resource: expected error")
	}
	return nil
}

func scenarioPromptCatalog(ctx context.Context, s *mcp.ClientSession, _ string) error {
	prompts, err := s.ListPrompts(ctx, &mcp.ListPromptsParams{})
	if err != nil {
		return fmt.Errorf("ListPrompts: %w", err)
	}
	names := map[string]bool{}
	for _, p := range prompts.Prompts {
		names[p.Name] = true
	}
	for _, want := range []string{"page_recon", "token_review"} {
		if !names[want] {
			return fmt.Errorf("missing prompt %q", want)
		}
	}

	got, err := s.GetPrompt(ctx, &mcp.GetPromptParams{
		Name:      "page_recon",
		Arguments: map[string]string{"url": "https://example.com"},
	})
	if err != nil {
		return fmt.Errorf("GetPrompt page_recon: %w", err)
	}
	if text := promptText(got); !strings.Contains(text, "https://example.com") {
		return fmt.Errorf("page_recon prompt does not mention the url: %s", truncate(text, 120))
	}
	return nil
}

func scenarioOfflineTools(ctx context.Context, s *mcp.ClientSession, _ string) error {
	out, err := callToolJSON(ctx, s, "encoder", map[string]any{"text": "hello", "encoding": "base64"})
	if err != nil {
		return err
	}
	if out["text"] != "aGVsbG8=" {
		return fmt.Errorf("encoder: want aGVsbG8=, got %v", out["text"])
	}

	out, err = callToolJSON(ctx, s, "ip", map[string]any{"ip": "192.168.1.1", "prefix": 24})
	if err != nil {
		return err
	}
	if out["text"] != "192.168.1.0/24" {
		return fmt.Errorf("ip: want 192.168.1.0/24, got %v", out["text"])
	}

	out, err = callToolJSON(ctx, s, "regex", map[string]any{"pattern": `\d+`, "flags": "g", "input": "a1 b22 c333"})
	if err != nil {
		return err
	}
	if !strings.Contains(fmt.Sprint(out["data"]), "333") {
		return fmt.Errorf("regex: no match for 333 in %s", truncate(fmt.Sprint(out["data"]), 120))
	}

	return requireToolOK(ctx, s, "uuid", map[string]any{"count": 3, "version": "v7"})
}

func scenarioTokenReview(ctx context.Context, s *mcp.ClientSession, _ string) error {
	out, err := callToolJSON(ctx, s, "jwt", map[string]any{
		"token": "eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0.eyJzdWIiOiIxIn0.",
	})
	if err != nil {
		return err
	}
	if out["severity"] != "critical" {
		return fmt.Errorf("alg none token: want critical, got %v", out["severity"])
	}
	return nil
}

func scenarioErrorHandling(ctx context.Context, s *mcp.ClientSession, _ string) error {
	if err := requireToolError(ctx, s, "jwt", map[string]any{}, "missing token"); err != nil {
		return err
	}
	if err := requireToolError(ctx, s, "jwt", map[string]any{"token": "a.b"}, "two segments"); err != nil {
		return err
	}
	if err := requireToolError(ctx, s, "encoder", map[string]any{"text": "x", "direction": "sideways"}, "bad enum"); err != nil {
		return err
	}
	if err := requireToolError(ctx, s, "regex", map[string]any{"pattern": "(", "input": "x"}, "bad pattern"); err != nil {
		return err
	}

	// NEGATIVE: calling a nonexistent tool must fail.
	res, err := callToolRaw(ctx, s, "nonexistent_tool_that_does_not_exist", map[string]any{})
	if err == nil && !res.IsError {
		return fmt.Errorf("NEG nonexistent tool: expected error, got success")
	}
	return nil
}

func scenarioPageRecon(ctx context.Context, s *mcp.ClientSession, target string) error {
	out, err := callToolJSON(ctx, s, "headers", map[string]any{"url": target})
	if err != nil {
		return err
	}
	if _, ok := out["data"]; !ok {
		return fmt.Errorf("headers: no data")
	}
	if err := requireToolOK(ctx, s, "links", map[string]any{"url": target}); err != nil {
		return err
	}
	return requireToolOK(ctx, s, "cors", map[string]any{"url": target})
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func requireToolOK(ctx context.Context, s *mcp.ClientSession, name string, args map[string]any) error {
	result, err := callToolRaw(ctx, s, name, args)
	if err != nil {
		return fmt.Errorf("call %s: %w", name, err)
	}
	if result.IsError {
		return fmt.Errorf("call %s: tool error: %s", name, truncate(extractText(result), 200))
	}
	return nil
}

// requireToolError calls a tool and asserts it returns IsError=true.
func requireToolError(ctx context.Context, s *mcp.ClientSession, name string, args map[string]any, desc string) error {
	result, err := callToolRaw(ctx, s, name, args)
	if err != nil {
		// Protocol-level error is also acceptable for negative cases.
		return nil
	}
	if !result.IsError {
		return fmt.Errorf("NEG %s(%s): expected IsError=true, got false (response: %s)",
			name, desc, truncate(extractText(result), 120))
	}
	return nil
}

// callToolJSON calls a tool, asserts no error, and parses as JSON.
func callToolJSON(ctx context.Context, s *mcp.ClientSession, name string, args map[string]any) (map[string]any, error) {
	result, err := callToolRaw(ctx, s, name, args)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", name, err)
	}
	if result.IsError {
		return nil, fmt.Errorf("call %s: tool error: %s", name, truncate(extractText(result), 200))
	}
	text := extractText(result)
	var data map[string]any
	if err := jsonutil.Unmarshal([]byte(text), &data); err != nil {
		return nil, fmt.Errorf("call %s: parse JSON: %w (text: %s)", name, err, truncate(text, 100))
	}
	return data, nil
}

func callToolRaw(ctx context.Context, s *mcp.ClientSession, name string, args map[string]any) (*mcp.CallToolResult, error) {
	return s.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
}

func extractText(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return ""
	}
	if tc, ok := result.Content[0].(*mcp.TextContent); ok {
		return tc.Text
	}
	return fmt.Sprintf("%T", result.Content[0])
}

func resourceJSON(res *mcp.ReadResourceResult) (map[string]any, error) {
	if len(res.Contents) == 0 || res.Contents[0].Text == "" {
		return nil, fmt.Errorf("empty resource content")
	}
	var data map[string]any
	if err := jsonutil.Unmarshal([]byte(res.Contents[0].Text), &data); err != nil {
		return nil, fmt.Errorf("parse JSON: %w", err)
	}
	return data, nil
}

func promptText(result *mcp.GetPromptResult) string {
	data, err := jsonutil.Marshal(result)
	if err != nil {
		return ""
	}
	return string(data)
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}

// ---------------------------------------------------------------------------
// Server lifecycle
// ---------------------------------------------------------------------------

func startServer(ctx context.Context, port int) (*exec.Cmd, error) {
	root, err := findRepoRoot()
	if err != nil {
		return nil, fmt.Errorf("find repo root: %w", err)
	}

	cmd := exec.CommandContext(ctx, "go", "run", "./cmd/cli", "mcp", "--http", fmt.Sprintf("127.0.0.1:%d", port))
	cmd.Dir = root
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return cmd, nil
}

func stopServer(cmd *exec.Cmd) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
	_, _ = cmd.Process.Wait()
}

func findRepoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		modPath := dir + string(os.PathSeparator) + "go.mod"
		if data, err := os.ReadFile(modPath); err == nil {
			if strings.Contains(string(data), "module github.com/thecyberx/cyberx\n") ||
				strings.Contains(string(data), "module github.com/thecyberx/cyberx\r\n") {
				return dir, nil
			}
		}

		parent := dir[:max(strings.LastIndex(dir, string(os.PathSeparator)), 0)]
		if parent == dir || parent == "" {
			return "", fmt.Errorf("repo root not found walking up from %s", dir)
		}
		dir = parent
	}
}

func waitForHealth(ctx context.Context, port int) error {
	client := &http.Client{Timeout: 2 * time.Second}
	url := fmt.Sprintf("http://127.0.0.1:%d/health", port)

	ticker := time.NewTicker(300 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
