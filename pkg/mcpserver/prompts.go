package mcpserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) registerPrompts() {
	s.addPageReconPrompt()
	s.addTokenReviewPrompt()
}

func (s *Server) addPageReconPrompt() {
	s.mcp.AddPrompt(
		&mcp.Prompt{
			Name:        "page_recon",
			Title:       "Page Recon",
			Description: "Walk a page through the recon and security panels and summarize the findings.",
			Arguments: []*mcp.PromptArgument{
				{Name: "url", Description: "Page to open in the browser (e.g. https://example.com)", Required: true},
				{Name: "origin", Description: "Origin to probe CORS with (default https://evil.com)"},
			},
		},
		func(_ context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
			target := req.Params.Arguments["url"]
			if target == "" {
				return nil, fmt.Errorf("'url' argument is required")
			}
			origin := req.Params.Arguments["origin"]
			if origin == "" {
				origin = "https://evil.com"
			}
			return userPrompt(fmt.Sprintf("Recon: %s", target), fmt.Sprintf(`Review %[1]s for client-side exposure.

## Map the page
1. Run tech with url %[1]s to fingerprint frameworks and servers.
2. Run jsextract, links, forms and comments (no url needed, the tab is already there).
3. Note hidden inputs and comments flagged sensitive.

## Check the response policy
4. Run headers with url %[1]s and list missing or weak headers.
5. Run cors with url %[1]s and origin %[2]s, then again with scan true.

## Report
Summarize by severity, highest first. For each finding give the evidence
and a one-line fix. Mention API endpoints from jsextract worth testing next.`, target, origin)), nil
		},
	)
}

func (s *Server) addTokenReviewPrompt() {
	s.mcp.AddPrompt(
		&mcp.Prompt{
			Name:        "token_review",
			Title:       "JWT Review",
			Description: "Decode a JWT, check its claims and suggest attacks worth trying.",
			Arguments: []*mcp.PromptArgument{
				{Name: "token", Description: "The encoded JWT", Required: true},
			},
		},
		func(_ context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
			token := req.Params.Arguments["token"]
			if token == "" {
				return nil, fmt.Errorf("'token' argument is required")
			}
			return userPrompt("JWT review", fmt.Sprintf(`Review this JWT:

%s

1. Run jwt with the token and read the issues and risk.
2. If alg is none or HS*, explain what an attacker could forge.
3. Check exp, nbf and iat against the current time.
4. Use encoder with encoding base64 and direction decode on any claim that
   looks encoded.

Finish with the risk level and the concrete next tests.`, token)), nil
		},
	)
}

func userPrompt(description, text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []*mcp.PromptMessage{{
			Role:    "user",
			Content: &mcp.TextContent{Text: text},
		}},
	}
}
