package hostbridge

import (
	"context"
	"fmt"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
)

// Markdown renders the captured page as Markdown, with relative links made
// absolute against the page URL.
func (s *Snapshot) Markdown(ctx context.Context) (string, error) {
	md, err := htmltomarkdown.ConvertString(s.HTML,
		converter.WithDomain(s.URL),
		converter.WithContext(ctx),
	)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return md, nil
}
