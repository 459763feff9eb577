package localagent

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
)

const maxExtractChars = 50000

// extractReadable turns raw page HTML into clean text: readability pulls
// the main content, bluemonday strips anything that survived.
func extractReadable(html, pageURL string) (string, error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse URL: %v", err)
	}

	article, err := readability.FromReader(strings.NewReader(html), parsedURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse article: %v", err)
	}

	p := bluemonday.StrictPolicy()
	content := p.Sanitize(article.TextContent)

	if len(content) > maxExtractChars {
		content = content[:maxExtractChars] + "\n... (content truncated) ..."
	}

	if article.Title != "" {
		return fmt.Sprintf("TITLE: %s\n\n%s", article.Title, content), nil
	}
	return content, nil
}
