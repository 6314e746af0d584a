package ingest

import (
	"fmt"
	"net/url"
	"strings"

	"codeberg.org/readeck/go-readability/v2"
	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"

	"github.com/longregen/creditexplain/internal/domain/models"
)

// ExtractHTML turns an HTML regulatory notice into one document. Readability
// strips boilerplate, the remainder is converted to markdown so headings
// survive for the chunker's section extraction.
func ExtractHTML(htmlContent, source string) ([]models.Document, error) {
	baseURL := &url.URL{Scheme: "file", Path: source}

	article, err := readability.FromReader(strings.NewReader(htmlContent), baseURL)
	if err != nil {
		return nil, fmt.Errorf("extract content from %s: %w", source, err)
	}

	var htmlBuf strings.Builder
	if err := article.RenderHTML(&htmlBuf); err != nil {
		return nil, fmt.Errorf("render content from %s: %w", source, err)
	}

	markdown, err := htmltomarkdown.ConvertString(htmlBuf.String())
	if err != nil {
		return nil, fmt.Errorf("convert %s to markdown: %w", source, err)
	}
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return nil, fmt.Errorf("no extractable content in %s", source)
	}

	title := article.Title()
	if title == "" {
		title = htmlTitle(htmlContent)
	}

	md := baseMetadata(source, "regulation", map[string]any{
		"format": "html",
	})
	setIfPresent(md, "title", title)
	setIfPresent(md, "byline", article.Byline())
	setIfPresent(md, "excerpt", article.Excerpt())

	return []models.Document{{Text: markdown, Metadata: md}}, nil
}

// htmlTitle is the fallback when readability finds no title: the raw <title>
// tag, then the first <h1>.
func htmlTitle(htmlContent string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}
