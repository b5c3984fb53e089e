package fetch

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// noiseSelector lists elements that never carry vendor details.
const noiseSelector = "nav, footer, script, style, noscript, iframe, svg, form, .ad, .advertisement, .ads, .cookie-banner, .popup"

// Article is the readable part of a page.
type Article struct {
	Title    string
	Markdown string
}

// ExtractArticle pulls the main content out of a page with readability and renders it
// as markdown. When readability finds nothing useful the whole body is rendered instead.
func ExtractArticle(html, pageURL string) (*Article, error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page URL: %w", err)
	}

	article := &Article{}
	if parsed, err := readability.FromReader(strings.NewReader(html), parsedURL); err == nil {
		article.Title = strings.TrimSpace(parsed.Title)
		if md, err := HTMLToMarkdown(parsed.Content); err == nil {
			article.Markdown = md
		}
	}

	// readability drops short pages such as menus or contact cards
	if len(article.Markdown) < MinContentLength {
		md, err := HTMLToMarkdown(html)
		if err != nil {
			return nil, err
		}
		if len(md) > len(article.Markdown) {
			article.Markdown = md
		}
	}
	if article.Title == "" {
		article.Title = pageTitle(html)
	}
	return article, nil
}

// HTMLToMarkdown renders headings, list items, paragraphs and table rows as
// markdown-like lines, dropping navigation and script noise.
func HTMLToMarkdown(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc.Find(noiseSelector).Remove()

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}

	var lines []string
	root.Find("h1, h2, h3, h4, h5, h6, p, li, tr, address, blockquote, dt, dd").Each(func(_ int, s *goquery.Selection) {
		// nested matches are rendered by their innermost element
		if s.Is("li, tr") && s.Find("li, tr").Length() > 0 {
			return
		}
		if s.Is("p, address, blockquote, dt, dd") && s.ParentsFiltered("li, tr").Length() > 0 {
			return
		}
		text := collapseSpaces(s.Text())
		if text == "" {
			return
		}
		switch goquery.NodeName(s) {
		case "h1":
			lines = append(lines, "# "+text)
		case "h2":
			lines = append(lines, "## "+text)
		case "h3", "h4", "h5", "h6":
			lines = append(lines, "### "+text)
		case "li", "dd":
			lines = append(lines, "- "+text)
		case "tr":
			cells := []string{}
			s.Find("td, th").Each(func(_ int, c *goquery.Selection) {
				cells = append(cells, collapseSpaces(c.Text()))
			})
			lines = append(lines, "| "+strings.Join(cells, " | ")+" |")
		default:
			lines = append(lines, text)
		}
	})

	if len(lines) == 0 {
		return cleanWhitespace(root.Text()), nil
	}
	return strings.Join(lines, "\n"), nil
}

func pageTitle(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	return collapseSpaces(doc.Find("title").First().Text())
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// cleanWhitespace trims each line and drops empty ones.
func cleanWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	var cleaned []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
