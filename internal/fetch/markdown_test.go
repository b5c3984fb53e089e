package fetch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const menuPage = `<html><head><title>Taco Loco | Charleston</title></head><body>
<nav><a href="/">Home</a></nav>
<main>
  <h1>Taco Loco</h1>
  <p>Authentic   street tacos in Charleston.</p>
  <h2>Menu</h2>
  <ul><li>Birria Taco - $4.50</li><li>Al Pastor - $4.00</li></ul>
  <table><tr><th>Day</th><th>Hours</th></tr><tr><td>Monday</td><td>11-2</td></tr></table>
</main>
<script>var x = 1;</script>
<footer>Copyright</footer>
</body></html>`

func TestHTMLToMarkdown(t *testing.T) {
	md, err := HTMLToMarkdown(menuPage)
	require.NoError(t, err)

	assert.Contains(t, md, "# Taco Loco")
	assert.Contains(t, md, "## Menu")
	assert.Contains(t, md, "Authentic street tacos in Charleston.")
	assert.Contains(t, md, "- Birria Taco - $4.50")
	assert.Contains(t, md, "| Monday | 11-2 |")
	assert.NotContains(t, md, "Home")
	assert.NotContains(t, md, "Copyright")
	assert.NotContains(t, md, "var x")
}

func TestHTMLToMarkdown_PlainTextFallback(t *testing.T) {
	md, err := HTMLToMarkdown("<html><body><div>Just\n   a div</div></body></html>")
	require.NoError(t, err)
	assert.Equal(t, "Just\na div", md)
}

func TestExtractArticle_ShortPageKeepsDetails(t *testing.T) {
	article, err := ExtractArticle(menuPage, "https://tacoloco.com")
	require.NoError(t, err)
	assert.NotEmpty(t, article.Title)
	assert.Contains(t, article.Markdown, "Birria Taco")
}

func TestExtractArticle_BadURL(t *testing.T) {
	_, err := ExtractArticle(menuPage, "://bad")
	assert.Error(t, err)
}

func TestShouldUseBrowser(t *testing.T) {
	assert.True(t, ShouldUseBrowser("short"))
	assert.False(t, ShouldUseBrowser(strings.Repeat("x", MinContentLength)))
}
