package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newDirectory(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body>
			<a href="https://tacoloco.com/">Taco Loco</a>
			<a href="https://tacoloco.com/#menu">Taco Loco menu</a>
			<a href="/page2">Next page</a>
			<a href="mailto:info@directory.example">Email</a>
		</body></html>`))
	})
	mux.HandleFunc("/page2", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body>
			<a href="https://bbqtruck.com/">Smoke BBQ</a>
			<a href="https://crepecart.com/">Crepe Cart</a>
		</body></html>`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func urls(results []Result) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.URL)
	}
	return out
}

func TestCollyCrawler_CrawlDirectory(t *testing.T) {
	server := newDirectory(t)
	crawler := NewCollyCrawler("test-agent", 0, zap.NewNop())

	tests := []struct {
		name     string
		maxDepth int
		maxURLs  int
		want     []string
	}{
		{
			name:     "depth one stays on the start page",
			maxDepth: 1,
			maxURLs:  50,
			want:     []string{"https://tacoloco.com/"},
		},
		{
			name:     "depth two follows directory pages",
			maxDepth: 2,
			maxURLs:  50,
			want:     []string{"https://tacoloco.com/", "https://bbqtruck.com/", "https://crepecart.com/"},
		},
		{
			name:     "url cap",
			maxDepth: 2,
			maxURLs:  2,
			want:     []string{"https://tacoloco.com/", "https://bbqtruck.com/"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := crawler.CrawlDirectory(context.Background(), server.URL+"/", tt.maxDepth, tt.maxURLs)
			require.NoError(t, err)
			assert.Equal(t, tt.want, urls(results))
		})
	}
}

func TestCollyCrawler_InvalidURL(t *testing.T) {
	_, err := NewCollyCrawler("", 0, zap.NewNop()).CrawlDirectory(context.Background(), "not a url", 1, 10)
	assert.Error(t, err)
}
