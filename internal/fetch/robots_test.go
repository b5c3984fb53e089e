package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRobotsChecker(t *testing.T) {
	var robotsHits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			atomic.AddInt32(&robotsHits, 1)
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /private\n"))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	checker := NewRobotsChecker(server.Client(), DefaultUserAgent)
	ctx := context.Background()

	assert.True(t, checker.Allowed(ctx, server.URL+"/menu"))
	assert.False(t, checker.Allowed(ctx, server.URL+"/private/admin"))
	assert.True(t, checker.Allowed(ctx, server.URL))
	assert.Equal(t, int32(1), atomic.LoadInt32(&robotsHits))
}

func TestRobotsChecker_MissingRobotsAllows(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	checker := NewRobotsChecker(server.Client(), DefaultUserAgent)
	assert.True(t, checker.Allowed(context.Background(), server.URL+"/anything"))
	assert.False(t, checker.Allowed(context.Background(), "not a url"))
}
