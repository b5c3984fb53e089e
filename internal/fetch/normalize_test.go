package fetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"https://www.TacoLoco.com/", "https://tacoloco.com"},
		{"http://tacoloco.com/menu/#today", "http://tacoloco.com/menu"},
		{"tacoloco.com/menu", "https://tacoloco.com/menu"},
		{"  https://tacoloco.com/menu?day=mon  ", "https://tacoloco.com/menu?day=mon"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeURL(tt.input))
		})
	}
}

func TestNormalizeURL_Equivalence(t *testing.T) {
	assert.Equal(t, NormalizeURL("https://www.bbqtruck.com/"), NormalizeURL("bbqtruck.com"))
}

func TestHost(t *testing.T) {
	assert.Equal(t, "tacoloco.com", Host("https://www.tacoloco.com/menu"))
	assert.Equal(t, "tacoloco.com", Host("tacoloco.com"))
}
