package crawler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNeedsRenderFrameworkMarkers(t *testing.T) {
	d := NewHeuristicDetector(1024)

	tests := []struct {
		name string
		body string
	}{
		{"next.js payload", `<html><body><script id="__NEXT_DATA__">{}</script></body></html>`},
		{"react root attr", `<html><body><div data-reactroot=""></div></body></html>`},
		{"angular version", `<html><body><app-root ng-version="17.0.0"></app-root></body></html>`},
		{"bare root div", `<html><body><div id="root"></div></body></html>`},
		{"bare app div", `<html><body><div id="app"></div></body></html>`},
		{"vue bootstrap", `<html><body><script>Vue.createApp({}).mount('#app')</script></body></html>`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.True(t, d.NeedsRender([]byte(tc.body)))
		})
	}
}

func TestNeedsRenderEmptyDOMHeuristic(t *testing.T) {
	d := NewHeuristicDetector(200)

	// Large but contentless: scripts only, no block text.
	shell := `<html><head><script src="/bundle.js"></script></head><body><div class="x">` +
		strings.Repeat("<span></span>", 50) + `</div></body></html>`
	assert.True(t, d.NeedsRender([]byte(shell)))

	// Large with real paragraphs: server-rendered, no render needed.
	article := `<html><body><article><p>` + strings.Repeat("words here ", 60) + `</p></article></body></html>`
	assert.False(t, d.NeedsRender([]byte(article)))

	// Small and empty: below threshold, treated as a genuinely small page.
	tiny := `<html><body></body></html>`
	assert.False(t, d.NeedsRender([]byte(tiny)))
}

func TestNeedsRenderIsDeterministic(t *testing.T) {
	d := NewHeuristicDetector(1024)
	body := []byte(`<html><body><div id="root"></div></body></html>`)
	first := d.NeedsRender(body)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, d.NeedsRender(body))
	}
}
