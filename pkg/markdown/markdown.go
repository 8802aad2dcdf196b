// Package markdown turns assistant replies into sanitized HTML.
package markdown

import (
	"bytes"
	stdhtml "html"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	converter = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)
	policy = newPolicy()
)

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}

// Render parses text as GitHub flavored markdown and returns HTML safe to inject
// into the page. Raw HTML in the source is never passed through.
func Render(text string) string {
	var buf bytes.Buffer
	if err := converter.Convert([]byte(text), &buf); err != nil {
		log.Warn().Err(err).Str("component", "markdown").Msg("render failed, falling back to escaped text")
		return Escape(text)
	}
	return policy.Sanitize(buf.String())
}

// Escape returns text with every HTML special character escaped.
func Escape(text string) string {
	return stdhtml.EscapeString(text)
}
