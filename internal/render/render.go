// Package render converts newsletter body markup into email-safe HTML.
package render

import (
	"bytes"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	ghtml "github.com/yuin/goldmark/renderer/html"
)

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy

	markdownOnce sync.Once
	markdown     goldmark.Markdown
)

// emailPolicy returns a singleton bluemonday policy allowing only the
// structural tags that render reliably inside email clients. Scripts,
// styles and event handlers never survive.
func emailPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		p := bluemonday.NewPolicy()
		p.AllowElements("h1", "h2", "h3", "h4", "p", "ul", "ol", "li", "br", "hr", "strong", "em", "b", "i", "blockquote")
		p.AllowAttrs("href").OnElements("a")
		p.AllowStandardURLs()
		policy = p
	})
	return policy
}

func converter() goldmark.Markdown {
	markdownOnce.Do(func() {
		// Raw HTML passes through so the renderer is idempotent on input
		// that is already HTML; the sanitizer decides what survives.
		markdown = goldmark.New(goldmark.WithRendererOptions(ghtml.WithUnsafe()))
	})
	return markdown
}

// ToHTML converts the summarizer's markup dialect (markdown, HTML, or a
// mix) into sanitized HTML. Headings, lists and links that are already
// HTML pass through unchanged.
func ToHTML(markup string) string {
	var buf bytes.Buffer
	if err := converter().Convert([]byte(markup), &buf); err != nil {
		// Conversion only fails on writer errors, which bytes.Buffer
		// cannot produce; fall back to sanitizing the raw input.
		return strings.TrimSpace(emailPolicy().Sanitize(markup))
	}
	return strings.TrimSpace(emailPolicy().Sanitize(buf.String()))
}
