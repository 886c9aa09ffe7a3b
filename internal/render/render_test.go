package render

import (
	"strings"
	"testing"
)

func TestToHTMLConvertsMarkdown(t *testing.T) {
	out := ToHTML("## Today\n\n- [Story](https://x.example/1)\n- Plain item\n")
	if !strings.Contains(out, "<h2>Today</h2>") {
		t.Fatalf("heading not converted: %q", out)
	}
	if !strings.Contains(out, `<a href="https://x.example/1"`) {
		t.Fatalf("link not converted: %q", out)
	}
	if !strings.Contains(out, "<li>Plain item</li>") {
		t.Fatalf("list not converted: %q", out)
	}
}

func TestToHTMLPassesThroughHTML(t *testing.T) {
	in := "<h3>technology</h3>\n<ul>\n<li><a href=\"https://t.example/1\">Story</a></li>\n</ul>"
	out := ToHTML(in)
	if !strings.Contains(out, "<h3>technology</h3>") {
		t.Fatalf("heading should pass through: %q", out)
	}
	if !strings.Contains(out, `<a href="https://t.example/1"`) {
		t.Fatalf("link should pass through: %q", out)
	}
}

func TestToHTMLIdempotentOnOwnOutput(t *testing.T) {
	in := "<h3>sports</h3>\n<ul>\n<li><a href=\"https://s.example/1\">Match report</a></li>\n</ul>"
	once := ToHTML(in)
	twice := ToHTML(once)
	if once != twice {
		t.Fatalf("renderer not idempotent:\nonce:  %q\ntwice: %q", once, twice)
	}
}

func TestToHTMLStripsUnsafeContent(t *testing.T) {
	out := ToHTML(`<p>ok</p><script>alert(1)</script><a href="javascript:alert(1)">x</a>`)
	if strings.Contains(out, "script") || strings.Contains(out, "javascript:") {
		t.Fatalf("unsafe content survived: %q", out)
	}
	if !strings.Contains(out, "<p>ok</p>") {
		t.Fatalf("safe content removed: %q", out)
	}
}
