package render

import (
	"strings"
	"testing"
)

func TestHTML_HeadingAnchors(t *testing.T) {
	r := New()
	out, err := r.HTML("# Getting Started\n\nBody.\n")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `<h1 id="getting-started">Getting Started</h1>`) {
		t.Errorf("missing heading anchor: %s", out)
	}
	if !strings.Contains(out, "<p>Body.</p>") {
		t.Errorf("missing paragraph: %s", out)
	}
}

func TestHTML_GFMTable(t *testing.T) {
	r := New()
	out, err := r.HTML("| a | b |\n|---|---|\n| 1 | 2 |\n")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "<table>") {
		t.Errorf("GFM table not rendered: %s", out)
	}
}

func TestHTML_MermaidFence(t *testing.T) {
	r := New()
	out, err := r.HTML("```mermaid\ngraph TD\n  A-->B\n```\n")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `<pre class="mermaid">graph TD`) {
		t.Errorf("mermaid container missing: %s", out)
	}
	if !strings.Contains(out, "A--&gt;B") {
		t.Errorf("diagram source not escaped: %s", out)
	}
	if strings.Contains(out, "language-mermaid") {
		t.Errorf("mermaid fell through to the code block renderer: %s", out)
	}
}

func TestHTML_CodeFenceKeepsLanguageClass(t *testing.T) {
	r := New()
	out, err := r.HTML("```go\npackage main\n```\n")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `<code class="language-go">`) {
		t.Errorf("language class missing: %s", out)
	}
}

func TestPlainText(t *testing.T) {
	in := `<h1>Guide</h1><p>Use <code>folio</code> to re<em>build</em>.</p><pre><code>skip me</code></pre>`
	got := PlainText(in)
	want := "Guide Use folio to rebuild."
	if got != want {
		t.Errorf("PlainText = %q, want %q", got, want)
	}
}

func TestPlainText_DropsMermaid(t *testing.T) {
	got := PlainText(`<p>Before.</p><pre class="mermaid">graph TD</pre><p>After.</p>`)
	if got != "Before. After." {
		t.Errorf("PlainText = %q", got)
	}
}

func TestExcerpt(t *testing.T) {
	got := Excerpt("<p>one two three four</p>", 9)
	if got != "one two…" {
		t.Errorf("Excerpt = %q", got)
	}
	if full := Excerpt("<p>short</p>", 50); full != "short" {
		t.Errorf("Excerpt = %q, want untruncated text", full)
	}
}

func TestTerm(t *testing.T) {
	out, err := Term("# Hi\n\nSome *styled* text.\n", 40)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Hi") {
		t.Errorf("terminal output missing heading text: %q", out)
	}
}
