package render

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Mermaid replaces ```mermaid fences with a <pre class="mermaid"> container
// holding the escaped diagram source, for client-side rendering.
var Mermaid goldmark.Extender = mermaidExtension{}

const mermaidLang = "mermaid"

// KindMermaidBlock identifies the diagram container node.
var KindMermaidBlock = ast.NewNodeKind("MermaidBlock")

// MermaidBlock is a fenced mermaid diagram lifted out of the code block path.
type MermaidBlock struct {
	ast.BaseBlock
}

func (*MermaidBlock) Kind() ast.NodeKind { return KindMermaidBlock }

func (*MermaidBlock) IsRaw() bool { return true }

func (b *MermaidBlock) Dump(source []byte, level int) {
	ast.DumpHelper(b, source, level, nil, nil)
}

type mermaidExtension struct{}

func (mermaidExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithASTTransformers(
		util.Prioritized(mermaidTransformer{}, 500),
	))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(mermaidHTMLRenderer{}, 500),
	))
}

// mermaidTransformer swaps mermaid fenced code blocks for MermaidBlock nodes
// after parsing, so the code block renderer never sees them.
type mermaidTransformer struct{}

func (mermaidTransformer) Transform(doc *ast.Document, reader text.Reader, _ parser.Context) {
	var fences []*ast.FencedCodeBlock
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if f, ok := n.(*ast.FencedCodeBlock); ok {
			if string(f.Language(reader.Source())) == mermaidLang {
				fences = append(fences, f)
			}
		}
		return ast.WalkContinue, nil
	})

	for _, f := range fences {
		b := &MermaidBlock{}
		b.SetLines(f.Lines())
		parent := f.Parent()
		parent.ReplaceChild(parent, f, b)
	}
}

type mermaidHTMLRenderer struct{}

func (r mermaidHTMLRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindMermaidBlock, r.render)
}

func (mermaidHTMLRenderer) render(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		_, _ = w.WriteString(`<pre class="mermaid">`)
		lines := node.Lines()
		for i := 0; i < lines.Len(); i++ {
			writeEscaped(w, lines.At(i).Value(source))
		}
	} else {
		_, _ = w.WriteString("</pre>\n")
	}
	return ast.WalkContinue, nil
}

func writeEscaped(w util.BufWriter, b []byte) {
	last := 0
	for i := 0; i < len(b); i++ {
		if esc := util.EscapeHTMLByte(b[i]); esc != nil {
			_, _ = w.Write(b[last:i])
			_, _ = w.Write(esc)
			last = i + 1
		}
	}
	_, _ = w.Write(b[last:])
}
