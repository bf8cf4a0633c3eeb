package document

import (
	"bytes"
	"sort"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// markdown is the shared engine for body analysis. Auto heading IDs are
// assigned at parse time so scanned anchors match what the renderer emits.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
)

// scanBody walks the Markdown AST and collects headings and outgoing links.
// Link and heading line numbers are resolved through the enclosing block's
// source segment, offset by where the body starts in the file.
func scanBody(d *Document) {
	source := []byte(d.Body)
	if len(source) == 0 {
		return
	}

	root := markdown.Parser().Parse(text.NewReader(source))
	starts := lineStarts(source)
	offset := d.BodyLine - 1

	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			h := Heading{
				Level: node.Level,
				Text:  textOf(node, source),
				Line:  offset + nodeLine(node, starts),
			}
			if id, ok := node.AttributeString("id"); ok {
				if b, isBytes := id.([]byte); isBytes {
					h.Anchor = string(b)
				}
			}
			d.Headings = append(d.Headings, h)

		case *ast.Link:
			d.Links = append(d.Links, Link{
				Kind:        LinkKindInline,
				Destination: string(node.Destination),
				Line:        offset + nodeLine(node, starts),
			})

		case *ast.Image:
			d.Links = append(d.Links, Link{
				Kind:        LinkKindImage,
				Destination: string(node.Destination),
				Line:        offset + nodeLine(node, starts),
			})

		case *ast.AutoLink:
			d.Links = append(d.Links, Link{
				Kind:        LinkKindAutolink,
				Destination: string(node.URL(source)),
				Line:        offset + nodeLine(node, starts),
			})
		}
		return ast.WalkContinue, nil
	})
}

// textOf concatenates the literal text content beneath a node.
func textOf(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(source))
		case *ast.String:
			buf.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

// nodeLine returns the 1-based body line of the nearest block ancestor.
// Inline nodes carry no position of their own, so a link reports the line
// its paragraph starts on.
func nodeLine(n ast.Node, starts []int) int {
	for cur := n; cur != nil; cur = cur.Parent() {
		if cur.Type() != ast.TypeBlock {
			continue
		}
		if lines := cur.Lines(); lines != nil && lines.Len() > 0 {
			return lineAt(starts, lines.At(0).Start)
		}
	}
	return 1
}

// lineStarts returns the byte offset of every line start in source.
func lineStarts(source []byte) []int {
	starts := []int{0}
	for i, b := range source {
		if b == '\n' && i+1 < len(source) {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// lineAt maps a byte offset to its 1-based line number.
func lineAt(starts []int, pos int) int {
	return sort.Search(len(starts), func(i int) bool { return starts[i] > pos })
}
