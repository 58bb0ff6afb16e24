package loader

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table))

func loadMarkdown(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read document: %w", err)
	}
	if !utf8.Valid(content) {
		return "", ErrInvalidEncoding
	}
	return markdownText(content), nil
}

// markdownText renders markdown to plain text: headings keep their hashes,
// block elements are separated by blank lines and table cells by pipes.
func markdownText(content []byte) string {
	doc := markdown.Parser().Parse(text.NewReader(content))

	var b strings.Builder
	block := func() {
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n\n") {
			if strings.HasSuffix(b.String(), "\n") {
				b.WriteString("\n")
			} else {
				b.WriteString("\n\n")
			}
		}
	}
	line := func() {
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			b.WriteString("\n")
		}
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading:
			block()
			b.WriteString(strings.Repeat("#", node.Level) + " ")
			b.WriteString(nodeText(node, content))
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph:
			if _, inItem := node.Parent().(*ast.ListItem); inItem {
				if node.PreviousSibling() != nil {
					line()
				}
				break
			}
			block()
		case *ast.List:
			block()
		case *ast.ListItem:
			line()
			b.WriteString("- ")
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			block()
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				b.Write(seg.Value(content))
			}
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			b.Write(node.Segment.Value(content))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteString("\n")
			}
		case *ast.String:
			b.Write(node.Value)
		default:
			kind := n.Kind().String()
			if kind == "Table" {
				block()
			}
			if kind == "TableRow" || kind == "TableHeader" {
				line()
				b.WriteString(tableRowText(n, content))
				b.WriteString("\n")
				return ast.WalkSkipChildren, nil
			}
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(b.String())
}

// nodeText collects the text beneath n.
func nodeText(n ast.Node, content []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := node.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(content))
		case *ast.String:
			b.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

func tableRowText(row ast.Node, content []byte) string {
	var cells []string
	for c := row.FirstChild(); c != nil; c = c.NextSibling() {
		if c.Kind().String() == "TableCell" {
			cells = append(cells, nodeText(c, content))
		}
	}
	return strings.Join(cells, " | ")
}
