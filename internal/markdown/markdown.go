// Package markdown turns article source into the HTML that gets stored, and
// derives plain-text facts (excerpt, read time) from stored HTML.
package markdown

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

// Renderer converts markdown to HTML. It must be a pure function of its input.
type Renderer interface {
	Render(src string) (string, error)
}

// Goldmark renders GitHub-flavoured markdown. Raw HTML in the source is
// omitted from the output.
type Goldmark struct {
	md goldmark.Markdown
}

// New creates a Goldmark renderer.
func New() *Goldmark {
	return &Goldmark{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
	}
}

func (g *Goldmark) Render(src string) (string, error) {
	var buf bytes.Buffer
	if err := g.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("markdown: rendering: %w", err)
	}
	return buf.String(), nil
}
