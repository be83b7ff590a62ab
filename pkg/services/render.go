package services

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

// Markdown renders CMS markdown to HTML. Raw HTML in the source is escaped.
// It is safe for concurrent use.
type Markdown struct {
	engine goldmark.Markdown
}

func NewMarkdown() *Markdown {
	return &Markdown{
		engine: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
	}
}

func (m *Markdown) Render(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := m.engine.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("markdown render: %w", err)
	}
	return template.HTML(buf.String()), nil
}
