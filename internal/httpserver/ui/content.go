package ui

import (
	"bytes"
	"context"
	_ "embed"
	"io"
	"sync"

	"github.com/a-h/templ"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed content/home.md
var homeMarkdown []byte

var (
	homeOnce sync.Once
	homeHTML string
	homeErr  error
)

// RenderMarkdown converts Markdown source to HTML. Raw HTML in the source is
// dropped.
func RenderMarkdown(src []byte) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var buf bytes.Buffer
	if err := md.Convert(src, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// HomeContent returns the rendered home copy.
func HomeContent() templ.Component {
	homeOnce.Do(func() {
		homeHTML, homeErr = RenderMarkdown(homeMarkdown)
	})
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if homeErr != nil {
			return homeErr
		}
		_, err := io.WriteString(w, homeHTML)
		return err
	})
}
