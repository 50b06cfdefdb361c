package pipeline

import (
	"bytes"
	"os"

	"github.com/yuin/goldmark"

	apperrors "git.home.luguber.info/inful/linktext/internal/errors"
)

// renderHTML converts rewritten page markup to HTML. This is an output
// convenience for previewing results, not a wikitext parser: goldmark treats
// the page as Markdown and leaves [[...]] link syntax as literal text.
func renderHTML(content, dst string) error {
	md := goldmark.New()
	var buf bytes.Buffer
	if err := md.Convert([]byte(content), &buf); err != nil {
		return apperrors.Wrap(err, apperrors.CategoryRender, apperrors.SeverityError,
			"failed to render HTML")
	}
	if err := os.WriteFile(dst, buf.Bytes(), 0o644); err != nil {
		return apperrors.Wrap(err, apperrors.CategoryRender, apperrors.SeverityError,
			"failed to write HTML output").WithContext("path", dst)
	}
	return nil
}
