// Package pipeline renders a vault: it loads pages, runs the declaration
// pre-pass, persists declared formats, rewrites bare links against the store
// and emits the result to the output directory.
package pipeline

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	apperrors "git.home.luguber.info/inful/linktext/internal/errors"
	"git.home.luguber.info/inful/linktext/internal/title"
)

// Page is one loaded vault page.
type Page struct {
	Title   title.Title
	RelPath string // vault-relative source path
	Raw     string
}

var pageExtensions = map[string]bool{
	".wiki": true,
	".md":   true,
}

// LoadVault walks dir and loads every .wiki/.md page. A page directly inside
// a subdirectory gets that directory as its namespace prefix; a "Ns:Name"
// basename works the same way. Unknown prefixes stay part of the page name.
func LoadVault(dir string, titles *title.SiteResolver) ([]Page, error) {
	var pages []Page
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !pageExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		t, ok := titles.Resolve(pageTitleText(rel))
		if !ok {
			return nil // unresolvable filename, not a page
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		pages = append(pages, Page{Title: t, RelPath: rel, Raw: string(data)})
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategorySource, apperrors.SeverityError,
			"failed to load vault").WithContext("dir", dir)
	}
	return pages, nil
}

// pageTitleText maps a vault-relative file path to title text.
func pageTitleText(rel string) string {
	base := strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel))
	if parent := filepath.Base(filepath.Dir(rel)); parent != "." {
		return parent + ":" + base
	}
	return base
}
