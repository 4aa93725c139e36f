// Package view renders the server-side pages and list fragments.
package view

import (
	"bytes"
	"embed"
	"html/template"
	"io"

	"github.com/bwise1/bookgroups/internal/model"
	"github.com/bwise1/bookgroups/internal/query"
	"github.com/bwise1/bookgroups/util"
	"github.com/bwise1/bookgroups/util/storage"
	"github.com/pkg/errors"
)

//go:embed templates
var files embed.FS

const (
	PageHome   = "home"
	PageDetail = "detail"
	PageGroups = "groups"
	PageBooks  = "books"
	PageError  = "error"

	FragmentGroups = "group_items"
	FragmentBooks  = "book_items"
)

var pages = []string{PageHome, PageDetail, PageGroups, PageBooks, PageError}

// Page is embedded by every page model.
type Page struct {
	Title         string
	Authenticated bool
	Dehydrated    template.JS
}

// SetSnapshot embeds the dehydrated cache state in the page payload.
func (p *Page) SetSnapshot(s query.DehydratedState) error {
	raw, err := s.JSON()
	if err != nil {
		return errors.Wrap(err, "encode dehydrated state")
	}
	// encoding/json escapes <, > and &, so raw cannot close the script tag
	p.Dehydrated = template.JS(raw)
	return nil
}

type HomePage struct {
	Page
	BestGroups     []model.Group
	BestGroupsErr  string
	Bookshelves    []model.BookshelfPreview
	BookshelvesErr string
}

type DetailPage struct {
	Page
	Group     model.Group
	Leader    model.Member
	HasLeader bool
	Error     string
}

type ListPage[T any] struct {
	Page
	Keyword        string
	Items          []T
	State          string
	HasNext        bool
	NextURL        string
	Error          string
	ScrollPosition int
}

type ErrorPage struct {
	Page
	Status  int
	Message string
}

type Renderer struct {
	base  *template.Template
	pages map[string]*template.Template
}

// New parses every template. media resolves avatar and cover references and
// may be nil.
func New(media *storage.Media) (*Renderer, error) {
	funcs := template.FuncMap{
		"avatar": media.Avatar,
		"cover":  media.Cover,
	}
	for k, v := range util.TemplateFuncs {
		funcs[k] = v
	}

	base, err := template.New("").Funcs(funcs).ParseFS(files, "templates/layout.html", "templates/partials/*.html")
	if err != nil {
		return nil, errors.Wrap(err, "parse layout")
	}

	r := &Renderer{base: base, pages: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if t, err = t.ParseFS(files, "templates/"+name+".html"); err != nil {
			return nil, errors.Wrapf(err, "parse page %s", name)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render writes the full page name. Output is buffered so a failing template
// never leaves a half-written response.
func (r *Renderer) Render(w io.Writer, name string, data interface{}) error {
	t, ok := r.pages[name]
	if !ok {
		return errors.Errorf("unknown page %q", name)
	}
	return execute(w, t, "layout", data)
}

// RenderFragment writes a partial, e.g. the next batch of list items.
func (r *Renderer) RenderFragment(w io.Writer, name string, data interface{}) error {
	return execute(w, r.base, name, data)
}

func execute(w io.Writer, t *template.Template, name string, data interface{}) error {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		return errors.Wrapf(err, "render %s", name)
	}
	_, err := buf.WriteTo(w)
	return err
}
