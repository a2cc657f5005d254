package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"labdesk/internal/billing"
	"labdesk/internal/middleware"
	"labdesk/internal/models"
	"labdesk/internal/notice"
	"labdesk/ui"
)

var pageNames = []string{"billing", "registration", "results", "tests", "departments", "settings"}

// renderer parses the layout and partials once and gives every page its own
// clone, since each page file defines "content".
type renderer struct {
	pages map[string]*template.Template
}

func newRenderer() (*renderer, error) {
	base, err := template.New("layout").Funcs(template.FuncMap{
		"json":       toJSON,
		"act":        action,
		"money":      billing.FormatAmount,
		"fieldError": fieldError,
	}).ParseFS(ui.FS, "templates/layout.html", "templates/partials.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	r := &renderer{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(ui.FS, "templates/"+name+".html"); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

func (r *renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	return t.ExecuteTemplate(w, "layout", data)
}

// fragment renders one named template of a page, for patching into the DOM.
func (r *renderer) fragment(page, name string, data interface{}) (string, error) {
	t, ok := r.pages[page]
	if !ok {
		return "", fmt.Errorf("unknown page %q", page)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// fragments renders several templates into one patch.
func (r *renderer) fragments(page string, data interface{}, names ...string) (string, error) {
	var buf bytes.Buffer
	for _, name := range names {
		html, err := r.fragment(page, name, data)
		if err != nil {
			return "", fmt.Errorf("render %s: %w", name, err)
		}
		buf.WriteString(html)
	}
	return buf.String(), nil
}

func toJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// action builds a Datastar backend action that carries the CSRF token.
func action(method, url string) template.JS {
	return template.JS(fmt.Sprintf("@%s('%s', {headers: {'X-CSRF-Token': $csrf}})", method, template.JSEscapeString(url)))
}

type fieldMessage struct {
	Field   string
	Message string
}

func fieldError(errs map[string]string, field string) fieldMessage {
	return fieldMessage{Field: field, Message: errs[field]}
}

type pager struct {
	ID    string
	Page  int
	Pages int
	Prev  template.HTMLAttr
	Next  template.HTMLAttr
}

func bounds(page, pages int) (prev, next int) {
	if pages < 1 {
		pages = 1
	}
	prev, next = page-1, page+1
	if prev < 1 {
		prev = 1
	}
	if next > pages {
		next = pages
	}
	return prev, next
}

// actionPager pages through Datastar posts.
func actionPager(id string, page, pages int, url func(int) string) pager {
	prev, next := bounds(page, pages)
	attr := func(n int) template.HTMLAttr {
		return template.HTMLAttr(`data-on:click="` + template.HTMLEscapeString(string(action("post", url(n)))) + `"`)
	}
	return pager{ID: id, Page: page, Pages: pages, Prev: attr(prev), Next: attr(next)}
}

// linkPager pages through plain navigation.
func linkPager(id string, page, pages int, url func(int) string) pager {
	prev, next := bounds(page, pages)
	attr := func(n int) template.HTMLAttr {
		js := "location.href='" + template.JSEscapeString(url(n)) + "'"
		return template.HTMLAttr(`onclick="` + template.HTMLEscapeString(js) + `"`)
	}
	return pager{ID: id, Page: page, Pages: pages, Prev: attr(prev), Next: attr(next)}
}

type header struct {
	Settings models.Settings
	LogoURL  string
}

type pageData struct {
	Title     string
	Nav       string
	CSRFToken string
	Settings  models.Settings
	Header    header
	Notices   []notice.Notice
	Data      interface{}
}

func csrfToken(c echo.Context) string {
	token, _ := c.Get(middleware.CSRFTokenKey).(string)
	return token
}

func (a *app) header(s models.Settings) header {
	return header{Settings: s, LogoURL: a.api.ResolveAssetURL(s.Logo)}
}

// render writes a full page. Notices queued for the session are shown
// inline and forgotten.
func (a *app) render(c echo.Context, name, title string, data interface{}) error {
	sess := sessionFrom(c)
	s := a.currentSettings(c.Request().Context())
	return c.Render(http.StatusOK, name, pageData{
		Title:     title,
		Nav:       name,
		CSRFToken: csrfToken(c),
		Settings:  s,
		Header:    a.header(s),
		Notices:   sess.board.Drain(),
		Data:      data,
	})
}
