// Package templates renders the console's HTML as templ components.
package templates

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

// html writes markup and keeps the first write error.
type html struct {
	w   io.Writer
	ctx context.Context
	err error
}

func newHTML(ctx context.Context, w io.Writer) *html {
	return &html{w: w, ctx: ctx}
}

func (h *html) raw(s string) {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
}

func (h *html) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *html) int(n int) {
	h.raw(strconv.Itoa(n))
}

// attr writes ` name="value"` with value escaped.
func (h *html) attr(name, value string) {
	h.raw(" " + name + `="` + templ.EscapeString(value) + `"`)
}

// flag writes a boolean attribute when on.
func (h *html) flag(name string, on bool) {
	if on {
		h.raw(" " + name)
	}
}

// url writes a sanitized URL attribute.
func (h *html) url(name, value string) {
	h.attr(name, string(templ.URL(value)))
}

func (h *html) render(c templ.Component) {
	if h.err == nil && c != nil {
		h.err = c.Render(h.ctx, h.w)
	}
}

// component adapts a writer function into a templ.Component.
func component(fn func(h *html)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTML(ctx, w)
		fn(h)
		return h.err
	})
}

// postButton renders a one-button form posting to action.
func postButton(h *html, action, label, class string, disabled bool) {
	h.raw(`<form method="post" class="inline"`)
	h.attr("action", action)
	h.raw(`><button type="submit"`)
	h.attr("class", class)
	h.flag("disabled", disabled)
	h.raw(">")
	h.text(label)
	h.raw("</button></form>")
}
