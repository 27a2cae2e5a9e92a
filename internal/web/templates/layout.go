package templates

import (
	"github.com/a-h/templ"

	"github.com/JonMunkholm/catalogconsole/internal/core"
)

// Layout wraps body in the page shell.
func Layout(title string, body templ.Component) templ.Component {
	return component(func(h *html) {
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.raw("<title>")
		h.text(title)
		h.raw("</title>")
		h.raw(`<link rel="stylesheet" href="/static/app.css">`)
		h.raw(`<script src="/static/app.js" defer></script>`)
		h.raw(`</head><body><header class="topbar"><a href="/products" class="brand">Catalog Console</a></header>`)
		h.raw(`<main class="container">`)
		h.render(body)
		h.raw("</main></body></html>")
	})
}

// AlertList renders dismissible alerts.
func AlertList(alerts []core.Alert) templ.Component {
	return component(func(h *html) {
		if len(alerts) == 0 {
			return
		}
		h.raw(`<div class="alerts" role="status">`)
		for _, a := range alerts {
			h.raw(`<div`)
			h.attr("class", "alert alert-"+string(a.Level))
			h.raw(`><span class="alert-message">`)
			h.text(a.Message)
			h.raw("</span>")
			if a.Code != "" {
				h.raw(`<span class="alert-code">`)
				h.text(a.Code)
				h.raw("</span>")
			}
			h.raw(`<button type="button" class="alert-close" data-dismiss="alert" aria-label="Dismiss">&times;</button></div>`)
		}
		h.raw("</div>")
	})
}

// ErrorAlert renders a single error with its suggested action.
func ErrorAlert(message, action, code string) templ.Component {
	return component(func(h *html) {
		h.raw(`<div class="alert alert-danger" role="alert"><span class="alert-message">`)
		h.text(message)
		h.raw("</span>")
		if action != "" {
			h.raw(`<span class="alert-action">`)
			h.text(action)
			h.raw("</span>")
		}
		if code != "" {
			h.raw(`<span class="alert-code">`)
			h.text(code)
			h.raw("</span>")
		}
		h.raw("</div>")
	})
}

// ErrorPage is a full page for errors outside the console.
func ErrorPage(message, action, code string) templ.Component {
	return Layout("Error", component(func(h *html) {
		h.render(ErrorAlert(message, action, code))
		h.raw(`<p><a href="/products">Back to products</a></p>`)
	}))
}
