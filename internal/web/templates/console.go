package templates

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/catalogconsole/internal/core"
)

// PageData is everything the console page renders.
type PageData struct {
	View      core.View
	Alerts    []core.Alert
	PageSizes []int
	Busy      bool
}

// fallbackCategories is offered when the category list could not be loaded.
var fallbackCategories = []core.Category{{ID: 1, Name: "Clothes"}}

// CategoryLabel formats a category for pickers.
func CategoryLabel(c core.Category) string {
	return fmt.Sprintf("%s (#%d)", c.Name, c.ID)
}

// ConsolePage renders the full console.
func ConsolePage(d PageData) templ.Component {
	return Layout("Products", component(func(h *html) {
		h.render(AlertList(d.Alerts))
		h.render(Toolbar(d))
		if d.View.Create.State != core.Viewing {
			h.render(ProductForm(core.FlowCreate, d.View.Create, d.View.State.Categories))
		}
		h.raw(`<div class="layout">`)
		h.raw(`<section class="list">`)
		h.render(ProductTable(d.View))
		h.render(Pager(d.View, d.Busy))
		h.raw("</section>")
		if sel := d.View.State.Selected; sel != nil {
			h.raw(`<aside class="detail">`)
			if d.View.Edit.State != core.Viewing {
				h.render(ProductForm(core.FlowEdit, d.View.Edit, d.View.State.Categories))
			} else {
				h.render(DetailPanel(*sel))
			}
			h.raw("</aside>")
		}
		h.raw("</div>")
	}))
}

// Toolbar renders search, page size, reload, export and create controls.
func Toolbar(d PageData) templ.Component {
	return component(func(h *html) {
		st := d.View.State
		h.raw(`<div class="toolbar">`)

		h.raw(`<form method="post" action="/products/search" class="search">`)
		h.raw(`<input type="search" name="q" placeholder="Search title on this page" autocomplete="off"`)
		h.attr("value", st.Search)
		h.raw(`><button type="submit">Search</button></form>`)

		h.raw(`<form method="post" action="/products/page-size" class="page-size">`)
		h.raw(`<label for="page-size">Per page</label><select id="page-size" name="size" data-autosubmit>`)
		sizes := d.PageSizes
		if !slices.Contains(sizes, st.PageSize) {
			sizes = append([]int{st.PageSize}, sizes...)
		}
		for _, n := range sizes {
			h.raw("<option")
			h.attr("value", strconv.Itoa(n))
			h.flag("selected", n == st.PageSize)
			h.raw(">")
			h.int(n)
			h.raw("</option>")
		}
		h.raw(`</select><button type="submit">Apply</button></form>`)

		postButton(h, "/products/reload", "Reload", "secondary", d.Busy)
		h.raw(`<a class="button secondary" href="/products/export.csv" download>Export CSV</a>`)
		postButton(h, "/products/new", "New product", "primary", d.View.Create.State != core.Viewing)
		h.raw("</div>")
	})
}

// sortIndicator is the arrow shown next to the active sort column.
func sortIndicator(st core.ViewState, field core.SortField) string {
	if st.SortField != field {
		return ""
	}
	if st.SortDir == core.SortDesc {
		return " ↓"
	}
	return " ↑"
}

// ProductTable renders the current projection.
func ProductTable(v core.View) templ.Component {
	return component(func(h *html) {
		st := v.State
		h.raw(`<table class="products"><thead><tr><th>ID</th><th>Image</th>`)
		for _, col := range []struct {
			field core.SortField
			label string
		}{{core.SortTitle, "Title"}, {core.SortPrice, "Price"}} {
			h.raw(`<th><form method="post" class="inline"`)
			h.attr("action", "/products/sort/"+string(col.field))
			h.raw(`><button type="submit" class="sort">`)
			h.text(col.label + sortIndicator(st, col.field))
			h.raw("</button></form></th>")
		}
		h.raw(`<th>Category</th><th></th></tr></thead><tbody>`)

		if len(v.Projection) == 0 {
			h.raw(`<tr><td colspan="6" class="empty">`)
			if st.Search != "" && len(st.Items) > 0 {
				h.text(fmt.Sprintf("No products on this page match %q.", st.Search))
			} else {
				h.text("No products.")
			}
			h.raw("</td></tr>")
		}

		for _, p := range v.Projection {
			h.raw("<tr")
			if st.Selected != nil && st.Selected.ID == p.ID {
				h.attr("class", "selected")
			}
			h.raw("><td>")
			h.int(p.ID)
			h.raw("</td><td>")
			if len(p.Images) > 0 {
				h.raw(`<img class="thumb" loading="lazy" alt=""`)
				h.url("src", p.Images[0])
				h.raw(">")
			}
			h.raw("</td><td>")
			h.text(p.Title)
			h.raw(`</td><td class="num">`)
			h.text(p.Price.String())
			h.raw("</td><td>")
			h.text(p.CategoryName())
			h.raw("</td><td>")
			postButton(h, "/products/"+strconv.Itoa(p.ID)+"/open", "Open", "link", false)
			h.raw("</td></tr>")
		}
		h.raw("</tbody></table>")
	})
}

// Pager renders previous/next controls.
func Pager(v core.View, busy bool) templ.Component {
	return component(func(h *html) {
		h.raw(`<nav class="pager">`)
		postButton(h, "/products/page/prev", "Previous", "secondary", busy || !v.CanPrev)
		h.raw(`<span class="page">Page `)
		h.int(v.State.Page)
		h.raw("</span>")
		postButton(h, "/products/page/next", "Next", "secondary", busy || !v.CanNext)
		h.raw("</nav>")
	})
}

// DetailPanel renders a read-only product.
func DetailPanel(p core.Product) templ.Component {
	return component(func(h *html) {
		h.raw(`<div class="panel"><h2>`)
		h.text(p.Title)
		h.raw(`</h2><dl><dt>ID</dt><dd>`)
		h.int(p.ID)
		h.raw("</dd>")
		if p.Slug != "" {
			h.raw("<dt>Slug</dt><dd>")
			h.text(p.Slug)
			h.raw("</dd>")
		}
		h.raw("<dt>Price</dt><dd>")
		h.text(p.Price.String())
		h.raw("</dd><dt>Category</dt><dd>")
		if p.Category != nil {
			h.text(CategoryLabel(*p.Category))
		}
		h.raw("</dd><dt>Description</dt><dd>")
		h.text(p.Description)
		h.raw("</dd></dl>")

		if len(p.Images) > 0 {
			h.raw(`<div class="gallery">`)
			for _, img := range p.Images {
				h.raw(`<img loading="lazy"`)
				h.url("src", img)
				h.attr("alt", p.Title)
				h.raw(">")
			}
			h.raw("</div>")
		}

		h.raw(`<div class="actions">`)
		postButton(h, "/products/detail/edit", "Edit", "primary", false)
		postButton(h, "/products/detail/close", "Close", "secondary", false)
		h.raw("</div></div>")
	})
}
