package templates

import (
	"strconv"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/catalogconsole/internal/core"
)

type formField struct {
	name  string
	label string
	value string
	kind  string // text, number, textarea, category
}

// ProductForm renders the edit or create form of flow.
func ProductForm(flow core.Flow, ev core.EditorView, categories []core.Category) templ.Component {
	return component(func(h *html) {
		action, cancel, heading, submit := "/products/detail/save", "/products/detail/cancel", "Edit product", "Save"
		if flow == core.FlowCreate {
			action, cancel, heading, submit = "/products/create", "/products/new/cancel", "New product", "Create"
		}
		if flow == core.FlowEdit && ev.TargetID > 0 {
			heading += " #" + strconv.Itoa(ev.TargetID)
		}
		submitting := ev.State == core.Submitting

		h.raw(`<div class="panel form-panel"><h2>`)
		h.text(heading)
		h.raw(`</h2><form method="post" class="product-form"`)
		h.attr("action", action)
		h.attr("data-flow", string(flow))
		h.raw(`><fieldset`)
		h.flag("disabled", submitting)
		h.raw(">")

		fields := []formField{
			{core.FieldTitle, "Title", ev.Form.Title, "text"},
			{core.FieldPrice, "Price", ev.Form.Price, "number"},
			{core.FieldDescription, "Description", ev.Form.Description, "textarea"},
			{core.FieldCategoryID, "Category", ev.Form.CategoryID, "category"},
			{core.FieldImages, "Image URLs (one per line)", ev.Form.Images, "textarea"},
		}
		for _, f := range fields {
			id := string(flow) + "-" + f.name
			invalid := ev.FieldError != nil && ev.FieldError.Field == f.name

			h.raw(`<div class="field`)
			if invalid {
				h.raw(" invalid")
			}
			h.raw(`"><label`)
			h.attr("for", id)
			h.raw(">")
			h.text(f.label)
			h.raw("</label>")

			switch f.kind {
			case "textarea":
				h.raw(`<textarea rows="3"`)
				h.attr("id", id)
				h.attr("name", f.name)
				h.raw(">")
				h.text(f.value)
				h.raw("</textarea>")
			case "category":
				categorySelect(h, id, f.name, f.value, categories)
			case "number":
				h.raw(`<input type="number" step="any" min="0"`)
				h.attr("id", id)
				h.attr("name", f.name)
				h.attr("value", f.value)
				h.raw(">")
			default:
				h.raw(`<input type="text"`)
				h.attr("id", id)
				h.attr("name", f.name)
				h.attr("value", f.value)
				h.raw(">")
			}

			if invalid {
				h.raw(`<p class="field-error">`)
				h.text(ev.FieldError.Message)
				h.raw("</p>")
			}
			h.raw("</div>")
		}

		if ev.SubmitError != nil && ev.FieldError == nil {
			h.raw(`<p class="form-error">`)
			h.text(core.MapError(ev.SubmitError).Message)
			h.raw("</p>")
		}

		h.raw(`<div class="actions"><button type="submit" class="primary">`)
		if submitting {
			h.text("Saving...")
		} else {
			h.text(submit)
		}
		h.raw("</button></div></fieldset></form>")
		h.raw(`<div class="actions">`)
		postButton(h, cancel, "Cancel", "secondary", submitting)
		h.raw("</div></div>")
	})
}

// categorySelect renders the category picker. The current value is kept
// selectable even when it is not a known category.
func categorySelect(h *html, id, name, value string, categories []core.Category) {
	if len(categories) == 0 {
		categories = fallbackCategories
	}

	h.raw("<select")
	h.attr("id", id)
	h.attr("name", name)
	h.raw(">")

	known := false
	for _, c := range categories {
		v := strconv.Itoa(c.ID)
		if v == value {
			known = true
		}
		h.raw("<option")
		h.attr("value", v)
		h.flag("selected", v == value)
		h.raw(">")
		h.text(CategoryLabel(c))
		h.raw("</option>")
	}
	if !known && value != "" {
		h.raw("<option selected")
		h.attr("value", value)
		h.raw(">")
		h.text("#" + value)
		h.raw("</option>")
	}
	h.raw("</select>")
}
