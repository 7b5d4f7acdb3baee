package api

import (
	"net/url"
	"strconv"

	"github.com/Kellerman81/go_admissions_admin/pkg/main/datatable"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/dispatcher"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/entities"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/notify"
	"github.com/goccy/go-json"
	"maragu.dev/gomponents"
	hx "maragu.dev/gomponents-htmx"
	"maragu.dev/gomponents/html"
)

const listContainerID = "list-container"

type tableData[T datatable.Record] struct {
	name     string
	label    string
	singular string
	columns  datatable.Columns[T]
	view     datatable.View[T]
	// pending reports the ids whose delete is in flight
	pending  func(id string) bool

	dialog      dispatcher.DeleteState
	dialogID    string
	dialogTitle string

	canExport bool
	canAdd    bool
}

func (d *tableData[T]) base() string {
	return "/admin/" + d.name
}

// tableURL returns the fragment url with the given query.
func (d *tableData[T]) tableURL(kv ...string) string {
	q := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		q.Set(kv[i], kv[i+1])
	}
	if len(q) == 0 {
		return d.base() + "/table"
	}
	return d.base() + "/table?" + q.Encode()
}

// swapList replaces the list container with the response.
func swapList() gomponents.Node {
	return gomponents.Group{
		hx.Target("#" + listContainerID),
		hx.Swap("outerHTML"),
	}
}

func vals(v map[string]string) gomponents.Node {
	b, _ := json.Marshal(v)
	return hx.Vals(string(b))
}

// renderTable renders the complete list: toolbar, filters, table,
// pagination and the delete confirmation.
func renderTable[T datatable.Record](d tableData[T]) gomponents.Node {
	v := d.view
	return html.Div(
		html.ID(listContainerID),
		html.Class("card shadow-sm"),
		html.Div(
			html.Class("card-header d-flex flex-wrap gap-2 align-items-center"),
			html.H2(html.Class("h5 mb-0 me-auto"), gomponents.Text(d.label),
				html.Span(html.Class("badge bg-secondary ms-2"), gomponents.Textf("%d", v.Page.TotalItems))),
			renderSearch(&d),
			renderPerPage(&d),
			renderBulkActions(&d),
		),
		html.Div(
			html.Class("card-body p-0"),
			html.Div(
				html.Class("table-responsive"),
				html.Table(
					html.Class("table table-hover table-sm align-middle mb-0"),
					html.THead(
						renderHeader(&d),
						renderFilterRow(&d),
					),
					html.TBody(renderRows(&d)),
				),
			),
		),
		html.Div(
			html.Class("card-footer d-flex justify-content-between align-items-center"),
			html.Small(html.Class("text-muted"), gomponents.Text(pageSummary(v))),
			renderPagination(&d),
		),
		renderDeleteModal(&d),
	)
}

func pageSummary[T datatable.Record](v datatable.View[T]) string {
	if v.Page.TotalItems == 0 {
		return "Aucun résultat."
	}
	s := strconv.Itoa(v.Page.StartIndex+1) + "-" + strconv.Itoa(v.Page.EndIndex) +
		" sur " + strconv.Itoa(v.Page.TotalItems)
	if v.SelectedCount > 0 {
		s += " · " + strconv.Itoa(v.SelectedCount) + " sélectionné(s)"
	}
	return s
}

func renderSearch[T datatable.Record](d *tableData[T]) gomponents.Node {
	return html.Input(
		html.Type("search"),
		html.Name("search"),
		html.Class("form-control form-control-sm w-auto"),
		html.Placeholder("Rechercher..."),
		html.Value(d.view.State.Search),
		hx.Get(d.base()+"/table"),
		hx.Trigger("input changed delay:300ms, search"),
		swapList(),
	)
}

func renderPerPage[T datatable.Record](d *tableData[T]) gomponents.Node {
	opts := d.view.PerPageOpts
	if len(opts) == 0 {
		opts = []int{d.view.State.ItemsPerPage}
	}
	return html.Select(
		html.Name("per_page"),
		html.Class("form-select form-select-sm w-auto"),
		hx.Get(d.base()+"/table"),
		swapList(),
		gomponents.Map(opts, func(n int) gomponents.Node {
			return html.Option(
				html.Value(strconv.Itoa(n)),
				gomponents.If(n == d.view.State.ItemsPerPage, html.Selected()),
				gomponents.Textf("%d / page", n),
			)
		}),
	)
}

func renderBulkActions[T datatable.Record](d *tableData[T]) gomponents.Node {
	selected := d.view.SelectedCount
	exportLink := func(format, label string) gomponents.Node {
		q := url.Values{"format": {format}}
		if selected > 0 {
			q.Set("selected", "1")
		}
		return html.Li(html.A(html.Class("dropdown-item"), html.Href(d.base()+"/export?"+q.Encode()), gomponents.Text(label)))
	}
	return gomponents.Group{
		html.Button(
			html.Type("button"),
			html.Class("btn btn-sm btn-outline-danger"),
			gomponents.If(selected == 0, html.Disabled()),
			hx.Post(d.base()+"/bulk-delete"),
			hx.Confirm("Supprimer les "+strconv.Itoa(selected)+" élément(s) sélectionné(s) ?"),
			swapList(),
			gomponents.Textf("Supprimer la sélection (%d)", selected),
		),
		gomponents.If(selected > 0, html.Button(
			html.Type("button"),
			html.Class("btn btn-sm btn-outline-secondary"),
			hx.Post(d.base()+"/select-clear"),
			swapList(),
			gomponents.Text("Désélectionner"),
		)),
		gomponents.If(d.canExport, html.Div(
			html.Class("dropdown"),
			html.Button(
				html.Type("button"),
				html.Class("btn btn-sm btn-outline-primary dropdown-toggle"),
				gomponents.Attr("data-bs-toggle", "dropdown"),
				gomponents.Text("Exporter"),
			),
			html.Ul(
				html.Class("dropdown-menu dropdown-menu-end"),
				exportLink("csv", "CSV"),
				exportLink("xlsx", "Excel"),
				exportLink("json", "JSON"),
			),
		)),
		html.Button(
			html.Type("button"),
			html.Class("btn btn-sm btn-outline-secondary"),
			hx.Get(d.tableURL("clear", "1")),
			swapList(),
			gomponents.Text("Réinitialiser"),
		),
		gomponents.If(d.canAdd, html.A(
			html.Class("btn btn-sm btn-primary"),
			html.Href(d.base()+"/add"),
			gomponents.Text("Ajouter"),
		)),
	}
}

func renderHeader[T datatable.Record](d *tableData[T]) gomponents.Node {
	v := d.view
	return html.Tr(
		html.Th(
			gomponents.Attr("style", "width: 36px"),
			html.Input(
				html.Type("checkbox"),
				html.Class("form-check-input"),
				gomponents.Attr("aria-label", "Tout sélectionner"),
				gomponents.If(v.AllSelected, html.Checked()),
				gomponents.If(v.Indeterminate, gomponents.Attr("data-indeterminate", "true")),
				gomponents.If(len(v.PageIDs) == 0, html.Disabled()),
				hx.Post(d.base()+"/select-all"),
				vals(map[string]string{"checked": strconv.FormatBool(!v.AllSelected)}),
				swapList(),
			),
		),
		gomponents.Map(d.columns, func(col datatable.Column[T]) gomponents.Node {
			attrs := gomponents.Group{
				gomponents.If(col.Width != "", gomponents.Attr("style", "width: "+col.Width)),
				gomponents.If(col.ClassName != "", html.Class(col.ClassName)),
			}
			if !col.Sortable {
				return html.Th(attrs, gomponents.Text(col.Label))
			}
			indicator := ""
			if v.State.Sort.Active() && v.State.Sort.Field == col.Key {
				switch v.State.Sort.Direction {
				case datatable.SortAsc:
					indicator = " ▲"
				case datatable.SortDesc:
					indicator = " ▼"
				}
			}
			return html.Th(attrs,
				html.A(
					html.Href("#"),
					html.Class("text-decoration-none text-reset"),
					hx.Get(d.tableURL("toggle", col.Key)),
					swapList(),
					gomponents.Text(col.Label+indicator),
				),
			)
		}),
		html.Th(html.Class("text-end"), gomponents.Text("Actions")),
	)
}

func renderFilterRow[T datatable.Record](d *tableData[T]) gomponents.Node {
	filterable := false
	for _, col := range d.columns {
		if col.Filterable {
			filterable = true
			break
		}
	}
	if !filterable {
		return nil
	}
	return html.Tr(
		html.Class("table-light"),
		html.Th(),
		gomponents.Map(d.columns, func(col datatable.Column[T]) gomponents.Node {
			if !col.Filterable {
				return html.Th()
			}
			return html.Th(html.Input(
				html.Type("text"),
				html.Name("filter-"+col.Key),
				html.Class("form-control form-control-sm"),
				html.Placeholder(col.Label),
				html.Value(d.view.State.Filters[col.Key]),
				hx.Get(d.base()+"/table"),
				hx.Trigger("input changed delay:300ms"),
				swapList(),
			))
		}),
		html.Th(),
	)
}

func renderRows[T datatable.Record](d *tableData[T]) gomponents.Node {
	items := d.view.Page.Items
	if len(items) == 0 {
		return html.Tr(html.Td(
			html.ColSpan(strconv.Itoa(len(d.columns)+2)),
			html.Class("text-center text-muted py-4"),
			gomponents.Text("Aucun résultat."),
		))
	}
	return gomponents.Map(items, func(rec T) gomponents.Node {
		id := rec.RecordID()
		checked := d.view.Selected[id]
		return html.Tr(
			gomponents.If(checked, html.Class("table-active")),
			html.Td(html.Input(
				html.Type("checkbox"),
				html.Class("form-check-input"),
				gomponents.If(checked, html.Checked()),
				hx.Post(d.base()+"/select"),
				vals(map[string]string{"id": id, "checked": strconv.FormatBool(!checked)}),
				swapList(),
			)),
			gomponents.Map(d.columns, func(col datatable.Column[T]) gomponents.Node {
				return html.Td(
					gomponents.If(col.ClassName != "", html.Class(col.ClassName)),
					gomponents.Text(col.Display(rec)),
				)
			}),
			html.Td(
				html.Class("text-end text-nowrap"),
				html.A(html.Class("btn btn-sm btn-link"), html.Href(d.base()+"/view/"+url.PathEscape(id)), gomponents.Text("Voir")),
				html.A(html.Class("btn btn-sm btn-link"), html.Href(d.base()+"/edit/"+url.PathEscape(id)), gomponents.Text("Modifier")),
				html.Button(
					html.Type("button"),
					html.Class("btn btn-sm btn-link text-danger"),
					gomponents.If(d.pending != nil && d.pending(id), html.Disabled()),
					hx.Post(d.base()+"/delete/request"),
					vals(map[string]string{"id": id}),
					swapList(),
					gomponents.Text("Supprimer"),
				),
			),
		)
	})
}

func renderPagination[T datatable.Record](d *tableData[T]) gomponents.Node {
	p := d.view.Page
	if p.TotalPages <= 1 {
		return nil
	}
	item := func(page int, label string, active, disabled bool) gomponents.Node {
		cls := "page-item"
		if active {
			cls += " active"
		}
		if disabled {
			cls += " disabled"
		}
		return html.Li(html.Class(cls), html.A(
			html.Class("page-link"),
			html.Href("#"),
			hx.Get(d.tableURL("page", strconv.Itoa(page))),
			swapList(),
			gomponents.Text(label),
		))
	}
	nodes := gomponents.Group{item(p.CurrentPage-1, "«", false, !p.HasPrev())}
	for _, page := range pageWindow(p.CurrentPage, p.TotalPages, 2) {
		if page == 0 {
			nodes = append(nodes, html.Li(html.Class("page-item disabled"), html.Span(html.Class("page-link"), gomponents.Text("…"))))
			continue
		}
		nodes = append(nodes, item(page, strconv.Itoa(page), page == p.CurrentPage, false))
	}
	nodes = append(nodes, item(p.CurrentPage+1, "»", false, !p.HasNext()))
	return html.Nav(html.Ul(html.Class("pagination pagination-sm mb-0"), nodes))
}

// pageWindow returns the page numbers around current with the first and
// last page always present. A 0 marks a gap.
func pageWindow(current, total, radius int) []int {
	out := make([]int, 0, 2*radius+5)
	last := 0
	for page := 1; page <= total; page++ {
		if page != 1 && page != total && (page < current-radius || page > current+radius) {
			continue
		}
		if last != 0 && page > last+1 {
			out = append(out, 0)
		}
		out = append(out, page)
		last = page
	}
	return out
}

func renderDeleteModal[T datatable.Record](d *tableData[T]) gomponents.Node {
	if d.dialog == dispatcher.DeleteClosed {
		return nil
	}
	deleting := d.dialog == dispatcher.DeleteDeleting
	title := d.dialogTitle
	if title == "" {
		title = d.dialogID
	}
	return gomponents.Group{
		html.Div(
			html.Class("modal d-block"),
			html.Role("dialog"),
			gomponents.Attr("tabindex", "-1"),
			html.Div(html.Class("modal-dialog modal-dialog-centered"), html.Div(
				html.Class("modal-content"),
				html.Div(html.Class("modal-header"),
					html.H5(html.Class("modal-title"), gomponents.Text("Confirmer la suppression"))),
				html.Div(html.Class("modal-body"),
					html.P(gomponents.Text("Supprimer le "+d.singular+" « "+title+" » ? Cette action est irréversible."))),
				html.Div(html.Class("modal-footer"),
					html.Button(
						html.Type("button"),
						html.Class("btn btn-secondary"),
						gomponents.If(deleting, html.Disabled()),
						hx.Post(d.base()+"/delete/cancel"),
						swapList(),
						gomponents.Text("Annuler"),
					),
					html.Button(
						html.Type("button"),
						html.Class("btn btn-danger"),
						gomponents.If(deleting, html.Disabled()),
						hx.Post(d.base()+"/delete/confirm"),
						swapList(),
						gomponents.If(deleting, html.Span(html.Class("spinner-border spinner-border-sm me-1"))),
						gomponents.Text("Supprimer"),
					),
				),
			)),
		),
		html.Div(html.Class("modal-backdrop show")),
	}
}

// renderToasts renders the toast container. Inside an htmx response it
// is swapped out of band.
func renderToasts(toasts []notify.Toast, oob bool) gomponents.Node {
	return html.Div(
		html.ID("toasts"),
		html.Class("toast-container position-fixed top-0 end-0 p-3"),
		gomponents.If(oob, hx.SwapOOB("true")),
		gomponents.Map(toasts, func(t notify.Toast) gomponents.Node {
			return html.Div(
				html.Class("toast show text-bg-"+toastClass(t.Level)),
				html.Role("alert"),
				gomponents.Attr("data-autohide", "true"),
				html.Div(html.Class("toast-header"),
					html.Strong(html.Class("me-auto"), gomponents.Text(t.Title)),
					html.Small(gomponents.Text(t.CreatedAt.Format("15:04:05"))),
					html.Button(html.Type("button"), html.Class("btn-close"), gomponents.Attr("data-bs-dismiss", "toast")),
				),
				html.Div(html.Class("toast-body"), gomponents.Text(t.Message)),
			)
		}),
	)
}

func toastClass(l notify.Level) string {
	switch l {
	case notify.LevelSuccess:
		return "success"
	case notify.LevelWarning:
		return "warning"
	case notify.LevelError:
		return "danger"
	}
	return "info"
}

func renderDetail[T datatable.Record](title string, cols datatable.Columns[T], rec T) gomponents.Node {
	return html.Div(
		html.Class("card shadow-sm"),
		html.Div(html.Class("card-header"), html.H2(html.Class("h5 mb-0"), gomponents.Text(title))),
		html.Div(html.Class("card-body"), html.Dl(
			html.Class("row mb-0"),
			gomponents.Map(cols, func(col datatable.Column[T]) gomponents.Node {
				return gomponents.Group{
					html.Dt(html.Class("col-sm-3"), gomponents.Text(col.Label)),
					html.Dd(html.Class("col-sm-9"), gomponents.Text(col.Display(rec))),
				}
			}),
		)),
	)
}

// formField is one input of an add or edit form.
type formField struct {
	Name    string
	Label   string
	Value   string
	Type    string
	Step    string
	Options []entities.Option
	Error   string
}

var fieldLabels = map[string]string{
	"description": "Description",
	"address":     "Adresse",
}

// formFieldsFor builds the inputs of def from its storage fields, filled
// from rec when fill is set.
func formFieldsFor[T datatable.Record](def *entities.Definition[T], rec T, fill bool) []formField {
	fields := make([]formField, 0, len(def.Fields))
	for _, name := range def.Fields {
		f := formField{Name: name, Label: fieldLabels[name], Type: "text"}
		col := def.Columns.Find(name)
		if col != nil {
			f.Label = col.Label
			if col.Numeric {
				f.Type = "number"
				f.Step = "1"
			}
		}
		switch name {
		case "email":
			f.Type = "email"
		case "price":
			f.Step = "0.01"
		case "description":
			f.Type = "textarea"
		case "role":
			f.Type = "select"
			f.Options = entities.Roles
		}
		if f.Label == "" {
			f.Label = name
		}
		if fill {
			f.Value = datatable.ToString(datatable.FieldValue(rec, name))
		}
		fields = append(fields, f)
	}
	return fields
}

func renderForm(entity, singular, csrf string, fields []formField, create bool, id string) gomponents.Node {
	action := "/admin/" + entity + "/update"
	title := "Modifier le " + singular
	if create {
		action = "/admin/" + entity + "/add"
		title = "Ajouter un " + singular
	}
	return html.Div(
		html.Class("card shadow-sm"),
		html.Div(html.Class("card-header"), html.H2(html.Class("h5 mb-0"), gomponents.Text(title))),
		html.Div(html.Class("card-body"), html.Form(
			html.Method("post"),
			html.Action(action),
			html.Input(html.Type("hidden"), html.Name("csrf_token"), html.Value(csrf)),
			gomponents.If(!create, html.Input(html.Type("hidden"), html.Name("id"), html.Value(id))),
			gomponents.Map(fields, renderField),
			html.Div(html.Class("d-flex gap-2"),
				html.Button(html.Type("submit"), html.Class("btn btn-primary"), gomponents.Text("Enregistrer")),
				html.A(html.Class("btn btn-outline-secondary"), html.Href("/admin/"+entity), gomponents.Text("Annuler")),
			),
		)),
	)
}

// withFieldErrors marks the fields rejected by a validation error.
func withFieldErrors(fields []formField, err error) []formField {
	for _, fe := range entities.FieldErrors(err) {
		for idx := range fields {
			if fields[idx].Name == fe.Field {
				fields[idx].Error = fe.Message
			}
		}
	}
	return fields
}

func renderField(f formField) gomponents.Node {
	inputID := "field-" + f.Name
	class := func(base string) gomponents.Node {
		if f.Error != "" {
			base += " is-invalid"
		}
		return html.Class(base)
	}
	var input gomponents.Node
	switch f.Type {
	case "select":
		input = html.Select(
			html.ID(inputID), html.Name(f.Name), class("form-select"),
			html.Option(html.Value(entities.PlaceholderValue), gomponents.If(f.Value == "" || entities.IsPlaceholder(f.Value), html.Selected()),
				gomponents.Text("-- Choisir --")),
			gomponents.Map(f.Options, func(o entities.Option) gomponents.Node {
				return html.Option(html.Value(o.Value), gomponents.If(o.Value == f.Value, html.Selected()), gomponents.Text(o.Label))
			}),
		)
	case "textarea":
		input = html.Textarea(html.ID(inputID), html.Name(f.Name), class("form-control"), html.Rows("3"),
			gomponents.Text(f.Value))
	default:
		input = html.Input(
			html.ID(inputID), html.Name(f.Name), html.Type(f.Type), class("form-control"),
			html.Value(f.Value),
			gomponents.If(f.Step != "", gomponents.Attr("step", f.Step)),
			gomponents.If(f.Type == "number", gomponents.Attr("min", "0")),
		)
	}
	return html.Div(html.Class("mb-3"),
		html.Label(html.For(inputID), html.Class("form-label"), gomponents.Text(f.Label)),
		input,
		gomponents.If(f.Error != "", html.Div(html.Class("invalid-feedback"), gomponents.Text(f.Error))),
	)
}
