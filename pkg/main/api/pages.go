package api

import (
	"net/http"
	"strconv"

	"github.com/Kellerman81/go_admissions_admin/pkg/main/config"
	"github.com/gin-gonic/gin"
	"maragu.dev/gomponents"
	hx "maragu.dev/gomponents-htmx"
	"maragu.dev/gomponents/html"
)

const (
	bootstrapCSS = "https://cdn.jsdelivr.net/npm/bootstrap@5.3.3/dist/css/bootstrap.min.css"
	bootstrapJS  = "https://cdn.jsdelivr.net/npm/bootstrap@5.3.3/dist/js/bootstrap.bundle.min.js"
	htmxJS       = "https://unpkg.com/htmx.org@2.0.4"
)

// navEntity is one sidebar entry.
type navEntity struct {
	Name  string
	Label string
}

// navEntities returns the configured entities that have a list.
func navEntities() []navEntity {
	var out []navEntity
	for _, e := range config.GetSettingsEntityAll() {
		if _, ok := registry[e.Name]; !ok {
			continue
		}
		label := e.Label
		if label == "" {
			label = e.Name
		}
		out = append(out, navEntity{Name: e.Name, Label: label})
	}
	return out
}

// page renders the full document around body.
func page(title string, sess *Session, active string, body ...gomponents.Node) gomponents.Node {
	var user, csrf string
	var toasts gomponents.Node
	if sess != nil {
		user = sess.UserID
		csrf = sess.CSRFToken
		toasts = renderToasts(sess.Toasts.Drain(), false)
	}
	return html.Doctype(
		html.HTML(
			html.Lang("fr"),
			html.Head(
				html.Meta(html.Charset("utf-8")),
				html.Meta(html.Name("viewport"), html.Content("width=device-width, initial-scale=1")),
				html.TitleEl(gomponents.Text(title+" - Admissions")),
				html.Link(html.Href(bootstrapCSS), html.Rel("stylesheet")),
				html.Script(html.Src(htmxJS)),
			),
			html.Body(
				html.Class("bg-light"),
				hx.Headers(`{"X-CSRF-Token": "`+csrf+`"}`),
				html.Nav(
					html.Class("navbar navbar-expand navbar-dark bg-primary"),
					html.Div(
						html.Class("container-fluid"),
						html.A(html.Class("navbar-brand"), html.Href("/admin"), gomponents.Text("Admissions")),
						html.Ul(
							html.Class("navbar-nav me-auto"),
							gomponents.Map(navEntities(), func(e navEntity) gomponents.Node {
								cls := "nav-link"
								if e.Name == active {
									cls += " active"
								}
								return html.Li(html.Class("nav-item"),
									html.A(html.Class(cls), html.Href("/admin/"+e.Name), gomponents.Text(e.Label)))
							}),
						),
						gomponents.If(user != "", html.Span(html.Class("navbar-text me-3"), gomponents.Text(user))),
						html.A(html.Class("btn btn-sm btn-outline-light"), html.Href("/logout"), gomponents.Text("Déconnexion")),
					),
				),
				html.Main(html.Class("container-fluid py-4"), gomponents.Group(body)),
				toasts,
				html.Script(html.Src(bootstrapJS)),
				html.Script(gomponents.Raw(pageScript)),
			),
		),
	)
}

// pageScript restores the indeterminate state of the select-all checkbox
// after every swap and fades out toasts.
const pageScript = `
	function syncList() {
		document.querySelectorAll('[data-indeterminate]').forEach(function (el) { el.indeterminate = true; });
		document.querySelectorAll('.toast[data-autohide]').forEach(function (el) {
			setTimeout(function () { el.classList.remove('show'); }, 5000);
		});
	}
	document.addEventListener('DOMContentLoaded', syncList);
	document.body.addEventListener('htmx:afterSettle', syncList);
`

func (a *App) dashboardPage(c *gin.Context) {
	sess := sessionFrom(c)
	cards := make(gomponents.Group, 0, len(registry))
	for _, e := range navEntities() {
		count := "-"
		if l, ok := sess.cached(e.Name); ok && l.Loaded() {
			count = strconv.Itoa(l.Count())
		}
		cards = append(cards, html.Div(
			html.Class("col-sm-6 col-lg-3"),
			html.A(
				html.Class("card text-decoration-none shadow-sm h-100"),
				html.Href("/admin/"+e.Name),
				html.Div(html.Class("card-body"),
					html.H2(html.Class("h6 text-muted"), gomponents.Text(e.Label)),
					html.P(html.Class("display-6 mb-0"), gomponents.Text(count)),
				),
			),
		))
	}
	renderHTML(c, http.StatusOK, page("Tableau de bord", sess, "",
		html.H1(html.Class("h3 mb-4"), gomponents.Text("Tableau de bord")),
		html.Div(html.Class("row g-3"), cards),
	))
}
