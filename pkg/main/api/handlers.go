package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/Kellerman81/go_admissions_admin/pkg/main/apperrors"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/backend"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/config"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/database"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/datatable"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/dispatcher"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/entities"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/export"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/notify"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/worker"
	"github.com/gin-gonic/gin"
	"maragu.dev/gomponents"
	"maragu.dev/gomponents/html"
)

// listFactory builds the list of one entity for one session.
type listFactory func(a *App, sess *Session, cfg config.EntityConfig) (entityList, error)

var registry = map[string]listFactory{
	entities.Users.Name:       factoryFor(&entities.Users),
	entities.Sites.Name:       factoryFor(&entities.Sites),
	entities.Filieres.Name:    factoryFor(&entities.Filieres),
	entities.CourseTypes.Name: factoryFor(&entities.CourseTypes),
}

// factoryFor picks the repository from the data source: the local database
// or the REST backend with the session token.
func factoryFor[T datatable.Record](def *entities.Definition[T]) listFactory {
	return func(a *App, sess *Session, cfg config.EntityConfig) (entityList, error) {
		var (
			repo   entities.Repository[T]
			canAdd = true
		)
		if a.useSQLite() {
			if a.db == nil {
				return nil, apperrors.New(apperrors.ErrClassConfig, def.Name, "La base de données n'est pas ouverte.")
			}
			repo = database.NewTable(a.db, def)
		} else {
			if a.client == nil || sess.Backend == nil {
				return nil, apperrors.New(apperrors.ErrClassConfig, def.Name, "Le backend n'est pas configuré.")
			}
			repo = backend.NewResource[T](a.client, sess.Backend, cfg)
			canAdd = cfg.AddEndpoint != ""
		}

		var perPage []int
		if general := config.GetSettingsGeneral(); general != nil {
			perPage = general.PerPageOptions
		}
		return newList(def, cfg, repo, a.notifierFor(sess), worker.BulkPool(), perPage, canAdd), nil
	}
}

// listFor resolves the :entity parameter to the list of the session and
// loads it on first use. A failed load is reported as a toast and the empty
// list is still rendered.
func (a *App) listFor(c *gin.Context) (entityList, *Session, bool) {
	sess := sessionFrom(c)
	name := c.Param("entity")
	factory, ok := registry[name]
	cfg := config.GetSettingsEntity(name)
	if sess == nil || !ok || cfg == nil {
		a.notFound(c, sess)
		return nil, nil, false
	}

	l, err := sess.list(name, func() (entityList, error) {
		return factory(a, sess, *cfg)
	})
	if err != nil {
		_ = sess.Toasts.Notify(c, notify.FromError("Configuration", err))
		if c.Request.Method == http.MethodGet && c.FullPath() == "/admin/:entity" {
			renderHTML(c, statusFor(err), page(name, sess, name))
		} else {
			sendError(c, err)
		}
		return nil, nil, false
	}
	if !l.Loaded() {
		_ = l.Load(c.Request.Context())
	}
	return l, sess, true
}

func (a *App) notFound(c *gin.Context, sess *Session) {
	if isHTMX(c) || sess == nil {
		sendNotFound(c, "Unknown entity")
		return
	}
	renderHTML(c, http.StatusNotFound, page("Introuvable", sess, "",
		html.Div(html.Class("alert alert-warning"), gomponents.Text("Cette page n'existe pas."))))
}

// respond answers an action: the refreshed list fragment for htmx, a
// redirect to the list page otherwise.
func respond(c *gin.Context, l entityList, sess *Session) {
	if !isHTMX(c) {
		c.Redirect(http.StatusSeeOther, "/admin/"+l.Name())
		return
	}
	renderHTML(c, http.StatusOK, renderToasts(sess.Toasts.Drain(), true), l.Table())
}

// toastActionError reports state errors the dispatcher does not toast.
func toastActionError(ctx context.Context, sess *Session, err error) {
	switch {
	case err == nil:
		return
	case errors.Is(err, dispatcher.ErrDeleteInFlight):
		_ = sess.Toasts.Notify(ctx, notify.New(notify.LevelWarning, "Suppression", "Une suppression est déjà en cours pour cet élément."))
	case errors.Is(err, dispatcher.ErrInvalidTransition):
		_ = sess.Toasts.Notify(ctx, notify.New(notify.LevelWarning, "Suppression", "Action impossible dans l'état actuel."))
	case apperrors.IsClass(err, apperrors.ErrClassValidation) && apperrors.GetOperation(err) == "delete":
		_ = sess.Toasts.Notify(ctx, notify.FromError("Suppression", err))
	}
}

// applyQuery maps the query string onto the list and toasts rejected
// parameters.
func applyQuery(c *gin.Context, l entityList, sess *Session) {
	if err := l.Apply(c.Request.URL.Query()); err != nil {
		_ = sess.Toasts.Notify(c, notify.FromError("Liste", err))
	}
}

func (a *App) listPage(c *gin.Context) {
	l, sess, ok := a.listFor(c)
	if !ok {
		return
	}
	applyQuery(c, l, sess)
	renderHTML(c, http.StatusOK, page(l.Label(), sess, l.Name(), l.Table()))
}

func (a *App) tableFragment(c *gin.Context) {
	l, sess, ok := a.listFor(c)
	if !ok {
		return
	}
	applyQuery(c, l, sess)
	renderHTML(c, http.StatusOK, renderToasts(sess.Toasts.Drain(), true), l.Table())
}

func (a *App) handleRefresh(c *gin.Context) {
	l, sess, ok := a.listFor(c)
	if !ok {
		return
	}
	_ = l.Load(c.Request.Context())
	respond(c, l, sess)
}

func (a *App) handleSelect(c *gin.Context) {
	l, sess, ok := a.listFor(c)
	if !ok {
		return
	}
	id := c.PostForm("id")
	if id == "" {
		sendBadRequest(c, "Invalid or missing id")
		return
	}
	l.Select(id, formBool(c, "checked"))
	respond(c, l, sess)
}

func (a *App) handleSelectAll(c *gin.Context) {
	l, sess, ok := a.listFor(c)
	if !ok {
		return
	}
	l.SelectAll(formBool(c, "checked"))
	respond(c, l, sess)
}

func (a *App) handleSelectClear(c *gin.Context) {
	l, sess, ok := a.listFor(c)
	if !ok {
		return
	}
	l.ClearSelection()
	respond(c, l, sess)
}

func (a *App) handleDeleteRequest(c *gin.Context) {
	l, sess, ok := a.listFor(c)
	if !ok {
		return
	}
	toastActionError(c, sess, l.RequestDelete(c.PostForm("id")))
	respond(c, l, sess)
}

func (a *App) handleDeleteCancel(c *gin.Context) {
	l, sess, ok := a.listFor(c)
	if !ok {
		return
	}
	toastActionError(c, sess, l.CancelDelete())
	respond(c, l, sess)
}

func (a *App) handleDeleteConfirm(c *gin.Context) {
	l, sess, ok := a.listFor(c)
	if !ok {
		return
	}
	toastActionError(c, sess, l.ConfirmDelete(c.Request.Context()))
	respond(c, l, sess)
}

func (a *App) handleBulkDelete(c *gin.Context) {
	l, sess, ok := a.listFor(c)
	if !ok {
		return
	}
	_, _ = l.BulkDelete(c.Request.Context())
	respond(c, l, sess)
}

// handleExport streams the export as an attachment. Failures are toasted
// and the browser is sent back to the list.
func (a *App) handleExport(c *gin.Context) {
	l, sess, ok := a.listFor(c)
	if !ok {
		return
	}
	format, err := export.ParseFormat(c.DefaultQuery("format", string(export.CSV)))
	if err != nil {
		_ = sess.Toasts.Notify(c, notify.FromError("Export", err))
		c.Redirect(http.StatusSeeOther, "/admin/"+l.Name())
		return
	}
	data, filename, err := l.Export(c.Request.Context(), format, formBoolQuery(c, "selected"))
	if err != nil {
		c.Redirect(http.StatusSeeOther, "/admin/"+l.Name())
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, format.ContentType(), data)
}

func (a *App) viewPage(c *gin.Context) {
	l, sess, ok := a.listFor(c)
	if !ok {
		return
	}
	node, err := l.Detail(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Redirect(http.StatusSeeOther, "/admin/"+l.Name())
		return
	}
	renderHTML(c, http.StatusOK, page(l.Label(), sess, l.Name(), backLink(l), node))
}

func (a *App) editPage(c *gin.Context) {
	l, sess, ok := a.listFor(c)
	if !ok {
		return
	}
	node, err := l.EditForm(c.Request.Context(), c.Param("id"), sess.CSRFToken)
	if err != nil {
		c.Redirect(http.StatusSeeOther, "/admin/"+l.Name())
		return
	}
	renderHTML(c, http.StatusOK, page(l.Label(), sess, l.Name(), backLink(l), node))
}

func (a *App) addPage(c *gin.Context) {
	l, sess, ok := a.listFor(c)
	if !ok {
		return
	}
	renderHTML(c, http.StatusOK, page(l.Label(), sess, l.Name(), backLink(l), l.AddForm(sess.CSRFToken)))
}

// handleSave stores a posted add or edit form. An invalid form is rendered
// again with its values and the error toast.
func (a *App) handleSave(create bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		l, sess, ok := a.listFor(c)
		if !ok {
			return
		}
		form, err := l.Save(c.Request.Context(), c, create, sess.CSRFToken)
		if err != nil {
			renderHTML(c, statusFor(err), page(l.Label(), sess, l.Name(), backLink(l), form))
			return
		}
		c.Redirect(http.StatusSeeOther, "/admin/"+l.Name())
	}
}

func backLink(l entityList) gomponents.Node {
	return html.A(html.Class("btn btn-link px-0 mb-3"), html.Href("/admin/"+l.Name()),
		gomponents.Text("← "+l.Label()))
}

func formBool(c *gin.Context, key string) bool {
	b, _ := strconv.ParseBool(c.PostForm(key))
	return b
}

func formBoolQuery(c *gin.Context, key string) bool {
	b, _ := strconv.ParseBool(c.Query(key))
	return b
}
