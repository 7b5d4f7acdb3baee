package api

import (
	"bytes"
	"context"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Kellerman81/go_admissions_admin/pkg/main/apperrors"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/config"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/datatable"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/dispatcher"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/entities"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/export"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/notify"
	"github.com/alitto/pond/v2"
	"github.com/gin-gonic/gin"
	"maragu.dev/gomponents"
)

// entityList is the type erased list of one entity for one session.
type entityList interface {
	Name() string
	Label() string
	Singular() string
	Loaded() bool
	Load(ctx context.Context) error
	Apply(q url.Values) error
	Count() int

	Table() gomponents.Node

	Select(id string, checked bool)
	SelectAll(checked bool)
	ClearSelection()

	RequestDelete(id string) error
	CancelDelete() error
	ConfirmDelete(ctx context.Context) error
	BulkDelete(ctx context.Context) (dispatcher.BulkResult, error)
	Export(ctx context.Context, format export.Format, selectedOnly bool) ([]byte, string, error)

	Detail(ctx context.Context, id string) (gomponents.Node, error)
	EditForm(ctx context.Context, id, csrf string) (gomponents.Node, error)
	AddForm(csrf string) gomponents.Node
	Save(ctx context.Context, c *gin.Context, create bool, csrf string) (gomponents.Node, error)

	Grid(ctx context.Context, req gridRequest) (gridResponse, error)
}

// list binds a Definition to a repository, a list controller and a
// dispatcher.
type list[T datatable.Record] struct {
	def      *entities.Definition[T]
	cfg      config.EntityConfig
	repo     entities.Repository[T]
	ctrl     *datatable.Controller[T]
	disp     *dispatcher.Dispatcher[T]
	notifier notify.Notifier
	canAdd   bool

	// mu serializes the actions whose callbacks hand data back through
	// the scratch fields below.
	mu        sync.Mutex
	loaded    bool
	exportBuf bytes.Buffer
	current   T
}

func newList[T datatable.Record](
	def *entities.Definition[T],
	cfg config.EntityConfig,
	repo entities.Repository[T],
	notifier notify.Notifier,
	pool pond.Pool,
	perPageOptions []int,
	canAdd bool,
) *list[T] {
	opts := []datatable.Option{
		datatable.WithItemsPerPage(cfg.ItemsPerPage),
		datatable.WithPerPageOptions(perPageOptions),
	}
	if field, dir := parseDefaultSort(cfg.DefaultSort); field != "" {
		opts = append(opts, datatable.WithSort(field, dir))
	}
	l := &list[T]{
		def:      def,
		cfg:      cfg,
		repo:     repo,
		ctrl:     datatable.NewController(def.Columns, opts...),
		notifier: notifier,
		canAdd:   canAdd,
	}
	l.disp = dispatcher.New(l.ctrl, dispatcher.Callbacks[T]{
		OnView: func(_ context.Context, rec T) error {
			l.current = rec
			return nil
		},
		OnEdit: func(_ context.Context, rec T) error {
			l.current = rec
			return nil
		},
		OnDelete: repo.Delete,
		OnExport: func(_ context.Context, format export.Format, records []T) error {
			l.exportBuf.Reset()
			return export.Write(&l.exportBuf, format, export.Config{BOM: true},
				export.FromColumns(l.Label(), def.Columns, records))
		},
		Refresh: repo.List,
	}, notifier, pool, def.Singular)
	return l
}

// parseDefaultSort reads "field", "field:desc" or "-field".
func parseDefaultSort(s string) (string, datatable.Direction) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", datatable.SortNone
	}
	if strings.HasPrefix(s, "-") {
		return s[1:], datatable.SortDesc
	}
	field, dir, found := strings.Cut(s, ":")
	if !found {
		return field, datatable.SortAsc
	}
	if d := datatable.ParseDirection(dir); d != datatable.SortNone {
		return field, d
	}
	return field, datatable.SortAsc
}

func (l *list[T]) Name() string     { return l.def.Name }
func (l *list[T]) Singular() string { return l.def.Singular }

func (l *list[T]) Label() string {
	if l.cfg.Label != "" {
		return l.cfg.Label
	}
	return l.def.Name
}

func (l *list[T]) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded
}

// Load fetches the collection. Failures are toasted by the dispatcher.
func (l *list[T]) Load(ctx context.Context) error {
	if err := l.disp.Refresh(ctx); err != nil {
		return err
	}
	l.mu.Lock()
	l.loaded = true
	l.mu.Unlock()
	return nil
}

func (l *list[T]) Count() int {
	return len(l.ctrl.Records())
}

// Apply maps list query parameters onto the controller: search,
// filter-<key>, sort with dir, toggle, page, per_page and clear. toggle
// cycles the sort of a column from the current state.
func (l *list[T]) Apply(q url.Values) error {
	if q.Has("clear") {
		l.ctrl.ClearFilters()
	}
	if q.Has("search") {
		l.ctrl.SetSearch(q.Get("search"))
	}
	for key, vals := range q {
		name, ok := strings.CutPrefix(key, "filter-")
		if !ok || len(vals) == 0 {
			continue
		}
		if err := l.ctrl.SetFilter(name, vals[0]); err != nil {
			return apperrors.Wrap(apperrors.ErrClassValidation, "filter", err).WithContext("column", name)
		}
	}
	if q.Has("sort") {
		if err := l.ctrl.SetSort(q.Get("sort"), datatable.ParseDirection(q.Get("dir"))); err != nil {
			return apperrors.Wrap(apperrors.ErrClassValidation, "sort", err).WithContext("column", q.Get("sort"))
		}
	}
	if q.Has("toggle") {
		if _, err := l.ctrl.ToggleSort(q.Get("toggle")); err != nil {
			return apperrors.Wrap(apperrors.ErrClassValidation, "sort", err).WithContext("column", q.Get("toggle"))
		}
	}
	if q.Has("per_page") {
		n, _ := strconv.Atoi(q.Get("per_page"))
		if err := l.ctrl.SetItemsPerPage(n); err != nil {
			return apperrors.Wrap(apperrors.ErrClassValidation, "per_page", err)
		}
	}
	if q.Has("page") {
		n, _ := strconv.Atoi(q.Get("page"))
		l.ctrl.SetPage(n)
	}
	return nil
}

func (l *list[T]) Table() gomponents.Node {
	state, target := l.disp.DeleteDialog()
	var targetTitle string
	if rec, ok := l.ctrl.Find(target); ok {
		targetTitle = l.def.Title(rec)
	}
	return renderTable(tableData[T]{
		name:        l.def.Name,
		label:       l.Label(),
		singular:    l.def.Singular,
		columns:     l.def.Columns,
		view:        l.ctrl.View(),
		pending:     l.disp.Pending,
		dialog:      state,
		dialogID:    target,
		dialogTitle: targetTitle,
		canExport:   !l.cfg.DisableExport,
		canAdd:      l.canAdd,
	})
}

func (l *list[T]) Select(id string, checked bool) { l.ctrl.SelectOne(id, checked) }
func (l *list[T]) SelectAll(checked bool)         { l.ctrl.SelectAll(checked) }
func (l *list[T]) ClearSelection()                { l.ctrl.ClearSelection() }

func (l *list[T]) RequestDelete(id string) error { return l.disp.RequestDelete(id) }
func (l *list[T]) CancelDelete() error           { return l.disp.CancelDelete() }

func (l *list[T]) ConfirmDelete(ctx context.Context) error {
	return l.disp.ConfirmDelete(ctx)
}

func (l *list[T]) BulkDelete(ctx context.Context) (dispatcher.BulkResult, error) {
	return l.disp.BulkDelete(ctx)
}

// Export renders the selected or visible records and returns the file.
func (l *list[T]) Export(ctx context.Context, format export.Format, selectedOnly bool) ([]byte, string, error) {
	if l.cfg.DisableExport {
		err := apperrors.New(apperrors.ErrClassValidation, "export", "L'export est désactivé pour cette liste.")
		_ = l.notifier.Notify(ctx, notify.FromError("Export", err))
		return nil, "", err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.disp.Export(ctx, format, selectedOnly); err != nil {
		return nil, "", err
	}
	data := bytes.Clone(l.exportBuf.Bytes())
	l.exportBuf.Reset()
	return data, export.Filename(l.Label(), format, time.Now()), nil
}

func (l *list[T]) Detail(ctx context.Context, id string) (gomponents.Node, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.disp.View(ctx, id); err != nil {
		return nil, err
	}
	return renderDetail(l.def.Title(l.current), l.def.Columns, l.current), nil
}

func (l *list[T]) EditForm(ctx context.Context, id, csrf string) (gomponents.Node, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.disp.Edit(ctx, id); err != nil {
		return nil, err
	}
	return renderForm(l.def.Name, l.def.Singular, csrf, formFieldsFor(l.def, l.current, true), false, id), nil
}

func (l *list[T]) AddForm(csrf string) gomponents.Node {
	var zero T
	return renderForm(l.def.Name, l.def.Singular, csrf, formFieldsFor(l.def, zero, false), true, "")
}

// Save binds the posted form, validates it and stores it through the
// repository. Validation errors never reach the repository. On failure the
// form is returned filled with the posted values.
func (l *list[T]) Save(ctx context.Context, c *gin.Context, create bool, csrf string) (gomponents.Node, error) {
	op := l.def.Name + "_update"
	if create {
		op = l.def.Name + "_add"
	}
	var rec T
	refill := func(err error) (gomponents.Node, error) {
		fields := withFieldErrors(formFieldsFor(l.def, rec, true), err)
		return renderForm(l.def.Name, l.def.Singular, csrf, fields, create, rec.RecordID()),
			l.fail(ctx, err)
	}
	if err := c.ShouldBind(&rec); err != nil {
		return refill(apperrors.WrapWithMessage(apperrors.ErrClassValidation, op,
			"Le formulaire contient des valeurs invalides.", err))
	}
	if create {
		l.def.SetID(&rec, "")
	} else if rec.RecordID() == "" {
		return refill(apperrors.New(apperrors.ErrClassValidation, op, "Identifiant manquant."))
	}
	if err := entities.Validate(op, rec); err != nil {
		return refill(err)
	}

	saved, err := l.save(ctx, rec, create)
	if err != nil {
		return refill(err)
	}
	_ = l.disp.Refresh(ctx)
	msg := "Le " + l.def.Singular + " a été modifié."
	if create {
		msg = "Le " + l.def.Singular + " a été ajouté."
	}
	_ = l.notifier.Notify(ctx, notify.Success(l.def.Title(saved), msg))
	return nil, nil
}

func (l *list[T]) save(ctx context.Context, rec T, create bool) (T, error) {
	if create {
		return l.repo.Add(ctx, rec)
	}
	return l.repo.Update(ctx, rec)
}

func (l *list[T]) fail(ctx context.Context, err error) error {
	_ = l.notifier.Notify(ctx, notify.FromError("Enregistrement", err))
	return err
}
