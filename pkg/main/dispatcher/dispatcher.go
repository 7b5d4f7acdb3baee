// Package dispatcher routes the row and toolbar actions of a list (view, edit,
// delete, bulk delete, export) to repository callbacks and reports their
// outcome as toasts.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Kellerman81/go_admissions_admin/pkg/main/apperrors"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/datatable"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/export"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/logger"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/notify"
	"github.com/alitto/pond/v2"
)

// DeleteState is the state of the delete confirmation dialog.
type DeleteState int

const (
	DeleteClosed DeleteState = iota
	DeleteConfirmOpen
	DeleteDeleting
)

func (s DeleteState) String() string {
	switch s {
	case DeleteConfirmOpen:
		return "confirm_open"
	case DeleteDeleting:
		return "deleting"
	}
	return "closed"
}

var (
	ErrInvalidTransition = errors.New("invalid delete dialog transition")
	ErrDeleteInFlight    = errors.New("delete already in progress for this id")
	ErrNoCallback        = errors.New("action not configured")
)

// Callbacks are the actions wired by the caller. OnBulkDelete is optional;
// without it a bulk delete calls OnDelete once per id.
type Callbacks[T datatable.Record] struct {
	OnView       func(ctx context.Context, rec T) error
	OnEdit       func(ctx context.Context, rec T) error
	OnDelete     func(ctx context.Context, id string) error
	OnBulkDelete func(ctx context.Context, ids []string) error
	OnExport     func(ctx context.Context, format export.Format, records []T) error
	Refresh      func(ctx context.Context) ([]T, error)
}

// Dispatcher runs the actions of one list controller.
type Dispatcher[T datatable.Record] struct {
	ctrl     *datatable.Controller[T]
	cb       Callbacks[T]
	notifier notify.Notifier
	pool     pond.Pool
	singular string

	mu      sync.Mutex
	state   DeleteState
	target  string
	pending map[string]struct{}
}

// New returns a dispatcher. pool bounds the concurrency of bulk deletes; a
// nil pool deletes sequentially. notifier may be nil.
func New[T datatable.Record](
	ctrl *datatable.Controller[T],
	cb Callbacks[T],
	notifier notify.Notifier,
	pool pond.Pool,
	singular string,
) *Dispatcher[T] {
	if singular == "" {
		singular = "enregistrement"
	}
	return &Dispatcher[T]{
		ctrl:     ctrl,
		cb:       cb,
		notifier: notifier,
		pool:     pool,
		singular: singular,
		pending:  make(map[string]struct{}),
	}
}

// Controller returns the list controller driven by d.
func (d *Dispatcher[T]) Controller() *datatable.Controller[T] {
	return d.ctrl
}

// DeleteDialog returns the dialog state and the id it targets.
func (d *Dispatcher[T]) DeleteDialog() (DeleteState, string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state, d.target
}

// Pending reports whether a delete of id is in flight.
func (d *Dispatcher[T]) Pending(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[id]
	return ok
}

// View calls OnView with the record id.
func (d *Dispatcher[T]) View(ctx context.Context, id string) error {
	return d.rowAction(ctx, "view", id, d.cb.OnView)
}

// Edit calls OnEdit with the record id.
func (d *Dispatcher[T]) Edit(ctx context.Context, id string) error {
	return d.rowAction(ctx, "edit", id, d.cb.OnEdit)
}

func (d *Dispatcher[T]) rowAction(ctx context.Context, op, id string, fn func(context.Context, T) error) error {
	if fn == nil {
		return d.fail(ctx, "Action", apperrors.Wrap(apperrors.ErrClassConfig, op, ErrNoCallback))
	}
	rec, ok := d.ctrl.Find(id)
	if !ok {
		return d.fail(ctx, "Action", apperrors.New(apperrors.ErrClassValidation, op, "Enregistrement introuvable.").For(id))
	}
	if err := fn(ctx, rec); err != nil {
		return d.fail(ctx, "Action", err)
	}
	return nil
}

// RequestDelete opens the confirmation dialog for id.
func (d *Dispatcher[T]) RequestDelete(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != DeleteClosed {
		return ErrInvalidTransition
	}
	if _, ok := d.pending[id]; ok {
		return ErrDeleteInFlight
	}
	if id == "" {
		return apperrors.New(apperrors.ErrClassValidation, "delete", "Identifiant manquant.")
	}
	d.state = DeleteConfirmOpen
	d.target = id
	return nil
}

// CancelDelete closes the confirmation dialog without deleting.
func (d *Dispatcher[T]) CancelDelete() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != DeleteConfirmOpen {
		return ErrInvalidTransition
	}
	d.state = DeleteClosed
	d.target = ""
	return nil
}

// ConfirmDelete deletes the targeted id, closes the dialog and refreshes the
// collection whatever the outcome.
func (d *Dispatcher[T]) ConfirmDelete(ctx context.Context) error {
	d.mu.Lock()
	if d.state != DeleteConfirmOpen {
		d.mu.Unlock()
		return ErrInvalidTransition
	}
	id := d.target
	if _, ok := d.pending[id]; ok {
		d.mu.Unlock()
		return ErrDeleteInFlight
	}
	d.state = DeleteDeleting
	d.pending[id] = struct{}{}
	d.mu.Unlock()

	err := d.deleteOne(ctx, id)

	d.mu.Lock()
	delete(d.pending, id)
	d.state = DeleteClosed
	d.target = ""
	d.mu.Unlock()

	if err != nil {
		_ = d.Refresh(ctx)
		return d.fail(ctx, "Suppression", err)
	}
	d.ctrl.SelectOne(id, false)
	_ = d.Refresh(ctx)
	d.notify(ctx, notify.Success("Suppression", "Le "+d.singular+" a été supprimé."))
	return nil
}

// deleteOne calls OnDelete and turns a panic into the error of that id.
func (d *Dispatcher[T]) deleteOne(ctx context.Context, id string) (err error) {
	if d.cb.OnDelete == nil {
		return apperrors.Wrap(apperrors.ErrClassConfig, "delete", ErrNoCallback)
	}
	defer func() {
		if r := recover(); r != nil {
			logger.LogDynamicany("error", "delete callback panicked", "id", id, "panic", fmt.Sprint(r))
			err = apperrors.Wrap(apperrors.ErrClassBackend, "delete", fmt.Errorf("panic: %v", r)).For(id)
		}
	}()
	return d.cb.OnDelete(ctx, id)
}

// BulkDelete deletes every selected id. Ids already being deleted count as
// failures. The collection is refreshed afterwards in all cases and the
// selection keeps only the ids that still exist.
func (d *Dispatcher[T]) BulkDelete(ctx context.Context) (BulkResult, error) {
	ids := d.ctrl.SelectedIDs()
	if len(ids) == 0 {
		err := apperrors.New(apperrors.ErrClassValidation, "bulk_delete", "Aucun élément sélectionné.")
		return BulkResult{}, d.fail(ctx, "Suppression", err)
	}

	var result BulkResult
	run := make([]string, 0, len(ids))
	d.mu.Lock()
	for _, id := range ids {
		if _, ok := d.pending[id]; ok {
			result.Failed = append(result.Failed, Failure{ID: id, Err: ErrDeleteInFlight})
			continue
		}
		d.pending[id] = struct{}{}
		run = append(run, id)
	}
	d.mu.Unlock()

	errs := d.deleteMany(ctx, run)

	d.mu.Lock()
	for _, id := range run {
		delete(d.pending, id)
	}
	d.mu.Unlock()

	for idx, id := range run {
		if errs[idx] != nil {
			result.Failed = append(result.Failed, Failure{ID: id, Err: errs[idx]})
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
		d.ctrl.SelectOne(id, false)
	}

	logger.Logtype(logger.StatusInfo, 0).
		Int("requested", len(ids)).
		Int("succeeded", len(result.Succeeded)).
		Int("failed", len(result.Failed)).
		Str("outcome", result.Outcome().String()).
		Msg("bulk delete finished")

	_ = d.Refresh(ctx)

	switch result.Outcome() {
	case OutcomeAllSucceeded:
		d.notify(ctx, notify.Success("Suppression", result.Summary()))
		return result, nil
	case OutcomePartial:
		d.notify(ctx, notify.New(notify.LevelWarning, "Suppression partielle", result.Summary()))
	default:
		d.notify(ctx, notify.New(notify.LevelError, "Suppression", result.Summary()))
	}
	return result, apperrors.WrapWithMessage(apperrors.ErrClassBackend, "bulk_delete", result.Summary(),
		result.Failed[0].Err).WithContext("failed", result.FailedIDs())
}

// deleteMany returns one error slot per id, in order.
func (d *Dispatcher[T]) deleteMany(ctx context.Context, ids []string) []error {
	errs := make([]error, len(ids))
	if len(ids) == 0 {
		return errs
	}
	if d.cb.OnBulkDelete != nil {
		err := d.cb.OnBulkDelete(ctx, ids)
		for idx := range errs {
			errs[idx] = err
		}
		return errs
	}
	if d.pool == nil || d.pool.Stopped() || len(ids) == 1 {
		for idx, id := range ids {
			errs[idx] = d.deleteOne(ctx, id)
		}
		return errs
	}
	group := d.pool.NewGroup()
	for idx, id := range ids {
		group.Submit(func() {
			errs[idx] = d.deleteOne(ctx, id)
		})
	}
	// every task writes its own slot, deleteOne never panics
	_ = group.Wait()
	return errs
}

// Export passes the selected records, or the whole filtered and sorted set
// when selectedOnly is false, to OnExport.
func (d *Dispatcher[T]) Export(ctx context.Context, format export.Format, selectedOnly bool) error {
	if d.cb.OnExport == nil {
		return d.fail(ctx, "Export", apperrors.Wrap(apperrors.ErrClassConfig, "export", ErrNoCallback))
	}
	var records []T
	if selectedOnly {
		records = d.ctrl.SelectedRecords()
	} else {
		records = d.ctrl.Visible()
	}
	if len(records) == 0 {
		return d.fail(ctx, "Export", apperrors.New(apperrors.ErrClassValidation, "export", "Aucun enregistrement à exporter."))
	}
	if err := d.cb.OnExport(ctx, format, records); err != nil {
		return d.fail(ctx, "Export", err)
	}
	return nil
}

// Refresh reloads the collection. A failed reload keeps the current records
// and is reported as a toast.
func (d *Dispatcher[T]) Refresh(ctx context.Context) error {
	if d.cb.Refresh == nil {
		return nil
	}
	records, err := d.cb.Refresh(ctx)
	if err != nil {
		return d.fail(ctx, "Chargement", err)
	}
	d.ctrl.SetRecords(records)
	return nil
}

func (d *Dispatcher[T]) fail(ctx context.Context, title string, err error) error {
	apperrors.LogClassifiedError(logger.Logtype(logger.StatusWarning, 1), err).Msg(title + " failed")
	d.notify(ctx, notify.FromError(title, err))
	return err
}

func (d *Dispatcher[T]) notify(ctx context.Context, t notify.Toast) {
	if d.notifier == nil {
		return
	}
	if err := d.notifier.Notify(ctx, t); err != nil {
		logger.LogDynamicany("warn", "toast delivery failed", err)
	}
}
