package database

import (
	"context"
	"errors"
	"strings"

	"github.com/Kellerman81/go_admissions_admin/pkg/main/apperrors"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/datatable"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/entities"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/logger"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Table is the sqlite repository of one entity type.
type Table[T datatable.Record] struct {
	db   *sqlx.DB
	def  *entities.Definition[T]
	qSel string
	qIns string
	qUpd string
	qDel string
}

// NewTable builds the statements of def once. A nil db uses the handle
// opened by InitDB.
func NewTable[T datatable.Record](db *sqlx.DB, def *entities.Definition[T]) *Table[T] {
	if db == nil {
		db = dbData
	}
	cols := strings.Join(def.Fields, ", ")
	named := make([]string, len(def.Fields))
	sets := make([]string, len(def.Fields))
	for idx, f := range def.Fields {
		named[idx] = ":" + f
		sets[idx] = f + " = :" + f
	}
	return &Table[T]{
		db:   db,
		def:  def,
		qSel: "select id, " + cols + " from " + def.Table + " order by rowid",
		qIns: "insert into " + def.Table + " (id, " + cols + ") values (:id, " + strings.Join(named, ", ") + ")",
		qUpd: "update " + def.Table + " set " + strings.Join(sets, ", ") + ", updated_at = current_timestamp where id = :id",
		qDel: "delete from " + def.Table + " where id = ?",
	}
}

// List returns every row in insertion order.
func (t *Table[T]) List(ctx context.Context) ([]T, error) {
	var rows []T
	if err := t.db.SelectContext(ctx, &rows, t.qSel); err != nil {
		return nil, t.fail("list", err, "")
	}
	return rows, nil
}

// Add inserts rec. A record without id gets a new uuid.
func (t *Table[T]) Add(ctx context.Context, rec T) (T, error) {
	if rec.RecordID() == "" {
		t.def.SetID(&rec, uuid.NewString())
	}
	if _, err := t.db.NamedExecContext(ctx, t.qIns, rec); err != nil {
		var zero T
		return zero, t.fail("add", err, rec.RecordID())
	}
	logger.LogDynamicany("debug", "row added", "table", t.def.Table, "id", rec.RecordID())
	return rec, nil
}

// Update replaces the row with the id of rec.
func (t *Table[T]) Update(ctx context.Context, rec T) (T, error) {
	var zero T
	if rec.RecordID() == "" {
		return zero, apperrors.New(apperrors.ErrClassValidation, t.def.Table+"_update", "Identifiant manquant.")
	}
	res, err := t.db.NamedExecContext(ctx, t.qUpd, rec)
	if err != nil {
		return zero, t.fail("update", err, rec.RecordID())
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return zero, t.fail("update", logger.ErrNotFound, rec.RecordID())
	}
	return rec, nil
}

// Delete removes the row with id. Deleting a missing row is an error.
func (t *Table[T]) Delete(ctx context.Context, id string) error {
	res, err := t.db.ExecContext(ctx, t.qDel, id)
	if err != nil {
		return t.fail("delete", err, id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return t.fail("delete", logger.ErrNotFound, id)
	}
	logger.LogDynamicany("debug", "row deleted", "table", t.def.Table, "id", id)
	return nil
}

// Count returns the number of rows.
func (t *Table[T]) Count(ctx context.Context) (int, error) {
	var n int
	if err := t.db.GetContext(ctx, &n, "select count() from "+t.def.Table); err != nil {
		return 0, t.fail("count", err, "")
	}
	return n, nil
}

func (t *Table[T]) fail(op string, err error, id string) error {
	ce := apperrors.Wrap(apperrors.ErrClassDatabase, t.def.Table+"_"+op, err)
	if id != "" {
		ce = ce.For(id)
	}
	if errors.Is(err, logger.ErrNotFound) {
		ce.Message = "Enregistrement introuvable."
	}
	return ce
}
