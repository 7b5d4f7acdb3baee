package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Kellerman81/go_admissions_admin/pkg/main/apperrors"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/entities"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() { db.Close() })
	return db
}

func TestTableCRUD(t *testing.T) {
	ctx := context.Background()
	sites := NewTable(openTestDB(t), &entities.Sites)

	added, err := sites.Add(ctx, entities.Site{Name: "Centre Lyon", City: "Lyon", Capacity: 40})
	require.NoError(t, err)
	assert.NotEmpty(t, added.RecordID())

	_, err = sites.Add(ctx, entities.Site{ID: "fixed", Name: "Centre Paris", City: "Paris"})
	require.NoError(t, err)

	rows, err := sites.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, added.RecordID(), rows[0].RecordID())
	assert.Equal(t, 40, rows[0].Capacity)
	assert.Equal(t, "fixed", rows[1].RecordID())

	added.Capacity = 55
	_, err = sites.Update(ctx, added)
	require.NoError(t, err)
	rows, err = sites.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 55, rows[0].Capacity)

	require.NoError(t, sites.Delete(ctx, "fixed"))
	n, err := sites.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestTableMissingRow(t *testing.T) {
	ctx := context.Background()
	users := NewTable(openTestDB(t), &entities.Users)

	err := users.Delete(ctx, "nope")
	require.Error(t, err)
	assert.True(t, apperrors.IsClass(err, apperrors.ErrClassDatabase))
	assert.Equal(t, "Enregistrement introuvable.", apperrors.UserMessage(err))

	_, err = users.Update(ctx, entities.User{ID: "nope", FirstName: "A"})
	require.Error(t, err)

	_, err = users.Update(ctx, entities.User{})
	assert.True(t, apperrors.IsClass(err, apperrors.ErrClassValidation))
}

func TestTableUniqueEmail(t *testing.T) {
	ctx := context.Background()
	users := NewTable(openTestDB(t), &entities.Users)

	_, err := users.Add(ctx, entities.User{FirstName: "Ana", Email: "ana@example.org", Role: "admin"})
	require.NoError(t, err)
	_, err = users.Add(ctx, entities.User{FirstName: "Ana", Email: "ANA@example.org", Role: "admin"})
	require.Error(t, err)
	assert.Equal(t, "users_add", apperrors.GetOperation(err))
}

func TestMigrateTwice(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(db))
	assert.Equal(t, "1", GetVersion())
}

func TestTimeFromName(t *testing.T) {
	ts := timeFromName("admissions.db.20240102_030405", "admissions.db.")
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), ts)
	assert.True(t, timeFromName("other.20240102_030405", "admissions.db.").IsZero())
	assert.True(t, timeFromName("admissions.db.garbage", "admissions.db.").IsZero())
}

func TestBackupKeepsNewest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, InitDB(filepath.Join(dir, "admissions.db")))
	t.Cleanup(DBClose)

	backups := filepath.Join(dir, "backup")
	require.NoError(t, Backup(backups, 0))
	time.Sleep(1100 * time.Millisecond)
	require.NoError(t, Backup(backups, 1))

	files, err := filepath.Glob(filepath.Join(backups, "admissions.db.*"))
	require.NoError(t, err)
	assert.Len(t, files, 1)
}
