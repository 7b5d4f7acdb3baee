package database

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Kellerman81/go_admissions_admin/pkg/main/apperrors"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/logger"
)

const backupTimeFormat = "20060102_150405"

var backupMu sync.Mutex

type backupInfo struct {
	timestamp time.Time
	path      string
}

// Backup copies the application database into dir with VACUUM INTO and keeps
// only the newest maxbackups copies. 0 keeps all.
func Backup(dir string, maxbackups int) error {
	backupMu.Lock()
	defer backupMu.Unlock()
	if dbData == nil {
		return apperrors.New(apperrors.ErrClassDatabase, "backup", "Base de données non initialisée.")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperrors.Wrap(apperrors.ErrClassDatabase, "backup", err)
	}
	prefix := filepath.Base(dbFile) + "."
	target := filepath.Join(dir, prefix+time.Now().Format(backupTimeFormat))

	logger.LogDynamicany("info", "Start db backup", "file", target)
	if _, err := dbData.Exec("VACUUM INTO ?", target); err != nil {
		logger.LogDynamicany("error", "exec", err, "query", "VACUUM INTO ?")
		return apperrors.Wrap(apperrors.ErrClassDatabase, "backup", err).For(target)
	}
	logger.LogDynamicany("info", "End db backup")
	if maxbackups <= 0 {
		return nil
	}
	return pruneBackups(dir, prefix, maxbackups)
}

func pruneBackups(dir, prefix string, maxbackups int) error {
	files, err := os.ReadDir(dir)
	if err != nil {
		return errors.New("can't read backup directory: " + err.Error())
	}
	backupFiles := make([]backupInfo, 0, len(files))
	for idx := range files {
		if files[idx].IsDir() {
			continue
		}
		ts := timeFromName(files[idx].Name(), prefix)
		if ts.IsZero() {
			continue
		}
		backupFiles = append(backupFiles, backupInfo{timestamp: ts, path: files[idx].Name()})
	}
	if maxbackups >= len(backupFiles) {
		return nil
	}
	sort.Slice(backupFiles, func(i, j int) bool {
		return backupFiles[i].timestamp.After(backupFiles[j].timestamp)
	})
	for idx := maxbackups; idx < len(backupFiles); idx++ {
		_ = os.Remove(filepath.Join(dir, backupFiles[idx].path))
	}
	return nil
}

// timeFromName parses the timestamp suffix of a backup file name. It
// returns a zero Time if parsing fails.
func timeFromName(filename, prefix string) time.Time {
	if !logger.HasPrefixI(filename, prefix) {
		return time.Time{}
	}
	t, err := time.Parse(backupTimeFormat, strings.TrimPrefix(filename[len(prefix):], "."))
	if err != nil {
		return time.Time{}
	}
	return t
}
