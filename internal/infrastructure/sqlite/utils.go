package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/jhoicas/stocker-ledger/internal/domain"
	"github.com/jhoicas/stocker-ledger/internal/domain/entity"
)

func sqliteCode(err error) int {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()
	}
	return 0
}

func isUniqueViolation(err error) bool {
	switch sqliteCode(err) {
	case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func isForeignKeyViolation(err error) bool {
	if sqliteCode(err) == sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint failed")
}

// classify envuelve err con la operación y, si el código lo permite, con el tipo de dominio.
func classify(err error, key entity.LevelKey, op string) error {
	if err == nil {
		return nil
	}
	wrapped := fmt.Errorf("%s: %w", op, err)
	code := sqliteCode(err)
	switch {
	case isUniqueViolation(err):
		return domain.Wrap(domain.ErrConflict, key, wrapped)
	case isForeignKeyViolation(err):
		return domain.Wrap(domain.ErrReference, key, wrapped)
	case code == sqlite3lib.SQLITE_CONSTRAINT_CHECK:
		return domain.Wrap(domain.ErrValidation, key, wrapped)
	case code&0xff == sqlite3lib.SQLITE_BUSY, code&0xff == sqlite3lib.SQLITE_LOCKED:
		return domain.Wrap(domain.ErrBusy, key, wrapped)
	}
	return wrapped
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
