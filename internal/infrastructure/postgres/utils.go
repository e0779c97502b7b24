package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/stocker-ledger/internal/domain"
	"github.com/jhoicas/stocker-ledger/internal/domain/entity"
)

// Códigos SQLSTATE relevantes para el ledger.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeLockNotAvailable    = "55P03"
	codeSerialization       = "40001"
	codeDeadlock            = "40P01"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	if code := pgCode(err); code != "" {
		return code == codeUniqueViolation
	}
	return strings.Contains(err.Error(), codeUniqueViolation)
}

func isForeignKeyViolation(err error) bool {
	return pgCode(err) == codeForeignKeyViolation
}

// classify envuelve err con la operación y, si el código lo permite, con el tipo de dominio.
// Los errores sin tipo los convierte el coordinador en ErrStorage.
func classify(err error, key entity.LevelKey, op string) error {
	if err == nil {
		return nil
	}
	wrapped := fmt.Errorf("%s: %w", op, err)
	switch pgCode(err) {
	case codeUniqueViolation:
		return domain.Wrap(domain.ErrConflict, key, wrapped)
	case codeForeignKeyViolation:
		return domain.Wrap(domain.ErrReference, key, wrapped)
	case codeCheckViolation:
		return domain.Wrap(domain.ErrValidation, key, wrapped)
	case codeLockNotAvailable, codeSerialization, codeDeadlock:
		return domain.Wrap(domain.ErrBusy, key, wrapped)
	}
	return wrapped
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
