package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/jhoicas/stocker-ledger/internal/domain/entity"
)

// Errores de dominio (sin dependencias externas). Son los "tipos" del error;
// MovementError los envuelve con la clave y la intención afectadas.
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrValidation        = errors.New("movimiento inválido")
	ErrReference         = errors.New("referencia desconocida")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrConflict          = errors.New("conflicto con el estado actual")
	ErrBusy              = errors.New("recurso ocupado, reintente")
	ErrStorage           = errors.New("fallo de almacenamiento")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrForbidden         = errors.New("acceso denegado")
)

var kinds = []error{
	ErrValidation, ErrReference, ErrInsufficientStock, ErrConflict,
	ErrBusy, ErrStorage, ErrNotFound, ErrUnauthorized, ErrForbidden,
}

// MovementError error tipado del motor: lleva el tipo, la clave y (si existe) la intención.
type MovementError struct {
	Kind    error
	Key     entity.LevelKey
	Intent  *entity.MovementIntent
	EventID int64 // evento previo cuando Kind == ErrConflict por token repetido
	Detail  string
	Err     error
}

func (e *MovementError) Error() string {
	msg := e.Kind.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Key.ProductID != "" {
		msg += fmt.Sprintf(" [producto=%s bodega=%s]", e.Key.ProductID, e.Key.LocationID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap expone el tipo y la causa, de modo que errors.Is funciona con ambos.
func (e *MovementError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// NewError construye un error tipado para una clave.
func NewError(kind error, key entity.LevelKey, detail string) *MovementError {
	return &MovementError{Kind: kind, Key: key, Detail: detail}
}

// Wrap envuelve una causa con un tipo de dominio.
func Wrap(kind error, key entity.LevelKey, err error) *MovementError {
	return &MovementError{Kind: kind, Key: key, Err: err}
}

// WithIntent adjunta la intención que originó el error.
func (e *MovementError) WithIntent(in entity.MovementIntent) *MovementError {
	e.Intent = &in
	return e
}

// KindOf devuelve el tipo de dominio del error o nil si no tiene ninguno.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Classify deja intactos los errores ya tipados y los de cancelación del llamador;
// cualquier otro fallo se considera de almacenamiento.
func Classify(err error, key entity.LevelKey) error {
	if err == nil || KindOf(err) != nil || errors.Is(err, context.Canceled) {
		return err
	}
	return Wrap(ErrStorage, key, err)
}

// IsRetryable indica si el llamador puede reintentar con backoff.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrBusy) || errors.Is(err, ErrStorage)
}

// Code devuelve un código estable para logs, métricas y respuestas HTTP.
func Code(err error) string {
	switch KindOf(err) {
	case ErrValidation:
		return "VALIDATION"
	case ErrReference:
		return "UNKNOWN_REFERENCE"
	case ErrInsufficientStock:
		return "INSUFFICIENT_STOCK"
	case ErrConflict:
		return "CONFLICT"
	case ErrBusy:
		return "BUSY"
	case ErrStorage:
		return "STORAGE_UNAVAILABLE"
	case ErrNotFound:
		return "NOT_FOUND"
	case ErrUnauthorized:
		return "UNAUTHORIZED"
	case ErrForbidden:
		return "FORBIDDEN"
	}
	if errors.Is(err, context.Canceled) {
		return "CANCELLED"
	}
	return "INTERNAL"
}
