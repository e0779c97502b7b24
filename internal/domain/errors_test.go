package domain_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/stocker-ledger/internal/domain"
	"github.com/jhoicas/stocker-ledger/internal/domain/entity"
)

func TestMovementError_IsYCausa(t *testing.T) {
	cause := errors.New("conexión perdida")
	key := entity.LevelKey{ProductID: "P1", LocationID: "W1"}
	err := fmt.Errorf("submit: %w", domain.Wrap(domain.ErrStorage, key, cause))

	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.ErrorIs(t, err, cause)
	assert.True(t, domain.IsRetryable(err))
	assert.Equal(t, "STORAGE_UNAVAILABLE", domain.Code(err))
	assert.Contains(t, err.Error(), "producto=P1 bodega=W1")
}

func TestClassify(t *testing.T) {
	key := entity.LevelKey{ProductID: "P1"}

	assert.Nil(t, domain.Classify(nil, key))
	assert.ErrorIs(t, domain.Classify(errors.New("boom"), key), domain.ErrStorage)
	assert.Equal(t, context.Canceled, domain.Classify(context.Canceled, key))

	busy := domain.NewError(domain.ErrBusy, key, "carril ocupado")
	assert.Same(t, busy, domain.Classify(busy, key))
}

func TestCode_Tipos(t *testing.T) {
	key := entity.LevelKey{ProductID: "P1"}
	assert.Equal(t, "VALIDATION", domain.Code(domain.NewError(domain.ErrValidation, key, "")))
	assert.Equal(t, "INSUFFICIENT_STOCK", domain.Code(domain.NewError(domain.ErrInsufficientStock, key, "")))
	assert.Equal(t, "BUSY", domain.Code(domain.NewError(domain.ErrBusy, key, "")))
	assert.Equal(t, "CANCELLED", domain.Code(context.Canceled))
	assert.Equal(t, "INTERNAL", domain.Code(errors.New("x")))
}
