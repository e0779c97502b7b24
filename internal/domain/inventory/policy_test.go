package inventory_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stocker-ledger/internal/domain"
	"github.com/jhoicas/stocker-ledger/internal/domain/entity"
	"github.com/jhoicas/stocker-ledger/internal/domain/inventory"
)

var multi = inventory.Policy{MultiLocation: true}

func intent(kind entity.MovementKind, qty int64) entity.MovementIntent {
	return entity.MovementIntent{ProductID: "P1", LocationID: "W1", Kind: kind, Quantity: qty}
}

func TestValidateIntent_Casos(t *testing.T) {
	cases := []struct {
		name   string
		in     entity.MovementIntent
		policy inventory.Policy
		ok     bool
	}{
		{"IN positivo", intent(entity.MovementIN, 1), multi, true},
		{"IN cero", intent(entity.MovementIN, 0), multi, false},
		{"OUT negativo", intent(entity.MovementOUT, -2), multi, false},
		{"ADJUST cero", intent(entity.MovementADJUST, 0), multi, true},
		{"ADJUST negativo", intent(entity.MovementADJUST, -1), multi, false},
		{"tipo desconocido", intent("TRANSFER", 3), multi, false},
		{"sin producto", entity.MovementIntent{LocationID: "W1", Kind: entity.MovementIN, Quantity: 1}, multi, false},
		{"sin bodega en multi", entity.MovementIntent{ProductID: "P1", Kind: entity.MovementIN, Quantity: 1}, multi, false},
		{"sin bodega en single", entity.MovementIntent{ProductID: "P1", Kind: entity.MovementIN, Quantity: 1}, inventory.Policy{}, true},
		{"bodega en single", intent(entity.MovementIN, 1), inventory.Policy{}, false},
		{"nota larga", entity.MovementIntent{ProductID: "P1", LocationID: "W1", Kind: entity.MovementIN, Quantity: 1,
			Note: strings.Repeat("n", inventory.MaxNoteLength+1)}, multi, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := inventory.ValidateIntent(tc.in, tc.policy)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrValidation)

			var merr *domain.MovementError
			require.ErrorAs(t, err, &merr)
			require.NotNil(t, merr.Intent, "el error debe llevar la intención")
		})
	}
}

func TestNormalize_LimpiaEspaciosYMayusculas(t *testing.T) {
	in := inventory.Normalize(entity.MovementIntent{ProductID: " P1 ", LocationID: " W1", Kind: " out ", Note: " x "})
	assert.Equal(t, "P1", in.ProductID)
	assert.Equal(t, "W1", in.LocationID)
	assert.Equal(t, entity.MovementOUT, in.Kind)
	assert.Equal(t, "x", in.Note)
}

func TestCheckStock_SinStockNegativoPorDefecto(t *testing.T) {
	level := entity.InventoryLevel{ProductID: "P1", LocationID: "W1", Quantity: 5}

	err := inventory.CheckStock(level, intent(entity.MovementOUT, 6), multi)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.False(t, domain.IsRetryable(err))

	assert.NoError(t, inventory.CheckStock(level, intent(entity.MovementOUT, 5), multi))
	assert.NoError(t, inventory.CheckStock(level, intent(entity.MovementADJUST, 0), multi))
	assert.NoError(t, inventory.CheckStock(level, intent(entity.MovementIN, 100), multi))
}

func TestCheckStock_PoliticaPermiteNegativo(t *testing.T) {
	policy := inventory.Policy{MultiLocation: true, AllowNegativeStock: true}
	level := entity.InventoryLevel{ProductID: "P1", LocationID: "W1", Quantity: 1}
	assert.NoError(t, inventory.CheckStock(level, intent(entity.MovementOUT, 10), policy))
}

func TestPolicy_NormalizeKeyEnModoSingle(t *testing.T) {
	key := inventory.Policy{}.NormalizeKey(entity.LevelKey{ProductID: " P1", LocationID: "W9"})
	assert.Equal(t, entity.LevelKey{ProductID: "P1"}, key)

	key = multi.NormalizeKey(entity.LevelKey{ProductID: "P1", LocationID: " W9 "})
	assert.Equal(t, entity.LevelKey{ProductID: "P1", LocationID: "W9"}, key)
}
