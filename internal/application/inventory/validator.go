package inventory

import (
	"context"

	"github.com/jhoicas/stocker-ledger/internal/domain"
	"github.com/jhoicas/stocker-ledger/internal/domain/entity"
	"github.com/jhoicas/stocker-ledger/internal/domain/inventory"
	"github.com/jhoicas/stocker-ledger/internal/domain/repository"
)

// Validator decide si una intención puede admitirse: forma, referencias y (bajo el carril) stock.
type Validator struct {
	policy     inventory.Policy
	products   repository.ProductRepository
	warehouses repository.WarehouseRepository
}

// NewValidator construye el validador.
func NewValidator(policy inventory.Policy, products repository.ProductRepository, warehouses repository.WarehouseRepository) *Validator {
	return &Validator{policy: policy, products: products, warehouses: warehouses}
}

// Policy devuelve las reglas activas.
func (v *Validator) Policy() inventory.Policy {
	return v.policy
}

// Check valida la intención ya normalizada sin tocar el ledger.
func (v *Validator) Check(ctx context.Context, in entity.MovementIntent) error {
	if err := inventory.ValidateIntent(in, v.policy); err != nil {
		return err
	}

	product, err := v.products.GetByID(ctx, in.ProductID)
	if err != nil {
		return domain.Classify(err, in.Key())
	}
	if product == nil {
		return domain.NewError(domain.ErrReference, in.Key(), "producto no registrado").WithIntent(in)
	}

	if !v.policy.MultiLocation {
		return nil
	}
	wh, err := v.warehouses.GetByID(ctx, in.LocationID)
	if err != nil {
		return domain.Classify(err, in.Key())
	}
	if wh == nil {
		return domain.NewError(domain.ErrReference, in.Key(), "bodega no registrada").WithIntent(in)
	}
	return nil
}

// CheckStock evalúa la suficiencia con el nivel leído bajo el carril.
func (v *Validator) CheckStock(level entity.InventoryLevel, in entity.MovementIntent) error {
	return inventory.CheckStock(level, in, v.policy)
}
