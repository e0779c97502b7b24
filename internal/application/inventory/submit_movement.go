package inventory

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jhoicas/stocker-ledger/internal/domain"
	"github.com/jhoicas/stocker-ledger/internal/domain/entity"
	"github.com/jhoicas/stocker-ledger/internal/domain/inventory"
	"github.com/jhoicas/stocker-ledger/internal/domain/repository"
	"github.com/jhoicas/stocker-ledger/pkg/logger"
)

// SubmitResult resultado de un movimiento admitido (o reconocido como repetido).
type SubmitResult struct {
	EventID   int64
	Duplicate bool // true si el token ya había sido consumido: no se escribió nada
	Level     entity.InventoryLevel
}

// SubmitMovementUseCase registra movimientos IN/OUT/ADJUST: valida, toma el carril de la clave,
// bloquea el nivel (SELECT FOR UPDATE), agrega el evento al ledger y pliega la proyección en la
// misma transacción.
type SubmitMovementUseCase struct {
	coordinator *Coordinator
	validator   *Validator
	ledger      repository.LedgerRepository
	levels      repository.InventoryLevelRepository
	notifier    LevelNotifier
	metrics     Metrics
	log         *logger.Logger
	now         func() time.Time
}

// NewSubmitMovementUseCase construye el caso de uso. ledger y levels se usan fuera de la
// transacción para resolver tokens repetidos. notifier y metrics pueden ser nil.
func NewSubmitMovementUseCase(
	coordinator *Coordinator,
	validator *Validator,
	ledger repository.LedgerRepository,
	levels repository.InventoryLevelRepository,
	notifier LevelNotifier,
	metrics Metrics,
	log *logger.Logger,
) *SubmitMovementUseCase {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &SubmitMovementUseCase{
		coordinator: coordinator,
		validator:   validator,
		ledger:      ledger,
		levels:      levels,
		notifier:    notifier,
		metrics:     metrics,
		log:         log.Named("submit"),
		now:         time.Now,
	}
}

// WithClock reemplaza el reloj usado para recordedAt.
func (uc *SubmitMovementUseCase) WithClock(now func() time.Time) *SubmitMovementUseCase {
	uc.now = now
	return uc
}

// Submit admite la intención o la rechaza con un error tipado. Ante un rechazo no queda
// evento en el ledger ni cambio en la proyección.
func (uc *SubmitMovementUseCase) Submit(ctx context.Context, in entity.MovementIntent) (*SubmitResult, error) {
	start := time.Now()
	in = inventory.Normalize(in)

	res, err := uc.submit(ctx, in)

	outcome := "applied"
	switch {
	case err != nil:
		outcome = strings.ToLower(domain.Code(err))
	case res.Duplicate:
		outcome = "duplicate"
	}
	uc.metrics.ObserveSubmit(string(in.Kind), outcome, time.Since(start))

	if err != nil {
		uc.logRejection(in, err)
		return nil, err
	}
	if res.Duplicate {
		uc.log.Info().
			Str("token", in.IdempotencyToken).
			Int64("event_id", res.EventID).
			Msg("movimiento repetido, se devuelve el evento original")
		return res, nil
	}

	uc.log.Debug().
		Str("product_id", in.ProductID).
		Str("warehouse_id", in.LocationID).
		Str("kind", string(in.Kind)).
		Int64("quantity", in.Quantity).
		Int64("event_id", res.EventID).
		Int64("level", res.Level.Quantity).
		Msg("movimiento registrado")
	uc.publish(ctx, in, res)
	return res, nil
}

func (uc *SubmitMovementUseCase) submit(ctx context.Context, in entity.MovementIntent) (*SubmitResult, error) {
	if err := uc.validator.Check(ctx, in); err != nil {
		return nil, err
	}

	key := in.Key()
	var res SubmitResult
	err := uc.coordinator.Execute(ctx, key, func(
		ctx context.Context,
		ledger repository.LedgerRepository,
		levels repository.InventoryLevelRepository,
	) error {
		// Bloquea la fila de la clave hasta el commit
		level, err := levels.GetForUpdate(ctx, key)
		if err != nil {
			return err
		}

		if in.IdempotencyToken != "" {
			prior, err := ledger.FindByToken(ctx, in.IdempotencyToken)
			if err != nil {
				return err
			}
			if prior != nil {
				if err := sameEffect(in, prior); err != nil {
					return err
				}
				res = SubmitResult{EventID: prior.ID, Duplicate: true, Level: *level}
				return nil
			}
		}

		if err := uc.validator.CheckStock(*level, in); err != nil {
			return err
		}

		recordedAt := uc.now().UTC().Truncate(time.Millisecond)
		if level.UpdatedAt.After(recordedAt) {
			recordedAt = level.UpdatedAt
		}
		ev := &entity.MovementEvent{
			ProductID:        in.ProductID,
			LocationID:       in.LocationID,
			Kind:             in.Kind,
			Quantity:         in.Quantity,
			Note:             in.Note,
			RecordedAt:       recordedAt,
			ActorID:          in.ActorID,
			IdempotencyToken: in.IdempotencyToken,
		}
		id, err := ledger.Append(ctx, ev)
		if err != nil {
			return err
		}
		ev.ID = id

		next := inventory.Apply(*level, *ev)
		if err := levels.Upsert(ctx, &next); err != nil {
			return err
		}
		res = SubmitResult{EventID: id, Level: next}
		return nil
	})
	if err == nil {
		return &res, nil
	}

	// Otro proceso consumió el mismo token en paralelo (clave distinta): el índice único lo detuvo.
	if errors.Is(err, domain.ErrConflict) && in.IdempotencyToken != "" {
		return uc.resolveDuplicate(ctx, in, err)
	}
	return nil, err
}

func (uc *SubmitMovementUseCase) resolveDuplicate(ctx context.Context, in entity.MovementIntent, cause error) (*SubmitResult, error) {
	prior, err := uc.ledger.FindByToken(ctx, in.IdempotencyToken)
	if err != nil {
		return nil, domain.Classify(err, in.Key())
	}
	if prior == nil {
		return nil, cause
	}
	if err := sameEffect(in, prior); err != nil {
		return nil, err
	}
	res := &SubmitResult{EventID: prior.ID, Duplicate: true}
	level, err := uc.levels.Get(ctx, prior.Key())
	if err != nil {
		return nil, domain.Classify(err, in.Key())
	}
	if level != nil {
		res.Level = *level
	}
	return res, nil
}

func sameEffect(in entity.MovementIntent, prior *entity.MovementEvent) error {
	if in.SameEffect(*prior) {
		return nil
	}
	e := domain.NewError(domain.ErrValidation, in.Key(), "idempotency_token ya usado por otro movimiento").WithIntent(in)
	e.EventID = prior.ID
	return e
}

// publish avisa el cambio de nivel; el movimiento ya es durable, un fallo solo se registra.
func (uc *SubmitMovementUseCase) publish(ctx context.Context, in entity.MovementIntent, res *SubmitResult) {
	change := entity.LevelChange{
		Key:         res.Level.Key(),
		Kind:        in.Kind,
		Quantity:    res.Level.Quantity,
		LastEventID: res.Level.LastEventID,
		ChangedAt:   res.Level.UpdatedAt,
	}
	if err := uc.notifier.LevelChanged(context.WithoutCancel(ctx), change); err != nil {
		uc.log.Warn().Err(err).
			Str("key", change.Key.String()).
			Int64("event_id", res.EventID).
			Msg("no se pudo publicar el cambio de nivel")
	}
}

func (uc *SubmitMovementUseCase) logRejection(in entity.MovementIntent, err error) {
	ev := uc.log.Warn()
	if errors.Is(err, domain.ErrStorage) {
		ev = uc.log.Error()
	}
	ev.Err(err).
		Str("code", domain.Code(err)).
		Str("product_id", in.ProductID).
		Str("warehouse_id", in.LocationID).
		Str("kind", string(in.Kind)).
		Int64("quantity", in.Quantity).
		Msg("movimiento rechazado")
}
