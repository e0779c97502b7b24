// Package redislock carriles por clave compartidos entre instancias mediante Redis.
package redislock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/stocker-ledger/internal/application/inventory"
	"github.com/jhoicas/stocker-ledger/internal/domain"
	"github.com/jhoicas/stocker-ledger/internal/domain/entity"
)

// keyPrefix prefijo de las claves de lock.
const keyPrefix = "lock:inventory:"

const retryInterval = 25 * time.Millisecond

// releaseScript borra el lock solo si sigue siendo nuestro.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

var _ inventory.KeyLocker = (*Locker)(nil)

// Locker implementa inventory.KeyLocker con SET NX PX y borrado por comparación.
type Locker struct {
	client redis.UniversalClient
	wait   time.Duration
	ttl    time.Duration
}

// New construye el locker. wait es la espera máxima por el carril; ttl el tiempo de vida del
// lock, que debe superar la duración máxima de la transacción.
func New(client redis.UniversalClient, wait, ttl time.Duration) *Locker {
	if wait <= 0 {
		wait = inventory.DefaultLaneWait
	}
	if ttl <= 0 {
		ttl = inventory.DefaultStorageTimeout + wait
	}
	return &Locker{client: client, wait: wait, ttl: ttl}
}

// Acquire reintenta SET NX hasta tomar el lock, vencer la espera (ErrBusy) o cancelar ctx.
func (l *Locker) Acquire(ctx context.Context, key entity.LevelKey) (func(), error) {
	name := lockKey(key)
	token := uuid.New().String()
	deadline := time.NewTimer(l.wait)
	defer deadline.Stop()

	for {
		ok, err := l.client.SetNX(ctx, name, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("redis lock %s: %w", name, err)
		}
		if ok {
			return func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = releaseScript.Run(ctx, l.client, []string{name}, token).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, domain.NewError(domain.ErrBusy, key,
				fmt.Sprintf("carril ocupado por más de %s", l.wait))
		case <-time.After(retryInterval):
		}
	}
}

func lockKey(key entity.LevelKey) string {
	return keyPrefix + key.ProductID + ":" + key.LocationID
}

// NewClient crea el cliente Redis y verifica la conexión.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
